package findings

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/failures.schema.json
var failuresSchemaSrc []byte

//go:embed schemas/agent-brief.schema.json
var briefSchemaSrc []byte

var (
	failuresSchema *jsonschema.Schema
	briefSchema    *jsonschema.Schema
)

func init() {
	failuresSchema = mustCompile("failures.schema.json", failuresSchemaSrc)
	briefSchema = mustCompile("agent-brief.schema.json", briefSchemaSrc)
}

func mustCompile(name string, src []byte) *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	if err := c.AddResource(name, bytes.NewReader(src)); err != nil {
		panic(fmt.Sprintf("findings: compile %s: %v", name, err))
	}
	s, err := c.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("findings: compile %s: %v", name, err))
	}
	return s
}

// ValidateFailuresReport checks that v marshals into a document conforming
// to the failures-report schema. It is called before every write of
// failures.json so a malformed artifact never reaches disk.
func ValidateFailuresReport(v interface{}) error {
	return validateAgainst(failuresSchema, v)
}

// ValidateAgentBrief checks v against the agent-brief schema.
func ValidateAgentBrief(v interface{}) error {
	return validateAgainst(briefSchema, v)
}

func validateAgainst(schema *jsonschema.Schema, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal for validation: %w", err)
	}
	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("unmarshal for validation: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}
	return nil
}
