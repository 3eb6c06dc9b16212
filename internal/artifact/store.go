package artifact

import (
	"fmt"
	"path/filepath"

	"github.com/quickgate/quickgate/internal/findings"
)

// DirName is the artifact directory created inside the project's working
// tree.
const DirName = ".quick-gate"

// Store persists every document a run or repair invocation produces,
// under <cwd>/.quick-gate/.
type Store struct {
	root string
}

// NewStore returns a Store rooted at <cwd>/.quick-gate.
func NewStore(cwd string) *Store {
	return &Store{root: filepath.Join(cwd, DirName)}
}

// Root returns the artifact directory path.
func (s *Store) Root() string { return s.root }

func (s *Store) path(name string) string {
	return filepath.Join(s.root, name)
}

// FailuresPath is the path to failures.json.
func (s *Store) FailuresPath() string { return s.path("failures.json") }

// RunMetadataPath is the path to run-metadata.json.
func (s *Store) RunMetadataPath() string { return s.path("run-metadata.json") }

// AgentBriefJSONPath is the path to agent-brief.json.
func (s *Store) AgentBriefJSONPath() string { return s.path("agent-brief.json") }

// AgentBriefMarkdownPath is the path to agent-brief.md.
func (s *Store) AgentBriefMarkdownPath() string { return s.path("agent-brief.md") }

// RepairReportPath is the path to repair-report.json.
func (s *Store) RepairReportPath() string { return s.path("repair-report.json") }

// EscalationPath is the path to escalation.json.
func (s *Store) EscalationPath() string { return s.path("escalation.json") }

// LighthouseConfigPath is the path to the generated lighthouserc.yml.
func (s *Store) LighthouseConfigPath() string { return s.path("lighthouserc.yml") }

// HistoryDBPath is the path to the optional sqlite history log.
func (s *Store) HistoryDBPath() string { return s.path("history.db") }

// BackupDir returns the per-attempt snapshot directory.
func (s *Store) BackupDir(attempt int) string {
	return s.path(fmt.Sprintf("backup-attempt-%d", attempt))
}

// SaveFailures validates and writes the failures report.
func (s *Store) SaveFailures(r *findings.FailuresReport) error {
	if err := findings.ValidateFailuresReport(r); err != nil {
		return fmt.Errorf("validate failures report: %w", err)
	}
	return WriteJSON(s.FailuresPath(), r)
}

// LoadFailures reads the current failures report.
func (s *Store) LoadFailures() (*findings.FailuresReport, error) {
	var r findings.FailuresReport
	if err := ReadJSON(s.FailuresPath(), &r); err != nil {
		return nil, fmt.Errorf("read failures report: %w", err)
	}
	return &r, nil
}

// SaveRunMetadata writes run-metadata.json. Not schema-validated: it is a
// diagnostic sidecar, not a contract consumed by the repair loop.
func (s *Store) SaveRunMetadata(v interface{}) error {
	return WriteJSON(s.RunMetadataPath(), v)
}

// SaveRepairReport writes repair-report.json.
func (s *Store) SaveRepairReport(v interface{}) error {
	return WriteJSON(s.RepairReportPath(), v)
}

// SaveEscalation writes escalation.json.
func (s *Store) SaveEscalation(v interface{}) error {
	return WriteJSON(s.EscalationPath(), v)
}

// SaveAgentBriefJSON writes agent-brief.json.
func (s *Store) SaveAgentBriefJSON(v interface{}) error {
	return WriteJSON(s.AgentBriefJSONPath(), v)
}
