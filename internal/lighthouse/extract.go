// Package lighthouse parses a Lighthouse CI assertion-results artifact
// into findings.Finding records, attributing each failure to the
// threshold that produced it.
package lighthouse

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/quickgate/quickgate/internal/findings"
)

// ResultsFile is the fixed relative path the default audit runner writes
// its assertion results to.
const ResultsFile = ".lighthouseci/assertion-results.json"

// assertion mirrors one entry of lhci's assertion-results.json.
type assertion struct {
	Passed        bool        `json:"passed"`
	URL           string      `json:"url"`
	AuditProperty string      `json:"auditProperty"`
	Assertion     string      `json:"assertion"`
	NumericValue  *float64    `json:"numericValue"`
	Expected      interface{} `json:"expected"`
	Message       string      `json:"message"`
	Level         string      `json:"level"`
}

// Extractor implements gate.LighthouseExtractor.
type Extractor struct{}

var categoryRe = regexp.MustCompile(`^categories:(.+)$`)

// Extract reads the assertion-results artifact under dir and returns one
// finding per failing assertion.
func (Extractor) Extract(dir string, thresholds map[string]float64) ([]findings.Finding, error) {
	path := filepath.Join(dir, ResultsFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var assertions []assertion
	if err := json.Unmarshal(data, &assertions); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	var out []findings.Finding
	for _, a := range assertions {
		if a.Passed {
			continue
		}
		out = append(out, findingFromAssertion(a, thresholds))
	}
	return out, nil
}

func findingFromAssertion(a assertion, thresholds map[string]float64) findings.Finding {
	route := routeOf(a.URL)
	metric := a.Assertion

	threshold, source := attributeThreshold(a, thresholds)
	actual := ""
	if a.NumericValue != nil {
		actual = strconv.FormatFloat(*a.NumericValue, 'f', -1, 64)
	} else if a.Message != "" {
		actual = a.Message
	}

	return findings.Finding{
		ID:        fmt.Sprintf("lh_%s_%s", slug(route), slug(metric)),
		Gate:      findings.GateLighthouse,
		Severity:  findings.SeverityHigh,
		Summary:   fmt.Sprintf("%s failed %s: %s", route, metric, a.Message),
		Files:     []string{},
		Route:     route,
		Metric:    metric,
		Actual:    actual,
		Threshold: threshold,
		Status:    "fail",
		Raw:       findings.FindingRaw{ThresholdSource: source},
	}
}

func attributeThreshold(a assertion, thresholds map[string]float64) (value, source string) {
	if a.Expected != nil {
		return fmt.Sprintf("%v", a.Expected), "assertion_expected"
	}
	if m := categoryRe.FindStringSubmatch(a.Assertion); m != nil {
		name := m[1]
		if t, ok := thresholds[name]; ok {
			return strconv.FormatFloat(t, 'f', -1, 64), "config_category:" + name
		}
	}
	if t, ok := thresholds[a.Assertion]; ok {
		return strconv.FormatFloat(t, 'f', -1, 64), "config_metric:" + a.Assertion
	}
	return "n/a", "unknown"
}

func routeOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Path == "" {
		return "/"
	}
	return u.Path
}

var slugNonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

func slug(s string) string {
	lowered := strings.ToLower(s)
	collapsed := slugNonAlnum.ReplaceAllString(lowered, "_")
	trimmed := strings.Trim(collapsed, "_")
	if trimmed == "" {
		return "root"
	}
	return trimmed
}
