// Package findings defines the normalized finding model that every gate
// parser and the Lighthouse extractor produce into, and the top-level
// failures report persisted after each run.
package findings

// Gate names recognized throughout the system.
const (
	GateLint       = "lint"
	GateTypecheck  = "typecheck"
	GateBuild      = "build"
	GateLighthouse = "lighthouse"
)

// Severity levels a Finding can carry.
const (
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// Finding is a single gate failure normalized into a uniform shape so the
// repair loop can reason about it without knowing which tool produced it.
type Finding struct {
	ID             string            `json:"id"`
	Gate           string            `json:"gate"`
	Severity       string            `json:"severity"`
	Summary        string            `json:"summary"`
	Files          []string          `json:"files"`
	Route          string            `json:"route,omitempty"`
	Metric         string            `json:"metric,omitempty"`
	Actual         string            `json:"actual,omitempty"`
	Threshold      string            `json:"threshold,omitempty"`
	Status         string            `json:"status"`
	Raw            FindingRaw        `json:"raw,omitempty"`
}

// FindingRaw carries trace excerpts and threshold attribution that aren't
// needed for triage but are useful when a human (or a model) digs in.
type FindingRaw struct {
	ThresholdSource string   `json:"threshold_source,omitempty"`
	Excerpt         []string `json:"excerpt,omitempty"`
}

// GateResult records a single gate's pass/fail/skip outcome and timing.
type GateResult struct {
	Name       string `json:"name"`
	Status     string `json:"status"` // pass, fail, skipped
	DurationMs int64  `json:"duration_ms"`
}

// CommandTrace is the verbatim record of one external command invocation.
type CommandTrace struct {
	Command    string `json:"command"`
	Cwd        string `json:"cwd"`
	StartedAt  string `json:"started_at"`
	DurationMs int64  `json:"duration_ms"`
	ExitCode   int    `json:"exit_code"`
	TimedOut   bool   `json:"timed_out"`
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
}

// FailuresReport is the canonical, replaceable state of "what's currently
// failing" — rewritten on every gate rerun.
type FailuresReport struct {
	Version       int           `json:"version"`
	RunID         string        `json:"run_id"`
	Mode          string        `json:"mode"`
	Status        string        `json:"status"` // pass, fail
	Timestamp     string        `json:"timestamp"`
	Repo          string        `json:"repo,omitempty"`
	Branch        string        `json:"branch,omitempty"`
	ChangedFiles  []string      `json:"changed_files"`
	Gates         []GateResult  `json:"gates"`
	Findings      []Finding     `json:"findings"`
	InferredHints []string      `json:"inferred_hints,omitempty"`
}

// Count returns the number of findings currently recorded.
func (r *FailuresReport) Count() int {
	if r == nil {
		return 0
	}
	return len(r.Findings)
}

// NewFailuresReport builds a report from gate results and findings,
// deriving Status from whether any findings are present.
func NewFailuresReport(runID, mode string, changedFiles []string, gates []GateResult, found []Finding) *FailuresReport {
	status := "pass"
	if len(found) > 0 {
		status = "fail"
	}
	if changedFiles == nil {
		changedFiles = []string{}
	}
	if found == nil {
		found = []Finding{}
	}
	if gates == nil {
		gates = []GateResult{}
	}
	return &FailuresReport{
		Version:      1,
		RunID:        runID,
		Mode:         mode,
		Status:       status,
		ChangedFiles: changedFiles,
		Gates:        gates,
		Findings:     found,
	}
}
