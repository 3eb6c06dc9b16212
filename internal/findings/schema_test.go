package findings

import "testing"

func TestValidateFailuresReportAcceptsWellFormedReport(t *testing.T) {
	r := NewFailuresReport("run-1", "canary", []string{"src/a.ts"},
		[]GateResult{{Name: GateLint, Status: "pass", DurationMs: 10}},
		nil)
	if err := ValidateFailuresReport(r); err != nil {
		t.Fatalf("ValidateFailuresReport() error = %v, want nil", err)
	}
}

func TestValidateFailuresReportRejectsBadGateStatus(t *testing.T) {
	r := NewFailuresReport("run-1", "canary", nil,
		[]GateResult{{Name: GateLint, Status: "maybe", DurationMs: 0}},
		nil)
	if err := ValidateFailuresReport(r); err == nil {
		t.Fatal("ValidateFailuresReport() error = nil, want error for invalid gate status")
	}
}

func TestValidateFailuresReportRejectsMissingFindingFields(t *testing.T) {
	r := NewFailuresReport("run-1", "canary", nil, nil,
		[]Finding{{ID: "f1"}}) // missing gate/severity/summary/files/status
	if err := ValidateFailuresReport(r); err == nil {
		t.Fatal("ValidateFailuresReport() error = nil, want error for incomplete finding")
	}
}

func TestFailuresReportStatusDerivedFromFindings(t *testing.T) {
	pass := NewFailuresReport("r", "canary", nil, nil, nil)
	if pass.Status != "pass" {
		t.Errorf("Status = %q, want pass", pass.Status)
	}
	fail := NewFailuresReport("r", "canary", nil, nil, []Finding{{
		ID: "f1", Gate: GateLint, Severity: SeverityHigh, Summary: "x",
		Files: []string{"a.ts"}, Status: "fail",
	}})
	if fail.Status != "fail" {
		t.Errorf("Status = %q, want fail", fail.Status)
	}
	if fail.Count() != 1 {
		t.Errorf("Count() = %d, want 1", fail.Count())
	}
}
