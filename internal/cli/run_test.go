package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	orig, _ := os.Getwd()
	t.Cleanup(func() { os.Chdir(orig) })
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	return dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestRunAllGatesPassing(t *testing.T) {
	dir := chdirTemp(t)
	writeFile(t, filepath.Join(dir, "package.json"), `{"scripts":{}}`)
	writeFile(t, filepath.Join(dir, "quick-gate.config.json"), `{"commands":{"lint":"true","typecheck":"true","build":"true","lighthouse":"true"}}`)

	out, err := executeCommand("run", "--mode", "canary")
	if err != nil {
		t.Fatalf("run: %v\noutput: %s", err, out)
	}
	if !strings.Contains(out, "0 finding(s)") {
		t.Errorf("output = %q, want 0 findings", out)
	}

	data, err := os.ReadFile(filepath.Join(dir, ".quick-gate", "failures.json"))
	if err != nil {
		t.Fatalf("read failures.json: %v", err)
	}
	var report struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatal(err)
	}
	if report.Status != "pass" {
		t.Errorf("failures.json status = %q, want pass", report.Status)
	}
}

func TestRunInvalidMode(t *testing.T) {
	chdirTemp(t)
	_, err := executeCommand("run", "--mode", "bogus")
	if err == nil {
		t.Fatal("expected error for invalid --mode")
	}
}

func TestRunFailingGateExitsNonZero(t *testing.T) {
	dir := chdirTemp(t)
	writeFile(t, filepath.Join(dir, "package.json"), `{"scripts":{}}`)
	writeFile(t, filepath.Join(dir, "quick-gate.config.json"), `{"commands":{"lint":"false","typecheck":"true","build":"true","lighthouse":"true"}}`)

	_, err := executeCommand("run", "--mode", "canary")
	if err == nil {
		t.Fatal("expected error when a gate fails")
	}
	ec, ok := err.(errExitCode)
	if !ok || ec.ExitCode() != 1 {
		t.Errorf("err = %v, want errExitCode{1}", err)
	}
}
