package gitdiff

import "testing"

func TestParseNumstatSumsAddedAndDeleted(t *testing.T) {
	out := "3\t1\tsrc/a.ts\n0\t5\tsrc/b.ts\n"
	deltas := parseNumstat(out, map[string]bool{})
	if deltas["src/a.ts"] != 4 {
		t.Errorf("src/a.ts = %d, want 4", deltas["src/a.ts"])
	}
	if deltas["src/b.ts"] != 5 {
		t.Errorf("src/b.ts = %d, want 5", deltas["src/b.ts"])
	}
}

func TestParseNumstatSkipsBinaryAndExcluded(t *testing.T) {
	out := "-\t-\tsrc/logo.png\n2\t0\tnode_modules/dep.js\n1\t1\tsrc/a.ts\n"
	deltas := parseNumstat(out, map[string]bool{"node_modules": true})
	if len(deltas) != 1 {
		t.Fatalf("deltas = %v, want only src/a.ts", deltas)
	}
	if deltas["src/a.ts"] != 2 {
		t.Errorf("src/a.ts = %d, want 2", deltas["src/a.ts"])
	}
}

func TestDeltaSumsAbsoluteDifferencesAcrossUnion(t *testing.T) {
	before := map[string]int{"a.ts": 2, "b.ts": 5}
	after := map[string]int{"a.ts": 4, "c.ts": 3}
	got := Delta(before, after)
	// a.ts: |4-2|=2, b.ts: |0-5|=5, c.ts: |3-0|=3 => 10
	if got != 10 {
		t.Errorf("Delta() = %d, want 10", got)
	}
}

func TestSampleMissingGitReturnsEmpty(t *testing.T) {
	deltas := Sample(t.TempDir(), map[string]bool{})
	if len(deltas) != 0 {
		t.Errorf("deltas = %v, want empty for a non-git directory", deltas)
	}
}
