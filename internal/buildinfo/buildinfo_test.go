package buildinfo

import "testing"

func TestDisplayVersion(t *testing.T) {
	orig := Version
	t.Cleanup(func() { Version = orig })

	cases := map[string]string{
		"2026.1.1": "v2026.1.1",
		"v1.2.3":   "v1.2.3",
		"nightly":  "nightly",
	}
	for in, want := range cases {
		Version = in
		if got := DisplayVersion(); got != want {
			t.Fatalf("DisplayVersion(%q)=%q want %q", in, got, want)
		}
	}
}

func TestCurrent_TruncatesCommit(t *testing.T) {
	orig := Commit
	t.Cleanup(func() { Commit = orig })
	Commit = "0123456789abcdef0123"
	if got := Current().Commit; got != "0123456789ab" {
		t.Fatalf("unexpected commit %q", got)
	}
}
