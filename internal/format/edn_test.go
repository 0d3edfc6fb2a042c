package format

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func ednString(t *testing.T, v any, pretty bool) string {
	t.Helper()
	var buf bytes.Buffer
	if err := WriteEDN(&buf, v, pretty); err != nil {
		t.Fatalf("WriteEDN: %v", err)
	}
	return strings.TrimSpace(buf.String())
}

func TestWriteEDN_ListEnvelope(t *testing.T) {
	env := map[string]any{
		"ok":   true,
		"meta": map[string]any{"page": 1, "total": 40, "hint": nil},
		"data": map[string]any{"items": []map[string]any{{"id": "u1", "role": "admin"}}},
	}
	want := `{:data {:items [{:id "u1" :role "admin"}]} :meta {:hint nil :page 1 :total 40} :ok true}`
	if diff := cmp.Diff(want, ednString(t, env, false)); diff != "" {
		t.Fatalf("edn mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteEDN_KeysBecomeKeywords(t *testing.T) {
	got := ednString(t, map[string]any{"created at": "x", "": 1}, false)
	if got != `{:_ 1 :created-at "x"}` {
		t.Fatalf("unexpected edn: %q", got)
	}
}

func TestWriteEDN_NumbersAndTimes(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	got := ednString(t, map[string]any{"n": 3.0, "f": 0.25, "at": at}, false)
	if got != `{:at "2024-03-01T12:00:00Z" :f 0.25 :n 3}` {
		t.Fatalf("unexpected edn: %q", got)
	}
}

func TestWriteEDN_Pretty(t *testing.T) {
	got := ednString(t, map[string]any{"steps": []any{"started", "get_commits"}, "status": "analyzing"}, true)
	if !strings.Contains(got, "\n") {
		t.Fatalf("expected multi-line edn, got %q", got)
	}
	if !strings.Contains(got, `"get_commits"`) || !strings.Contains(got, ":status") {
		t.Fatalf("pretty output lost content: %q", got)
	}
}
