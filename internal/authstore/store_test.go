package authstore

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestStore_SetGet_TrimsAndValidates(t *testing.T) {
	s := &Store{}
	s.Set("  http://localhost:8090/ ", "  tok  ", " ada ")

	rec, ok := s.Get("http://localhost:8090")
	if !ok {
		t.Fatalf("expected session present")
	}
	if rec.Token != "tok" || rec.User != "ada" {
		t.Fatalf("expected trimmed record, got %+v", rec)
	}

	// Blank tokens are never returned.
	s.Sessions["http://x"] = Record{Token: "   "}
	if _, ok := s.Token("http://x"); ok {
		t.Fatalf("expected missing token")
	}

	s.Set("", "tok2", "")
	s.Set("http://y", "", "")
	if _, ok := s.Get("http://y"); ok {
		t.Fatalf("expected not set")
	}
}

func TestStore_SaveAtomicAndLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "credentials.json")

	s := &Store{}
	s.Set("http://localhost:8090", "tok", "")
	if err := SaveAtomic(path, s); err != nil {
		t.Fatalf("SaveAtomic: %v", err)
	}

	if runtime.GOOS != "windows" {
		st, err := os.Stat(path)
		if err != nil {
			t.Fatalf("stat: %v", err)
		}
		if st.Mode().Perm() != 0o600 {
			t.Fatalf("expected 0600 perms, got %o", st.Mode().Perm())
		}
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.HasSuffix(string(b), "\n") {
		t.Fatalf("expected trailing newline")
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	got, ok := loaded.Token("http://localhost:8090/")
	if !ok || got != "tok" {
		t.Fatalf("expected token tok, got %q (ok=%v)", got, ok)
	}
}

func TestStore_Load_MissingFileIsEmpty(t *testing.T) {
	st, err := Load(filepath.Join(t.TempDir(), "none.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if st.Sessions == nil || len(st.BaseURLs()) != 0 {
		t.Fatalf("expected empty store, got %+v", st)
	}
}

func TestStore_Delete(t *testing.T) {
	s := &Store{}
	s.Set("http://a", "t1", "")
	s.Set("http://b", "t2", "")
	if !s.Delete("http://a/") {
		t.Fatalf("expected delete to report existing session")
	}
	if s.Delete("http://a") {
		t.Fatalf("second delete must report false")
	}
	if got := s.BaseURLs(); len(got) != 1 || got[0] != "http://b" {
		t.Fatalf("unexpected remaining sessions %v", got)
	}
}
