package state

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/commitlens/commitlens-cli/internal/entity"
)

func userCreate(u *entity.User) entity.UserCreate {
	return entity.UserCreate{
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Username:  u.Username,
		Role:      u.Role,
		Position:  u.Position,
	}
}

func TestSeedDefault_Basics(t *testing.T) {
	st := SeedDefault()
	if len(st.Users) != 40 {
		t.Fatalf("expected 40 seeded users, got %d", len(st.Users))
	}
	if len(st.Projects) == 0 || len(st.Agents) == 0 {
		t.Fatalf("expected seeded projects and agents")
	}
	if st.Runs == nil {
		t.Fatalf("expected non-nil runs map")
	}
	for id, u := range st.Users {
		if u.ID != id {
			t.Fatalf("user keyed by %q has id %q", id, u.ID)
		}
		if err := userCreate(u).Validate(); err != nil {
			t.Fatalf("seeded user %s is invalid: %v", u.Username, err)
		}
	}
}

func TestSaveAtomicAndLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mock", "state.json")

	st := SeedDefault()
	if err := SaveAtomic(path, st); err != nil {
		t.Fatalf("SaveAtomic: %v", err)
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
	if len(loaded.Users) != len(st.Users) || len(loaded.Agents) != len(st.Agents) {
		t.Fatalf("records lost in round trip")
	}
}

func TestLoad_RejectsNewerVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte(`{"version": 99}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected version error")
	}
}
