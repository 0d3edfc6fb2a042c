package mock

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/commitlens/commitlens-cli/internal/entity"
	"github.com/commitlens/commitlens-cli/internal/state"
)

func TestStoreEnsure_SeedsOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mock", "state.json")
	s := Store{Path: path}

	st, err := s.Ensure()
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected state file: %v", err)
	}
	if _, err := CreateAgent(st, entity.AgentCreate{Name: "Extra", Prompt: "Say hi"}); err != nil {
		t.Fatalf("CreateAgent: %v", err)
	}
	if err := s.Save(st); err != nil {
		t.Fatalf("Save: %v", err)
	}

	again, err := s.Ensure()
	if err != nil {
		t.Fatalf("Ensure again: %v", err)
	}
	if len(again.Agents) != len(st.Agents) {
		t.Fatalf("second Ensure reseeded: %d agents, want %d", len(again.Agents), len(st.Agents))
	}
}

func TestListAgents_DateRangeInclusive(t *testing.T) {
	st := state.Empty()
	day := func(s string) time.Time {
		d, _ := time.Parse(entity.DateLayout, s)
		return d.Add(15 * time.Hour)
	}
	for i, d := range []string{"2026-03-01", "2026-03-05", "2026-03-09"} {
		a, _ := CreateAgent(st, entity.AgentCreate{Name: "Agent " + d, Prompt: "prompt"})
		a.CreatedAt = day(d).Add(time.Duration(i) * time.Minute)
	}

	page, err := ListAgents(st, ListParams{FromDate: "2026-03-05", ToDate: "2026-03-09"})
	if err != nil {
		t.Fatalf("ListAgents: %v", err)
	}
	if page.Total != 2 {
		t.Fatalf("expected 2 agents in range, got %d", page.Total)
	}

	if _, err := ListAgents(st, ListParams{FromDate: "2026-03-09", ToDate: "2026-03-01"}); err == nil {
		t.Fatalf("expected error for inverted range")
	}
}

func TestListUsers_SearchAndPastLastPage(t *testing.T) {
	st := state.SeedDefault()
	page := ListUsers(st, ListParams{Search: "lovelace", Limit: 100})
	if page.Total != 10 {
		t.Fatalf("expected 10 Lovelaces, got %d", page.Total)
	}
	beyond := ListUsers(st, ListParams{Page: 9, Limit: 10})
	if beyond.Total != 40 || len(beyond.Data) != 0 {
		t.Fatalf("expected empty page with full total, got %d rows total=%d", len(beyond.Data), beyond.Total)
	}
}

func TestCreateUser_RejectsDuplicateEmail(t *testing.T) {
	st := state.Empty()
	in := entity.UserCreate{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", Username: "ada", Role: entity.RoleAdmin}
	if _, err := CreateUser(st, in); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	in.Username = "ada2"
	if _, err := CreateUser(st, in); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestDelete_UnknownID(t *testing.T) {
	if err := Delete(state.Empty(), entity.KindUsers, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
