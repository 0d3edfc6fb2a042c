package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/commitlens/commitlens-cli/internal/entity"
)

func DefaultPath() (string, error) {
	if x := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); x != "" {
		return filepath.Join(x, "commitlens", "mock", "state.json"), nil
	}
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		h, herr := os.UserHomeDir()
		if herr != nil {
			return "", errors.New("cannot determine config dir")
		}
		dir = filepath.Join(h, ".config")
	}
	return filepath.Join(dir, "commitlens", "mock", "state.json"), nil
}

func Load(path string) (*State, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s State
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if s.Version > CurrentVersion {
		return nil, fmt.Errorf("%s: state version %d is newer than supported %d", path, s.Version, CurrentVersion)
	}
	s.ensureMaps()
	return &s, nil
}

func SaveAtomic(path string, s *State) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Empty returns a state with no records.
func Empty() *State {
	s := &State{Version: CurrentVersion}
	s.ensureMaps()
	return s
}

var (
	seedFirst = []string{"Ada", "Grace", "Linus", "Margaret", "Ken", "Barbara", "Dennis", "Frances", "Edsger", "Radia"}
	seedLast  = []string{"Lovelace", "Hopper", "Torvalds", "Hamilton", "Thompson", "Liskov", "Ritchie", "Allen", "Dijkstra", "Perlman"}
	seedRepos = []string{
		"https://github.com/golang/go",
		"https://github.com/charmbracelet/bubbletea",
		"https://github.com/spf13/cobra",
		"https://github.com/kubernetes/kubernetes",
		"https://github.com/prometheus/prometheus",
		"https://github.com/grafana/grafana",
		"https://github.com/hashicorp/terraform",
		"https://github.com/etcd-io/etcd",
		"https://github.com/cli/cli",
		"https://github.com/junegunn/fzf",
		"https://github.com/gohugoio/hugo",
		"https://github.com/traefik/traefik",
	}
	seedAgents = []entity.AgentCreate{
		{Name: "Code Reviewer", Prompt: "Review every commit for risky changes, missing tests and unclear naming. Summarise per author.", Description: "Per-author review summary"},
		{Name: "Security Auditor", Prompt: "Look for leaked secrets, unsafe deserialisation and injection risks in each diff.", Description: "Flags security issues"},
		{Name: "Release Notes", Prompt: "Group commits by feature area and write **user facing** release notes in markdown.", Description: "Drafts release notes"},
		{Name: "Velocity Coach", Prompt: "Estimate effort per commit and highlight contributors whose pace changed over the period.", Description: "Throughput trends"},
		{Name: "Doc Checker", Prompt: "List public API changes that are not reflected in README or docs directories.", Description: "Docs drift"},
		{Name: "Flaky Failer", Prompt: "Demo agent whose runs always fail while processing commit details, for testing.", Description: "Always fails"},
	}
)

// SeedDefault builds the demo data set. Timestamps are spread backwards from
// now so createdAt sorting and date filters have something to work with.
func SeedDefault() *State {
	s := Empty()
	now := time.Now().UTC().Truncate(time.Second)

	n := 0
	for _, first := range seedFirst {
		for j, last := range seedLast[:4] {
			id := uuid.NewString()
			role := entity.Roles[(n+j)%len(entity.Roles)]
			pos := entity.Positions[n%len(entity.Positions)]
			if n%7 == 0 {
				pos = ""
			}
			username := strings.ToLower(first[:1] + last)
			if len(username) > 14 {
				username = username[:14]
			}
			s.Users[id] = &entity.User{
				ID:        id,
				FirstName: first,
				LastName:  last,
				Email:     fmt.Sprintf("%s.%s@example.com", strings.ToLower(first), strings.ToLower(last)),
				Username:  fmt.Sprintf("%s%d", username, n),
				Role:      role,
				Position:  pos,
				CreatedAt: now.Add(-time.Duration(n) * 26 * time.Hour),
			}
			n++
		}
	}

	for i, url := range seedRepos {
		id := uuid.NewString()
		name := url[strings.LastIndex(url, "/")+1:]
		s.Projects[id] = &entity.Project{
			ID:        id,
			Name:      name,
			URL:       url,
			CreatedAt: now.Add(-time.Duration(i) * 72 * time.Hour),
		}
	}

	for i, a := range seedAgents {
		id := uuid.NewString()
		s.Agents[id] = &entity.Agent{
			ID:          id,
			Name:        a.Name,
			Prompt:      a.Prompt,
			Description: a.Description,
			CreatedAt:   now.Add(-time.Duration(i) * 9 * 24 * time.Hour),
		}
	}
	return s
}
