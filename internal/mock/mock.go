// Package mock is an in-process stand-in for the commitlens backend, backed by
// a JSON state file. It serves the same REST surface as the real API so the
// TUI and CLI can be demoed and tested offline.
package mock

import (
	"errors"
	"fmt"
	"hash/fnv"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/commitlens/commitlens-cli/internal/analysis"
	"github.com/commitlens/commitlens-cli/internal/entity"
	"github.com/commitlens/commitlens-cli/internal/state"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

// Store persists the mock state at Path. An empty Path keeps state in memory.
type Store struct {
	Path string
}

// Ensure loads the state file, seeding it on first use.
func (s Store) Ensure() (*state.State, error) {
	if s.Path == "" {
		return state.SeedDefault(), nil
	}
	st, err := state.Load(s.Path)
	if err == nil {
		return st, nil
	}
	if !os.IsNotExist(err) {
		return nil, err
	}
	seed := state.SeedDefault()
	if err := state.SaveAtomic(s.Path, seed); err != nil {
		return nil, err
	}
	return seed, nil
}

func (s Store) Save(st *state.State) error {
	if s.Path == "" {
		return nil
	}
	return state.SaveAtomic(s.Path, st)
}

// ListParams is the decoded body of a list call.
type ListParams struct {
	Page      int    `json:"page"`
	Limit     int    `json:"limit"`
	Search    string `json:"search"`
	SortBy    string `json:"sort_by"`
	SortOrder string `json:"sort_order"`

	Role     string `json:"role"`
	Position string `json:"position"`
	Name     string `json:"name"`
	URL      string `json:"url"`
	FromDate string `json:"from_date"`
	ToDate   string `json:"to_date"`
}

func (p ListParams) normalized() ListParams {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = 10
	}
	if p.SortBy == "" {
		p.SortBy = "createdAt"
		if p.SortOrder == "" {
			p.SortOrder = "desc"
		}
	}
	return p
}

func contains(hay, needle string) bool {
	return strings.Contains(strings.ToLower(hay), strings.ToLower(strings.TrimSpace(needle)))
}

// page sorts, then slices items for the requested page.
func page[T any](items []T, p ListParams, key func(T, string) string) entity.Page[T] {
	desc := strings.EqualFold(p.SortOrder, "desc")
	sort.SliceStable(items, func(i, j int) bool {
		a, b := key(items[i], p.SortBy), key(items[j], p.SortBy)
		if desc {
			return a > b
		}
		return a < b
	})
	total := len(items)
	start := (p.Page - 1) * p.Limit
	if start > total {
		start = total
	}
	end := start + p.Limit
	if end > total {
		end = total
	}
	out := make([]T, end-start)
	copy(out, items[start:end])
	return entity.Page[T]{Data: out, Total: total}
}

func stamp(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func ListUsers(st *state.State, p ListParams) entity.Page[entity.User] {
	p = p.normalized()
	items := make([]entity.User, 0, len(st.Users))
	for _, u := range st.Users {
		if p.Role != "" && string(u.Role) != p.Role {
			continue
		}
		if p.Position != "" && string(u.Position) != p.Position {
			continue
		}
		if p.Search != "" && !contains(u.FullName()+" "+u.Email+" "+u.Username, p.Search) {
			continue
		}
		items = append(items, *u)
	}
	return page(items, p, func(u entity.User, f string) string {
		switch f {
		case "firstName":
			return strings.ToLower(u.FirstName)
		case "lastName":
			return strings.ToLower(u.LastName)
		case "email":
			return strings.ToLower(u.Email)
		case "username":
			return strings.ToLower(u.Username)
		case "role":
			return string(u.Role)
		case "position":
			return string(u.Position)
		}
		return stamp(u.CreatedAt)
	})
}

func ListProjects(st *state.State, p ListParams) entity.Page[entity.Project] {
	p = p.normalized()
	items := make([]entity.Project, 0, len(st.Projects))
	for _, pr := range st.Projects {
		if p.Name != "" && !contains(pr.Name, p.Name) {
			continue
		}
		if p.URL != "" && !contains(pr.URL, p.URL) {
			continue
		}
		if p.Search != "" && !contains(pr.Name+" "+pr.URL, p.Search) {
			continue
		}
		items = append(items, *pr)
	}
	return page(items, p, func(pr entity.Project, f string) string {
		switch f {
		case "name":
			return strings.ToLower(pr.Name)
		case "url":
			return strings.ToLower(pr.URL)
		}
		return stamp(pr.CreatedAt)
	})
}

func ListAgents(st *state.State, p ListParams) (entity.Page[entity.Agent], error) {
	p = p.normalized()
	f := entity.AgentFilter{FromDate: p.FromDate, ToDate: p.ToDate}
	if err := f.Validate(); err != nil {
		return entity.Page[entity.Agent]{}, err
	}
	items := make([]entity.Agent, 0, len(st.Agents))
	for _, a := range st.Agents {
		day := a.CreatedAt.UTC().Format(entity.DateLayout)
		if p.FromDate != "" && day < p.FromDate {
			continue
		}
		if p.ToDate != "" && day > p.ToDate {
			continue
		}
		if p.Search != "" && !contains(a.Name+" "+a.Description, p.Search) {
			continue
		}
		items = append(items, *a)
	}
	return page(items, p, func(a entity.Agent, f string) string {
		if f == "name" {
			return strings.ToLower(a.Name)
		}
		return stamp(a.CreatedAt)
	}), nil
}

func CreateUser(st *state.State, in entity.UserCreate) (*entity.User, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	for _, u := range st.Users {
		if strings.EqualFold(u.Email, in.Email) {
			return nil, fmt.Errorf("%w: email %s is already registered", ErrConflict, in.Email)
		}
		if strings.EqualFold(u.Username, in.Username) {
			return nil, fmt.Errorf("%w: username %s is taken", ErrConflict, in.Username)
		}
	}
	u := &entity.User{
		ID:        uuid.NewString(),
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Email:     strings.TrimSpace(in.Email),
		Username:  strings.TrimSpace(in.Username),
		Role:      in.Role,
		Position:  in.Position,
		CreatedAt: time.Now().UTC(),
	}
	st.Users[u.ID] = u
	return u, nil
}

func UpdateUser(st *state.State, id string, in entity.UserUpdate) (*entity.User, error) {
	u := st.Users[id]
	if u == nil {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	for _, other := range st.Users {
		if other.ID != id && strings.EqualFold(other.Email, in.Email) {
			return nil, fmt.Errorf("%w: email %s is already registered", ErrConflict, in.Email)
		}
	}
	u.FirstName, u.LastName = strings.TrimSpace(in.FirstName), strings.TrimSpace(in.LastName)
	u.Email, u.Username = strings.TrimSpace(in.Email), strings.TrimSpace(in.Username)
	u.Role, u.Position = in.Role, in.Position
	return u, nil
}

func CreateProject(st *state.State, in entity.ProjectCreate) (*entity.Project, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	for _, p := range st.Projects {
		if strings.EqualFold(p.URL, strings.TrimSpace(in.URL)) {
			return nil, fmt.Errorf("%w: project for %s already exists", ErrConflict, in.URL)
		}
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		if repo, err := repositoryFor(in.URL); err == nil {
			name = repo.Name
		}
	}
	p := &entity.Project{ID: uuid.NewString(), Name: name, URL: strings.TrimSpace(in.URL), CreatedAt: time.Now().UTC()}
	st.Projects[p.ID] = p
	return p, nil
}

func UpdateProject(st *state.State, id string, in entity.ProjectUpdate) (*entity.Project, error) {
	p := st.Projects[id]
	if p == nil {
		return nil, fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if v := strings.TrimSpace(in.Name); v != "" {
		p.Name = v
	}
	if v := strings.TrimSpace(in.URL); v != "" {
		p.URL = v
	}
	return p, nil
}

func CreateAgent(st *state.State, in entity.AgentCreate) (*entity.Agent, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	a := &entity.Agent{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(in.Name),
		Prompt:      strings.TrimSpace(in.Prompt),
		Description: strings.TrimSpace(in.Description),
		CreatedAt:   time.Now().UTC(),
	}
	st.Agents[a.ID] = a
	return a, nil
}

func UpdateAgent(st *state.State, id string, in entity.AgentUpdate) (*entity.Agent, error) {
	a := st.Agents[id]
	if a == nil {
		return nil, fmt.Errorf("agent %s: %w", id, ErrNotFound)
	}
	if in.ID == "" {
		in.ID = id
	}
	if in.ID != id {
		return nil, fmt.Errorf("agent id in body (%s) does not match path (%s)", in.ID, id)
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	a.Name, a.Prompt = strings.TrimSpace(in.Name), strings.TrimSpace(in.Prompt)
	a.Description = strings.TrimSpace(in.Description)
	return a, nil
}

// Delete removes a record of kind and reports ErrNotFound for unknown ids.
func Delete(st *state.State, kind entity.Kind, id string) error {
	var ok bool
	switch kind {
	case entity.KindUsers:
		_, ok = st.Users[id]
		delete(st.Users, id)
	case entity.KindProjects:
		_, ok = st.Projects[id]
		delete(st.Projects, id)
	case entity.KindAgents:
		_, ok = st.Agents[id]
		delete(st.Agents, id)
	default:
		return fmt.Errorf("unknown kind %q", kind)
	}
	if !ok {
		return fmt.Errorf("%s %s: %w", strings.TrimSuffix(string(kind), "s"), id, ErrNotFound)
	}
	return nil
}

// repositoryFor fakes a repository lookup for host/owner/name URLs. The
// counts are derived from the URL so repeated checks agree.
func repositoryFor(raw string) (entity.Repository, error) {
	if err := entity.CheckHTTPURL(raw); err != nil {
		return entity.Repository{}, err
	}
	u, _ := url.Parse(strings.TrimSpace(raw))
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return entity.Repository{}, fmt.Errorf("repository %s: %w", raw, ErrNotFound)
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToLower(u.Host + u.Path)))
	sum := h.Sum32()
	langs := []string{"Go", "TypeScript", "Rust", "Python", "Clojure"}
	return entity.Repository{
		Name:            strings.TrimSuffix(parts[1], ".git"),
		Owner:           entity.RepositoryOwner{Login: parts[0]},
		Description:     fmt.Sprintf("%s by %s", parts[1], parts[0]),
		Language:        langs[sum%uint32(len(langs))],
		StargazersCount: int(sum % 50000),
		ForksCount:      int(sum % 4000),
		Private:         sum%11 == 0,
	}, nil
}

func CheckProject(st *state.State, raw string) (entity.Repository, error) {
	repo, err := repositoryFor(raw)
	if err != nil {
		return entity.Repository{}, err
	}
	for _, p := range st.Projects {
		if strings.EqualFold(p.URL, strings.TrimSpace(raw)) {
			return entity.Repository{}, fmt.Errorf("%w: project for %s already exists", ErrConflict, raw)
		}
	}
	return repo, nil
}

// StartAnalysis records a run in the started state. Runs whose agent name
// contains "fail" fail while processing commit details.
func StartAnalysis(st *state.State, in entity.AnalysisCreate) (*state.Run, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if st.Projects[in.ProjectID] == nil {
		return nil, fmt.Errorf("project %s: %w", in.ProjectID, ErrNotFound)
	}
	agent := st.Agents[in.AgentID]
	if agent == nil {
		return nil, fmt.Errorf("agent %s: %w", in.AgentID, ErrNotFound)
	}
	for _, id := range in.UserIDs {
		if st.Users[id] == nil {
			return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
		}
	}
	now := time.Now().UTC()
	r := &state.Run{
		ID:        uuid.NewString(),
		ProjectID: in.ProjectID,
		AgentID:   in.AgentID,
		UserIDs:   append([]string(nil), in.UserIDs...),
		From:      in.From,
		To:        in.To,
		Status:    string(analysis.StatusStarted),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if contains(agent.Name, "fail") {
		r.FailAt = string(analysis.StatusGetCommitDetails)
	}
	st.Runs[r.ID] = r
	return r, nil
}

// PollAnalysis returns the run's current status and then moves it one step
// along, so consecutive polls walk through every status.
func PollAnalysis(st *state.State, id string) (string, error) {
	r := st.Runs[id]
	if r == nil {
		return "", fmt.Errorf("analysis %s: %w", id, ErrNotFound)
	}
	current := r.Status
	r.Polls++
	if analysis.Status(current).Terminal() {
		return current, nil
	}
	switch {
	case r.FailAt != "" && current == r.FailAt:
		r.Status = string(analysis.StatusFailed)
	default:
		if i := analysis.StepIndex(analysis.Status(current)); i >= 0 && i+1 < len(analysis.Sequence) {
			r.Status = string(analysis.Sequence[i+1])
		}
	}
	r.UpdatedAt = time.Now().UTC()
	return current, nil
}
