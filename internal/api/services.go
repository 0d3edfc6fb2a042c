package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/commitlens/commitlens-cli/internal/entity"
)

// Routes holds the collection path of every resource. List is POST <path>,
// create is POST <path>/create unless Create names another path, update and
// delete are PUT/DELETE <path>/<id>.
type Routes struct {
	Users    string       `yaml:"users,omitempty"`
	Projects string       `yaml:"projects,omitempty"`
	Agents   string       `yaml:"agents,omitempty"`
	Analysis string       `yaml:"analysis,omitempty"`
	Create   CreateRoutes `yaml:"create,omitempty"`
}

// CreateRoutes overrides the full create path per resource, for backends
// that create on the collection path itself.
type CreateRoutes struct {
	Users    string `yaml:"users,omitempty"`
	Projects string `yaml:"projects,omitempty"`
	Agents   string `yaml:"agents,omitempty"`
}

func DefaultRoutes() Routes {
	return Routes{
		Users:    "/users",
		Projects: "/projects",
		Agents:   "/agents",
		Analysis: "/analysis",
	}
}

// withDefaults fills any empty route from DefaultRoutes.
func (r Routes) withDefaults() Routes {
	d := DefaultRoutes()
	if strings.TrimSpace(r.Users) == "" {
		r.Users = d.Users
	}
	if strings.TrimSpace(r.Projects) == "" {
		r.Projects = d.Projects
	}
	if strings.TrimSpace(r.Agents) == "" {
		r.Agents = d.Agents
	}
	if strings.TrimSpace(r.Analysis) == "" {
		r.Analysis = d.Analysis
	}
	return r
}

func (r Routes) For(kind entity.Kind) string {
	r = r.withDefaults()
	switch kind {
	case entity.KindUsers:
		return r.Users
	case entity.KindProjects:
		return r.Projects
	case entity.KindAgents:
		return r.Agents
	}
	return "/" + string(kind)
}

// CreatePath is where a create request for kind is posted.
func (r Routes) CreatePath(kind entity.Kind) string {
	var p string
	switch kind {
	case entity.KindUsers:
		p = r.Create.Users
	case entity.KindProjects:
		p = r.Create.Projects
	case entity.KindAgents:
		p = r.Create.Agents
	}
	if p = strings.TrimSpace(p); p != "" {
		return p
	}
	return strings.TrimRight(r.For(kind), "/") + "/create"
}

// validator is implemented by every create/update payload in package entity.
type validator interface {
	Validate() error
}

// Service is the CRUD surface of one resource. T is the row type, C and U the
// create and update payloads.
type Service[T any, C validator, U validator] struct {
	client Client
	kind   entity.Kind
}

func (s Service[T, C, U]) Kind() entity.Kind { return s.kind }

func (s Service[T, C, U]) path(suffix string) string {
	base := strings.TrimRight(s.client.Routes.For(s.kind), "/")
	if suffix == "" {
		return base
	}
	return base + "/" + suffix
}

// List fetches one page. The list call is a POST but has no side effects, so
// it is retried like a GET.
func (s Service[T, C, U]) List(ctx context.Context, q entity.Query, f entity.Filter) (entity.Page[T], error) {
	body, err := entity.ListRequest(q, f)
	if err != nil {
		return entity.Page[T]{}, err
	}
	var raw struct {
		Data  *[]T `json:"data"`
		Total *int `json:"total"`
	}
	if err := s.client.doJSON(ctx, http.MethodPost, s.path(""), body, &raw, true); err != nil {
		return entity.Page[T]{}, err
	}
	if raw.Data == nil || raw.Total == nil {
		return entity.Page[T]{}, fmt.Errorf("list %s: response is missing data or total", s.kind)
	}
	rows := *raw.Data
	if rows == nil {
		rows = []T{}
	}
	return entity.Page[T]{Data: rows, Total: *raw.Total}, nil
}

func (s Service[T, C, U]) Create(ctx context.Context, in C) (entity.MutationResult, error) {
	if err := in.Validate(); err != nil {
		return entity.MutationResult{}, err
	}
	var out entity.MutationResult
	if err := s.client.DoJSON(ctx, http.MethodPost, s.client.Routes.CreatePath(s.kind), in, &out); err != nil {
		return entity.MutationResult{}, err
	}
	return out, nil
}

func (s Service[T, C, U]) Update(ctx context.Context, id string, in U) (entity.MutationResult, error) {
	if strings.TrimSpace(id) == "" {
		return entity.MutationResult{}, fmt.Errorf("missing %s id", s.kind)
	}
	if err := in.Validate(); err != nil {
		return entity.MutationResult{}, err
	}
	var out entity.MutationResult
	if err := s.client.DoJSON(ctx, http.MethodPut, s.path(url.PathEscape(id)), in, &out); err != nil {
		return entity.MutationResult{}, err
	}
	return out, nil
}

func (s Service[T, C, U]) Delete(ctx context.Context, id string) (entity.MutationResult, error) {
	if strings.TrimSpace(id) == "" {
		return entity.MutationResult{}, fmt.Errorf("missing %s id", s.kind)
	}
	var out entity.MutationResult
	if err := s.client.DoJSON(ctx, http.MethodDelete, s.path(url.PathEscape(id)), nil, &out); err != nil {
		return entity.MutationResult{}, err
	}
	return out, nil
}

type (
	UserService    = Service[entity.User, entity.UserCreate, entity.UserUpdate]
	ProjectService = Service[entity.Project, entity.ProjectCreate, entity.ProjectUpdate]
	AgentService   = Service[entity.Agent, entity.AgentCreate, entity.AgentUpdate]
)

func (c Client) Users() UserService       { return UserService{client: c, kind: entity.KindUsers} }
func (c Client) Projects() ProjectService { return ProjectService{client: c, kind: entity.KindProjects} }
func (c Client) Agents() AgentService     { return AgentService{client: c, kind: entity.KindAgents} }

// CheckProject asks the backend to resolve a repository URL before a project
// is created for it.
func (c Client) CheckProject(ctx context.Context, repoURL string) (entity.Repository, error) {
	if err := entity.CheckHTTPURL(repoURL); err != nil {
		return entity.Repository{}, entity.FieldErrors{"url": err.Error()}
	}
	path := strings.TrimRight(c.Routes.For(entity.KindProjects), "/") + "/check"
	var out entity.Repository
	if err := c.doJSON(ctx, http.MethodPost, path, map[string]any{"url": strings.TrimSpace(repoURL)}, &out, true); err != nil {
		return entity.Repository{}, err
	}
	return out, nil
}

// StartAnalysis creates a run and returns its id.
func (c Client) StartAnalysis(ctx context.Context, in entity.AnalysisCreate) (entity.MutationResult, error) {
	if err := in.Validate(); err != nil {
		return entity.MutationResult{}, err
	}
	var out entity.MutationResult
	if err := c.DoJSON(ctx, http.MethodPost, c.Routes.withDefaults().Analysis, in, &out); err != nil {
		return entity.MutationResult{}, err
	}
	if strings.TrimSpace(out.ID) == "" {
		return entity.MutationResult{}, fmt.Errorf("start analysis: response has no run id")
	}
	return out, nil
}

// AnalysisStatus returns the raw status string of a run. Callers parse it
// with analysis.ParseStatus.
func (c Client) AnalysisStatus(ctx context.Context, runID string) (string, error) {
	if strings.TrimSpace(runID) == "" {
		return "", fmt.Errorf("missing analysis id")
	}
	path := strings.TrimRight(c.Routes.withDefaults().Analysis, "/") + "/" + url.PathEscape(runID) + "/status"
	var out struct {
		Status string `json:"status"`
	}
	if err := c.DoJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return "", err
	}
	return out.Status, nil
}
