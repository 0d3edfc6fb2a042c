// Package entity holds the records the console manages (users, projects,
// agents, analysis runs), their create/update payloads and the per-entity
// list filters, together with the validation applied before anything is
// sent to the API.
package entity

import "time"

// Kind names an entity collection. It doubles as the cache key prefix and
// the REST resource name.
type Kind string

const (
	KindUsers    Kind = "users"
	KindProjects Kind = "projects"
	KindAgents   Kind = "agents"
)

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleUser    Role = "user"
)

var Roles = []Role{RoleAdmin, RoleManager, RoleUser}

type Position string

const (
	PositionDeveloper Position = "developer"
	PositionDesigner  Position = "designer"
	PositionManager   Position = "manager"
	PositionQA        Position = "qa"
	PositionDevOps    Position = "devops"
)

var Positions = []Position{PositionDeveloper, PositionDesigner, PositionManager, PositionQA, PositionDevOps}

type User struct {
	ID        string    `json:"id"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	Role      Role      `json:"role"`
	Position  Position  `json:"position,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func (u User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

type UserCreate struct {
	FirstName string   `json:"firstName"`
	LastName  string   `json:"lastName"`
	Email     string   `json:"email"`
	Username  string   `json:"username"`
	Role      Role     `json:"role"`
	Position  Position `json:"position,omitempty"`
}

type UserUpdate = UserCreate

type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"createdAt"`
}

type ProjectCreate struct {
	Name string `json:"name,omitempty"`
	URL  string `json:"url"`
}

type ProjectUpdate struct {
	Name string `json:"name,omitempty"`
	URL  string `json:"url,omitempty"`
}

// Repository is what the backend reports for a project URL before the
// project is created.
type Repository struct {
	Name            string          `json:"name"`
	Owner           RepositoryOwner `json:"owner"`
	Description     string          `json:"description,omitempty"`
	Language        string          `json:"language,omitempty"`
	StargazersCount int             `json:"stargazersCount"`
	ForksCount      int             `json:"forksCount"`
	Private         bool            `json:"private"`
}

type RepositoryOwner struct {
	Login string `json:"login"`
}

type Agent struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Prompt      string    `json:"prompt"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

type AgentCreate struct {
	Name        string `json:"name"`
	Prompt      string `json:"prompt"`
	Description string `json:"description,omitempty"`
}

type AgentUpdate struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Prompt      string `json:"prompt"`
	Description string `json:"description,omitempty"`
}

// AnalysisCreate starts an analysis run. From and To are calendar dates in
// YYYY-MM-DD form.
type AnalysisCreate struct {
	ProjectID string   `json:"projectId"`
	AgentID   string   `json:"agentId"`
	UserIDs   []string `json:"userIds"`
	From      string   `json:"from"`
	To        string   `json:"to"`
}

// MutationResult is the body every create/update/delete call answers with.
type MutationResult struct {
	ID      string `json:"id,omitempty"`
	Message string `json:"message"`
}

// Page is one page of a paginated list response.
type Page[T any] struct {
	Data  []T `json:"data"`
	Total int `json:"total"`
}

// Identity helpers used by tables and selection.

func UserID(u User) string       { return u.ID }
func ProjectID(p Project) string { return p.ID }
func AgentID(a Agent) string     { return a.ID }
