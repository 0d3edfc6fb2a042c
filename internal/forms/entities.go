package forms

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/dustin/go-humanize"

	"github.com/commitlens/commitlens-cli/internal/entity"
)

type (
	CreateUserFunc    func(ctx context.Context, in entity.UserCreate) (entity.MutationResult, error)
	UpdateUserFunc    func(ctx context.Context, id string, in entity.UserUpdate) (entity.MutationResult, error)
	CreateProjectFunc func(ctx context.Context, in entity.ProjectCreate) (entity.MutationResult, error)
	UpdateProjectFunc func(ctx context.Context, id string, in entity.ProjectUpdate) (entity.MutationResult, error)
	CheckProjectFunc  func(ctx context.Context, url string) (entity.Repository, error)
	CreateAgentFunc   func(ctx context.Context, in entity.AgentCreate) (entity.MutationResult, error)
	UpdateAgentFunc   func(ctx context.Context, id string, in entity.AgentUpdate) (entity.MutationResult, error)
	StartAnalysisFunc func(ctx context.Context, in entity.AnalysisCreate) (entity.MutationResult, error)
)

// UserEdit and ProjectEdit carry the id of the row being edited next to the
// update payload.
type UserEdit struct {
	ID string
	entity.UserUpdate
}

type ProjectEdit struct {
	ID string
	entity.ProjectUpdate
}

func input(title string, v *string, validate func(string) error) *huh.Input {
	in := huh.NewInput().Title(title).Value(v)
	if validate != nil {
		in = in.Validate(validate)
	}
	return in
}

func minLen(n int, msg string) func(string) error {
	return func(s string) error { return entity.CheckMinLen(s, n, msg) }
}

func optionalURL(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return entity.CheckHTTPURL(s)
}

func userFields(v *entity.UserCreate) []huh.Field {
	roles := make([]huh.Option[entity.Role], 0, len(entity.Roles))
	for _, r := range entity.Roles {
		roles = append(roles, huh.NewOption(string(r), r))
	}
	positions := []huh.Option[entity.Position]{huh.NewOption("none", entity.Position(""))}
	for _, p := range entity.Positions {
		positions = append(positions, huh.NewOption(string(p), p))
	}
	return []huh.Field{
		input("First name", &v.FirstName, minLen(3, "First name is required")),
		input("Last name", &v.LastName, minLen(3, "Last name is required")),
		input("Email", &v.Email, entity.CheckEmail),
		input("Username", &v.Username, func(s string) error {
			if err := entity.CheckMinLen(s, 3, "Username is required"); err != nil {
				return err
			}
			return entity.CheckMaxLen(s, 16, "Username must be 16 characters or less")
		}).CharLimit(16),
		huh.NewSelect[entity.Role]().Title("Role").Options(roles...).Value(&v.Role),
		huh.NewSelect[entity.Position]().Title("Position").Options(positions...).Value(&v.Position),
	}
}

func NewUserCreate(ctx context.Context, submit CreateUserFunc) *Controller[entity.UserCreate] {
	return New(ctx, Spec[entity.UserCreate]{
		ID:       "user-create",
		Title:    "Add user",
		Defaults: func() entity.UserCreate { return entity.UserCreate{Role: entity.RoleUser} },
		Fields:   userFields,
		Validate: entity.UserCreate.Validate,
		Submit:   submit,
	})
}

func NewUserUpdate(ctx context.Context, submit UpdateUserFunc) *Controller[UserEdit] {
	return New(ctx, Spec[UserEdit]{
		ID:       "user-update",
		Title:    "Edit user",
		Fields:   func(v *UserEdit) []huh.Field { return userFields(&v.UserUpdate) },
		Validate: func(v UserEdit) error { return v.UserUpdate.Validate() },
		Submit: func(ctx context.Context, v UserEdit) (entity.MutationResult, error) {
			return submit(ctx, v.ID, v.UserUpdate)
		},
	})
}

// EditUser converts a row into the values of the edit form.
func EditUser(u entity.User) UserEdit {
	return UserEdit{ID: u.ID, UserUpdate: entity.UserUpdate{
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Username:  u.Username,
		Role:      u.Role,
		Position:  u.Position,
	}}
}

func NewProjectUpdate(ctx context.Context, submit UpdateProjectFunc) *Controller[ProjectEdit] {
	return New(ctx, Spec[ProjectEdit]{
		ID:    "project-update",
		Title: "Edit project",
		Fields: func(v *ProjectEdit) []huh.Field {
			return []huh.Field{
				input("Name", &v.Name, nil),
				input("Repository URL", &v.URL, optionalURL),
			}
		},
		Validate: func(v ProjectEdit) error { return v.ProjectUpdate.Validate() },
		Submit: func(ctx context.Context, v ProjectEdit) (entity.MutationResult, error) {
			return submit(ctx, v.ID, v.ProjectUpdate)
		},
	})
}

func EditProject(p entity.Project) ProjectEdit {
	return ProjectEdit{ID: p.ID, ProjectUpdate: entity.ProjectUpdate{Name: p.Name, URL: p.URL}}
}

func agentFields(name, description, prompt *string, promptMin int) []huh.Field {
	return []huh.Field{
		input("Name", name, minLen(2, "Name must be at least 2 characters")),
		input("Description", description, nil),
		huh.NewText().Title("Prompt").Lines(6).Value(prompt).
			Validate(minLen(promptMin, fmt.Sprintf("Prompt must be at least %d characters", promptMin))),
	}
}

func NewAgentCreate(ctx context.Context, submit CreateAgentFunc) *Controller[entity.AgentCreate] {
	return New(ctx, Spec[entity.AgentCreate]{
		ID:    "agent-create",
		Title: "Add agent",
		Fields: func(v *entity.AgentCreate) []huh.Field {
			return agentFields(&v.Name, &v.Description, &v.Prompt, 2)
		},
		Validate: entity.AgentCreate.Validate,
		Submit:   submit,
	})
}

func NewAgentUpdate(ctx context.Context, submit UpdateAgentFunc) *Controller[entity.AgentUpdate] {
	return New(ctx, Spec[entity.AgentUpdate]{
		ID:    "agent-update",
		Title: "Edit agent",
		Fields: func(v *entity.AgentUpdate) []huh.Field {
			return agentFields(&v.Name, &v.Description, &v.Prompt, 30)
		},
		Validate: entity.AgentUpdate.Validate,
		Submit: func(ctx context.Context, v entity.AgentUpdate) (entity.MutationResult, error) {
			return submit(ctx, v.ID, v)
		},
	})
}

func EditAgent(a entity.Agent) entity.AgentUpdate {
	return entity.AgentUpdate{ID: a.ID, Name: a.Name, Prompt: a.Prompt, Description: a.Description}
}

// ProjectDraft is the create-project form. A project can only be created for
// the URL that was last checked successfully.
type ProjectDraft struct {
	entity.ProjectCreate
	Repo       *entity.Repository
	CheckedURL string
}

// Checked reports whether the current URL is the one that was checked.
func (d ProjectDraft) Checked() bool {
	return d.Repo != nil && d.CheckedURL == strings.TrimSpace(d.URL)
}

func (d ProjectDraft) Validate() error {
	if err := d.ProjectCreate.Validate(); err != nil {
		return err
	}
	if !d.Checked() {
		return entity.FieldErrors{"url": "Check the repository before creating the project"}
	}
	return nil
}

// CheckedMsg is the outcome of a repository check.
type CheckedMsg struct {
	FormID string
	Seq    uint64
	URL    string
	Repo   entity.Repository
	Err    error
}

type ProjectCreate struct {
	*Controller[ProjectDraft]
	check    CheckProjectFunc
	checking bool
	checkSeq uint64
}

func NewProjectCreate(ctx context.Context, check CheckProjectFunc, submit CreateProjectFunc) *ProjectCreate {
	p := &ProjectCreate{check: check}
	p.Controller = New(ctx, Spec[ProjectDraft]{
		ID:    "project-create",
		Title: "Add project",
		Fields: func(v *ProjectDraft) []huh.Field {
			return []huh.Field{
				input("Repository URL", &v.URL, entity.CheckHTTPURL),
				input("Name", &v.Name, nil).Description("optional, defaults to the repository name"),
			}
		},
		Validate: ProjectDraft.Validate,
		Submit: func(ctx context.Context, v ProjectDraft) (entity.MutationResult, error) {
			return submit(ctx, v.ProjectCreate)
		},
		Intercept: func(v ProjectDraft) tea.Cmd {
			if v.Checked() {
				return nil
			}
			return p.Check()
		},
	})
	return p
}

func (p *ProjectCreate) Checking() bool { return p.checking }

// Check looks the current URL up. The result arrives as a CheckedMsg.
func (p *ProjectCreate) Check() tea.Cmd {
	url := strings.TrimSpace(p.values.URL)
	if err := entity.CheckHTTPURL(url); err != nil {
		p.err = entity.FieldErrors{"url": err.Error()}
		return nil
	}
	if p.check == nil {
		p.err = errors.New("repository check is not available")
		return nil
	}
	p.err = nil
	p.checking = true
	p.checkSeq++
	seq, id, ctx, check := p.checkSeq, p.spec.ID, p.ctx, p.check
	return func() tea.Msg {
		repo, err := check(ctx, url)
		return CheckedMsg{FormID: id, Seq: seq, URL: url, Repo: repo, Err: err}
	}
}

// ApplyCheck records the check result. A stale result (the URL changed or a
// newer check was issued) is ignored.
func (p *ProjectCreate) ApplyCheck(msg CheckedMsg) {
	if msg.FormID != p.spec.ID || msg.Seq != p.checkSeq {
		return
	}
	p.checking = false
	if msg.Err != nil {
		p.err = fmt.Errorf("repository check failed: %w", msg.Err)
		p.Edit(func(v *ProjectDraft) { v.Repo, v.CheckedURL = nil, "" })
		return
	}
	repo := msg.Repo
	p.Edit(func(v *ProjectDraft) {
		v.Repo, v.CheckedURL = &repo, msg.URL
		if strings.TrimSpace(v.Name) == "" {
			v.Name = repo.Name
		}
	})
}

func (p *ProjectCreate) View() string {
	var b strings.Builder
	b.WriteString(p.Controller.View())
	if p.checking {
		b.WriteString("\nChecking repository...")
	}
	if p.values.Checked() {
		b.WriteString("\n")
		b.WriteString(RepositorySummary(*p.values.Repo))
	}
	return b.String()
}

// RepositorySummary is the one-line description shown after a check.
func RepositorySummary(r entity.Repository) string {
	parts := []string{r.Owner.Login + "/" + r.Name}
	if r.Language != "" {
		parts = append(parts, r.Language)
	}
	parts = append(parts,
		"★ "+humanize.Comma(int64(r.StargazersCount)),
		"forks "+humanize.Comma(int64(r.ForksCount)),
	)
	if r.Private {
		parts = append(parts, "private")
	}
	return strings.Join(parts, " · ")
}

// AnalysisOptions are the choices offered by the analysis form.
type AnalysisOptions struct {
	Projects []entity.Project
	Agents   []entity.Agent
	Users    []entity.User
}

type Analysis struct {
	*Controller[entity.AnalysisCreate]
	opts *AnalysisOptions
}

// DefaultAnalysisWindow is the date range the analysis form starts with.
const DefaultAnalysisWindow = 30 * 24 * time.Hour

func NewAnalysis(ctx context.Context, submit StartAnalysisFunc) *Analysis {
	opts := &AnalysisOptions{}
	c := New(ctx, Spec[entity.AnalysisCreate]{
		ID:    "analysis",
		Title: "Start analysis",
		Defaults: func() entity.AnalysisCreate {
			now := time.Now()
			return entity.AnalysisCreate{
				From: now.Add(-DefaultAnalysisWindow).Format(entity.DateLayout),
				To:   now.Format(entity.DateLayout),
			}
		},
		Fields:   func(v *entity.AnalysisCreate) []huh.Field { return analysisFields(v, opts) },
		Validate: entity.AnalysisCreate.Validate,
		Submit:   submit,
	})
	return &Analysis{Controller: c, opts: opts}
}

// SetOptions replaces the selectable projects, agents and users.
func (a *Analysis) SetOptions(o AnalysisOptions) {
	*a.opts = o
	a.Edit(func(*entity.AnalysisCreate) {})
}

func (a *Analysis) Options() AnalysisOptions { return *a.opts }

func analysisFields(v *entity.AnalysisCreate, o *AnalysisOptions) []huh.Field {
	projects := make([]huh.Option[string], 0, len(o.Projects))
	for _, p := range o.Projects {
		projects = append(projects, huh.NewOption(p.Name, p.ID))
	}
	agents := make([]huh.Option[string], 0, len(o.Agents))
	for _, a := range o.Agents {
		agents = append(agents, huh.NewOption(a.Name, a.ID))
	}
	users := make([]huh.Option[string], 0, len(o.Users))
	for _, u := range o.Users {
		users = append(users, huh.NewOption(u.FullName()+" ("+u.Username+")", u.ID))
	}
	return []huh.Field{
		huh.NewSelect[string]().Title("Project").Options(projects...).Value(&v.ProjectID).Height(6),
		huh.NewSelect[string]().Title("Agent").Options(agents...).Value(&v.AgentID).Height(6),
		huh.NewMultiSelect[string]().Title("Users").Options(users...).Value(&v.UserIDs).Height(8).Filterable(true).
			Validate(func(ids []string) error {
				if len(ids) == 0 {
					return errors.New("Select at least one user")
				}
				return nil
			}),
		input("From (YYYY-MM-DD)", &v.From, entity.CheckDate),
		input("To (YYYY-MM-DD)", &v.To, entity.CheckDate),
	}
}
