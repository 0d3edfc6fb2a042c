package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/commitlens/commitlens-cli/internal/api"
	"github.com/commitlens/commitlens-cli/internal/datatable"
	"github.com/commitlens/commitlens-cli/internal/entity"
	"github.com/commitlens/commitlens-cli/internal/forms"
)

func userColumns(func(string)) []datatable.Column[entity.User] {
	return []datatable.Column[entity.User]{
		{ID: "firstName", Title: "Name", Width: 20, Value: entity.User.FullName},
		{ID: "email", Title: "Email", Width: 26, Value: func(u entity.User) string { return u.Email }},
		{ID: "username", Title: "Username", Width: 14, Value: func(u entity.User) string { return u.Username }},
		{ID: "role", Title: "Role", Width: 8, Value: func(u entity.User) string { return string(u.Role) }},
		{ID: "position", Title: "Position", Width: 10, Value: func(u entity.User) string { return cmpOrDash(string(u.Position)) }},
		{ID: "createdAt", Title: "Created", Width: 14, Value: func(u entity.User) string { return datatable.RelTime(u.CreatedAt) }},
	}
}

func projectColumns(func(string)) []datatable.Column[entity.Project] {
	return []datatable.Column[entity.Project]{
		{ID: "name", Title: "Name", Width: 22, Value: func(p entity.Project) string { return p.Name }},
		{ID: "url", Title: "Repository", Width: 40, Value: func(p entity.Project) string { return p.URL }},
		{ID: "createdAt", Title: "Created", Width: 14, Value: func(p entity.Project) string { return datatable.RelTime(p.CreatedAt) }},
	}
}

func agentColumns(func(string)) []datatable.Column[entity.Agent] {
	return []datatable.Column[entity.Agent]{
		{ID: "name", Title: "Name", Width: 22, Value: func(a entity.Agent) string { return a.Name }},
		{Title: "Description", Width: 30, Value: func(a entity.Agent) string { return cmpOrDash(a.Description) }},
		{Title: "Prompt", Width: 30, Value: func(a entity.Agent) string { return a.Prompt }},
		{ID: "createdAt", Title: "Created", Width: 14, Value: func(a entity.Agent) string { return datatable.RelTime(a.CreatedAt) }},
	}
}

func cmpOrDash(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return "-"
	}
	return s
}

func detailLines(pairs ...string) string {
	var b strings.Builder
	for i := 0; i+1 < len(pairs); i += 2 {
		fmt.Fprintf(&b, "%s %s\n", mutedStyle.Render(fmt.Sprintf("%-10s", pairs[i])), pairs[i+1])
	}
	return strings.TrimRight(b.String(), "\n")
}

func newUsersScreen(deps crudDeps, c api.Client) *crudScreen[entity.User, entity.UserFilter] {
	svc := c.Users()
	update := forms.NewUserUpdate(deps.ctx, svc.Update)
	return newCrudScreen(deps, crudSpec[entity.User, entity.UserFilter]{
		kind:     entity.KindUsers,
		title:    "Users",
		singular: "user",
		columns:  userColumns,
		id:       entity.UserID,
		label:    entity.User.FullName,
		fetch: func(ctx context.Context, q entity.Query, f entity.UserFilter) (entity.Page[entity.User], error) {
			return svc.List(ctx, q, f)
		},
		del:    svc.Delete,
		create: forms.NewUserCreate(deps.ctx, svc.Create),
		edit: func(u entity.User) formModal {
			update.SetValues(forms.EditUser(u))
			return update
		},
		detail: func(u entity.User, _ int) string {
			return detailLines(
				"id", u.ID,
				"name", u.FullName(),
				"email", u.Email,
				"username", u.Username,
				"role", string(u.Role),
				"position", cmpOrDash(string(u.Position)),
				"created", u.CreatedAt.Local().Format("2006-01-02 15:04")+" ("+datatable.RelTime(u.CreatedAt)+")",
			)
		},
	})
}

func newProjectsScreen(deps crudDeps, c api.Client) *crudScreen[entity.Project, entity.ProjectFilter] {
	svc := c.Projects()
	update := forms.NewProjectUpdate(deps.ctx, svc.Update)
	return newCrudScreen(deps, crudSpec[entity.Project, entity.ProjectFilter]{
		kind:     entity.KindProjects,
		title:    "Projects",
		singular: "project",
		columns:  projectColumns,
		id:       entity.ProjectID,
		label:    func(p entity.Project) string { return p.Name },
		fetch: func(ctx context.Context, q entity.Query, f entity.ProjectFilter) (entity.Page[entity.Project], error) {
			return svc.List(ctx, q, f)
		},
		del:    svc.Delete,
		create: forms.NewProjectCreate(deps.ctx, c.CheckProject, svc.Create),
		edit: func(p entity.Project) formModal {
			update.SetValues(forms.EditProject(p))
			return update
		},
		detail: func(p entity.Project, _ int) string {
			return detailLines(
				"id", p.ID,
				"name", p.Name,
				"url", p.URL,
				"created", p.CreatedAt.Local().Format("2006-01-02 15:04")+" ("+datatable.RelTime(p.CreatedAt)+")",
			)
		},
	})
}

func newAgentsScreen(deps crudDeps, c api.Client) *crudScreen[entity.Agent, entity.AgentFilter] {
	svc := c.Agents()
	update := forms.NewAgentUpdate(deps.ctx, svc.Update)
	return newCrudScreen(deps, crudSpec[entity.Agent, entity.AgentFilter]{
		kind:     entity.KindAgents,
		title:    "Agents",
		singular: "agent",
		columns:  agentColumns,
		id:       entity.AgentID,
		label:    func(a entity.Agent) string { return a.Name },
		fetch: func(ctx context.Context, q entity.Query, f entity.AgentFilter) (entity.Page[entity.Agent], error) {
			return svc.List(ctx, q, f)
		},
		del:    svc.Delete,
		create: forms.NewAgentCreate(deps.ctx, svc.Create),
		edit: func(a entity.Agent) formModal {
			update.SetValues(forms.EditAgent(a))
			return update
		},
		detail: func(a entity.Agent, width int) string {
			head := detailLines(
				"id", a.ID,
				"name", a.Name,
				"about", cmpOrDash(a.Description),
				"created", a.CreatedAt.Local().Format("2006-01-02 15:04")+" ("+datatable.RelTime(a.CreatedAt)+")",
			)
			return head + "\n\n" + renderMarkdown(a.Prompt, width)
		},
	})
}

// renderMarkdown renders an agent prompt for the terminal, falling back to
// the raw text.
func renderMarkdown(md string, width int) string {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(width))
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n")
}
