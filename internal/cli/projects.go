package cli

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/commitlens/commitlens-cli/internal/api"
	"github.com/commitlens/commitlens-cli/internal/browseropen"
	"github.com/commitlens/commitlens-cli/internal/entity"
)

var projectSortColumns = []string{"name", "url", "createdAt"}

// openURL is swapped out by tests.
var openURL = browseropen.Open

func newProjectsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{Use: "projects", Short: "List and manage projects"}
	cmd.AddCommand(newProjectsListCmd(app))
	cmd.AddCommand(newProjectsCheckCmd(app))
	cmd.AddCommand(newProjectsCreateCmd(app))
	cmd.AddCommand(newProjectsUpdateCmd(app))
	cmd.AddCommand(newDeleteCmd(app, entity.KindProjects, func(app *App) api.DeleteFunc { return apiClient(app).Projects().Delete }))
	cmd.AddCommand(newProjectsOpenCmd(app))
	return cmd
}

func newProjectsListCmd(app *App) *cobra.Command {
	var lf listFlags
	var f entity.ProjectFilter
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			f.Name, f.URL = strings.TrimSpace(f.Name), strings.TrimSpace(f.URL)
			return runList(cmd, app, lf, projectSortColumns, f, apiClient(app).Projects().List)
		},
	}
	lf.register(cmd, projectSortColumns)
	cmd.Flags().StringVar(&f.Name, "name", "", "Filter by name")
	cmd.Flags().StringVar(&f.URL, "url", "", "Filter by repository URL")
	return cmd
}

func newProjectsCheckCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "check <url>",
		Short: "Resolve a repository URL before creating a project for it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := requestContext(cmd)
			defer cancel()
			repo, err := apiClient(app).CheckProject(ctx, args[0])
			if err != nil {
				return writeErr(cmd, app, err)
			}
			return writeData(cmd, app, nil, map[string]any{"repository": repo})
		},
	}
}

func newProjectsCreateCmd(app *App) *cobra.Command {
	var in entity.ProjectCreate
	var skipCheck bool
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a project from a repository URL",
		Long: strings.TrimSpace(`
The URL is checked with the backend first and the project name defaults to the
repository name it reports. --skip-check creates the project without asking.
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.URL, in.Name = strings.TrimSpace(in.URL), strings.TrimSpace(in.Name)
			client := apiClient(app)
			ctx, cancel := requestContext(cmd)
			defer cancel()

			var repo *entity.Repository
			if !skipCheck {
				r, err := client.CheckProject(ctx, in.URL)
				if err != nil {
					return writeErr(cmd, app, err)
				}
				repo = &r
				if in.Name == "" {
					in.Name = r.Name
				}
			}
			res, err := client.Projects().Create(ctx, in)
			if err != nil {
				return writeErr(cmd, app, err)
			}
			data := map[string]any{"id": res.ID, "message": res.Message}
			if repo != nil {
				data["repository"] = repo
			}
			return writeData(cmd, app, nil, data)
		},
	}
	cmd.Flags().StringVar(&in.URL, "url", "", "Repository URL (required)")
	cmd.Flags().StringVar(&in.Name, "name", "", "Project name (default: repository name)")
	cmd.Flags().BoolVar(&skipCheck, "skip-check", false, "Do not check the URL with the backend first")
	return cmd
}

func newProjectsUpdateCmd(app *App) *cobra.Command {
	var in entity.ProjectUpdate
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Rename a project or change its URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMutation(cmd, app, func(ctx context.Context) (entity.MutationResult, error) {
				return apiClient(app).Projects().Update(ctx, strings.TrimSpace(args[0]), in)
			})
		},
	}
	cmd.Flags().StringVar(&in.Name, "name", "", "New name")
	cmd.Flags().StringVar(&in.URL, "url", "", "New repository URL")
	return cmd
}

func newProjectsOpenCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "open <url|name>",
		Short: "Open a project's repository in the browser",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(args[0])
			if entity.CheckHTTPURL(target) != nil {
				ctx, cancel := requestContext(cmd)
				defer cancel()
				u, err := projectURLByName(ctx, apiClient(app), target)
				if err != nil {
					return writeErr(cmd, app, err)
				}
				target = u
			}
			if err := openURL(target); err != nil {
				return writeFailure(cmd, app, "browser_failed", err, "Open the URL manually.", map[string]any{"url": target})
			}
			app.logger().Info("opened project", "url", target)
			return writeData(cmd, app, nil, map[string]any{"url": target})
		},
	}
}

// projectURLByName searches for name and requires exactly one project with
// that name (case-insensitive).
func projectURLByName(ctx context.Context, c api.Client, name string) (string, error) {
	page, err := c.Projects().List(ctx, entity.Query{Page: 1, Limit: 50, Search: name}, entity.ProjectFilter{})
	if err != nil {
		return "", err
	}
	var found []entity.Project
	for _, p := range page.Data {
		if strings.EqualFold(p.Name, name) {
			found = append(found, p)
		}
	}
	switch len(found) {
	case 0:
		return "", &api.Error{Status: http.StatusNotFound, Message: fmt.Sprintf("no project named %q", name)}
	case 1:
		return found[0].URL, nil
	}
	return "", fmt.Errorf("%d projects are named %q; pass the URL instead", len(found), name)
}
