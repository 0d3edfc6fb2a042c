package cli

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/commitlens/commitlens-cli/internal/api"
	"github.com/commitlens/commitlens-cli/internal/entity"
)

var userSortColumns = []string{"firstName", "lastName", "email", "username", "role", "position", "createdAt"}

func newUsersCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{Use: "users", Short: "List and manage users"}
	cmd.AddCommand(newUsersListCmd(app))
	cmd.AddCommand(newUsersCreateCmd(app))
	cmd.AddCommand(newUsersUpdateCmd(app))
	cmd.AddCommand(newDeleteCmd(app, entity.KindUsers, func(app *App) api.DeleteFunc { return apiClient(app).Users().Delete }))
	return cmd
}

func newUsersListCmd(app *App) *cobra.Command {
	var lf listFlags
	var role, position string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List users",
		RunE: func(cmd *cobra.Command, args []string) error {
			f := entity.UserFilter{
				Role:     entity.Role(strings.TrimSpace(role)),
				Position: entity.Position(strings.TrimSpace(position)),
			}
			return runList(cmd, app, lf, userSortColumns, f, apiClient(app).Users().List)
		},
	}
	lf.register(cmd, userSortColumns)
	cmd.Flags().StringVar(&role, "role", "", "Filter by role (admin|manager|user)")
	cmd.Flags().StringVar(&position, "position", "", "Filter by position (developer|designer|manager|qa|devops)")
	return cmd
}

func userFlags(cmd *cobra.Command, in *entity.UserCreate) {
	cmd.Flags().StringVar(&in.FirstName, "first-name", "", "First name")
	cmd.Flags().StringVar(&in.LastName, "last-name", "", "Last name")
	cmd.Flags().StringVar(&in.Email, "email", "", "Email address")
	cmd.Flags().StringVar(&in.Username, "username", "", "Username (3-16 characters)")
	cmd.Flags().StringVar((*string)(&in.Role), "role", "", "Role (admin|manager|user)")
	cmd.Flags().StringVar((*string)(&in.Position), "position", "", "Position (developer|designer|manager|qa|devops)")
}

func newUsersCreateCmd(app *App) *cobra.Command {
	var in entity.UserCreate
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMutation(cmd, app, func(ctx context.Context) (entity.MutationResult, error) {
				return apiClient(app).Users().Create(ctx, in)
			})
		},
	}
	userFlags(cmd, &in)
	return cmd
}

func newUsersUpdateCmd(app *App) *cobra.Command {
	var in entity.UserUpdate
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Replace a user's fields",
		Long:  "Every field is sent, so pass the full record; omitted required fields fail validation.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMutation(cmd, app, func(ctx context.Context) (entity.MutationResult, error) {
				return apiClient(app).Users().Update(ctx, strings.TrimSpace(args[0]), in)
			})
		},
	}
	userFlags(cmd, &in)
	return cmd
}
