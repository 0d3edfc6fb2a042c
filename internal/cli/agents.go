package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/commitlens/commitlens-cli/internal/api"
	"github.com/commitlens/commitlens-cli/internal/entity"
)

var agentSortColumns = []string{"name", "createdAt"}

func newAgentsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{Use: "agents", Short: "List and manage AI agents"}
	cmd.AddCommand(newAgentsListCmd(app))
	cmd.AddCommand(newAgentsCreateCmd(app))
	cmd.AddCommand(newAgentsUpdateCmd(app))
	cmd.AddCommand(newDeleteCmd(app, entity.KindAgents, func(app *App) api.DeleteFunc { return apiClient(app).Agents().Delete }))
	return cmd
}

func newAgentsListCmd(app *App) *cobra.Command {
	var lf listFlags
	var f entity.AgentFilter
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List agents",
		RunE: func(cmd *cobra.Command, args []string) error {
			f.FromDate, f.ToDate = strings.TrimSpace(f.FromDate), strings.TrimSpace(f.ToDate)
			return runList(cmd, app, lf, agentSortColumns, f, apiClient(app).Agents().List)
		},
	}
	lf.register(cmd, agentSortColumns)
	cmd.Flags().StringVar(&f.FromDate, "from-date", "", "Created on or after (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.ToDate, "to-date", "", "Created on or before (YYYY-MM-DD)")
	return cmd
}

// agentFields are the flags create and update share. --prompt-file wins over
// --prompt; "-" reads the prompt from stdin.
type agentFields struct {
	name        string
	prompt      string
	promptFile  string
	description string
}

func (a *agentFields) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&a.name, "name", "", "Agent name")
	cmd.Flags().StringVar(&a.prompt, "prompt", "", "Prompt text")
	cmd.Flags().StringVar(&a.promptFile, "prompt-file", "", "Read the prompt from a file (- for stdin)")
	cmd.Flags().StringVar(&a.description, "description", "", "Short description")
}

func (a *agentFields) resolvePrompt(cmd *cobra.Command) (string, error) {
	switch strings.TrimSpace(a.promptFile) {
	case "":
		return a.prompt, nil
	case "-":
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read prompt from stdin: %w", err)
		}
		return string(b), nil
	default:
		b, err := os.ReadFile(a.promptFile)
		if err != nil {
			return "", fmt.Errorf("read prompt: %w", err)
		}
		return string(b), nil
	}
}

func newAgentsCreateCmd(app *App) *cobra.Command {
	var fields agentFields
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an agent",
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt, err := fields.resolvePrompt(cmd)
			if err != nil {
				return writeFailure(cmd, app, "invalid_input", err, "", nil)
			}
			in := entity.AgentCreate{
				Name:        strings.TrimSpace(fields.name),
				Prompt:      strings.TrimSpace(prompt),
				Description: strings.TrimSpace(fields.description),
			}
			return runMutation(cmd, app, func(ctx context.Context) (entity.MutationResult, error) {
				return apiClient(app).Agents().Create(ctx, in)
			})
		},
	}
	fields.register(cmd)
	return cmd
}

func newAgentsUpdateCmd(app *App) *cobra.Command {
	var fields agentFields
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Replace an agent's name, prompt and description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt, err := fields.resolvePrompt(cmd)
			if err != nil {
				return writeFailure(cmd, app, "invalid_input", err, "", nil)
			}
			id := strings.TrimSpace(args[0])
			in := entity.AgentUpdate{
				ID:          id,
				Name:        strings.TrimSpace(fields.name),
				Prompt:      strings.TrimSpace(prompt),
				Description: strings.TrimSpace(fields.description),
			}
			return runMutation(cmd, app, func(ctx context.Context) (entity.MutationResult, error) {
				return apiClient(app).Agents().Update(ctx, id, in)
			})
		},
	}
	fields.register(cmd)
	return cmd
}
