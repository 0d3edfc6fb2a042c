package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/commitlens/commitlens-cli/internal/analysis"
	"github.com/commitlens/commitlens-cli/internal/api"
	"github.com/commitlens/commitlens-cli/internal/entity"
)

const defaultWaitTimeout = 10 * time.Minute

func newAnalysisCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{Use: "analysis", Short: "Start and follow analysis runs"}
	cmd.AddCommand(newAnalysisStartCmd(app))
	cmd.AddCommand(newAnalysisWaitCmd(app))
	cmd.AddCommand(newAnalysisStatusCmd(app))
	return cmd
}

// waitFlags control how long and how often a run is polled.
type waitFlags struct {
	poll    time.Duration
	timeout time.Duration
}

func (w *waitFlags) register(cmd *cobra.Command) {
	cmd.Flags().DurationVar(&w.poll, "poll", 0, "Polling interval (default from config)")
	cmd.Flags().DurationVar(&w.timeout, "timeout", defaultWaitTimeout, "Give up waiting after this long")
}

func newAnalysisStartCmd(app *App) *cobra.Command {
	var in entity.AnalysisCreate
	var wait bool
	var wf waitFlags
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start an analysis run",
		Example: strings.TrimSpace(`
commitlens analysis start --project <id> --agent <id> --user <id> --user <id> \
  --from 2024-01-01 --to 2024-03-31 --wait
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.ProjectID = strings.TrimSpace(in.ProjectID)
			in.AgentID = strings.TrimSpace(in.AgentID)
			in.UserIDs = trimmedArgs(in.UserIDs)
			in.From, in.To = strings.TrimSpace(in.From), strings.TrimSpace(in.To)

			client := apiClient(app)
			ctx, cancel := requestContext(cmd)
			res, err := client.StartAnalysis(ctx, in)
			cancel()
			if err != nil {
				return writeErr(cmd, app, err)
			}
			app.logger().Info("analysis started", "run", res.ID, "project", in.ProjectID, "agent", in.AgentID, "users", len(in.UserIDs))
			if !wait {
				return writeData(cmd, app, nil, map[string]any{"id": res.ID, "message": res.Message})
			}
			return waitForRun(cmd, app, client, res.ID, wf)
		},
	}
	cmd.Flags().StringVar(&in.ProjectID, "project", "", "Project id (required)")
	cmd.Flags().StringVar(&in.AgentID, "agent", "", "Agent id (required)")
	cmd.Flags().StringSliceVar(&in.UserIDs, "user", nil, "User id to analyze (repeatable)")
	cmd.Flags().StringVar(&in.From, "from", "", "Start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&in.To, "to", "", "End date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&wait, "wait", false, "Follow the run until it finishes")
	wf.register(cmd)
	return cmd
}

func newAnalysisWaitCmd(app *App) *cobra.Command {
	var wf waitFlags
	cmd := &cobra.Command{
		Use:   "wait <id>",
		Short: "Follow a run until it finishes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return waitForRun(cmd, app, apiClient(app), strings.TrimSpace(args[0]), wf)
		},
	}
	wf.register(cmd)
	return cmd
}

func newAnalysisStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status <id>",
		Short: "Show the current status of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			ctx, cancel := requestContext(cmd)
			defer cancel()
			raw, err := apiClient(app).AnalysisStatus(ctx, id)
			if err != nil {
				return writeErr(cmd, app, err)
			}
			s, err := analysis.ParseStatus(raw)
			if err != nil {
				return writeErr(cmd, app, err)
			}
			return writeData(cmd, app, nil, runData(id, s, analysis.DeriveSteps(s)))
		},
	}
}

func waitForRun(cmd *cobra.Command, app *App, client api.Client, id string, wf waitFlags) error {
	interval := wf.poll
	if interval <= 0 {
		interval = app.config().PollInterval
	}
	timeout := wf.timeout
	if timeout <= 0 {
		timeout = defaultWaitTimeout
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	var tr analysis.Tracker
	log := app.logger().With("run", id)
	status, err := analysis.Wait(ctx, client.AnalysisStatus, id, interval, func(s analysis.Status) {
		tr.Observe(s)
		log.Info("analysis status", "status", s)
	})
	if err != nil {
		return writeErr(cmd, app, fmt.Errorf("wait for analysis %s (last status %q): %w", id, status, err))
	}
	data := runData(id, status, tr.Steps())
	if step, failed := tr.FailedAt(); failed {
		details := map[string]any{"id": id, "failedStep": step.Title, "failedStatus": string(step.Key)}
		return writeFailure(cmd, app, "analysis_failed", fmt.Errorf("analysis failed during %s", step.Title), "", details)
	}
	return writeData(cmd, app, nil, data)
}

func runData(id string, s analysis.Status, steps []analysis.Step) map[string]any {
	out := make([]map[string]any, len(steps))
	for i, st := range steps {
		out[i] = map[string]any{
			"key":         string(st.Key),
			"title":       st.Title,
			"description": st.Description,
			"state":       string(st.State),
		}
	}
	return map[string]any{"id": id, "status": string(s), "steps": out}
}
