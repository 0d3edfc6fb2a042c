package cli

import (
	"errors"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/commitlens/commitlens-cli/internal/tui"
)

func runTUI(cmd *cobra.Command, app *App) error {
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return writeFailure(cmd, app, "not_a_terminal", errors.New("the console needs a terminal"), "Run a subcommand, e.g. `commitlens users list`.", nil)
	}
	cfg := app.config()
	app.logger().Info("console starting", "api", app.APIURL)
	return tui.Run(tui.Config{
		Client:       apiClient(app),
		PageSize:     cfg.PageSize,
		PollInterval: cfg.PollInterval,
		ExportDir:    cfg.ExportDir,
		Logger:       app.logger(),
	})
}
