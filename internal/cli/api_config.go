package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/commitlens/commitlens-cli/internal/configstore"
)

func newAPICmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "api",
		Short: "Configure the API base URL",
	}
	cmd.AddCommand(newAPIShowCmd(app))
	cmd.AddCommand(newAPIUseCmd(app))
	return cmd
}

func newAPIShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the resolved API base URL and config",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := strings.TrimSpace(app.ConfigPath)
			_, statErr := os.Stat(path)
			meta := map[string]any{
				"storePath": path,
				"stored":    path != "" && statErr == nil,
			}
			cfg := app.config()
			return writeData(cmd, app, meta, map[string]any{
				"apiUrl":       app.APIURL,
				"pageSize":     cfg.PageSize,
				"pollInterval": cfg.PollInterval.String(),
				"exportDir":    cfg.ExportDir,
				"logLevel":     cfg.Log.Level,
			})
		},
	}
}

func newAPIUseCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "use <local|prod|url>",
		Short: "Switch the API base URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(args[0])
			if target == "" {
				return writeFailure(cmd, app, "invalid_input", errors.New("missing target"), "", nil)
			}

			var apiURL string
			switch strings.ToLower(target) {
			case "local":
				apiURL = configstore.DefaultLocalAPIURL
			case "prod", "production":
				apiURL = configstore.DefaultProdAPIURL
			default:
				apiURL = target
			}
			apiURL = strings.TrimRight(apiURL, "/")
			if !strings.HasPrefix(apiURL, "http://") && !strings.HasPrefix(apiURL, "https://") {
				return writeFailure(cmd, app, "invalid_input", fmt.Errorf("invalid api url (expected http/https): %s", apiURL), "", nil)
			}

			path := strings.TrimSpace(app.ConfigPath)
			if path == "" {
				return writeErr(cmd, app, errors.New("cannot determine config path"))
			}
			// Other settings in the file are kept.
			st, err := configstore.LoadOrDefault(path)
			if err != nil {
				return writeErr(cmd, app, err)
			}
			st.APIURL = apiURL
			if err := configstore.SaveAtomic(path, st); err != nil {
				return writeErr(cmd, app, err)
			}
			app.logger().Info("api url saved", "api", apiURL, "config", path)

			meta := map[string]any{
				"storePath": path,
				"stored":    true,
				"hint":      "You can still override per-run via --api or COMMITLENS_API_URL.",
			}
			if envURL := strings.TrimRight(strings.TrimSpace(os.Getenv("COMMITLENS_API_URL")), "/"); envURL != "" && envURL != apiURL {
				meta["warning"] = "COMMITLENS_API_URL is set and will override this config in your current shell."
				meta["unsetEnv"] = "unset COMMITLENS_API_URL"
			}
			return writeData(cmd, app, meta, map[string]any{"apiUrl": apiURL})
		},
	}
	return cmd
}
