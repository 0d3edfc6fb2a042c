package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/commitlens/commitlens-cli/internal/configstore"
	"github.com/commitlens/commitlens-cli/internal/format"
	"github.com/commitlens/commitlens-cli/internal/logging"
)

type App struct {
	APIURL     string
	Token      string
	Format     string
	PrettyJSON bool
	ConfigPath string
	LogLevel   string

	// TokenExplicit is set when --token or COMMITLENS_TOKEN was given, so the
	// auth store is not consulted.
	TokenExplicit bool

	cfg      *configstore.Store
	log      *slog.Logger
	closeLog func() error
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "commitlens",
		Short:        "Manage commitlens users, projects, agents and analyses",
		Long:         "Without a subcommand commitlens opens the interactive console.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.setup(cmd, cmd == cmd.Root())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return app.close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => interactive TUI.
			if len(args) == 0 {
				return runTUI(cmd, app)
			}
			return cmd.Help()
		},
	}

	defaultConfig, _ := configstore.DefaultPath()
	cmd.PersistentFlags().StringVar(&app.APIURL, "api", "", "API base URL (default from config or COMMITLENS_API_URL)")
	cmd.PersistentFlags().StringVar(&app.Token, "token", envOr("COMMITLENS_TOKEN", ""), "API token (or set COMMITLENS_TOKEN)")
	cmd.PersistentFlags().StringVar(&app.Format, "format", envOr("COMMITLENS_FORMAT", format.JSON), "Output format (json|edn)")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print output")
	cmd.PersistentFlags().StringVar(&app.ConfigPath, "config", envOr("COMMITLENS_CONFIG", defaultConfig), "Path to config.yaml")
	cmd.PersistentFlags().StringVar(&app.LogLevel, "log-level", "", "Log level (debug|info|warn|error)")

	cmd.AddCommand(newUsersCmd(app))
	cmd.AddCommand(newProjectsCmd(app))
	cmd.AddCommand(newAgentsCmd(app))
	cmd.AddCommand(newAnalysisCmd(app))
	cmd.AddCommand(newAuthCmd(app))
	cmd.AddCommand(newAPICmd(app))
	cmd.AddCommand(newVersionCmd(app))
	cmd.AddCommand(newDevCmd(app))

	return cmd
}

// setup resolves the config (flag > env > file > defaults) and the logger
// before any command runs.
func (app *App) setup(cmd *cobra.Command, isTUI bool) error {
	switch strings.ToLower(strings.TrimSpace(app.Format)) {
	case format.JSON, format.EDN:
		app.Format = strings.ToLower(strings.TrimSpace(app.Format))
	default:
		return fmt.Errorf("unsupported --format %q (expected json or edn)", app.Format)
	}

	cfg := configstore.Defaults()
	if p := strings.TrimSpace(app.ConfigPath); p != "" {
		loaded, err := configstore.LoadOrDefault(p)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	if err := cfg.ApplyEnv(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if v := strings.TrimSpace(app.APIURL); v != "" {
		cfg.APIURL = strings.TrimRight(v, "/")
	}
	if v := strings.TrimSpace(app.LogLevel); v != "" {
		cfg.Log.Level = strings.ToLower(v)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	app.cfg = cfg
	app.APIURL = cfg.APIURL
	app.TokenExplicit = strings.TrimSpace(app.Token) != ""

	log, closeLog, err := logging.Setup(cfg.Log.File, cfg.Log.Level, isTUI, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	app.log, app.closeLog = log, closeLog
	app.log.Debug("config resolved", "api", cfg.APIURL, "config", app.ConfigPath, "format", app.Format)
	return nil
}

func (app *App) close() error {
	if app.closeLog == nil {
		return nil
	}
	err := app.closeLog()
	app.closeLog = nil
	return err
}

// logger is usable before setup ran, e.g. from unit tests of a single
// command.
func (app *App) logger() *slog.Logger {
	if app.log == nil {
		return slog.Default()
	}
	return app.log
}

func (app *App) config() *configstore.Store {
	if app.cfg == nil {
		app.cfg = configstore.Defaults()
	}
	return app.cfg
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	return format.Write(cmd.OutOrStdout(), v, app.Format, app.PrettyJSON)
}
