package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/commitlens/commitlens-cli/internal/mock"
	"github.com/commitlens/commitlens-cli/internal/state"
)

func newDevCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{Use: "dev", Short: "Local mock backend"}
	cmd.AddCommand(newDevServeMockCmd(app))
	cmd.AddCommand(newDevSeedCmd(app))
	return cmd
}

func mockStatePath(path string) (string, error) {
	if p := strings.TrimSpace(path); p != "" {
		return p, nil
	}
	return state.DefaultPath()
}

func newDevSeedCmd(app *App) *cobra.Command {
	var statePath string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Reset mock state to seeded defaults",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := mockStatePath(statePath)
			if err != nil {
				return writeErr(cmd, app, err)
			}
			st := state.SeedDefault()
			if err := (mock.Store{Path: path}).Save(st); err != nil {
				return writeErr(cmd, app, err)
			}
			return writeData(cmd, app, map[string]any{"statePath": path}, map[string]any{
				"users":    len(st.Users),
				"projects": len(st.Projects),
				"agents":   len(st.Agents),
			})
		},
	}
	cmd.Flags().StringVar(&statePath, "state", "", "Mock state file (default: user config dir)")
	return cmd
}

func newDevServeMockCmd(app *App) *cobra.Command {
	var (
		addr      string
		statePath string
		token     string
		latency   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "serve-mock",
		Short: "Serve the mock backend over HTTP",
		Long: strings.TrimSpace(`
Serves the same REST surface as the backend from a local state file, so the
console and every command can be tried offline:

  commitlens dev serve-mock --addr 127.0.0.1:8090 &
  commitlens api use local
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := mockStatePath(statePath)
			if err != nil {
				return writeErr(cmd, app, err)
			}
			srv, err := mock.NewServer(mock.Store{Path: path}, app.logger())
			if err != nil {
				return writeErr(cmd, app, err)
			}
			srv.Token = strings.TrimSpace(token)
			srv.Latency = latency

			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return writeErr(cmd, app, err)
			}
			hs := &http.Server{Handler: srv.Handler(), ReadHeaderTimeout: 10 * time.Second}
			app.logger().Info("mock backend listening", "addr", ln.Addr().String(), "state", path)
			fmt.Fprintf(cmd.ErrOrStderr(), "mock backend on http://%s (ctrl+c to stop)\n", ln.Addr())

			errc := make(chan error, 1)
			go func() { errc <- hs.Serve(ln) }()
			select {
			case err := <-errc:
				if !errors.Is(err, http.ErrServerClosed) {
					return writeErr(cmd, app, err)
				}
				return nil
			case <-cmd.Context().Done():
			}
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return hs.Shutdown(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8090", "Listen address")
	cmd.Flags().StringVar(&statePath, "state", "", "Mock state file (default: user config dir)")
	cmd.Flags().StringVar(&token, "require-token", "", "Bearer token every request must carry")
	cmd.Flags().DurationVar(&latency, "latency", 0, "Delay added to every response")
	return cmd
}
