package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/commitlens/commitlens-cli/internal/authinfo"
	"github.com/commitlens/commitlens-cli/internal/authstore"
	"github.com/commitlens/commitlens-cli/internal/entity"
)

func newAuthCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{Use: "auth", Short: "Authenticate"}
	cmd.AddCommand(newAuthLoginCmd(app))
	cmd.AddCommand(newAuthStatusCmd(app))
	cmd.AddCommand(newAuthLogoutCmd(app))
	return cmd
}

func loadAuthStore() (string, *authstore.Store, error) {
	p, err := authStorePath()
	if err != nil {
		return "", nil, err
	}
	st, err := authstore.Load(p)
	if err != nil {
		return p, nil, err
	}
	return p, st, nil
}

func newAuthLoginCmd(app *App) *cobra.Command {
	var tokenStdin bool
	var user string
	var noVerify bool
	var printMode string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store a token for the current API",
		Long: strings.TrimSpace(`
Stores the token given with --token (or on stdin with --token-stdin) for the
current API URL. Later commands send it unless --token overrides it.

The token is checked with a users list call first; --no-verify skips that.
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			token := strings.TrimSpace(app.Token)
			if tokenStdin {
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return writeErr(cmd, app, err)
				}
				token = strings.TrimSpace(string(b))
			}
			if token == "" {
				return writeFailure(cmd, app, "invalid_input", errors.New("missing token"), "Pass --token <token> or --token-stdin.", nil)
			}

			if !noVerify {
				client := apiClient(app)
				client.Token = token
				ctx, cancel := requestContext(cmd)
				_, err := client.Users().List(ctx, entity.Query{Page: 1, Limit: 10}, entity.UserFilter{})
				cancel()
				if err != nil {
					return writeErr(cmd, app, fmt.Errorf("verify token: %w", err))
				}
			}

			path, st, err := loadAuthStore()
			if err != nil {
				return writeErr(cmd, app, err)
			}
			claims, _ := authinfo.Parse(token)
			if strings.TrimSpace(user) == "" {
				user = claims.Email
			}
			st.Set(app.APIURL, token, user)
			if err := authstore.SaveAtomic(path, st); err != nil {
				return writeErr(cmd, app, err)
			}
			app.logger().Info("token stored", "api", app.APIURL, "verified", !noVerify)

			if printMode == "token" {
				fmt.Fprintln(cmd.OutOrStdout(), token)
				return nil
			}
			meta := map[string]any{
				"stored":    true,
				"storePath": path,
				"verified":  !noVerify,
				"hint":      "Token is stored locally for future commands.",
			}
			data := map[string]any{"apiUrl": app.APIURL}
			if user != "" {
				data["user"] = user
			}
			return writeData(cmd, app, meta, data)
		},
	}

	cmd.Flags().BoolVar(&tokenStdin, "token-stdin", false, "Read the token from stdin")
	cmd.Flags().StringVar(&user, "user", "", "Label the session (default: email claim of the token)")
	cmd.Flags().BoolVar(&noVerify, "no-verify", false, "Store the token without checking it")
	cmd.Flags().StringVar(&printMode, "print", "json", "Output mode: json|token")
	return cmd
}

func newAuthStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show which token commands will use",
		RunE: func(cmd *cobra.Command, args []string) error {
			data := map[string]any{"apiUrl": app.APIURL, "tokenPresent": false}
			var token string
			switch {
			case app.TokenExplicit:
				token = strings.TrimSpace(app.Token)
				data["source"] = "flag"
			default:
				_, st, err := loadAuthStore()
				if err != nil {
					return writeErr(cmd, app, err)
				}
				if rec, ok := st.Get(app.APIURL); ok {
					token = rec.Token
					data["source"] = "store"
					data["updatedAt"] = rec.UpdatedAt
					if rec.User != "" {
						data["user"] = rec.User
					}
				}
			}
			if token == "" {
				return writeData(cmd, app, map[string]any{"hint": "Run `commitlens auth login --token <token>`."}, data)
			}
			data["tokenPresent"] = true
			if c, ok := authinfo.Parse(token); ok {
				claims := map[string]any{"email": c.Email, "subject": c.Subject}
				if !c.ExpiresAt.IsZero() {
					claims["expiresAt"] = c.ExpiresAt
				}
				data["claims"] = claims
				data["expired"] = c.Expired(time.Now())
			}
			return writeData(cmd, app, nil, data)
		},
	}
}

func newAuthLogoutCmd(app *App) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Logout (remove stored token)",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, st, err := loadAuthStore()
			if err != nil {
				return writeErr(cmd, app, err)
			}

			removed := []string{}
			if all {
				removed = st.BaseURLs()
				st.Sessions = map[string]authstore.Record{}
			} else if st.Delete(app.APIURL) {
				removed = []string{app.APIURL}
			}
			if len(removed) > 0 {
				if err := authstore.SaveAtomic(path, st); err != nil {
					return writeErr(cmd, app, err)
				}
			}

			meta := map[string]any{"storePath": path}
			if strings.TrimSpace(os.Getenv("COMMITLENS_TOKEN")) != "" {
				meta["hint"] = "COMMITLENS_TOKEN is still set in this shell; unset it to stop sending a token."
			}
			return writeData(cmd, app, meta, map[string]any{"removed": removed})
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Remove the tokens of every API")
	return cmd
}
