package cli

import (
	"github.com/spf13/cobra"

	"github.com/commitlens/commitlens-cli/internal/buildinfo"
)

func newVersionCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		RunE: func(cmd *cobra.Command, args []string) error {
			info := buildinfo.Current()
			return writeData(cmd, app, map[string]any{"userAgent": buildinfo.UserAgent()}, info)
		},
	}
}
