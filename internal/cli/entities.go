package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/commitlens/commitlens-cli/internal/api"
	"github.com/commitlens/commitlens-cli/internal/entity"
)

type listFunc[T any] func(ctx context.Context, q entity.Query, f entity.Filter) (entity.Page[T], error)

func runList[T any](cmd *cobra.Command, app *App, lf listFlags, sortable []string, f entity.Filter, list listFunc[T]) error {
	q, err := lf.query(app.config().PageSize, sortable)
	if err != nil {
		return writeFailure(cmd, app, "invalid_input", err, "", nil)
	}
	if err := f.Validate(); err != nil {
		return writeFailure(cmd, app, "invalid_input", err, "", nil)
	}
	ctx, cancel := requestContext(cmd)
	defer cancel()

	page, err := list(ctx, q, f)
	if err != nil {
		return writeErr(cmd, app, err)
	}
	return writeData(cmd, app, pageMeta(q, page.Total), map[string]any{"items": page.Data})
}

func runMutation(cmd *cobra.Command, app *App, fn func(ctx context.Context) (entity.MutationResult, error)) error {
	ctx, cancel := requestContext(cmd)
	defer cancel()
	res, err := fn(ctx)
	if err != nil {
		return writeErr(cmd, app, err)
	}
	return writeData(cmd, app, nil, res)
}

func newDeleteCmd(app *App, kind entity.Kind, del func(app *App) api.DeleteFunc) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "delete <id>...",
		Short: fmt.Sprintf("Delete one or more %s", kind),
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := trimmedArgs(args)
			ctx, cancel := requestContext(cmd)
			defer cancel()

			results, err := api.DeleteMany(ctx, del(app), ids, limit)
			deleted := make([]string, 0, len(results))
			for _, r := range results {
				if r.Err == nil {
					deleted = append(deleted, r.ID)
				}
			}
			app.logger().Info("delete finished", "kind", kind, "requested", len(ids), "deleted", len(deleted))
			if err != nil {
				return writeErr(cmd, app, err)
			}
			return writeData(cmd, app, map[string]any{"count": len(deleted)}, map[string]any{"deleted": deleted})
		},
	}
	cmd.Flags().IntVar(&limit, "concurrency", api.DefaultBulkLimit, "Concurrent delete requests")
	return cmd
}
