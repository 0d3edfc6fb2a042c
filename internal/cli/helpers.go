package cli

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/commitlens/commitlens-cli/internal/api"
	"github.com/commitlens/commitlens-cli/internal/authstore"
	"github.com/commitlens/commitlens-cli/internal/collection"
	"github.com/commitlens/commitlens-cli/internal/entity"
)

const requestTimeout = 30 * time.Second

func authStorePath() (string, error) {
	if p := strings.TrimSpace(os.Getenv("COMMITLENS_AUTH_STORE")); p != "" {
		return p, nil
	}
	return authstore.DefaultPath()
}

// resolveToken falls back to the session stored by `auth login` for the
// current API URL.
func resolveToken(app *App) string {
	if app.TokenExplicit {
		return strings.TrimSpace(app.Token)
	}
	p, err := authStorePath()
	if err != nil {
		return ""
	}
	st, err := authstore.Load(p)
	if err != nil {
		app.logger().Warn("auth store unreadable", "path", p, "err", err)
		return ""
	}
	tok, _ := st.Token(app.APIURL)
	return tok
}

func apiClient(app *App) api.Client {
	r := app.config().Routes
	return api.Client{
		BaseURL: app.APIURL,
		Token:   resolveToken(app),
		Routes: api.Routes{
			Users:    r.Users,
			Projects: r.Projects,
			Agents:   r.Agents,
			Analysis: r.Analysis,
			Create: api.CreateRoutes{
				Users:    r.Create.Users,
				Projects: r.Create.Projects,
				Agents:   r.Create.Agents,
			},
		},
	}
}

func requestContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), requestTimeout)
}

// listFlags are the pagination, search and sort flags every list command
// shares.
type listFlags struct {
	page   int
	limit  int
	search string
	sort   string
	order  string
}

func (lf *listFlags) register(cmd *cobra.Command, sortable []string) {
	cmd.Flags().IntVar(&lf.page, "page", 1, "Page number (1-based)")
	cmd.Flags().IntVar(&lf.limit, "limit", 0, fmt.Sprintf("Page size, one of %v (default from config)", collection.PageSizeOptions))
	cmd.Flags().StringVar(&lf.search, "search", "", "Free-text search")
	cmd.Flags().StringVar(&lf.sort, "sort", "", "Sort column ("+strings.Join(sortable, "|")+")")
	cmd.Flags().StringVar(&lf.order, "order", "asc", "Sort order (asc|desc)")
}

func (lf listFlags) query(defaultLimit int, sortable []string) (entity.Query, error) {
	q := entity.Query{Page: lf.page, Limit: lf.limit, Search: strings.TrimSpace(lf.search)}
	if q.Limit == 0 {
		q.Limit = defaultLimit
	}
	if q.Page < 1 {
		return q, fmt.Errorf("--page must be >= 1, got %d", q.Page)
	}
	if !slices.Contains(collection.PageSizeOptions, q.Limit) {
		return q, fmt.Errorf("--limit %d must be one of %v", q.Limit, collection.PageSizeOptions)
	}
	col := strings.TrimSpace(lf.sort)
	if col == "" {
		return q, nil
	}
	if !slices.Contains(sortable, col) {
		return q, fmt.Errorf("--sort %q must be one of %s", col, strings.Join(sortable, ", "))
	}
	dir := entity.SortDirection(strings.ToLower(strings.TrimSpace(lf.order)))
	if dir != entity.SortAsc && dir != entity.SortDesc {
		return q, fmt.Errorf("--order %q must be asc or desc", lf.order)
	}
	q.Sorting = []entity.SortSpec{{ColumnID: col, Direction: dir}}
	return q, nil
}

// pageMeta describes where a page sits in the collection.
func pageMeta(q entity.Query, total int) map[string]any {
	pages := collection.PageCount(total, q.Limit)
	meta := map[string]any{
		"page":  q.Page,
		"limit": q.Limit,
		"total": total,
		"pages": pages,
	}
	if len(q.Sorting) > 0 {
		meta["sort"] = q.Sorting[0].ColumnID
		meta["order"] = string(q.Sorting[0].Direction)
	}
	if q.Page < pages {
		meta["hint"] = fmt.Sprintf("More results: --page %d", q.Page+1)
	}
	return meta
}

func trimmedArgs(args []string) []string {
	out := make([]string, 0, len(args))
	for _, a := range args {
		if a = strings.TrimSpace(a); a != "" && !slices.Contains(out, a) {
			out = append(out, a)
		}
	}
	return out
}
