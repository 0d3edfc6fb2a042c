// Package collection keeps the state of one paginated, filtered entity list:
// the page the user is looking at, the rows last fetched for it, and which
// fetch result is allowed to land.
package collection

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/commitlens/commitlens-cli/internal/entity"
	"github.com/commitlens/commitlens-cli/internal/querycache"
)

var PageSizeOptions = []int{10, 20, 30, 40, 50, 100, 150}

const DefaultPageSize = 10

type PageState struct {
	Page     int               `hash:"page"`
	PageSize int               `hash:"page_size"`
	Sorting  []entity.SortSpec `hash:"sorting"`
	Search   string            `hash:"search"`
}

// Fetcher loads one page, usually by calling api.Service.List.
type Fetcher[T any, F entity.Filter] func(ctx context.Context, q entity.Query, f F) (entity.Page[T], error)

// Result is the message a Load command produces.
type Result[T any] struct {
	Kind entity.Kind
	Seq  uint64
	Page entity.Page[T]
	Err  error
}

type Options struct {
	PageSizes []int
	PageSize  int
	Logger    *slog.Logger
}

type Collection[T any, F entity.Filter] struct {
	kind      entity.Kind
	cache     *querycache.Cache
	fetch     Fetcher[T, F]
	log       *slog.Logger
	pageSizes []int

	state  PageState
	filter F

	rows     []T
	total    int
	fetching bool
	err      error

	seq    uint64
	closed bool
}

func New[T any, F entity.Filter](kind entity.Kind, cache *querycache.Cache, fetch Fetcher[T, F], opts Options) *Collection[T, F] {
	sizes := opts.PageSizes
	if len(sizes) == 0 {
		sizes = PageSizeOptions
	}
	size := opts.PageSize
	if !slices.Contains(sizes, size) {
		size = sizes[0]
		if slices.Contains(sizes, DefaultPageSize) {
			size = DefaultPageSize
		}
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Collection[T, F]{
		kind:      kind,
		cache:     cache,
		fetch:     fetch,
		log:       log.With("collection", string(kind)),
		pageSizes: sizes,
		state:     PageState{Page: 1, PageSize: size},
		rows:      []T{},
	}
}

func (c *Collection[T, F]) Kind() entity.Kind { return c.kind }
func (c *Collection[T, F]) Rows() []T         { return c.rows }
func (c *Collection[T, F]) Total() int        { return c.total }
func (c *Collection[T, F]) IsFetching() bool  { return c.fetching }
func (c *Collection[T, F]) Err() error        { return c.err }
func (c *Collection[T, F]) Filter() F         { return c.filter }
func (c *Collection[T, F]) PageSizes() []int  { return c.pageSizes }

func (c *Collection[T, F]) State() PageState {
	s := c.state
	s.Sorting = slices.Clone(c.state.Sorting)
	return s
}

// PageCount is ceil(total/pageSize), never less than 1.
func (c *Collection[T, F]) PageCount() int {
	return PageCount(c.total, c.state.PageSize)
}

func PageCount(total, pageSize int) int {
	if pageSize < 1 || total <= 0 {
		return 1
	}
	return (total + pageSize - 1) / pageSize
}

func (c *Collection[T, F]) SetPage(page int) {
	if page < 1 {
		page = 1
	}
	if pc := c.PageCount(); c.total > 0 && page > pc {
		page = pc
	}
	c.state.Page = page
}

func (c *Collection[T, F]) SetPageSize(size int) error {
	if !slices.Contains(c.pageSizes, size) {
		return fmt.Errorf("page size %d not in %v", size, c.pageSizes)
	}
	c.state.PageSize = size
	c.state.Page = 1
	return nil
}

func (c *Collection[T, F]) SetSorting(sorting []entity.SortSpec) {
	c.state.Sorting = slices.Clone(sorting)
	c.state.Page = 1
}

func (c *Collection[T, F]) SetSearch(search string) {
	c.state.Search = strings.TrimSpace(search)
	c.state.Page = 1
}

func (c *Collection[T, F]) SetFilter(f F) error {
	if err := f.Validate(); err != nil {
		return err
	}
	c.filter = f
	c.state.Page = 1
	return nil
}

func (c *Collection[T, F]) key() (string, error) {
	return querycache.Key(string(c.kind), c.state, c.filter)
}

func (c *Collection[T, F]) query() entity.Query {
	return entity.Query{
		Page:    c.state.Page,
		Limit:   c.state.PageSize,
		Search:  c.state.Search,
		Sorting: slices.Clone(c.state.Sorting),
	}
}

// Load issues a request for the current state. A cached page is shown at
// once; when it is still fresh no request is made and Load returns nil.
// Otherwise the rows on screen stay until the returned command's Result is
// applied.
func (c *Collection[T, F]) Load(ctx context.Context) tea.Cmd {
	if c.closed {
		return nil
	}
	c.seq++
	seq := c.seq
	kind := c.kind

	key, err := c.key()
	if err != nil {
		c.err = err
		c.fetching = false
		return nil
	}
	if page, fresh, ok := querycache.PeekAs[entity.Page[T]](c.cache, key); ok {
		c.rows, c.total, c.err = page.Data, page.Total, nil
		if fresh {
			c.fetching = false
			return nil
		}
	}
	c.fetching = true

	q, f, fetch, cache := c.query(), c.filter, c.fetch, c.cache
	c.log.Debug("load", "seq", seq, "page", q.Page, "limit", q.Limit, "search", q.Search)
	return func() tea.Msg {
		page, err := querycache.Get(ctx, cache, key, func(ctx context.Context) (entity.Page[T], error) {
			return fetch(ctx, q, f)
		})
		return Result[T]{Kind: kind, Seq: seq, Page: page, Err: err}
	}
}

// Apply lands a Result if it answers the latest Load; anything older is
// dropped. It reports whether the page had to be clamped, in which case the
// caller should Load again.
func (c *Collection[T, F]) Apply(res Result[T]) (refetch bool) {
	if c.closed || res.Kind != c.kind || res.Seq != c.seq {
		return false
	}
	c.fetching = false
	if res.Err != nil {
		c.log.Warn("fetch failed", "err", res.Err)
		c.rows, c.total, c.err = []T{}, 0, res.Err
		return false
	}
	c.err = nil
	c.rows = res.Page.Data
	if c.rows == nil {
		c.rows = []T{}
	}
	c.total = res.Page.Total
	if pc := c.PageCount(); c.state.Page > pc {
		c.log.Debug("clamping page", "from", c.state.Page, "to", pc)
		c.state.Page = pc
		return true
	}
	return false
}

// Invalidate marks every cached page of this entity stale.
func (c *Collection[T, F]) Invalidate() {
	c.cache.InvalidatePrefix(string(c.kind))
}

// Close discards any result still in flight.
func (c *Collection[T, F]) Close() {
	c.closed = true
	c.seq++
	c.fetching = false
}
