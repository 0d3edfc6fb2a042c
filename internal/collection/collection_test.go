package collection

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/commitlens/commitlens-cli/internal/entity"
	"github.com/commitlens/commitlens-cli/internal/querycache"
)

type row struct{ ID string }

func rowsN(n int) []row {
	out := make([]row, n)
	for i := range out {
		out[i] = row{ID: string(rune('a' + i))}
	}
	return out
}

func newTestCollection(t *testing.T, fetch Fetcher[row, entity.ProjectFilter]) *Collection[row, entity.ProjectFilter] {
	t.Helper()
	cache := querycache.New(querycache.DefaultOptions())
	t.Cleanup(cache.Close)
	return New(entity.KindProjects, cache, fetch, Options{})
}

func runLoad(t *testing.T, c *Collection[row, entity.ProjectFilter]) Result[row] {
	t.Helper()
	cmd := c.Load(context.Background())
	if cmd == nil {
		t.Fatalf("expected a fetch command")
	}
	res, ok := cmd().(Result[row])
	if !ok {
		t.Fatalf("unexpected message type")
	}
	return res
}

func TestPageCount(t *testing.T) {
	cases := []struct{ total, size, want int }{
		{0, 10, 1},
		{25, 20, 2},
		{40, 20, 2},
		{41, 20, 3},
		{5, 0, 1},
	}
	for _, tc := range cases {
		if got := PageCount(tc.total, tc.size); got != tc.want {
			t.Fatalf("PageCount(%d,%d)=%d want %d", tc.total, tc.size, got, tc.want)
		}
	}
}

func TestApply_SecondPageOfTwentyFive(t *testing.T) {
	c := newTestCollection(t, func(ctx context.Context, q entity.Query, f entity.ProjectFilter) (entity.Page[row], error) {
		return entity.Page[row]{Data: rowsN(5), Total: 25}, nil
	})
	if err := c.SetPageSize(20); err != nil {
		t.Fatalf("SetPageSize: %v", err)
	}
	c.state.Page = 2

	if refetch := c.Apply(runLoad(t, c)); refetch {
		t.Fatalf("page 2 of 2 must not be clamped")
	}
	if c.PageCount() != 2 {
		t.Fatalf("expected 2 pages, got %d", c.PageCount())
	}
	if len(c.Rows()) != 5 || c.State().Page != 2 {
		t.Fatalf("unexpected state: rows=%d page=%d", len(c.Rows()), c.State().Page)
	}
}

func TestSetters_ResetPage(t *testing.T) {
	c := newTestCollection(t, nil)
	c.state.Page = 3
	if err := c.SetPageSize(50); err != nil {
		t.Fatalf("SetPageSize: %v", err)
	}
	if c.State().Page != 1 {
		t.Fatalf("page size change must reset page, got %d", c.State().Page)
	}

	c.state.Page = 3
	c.SetSorting([]entity.SortSpec{{ColumnID: "name", Direction: entity.SortAsc}})
	if c.State().Page != 1 {
		t.Fatalf("sorting change must reset page")
	}

	c.state.Page = 3
	c.SetSearch("abc")
	if c.State().Page != 1 {
		t.Fatalf("search change must reset page")
	}

	c.state.Page = 3
	if err := c.SetFilter(entity.ProjectFilter{Name: "core"}); err != nil {
		t.Fatalf("SetFilter: %v", err)
	}
	if c.State().Page != 1 {
		t.Fatalf("filter change must reset page")
	}

	if err := c.SetPageSize(7); err == nil {
		t.Fatalf("expected error for page size outside the allowed set")
	}
}

func TestApply_DropsOutdatedResults(t *testing.T) {
	var n int32
	c := newTestCollection(t, func(ctx context.Context, q entity.Query, f entity.ProjectFilter) (entity.Page[row], error) {
		i := atomic.AddInt32(&n, 1)
		return entity.Page[row]{Data: rowsN(int(i)), Total: 100}, nil
	})

	first := c.Load(context.Background())
	c.SetSearch("x")
	second := c.Load(context.Background())

	newer := second().(Result[row])
	older := first().(Result[row])

	c.Apply(newer)
	c.Apply(older)
	if got := len(c.Rows()); got != len(newer.Page.Data) {
		t.Fatalf("older result overwrote newer one: rows=%d", got)
	}
	if c.IsFetching() {
		t.Fatalf("expected fetching=false after the latest result landed")
	}
}

func TestLoad_KeepsPreviousRowsWhileFetching(t *testing.T) {
	c := newTestCollection(t, func(ctx context.Context, q entity.Query, f entity.ProjectFilter) (entity.Page[row], error) {
		return entity.Page[row]{Data: rowsN(q.Page), Total: 100}, nil
	})
	c.Apply(runLoad(t, c))
	if len(c.Rows()) != 1 {
		t.Fatalf("expected 1 row on page 1")
	}

	c.SetPage(2)
	cmd := c.Load(context.Background())
	if !c.IsFetching() || len(c.Rows()) != 1 {
		t.Fatalf("previous rows must stay visible while fetching")
	}
	c.Apply(cmd().(Result[row]))
	if len(c.Rows()) != 2 {
		t.Fatalf("expected page 2 rows, got %d", len(c.Rows()))
	}
}

func TestLoad_ServesFreshCacheWithoutFetching(t *testing.T) {
	var calls int32
	c := newTestCollection(t, func(ctx context.Context, q entity.Query, f entity.ProjectFilter) (entity.Page[row], error) {
		atomic.AddInt32(&calls, 1)
		return entity.Page[row]{Data: rowsN(q.Page), Total: 100}, nil
	})
	c.Apply(runLoad(t, c))
	c.SetPage(2)
	c.Apply(runLoad(t, c))

	c.SetPage(1)
	if cmd := c.Load(context.Background()); cmd != nil {
		t.Fatalf("fresh cached page should not refetch")
	}
	if len(c.Rows()) != 1 || c.IsFetching() {
		t.Fatalf("expected cached page 1 to be shown")
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("expected 2 fetches, got %d", calls)
	}

	c.Invalidate()
	if cmd := c.Load(context.Background()); cmd == nil {
		t.Fatalf("invalidated page must refetch")
	}
	if len(c.Rows()) != 1 {
		t.Fatalf("stale rows should be shown while revalidating")
	}
}

func TestApply_ClampsPageWhenTotalShrinks(t *testing.T) {
	total := 100
	c := newTestCollection(t, func(ctx context.Context, q entity.Query, f entity.ProjectFilter) (entity.Page[row], error) {
		return entity.Page[row]{Data: nil, Total: total}, nil
	})
	c.Apply(runLoad(t, c))
	c.SetPage(10)

	total = 35
	if refetch := c.Apply(runLoad(t, c)); !refetch {
		t.Fatalf("expected clamp to request a refetch")
	}
	if c.State().Page != 4 {
		t.Fatalf("expected page clamped to 4, got %d", c.State().Page)
	}
}

func TestApply_ErrorBecomesEmptyRows(t *testing.T) {
	boom := errors.New("boom")
	c := newTestCollection(t, func(ctx context.Context, q entity.Query, f entity.ProjectFilter) (entity.Page[row], error) {
		return entity.Page[row]{}, boom
	})
	c.Apply(runLoad(t, c))
	if !errors.Is(c.Err(), boom) {
		t.Fatalf("expected error to be kept, got %v", c.Err())
	}
	if c.Rows() == nil || len(c.Rows()) != 0 {
		t.Fatalf("expected empty non-nil rows")
	}
}

func TestApply_ErrorClearsTotal(t *testing.T) {
	boom := errors.New("boom")
	var failing atomic.Bool
	c := newTestCollection(t, func(ctx context.Context, q entity.Query, f entity.ProjectFilter) (entity.Page[row], error) {
		if failing.Load() {
			return entity.Page[row]{}, boom
		}
		return entity.Page[row]{Data: rowsN(10), Total: 40}, nil
	})
	c.Apply(runLoad(t, c))
	c.SetPage(2)
	c.Apply(runLoad(t, c))
	if c.Total() != 40 || c.State().Page != 2 {
		t.Fatalf("unexpected state: total=%d page=%d", c.Total(), c.State().Page)
	}

	failing.Store(true)
	c.Invalidate()
	c.Apply(runLoad(t, c))
	if c.Total() != 0 {
		t.Fatalf("expected total 0 after a failed fetch, got %d", c.Total())
	}
	if c.PageCount() != 1 {
		t.Fatalf("expected a single page after a failed fetch, got %d", c.PageCount())
	}
}

func TestClose_DropsLateResults(t *testing.T) {
	c := newTestCollection(t, func(ctx context.Context, q entity.Query, f entity.ProjectFilter) (entity.Page[row], error) {
		return entity.Page[row]{Data: rowsN(3), Total: 3}, nil
	})
	cmd := c.Load(context.Background())
	c.Close()
	c.Apply(cmd().(Result[row]))
	if len(c.Rows()) != 0 {
		t.Fatalf("result applied after Close")
	}
	if c.Load(context.Background()) != nil {
		t.Fatalf("closed collection must not load")
	}
}
