package querycache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type pageKey struct {
	Page  int
	Limit int
	Role  string
}

func TestKey_StableAndPrefixed(t *testing.T) {
	a, err := Key("users", pageKey{Page: 1, Limit: 10})
	require.NoError(t, err)
	b, err := Key("users", pageKey{Page: 1, Limit: 10})
	require.NoError(t, err)
	c, err := Key("users", pageKey{Page: 2, Limit: 10})
	require.NoError(t, err)

	require.Equal(t, a, b)
	require.NotEqual(t, a, c)
	require.Equal(t, "users", prefixOf(a))
}

func TestFetch_DeduplicatesInFlight(t *testing.T) {
	c := New(DefaultOptions())
	defer c.Close()

	var calls int32
	release := make(chan struct{})
	fn := func(ctx context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return "rows", nil
	}

	var wg sync.WaitGroup
	results := make([]any, 5)
	errs := make([]error, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.Fetch(context.Background(), "users|k", fn)
		}(i)
	}
	// Let every goroutine reach the singleflight group before releasing.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	require.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for i, r := range results {
		require.NoError(t, errs[i])
		require.Equal(t, "rows", r)
	}
}

func TestFetch_ServesFreshValueWithoutCalling(t *testing.T) {
	now := time.Unix(1000, 0)
	opts := DefaultOptions()
	opts.Now = func() time.Time { return now }
	c := New(opts)
	defer c.Close()

	var calls int
	fn := func(ctx context.Context) (any, error) { calls++; return calls, nil }

	v, err := c.Fetch(context.Background(), "projects|a", fn)
	require.NoError(t, err)
	require.Equal(t, 1, v)

	v, err = c.Fetch(context.Background(), "projects|a", fn)
	require.NoError(t, err)
	require.Equal(t, 1, v, "fresh value should be served from cache")

	now = now.Add(opts.StaleTime + time.Second)
	v, err = c.Fetch(context.Background(), "projects|a", fn)
	require.NoError(t, err)
	require.Equal(t, 2, v, "stale value should be refetched")
}

func TestInvalidatePrefix_MarksOnlyThatEntity(t *testing.T) {
	c := New(DefaultOptions())
	defer c.Close()

	ok := func(v string) func(context.Context) (any, error) {
		return func(context.Context) (any, error) { return v, nil }
	}
	_, err := c.Fetch(context.Background(), "users|1", ok("u1"))
	require.NoError(t, err)
	_, err = c.Fetch(context.Background(), "users|2", ok("u2"))
	require.NoError(t, err)
	_, err = c.Fetch(context.Background(), "agents|1", ok("a1"))
	require.NoError(t, err)

	require.Equal(t, 2, c.InvalidatePrefix("users"))

	v, fresh, found := c.Peek("users|1")
	require.True(t, found)
	require.False(t, fresh)
	require.Equal(t, "u1", v, "stale value is still served by Peek")

	_, fresh, found = c.Peek("agents|1")
	require.True(t, found)
	require.True(t, fresh)

	_, err = c.Fetch(context.Background(), "users|1", ok("u1b"))
	require.NoError(t, err)
	v, fresh, _ = c.Peek("users|1")
	require.True(t, fresh)
	require.Equal(t, "u1b", v)
}

func TestInvalidatePrefix_DuringFetchLeavesResultStale(t *testing.T) {
	c := New(DefaultOptions())
	defer c.Close()

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = c.Fetch(context.Background(), "users|1", func(context.Context) (any, error) {
			close(started)
			<-release
			return "old", nil
		})
	}()
	<-started
	c.InvalidatePrefix("users")
	close(release)
	<-done

	_, fresh, found := c.Peek("users|1")
	require.True(t, found)
	require.False(t, fresh)
}

func TestInvalidatePrefix_FetchAfterwardsSkipsInFlightCall(t *testing.T) {
	c := New(DefaultOptions())
	defer c.Close()

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan any)
	go func() {
		v, _ := c.Fetch(context.Background(), "users|1", func(context.Context) (any, error) {
			close(started)
			<-release
			return "pre-mutation", nil
		})
		done <- v
	}()
	<-started
	c.InvalidatePrefix("users")

	var ran bool
	v, err := c.Fetch(context.Background(), "users|1", func(context.Context) (any, error) {
		ran = true
		return "post-mutation", nil
	})
	require.NoError(t, err)
	require.True(t, ran, "fetch after invalidation must not join the earlier call")
	require.Equal(t, "post-mutation", v)

	close(release)
	require.Equal(t, "pre-mutation", <-done)

	got, fresh, found := c.Peek("users|1")
	require.True(t, found)
	require.True(t, fresh)
	require.Equal(t, "post-mutation", got, "a late older call must not overwrite the newer value")
}

func TestFetch_RetriesTransientErrors(t *testing.T) {
	opts := DefaultOptions()
	opts.Retries = 2
	opts.RetryDelay = time.Millisecond
	c := New(opts)
	defer c.Close()

	var calls int
	v, err := c.Fetch(context.Background(), "users|r", func(context.Context) (any, error) {
		calls++
		if calls < 3 {
			return nil, errors.New("connection reset")
		}
		return "ok", nil
	})
	require.NoError(t, err)
	require.Equal(t, "ok", v)
	require.Equal(t, 3, calls)
}

func TestFetch_ShouldRetryStopsEarly(t *testing.T) {
	opts := DefaultOptions()
	opts.Retries = 3
	opts.RetryDelay = time.Millisecond
	permanent := errors.New("404")
	opts.ShouldRetry = func(err error) bool { return !errors.Is(err, permanent) }
	c := New(opts)
	defer c.Close()

	var calls int
	_, err := c.Fetch(context.Background(), "users|x", func(context.Context) (any, error) {
		calls++
		return nil, permanent
	})
	require.ErrorIs(t, err, permanent)
	require.Equal(t, 1, calls)
	require.Equal(t, 0, c.Len(), "errors are not cached")
}

func TestClose_RejectsFetchAndDropsEntries(t *testing.T) {
	c := New(DefaultOptions())
	_, err := c.Fetch(context.Background(), "users|1", func(context.Context) (any, error) { return 1, nil })
	require.NoError(t, err)

	c.Close()
	require.Equal(t, 0, c.Len())
	_, err = c.Fetch(context.Background(), "users|1", func(context.Context) (any, error) { return 1, nil })
	require.ErrorIs(t, err, ErrClosed)
}

func TestGet_Typed(t *testing.T) {
	c := New(DefaultOptions())
	defer c.Close()

	got, err := Get(context.Background(), c, "agents|t", func(context.Context) ([]string, error) {
		return []string{"a", "b"}, nil
	})
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, got)

	peeked, fresh, ok := PeekAs[[]string](c, "agents|t")
	require.True(t, ok)
	require.True(t, fresh)
	require.Len(t, peeked, 2)
}
