// Package querycache is a keyed cache of fetch results shared by every list
// screen of a session.
//
// At most one request per key is in flight; concurrent callers share its
// result. Entries are grouped by a prefix (the entity kind) so a mutation can
// mark every page of that entity stale at once. Stale entries are still
// served by Peek so the UI can show them while it refetches.
package querycache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mitchellh/hashstructure/v2"
	"golang.org/x/sync/singleflight"
)

var ErrClosed = errors.New("query cache closed")

const keySep = "|"

// Key builds a cache key from a prefix and any hashable parts (page state,
// filter structs). Equal parts always produce the same key.
func Key(prefix string, parts ...any) (string, error) {
	h, err := hashstructure.Hash(parts, hashstructure.FormatV2, nil)
	if err != nil {
		return "", fmt.Errorf("hash cache key: %w", err)
	}
	return fmt.Sprintf("%s%s%016x", prefix, keySep, h), nil
}

func prefixOf(key string) string {
	if i := strings.Index(key, keySep); i >= 0 {
		return key[:i]
	}
	return key
}

type Options struct {
	// StaleTime is how long a fetched value counts as fresh. Zero means
	// values are stale as soon as they are stored.
	StaleTime time.Duration
	// GCTime drops entries nobody has read for this long.
	GCTime time.Duration
	// Retries is the number of extra attempts after a failed fetch.
	Retries    int
	RetryDelay time.Duration
	// ShouldRetry filters which errors are retried. Context errors never are.
	ShouldRetry func(error) bool
	Logger      *slog.Logger
	Now         func() time.Time
}

func DefaultOptions() Options {
	return Options{
		StaleTime:  30 * time.Second,
		GCTime:     5 * time.Minute,
		Retries:    1,
		RetryDelay: 300 * time.Millisecond,
	}
}

type entry struct {
	value     any
	fetchedAt time.Time
	readAt    time.Time
	version   uint64
}

type Cache struct {
	opts Options
	log  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	group  singleflight.Group

	mu          sync.Mutex
	entries     map[string]*entry
	invalidated map[string]uint64
	inflight    map[string]int
	version     uint64
	closed      bool
}

func New(opts Options) *Cache {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Cache{
		opts:        opts,
		log:         opts.Logger.With("component", "querycache"),
		ctx:         ctx,
		cancel:      cancel,
		entries:     map[string]*entry{},
		invalidated: map[string]uint64{},
		inflight:    map[string]int{},
	}
}

// Peek returns the cached value for key without fetching. fresh is false when
// the value is past StaleTime or was invalidated.
func (c *Cache) Peek(key string) (value any, fresh bool, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false, false
	}
	e.readAt = c.opts.Now()
	return e.value, c.freshLocked(key, e), true
}

func (c *Cache) freshLocked(key string, e *entry) bool {
	if v, ok := c.invalidated[prefixOf(key)]; ok && e.version <= v {
		return false
	}
	return c.opts.Now().Sub(e.fetchedAt) < c.opts.StaleTime
}

// Fetch returns a fresh cached value or runs fn, sharing one in-flight call
// between all callers of the same key. ctx only bounds this caller's wait:
// the shared call runs on the cache's own context so one caller giving up
// does not fail the others.
func (c *Cache) Fetch(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	c.gcLocked()
	if e, ok := c.entries[key]; ok && c.freshLocked(key, e) {
		e.readAt = c.opts.Now()
		v := e.value
		c.mu.Unlock()
		return v, nil
	}
	c.mu.Unlock()

	ch := c.group.DoChan(key, func() (any, error) {
		c.mu.Lock()
		c.version++
		started := c.version
		c.inflight[key]++
		c.mu.Unlock()

		v, err := c.run(key, fn)

		c.mu.Lock()
		defer c.mu.Unlock()
		if c.inflight[key]--; c.inflight[key] <= 0 {
			delete(c.inflight, key)
		}
		if err != nil {
			return nil, err
		}
		// A call forgotten by InvalidatePrefix may finish after the one that
		// replaced it; the newer value wins.
		if e, ok := c.entries[key]; !c.closed && (!ok || e.version < started) {
			now := c.opts.Now()
			c.entries[key] = &entry{value: v, fetchedAt: now, readAt: now, version: started}
		}
		return v, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Shared {
			c.log.Debug("shared in-flight fetch", "key", key)
		}
		return res.Val, res.Err
	}
}

func (c *Cache) run(key string, fn func(context.Context) (any, error)) (any, error) {
	var lastErr error
	for attempt := 0; attempt <= c.opts.Retries; attempt++ {
		if attempt > 0 {
			c.log.Debug("retrying fetch", "key", key, "attempt", attempt, "err", lastErr)
			if err := sleepCtx(c.ctx, c.opts.RetryDelay*time.Duration(attempt)); err != nil {
				return nil, ErrClosed
			}
		}
		v, err := fn(c.ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err
		if c.ctx.Err() != nil {
			return nil, ErrClosed
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			break
		}
		if c.opts.ShouldRetry != nil && !c.opts.ShouldRetry(err) {
			break
		}
	}
	return nil, lastErr
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// InvalidatePrefix marks every entry under prefix stale, including values of
// fetches that were already in flight when it was called. Those in-flight
// calls are forgotten, so a Fetch issued afterwards starts a new request
// instead of joining one that may predate a mutation. It returns the number
// of stored entries affected.
func (c *Cache) InvalidatePrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.version++
	c.invalidated[prefix] = c.version
	for k := range c.inflight {
		if prefixOf(k) == prefix {
			c.group.Forget(k)
		}
	}
	n := 0
	for k := range c.entries {
		if prefixOf(k) == prefix {
			n++
		}
	}
	c.log.Debug("invalidated", "prefix", prefix, "entries", n)
	return n
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) gcLocked() {
	if c.opts.GCTime <= 0 {
		return
	}
	now := c.opts.Now()
	for k, e := range c.entries {
		if now.Sub(e.readAt) > c.opts.GCTime {
			delete(c.entries, k)
		}
	}
}

// Close drops every entry and cancels in-flight fetches. Fetch returns
// ErrClosed afterwards.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.entries = map[string]*entry{}
	c.cancel()
}

// Get is the typed form of Fetch.
func Get[T any](ctx context.Context, c *Cache, key string, fn func(context.Context) (T, error)) (T, error) {
	v, err := c.Fetch(ctx, key, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	out, ok := v.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("cache entry %s holds %T", key, v)
	}
	return out, nil
}

// PeekAs is the typed form of Peek.
func PeekAs[T any](c *Cache, key string) (T, bool, bool) {
	v, fresh, ok := c.Peek(key)
	if !ok {
		var zero T
		return zero, false, false
	}
	out, ok := v.(T)
	return out, fresh, ok
}
