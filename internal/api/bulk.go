package api

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/commitlens/commitlens-cli/internal/entity"
)

// DefaultBulkLimit caps concurrent requests of a bulk action.
const DefaultBulkLimit = 4

type DeleteFunc func(ctx context.Context, id string) (entity.MutationResult, error)

// BulkResult is the outcome of one id in a bulk action.
type BulkResult struct {
	ID     string
	Result entity.MutationResult
	Err    error
}

// BulkError lists the ids a bulk action failed for.
type BulkError struct {
	Failed []BulkResult
	Total  int
}

func (e *BulkError) Error() string {
	parts := make([]string, 0, len(e.Failed))
	for _, f := range e.Failed {
		parts = append(parts, fmt.Sprintf("%s: %v", f.ID, f.Err))
	}
	return fmt.Sprintf("%d of %d failed: %s", len(e.Failed), e.Total, strings.Join(parts, "; "))
}

func (e *BulkError) Unwrap() []error {
	errs := make([]error, len(e.Failed))
	for i, f := range e.Failed {
		errs[i] = f.Err
	}
	return errs
}

// DeleteMany deletes ids with at most limit requests in flight. Every id is
// attempted; results come back in input order and the error, if any, is a
// *BulkError naming each failed id.
func DeleteMany(ctx context.Context, del DeleteFunc, ids []string, limit int) ([]BulkResult, error) {
	if len(ids) == 0 {
		return nil, errors.New("nothing to delete")
	}
	if limit <= 0 {
		limit = DefaultBulkLimit
	}
	out := make([]BulkResult, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, id := range ids {
		g.Go(func() error {
			res, err := del(gctx, id)
			out[i] = BulkResult{ID: id, Result: res, Err: err}
			// Failures are collected per id, never short-circuit the group.
			return nil
		})
	}
	_ = g.Wait()

	var failed []BulkResult
	for _, r := range out {
		if r.Err != nil {
			failed = append(failed, r)
		}
	}
	if len(failed) > 0 {
		return out, &BulkError{Failed: failed, Total: len(ids)}
	}
	return out, nil
}
