package analysis

import (
	"context"
	"time"
)

// Wait polls runID until it reaches a terminal status or ctx ends. onStatus
// is called every time the observed status changes. Fetch errors end the wait;
// the HTTP client below it already retries transient failures.
func Wait(ctx context.Context, fetch FetchFunc, runID string, interval time.Duration, onStatus func(Status)) (Status, error) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	var tr Tracker
	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return tr.Status(), ctx.Err()
		case <-timer.C:
		}

		raw, err := fetch(ctx, runID)
		if err != nil {
			return tr.Status(), err
		}
		s, err := ParseStatus(raw)
		if err != nil {
			return tr.Status(), err
		}
		if tr.Observe(s) && onStatus != nil {
			onStatus(tr.Status())
		}
		if tr.Status().Terminal() {
			return tr.Status(), nil
		}
		timer.Reset(interval)
	}
}
