package resilience

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/semaphore"
)

// ErrAdmissionTimeout is returned when no slot frees up within the wait.
var ErrAdmissionTimeout = errors.New("no capacity for another browser session")

// Admission bounds how many fetches may hold a browser at once. A zero
// limit admits everything.
type Admission struct {
	sem  *semaphore.Weighted
	wait time.Duration
}

// NewAdmission creates an admission gate with limit slots. Callers wait at
// most wait for a slot.
func NewAdmission(limit int64, wait time.Duration) *Admission {
	a := &Admission{wait: wait}
	if limit > 0 {
		a.sem = semaphore.NewWeighted(limit)
	}
	return a
}

// Acquire blocks until a slot is free, the wait elapses or ctx is done.
// The returned release func must be called exactly once.
func (a *Admission) Acquire(ctx context.Context) (func(), error) {
	if a == nil || a.sem == nil {
		return func() {}, nil
	}

	waitCtx := ctx
	if a.wait > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, a.wait)
		defer cancel()
	}

	if err := a.sem.Acquire(waitCtx, 1); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, ErrAdmissionTimeout
	}
	return func() { a.sem.Release(1) }, nil
}

// Limited reports whether a concurrency bound is configured.
func (a *Admission) Limited() bool {
	return a != nil && a.sem != nil
}
