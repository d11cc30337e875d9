package feed

import (
	"context"
	"math/rand/v2"
	"time"
)

// Delay waits between page interactions. Tests swap in NoDelay so nothing
// sleeps.
type Delay interface {
	// Wait pauses for roughly d, returning early with ctx.Err() if ctx ends.
	Wait(ctx context.Context, d time.Duration) error
}

// RealDelay sleeps on the wall clock, adding up to Jitter of random extra
// time so waits do not land on exact multiples.
type RealDelay struct {
	Jitter time.Duration
}

// Wait implements Delay.
func (r RealDelay) Wait(ctx context.Context, d time.Duration) error {
	if r.Jitter > 0 {
		d += rand.N(r.Jitter)
	}
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// NoDelay returns immediately.
type NoDelay struct{}

// Wait implements Delay.
func (NoDelay) Wait(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}
