package resilience

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errLaunch = errors.New("launch failed")

func newTestBreaker(failures uint32, cooldown time.Duration) (*Breaker, *time.Time) {
	now := time.Unix(1_700_000_000, 0)
	b := New("launch", Settings{Failures: failures, Cooldown: cooldown})
	b.now = func() time.Time { return now }
	return b, &now
}

func TestBreakerStateTransitions(t *testing.T) {
	tests := []struct {
		name          string
		failures      uint32
		requests      []bool // true = success, false = failure
		expectedState State
	}{
		{
			name:          "stays closed on successes",
			failures:      3,
			requests:      []bool{true, true, true},
			expectedState: StateClosed,
		},
		{
			name:          "opens after consecutive failures",
			failures:      3,
			requests:      []bool{false, false, false},
			expectedState: StateOpen,
		},
		{
			name:          "success resets the failure streak",
			failures:      3,
			requests:      []bool{false, false, true, false, false},
			expectedState: StateClosed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			breaker, _ := newTestBreaker(tt.failures, time.Minute)

			for _, success := range tt.requests {
				_ = breaker.Do(func() error {
					if success {
						return nil
					}
					return errLaunch
				})
			}

			assert.Equal(t, tt.expectedState, breaker.State())
		})
	}
}

func TestBreakerRejectsWhileOpen(t *testing.T) {
	breaker, _ := newTestBreaker(1, time.Minute)

	require.ErrorIs(t, breaker.Do(func() error { return errLaunch }), errLaunch)

	called := false
	err := breaker.Do(func() error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestBreakerHalfOpenProbe(t *testing.T) {
	var mu sync.Mutex
	var transitions []string
	breaker, now := newTestBreaker(1, 10*time.Second)
	breaker.settings.OnStateChange = func(_ string, from, to State) {
		mu.Lock()
		transitions = append(transitions, from.String()+"->"+to.String())
		mu.Unlock()
	}

	_ = breaker.Do(func() error { return errLaunch })
	require.Equal(t, StateOpen, breaker.State())

	*now = now.Add(10 * time.Second)
	assert.Equal(t, StateHalfOpen, breaker.State())

	// A failed probe reopens immediately.
	_ = breaker.Do(func() error { return errLaunch })
	assert.Equal(t, StateOpen, breaker.State())

	*now = now.Add(10 * time.Second)
	require.NoError(t, breaker.Do(func() error { return nil }))
	assert.Equal(t, StateClosed, breaker.State())

	assert.Equal(t, []string{
		"closed->open",
		"open->half-open",
		"half-open->open",
		"open->half-open",
		"half-open->closed",
	}, transitions)
}

func TestBreakerSingleProbe(t *testing.T) {
	breaker, now := newTestBreaker(1, time.Second)
	_ = breaker.Do(func() error { return errLaunch })
	*now = now.Add(time.Second)

	inProbe := make(chan struct{})
	finish := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- breaker.Do(func() error {
			close(inProbe)
			<-finish
			return nil
		})
	}()

	<-inProbe
	assert.ErrorIs(t, breaker.Do(func() error { return nil }), ErrCircuitOpen)
	close(finish)
	assert.NoError(t, <-done)
	assert.Equal(t, StateClosed, breaker.State())
}

func TestBreakerPanicCountsAsFailure(t *testing.T) {
	breaker, _ := newTestBreaker(1, time.Minute)

	assert.Panics(t, func() {
		_ = breaker.Do(func() error { panic("engine crashed") })
	})
	assert.Equal(t, StateOpen, breaker.State())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "unknown", State(42).String())
}
