package feed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const challengeMarkup = `<html><head><title>Just a moment...</title></head><body><h2 id="challenge-running">Checking your browser</h2></body></html>`

func TestDriveEarlyExit(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		status      int
		sniff       bool
		wantState   State
	}{
		{"xml content type", "application/xml", rssFeed, 200, true, StateEarlyExit},
		{"rss content type with charset", "application/rss+xml; charset=utf-8", rssFeed, 200, true, StateEarlyExit},
		{"atom as text/xml", "text/xml", atomFeed, 200, true, StateEarlyExit},
		{"xml type but html body", "application/xhtml+xml", "<html><body>hi</body></html>", 200, true, StateStabilized},
		{"html content type", "text/html", rssFeed, 200, true, StateStabilized},
		{"non-2xx response", "application/xml", rssFeed, 403, true, StateStabilized},
		{"generic type sniffed as xml", "text/plain", rssFeed, 200, true, StateEarlyExit},
		{"generic type without sniffing", "text/plain", rssFeed, 200, false, StateStabilized},
		{"empty body", "application/xml", "", 200, true, StateStabilized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := testOptions()
			opts.SniffContentType = tt.sniff
			page := &fakePage{
				navigate: func(_ context.Context, url string) (*DocumentResponse, error) {
					return &DocumentResponse{URL: url, Status: tt.status, ContentType: tt.contentType, Body: []byte(tt.body)}, nil
				},
				currentURL: "https://example.com/feed",
			}

			out := NewNavigator(opts, NoDelay{}).Drive(context.Background(), page, "https://example.com/feed")

			assert.Equal(t, tt.wantState, out.State)
			if tt.wantState == StateEarlyExit {
				assert.Equal(t, []byte(tt.body), out.RawBody)
				assert.Zero(t, page.HTMLCalls(), "early exit must not read the page")
			}
		})
	}
}

func TestDriveRecordsFinalURL(t *testing.T) {
	page := &fakePage{currentURL: "https://example.com/redirected"}

	out := NewNavigator(testOptions(), NoDelay{}).Drive(context.Background(), page, "https://example.com/start")

	assert.Equal(t, StateStabilized, out.State)
	assert.Equal(t, "https://example.com/redirected", out.FinalURL)
	assert.Nil(t, out.Err)
}

func TestDriveNavigationTimeoutIsNotFatal(t *testing.T) {
	delay := &recordingDelay{}
	page := &fakePage{
		navigate: func(context.Context, string) (*DocumentResponse, error) {
			return nil, context.DeadlineExceeded
		},
		currentURL: "https://example.com/slow",
	}

	out := NewNavigator(testOptions(), delay).Drive(context.Background(), page, "https://example.com/slow")

	assert.Equal(t, StateStabilized, out.State)
	require.NotNil(t, out.Err)
	assert.Equal(t, KindNavigationTimeout, out.Err.Kind)
	assert.False(t, out.Err.Kind.Fatal())
}

func TestDriveNavigationTimeoutUsesDeadline(t *testing.T) {
	opts := testOptions()
	opts.NavigationTimeout = 20 * time.Millisecond
	page := &fakePage{
		navigate: func(ctx context.Context, _ string) (*DocumentResponse, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}

	out := NewNavigator(opts, NoDelay{}).Drive(context.Background(), page, "https://example.com/hang")

	require.NotNil(t, out.Err)
	assert.Equal(t, KindNavigationTimeout, out.Err.Kind)
}

func TestDriveNavigationError(t *testing.T) {
	page := &fakePage{
		navigate: func(context.Context, string) (*DocumentResponse, error) {
			return nil, errors.New("net::ERR_NAME_NOT_RESOLVED")
		},
	}

	out := NewNavigator(testOptions(), NoDelay{}).Drive(context.Background(), page, "https://nowhere.invalid")

	assert.Equal(t, StateErrored, out.State)
	require.NotNil(t, out.Err)
	assert.Equal(t, KindUnhandledFault, out.Err.Kind)
	assert.ErrorContains(t, out.Err, "ERR_NAME_NOT_RESOLVED")
}

func TestDriveStabilizeTimeoutSettles(t *testing.T) {
	delay := &recordingDelay{}
	rec := &countingRecorder{}
	page := &fakePage{
		waitStable: func(context.Context) error { return context.DeadlineExceeded },
	}

	out := NewNavigator(testOptions(), delay).WithRecorder(rec).
		Drive(context.Background(), page, "https://example.com/feed")

	assert.Equal(t, StateStabilized, out.State)
	assert.Nil(t, out.Err, "stabilize timeout is not reported as an error")
	assert.Equal(t, []time.Duration{3 * time.Second}, delay.Waits())
	assert.Equal(t, 1, rec.stabilizeTimeouts)
}

func TestDriveWaitsOutChallenge(t *testing.T) {
	delay := &recordingDelay{}
	rec := &countingRecorder{}
	page := &fakePage{
		pages: []string{challengeMarkup, challengeMarkup, "<html><body><pre>feed</pre></body></html>"},
	}

	out := NewNavigator(testOptions(), delay).WithRecorder(rec).
		Drive(context.Background(), page, "https://example.com/feed")

	assert.Equal(t, StateStabilized, out.State)
	assert.Equal(t, "title:just a moment", out.Challenge)
	assert.Equal(t, []string{"title:just a moment"}, rec.challenges)
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 100 * time.Millisecond}, delay.Waits())
	assert.Zero(t, rec.stabilizeTimeouts)
}

func TestDrivePersistentChallengeIsBounded(t *testing.T) {
	delay := &recordingDelay{}
	page := &fakePage{pages: []string{challengeMarkup}}

	out := NewNavigator(testOptions(), delay).Drive(context.Background(), page, "https://example.com/feed")

	assert.Equal(t, StateStabilized, out.State)
	assert.Equal(t, "title:just a moment", out.Challenge)

	waits := delay.Waits()
	require.NotEmpty(t, waits)
	assert.Equal(t, 3*time.Second, waits[len(waits)-1], "ends with the settle delay")
	assert.LessOrEqual(t, len(waits), 12)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "early_exit", StateEarlyExit.String())
	assert.Equal(t, "stabilized", StateStabilized.String())
	assert.Equal(t, "errored", StateErrored.String())
	assert.Equal(t, "unknown", State(99).String())
}
