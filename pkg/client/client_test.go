package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const rssFeed = `<?xml version="1.0"?><rss version="2.0"><channel><title>t</title></channel></rss>`

func newTestClient(url string, retries int) *Client {
	return New(url).SetRetry(retries, time.Millisecond, 5*time.Millisecond)
}

func TestFetchSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/", r.URL.Path)
		assert.Equal(t, "https://example.com/rss?a=1&b=2", r.URL.Query().Get("url"))
		w.Header().Set("Content-Type", "application/xml; charset=utf-8")
		w.Header().Set(RequestIDHeader, "req_01")
		_, _ = w.Write([]byte(rssFeed))
	}))
	defer srv.Close()

	feed, err := newTestClient(srv.URL+"/", 0).Fetch(context.Background(), "https://example.com/rss?a=1&b=2")

	require.NoError(t, err)
	assert.Equal(t, rssFeed, string(feed.Body))
	assert.Equal(t, "application/xml; charset=utf-8", feed.ContentType)
	assert.Equal(t, "req_01", feed.RequestID)
}

func TestFetchEmptyURL(t *testing.T) {
	_, err := New("http://127.0.0.1:1").Fetch(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrEmptyURL)
}

func TestFetchDiagnosticAfterRetries(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"status":"error","message":"Could not extract valid XML content.",` +
			`"currentUrl":"https://example.com/blocked","debugHtmlSnippet":"<h1>Access Denied</h1>",` +
			`"challenge":"title:just a moment"}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 2).SetLogger(zaptest.NewLogger(t))
	_, err := c.Fetch(context.Background(), "https://example.com/blocked")

	var perr *ProxyError
	require.True(t, errors.As(err, &perr), "got %v", err)
	assert.Equal(t, http.StatusInternalServerError, perr.StatusCode)
	require.NotNil(t, perr.Diagnostic)
	assert.Equal(t, "https://example.com/blocked", perr.Diagnostic.CurrentURL)
	assert.Equal(t, "<h1>Access Denied</h1>", perr.Diagnostic.HTMLSnippet)
	assert.Equal(t, "title:just a moment", perr.Diagnostic.Challenge)
	assert.Equal(t, "Could not extract valid XML content.", perr.Message)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestFetchRetriesUntilSuccess(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			http.Error(w, "The server encountered an error while launching the browser: boom", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/xml; charset=utf-8")
		_, _ = w.Write([]byte(rssFeed))
	}))
	defer srv.Close()

	feed, err := newTestClient(srv.URL, 3).Fetch(context.Background(), "https://example.com/rss")

	require.NoError(t, err)
	assert.Equal(t, rssFeed, string(feed.Body))
	assert.Equal(t, int32(2), attempts.Load())
}

func TestFetchBadRequestIsNotRetried(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("Please provide a valid URL parameter."))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, 3).Fetch(context.Background(), "not-a-url")

	var perr *ProxyError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, http.StatusBadRequest, perr.StatusCode)
	assert.Equal(t, "Please provide a valid URL parameter.", perr.Message)
	assert.Nil(t, perr.Diagnostic)
	assert.Equal(t, int32(1), attempts.Load())
}

func TestFetchRateLimitRespectsContext(t *testing.T) {
	c := New("http://127.0.0.1:1").SetRateLimit(0.001, 1)
	c.Limiter.Allow()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := c.Fetch(ctx, "https://example.com/rss")
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"healthy","launch_breaker":"closed"}`))
	}))
	defer srv.Close()

	out, err := newTestClient(srv.URL, 0).Health(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "healthy", out["status"])
}
