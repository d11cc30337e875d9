package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RequestIDHeader is echoed by the proxy on every response.
const RequestIDHeader = "X-Request-ID"

// ErrEmptyURL is returned by Fetch before any request is sent.
var ErrEmptyURL = errors.New("feed url is empty")

// Feed is a successfully proxied feed document.
type Feed struct {
	Body        []byte
	ContentType string
	RequestID   string
}

// Diagnostic is the JSON body the proxy returns when a page was loaded
// but no feed could be extracted from it.
type Diagnostic struct {
	Status           string `json:"status"`
	Message          string `json:"message"`
	CurrentURL       string `json:"currentUrl"`
	HTMLSnippet      string `json:"debugHtmlSnippet"`
	ScreenshotBase64 string `json:"screenshotBase64,omitempty"`
	Challenge        string `json:"challenge,omitempty"`
}

// ProxyError is a non-2xx answer from the proxy. Diagnostic is nil when
// the proxy answered with plain text.
type ProxyError struct {
	StatusCode int
	Message    string
	RequestID  string
	Diagnostic *Diagnostic
}

func (e *ProxyError) Error() string {
	return fmt.Sprintf("proxy returned %d: %s", e.StatusCode, e.Message)
}

// Client calls a feed proxy.
type Client struct {
	Resty   *resty.Client
	Limiter *rate.Limiter
	Mu      sync.RWMutex

	retry *retryablehttp.Client
}

// New creates a client for the proxy at baseURL. Transport errors and 5xx
// or 429 answers are retried with exponential backoff; the last response
// is returned once retries run out.
func New(baseURL string) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 2
	retryClient.RetryWaitMin = 2 * time.Second
	retryClient.RetryWaitMax = 30 * time.Second
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	retryClient.Logger = nil

	restyClient := resty.NewWithClient(retryClient.StandardClient())
	restyClient.
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(5*time.Minute).
		SetHeader("User-Agent", "feedfetch/1.0")
	restyClient.JSONMarshal = sonic.Marshal
	restyClient.JSONUnmarshal = sonic.Unmarshal

	return &Client{
		Resty:   restyClient,
		Limiter: rate.NewLimiter(rate.Inf, 0),
		retry:   retryClient,
	}
}

// SetRetry configures retry behavior. maxRetries of 0 disables retries.
func (c *Client) SetRetry(maxRetries int, minWait, maxWait time.Duration) *Client {
	c.Mu.Lock()
	defer c.Mu.Unlock()
	c.retry.RetryMax = maxRetries
	c.retry.RetryWaitMin = minWait
	c.retry.RetryWaitMax = maxWait
	return c
}

// SetTimeout bounds one Fetch including all retries.
func (c *Client) SetTimeout(d time.Duration) *Client {
	c.Mu.Lock()
	defer c.Mu.Unlock()
	c.Resty.SetTimeout(d)
	return c
}

// SetRateLimit spaces out requests from this client.
func (c *Client) SetRateLimit(rps float64, burst int) *Client {
	c.Mu.Lock()
	defer c.Mu.Unlock()
	c.Limiter = rate.NewLimiter(rate.Limit(rps), burst)
	return c
}

// SetLogger logs each retry attempt.
func (c *Client) SetLogger(l *zap.Logger) *Client {
	c.Mu.Lock()
	defer c.Mu.Unlock()
	if l == nil {
		c.retry.Logger = nil
	} else {
		c.retry.Logger = leveledLogger{l.Sugar()}
	}
	return c
}

// Fetch asks the proxy for feedURL.
func (c *Client) Fetch(ctx context.Context, feedURL string) (*Feed, error) {
	if strings.TrimSpace(feedURL) == "" {
		return nil, ErrEmptyURL
	}

	c.Mu.RLock()
	limiter := c.Limiter
	c.Mu.RUnlock()
	if err := limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	resp, err := c.Resty.R().
		SetContext(ctx).
		SetQueryParam("url", feedURL).
		SetHeader("Accept", "application/xml, application/json;q=0.9, text/plain;q=0.8").
		SetError(&Diagnostic{}).
		Get("/")
	if err != nil {
		return nil, fmt.Errorf("request proxy: %w", err)
	}

	reqID := resp.Header().Get(RequestIDHeader)
	if resp.IsSuccess() {
		return &Feed{
			Body:        resp.Body(),
			ContentType: resp.Header().Get("Content-Type"),
			RequestID:   reqID,
		}, nil
	}

	perr := &ProxyError{
		StatusCode: resp.StatusCode(),
		Message:    strings.TrimSpace(string(resp.Body())),
		RequestID:  reqID,
	}
	if d, ok := resp.Error().(*Diagnostic); ok && d.Status != "" {
		perr.Diagnostic = d
		perr.Message = d.Message
	}
	if perr.Message == "" {
		perr.Message = http.StatusText(perr.StatusCode)
	}
	return nil, perr
}

// Health returns the proxy's /health document.
func (c *Client) Health(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	resp, err := c.Resty.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/health")
	if err != nil {
		return nil, fmt.Errorf("request health: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, &ProxyError{StatusCode: resp.StatusCode(), Message: resp.String()}
	}
	return out, nil
}

// leveledLogger adapts zap to retryablehttp.LeveledLogger.
type leveledLogger struct {
	s *zap.SugaredLogger
}

func (l leveledLogger) Error(msg string, kv ...interface{}) { l.s.Errorw(msg, kv...) }
func (l leveledLogger) Info(msg string, kv ...interface{})  { l.s.Infow(msg, kv...) }
func (l leveledLogger) Debug(msg string, kv ...interface{}) { l.s.Debugw(msg, kv...) }
func (l leveledLogger) Warn(msg string, kv ...interface{})  { l.s.Warnw(msg, kv...) }
