package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/GriffinCanCode/feedproxy/internal/api/middleware"
	"github.com/GriffinCanCode/feedproxy/internal/feed"
	"github.com/GriffinCanCode/feedproxy/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/feedproxy/internal/infrastructure/resilience"
	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	invalidURLMessage     = "Please provide a valid URL parameter."
	hostNotAllowedMessage = "The requested host is not allowed by this proxy."
	busyMessage           = "The server is busy. Please retry shortly."

	textContentType = "text/plain; charset=utf-8"
	jsonContentType = "application/json; charset=utf-8"
)

// FeedResolver runs one fetch to completion.
type FeedResolver interface {
	Resolve(ctx context.Context, req feed.FetchRequest) feed.FetchOutcome
}

// Handlers contains the HTTP handlers of the proxy
type Handlers struct {
	resolver     FeedResolver
	admission    *resilience.Admission
	breaker      *resilience.Breaker
	metrics      *monitoring.Metrics
	allowedHosts []string
	deadline     time.Duration
	logger       *zap.Logger
}

// NewHandlers creates a handler set. deadline bounds each fetch
// independently of the client connection; zero means no bound.
func NewHandlers(resolver FeedResolver, deadline time.Duration) *Handlers {
	return &Handlers{
		resolver:  resolver,
		admission: resilience.NewAdmission(0, 0),
		deadline:  deadline,
		logger:    zap.NewNop(),
	}
}

// WithAdmission limits concurrent fetches.
func (h *Handlers) WithAdmission(a *resilience.Admission) *Handlers {
	if a != nil {
		h.admission = a
	}
	return h
}

// WithBreaker reports the launch breaker state on /health.
func (h *Handlers) WithBreaker(b *resilience.Breaker) *Handlers {
	h.breaker = b
	return h
}

// WithMetrics enables admission counters and the /health snapshot.
func (h *Handlers) WithMetrics(m *monitoring.Metrics) *Handlers {
	h.metrics = m
	return h
}

// WithAllowedHosts restricts targets to hosts matching the glob patterns.
func (h *Handlers) WithAllowedHosts(patterns []string) *Handlers {
	h.allowedHosts = patterns
	return h
}

// WithLogger sets the handler logger.
func (h *Handlers) WithLogger(l *zap.Logger) *Handlers {
	if l != nil {
		h.logger = l
	}
	return h
}

// Fetch handles GET /?url=...
func (h *Handlers) Fetch(c *gin.Context) {
	reqID := middleware.GetRequestID(c)

	target, err := feed.ParseTarget(c.Query("url"), h.allowedHosts)
	if err != nil {
		h.logger.Info("rejected fetch request",
			zap.String("request_id", reqID),
			zap.String("url", c.Query("url")),
			zap.Error(err))
		if errors.Is(err, feed.ErrHostNotAllowed) {
			c.Data(http.StatusForbidden, textContentType, []byte(hostNotAllowedMessage))
			return
		}
		c.Data(http.StatusBadRequest, textContentType, []byte(invalidURLMessage))
		return
	}

	// The fetch keeps running if the client goes away; only the deadline
	// stops it.
	ctx := context.WithoutCancel(c.Request.Context())
	if h.deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.deadline)
		defer cancel()
	}

	release, err := h.admission.Acquire(ctx)
	if err != nil {
		if h.metrics != nil {
			h.metrics.AdmissionRejectedInc()
		}
		h.logger.Warn("no session slot available",
			zap.String("request_id", reqID),
			zap.String("target", target.String()),
			zap.Error(err))
		c.Header("Retry-After", "5")
		c.Data(http.StatusServiceUnavailable, textContentType, []byte(busyMessage))
		return
	}
	defer release()

	outcome := h.resolver.Resolve(ctx, feed.FetchRequest{
		TargetURL: target.String(),
		RequestID: reqID,
	})
	h.write(c, outcome)
}

func (h *Handlers) write(c *gin.Context, outcome feed.FetchOutcome) {
	if outcome.OK() {
		c.Data(outcome.HTTPStatus, outcome.ContentType, outcome.Body)
		return
	}

	f := outcome.Failure
	if f.Diagnostic == nil {
		c.Data(outcome.HTTPStatus, textContentType, []byte(f.Message))
		return
	}

	body, err := sonic.Marshal(f.Diagnostic)
	if err != nil {
		h.logger.Error("failed to encode diagnostic payload",
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.Error(err))
		c.Data(outcome.HTTPStatus, textContentType, []byte(f.Message))
		return
	}
	c.Data(outcome.HTTPStatus, jsonContentType, body)
}

// Health handles GET /health
func (h *Handlers) Health(c *gin.Context) {
	resp := gin.H{
		"status":  "healthy",
		"service": "feedproxy",
	}
	if h.breaker != nil {
		resp["launch_breaker"] = h.breaker.State().String()
	}
	if h.metrics != nil {
		resp["metrics"] = h.metrics.GetSnapshot()
	}
	c.JSON(http.StatusOK, resp)
}
