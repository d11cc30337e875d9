package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Fetch pipeline metrics
	FetchOutcomes     *prometheus.CounterVec
	FetchDuration     *prometheus.HistogramVec
	SessionsActive    prometheus.Gauge
	LaunchFailures    prometheus.Counter
	StabilizeTimeouts prometheus.Counter
	Challenges        *prometheus.CounterVec
	AdmissionRejected prometheus.Counter

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time

	snapshot Snapshot
	mu       sync.RWMutex
}

// Snapshot holds current values for the JSON health endpoint.
type Snapshot struct {
	Fetches        int64   `json:"fetches"`
	Failures       int64   `json:"failures"`
	ActiveSessions int64   `json:"activeSessions"`
	AvgFetchMillis float64 `json:"avgFetchMillis"`
	UptimeSeconds  float64 `json:"uptimeSeconds"`

	totalFetchSeconds float64
}

// NewMetrics registers the collectors with reg. Pass
// prometheus.DefaultRegisterer in production and a fresh registry in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	fetchBuckets := []float64{.25, .5, 1, 2.5, 5, 10, 20, 30, 45, 60, 90, 120}

	m := &Metrics{
		startTime: time.Now(),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "feedproxy_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "feedproxy_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: fetchBuckets,
			},
			[]string{"method", "path"},
		),
		ResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "feedproxy_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method", "path"},
		),

		FetchOutcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "feedproxy_fetch_outcomes_total",
				Help: "Fetch outcomes by result and extraction source",
			},
			[]string{"outcome", "source"},
		),
		FetchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "feedproxy_fetch_duration_seconds",
				Help:    "Time from session acquisition to outcome",
				Buckets: fetchBuckets,
			},
			[]string{"outcome"},
		),
		SessionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "feedproxy_browser_sessions_active",
				Help: "Number of browser sessions currently held",
			},
		),
		LaunchFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "feedproxy_browser_launch_failures_total",
				Help: "Browser launches that failed or were rejected by the breaker",
			},
		),
		StabilizeTimeouts: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "feedproxy_stabilize_timeouts_total",
				Help: "Secondary load waits that expired and fell back to the settle delay",
			},
		),
		Challenges: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "feedproxy_challenges_detected_total",
				Help: "Challenge pages observed during stabilization",
			},
			[]string{"marker"},
		),
		AdmissionRejected: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "feedproxy_admission_rejected_total",
				Help: "Requests rejected because no session slot freed up in time",
			},
		),

		Uptime: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "feedproxy_uptime_seconds",
				Help: "Process uptime in seconds",
			},
		),
	}

	go m.updateUptime()

	return m
}

// RecordHTTPRequest records HTTP request metrics
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, respSize int64) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))
}

// RecordFetch records one resolved fetch.
func (m *Metrics) RecordFetch(outcome, source string, duration time.Duration) {
	m.FetchOutcomes.WithLabelValues(outcome, source).Inc()
	m.FetchDuration.WithLabelValues(outcome).Observe(duration.Seconds())

	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshot.Fetches++
	if outcome != "success" {
		m.snapshot.Failures++
	}
	m.snapshot.totalFetchSeconds += duration.Seconds()
}

// SessionOpened increments the active browser gauge.
func (m *Metrics) SessionOpened() {
	m.SessionsActive.Inc()
	m.mu.Lock()
	m.snapshot.ActiveSessions++
	m.mu.Unlock()
}

// SessionClosed decrements the active browser gauge.
func (m *Metrics) SessionClosed() {
	m.SessionsActive.Dec()
	m.mu.Lock()
	m.snapshot.ActiveSessions--
	m.mu.Unlock()
}

// LaunchFailed counts a failed or rejected browser launch.
func (m *Metrics) LaunchFailed() {
	m.LaunchFailures.Inc()
}

// StabilizeTimedOut counts a non-fatal stabilize timeout.
func (m *Metrics) StabilizeTimedOut() {
	m.StabilizeTimeouts.Inc()
}

// ChallengeDetected counts a challenge marker seen on a page.
func (m *Metrics) ChallengeDetected(marker string) {
	m.Challenges.WithLabelValues(marker).Inc()
}

// AdmissionRejectedInc counts a request turned away by admission control.
func (m *Metrics) AdmissionRejectedInc() {
	m.AdmissionRejected.Inc()
}

// GetSnapshot returns current values for JSON consumers.
func (m *Metrics) GetSnapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := m.snapshot
	if s.Fetches > 0 {
		s.AvgFetchMillis = s.totalFetchSeconds / float64(s.Fetches) * 1000
	}
	s.UptimeSeconds = time.Since(m.startTime).Seconds()
	return s
}

func (m *Metrics) updateUptime() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		m.Uptime.Set(time.Since(m.startTime).Seconds())
	}
}
