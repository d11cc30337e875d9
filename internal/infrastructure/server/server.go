package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzhttp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	handlers "github.com/GriffinCanCode/feedproxy/internal/api/http"
	"github.com/GriffinCanCode/feedproxy/internal/api/middleware"
	"github.com/GriffinCanCode/feedproxy/internal/feed"
	"github.com/GriffinCanCode/feedproxy/internal/infrastructure/config"
	"github.com/GriffinCanCode/feedproxy/internal/infrastructure/logging"
	"github.com/GriffinCanCode/feedproxy/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/feedproxy/internal/infrastructure/resilience"
)

// Server wraps the HTTP server and dependencies
type Server struct {
	router   *gin.Engine
	http     *http.Server
	logger   *logging.Logger
	config   *config.Config
	metrics  *monitoring.Metrics
	registry *prometheus.Registry
	breaker  *resilience.Breaker
}

// NewServer wires the fetch pipeline around launcher and builds the router.
func NewServer(cfg *config.Config, logger *logging.Logger, launcher feed.Launcher) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("server: nil config")
	}
	if launcher == nil {
		return nil, errors.New("server: nil browser launcher")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	logger.Info("Initializing feed proxy",
		zap.String("port", cfg.Server.Port),
		zap.Bool("headless", cfg.Browser.Headless),
		zap.Int("user_agents", len(cfg.Browser.UserAgents)),
		zap.Duration("fetch_deadline", cfg.Fetch.Deadline),
	)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := monitoring.NewMetrics(registry)

	sessions := feed.NewSessionManager(launcher, feed.SessionConfig{
		Bin:          cfg.Browser.Bin,
		Headless:     cfg.Browser.Headless,
		UserAgents:   cfg.Browser.UserAgents,
		WindowWidth:  cfg.Browser.WindowWidth,
		WindowHeight: cfg.Browser.WindowHeight,
		ExtraFlags:   cfg.Browser.ExtraFlags,
	}).WithRecorder(metrics).WithLogger(logger.Logger)

	var breaker *resilience.Breaker
	if cfg.Breaker.Enabled {
		breaker = resilience.New("browser-launch", resilience.Settings{
			Failures: cfg.Breaker.Failures,
			Cooldown: cfg.Breaker.Cooldown,
			OnStateChange: func(name string, from, to resilience.State) {
				logger.Warn("Circuit breaker state changed",
					zap.String("breaker", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()),
				)
			},
		})
		sessions.WithBreaker(breaker)
	}

	resolver := feed.NewResolver(sessions, FetchOptions(cfg), feed.RealDelay{}).
		WithRecorder(metrics).
		WithLogger(logger.Logger)

	admission := resilience.NewAdmission(cfg.Admission.MaxConcurrent, cfg.Admission.Wait)
	if admission.Limited() {
		logger.Info("Admission control enabled",
			zap.Int64("max_sessions", cfg.Admission.MaxConcurrent),
			zap.Duration("wait", cfg.Admission.Wait),
		)
	}

	h := handlers.NewHandlers(resolver, cfg.Fetch.Deadline).
		WithAdmission(admission).
		WithBreaker(breaker).
		WithMetrics(metrics).
		WithAllowedHosts(cfg.Fetch.AllowedHosts).
		WithLogger(logger.Logger)

	// Create router
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.AccessLog(logger.Logger))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		rl := middleware.DefaultRateLimitConfig()
		rl.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		rl.Burst = cfg.RateLimit.Burst
		router.Use(middleware.RateLimit(rl))
	}

	// Register routes
	router.GET("/", h.Fetch)
	router.GET("/health", h.Health)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{
		Registry:           registry,
		DisableCompression: cfg.Server.Compression,
	})))

	var handler http.Handler = router
	if cfg.Server.Compression {
		handler = gzhttp.GzipHandler(router)
		logger.Info("Response compression enabled")
	}

	logger.Info("Server initialized successfully")

	return &Server{
		router: router,
		http: &http.Server{
			Addr:    net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
			Handler: handler,
		},
		logger:   logger,
		config:   cfg,
		metrics:  metrics,
		registry: registry,
		breaker:  breaker,
	}, nil
}

// FetchOptions maps configuration onto pipeline timings.
func FetchOptions(cfg *config.Config) feed.Options {
	opts := feed.DefaultOptions()
	opts.NavigationTimeout = cfg.Fetch.NavigationTimeout
	opts.StabilizeTimeout = cfg.Fetch.StabilizeTimeout
	opts.SettleDelay = cfg.Fetch.SettleDelay
	opts.ChallengePollInterval = cfg.Fetch.ChallengePollInterval
	opts.MinContentLength = cfg.Fetch.MinContentLength
	opts.SniffContentType = cfg.Fetch.SniffContentType
	return opts
}

// Handler returns the root handler including optional compression.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Run starts the HTTP server and blocks until it stops. A graceful
// Shutdown makes Run return nil.
func (s *Server) Run() error {
	s.logger.Info("Starting HTTP server", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight fetches,
// each of which releases its own browser, until ctx ends.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")

	err := s.http.Shutdown(ctx)
	if err != nil {
		s.logger.Error("Failed to shut down cleanly", zap.Error(err))
		err = fmt.Errorf("failed to shut down http server: %w", err)
	}

	// Sync logger before exit
	_ = s.logger.Sync()

	return err
}
