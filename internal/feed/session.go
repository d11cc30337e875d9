package feed

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/GriffinCanCode/feedproxy/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/feedproxy/internal/shared/id"
	"go.uber.org/zap"
)

// SessionConfig describes how every browser is launched.
type SessionConfig struct {
	Bin          string
	Headless     bool
	UserAgents   []string
	WindowWidth  int
	WindowHeight int
	ExtraFlags   map[string]string
}

// Session is one browser process and its page, owned by a single fetch.
type Session struct {
	ID        id.SessionID
	UserAgent string

	browser Browser
	page    Page
	once    sync.Once
}

// Page returns the session's page.
func (s *Session) Page() Page {
	return s.page
}

// reachablePage returns the session page, opening a blank one if the
// session has none.
func (s *Session) reachablePage(ctx context.Context) (Page, error) {
	if s.page != nil {
		return s.page, nil
	}
	page, err := s.browser.NewPage(ctx)
	if err != nil {
		return nil, err
	}
	s.page = page
	return page, nil
}

// SessionManager launches and tears down per-request browsers.
type SessionManager struct {
	launcher Launcher
	cfg      SessionConfig
	breaker  *resilience.Breaker
	recorder Recorder
	logger   *zap.Logger
}

// NewSessionManager creates a manager launching through launcher.
func NewSessionManager(launcher Launcher, cfg SessionConfig) *SessionManager {
	return &SessionManager{
		launcher: launcher,
		cfg:      cfg,
		recorder: nopRecorder{},
		logger:   zap.NewNop(),
	}
}

// WithBreaker guards launches with a circuit breaker.
func (m *SessionManager) WithBreaker(b *resilience.Breaker) *SessionManager {
	m.breaker = b
	return m
}

// WithRecorder reports session events to r.
func (m *SessionManager) WithRecorder(r Recorder) *SessionManager {
	if r != nil {
		m.recorder = r
	}
	return m
}

// WithLogger sets the logger.
func (m *SessionManager) WithLogger(l *zap.Logger) *SessionManager {
	if l != nil {
		m.logger = l
	}
	return m
}

// Acquire launches a browser and opens one stealth page. It never retries.
// Every returned error is a *Error of KindSessionAcquisition.
func (m *SessionManager) Acquire(ctx context.Context) (*Session, error) {
	s := &Session{
		ID:        id.NewSessionID(),
		UserAgent: m.pickUserAgent(),
	}
	opts := LaunchOptions{
		Bin:          m.cfg.Bin,
		Headless:     m.cfg.Headless,
		UserAgent:    s.UserAgent,
		WindowWidth:  m.cfg.WindowWidth,
		WindowHeight: m.cfg.WindowHeight,
		ExtraFlags:   m.cfg.ExtraFlags,
	}

	launch := func() error {
		b, err := m.launcher.Launch(ctx, opts)
		if err != nil {
			return err
		}
		s.browser = b
		return nil
	}

	var err error
	if m.breaker != nil {
		err = m.breaker.Do(launch)
	} else {
		err = launch()
	}
	if err != nil {
		m.recorder.LaunchFailed()
		if errors.Is(err, resilience.ErrCircuitOpen) {
			err = fmt.Errorf("browser launches suspended after repeated failures: %w", err)
		}
		return nil, newError(KindSessionAcquisition, "", err)
	}

	page, err := m.openPage(ctx, s.browser)
	if err != nil {
		if cerr := s.browser.Close(); cerr != nil {
			m.logger.Warn("failed to close browser after page error",
				zap.String("session_id", s.ID.String()), zap.Error(cerr))
		}
		m.recorder.LaunchFailed()
		return nil, newError(KindSessionAcquisition, "", fmt.Errorf("open page: %w", err))
	}
	s.page = page

	m.recorder.SessionOpened()
	m.logger.Debug("browser session acquired",
		zap.String("session_id", s.ID.String()), zap.String("user_agent", s.UserAgent))
	return s, nil
}

// openPage opens the session page. A panic inside the engine becomes an
// error so Acquire can still close the launched browser.
func (m *SessionManager) openPage(ctx context.Context, b Browser) (page Page, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			page, err = nil, fmt.Errorf("panic: %v", rec)
		}
	}()
	return b.NewPage(ctx)
}

// Release closes the session's browser. Only the first call has effect;
// close errors are logged, not returned.
func (m *SessionManager) Release(s *Session) {
	if s == nil {
		return
	}
	s.once.Do(func() {
		if err := s.browser.Close(); err != nil {
			m.logger.Warn("failed to close browser",
				zap.String("session_id", s.ID.String()), zap.Error(err))
		}
		m.recorder.SessionClosed()
		m.logger.Debug("browser session released", zap.String("session_id", s.ID.String()))
	})
}

func (m *SessionManager) pickUserAgent() string {
	switch n := len(m.cfg.UserAgents); n {
	case 0:
		return ""
	case 1:
		return m.cfg.UserAgents[0]
	default:
		return m.cfg.UserAgents[rand.IntN(n)]
	}
}
