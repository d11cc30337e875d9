package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/GriffinCanCode/feedproxy/internal/feed"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"go.uber.org/zap"
)

// Launcher starts one Chromium process per call.
type Launcher struct {
	logger *zap.Logger
	// DOMQuiet is how long the DOM must stay unchanged for WaitStable.
	DOMQuiet time.Duration
}

// NewLauncher creates a launcher.
func NewLauncher(logger *zap.Logger) *Launcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Launcher{logger: logger, DOMQuiet: time.Second}
}

// Launch implements feed.Launcher.
func (l *Launcher) Launch(ctx context.Context, opts feed.LaunchOptions) (feed.Browser, error) {
	lc := newProcess(ctx, opts)

	controlURL, err := lc.Launch()
	if err != nil {
		// Cleanup would block on a process that never started.
		lc.Kill()
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	rb := rod.New().ControlURL(controlURL)
	if err := rb.Connect(); err != nil {
		lc.Kill()
		lc.Cleanup()
		return nil, fmt.Errorf("connect to browser: %w", err)
	}

	if err := (proto.SecuritySetIgnoreCertificateErrors{Ignore: true}).Call(rb); err != nil {
		l.logger.Debug("failed to disable certificate checks over CDP", zap.Error(err))
	}

	return &Browser{
		browser:  rb,
		process:  lc,
		opts:     opts,
		domQuiet: l.DOMQuiet,
		logger:   l.logger,
	}, nil
}

// newProcess builds the launcher command line. The process outlives ctx's
// cancellation so failure diagnostics can still read the page; Close kills it.
func newProcess(ctx context.Context, opts feed.LaunchOptions) *launcher.Launcher {
	lc := launcher.New().
		Context(context.WithoutCancel(ctx)).
		Headless(opts.Headless).
		NoSandbox(true).
		Set("disable-setuid-sandbox").
		Set("disable-infobars").
		Set("ignore-certificate-errors").
		Set("window-position", "0,0")

	if opts.Bin != "" {
		lc = lc.Bin(opts.Bin)
	}
	if opts.UserAgent != "" {
		lc = lc.Set("user-agent", opts.UserAgent)
	}
	if opts.WindowWidth > 0 && opts.WindowHeight > 0 {
		lc = lc.Set("window-size", fmt.Sprintf("%d,%d", opts.WindowWidth, opts.WindowHeight))
	}
	for name, value := range opts.ExtraFlags {
		if value == "" {
			lc = lc.Set(flags.Flag(name))
		} else {
			lc = lc.Set(flags.Flag(name), value)
		}
	}
	return lc
}

// Browser is a launched Chromium process.
type Browser struct {
	browser  *rod.Browser
	process  *launcher.Launcher
	opts     feed.LaunchOptions
	domQuiet time.Duration
	logger   *zap.Logger
}

// NewPage implements feed.Browser. The page has the stealth patches,
// user agent and viewport applied before it is returned.
func (b *Browser) NewPage(ctx context.Context) (feed.Page, error) {
	page, err := stealth.Page(b.browser.Context(ctx))
	if err != nil {
		return nil, fmt.Errorf("create stealth page: %w", err)
	}

	if b.opts.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: b.opts.UserAgent}); err != nil {
			return nil, fmt.Errorf("set user agent: %w", err)
		}
	}
	if b.opts.WindowWidth > 0 && b.opts.WindowHeight > 0 {
		err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             b.opts.WindowWidth,
			Height:            b.opts.WindowHeight,
			DeviceScaleFactor: 1,
		})
		if err != nil {
			return nil, fmt.Errorf("set viewport: %w", err)
		}
	}

	return &Page{page: page, domQuiet: b.domQuiet, logger: b.logger}, nil
}

// Close implements feed.Browser.
func (b *Browser) Close() error {
	err := b.browser.Close()
	b.process.Kill()
	b.process.Cleanup()
	if err != nil {
		return fmt.Errorf("close browser: %w", err)
	}
	return nil
}
