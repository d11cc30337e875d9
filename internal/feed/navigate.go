package feed

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/GriffinCanCode/feedproxy/internal/providers/scraper"
	"go.uber.org/zap"
)

var errChallengePersisted = errors.New("challenge page still present")

// Navigator drives one page from Idle to EarlyExit, Stabilized or Errored.
type Navigator struct {
	opts     Options
	delay    Delay
	recorder Recorder
	logger   *zap.Logger
}

// NewNavigator creates a navigator with the given timings.
func NewNavigator(opts Options, delay Delay) *Navigator {
	if delay == nil {
		delay = RealDelay{}
	}
	return &Navigator{
		opts:     opts,
		delay:    delay,
		recorder: nopRecorder{},
		logger:   zap.NewNop(),
	}
}

// WithRecorder reports stabilize timeouts and challenges to r.
func (n *Navigator) WithRecorder(r Recorder) *Navigator {
	if r != nil {
		n.recorder = r
	}
	return n
}

// WithLogger sets the logger.
func (n *Navigator) WithLogger(l *zap.Logger) *Navigator {
	if l != nil {
		n.logger = l
	}
	return n
}

// Drive navigates page to target and waits until its content is worth
// extracting. A navigation timeout is not fatal: the outcome is then
// Stabilized with Err set, and extraction works on whatever loaded.
func (n *Navigator) Drive(ctx context.Context, page Page, target string) NavigationOutcome {
	out := NavigationOutcome{State: StateNavigating, FinalURL: target}
	log := n.logger.With(zap.String("target", target))

	navCtx, cancel := context.WithTimeout(ctx, n.opts.NavigationTimeout)
	resp, err := page.Navigate(navCtx, target)
	cancel()

	switch {
	case err == nil:
	case isNavigationTimeout(err):
		log.Warn("navigation timed out, extracting what loaded",
			zap.Duration("timeout", n.opts.NavigationTimeout))
		out.Err = newError(KindNavigationTimeout, target, err)
		out.State = StateStabilized
		out.FinalURL = n.currentURL(ctx, page, target)
		return out
	default:
		out.State = StateErrored
		out.Err = newError(KindUnhandledFault, target, fmt.Errorf("navigate: %w", err))
		out.FinalURL = n.currentURL(ctx, page, target)
		return out
	}

	if resp != nil {
		out.Status = resp.Status
		out.ContentType = resp.ContentType
		if resp.URL != "" {
			out.FinalURL = resp.URL
		}
	}

	if n.shouldExitEarly(resp) {
		log.Debug("document response is a feed, skipping page wait",
			zap.String("content_type", resp.ContentType))
		out.State = StateEarlyExit
		out.RawBody = resp.Body
		return out
	}

	out.State = StateStabilizing
	out.Challenge = n.stabilize(ctx, page, log)
	out.State = StateStabilized
	out.FinalURL = n.currentURL(ctx, page, out.FinalURL)
	return out
}

// shouldExitEarly reports whether the main document response already is
// the feed: a 2xx response declaring an XML type, or with sniffing on a
// generic type whose body sniffs as XML, and whose body passes the
// classifier.
func (n *Navigator) shouldExitEarly(resp *DocumentResponse) bool {
	if resp == nil || len(resp.Body) == 0 {
		return false
	}
	if resp.Status < 200 || resp.Status > 299 {
		return false
	}
	if !declaresXML(resp.ContentType) {
		if !n.opts.SniffContentType || !scraper.IsGenericContentType(resp.ContentType) || !scraper.SniffXML(resp.Body) {
			return false
		}
	}
	return IsLikelyFeedContent(scraper.DecodeBody(resp.Body, resp.ContentType))
}

// stabilize waits for the secondary load signal, polling while a challenge
// interstitial is shown. Any failure, including expiry of the stabilize
// budget, is logged and followed by the settle delay. It returns the last
// challenge marker seen.
func (n *Navigator) stabilize(ctx context.Context, page Page, log *zap.Logger) string {
	stabCtx, cancel := context.WithTimeout(ctx, n.opts.StabilizeTimeout)
	defer cancel()

	var challenge string
	polls := n.maxPolls()

	err := page.WaitStable(stabCtx)
	for attempt := 0; err == nil; attempt++ {
		marker, perr := n.probeChallenge(stabCtx, page)
		if perr != nil {
			err = perr
			break
		}
		if marker == "" {
			return challenge
		}
		if challenge != marker {
			log.Info("challenge page detected, waiting for it to clear", zap.String("marker", marker))
			n.recorder.ChallengeDetected(marker)
			challenge = marker
		}
		if attempt >= polls {
			err = errChallengePersisted
			break
		}
		if err = n.delay.Wait(stabCtx, n.opts.ChallengePollInterval); err != nil {
			break
		}
		err = page.WaitStable(stabCtx)
	}

	n.recorder.StabilizeTimedOut()
	log.Warn("page did not stabilize, continuing after settle delay",
		zap.Error(err),
		zap.Duration("timeout", n.opts.StabilizeTimeout),
		zap.Duration("settle", n.opts.SettleDelay))
	if werr := n.delay.Wait(ctx, n.opts.SettleDelay); werr != nil {
		log.Debug("settle delay interrupted", zap.Error(werr))
	}
	return challenge
}

func (n *Navigator) probeChallenge(ctx context.Context, page Page) (string, error) {
	markup, err := page.HTML(ctx)
	if err != nil {
		return "", fmt.Errorf("read page for challenge probe: %w", err)
	}
	return scraper.DetectChallenge(markup), nil
}

func (n *Navigator) maxPolls() int {
	if n.opts.ChallengePollInterval <= 0 {
		return 1
	}
	return int(n.opts.StabilizeTimeout/n.opts.ChallengePollInterval) + 1
}

func (n *Navigator) currentURL(ctx context.Context, page Page, fallback string) string {
	u, err := page.URL(ctx)
	if err != nil || u == "" {
		return fallback
	}
	return u
}

func isNavigationTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}

func declaresXML(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "xml")
}
