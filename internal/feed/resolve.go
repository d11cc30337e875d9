package feed

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/GriffinCanCode/feedproxy/internal/providers/scraper"
	"go.uber.org/zap"
)

const (
	launchFailurePrefix     = "The server encountered an error while launching the browser: "
	faultPrefix             = "The server encountered an error while scraping the page: "
	extractionFailedMessage = "Could not extract valid XML content. The page might be empty or still blocked."
)

// Resolver runs one fetch end to end and always returns exactly one
// outcome. The browser session is released exactly once, after the
// outcome is computed, whatever path the fetch took.
type Resolver struct {
	sessions  *SessionManager
	navigator *Navigator
	extractor *Extractor
	opts      Options
	recorder  Recorder
	logger    *zap.Logger
}

// NewResolver wires a resolver around sessions.
func NewResolver(sessions *SessionManager, opts Options, delay Delay) *Resolver {
	return &Resolver{
		sessions:  sessions,
		navigator: NewNavigator(opts, delay),
		extractor: NewExtractor(opts.MinContentLength),
		opts:      opts,
		recorder:  nopRecorder{},
		logger:    zap.NewNop(),
	}
}

// WithRecorder reports outcomes and pipeline events to r.
func (r *Resolver) WithRecorder(rec Recorder) *Resolver {
	if rec != nil {
		r.recorder = rec
		r.navigator.WithRecorder(rec)
	}
	return r
}

// WithLogger sets the logger of the resolver and its stages.
func (r *Resolver) WithLogger(l *zap.Logger) *Resolver {
	if l != nil {
		r.logger = l
		r.navigator.WithLogger(l)
		r.extractor.WithLogger(l)
	}
	return r
}

// Resolve fetches req.TargetURL. ctx bounds the whole fetch; it should
// not be tied to the client connection.
func (r *Resolver) Resolve(ctx context.Context, req FetchRequest) (outcome FetchOutcome) {
	start := time.Now()
	log := r.logger.With(zap.String("request_id", req.RequestID), zap.String("target", req.TargetURL))

	defer func() {
		elapsed := time.Since(start)
		r.recorder.RecordFetch(outcome.Label(), string(outcome.Source), elapsed)
		log.Info("fetch finished",
			zap.String("outcome", outcome.Label()),
			zap.String("source", string(outcome.Source)),
			zap.Int("status", outcome.HTTPStatus),
			zap.Duration("elapsed", elapsed))
	}()

	session, err := r.sessions.Acquire(ctx)
	if err != nil {
		log.Error("failed to acquire browser session", zap.Error(err))
		return FetchOutcome{
			HTTPStatus: http.StatusInternalServerError,
			Source:     SourceNone,
			Failure: &Failure{
				Kind:    KindSessionAcquisition,
				Message: launchFailurePrefix + causeMessage(err),
			},
		}
	}
	defer r.sessions.Release(session)

	log = log.With(zap.String("session_id", session.ID.String()))
	defer func() {
		if rec := recover(); rec != nil {
			log.Error("fetch panicked", zap.Any("panic", rec), zap.Stack("stack"))
			outcome = r.fault(ctx, session, req.TargetURL, "", fmt.Errorf("%v", rec), log)
		}
	}()

	return r.run(ctx, session, req.TargetURL, log)
}

func (r *Resolver) run(ctx context.Context, session *Session, target string, log *zap.Logger) FetchOutcome {
	page := session.Page()

	nav := r.navigator.Drive(ctx, page, target)
	switch nav.State {
	case StateEarlyExit:
		return success(nav.RawBody, SourceResponse)
	case StateErrored:
		return r.fault(ctx, session, nav.FinalURL, nav.Challenge, nav.Err, log)
	}

	result, err := r.extractor.Extract(ctx, page)
	if err != nil {
		return r.fault(ctx, session, nav.FinalURL, nav.Challenge, fmt.Errorf("read page content: %w", err), log)
	}
	if r.accept(result) {
		return success([]byte(result.Candidate), result.Source)
	}

	log.Warn("no feed content on page",
		zap.String("final_url", nav.FinalURL),
		zap.String("candidate_source", string(result.Source)),
		zap.String("challenge", nav.Challenge))
	return FetchOutcome{
		HTTPStatus: http.StatusInternalServerError,
		Source:     SourceNone,
		Failure: &Failure{
			Kind:       KindExtraction,
			Message:    extractionFailedMessage,
			Diagnostic: r.diagnose(ctx, session, nav.FinalURL, extractionFailedMessage, nav.Challenge, log),
		},
	}
}

// accept is the final gate: the candidate must classify as a feed and
// meet the minimum length.
func (r *Resolver) accept(result ExtractionResult) bool {
	if !result.Found || !IsLikelyFeedContent(result.Candidate) {
		return false
	}
	return utf8.RuneCountInString(strings.TrimSpace(result.Candidate)) >= r.opts.MinContentLength
}

func (r *Resolver) fault(ctx context.Context, session *Session, currentURL, challenge string, err error, log *zap.Logger) FetchOutcome {
	msg := faultPrefix + causeMessage(err)
	log.Error("fetch failed", zap.Error(err), zap.String("current_url", currentURL))
	return FetchOutcome{
		HTTPStatus: http.StatusInternalServerError,
		Source:     SourceNone,
		Failure: &Failure{
			Kind:       KindOf(err),
			Message:    msg,
			Diagnostic: r.diagnose(ctx, session, currentURL, msg, challenge, log),
		},
	}
}

// diagnose captures what the page looked like. Each capture step is
// independent and may fail without affecting the others or the outcome.
func (r *Resolver) diagnose(ctx context.Context, session *Session, currentURL, message, challenge string, log *zap.Logger) *DiagnosticPayload {
	d := &DiagnosticPayload{
		Status:     "error",
		Message:    message,
		CurrentURL: currentURL,
		Challenge:  challenge,
	}

	// The fetch deadline may already have passed; diagnostics get their own budget.
	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.opts.DiagnosticTimeout)
	defer cancel()

	var page Page
	bestEffort(log, "open page", func() error {
		var err error
		page, err = session.reachablePage(dctx)
		return err
	})
	if page == nil {
		return d
	}

	bestEffort(log, "current url", func() error {
		u, err := page.URL(dctx)
		if err == nil && u != "" {
			d.CurrentURL = u
		}
		return err
	})
	bestEffort(log, "html snippet", func() error {
		markup, err := page.HTML(dctx)
		if err != nil {
			return err
		}
		d.HTMLSnippet = scraper.Truncate(markup, r.opts.SnippetLimit)
		if d.Challenge == "" {
			d.Challenge = scraper.DetectChallenge(markup)
		}
		return nil
	})
	bestEffort(log, "screenshot", func() error {
		png, err := page.Screenshot(dctx)
		if err != nil {
			return err
		}
		d.ScreenshotBase64 = base64.StdEncoding.EncodeToString(png)
		return nil
	})

	return d
}

// bestEffort runs a side action, logging and swallowing errors and panics.
func bestEffort(log *zap.Logger, step string, fn func() error) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Warn("diagnostic step panicked", zap.String("step", step), zap.Any("panic", rec))
		}
	}()
	if err := fn(); err != nil {
		log.Warn("diagnostic step failed", zap.String("step", step), zap.Error(err))
	}
}

func success(body []byte, source Source) FetchOutcome {
	return FetchOutcome{
		HTTPStatus:  http.StatusOK,
		Body:        body,
		ContentType: SuccessContentType,
		Source:      source,
	}
}

func causeMessage(err error) string {
	var fe *Error
	if errors.As(err, &fe) && fe.Err != nil {
		return fe.Err.Error()
	}
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
