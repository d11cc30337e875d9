package feed

import (
	"context"
	"time"
)

// SuccessContentType is sent with every successful fetch.
const SuccessContentType = "application/xml; charset=utf-8"

// FetchRequest is one validated fetch.
type FetchRequest struct {
	TargetURL string
	RequestID string
}

// LaunchOptions configures one browser process.
type LaunchOptions struct {
	Bin          string
	Headless     bool
	UserAgent    string
	WindowWidth  int
	WindowHeight int
	// ExtraFlags are additional command-line switches, name without
	// leading dashes. An empty value sets a bare switch.
	ExtraFlags map[string]string
}

// Launcher starts browsers.
type Launcher interface {
	Launch(ctx context.Context, opts LaunchOptions) (Browser, error)
}

// Browser is one running browser process.
type Browser interface {
	// NewPage opens a tab with anti-detection patches applied.
	NewPage(ctx context.Context) (Page, error)
	// Close terminates the process and removes its profile directory.
	Close() error
}

// Page is the part of a browser tab the pipeline drives.
type Page interface {
	// Navigate loads url, waits for DOMContentLoaded and returns the main
	// document response. The response may be nil when the engine reported
	// none.
	Navigate(ctx context.Context, url string) (*DocumentResponse, error)
	// WaitStable waits for the load event and a quiet DOM.
	WaitStable(ctx context.Context) error
	URL(ctx context.Context) (string, error)
	HTML(ctx context.Context) (string, error)
	// Screenshot captures the full page as PNG.
	Screenshot(ctx context.Context) ([]byte, error)
}

// DocumentResponse is the main document response seen during navigation.
type DocumentResponse struct {
	URL         string
	Status      int
	ContentType string
	// Body is nil when the engine could not return it.
	Body []byte
}

// State is a navigation controller state.
type State int

const (
	StateIdle State = iota
	StateNavigating
	StateEarlyExit
	StateStabilizing
	StateStabilized
	StateDone
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateNavigating:
		return "navigating"
	case StateEarlyExit:
		return "early_exit"
	case StateStabilizing:
		return "stabilizing"
	case StateStabilized:
		return "stabilized"
	case StateDone:
		return "done"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// NavigationOutcome is what the Navigator hands to the Resolver.
type NavigationOutcome struct {
	// State is StateEarlyExit, StateStabilized or StateErrored.
	State       State
	FinalURL    string
	RawBody     []byte
	ContentType string
	Status      int
	// Err is set on StateErrored, and on StateStabilized after a
	// non-fatal navigation timeout.
	Err *Error
	// Challenge is the last challenge marker seen while stabilizing.
	Challenge string
}

// Source names where a successful payload came from.
type Source string

const (
	SourceNone       Source = "none"
	SourceResponse   Source = "response"
	SourceDirectBody Source = "direct_body"
	SourcePreTag     Source = "pre_tag"
	SourceBodyText   Source = "body_text"
)

// ExtractionResult is the best text candidate found on a stabilized page.
type ExtractionResult struct {
	Candidate string
	Found     bool
	Source    Source
}

// DiagnosticPayload describes the page state at the moment a fetch failed.
type DiagnosticPayload struct {
	Status           string `json:"status"`
	Message          string `json:"message"`
	CurrentURL       string `json:"currentUrl"`
	HTMLSnippet      string `json:"debugHtmlSnippet"`
	ScreenshotBase64 string `json:"screenshotBase64,omitempty"`
	Challenge        string `json:"challenge,omitempty"`
}

// Failure is the failing half of a FetchOutcome.
type Failure struct {
	Kind    ErrorKind
	Message string
	// Diagnostic is nil when the failure happened before a page existed;
	// the HTTP layer then answers with Message as plain text.
	Diagnostic *DiagnosticPayload
}

// FetchOutcome is the single result of a fetch: a payload, or a failure.
type FetchOutcome struct {
	HTTPStatus  int
	Body        []byte
	ContentType string
	Source      Source
	Failure     *Failure
}

// OK reports whether the fetch produced a payload.
func (o FetchOutcome) OK() bool {
	return o.Failure == nil
}

// Label names the outcome for metrics and logs.
func (o FetchOutcome) Label() string {
	if o.Failure == nil {
		return "success"
	}
	return o.Failure.Kind.String()
}

// Options are the read-only timings and thresholds of the pipeline.
type Options struct {
	NavigationTimeout     time.Duration
	StabilizeTimeout      time.Duration
	SettleDelay           time.Duration
	ChallengePollInterval time.Duration
	MinContentLength      int
	SnippetLimit          int
	DiagnosticTimeout     time.Duration
	// SniffContentType lets the early exit accept generic content types
	// whose body sniffs as XML.
	SniffContentType bool
}

// DefaultOptions returns the production timings.
func DefaultOptions() Options {
	return Options{
		NavigationTimeout:     45 * time.Second,
		StabilizeTimeout:      45 * time.Second,
		SettleDelay:           3 * time.Second,
		ChallengePollInterval: time.Second,
		MinContentLength:      50,
		SnippetLimit:          5000,
		DiagnosticTimeout:     15 * time.Second,
		SniffContentType:      true,
	}
}

// Recorder receives pipeline events. *monitoring.Metrics implements it.
type Recorder interface {
	RecordFetch(outcome, source string, duration time.Duration)
	SessionOpened()
	SessionClosed()
	LaunchFailed()
	StabilizeTimedOut()
	ChallengeDetected(marker string)
}

type nopRecorder struct{}

func (nopRecorder) RecordFetch(string, string, time.Duration) {}
func (nopRecorder) SessionOpened()                            {}
func (nopRecorder) SessionClosed()                            {}
func (nopRecorder) LaunchFailed()                             {}
func (nopRecorder) StabilizeTimedOut()                        {}
func (nopRecorder) ChallengeDetected(string)                  {}
