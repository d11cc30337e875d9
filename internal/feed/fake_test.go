package feed

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// fakePage is a scripted Page. HTML returns pages in order and repeats the
// last one.
type fakePage struct {
	mu sync.Mutex

	navigate      func(ctx context.Context, url string) (*DocumentResponse, error)
	waitStable    func(ctx context.Context) error
	pages         []string
	htmlErr       error
	currentURL    string
	urlErr        error
	screenshot    []byte
	screenshotErr error

	navigateCalls   int
	htmlCalls       int
	screenshotCalls int
}

func (p *fakePage) Navigate(ctx context.Context, url string) (*DocumentResponse, error) {
	p.mu.Lock()
	p.navigateCalls++
	fn := p.navigate
	p.mu.Unlock()

	if fn == nil {
		return &DocumentResponse{URL: url, Status: 200, ContentType: "text/html"}, nil
	}
	return fn(ctx, url)
}

func (p *fakePage) WaitStable(ctx context.Context) error {
	if p.waitStable == nil {
		return nil
	}
	return p.waitStable(ctx)
}

func (p *fakePage) URL(context.Context) (string, error) {
	return p.currentURL, p.urlErr
}

func (p *fakePage) HTML(context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.htmlCalls++
	if p.htmlErr != nil {
		return "", p.htmlErr
	}
	if len(p.pages) == 0 {
		return "<html><head></head><body></body></html>", nil
	}
	idx := p.htmlCalls - 1
	if idx >= len(p.pages) {
		idx = len(p.pages) - 1
	}
	return p.pages[idx], nil
}

func (p *fakePage) Screenshot(context.Context) ([]byte, error) {
	p.mu.Lock()
	p.screenshotCalls++
	p.mu.Unlock()
	return p.screenshot, p.screenshotErr
}

func (p *fakePage) HTMLCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.htmlCalls
}

type fakeBrowser struct {
	page       Page
	newPageErr   error
	newPagePanic any
	closeErr     error

	newPageCalls atomic.Int32
	closeCalls   atomic.Int32
}

func (b *fakeBrowser) NewPage(context.Context) (Page, error) {
	b.newPageCalls.Add(1)
	if b.newPagePanic != nil {
		panic(b.newPagePanic)
	}
	if b.newPageErr != nil {
		return nil, b.newPageErr
	}
	return b.page, nil
}

func (b *fakeBrowser) Close() error {
	b.closeCalls.Add(1)
	return b.closeErr
}

type fakeLauncher struct {
	browser *fakeBrowser
	err     error

	mu    sync.Mutex
	calls []LaunchOptions
}

func (l *fakeLauncher) Launch(_ context.Context, opts LaunchOptions) (Browser, error) {
	l.mu.Lock()
	l.calls = append(l.calls, opts)
	l.mu.Unlock()

	if l.err != nil {
		return nil, l.err
	}
	return l.browser, nil
}

func (l *fakeLauncher) Calls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.calls)
}

// recordingDelay never sleeps and remembers what it was asked to wait.
type recordingDelay struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (d *recordingDelay) Wait(ctx context.Context, dur time.Duration) error {
	d.mu.Lock()
	d.waits = append(d.waits, dur)
	d.mu.Unlock()
	return ctx.Err()
}

func (d *recordingDelay) Waits() []time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]time.Duration(nil), d.waits...)
}

type countingRecorder struct {
	mu                sync.Mutex
	outcomes          []string
	opened, closed    int
	launchFailures    int
	stabilizeTimeouts int
	challenges        []string
}

func (r *countingRecorder) RecordFetch(outcome, source string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome+"/"+source)
}

func (r *countingRecorder) SessionOpened() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.opened++
}

func (r *countingRecorder) SessionClosed() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed++
}

func (r *countingRecorder) LaunchFailed() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.launchFailures++
}

func (r *countingRecorder) StabilizeTimedOut() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stabilizeTimeouts++
}

func (r *countingRecorder) ChallengeDetected(marker string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.challenges = append(r.challenges, marker)
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.NavigationTimeout = time.Second
	opts.StabilizeTimeout = time.Second
	opts.SettleDelay = 3 * time.Second
	opts.ChallengePollInterval = 100 * time.Millisecond
	opts.DiagnosticTimeout = time.Second
	return opts
}

// xmlResponse returns a navigate func answering with a raw XML document.
func xmlResponse(contentType, body string) func(context.Context, string) (*DocumentResponse, error) {
	return func(_ context.Context, url string) (*DocumentResponse, error) {
		return &DocumentResponse{URL: url, Status: 200, ContentType: contentType, Body: []byte(body)}, nil
	}
}

const (
	rssFeed  = `<?xml version="1.0" encoding="UTF-8"?><rss version="2.0"><channel><title>Example</title><item><title>One</title></item></channel></rss>`
	atomFeed = `<?xml version="1.0" encoding="utf-8"?><feed xmlns="http://www.w3.org/2005/Atom"><title>Example Atom</title><entry><title>Hello</title></entry></feed>`
)
