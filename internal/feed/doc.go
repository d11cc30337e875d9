// Package feed fetches a feed URL through a real browser and recovers the
// XML payload, whether the server answers with raw XML, renders it as text
// inside the page, or first shows a bot-challenge interstitial.
//
// A fetch runs in four steps, each owned by one type:
//
//	SessionManager  launches one browser with a stealth page per request
//	Navigator       drives the page: navigate, early exit or stabilize
//	Extractor       picks the best text candidate from the settled page
//	Resolver        turns all of it into a FetchOutcome and tears down
//
// The browser itself sits behind the Launcher, Browser and Page
// interfaces. The rod-backed implementation lives in
// internal/providers/browser; tests use in-memory fakes.
package feed
