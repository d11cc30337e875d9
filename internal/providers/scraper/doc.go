// Package scraper parses page snapshots taken from the browser.
//
// Organized into:
//   - snapshot: one parse of the serialized DOM shared by CSS and XPath lookups
//   - challenge: XPath and title probes for bot-challenge interstitials
//   - content: charset decoding and content-type sniffing of raw response bodies
//
// Built on:
//   - goquery: CSS selectors for the pre/body text strategies
//   - htmlquery: XPath for challenge markers
//   - chardet + x/net/html/charset: decoding non-UTF-8 bodies
//   - mimetype: sniffing XML behind generic content types
//
// Example Usage:
//
//	snap, err := scraper.ParseSnapshot(markup)
//	if text, ok := snap.PreText(); ok {
//		...
//	}
package scraper
