// Command feedfetch fetches one feed through a running feed proxy and
// writes it to stdout. Failures are summarized on stderr; with
// -screenshot the page capture from the proxy's diagnostic is saved.
//
//	feedfetch -proxy http://localhost:10000 https://example.com/rss.xml > feed.xml
package main
