// Package client is a Go client for the feed proxy.
//
// Built on go-resty/resty over a hashicorp/go-retryablehttp transport:
//   - Retries with exponential backoff on transport errors, 5xx and 429
//   - The last response is surfaced when retries run out, so failure
//     diagnostics are never lost
//   - Optional client-side rate limiting
//
// The proxy itself never retries; retry policy belongs to the caller.
//
// Example Usage:
//
//	c := client.New("http://localhost:10000").SetRetry(3, time.Second, 10*time.Second)
//	feed, err := c.Fetch(ctx, "https://example.com/rss.xml")
//	var perr *client.ProxyError
//	if errors.As(err, &perr) && perr.Diagnostic != nil {
//		fmt.Println(perr.Diagnostic.CurrentURL)
//	}
package client
