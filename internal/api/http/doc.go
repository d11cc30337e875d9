// Package http provides the HTTP handlers of the feed proxy.
//
// Endpoints:
//   - Fetch: GET /?url=<absolute http(s) URL>
//   - Health: GET /health
//
// A successful fetch answers 200 with the feed bytes as
// application/xml. Failures answer 500, as a JSON diagnostic when a page
// existed and as plain text otherwise. Invalid input answers 400 before
// any browser is started.
//
// Example Usage:
//
//	handlers := http.NewHandlers(resolver, 2*time.Minute).
//		WithAdmission(admission).
//		WithMetrics(metrics)
//	router.GET("/", handlers.Fetch)
//	router.GET("/health", handlers.Health)
package http
