// Package main is the entry point for the feed proxy server.
//
// The server fetches caller-supplied feed URLs through a real headless
// Chromium so that bot-detection interstitials get a chance to clear,
// then returns the raw RSS or Atom document.
//
//	Feed reader → GET /?url=... → Chromium (one per request) → origin
//
// Configuration:
//   - Environment variables (12-factor), see internal/infrastructure/config
//   - CLI flags (override env vars)
//   - Optional YAML or TOML browser profile via BROWSER_PROFILE_FILE
//
// Usage:
//
//	# Production mode
//	./server -port 10000
//
//	# Development mode (colored logs, debug level)
//	./server -dev -headless=false
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
