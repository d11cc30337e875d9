// Package logging provides structured logging using uber/zap.
//
// Two modes:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Every fetch logs under a child logger carrying the request ID and the
// target URL, so one request's navigation, extraction and teardown lines
// can be grepped together.
//
// Example Usage:
//
//	logger := logging.NewOrNop(logging.Config{Level: "info"})
//	log := logger.ForRequest(requestID, target)
//	log.Warn("stabilize wait expired", zap.Duration("timeout", t))
package logging
