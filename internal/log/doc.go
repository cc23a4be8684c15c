// Package log builds the crawler's slog loggers.
//
// Every logger returned here is wrapped in a SecureHandler, which masks
// credentials (proxy and API passwords, authorization headers, cookies) and
// wallet secrets that can appear on crawled pages. Payment addresses and
// onion locations pass through unchanged because they are the crawler's
// output.
//
// The per-fetch crawl log lives in the record package; this package only
// covers operator diagnostics.
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	logger.Info("fetched", "address", addr, "outcome", "HTTP 200")
package log
