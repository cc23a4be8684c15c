// Package enrich looks up payment addresses found by the crawler in a
// blockchain explorer API.
//
// Lookups go to an Esplora-compatible endpoint (GET <api>/address/<addr>)
// through a bounded pool, optionally rate limited. Each successful response
// is appended to the output as one JSON line. Failures are logged and
// skipped; there is no retry.
package enrich
