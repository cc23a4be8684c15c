// Package fetch issues the crawler's page requests.
//
// A Fetcher performs exactly one GET per location. HTTPFetcher sends it
// through an http.Client (usually routed over Tor), bounds how much of the
// body is read and converts the body to UTF-8. Classify turns transport
// errors into the Kind names stored in crawl records.
package fetch
