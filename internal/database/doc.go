// Package database provides SQLite-based storage for onioncrawl datasets.
//
// The DatasetDB stores:
//   - dataset descriptions (which crawl run a dataset was built from)
//   - dataset rows, one per crawled site
//   - the latest chain statistics of every enriched address
//
// SQLite (via the CGO-free modernc.org/sqlite driver) keeps the database a
// single file in the XDG data directory.
package database
