// Package dataset turns crawl output into an analysis dataset.
//
// The steps mirror the offline workflow that follows a crawl:
//
//  1. AddressList collects the distinct payment addresses of a crawl record
//  2. the enrich package looks them up and writes one JSON line each
//  3. Consolidate reduces those lines to chain statistics per address
//  4. Build joins crawl entries with the statistics and categorizes titles
//  5. WriteCSV writes the rows for spreadsheet tools
package dataset
