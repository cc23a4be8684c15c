// Package main provides the entry point for the onioncrawl CLI.
//
// onioncrawl crawls Tor onion services breadth-first, records every page's
// title and Bitcoin payment addresses, and turns the crawl into a dataset
// enriched with on-chain statistics.
//
// Usage:
//
//	onioncrawl crawl <onion-address>...
//	onioncrawl crawl --resume
//	onioncrawl addrs -o addrs.txt
//	onioncrawl enrich addrs.txt -o enrichment.jsonl
//	onioncrawl dataset --enrichment enrichment.jsonl -o dataset.csv
//
// See --help for all available options.
package main

// main is the entry point for onioncrawl.
func main() {
	Execute()
}
