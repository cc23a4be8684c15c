// Package crawler runs the onion crawl.
//
// # Architecture
//
// An Engine owns one run. It builds the frontier (fresh from seeds and
// keyword searches, or restored from a savestate), then repeats a simple
// round until a stop condition holds:
//
//  1. drain every pending address from the frontier
//  2. submit each address to the Executor as an independent unit of work
//  3. wait until some unit completes, then start the next round
//
// Each unit fetches one address through a fetch.Fetcher, extracts the page
// with an Extractor, offers discovered links back to the frontier and writes
// exactly one crawl-record entry and one log line.
//
// # Policies
//
// The three moving parts are interfaces chosen at construction time:
//
//   - Extractor: how a page body becomes a title, links and payment addresses
//   - fetch.Fetcher: how an address is requested (Tor, direct, test stubs)
//   - Executor: how units run (PooledExecutor or SequentialExecutor)
//
// # Shutdown
//
// A run stops when the search limit is reached, when the frontier is
// exhausted, or when the context passed to Run is cancelled. In every case
// the engine stops submitting work, gives started units a grace period to
// finish, then cancels the rest. A cancelled unit writes nothing and is not
// marked searched, so it stays pending in the savestate written at the end.
//
// # Usage
//
//	engine := crawler.New(fetcher, crawler.Options{
//		Seeds:     []string{"http://example.onion"},
//		OutputDir: "crawl",
//		Workers:   10,
//	})
//	summary, err := engine.Run(ctx)
package crawler
