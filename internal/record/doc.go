// Package record persists crawl outcomes.
//
// The crawl record is a JSON Lines file framed by a begin marker written
// when a run starts and an end marker written at shutdown:
//
//	{"marker":"begin","run_id":"...","started":"..."}
//	{"address":"http://x.onion","title":"...","btc_addrs":["1..."]}
//	{"address":"http://y.onion","status":"HTTP error: 404"}
//	{"marker":"end","finished":"...","searched":2}
//
// A process killed outside the shutdown path leaves the file without its
// end marker, possibly with a partial last line. Resume repairs both before
// appending. The human-readable log is a separate file with one
// pipe-separated line per completed fetch.
package record
