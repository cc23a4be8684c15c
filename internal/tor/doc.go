// Package tor provides the crawler's path into the Tor network.
//
// Client wraps a SOCKS5 dialer and builds HTTP clients that send every
// connection through it. Daemon runs an embedded Tor process with tornago for
// hosts that have no Tor service of their own. The remaining helpers classify
// onion addresses so seeds can be checked before a run starts.
package tor
