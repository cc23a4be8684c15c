// Package extract finds the data the crawler collects from a fetched page.
//
// Two kinds of data are extracted from every successfully fetched page:
//
//   - Onion links: hyperlink targets that point back into the Tor network.
//     These feed the crawl frontier.
//   - Payment addresses: Bitcoin address shaped tokens appearing in the
//     visible page text. A token is suppressed when the same page links to
//     that token with the ".onion" suffix appended, because such a token is
//     part of a link rather than a payment reference.
//
// The package also owns the deprecated short-form address heuristic, which
// lets the crawler skip v2 onion addresses without a network round trip.
//
// # Usage
//
//	doc, err := extract.Parse(body)
//	if err != nil {
//	    return err
//	}
//	links := doc.Links()
//	addrs := doc.PaymentAddresses()
//	title, _ := doc.Title()
package extract
