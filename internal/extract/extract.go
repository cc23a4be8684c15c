package extract

import (
	"io"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

const (
	// OnionSuffix is the address suffix of the Tor network.
	OnionSuffix = ".onion"

	// DeprecatedMaxLength is the longest address still treated as a v2 onion.
	// A v2 location is scheme (7-8) + 16 base32 characters + ".onion" (6),
	// so anything this short cannot be a v3 location.
	DeprecatedMaxLength = 30

	// DeprecatedStatus is the crawl record value for short-form addresses.
	DeprecatedStatus = "V2 address (deprecated)"
)

// onionLinkPattern matches an onion location anywhere in a candidate string.
// Only scheme and host are captured; any path is dropped.
var onionLinkPattern = regexp.MustCompile(`https?://\w+\.onion`)

// paymentAddressPattern is the Bitcoin address grammar shared with the
// enrichment tooling. It must match the whole token.
var paymentAddressPattern = regexp.MustCompile(`^(?:bc1|[13])[a-zA-Z0-9]{25,61}$`)

// skippedTextParents are elements whose text is not visible page text.
var skippedTextParents = map[string]bool{
	"script":   true,
	"style":    true,
	"template": true,
}

// MatchOnionLink returns the onion location embedded in s, if any.
func MatchOnionLink(s string) (string, bool) {
	if s == "" {
		return "", false
	}
	match := onionLinkPattern.FindString(s)
	return match, match != ""
}

// IsPaymentAddress reports whether token is a Bitcoin address by grammar.
// No checksum is verified.
func IsPaymentAddress(token string) bool {
	return paymentAddressPattern.MatchString(token)
}

// IsDeprecated reports whether addr is a short-form onion address that
// should be recorded without fetching it.
func IsDeprecated(addr string) bool {
	return strings.HasSuffix(addr, OnionSuffix) && len(addr) <= DeprecatedMaxLength
}

// Document is a parsed page.
type Document struct {
	doc *goquery.Document
}

// Parse parses page markup. Malformed markup is tolerated the way browsers
// tolerate it; an error is only returned when reading r fails.
func Parse(r io.Reader) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}
	return &Document{doc: doc}, nil
}

// Hrefs returns the raw href attribute of every anchor in document order.
// Anchors without an href are skipped.
func (d *Document) Hrefs() []string {
	hrefs := make([]string, 0)
	d.doc.Find("a").Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok {
			hrefs = append(hrefs, href)
		}
	})
	return hrefs
}

// Links returns the onion locations linked from the page, in document order.
// Duplicates are kept; deduplication is the frontier's job.
func (d *Document) Links() []string {
	links := make([]string, 0)
	for _, href := range d.Hrefs() {
		if link, ok := MatchOnionLink(href); ok {
			links = append(links, link)
		}
	}
	return links
}

// PaymentAddresses returns the distinct payment addresses in the visible
// page text in first-seen order.
//
// A candidate is dropped when the page also links to the candidate with the
// onion suffix appended.
func (d *Document) PaymentAddresses() []string {
	linked := make(map[string]bool)
	for _, href := range d.Hrefs() {
		linked[linkKey(href)] = true
	}

	seen := make(map[string]bool)
	addrs := make([]string, 0)
	for _, text := range d.textNodes() {
		for _, token := range strings.Fields(text) {
			if !IsPaymentAddress(token) || seen[token] {
				continue
			}
			if linked[token+OnionSuffix] {
				continue
			}
			seen[token] = true
			addrs = append(addrs, token)
		}
	}
	return addrs
}

// Title returns the page title with line breaks removed and surrounding
// whitespace trimmed. ok is false when the page has no title element.
func (d *Document) Title() (title string, ok bool) {
	sel := d.doc.Find("title").First()
	if sel.Length() == 0 {
		return "", false
	}
	title = strings.NewReplacer("\r", "", "\n", "").Replace(sel.Text())
	return strings.TrimSpace(title), true
}

// textNodes collects every text node outside script-like elements.
func (d *Document) textNodes() []string {
	texts := make([]string, 0)

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skippedTextParents[n.Data] {
			return
		}
		if n.Type == html.TextNode {
			texts = append(texts, n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	for _, n := range d.doc.Nodes {
		walk(n)
	}
	return texts
}

// linkKey normalizes an href for the payment address suppression check.
// "1abc.onion", "http://1abc.onion" and "https://1abc.onion/" share a key.
func linkKey(href string) string {
	key := strings.TrimSpace(href)
	key = strings.TrimPrefix(key, "http://")
	key = strings.TrimPrefix(key, "https://")
	return strings.TrimSuffix(key, "/")
}
