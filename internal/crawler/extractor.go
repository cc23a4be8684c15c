package crawler

import (
	"bytes"
	"fmt"

	"github.com/nao1215/onioncrawl/internal/extract"
	"github.com/nao1215/onioncrawl/internal/fetch"
)

// Page is what the crawl keeps from a fetched page.
type Page struct {
	// Title is the page title, empty when the page has none.
	Title string

	// Links are the onion locations the page links to.
	Links []string

	// PaymentAddrs are the distinct payment addresses in the page text.
	PaymentAddrs []string
}

// Extractor turns a page body into a Page.
type Extractor interface {
	Extract(body []byte) (*Page, error)
}

// HTMLExtractor extracts pages with the extract package.
type HTMLExtractor struct{}

// Extract implements Extractor. Errors wrap fetch.ErrBodyRead so they are
// recorded as read errors.
func (HTMLExtractor) Extract(body []byte) (*Page, error) {
	doc, err := extract.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", fetch.ErrBodyRead, err)
	}

	title, _ := doc.Title()
	return &Page{
		Title:        title,
		Links:        doc.Links(),
		PaymentAddrs: doc.PaymentAddresses(),
	}, nil
}
