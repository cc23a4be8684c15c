package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/net/html/charset"

	"github.com/nao1215/onioncrawl/internal/tor"
)

const (
	// DefaultUserAgent is sent with every crawl request. It matches the Tor
	// Browser so services treat the crawler like an ordinary visitor.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; rv:128.0) Gecko/20100101 Firefox/128.0"

	// DefaultMaxBodySize caps how much of a page is read.
	DefaultMaxBodySize = 5 * 1024 * 1024
)

// Response is a completed HTTP exchange. Body is decoded to UTF-8.
type Response struct {
	// StatusCode is the final status after redirects.
	StatusCode int

	// ContentType is the Content-Type header of the final response.
	ContentType string

	// Body holds at most the configured maximum body size.
	Body []byte
}

// Fetcher retrieves one location.
// Any returned error is a transport failure; HTTP error statuses are
// reported through Response.StatusCode.
type Fetcher interface {
	Fetch(ctx context.Context, location string) (*Response, error)
}

// HTTPFetcher fetches locations with an http.Client, usually one whose
// transport goes through Tor.
type HTTPFetcher struct {
	client      *http.Client
	userAgent   string
	maxBodySize int64
}

// Option configures an HTTPFetcher.
type Option func(*HTTPFetcher)

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *HTTPFetcher) {
		f.userAgent = ua
	}
}

// WithMaxBodySize sets the maximum number of body bytes read per page.
func WithMaxBodySize(size int64) Option {
	return func(f *HTTPFetcher) {
		f.maxBodySize = size
	}
}

// NewHTTPFetcher returns a fetcher that sends requests with client.
func NewHTTPFetcher(client *http.Client, opts ...Option) *HTTPFetcher {
	f := &HTTPFetcher{
		client:      client,
		userAgent:   DefaultUserAgent,
		maxBodySize: DefaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// NewTorFetcher returns a fetcher whose requests all go through c.
func NewTorFetcher(c *tor.Client, opts ...Option) *HTTPFetcher {
	return NewHTTPFetcher(c.NewHTTPClient(), opts...)
}

// NewDirectClient returns a client that connects without a proxy. It is
// meant for clearnet mirrors and local testing, never for onion services.
func NewDirectClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:       timeout,
		CheckRedirect: tor.RedirectLimit(tor.DefaultMaxRedirects),
	}
}

// Fetch issues a single GET for location and reads the body.
func (f *HTTPFetcher) Fetch(ctx context.Context, location string) (*Response, error) {
	if err := validateLocation(location); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	contentType := resp.Header.Get("Content-Type")
	body, err := readBody(io.LimitReader(resp.Body, f.maxBodySize), contentType)
	if err != nil {
		return nil, err
	}

	return &Response{
		StatusCode:  resp.StatusCode,
		ContentType: contentType,
		Body:        body,
	}, nil
}

// readBody reads r and converts it to UTF-8 using the declared or sniffed charset.
func readBody(r io.Reader, contentType string) ([]byte, error) {
	decoded, err := charset.NewReader(r, contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBodyRead, err)
	}
	body, err := io.ReadAll(decoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBodyRead, err)
	}
	return body, nil
}

// validateLocation rejects locations that cannot be requested at all.
func validateLocation(location string) error {
	u, err := url.Parse(location)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	return nil
}
