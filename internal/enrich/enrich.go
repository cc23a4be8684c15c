package enrich

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/nao1215/onioncrawl/internal/extract"
	"github.com/nao1215/onioncrawl/internal/log"
)

const (
	// DefaultAPI is the public Blockstream Esplora API.
	DefaultAPI = "https://blockstream.info/api"

	// DefaultWorkers is the number of concurrent lookups.
	DefaultWorkers = 20

	// DefaultTimeout bounds each lookup.
	DefaultTimeout = 10 * time.Second

	// maxResponseSize bounds a single API response.
	maxResponseSize = 1 << 20
)

// ErrUnexpectedStatus is returned by Lookup for non-200 responses.
var ErrUnexpectedStatus = errors.New("unexpected status from address API")

// Client looks up payment addresses.
type Client struct {
	httpClient *http.Client
	api        string
	workers    int
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithWorkers sets the number of concurrent lookups.
func WithWorkers(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithRate limits lookups to perSecond requests per second.
// 0 removes the limit.
func WithRate(perSecond float64) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a Client for the API at api.
func NewClient(api string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		api:        strings.TrimSuffix(api, "/"),
		workers:    DefaultWorkers,
		logger:     log.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Lookup fetches the API record of one address and returns it compacted
// to a single line.
func (c *Client) Lookup(ctx context.Context, addr string) ([]byte, error) {
	endpoint := c.api + "/address/" + url.PathEscape(addr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var line bytes.Buffer
	if err := json.Compact(&line, body); err != nil {
		return nil, fmt.Errorf("invalid JSON from address API: %w", err)
	}
	return line.Bytes(), nil
}

// Result counts the outcome of FetchAll.
type Result struct {
	Requested int
	Written   int
	Skipped   int
	Failed    int
}

// FetchAll looks up every address and appends each successful response to
// w as one line. Addresses that do not match the payment address grammar
// are skipped. Lookup failures are logged and counted; only a failure to
// write w, or ctx ending, is returned as an error.
func (c *Client) FetchAll(ctx context.Context, addrs []string, w io.Writer) (*Result, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)

	var (
		mu                 sync.Mutex
		written, failed    atomic.Int64
		requested, skipped int
	)

	for _, addr := range addrs {
		if !extract.IsPaymentAddress(addr) {
			skipped++
			c.logger.Warn("skipping invalid address", "address", addr)
			continue
		}
		if gctx.Err() != nil {
			break
		}
		requested++

		g.Go(func() error {
			if c.limiter != nil {
				if err := c.limiter.Wait(gctx); err != nil {
					return nil
				}
			}

			line, err := c.Lookup(gctx, addr)
			if err != nil {
				if gctx.Err() == nil {
					failed.Add(1)
					c.logger.Warn("address lookup failed", "address", addr, "error", err)
				}
				return nil
			}

			mu.Lock()
			defer mu.Unlock()
			if _, err := w.Write(append(line, '\n')); err != nil {
				return fmt.Errorf("failed to write enrichment output: %w", err)
			}
			written.Add(1)
			c.logger.Debug("address enriched", "address", addr)
			return nil
		})
	}

	err := g.Wait()
	res := &Result{
		Requested: requested,
		Written:   int(written.Load()),
		Skipped:   skipped,
		Failed:    int(failed.Load()),
	}
	if err != nil {
		return res, err
	}
	return res, ctx.Err()
}

// ReadAddresses reads one address per line, skipping blank lines.
func ReadAddresses(r io.Reader) ([]string, error) {
	addrs := make([]string, 0)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		addr := strings.TrimSpace(scanner.Text())
		if addr != "" {
			addrs = append(addrs, addr)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read address list: %w", err)
	}
	return addrs, nil
}

// LoadAddresses reads an address list file.
func LoadAddresses(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open address list: %w", err)
	}
	defer f.Close()
	return ReadAddresses(f)
}
