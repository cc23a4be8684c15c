package tor

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/proxy"
)

const (
	// checkProxyTimeout bounds the proxy health check.
	checkProxyTimeout = 2 * time.Second

	// DefaultMaxRedirects is the redirect limit of crawl requests.
	DefaultMaxRedirects = 30
)

// SOCKS5 protocol constants used by the health check.
const (
	socks5Version       = 0x05
	socks5AuthNone      = 0x00
	socks5CmdConnect    = 0x01
	socks5AddrTypeDomID = 0x03

	// socks5ProbeOnion is a well-formed but non-existent onion host. The proxy
	// only has to answer the CONNECT request, not complete it.
	socks5ProbeOnion = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa.onion"
)

// Client routes crawl traffic through a Tor SOCKS5 proxy.
type Client struct {
	// proxyAddress is the SOCKS5 proxy in host:port form.
	proxyAddress string

	// dialer connects through the proxy.
	dialer proxy.ContextDialer

	// timeout is the whole-request timeout of HTTP clients built here.
	timeout time.Duration

	// maxRedirects is the redirect limit of HTTP clients built here.
	maxRedirects int
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithMaxRedirects sets the redirect limit of HTTP clients built by the client.
func WithMaxRedirects(n int) ClientOption {
	return func(c *Client) {
		c.maxRedirects = n
	}
}

// NewClient creates a Client for the proxy at proxyAddress.
// Nothing is dialed here; call CheckConnection to verify the proxy.
func NewClient(proxyAddress string, timeout time.Duration, opts ...ClientOption) (*Client, error) {
	if !isValidProxyAddress(proxyAddress) {
		return nil, ErrInvalidProxyAddress
	}

	// Tor's SOCKS port does not take credentials.
	d, err := proxy.SOCKS5("tcp", proxyAddress, nil, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
	}
	cd, ok := d.(proxy.ContextDialer)
	if !ok {
		return nil, fmt.Errorf("SOCKS5 dialer for %s does not support contexts", proxyAddress)
	}

	c := &Client{
		proxyAddress: proxyAddress,
		dialer:       cd,
		timeout:      timeout,
		maxRedirects: DefaultMaxRedirects,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// isValidProxyAddress reports whether address is host:port with a port in 1-65535.
func isValidProxyAddress(address string) bool {
	host, port, ok := strings.Cut(address, ":")
	if !ok || host == "" || port == "" || strings.Contains(port, ":") {
		return false
	}
	for _, c := range port {
		if c < '0' || c > '9' {
			return false
		}
	}
	n, err := strconv.Atoi(port)
	return err == nil && n >= 1 && n <= 65535
}

// ProxyAddress returns the configured proxy address.
func (c *Client) ProxyAddress() string {
	return c.proxyAddress
}

// Timeout returns the request timeout of HTTP clients built by c.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// CheckConnection speaks just enough SOCKS5 to tell a Tor proxy from
// anything else listening on the address: a no-auth greeting followed by a
// CONNECT to an onion host. Any well-formed CONNECT reply, success or not,
// counts as OK.
func (c *Client) CheckConnection(ctx context.Context) ProxyStatus {
	ctx, cancel := context.WithTimeout(ctx, checkProxyTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", c.proxyAddress)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ProxyStatusTimeout
		}
		return ProxyStatusCannotConnect
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(checkProxyTimeout)); err != nil {
		return ProxyStatusCannotConnect
	}

	if status := greet(conn); status != ProxyStatusOK {
		return status
	}
	return probeConnect(conn)
}

// greet performs the SOCKS5 method negotiation offering only "no auth".
func greet(conn net.Conn) ProxyStatus {
	if _, err := conn.Write([]byte{socks5Version, 0x01, socks5AuthNone}); err != nil {
		return ProxyStatusCannotConnect
	}

	reply := make([]byte, 2)
	if _, err := io.ReadFull(conn, reply); err != nil {
		return readFailureStatus(err)
	}
	if reply[0] != socks5Version || reply[1] != socks5AuthNone {
		return ProxyStatusWrongType
	}
	return ProxyStatusOK
}

// probeConnect sends a CONNECT for the probe onion and checks the reply header.
func probeConnect(conn net.Conn) ProxyStatus {
	const port = 80

	req := []byte{socks5Version, socks5CmdConnect, 0x00, socks5AddrTypeDomID, byte(len(socks5ProbeOnion))}
	req = append(req, socks5ProbeOnion...)
	req = append(req, byte(port>>8), byte(port&0xFF))
	if _, err := conn.Write(req); err != nil {
		return ProxyStatusCannotConnect
	}

	// version, reply code, reserved, address type
	header := make([]byte, 4)
	if _, err := io.ReadFull(conn, header); err != nil {
		return readFailureStatus(err)
	}
	if header[0] != socks5Version {
		return ProxyStatusWrongType
	}
	return ProxyStatusOK
}

func readFailureStatus(err error) ProxyStatus {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ProxyStatusTimeout
	}
	return ProxyStatusWrongType
}

// DialContext connects to address through the proxy. Failures are wrapped
// with ErrProxyUnreachable when the proxy itself could not be reached and
// with ErrCircuitFailed when the proxy refused or failed the CONNECT.
// Context errors are returned unchanged.
func (c *Client) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	conn, err := c.dialer.DialContext(ctx, network, address)
	if err != nil {
		return nil, classifyDialError(err)
	}
	return conn, nil
}

// classifyDialError tells proxy reachability failures from circuit failures.
// The SOCKS dialer wraps both in a "socks connect" *net.OpError; only the
// former nests the *net.OpError of the TCP dial to the proxy.
func classifyDialError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var outer *net.OpError
	if errors.As(err, &outer) {
		var inner *net.OpError
		if errors.As(outer.Err, &inner) && inner.Op == "dial" {
			return fmt.Errorf("%w: %w", ErrProxyUnreachable, err)
		}
	}
	return fmt.Errorf("%w: %w", ErrCircuitFailed, err)
}

// NewHTTPClient returns an HTTP client whose connections all go through the
// proxy. Certificates are not verified because onion services routinely use
// self-signed ones and the onion address already authenticates the service.
func (c *Client) NewHTTPClient() *http.Client {
	transport := &http.Transport{
		DialContext: c.DialContext,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: true, //nolint:gosec // onion services use self-signed certificates
		},
		// Every connection holds a Tor circuit.
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,
		DisableCompression:  true,
	}

	return &http.Client{
		Transport:     transport,
		Timeout:       c.timeout,
		CheckRedirect: RedirectLimit(c.maxRedirects),
	}
}

// RedirectLimit returns a CheckRedirect policy that fails with
// ErrTooManyRedirects once max redirects have been followed.
func RedirectLimit(limit int) func(*http.Request, []*http.Request) error {
	return func(_ *http.Request, via []*http.Request) error {
		if len(via) > limit {
			return fmt.Errorf("%w: stopped after %d", ErrTooManyRedirects, limit)
		}
		return nil
	}
}
