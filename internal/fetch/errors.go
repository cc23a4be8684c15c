package fetch

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"net"
	"strings"
	"syscall"

	"github.com/nao1215/onioncrawl/internal/tor"
)

var (
	// ErrInvalidURL is returned for locations that cannot be requested.
	ErrInvalidURL = errors.New("invalid URL")

	// ErrBodyRead wraps failures while reading or decoding a response body.
	ErrBodyRead = errors.New("failed to read response body")
)

// Kind names a class of transport failure. It is written into crawl
// records as "Exception: <Kind>".
type Kind string

// Transport failure kinds.
const (
	KindTimeout          Kind = "Timeout"
	KindConnectionError  Kind = "ConnectionError"
	KindProxyError       Kind = "ProxyError"
	KindSSLError         Kind = "SSLError"
	KindTooManyRedirects Kind = "TooManyRedirects"
	KindInvalidURL       Kind = "InvalidURL"
	KindReadError        Kind = "ReadError"
	KindRequestException Kind = "RequestException"
)

// String returns the kind name.
func (k Kind) String() string {
	return string(k)
}

// Classify maps a Fetch error to its Kind. The checks run from most to
// least specific, so a TLS failure that is also a net.OpError is an SSLError.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return ""
	case isTimeout(err):
		return KindTimeout
	case errors.Is(err, tor.ErrTooManyRedirects):
		return KindTooManyRedirects
	case errors.Is(err, ErrInvalidURL):
		return KindInvalidURL
	case errors.Is(err, tor.ErrProxyUnreachable):
		return KindProxyError
	case isTLSError(err):
		return KindSSLError
	case errors.Is(err, ErrBodyRead):
		return KindReadError
	case isConnectionError(err):
		return KindConnectionError
	default:
		return KindRequestException
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, syscall.ETIMEDOUT) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isTLSError(err error) bool {
	var (
		recordErr  tls.RecordHeaderError
		alertErr   tls.AlertError
		verifyErr  *tls.CertificateVerificationError
		unknownErr x509.UnknownAuthorityError
		hostErr    x509.HostnameError
		certErr    x509.CertificateInvalidError
	)
	if errors.As(err, &recordErr) || errors.As(err, &alertErr) || errors.As(err, &verifyErr) ||
		errors.As(err, &unknownErr) || errors.As(err, &hostErr) || errors.As(err, &certErr) {
		return true
	}
	// crypto/tls reports most handshake failures as plain errors.
	return strings.Contains(err.Error(), "tls: ")
}

func isConnectionError(err error) bool {
	if errors.Is(err, tor.ErrCircuitFailed) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}
