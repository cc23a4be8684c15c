package tor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nao1215/tornago"
)

// DefaultBootstrapTimeout is how long the embedded daemon may take to build
// its first circuits.
const DefaultBootstrapTimeout = 3 * time.Minute

// Daemon is a Tor process owned by the crawler, used when no external
// SOCKS proxy is configured. Bootstrapping takes one to three minutes.
type Daemon struct {
	mu sync.Mutex

	// process is the running Tor process, nil when stopped.
	process *tornago.TorProcess

	// socksAddr is the SOCKS5 listener chosen by the daemon.
	socksAddr string

	// bootstrapTimeout bounds Start.
	bootstrapTimeout time.Duration
}

// DaemonOption configures a Daemon.
type DaemonOption func(*Daemon)

// WithBootstrapTimeout sets the maximum time Start waits for Tor to bootstrap.
func WithBootstrapTimeout(timeout time.Duration) DaemonOption {
	return func(d *Daemon) {
		d.bootstrapTimeout = timeout
	}
}

// NewDaemon creates a stopped Daemon.
func NewDaemon(opts ...DaemonOption) *Daemon {
	d := &Daemon{bootstrapTimeout: DefaultBootstrapTimeout}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

type startResult struct {
	process *tornago.TorProcess
	err     error
}

// Start launches Tor on OS-assigned ports and blocks until it has
// bootstrapped, the bootstrap timeout passes, or ctx is done. A process that
// finishes starting after ctx is done is stopped in the background.
func (d *Daemon) Start(ctx context.Context) error {
	cfg, err := tornago.NewTorLaunchConfig(
		tornago.WithTorSocksAddr(":0"),
		tornago.WithTorControlAddr(":0"),
		tornago.WithTorStartupTimeout(d.bootstrapTimeout),
	)
	if err != nil {
		return fmt.Errorf("failed to create Tor launch config: %w", err)
	}

	done := make(chan startResult, 1)
	go func() {
		process, err := tornago.StartTorDaemon(cfg)
		done <- startResult{process: process, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return fmt.Errorf("failed to start embedded Tor daemon: %w", res.err)
		}
		d.mu.Lock()
		d.process = res.process
		d.socksAddr = res.process.SocksAddr()
		d.mu.Unlock()
		return nil
	case <-ctx.Done():
		go func() {
			if res := <-done; res.err == nil {
				_ = res.process.Stop() //nolint:errcheck // nobody is left to report to
			}
		}()
		return ctx.Err()
	}
}

// Stop terminates the daemon. It is safe to call on a stopped Daemon.
func (d *Daemon) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.process == nil {
		return nil
	}
	err := d.process.Stop()
	d.process = nil
	d.socksAddr = ""
	return err
}

// SocksAddr returns the SOCKS5 address of the running daemon, or "".
func (d *Daemon) SocksAddr() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.socksAddr
}

// IsRunning reports whether the daemon has been started and not stopped.
func (d *Daemon) IsRunning() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.process != nil
}

// NewClient returns a Client bound to the daemon's SOCKS port.
func (d *Daemon) NewClient(timeout time.Duration, opts ...ClientOption) (*Client, error) {
	addr := d.SocksAddr()
	if addr == "" {
		return nil, ErrDaemonNotRunning
	}
	return NewClient(addr, timeout, opts...)
}
