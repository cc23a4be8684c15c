package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// DefaultTorProxyAddress is the standard Tor SOCKS5 proxy address.
	// We use 127.0.0.1 instead of localhost to avoid DNS resolution and
	// IPv6 surprises on some systems.
	DefaultTorProxyAddress = "127.0.0.1:9050"

	// DefaultTimeout bounds each fetch. Onion services are slow, so this is
	// generous compared with clearnet crawlers.
	DefaultTimeout = 60 * time.Second

	// DefaultWorkers is the number of concurrent fetches.
	// Higher values may overwhelm the local Tor daemon.
	DefaultWorkers = 10

	// DefaultSearchLimit of 0 crawls until the frontier is exhausted or the
	// run is interrupted.
	DefaultSearchLimit = 0

	// DefaultMaxBodySize limits how much of a response is read.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultMaxRedirects is the redirect hop limit per fetch.
	DefaultMaxRedirects = 30

	// DefaultGrace is how long running fetches may finish after a stop.
	DefaultGrace = 30 * time.Second

	// DefaultSearchPrefix is the onion search engine query keywords are appended to.
	DefaultSearchPrefix = "https://ahmia.fi/search/?q="

	// DefaultTorStartupTimeout is the maximum time to wait for the embedded
	// Tor daemon to bootstrap.
	DefaultTorStartupTimeout = 3 * time.Minute

	// DefaultEnrichAPI is the Esplora-compatible API used for address lookups.
	DefaultEnrichAPI = "https://blockstream.info/api"

	// DefaultEnrichWorkers is the number of concurrent address lookups.
	DefaultEnrichWorkers = 20

	// DefaultEnrichTimeout bounds each address lookup.
	DefaultEnrichTimeout = 10 * time.Second

	// AppName is the application name used for XDG directory paths.
	AppName = "onioncrawl"
)

// Config holds all configuration options for onioncrawl.
// It is populated from defaults, then the configuration file, then CLI flags,
// and passed down explicitly rather than kept in global state.
type Config struct {
	// TorProxyAddress is the Tor SOCKS5 proxy in "host:port" format.
	// Only used when UseExternalTor is true.
	TorProxyAddress string

	// UseExternalTor disables the embedded Tor daemon and uses TorProxyAddress.
	UseExternalTor bool

	// Direct fetches without Tor. Only useful against local test services.
	Direct bool

	// TorStartupTimeout is the maximum time to wait for the embedded daemon.
	TorStartupTimeout time.Duration

	// Timeout bounds each fetch, including redirects and body read.
	Timeout time.Duration

	// MaxRedirects is the redirect hop limit per fetch.
	MaxRedirects int

	// UserAgent overrides the browser User-Agent sent with requests.
	// Empty means the fetcher's default.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes to read.
	MaxBodySize int64

	// Workers is the number of concurrent fetches.
	Workers int

	// SearchLimit stops the crawl once this many addresses are searched.
	// 0 means no limit.
	SearchLimit int

	// Grace bounds how long running fetches may finish after the crawl stops.
	Grace time.Duration

	// Seeds are the initial onion locations.
	Seeds []string

	// KeywordsFile holds one search phrase per line.
	KeywordsFile string

	// SearchPrefix is the search engine query keywords are appended to.
	SearchPrefix string

	// OutputDir receives data.jsonl, log.txt and savestate.json.
	OutputDir string

	// SavestatePath overrides <OutputDir>/savestate.json.
	SavestatePath string

	// Resume continues the crawl recorded in OutputDir.
	Resume bool

	// Overwrite allows a fresh crawl to replace an existing crawl record.
	Overwrite bool

	// Verbose enables debug logging.
	Verbose bool

	// ConfigFilePath is the configuration file given on the command line.
	ConfigFilePath string

	// DBDir holds the SQLite dataset database.
	DBDir string

	// EnrichAPI is the base URL of the address lookup API.
	EnrichAPI string

	// EnrichWorkers is the number of concurrent address lookups.
	EnrichWorkers int

	// EnrichRate limits lookups per second. 0 means unlimited.
	EnrichRate float64

	// EnrichTimeout bounds each address lookup.
	EnrichTimeout time.Duration
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		TorProxyAddress:   DefaultTorProxyAddress,
		TorStartupTimeout: DefaultTorStartupTimeout,
		Timeout:           DefaultTimeout,
		MaxRedirects:      DefaultMaxRedirects,
		MaxBodySize:       DefaultMaxBodySize,
		Workers:           DefaultWorkers,
		SearchLimit:       DefaultSearchLimit,
		Grace:             DefaultGrace,
		SearchPrefix:      DefaultSearchPrefix,
		OutputDir:         DefaultOutputDir(),
		DBDir:             XDGDataDir(),
		EnrichAPI:         DefaultEnrichAPI,
		EnrichWorkers:     DefaultEnrichWorkers,
		EnrichTimeout:     DefaultEnrichTimeout,
	}
}

// XDGDataDir returns the XDG data directory for onioncrawl.
// On Linux: ~/.local/share/onioncrawl
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for onioncrawl.
// On Linux: ~/.config/onioncrawl
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// DefaultOutputDir is where crawl output goes when no directory is given.
func DefaultOutputDir() string {
	return filepath.Join(XDGDataDir(), "crawl")
}

// Validate checks the settings used by a crawl and returns the first
// problem found.
func (c *Config) Validate() error {
	if !c.Resume && len(c.Seeds) == 0 && c.KeywordsFile == "" {
		return ErrNoSeeds
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.Workers <= 0 {
		return ErrInvalidWorkers
	}
	if c.SearchLimit < 0 {
		return ErrInvalidSearchLimit
	}
	if c.MaxBodySize <= 0 {
		return ErrInvalidMaxBodySize
	}
	if c.MaxRedirects < 0 {
		return ErrInvalidMaxRedirects
	}
	if c.Direct && c.UseExternalTor {
		return ErrConflictingProxyModes
	}
	if c.OutputDir == "" {
		return ErrNoOutputDir
	}
	return nil
}

// ValidateEnrich checks the settings used by address enrichment.
func (c *Config) ValidateEnrich() error {
	if c.EnrichAPI == "" {
		return ErrNoEnrichAPI
	}
	if c.EnrichWorkers <= 0 {
		return ErrInvalidWorkers
	}
	if c.EnrichRate < 0 {
		return ErrInvalidRate
	}
	if c.EnrichTimeout <= 0 {
		return ErrInvalidTimeout
	}
	return nil
}

// Apply overlays the non-zero settings of f onto c.
func (c *Config) Apply(f *File) {
	if f == nil {
		return
	}

	if f.Tor.Proxy != "" {
		c.TorProxyAddress = f.Tor.Proxy
	}
	if f.Tor.External {
		c.UseExternalTor = true
	}
	if f.Tor.StartupTimeout > 0 {
		c.TorStartupTimeout = f.Tor.StartupTimeout
	}

	cr := f.Crawl
	if cr.Timeout > 0 {
		c.Timeout = cr.Timeout
	}
	if cr.MaxRedirects > 0 {
		c.MaxRedirects = cr.MaxRedirects
	}
	if cr.UserAgent != "" {
		c.UserAgent = cr.UserAgent
	}
	if cr.MaxBodySize > 0 {
		c.MaxBodySize = cr.MaxBodySize
	}
	if cr.Workers > 0 {
		c.Workers = cr.Workers
	}
	if cr.SearchLimit > 0 {
		c.SearchLimit = cr.SearchLimit
	}
	if cr.Grace != 0 {
		c.Grace = cr.Grace
	}
	if len(cr.Seeds) > 0 {
		c.Seeds = append([]string{}, cr.Seeds...)
	}
	if cr.KeywordsFile != "" {
		c.KeywordsFile = cr.KeywordsFile
	}
	if cr.SearchPrefix != "" {
		c.SearchPrefix = cr.SearchPrefix
	}
	if cr.OutputDir != "" {
		c.OutputDir = cr.OutputDir
	}

	en := f.Enrich
	if en.API != "" {
		c.EnrichAPI = en.API
	}
	if en.Workers > 0 {
		c.EnrichWorkers = en.Workers
	}
	if en.Rate > 0 {
		c.EnrichRate = en.Rate
	}
	if en.Timeout > 0 {
		c.EnrichTimeout = en.Timeout
	}
}
