package config

import "time"

// File represents the structure of the .onioncrawl configuration file.
// Durations are written the way time.ParseDuration reads them ("90s", "2m").
type File struct {
	// Tor configures how the crawler reaches the Tor network.
	Tor TorSection `yaml:"tor,omitempty"`

	// Crawl holds crawl defaults.
	Crawl CrawlSection `yaml:"crawl,omitempty"`

	// Enrich holds address lookup defaults.
	Enrich EnrichSection `yaml:"enrich,omitempty"`
}

// TorSection configures the Tor connection.
type TorSection struct {
	// Proxy is an external SOCKS5 proxy address.
	Proxy string `yaml:"proxy,omitempty"`

	// External selects Proxy instead of the embedded daemon.
	External bool `yaml:"external,omitempty"`

	// StartupTimeout bounds the embedded daemon's bootstrap.
	StartupTimeout time.Duration `yaml:"startupTimeout,omitempty"`
}

// CrawlSection holds crawl defaults.
type CrawlSection struct {
	Timeout      time.Duration `yaml:"timeout,omitempty"`
	MaxRedirects int           `yaml:"maxRedirects,omitempty"`
	UserAgent    string        `yaml:"userAgent,omitempty"`
	MaxBodySize  int64         `yaml:"maxBodySize,omitempty"`
	Workers      int           `yaml:"workers,omitempty"`
	SearchLimit  int           `yaml:"searchLimit,omitempty"`
	Grace        time.Duration `yaml:"grace,omitempty"`
	Seeds        []string      `yaml:"seeds,omitempty"`
	KeywordsFile string        `yaml:"keywordsFile,omitempty"`
	SearchPrefix string        `yaml:"searchPrefix,omitempty"`
	OutputDir    string        `yaml:"outputDir,omitempty"`
}

// EnrichSection holds address lookup defaults.
type EnrichSection struct {
	API     string        `yaml:"api,omitempty"`
	Workers int           `yaml:"workers,omitempty"`
	Rate    float64       `yaml:"rate,omitempty"`
	Timeout time.Duration `yaml:"timeout,omitempty"`
}
