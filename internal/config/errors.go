package config

import "errors"

// Configuration validation errors returned by Config.Validate and
// Config.ValidateEnrich. Callers can match them with errors.Is.
var (
	// ErrNoSeeds is returned when a fresh crawl has neither seeds nor a keyword file.
	ErrNoSeeds = errors.New("no seeds specified: provide onion addresses or use --keywords")

	// ErrInvalidTimeout is returned when a timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidWorkers is returned when a worker count is not positive.
	ErrInvalidWorkers = errors.New("invalid worker count: must be positive")

	// ErrInvalidSearchLimit is returned when the search limit is negative.
	// Use 0 for no limit.
	ErrInvalidSearchLimit = errors.New("invalid search limit: must be non-negative")

	// ErrInvalidMaxBodySize is returned when the max body size is not positive.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be positive")

	// ErrInvalidMaxRedirects is returned when the redirect limit is negative.
	ErrInvalidMaxRedirects = errors.New("invalid redirect limit: must be non-negative")

	// ErrConflictingProxyModes is returned when --direct and --external-tor
	// are both given.
	ErrConflictingProxyModes = errors.New("conflicting proxy modes: --direct and --external-tor cannot be used together")

	// ErrNoOutputDir is returned when no output directory is configured.
	ErrNoOutputDir = errors.New("no output directory specified")

	// ErrNoEnrichAPI is returned when enrichment has no API URL.
	ErrNoEnrichAPI = errors.New("no enrichment API specified")

	// ErrInvalidRate is returned when the enrichment rate is negative.
	ErrInvalidRate = errors.New("invalid rate: must be non-negative")
)
