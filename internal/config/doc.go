// Package config provides the configuration of onioncrawl: defaults, the
// optional YAML configuration file and validation of crawl and enrichment
// settings.
package config
