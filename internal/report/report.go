package report

import (
	"cmp"
	"slices"
	"time"

	"github.com/nao1215/onioncrawl/internal/crawler"
	"github.com/nao1215/onioncrawl/internal/dataset"
)

// DefaultTopSites is how many sites DatasetReport ranks by default.
const DefaultTopSites = 10

// CrawlReport is the outcome of one crawl run.
type CrawlReport struct {
	Summary   *crawler.Summary
	OutputDir string
	Finished  time.Time
}

// NewCrawlReport wraps a run summary.
func NewCrawlReport(summary *crawler.Summary, outputDir string) *CrawlReport {
	return &CrawlReport{
		Summary:   summary,
		OutputDir: outputDir,
		Finished:  time.Now(),
	}
}

// TopicCount is how many sites carry a topic.
type TopicCount struct {
	Topic string `json:"topic"`
	Count int    `json:"count"`
}

// DatasetReport aggregates the rows of a dataset.
type DatasetReport struct {
	DatasetID string    `json:"dataset_id"`
	Source    string    `json:"source"`
	Generated time.Time `json:"generated"`

	// Sites counts every row, Failed the rows of addresses that yielded
	// no page, and WithAddresses the rows holding enriched addresses.
	Sites         int `json:"sites"`
	Failed        int `json:"failed"`
	WithAddresses int `json:"with_addresses"`

	Addresses     int     `json:"addresses"`
	TotalSent     float64 `json:"total_sent"`
	TotalReceived float64 `json:"total_received"`
	NTx           int64   `json:"n_tx"`

	// Topics is ordered by count, largest first.
	Topics []TopicCount `json:"topics"`

	// TopSites are the rows with the most BTC received.
	TopSites []dataset.Row `json:"top_sites"`
}

// DatasetReportOption configures NewDatasetReport.
type DatasetReportOption func(*datasetReportConfig)

type datasetReportConfig struct {
	topSites int
	now      func() time.Time
}

// WithTopSites sets how many sites are ranked. Values below 1 disable ranking.
func WithTopSites(n int) DatasetReportOption {
	return func(c *datasetReportConfig) {
		c.topSites = n
	}
}

// WithGenerated fixes the report timestamp.
func WithGenerated(t time.Time) DatasetReportOption {
	return func(c *datasetReportConfig) {
		c.now = func() time.Time { return t }
	}
}

// NewDatasetReport aggregates rows built by dataset.Build.
func NewDatasetReport(datasetID, source string, rows []dataset.Row, opts ...DatasetReportOption) *DatasetReport {
	cfg := datasetReportConfig{topSites: DefaultTopSites, now: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}

	r := &DatasetReport{
		DatasetID: datasetID,
		Source:    source,
		Generated: cfg.now(),
		Sites:     len(rows),
		Topics:    []TopicCount{},
		TopSites:  []dataset.Row{},
	}

	topics := make(map[string]int)
	ranked := make([]dataset.Row, 0, len(rows))
	for _, row := range rows {
		if row.BTCAddrsCount == 0 && row.Comment != "" {
			r.Failed++
			continue
		}
		for _, topic := range dataset.SplitTopics(row.Topic) {
			topics[topic]++
		}
		if row.BTCAddrsCount == 0 {
			continue
		}
		r.WithAddresses++
		r.Addresses += row.BTCAddrsCount
		r.TotalSent += row.TotalSent
		r.TotalReceived += row.TotalReceived
		r.NTx += row.NTx
		ranked = append(ranked, row)
	}

	for topic, count := range topics {
		r.Topics = append(r.Topics, TopicCount{Topic: topic, Count: count})
	}
	slices.SortFunc(r.Topics, func(a, b TopicCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Topic, b.Topic)
	})

	if cfg.topSites > 0 {
		slices.SortStableFunc(ranked, func(a, b dataset.Row) int {
			return cmp.Compare(b.TotalReceived, a.TotalReceived)
		})
		r.TopSites = ranked[:min(cfg.topSites, len(ranked))]
	}
	return r
}
