package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/onioncrawl/internal/dataset"
)

const ruleWidth = 70

// SimpleWriter outputs human-readable text reports for terminal display.
type SimpleWriter struct {
	baseWriter

	// verbose adds the address lists of ranked sites.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// WriteCrawl outputs the crawl report in human-readable format.
func (w *SimpleWriter) WriteCrawl(report *CrawlReport) (int, error) {
	var sb strings.Builder
	s := report.Summary

	writeBanner(&sb, "CRAWL SUMMARY")
	fmt.Fprintf(&sb, "Run ID:      %s\n", s.RunID)
	fmt.Fprintf(&sb, "Stopped:     %s\n", s.StopReason)
	fmt.Fprintf(&sb, "Elapsed:     %s\n", s.Elapsed.Round(1e9))
	fmt.Fprintf(&sb, "Output:      %s\n", report.OutputDir)
	fmt.Fprintf(&sb, "Savestate:   %s\n", s.SavestatePath)
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "  SEARCHED:  %d\n", s.Searched)
	fmt.Fprintf(&sb, "  PENDING:   %d\n", s.Pending)
	fmt.Fprintf(&sb, "  WRITTEN:   %d\n", s.Written)
	if s.Abandoned > 0 || s.Discarded > 0 {
		fmt.Fprintf(&sb, "  ABANDONED: %d\n", s.Abandoned)
		fmt.Fprintf(&sb, "  DISCARDED: %d\n", s.Discarded)
	}
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")

	return w.output.Write([]byte(sb.String()))
}

// WriteDataset outputs the dataset report in human-readable format.
func (w *SimpleWriter) WriteDataset(report *DatasetReport) (int, error) {
	var sb strings.Builder

	writeBanner(&sb, "DATASET SUMMARY")
	fmt.Fprintf(&sb, "Dataset:     %s\n", report.DatasetID)
	fmt.Fprintf(&sb, "Source:      %s\n", report.Source)
	fmt.Fprintf(&sb, "Generated:   %s\n", report.Generated.Format("2006-01-02 15:04:05 MST"))
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "  SITES:          %d\n", report.Sites)
	fmt.Fprintf(&sb, "  FAILED:         %d\n", report.Failed)
	fmt.Fprintf(&sb, "  WITH ADDRESSES: %d\n", report.WithAddresses)
	fmt.Fprintf(&sb, "  ADDRESSES:      %d\n", report.Addresses)
	fmt.Fprintf(&sb, "  RECEIVED:       %s BTC\n", formatBTC(report.TotalReceived))
	fmt.Fprintf(&sb, "  SENT:           %s BTC\n", formatBTC(report.TotalSent))
	fmt.Fprintf(&sb, "  TRANSACTIONS:   %d\n", report.NTx)
	sb.WriteString("\n")

	if len(report.Topics) > 0 {
		writeSection(&sb, "TOPICS")
		for _, tc := range report.Topics {
			fmt.Fprintf(&sb, "  %-20s %d\n", dataset.TopicLabel(tc.Topic), tc.Count)
		}
		sb.WriteString("\n")
	}

	if len(report.TopSites) > 0 {
		writeSection(&sb, "TOP SITES BY BTC RECEIVED")
		for i, row := range report.TopSites {
			fmt.Fprintf(&sb, "  %2d. %s\n", i+1, row.OnionAddr)
			if row.Title != "" {
				fmt.Fprintf(&sb, "      Title: %s\n", row.Title)
			}
			fmt.Fprintf(&sb, "      Received: %s BTC, Addresses: %d\n", formatBTC(row.TotalReceived), row.BTCAddrsCount)
			if w.verbose {
				for _, addr := range row.BTCAddrs {
					fmt.Fprintf(&sb, "      [+] %s\n", addr)
				}
			}
		}
		sb.WriteString("\n")
	}

	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")

	return w.output.Write([]byte(sb.String()))
}

func writeBanner(sb *strings.Builder, title string) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	fmt.Fprintf(sb, "%*s\n", (ruleWidth+len(title))/2, title)
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n\n")
}

func writeSection(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n\n")
}

// formatBTC prints an amount with satoshi precision.
func formatBTC(v float64) string {
	return fmt.Sprintf("%.8f", v)
}
