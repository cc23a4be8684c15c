package report

import (
	"io"
)

// Writer outputs reports in one format.
type Writer interface {
	// WriteCrawl outputs a crawl run summary.
	// Returns the number of bytes written and any error encountered.
	WriteCrawl(report *CrawlReport) (int, error)

	// WriteDataset outputs a dataset summary.
	WriteDataset(report *DatasetReport) (int, error)
}

// MultiWriter writes to multiple Writers simultaneously.
// This is useful for outputting to both terminal and file.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// WriteCrawl outputs the crawl report to all configured Writers.
// Returns the total bytes written across all writers.
// Stops on first error encountered.
func (m *MultiWriter) WriteCrawl(report *CrawlReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteCrawl(report)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WriteDataset outputs the dataset report to all configured Writers.
func (m *MultiWriter) WriteDataset(report *DatasetReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteDataset(report)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}
