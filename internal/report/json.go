package report

import (
	"encoding/json"
	"io"
)

// JSONWriter outputs reports in JSON format.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with two-space indentation.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// crawlJSON is the JSON shape of a CrawlReport.
type crawlJSON struct {
	RunID          string  `json:"run_id"`
	StopReason     string  `json:"stop_reason"`
	Searched       int     `json:"searched"`
	Pending        int     `json:"pending"`
	Written        int     `json:"written"`
	Abandoned      int     `json:"abandoned"`
	Discarded      int     `json:"discarded"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
	OutputDir      string  `json:"output_dir"`
	Savestate      string  `json:"savestate"`
}

// WriteCrawl outputs the crawl report in JSON format.
func (w *JSONWriter) WriteCrawl(report *CrawlReport) (int, error) {
	s := report.Summary
	return w.writeJSON(crawlJSON{
		RunID:          s.RunID,
		StopReason:     string(s.StopReason),
		Searched:       s.Searched,
		Pending:        s.Pending,
		Written:        s.Written,
		Abandoned:      s.Abandoned,
		Discarded:      s.Discarded,
		ElapsedSeconds: s.Elapsed.Seconds(),
		OutputDir:      report.OutputDir,
		Savestate:      s.SavestatePath,
	})
}

// WriteDataset outputs the dataset report in JSON format.
func (w *JSONWriter) WriteDataset(report *DatasetReport) (int, error) {
	return w.writeJSON(report)
}

// writeJSON marshals the given value to JSON and writes it to the output.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var (
		data []byte
		err  error
	)
	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}

	data = append(data, '\n')
	return w.output.Write(data)
}
