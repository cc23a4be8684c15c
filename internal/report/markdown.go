package report

import (
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/onioncrawl/internal/dataset"
)

// maxCellAddrs bounds how many addresses a top-site table cell lists.
const maxCellAddrs = 3

// MarkdownWriter outputs reports in Markdown format for sharing.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// WriteCrawl outputs the crawl report in Markdown format.
func (w *MarkdownWriter) WriteCrawl(report *CrawlReport) (int, error) {
	md := markdown.NewMarkdown(w.output)
	s := report.Summary

	md.H1("Crawl Summary")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Run ID", "`" + s.RunID + "`"},
			{"Stop Reason", string(s.StopReason)},
			{"Searched", strconv.Itoa(s.Searched)},
			{"Pending", strconv.Itoa(s.Pending)},
			{"Written", strconv.Itoa(s.Written)},
			{"Abandoned", strconv.Itoa(s.Abandoned)},
			{"Discarded", strconv.Itoa(s.Discarded)},
			{"Elapsed", s.Elapsed.Round(1e9).String()},
			{"Output", "`" + report.OutputDir + "`"},
		},
	})
	md.PlainText("")

	if s.Abandoned > 0 {
		md.Warningf("%d fetch(es) were abandoned at shutdown and will be retried on resume.", s.Abandoned)
		md.PlainText("")
	}
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// WriteDataset outputs the dataset report in Markdown format.
func (w *MarkdownWriter) WriteDataset(report *DatasetReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeDatasetHeader(md, report)
	w.writeTopics(md, report)
	w.writeTopSites(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeDatasetHeader(md *markdown.Markdown, report *DatasetReport) {
	md.H1("Dataset Summary")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Dataset", "`" + report.DatasetID + "`"},
			{"Source", "`" + report.Source + "`"},
			{"Generated", report.Generated.Format("2006-01-02 15:04:05 MST")},
			{"Sites", strconv.Itoa(report.Sites)},
			{"Failed", strconv.Itoa(report.Failed)},
			{"Sites With Addresses", strconv.Itoa(report.WithAddresses)},
			{"Addresses", strconv.Itoa(report.Addresses)},
			{"BTC Received", formatBTC(report.TotalReceived)},
			{"BTC Sent", formatBTC(report.TotalSent)},
			{"Transactions", strconv.FormatInt(report.NTx, 10)},
		},
	})
	md.PlainText("")

	if report.WithAddresses == 0 {
		md.Note("No site in this dataset exposes an enriched payment address.")
		md.PlainText("")
	}
}

// writeTopics writes the topic table and a mermaid pie chart of it.
func (w *MarkdownWriter) writeTopics(md *markdown.Markdown, report *DatasetReport) {
	md.H2("Topics")
	md.PlainText("")

	if len(report.Topics) == 0 {
		md.PlainText("No titled sites.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(report.Topics))
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Sites per Topic"),
		piechart.WithShowData(true),
	)
	for i, tc := range report.Topics {
		label := dataset.TopicLabel(tc.Topic)
		rows[i] = []string{label, strconv.Itoa(tc.Count)}
		chart.LabelAndIntValue(label, uint64(tc.Count)) //nolint:gosec // counts are never negative
	}

	md.Table(markdown.TableSet{
		Header: []string{"Topic", "Sites"},
		Rows:   rows,
	})
	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeTopSites(md *markdown.Markdown, report *DatasetReport) {
	if len(report.TopSites) == 0 {
		return
	}

	md.H2("Top Sites by BTC Received")
	md.PlainText("")

	rows := make([][]string, len(report.TopSites))
	for i, row := range report.TopSites {
		title := row.Title
		if title == "" {
			title = "-"
		}
		rows[i] = []string{
			strconv.Itoa(i + 1),
			"`" + row.OnionAddr + "`",
			truncateString(title, 50),
			formatBTC(row.TotalReceived),
			strconv.Itoa(row.BTCAddrsCount),
			cellAddrs(row.BTCAddrs),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"#", "Site", "Title", "BTC Received", "Addresses", "Largest"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [onioncrawl](https://github.com/nao1215/onioncrawl)*")
}

func cellAddrs(addrs []string) string {
	if len(addrs) > maxCellAddrs {
		return strings.Join(addrs[:maxCellAddrs], ", ") + ", ..."
	}
	return strings.Join(addrs, ", ")
}

// truncateString truncates a string to maxLen runes with ellipsis.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
