// Package report renders crawl summaries and dataset summaries.
//
// Three writers share the Writer interface:
//   - SimpleWriter: plain text for the terminal
//   - JSONWriter: JSON for scripts
//   - MarkdownWriter: Markdown with a mermaid topic chart for sharing
//
// Report data lives in CrawlReport and DatasetReport; the writers only
// format it, so MultiWriter can send one report to several formats.
package report
