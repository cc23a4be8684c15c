package dataset

import (
	"cmp"
	"encoding/csv"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/nao1215/onioncrawl/internal/record"
)

const (
	// DefaultExcludedHost is the search engine whose result pages are crawl
	// seeds rather than crawled sites.
	DefaultExcludedHost = "ahmia.fi"

	// SpreadsheetCellLimit is the longest cell common spreadsheet tools accept.
	SpreadsheetCellLimit = 32000

	addrSeparator = ", "
)

// Header is the CSV column order.
var Header = []string{
	"onion_addr", "title", "topic", "btc_addrs", "btc_addrs_count",
	"total_sent", "total_received", "n_tx", "comment",
}

// Row is one crawled site in the dataset.
type Row struct {
	OnionAddr string `json:"onion_addr"`
	Title     string `json:"title"`
	Topic     string `json:"topic"`

	// BTCAddrs are the enriched payment addresses of the page, ordered by
	// volume, largest first.
	BTCAddrs []string `json:"btc_addrs"`

	// BTCAddrsCount counts every enriched address, including any dropped
	// from BTCAddrs to fit a spreadsheet cell.
	BTCAddrsCount int `json:"btc_addrs_count"`

	// TotalSent and TotalReceived are in BTC.
	TotalSent     float64 `json:"total_sent"`
	TotalReceived float64 `json:"total_received"`
	NTx           int64   `json:"n_tx"`

	// Comment holds the crawl status of failed entries, or a truncation note.
	Comment string `json:"comment,omitempty"`
}

// Options control Build.
type Options struct {
	// ExcludeHosts drops entries whose address contains any of these.
	ExcludeHosts []string

	// CellLimit truncates the address list cell to this many characters.
	// 0 disables truncation.
	CellLimit int
}

// DefaultOptions excludes search engine seeds and does not truncate.
func DefaultOptions() Options {
	return Options{ExcludeHosts: []string{DefaultExcludedHost}}
}

// Build joins crawl entries with chain statistics. Only addresses present
// in stats are kept, so addresses the API rejected do not count.
func Build(entries []record.Entry, stats map[string]ChainStats, opts Options) []Row {
	rows := make([]Row, 0, len(entries))
	for _, e := range entries {
		if excluded(e.Address, opts.ExcludeHosts) {
			continue
		}

		row := Row{OnionAddr: e.Address}
		if !e.OK() {
			row.Comment = e.Status
			rows = append(rows, row)
			continue
		}

		row.Title = strings.NewReplacer("\r", "", "\n", "").Replace(e.Title)
		if row.Title != "" {
			row.Topic = Categorize(row.Title)
		}

		addrs := make([]string, 0, len(e.PaymentAddrs))
		for _, addr := range e.PaymentAddrs {
			if _, ok := stats[addr]; ok {
				addrs = append(addrs, addr)
			}
		}
		if len(addrs) > 0 {
			slices.SortStableFunc(addrs, func(a, b string) int {
				return cmp.Compare(stats[b].Volume(), stats[a].Volume())
			})

			var sent, received int64
			for _, addr := range addrs {
				s := stats[addr]
				sent += s.SpentTxoSum
				received += s.FundedTxoSum
				row.NTx += s.TxCount
			}
			row.BTCAddrs = addrs
			row.BTCAddrsCount = len(addrs)
			row.TotalSent = float64(sent) / SatoshiPerBTC
			row.TotalReceived = float64(received) / SatoshiPerBTC

			if opts.CellLimit > 0 {
				row.BTCAddrs = fitCell(addrs, opts.CellLimit)
				if len(row.BTCAddrs) < len(addrs) {
					row.Comment = fmt.Sprintf("Too many addresses to display; %d of %d shown.", len(row.BTCAddrs), len(addrs))
				}
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func excluded(addr string, hosts []string) bool {
	for _, host := range hosts {
		if host != "" && strings.Contains(addr, host) {
			return true
		}
	}
	return false
}

// fitCell drops trailing addresses until the joined list fits in limit.
func fitCell(addrs []string, limit int) []string {
	n := len(addrs)
	for n > 0 && len(strings.Join(addrs[:n], addrSeparator)) > limit {
		n--
	}
	return addrs[:n]
}

// WriteCSV writes rows with ';' as the field separator and ',' as the
// decimal separator. Numeric cells of rows without enriched addresses are
// left empty.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	cw.Comma = ';'

	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("failed to write dataset: %w", err)
	}
	for _, row := range rows {
		fields := []string{row.OnionAddr, row.Title, row.Topic, strings.Join(row.BTCAddrs, addrSeparator), "", "", "", "", row.Comment}
		if row.BTCAddrsCount > 0 {
			fields[4] = strconv.Itoa(row.BTCAddrsCount)
			fields[5] = formatDecimal(row.TotalSent)
			fields[6] = formatDecimal(row.TotalReceived)
			fields[7] = strconv.FormatInt(row.NTx, 10)
		}
		if err := cw.Write(fields); err != nil {
			return fmt.Errorf("failed to write dataset: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to write dataset: %w", err)
	}
	return nil
}

func formatDecimal(v float64) string {
	return strings.Replace(strconv.FormatFloat(v, 'f', -1, 64), ".", ",", 1)
}
