package dataset

import (
	"bufio"
	"fmt"
	"io"

	"github.com/nao1215/onioncrawl/internal/record"
)

// AddressList returns every distinct payment address of the successful
// entries in first-seen order.
func AddressList(entries []record.Entry) []string {
	seen := make(map[string]bool)
	addrs := make([]string, 0)
	for _, e := range entries {
		if !e.OK() {
			continue
		}
		for _, addr := range e.PaymentAddrs {
			if !seen[addr] {
				seen[addr] = true
				addrs = append(addrs, addr)
			}
		}
	}
	return addrs
}

// ValidAddresses keeps the addresses that the enrichment API answered for,
// preserving the order of addrs.
func ValidAddresses(addrs []string, stats map[string]ChainStats) []string {
	valid := make([]string, 0, len(addrs))
	for _, addr := range addrs {
		if _, ok := stats[addr]; ok {
			valid = append(valid, addr)
		}
	}
	return valid
}

// WriteAddressList writes one address per line.
func WriteAddressList(w io.Writer, addrs []string) error {
	bw := bufio.NewWriter(w)
	for _, addr := range addrs {
		if _, err := bw.WriteString(addr + "\n"); err != nil {
			return fmt.Errorf("failed to write address list: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write address list: %w", err)
	}
	return nil
}
