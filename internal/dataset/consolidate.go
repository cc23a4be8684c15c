package dataset

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrMalformedEnrichment is returned for enrichment lines that cannot be parsed.
var ErrMalformedEnrichment = errors.New("malformed enrichment line")

// SatoshiPerBTC converts API amounts to BTC.
const SatoshiPerBTC = 1e8

// ChainStats are the confirmed statistics of one address as reported by
// an Esplora-compatible API. Amounts are in satoshi.
type ChainStats struct {
	FundedTxoCount int64 `json:"funded_txo_count"`
	FundedTxoSum   int64 `json:"funded_txo_sum"`
	SpentTxoCount  int64 `json:"spent_txo_count"`
	SpentTxoSum    int64 `json:"spent_txo_sum"`
	TxCount        int64 `json:"tx_count"`
}

// Volume is the amount that moved through the address in both directions.
func (s ChainStats) Volume() int64 {
	return s.SpentTxoSum + s.FundedTxoSum
}

type addressResponse struct {
	Address    string     `json:"address"`
	ChainStats ChainStats `json:"chain_stats"`
}

// Consolidate reads enrichment lines and returns the chain statistics per
// address. A later line for the same address replaces an earlier one.
func Consolidate(r io.Reader) (map[string]ChainStats, error) {
	stats := make(map[string]ChainStats)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for lineNo := 1; scanner.Scan(); lineNo++ {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var resp addressResponse
		if err := json.Unmarshal(line, &resp); err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrMalformedEnrichment, lineNo, err)
		}
		if resp.Address == "" {
			return nil, fmt.Errorf("%w: line %d: missing address", ErrMalformedEnrichment, lineNo)
		}
		stats[resp.Address] = resp.ChainStats
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read enrichment data: %w", err)
	}
	return stats, nil
}

// ConsolidateFile reads the enrichment file at path.
func ConsolidateFile(path string) (map[string]ChainStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open enrichment data: %w", err)
	}
	defer f.Close()
	return Consolidate(f)
}
