package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nao1215/onioncrawl/internal/record"
)

const (
	addrA = "1BoatSLRHtKNngkdXEeobR76b53LETtpyT"
	addrB = "bc1qar0srrr7xfkvy5l643lydnw9re59gtzzwf5mdq"
	addrC = "3J98t1WpEZ73CNmQviecrnyiWrnqRhWNLy"
)

// writeRecord writes a closed crawl record and returns its path.
func writeRecord(t *testing.T, entries ...record.Entry) string {
	t.Helper()

	dir := t.TempDir()
	w, err := record.Create(dir, "run-test", false)
	if err != nil {
		t.Fatalf("failed to create crawl record: %v", err)
	}
	for _, e := range entries {
		if err := w.Write(e); err != nil {
			t.Fatalf("failed to write entry: %v", err)
		}
	}
	if err := w.Close(len(entries)); err != nil {
		t.Fatalf("failed to close crawl record: %v", err)
	}
	return filepath.Join(dir, record.DataFileName)
}

func sampleEntries() []record.Entry {
	return []record.Entry{
		record.Success("https://ahmia.fi/search/?q=mixer", "Ahmia", nil),
		record.Success("http://mixeronionxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxx.onion", "Bitcoin Mixer", []string{addrA, addrB}),
		record.Success("http://marketonionxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxx.onion", "Dark Market", []string{addrB, addrC}),
		record.Failure("http://deadonionxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxx.onion", record.HTTPErrorStatus(404)),
	}
}

// TestRunAddrsCmd tests the addrs command.
func TestRunAddrsCmd(t *testing.T) {
	t.Parallel()

	t.Run("prints distinct addresses in first-seen order", func(t *testing.T) {
		t.Parallel()

		stdout, _, err := execute(t, "addrs", writeRecord(t, sampleEntries()...))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := strings.Join([]string{addrA, addrB, addrC}, "\n") + "\n"
		if stdout != want {
			t.Errorf("got %q, want %q", stdout, want)
		}
	})

	t.Run("writes to a file", func(t *testing.T) {
		t.Parallel()

		outPath := filepath.Join(t.TempDir(), "addrs.txt")
		stdout, _, err := execute(t, "addrs", writeRecord(t, sampleEntries()...), "-o", outPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(stdout, "Wrote 3 addresses") {
			t.Errorf("unexpected stdout %q", stdout)
		}

		data, err := os.ReadFile(outPath)
		if err != nil {
			t.Fatalf("failed to read output: %v", err)
		}
		if got := strings.Count(string(data), "\n"); got != 3 {
			t.Errorf("expected 3 lines, got %d", got)
		}
	})

	t.Run("keeps only enriched addresses", func(t *testing.T) {
		t.Parallel()

		enriched := writeLines(t, "enrichment.jsonl",
			`{"address":"`+addrC+`","chain_stats":{"funded_txo_count":1,"funded_txo_sum":100,"spent_txo_count":0,"spent_txo_sum":0,"tx_count":1}}`,
			`{"address":"`+addrA+`","chain_stats":{"funded_txo_count":1,"funded_txo_sum":200,"spent_txo_count":0,"spent_txo_sum":0,"tx_count":1}}`)

		stdout, _, err := execute(t, "addrs", writeRecord(t, sampleEntries()...), "--enriched", enriched)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := addrA + "\n" + addrC + "\n"
		if stdout != want {
			t.Errorf("got %q, want %q", stdout, want)
		}
	})

	t.Run("missing enrichment file", func(t *testing.T) {
		t.Parallel()

		_, _, err := execute(t, "addrs", writeRecord(t, sampleEntries()...),
			"--enriched", filepath.Join(t.TempDir(), "missing.jsonl"))
		if err == nil {
			t.Error("expected error for missing enrichment file")
		}
	})

	t.Run("missing crawl record", func(t *testing.T) {
		t.Parallel()

		_, _, err := execute(t, "addrs", filepath.Join(t.TempDir(), "missing.jsonl"))
		if err == nil {
			t.Error("expected error for missing crawl record")
		}
	})
}
