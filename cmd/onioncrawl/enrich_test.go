package main

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// newAddressAPI serves Esplora-style address records. Addresses listed in
// missing get a 404.
func newAddressAPI(t *testing.T, missing ...string) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		addr := strings.TrimPrefix(r.URL.Path, "/address/")
		for _, m := range missing {
			if addr == m {
				http.NotFound(w, r)
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{
  "address": %q,
  "chain_stats": {"funded_txo_count": 2, "funded_txo_sum": 150000000, "spent_txo_count": 1, "spent_txo_sum": 50000000, "tx_count": 3},
  "mempool_stats": {"funded_txo_count": 0, "funded_txo_sum": 0, "spent_txo_count": 0, "spent_txo_sum": 0, "tx_count": 0}
}`, addr)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func writeLines(t *testing.T, name string, lines ...string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0600); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

// TestRunEnrichCmd tests the enrich command.
func TestRunEnrichCmd(t *testing.T) {
	t.Parallel()

	t.Run("appends one line per enriched address", func(t *testing.T) {
		t.Parallel()

		srv := newAddressAPI(t, addrC)
		list := writeLines(t, "addrs.txt", addrA, "not-an-address", addrB, addrC)
		outPath := filepath.Join(t.TempDir(), "enrichment.jsonl")

		_, stderr, err := execute(t, "enrich", list,
			"--config", writeConfig(t, ""),
			"--api", srv.URL,
			"--workers", "2",
			"-o", outPath,
		)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(stderr, "Enriched 2 of 3 addresses (1 skipped, 1 failed)") {
			t.Errorf("unexpected result line:\n%s", stderr)
		}

		data, err := os.ReadFile(outPath)
		if err != nil {
			t.Fatalf("failed to read output: %v", err)
		}
		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		if len(lines) != 2 {
			t.Fatalf("expected 2 lines, got %d:\n%s", len(lines), data)
		}
		for _, line := range lines {
			if strings.Contains(line, "\n") || !strings.HasPrefix(line, `{"address":`) {
				t.Errorf("expected one compact JSON object per line, got %q", line)
			}
		}
	})

	t.Run("rerun appends", func(t *testing.T) {
		t.Parallel()

		srv := newAddressAPI(t)
		list := writeLines(t, "addrs.txt", addrA)
		outPath := filepath.Join(t.TempDir(), "enrichment.jsonl")
		cfg := writeConfig(t, "")

		for range 2 {
			if _, _, err := execute(t, "enrich", list, "--config", cfg, "--api", srv.URL, "-o", outPath); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}

		data, err := os.ReadFile(outPath)
		if err != nil {
			t.Fatalf("failed to read output: %v", err)
		}
		if got := strings.Count(string(data), "\n"); got != 2 {
			t.Errorf("expected 2 lines after two runs, got %d", got)
		}
	})

	t.Run("config file sets the API", func(t *testing.T) {
		t.Parallel()

		srv := newAddressAPI(t)
		cfg := writeConfig(t, fmt.Sprintf("enrich:\n  api: %q\n  workers: 1\n", srv.URL))
		outPath := filepath.Join(t.TempDir(), "enrichment.jsonl")

		if _, _, err := execute(t, "enrich", writeLines(t, "addrs.txt", addrB), "--config", cfg, "-o", outPath); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		data, err := os.ReadFile(outPath)
		if err != nil {
			t.Fatalf("failed to read output: %v", err)
		}
		if !strings.Contains(string(data), addrB) {
			t.Errorf("expected enrichment of %s, got %q", addrB, data)
		}
	})

	t.Run("invalid settings", func(t *testing.T) {
		t.Parallel()

		_, _, err := execute(t, "enrich", writeLines(t, "addrs.txt", addrA),
			"--config", writeConfig(t, ""), "--workers", "0")
		if err == nil || !strings.Contains(err.Error(), "configuration error") {
			t.Errorf("expected configuration error, got %v", err)
		}
	})

	t.Run("requires an address list", func(t *testing.T) {
		t.Parallel()

		if _, _, err := execute(t, "enrich"); err == nil {
			t.Error("expected error without arguments")
		}
	})
}
