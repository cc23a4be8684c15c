package crawler

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func TestKeywordLocation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		keyword string
		want    string
	}{
		{"single word", "bitcoin", "https://ahmia.fi/search/?q=bitcoin"},
		{"phrase", "bitcoin mixer", "https://ahmia.fi/search/?q=bitcoin+mixer"},
		{"surrounding whitespace", "  wallet  ", "https://ahmia.fi/search/?q=wallet"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := KeywordLocation(DefaultSearchPrefix, tt.keyword); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestReadKeywords(t *testing.T) {
	t.Parallel()

	got, err := ReadKeywords(strings.NewReader("bitcoin\n\n  double btc \r\n\t\nmarket"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"bitcoin", "double btc", "market"}
	if !slices.Equal(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestLoadKeywords(t *testing.T) {
	t.Parallel()

	t.Run("reads file", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "keywords.txt")
		if err := os.WriteFile(path, []byte("a b\nc\n"), 0o600); err != nil {
			t.Fatalf("failed to write keywords: %v", err)
		}
		got, err := LoadKeywords(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !slices.Equal(got, []string{"a b", "c"}) {
			t.Errorf("unexpected keywords: %v", got)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		if _, err := LoadKeywords(filepath.Join(t.TempDir(), "none.txt")); err == nil {
			t.Error("expected error")
		}
	})
}
