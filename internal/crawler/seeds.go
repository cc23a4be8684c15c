package crawler

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// DefaultSearchPrefix is the onion search engine query that keywords are
// appended to.
const DefaultSearchPrefix = "https://ahmia.fi/search/?q="

// KeywordLocation returns the search location for one keyword phrase.
// Spaces become '+'.
func KeywordLocation(prefix, keyword string) string {
	return prefix + strings.ReplaceAll(strings.TrimSpace(keyword), " ", "+")
}

// KeywordLocations maps every keyword to its search location.
func KeywordLocations(prefix string, keywords []string) []string {
	locations := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		locations = append(locations, KeywordLocation(prefix, kw))
	}
	return locations
}

// LoadKeywords reads a keyword file: one phrase per line, blank lines skipped.
func LoadKeywords(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open keyword file: %w", err)
	}
	defer f.Close()
	return ReadKeywords(f)
}

// ReadKeywords reads keyword phrases from r.
func ReadKeywords(r io.Reader) ([]string, error) {
	keywords := make([]string, 0)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		kw := strings.TrimSpace(scanner.Text())
		if kw == "" {
			continue
		}
		keywords = append(keywords, kw)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read keyword file: %w", err)
	}
	return keywords, nil
}
