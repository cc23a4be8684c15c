package record

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

// File is a parsed crawl record.
type File struct {
	// RunID identifies the run that created the file.
	RunID string

	// Started is when the file was created.
	Started time.Time

	// Entries are in the order they were written.
	Entries []Entry

	// Closed is true when the file ends with an end marker. An unclosed
	// file comes from a run that was killed or is still running.
	Closed bool

	// Searched is the searched total stored in the end marker.
	Searched int
}

// ReadFile parses the crawl record at path.
func ReadFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open crawl record: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// Read parses a crawl record. A partial last line is ignored; any other
// unparsable line, or a line after the end marker, is an error.
func Read(r io.Reader) (*File, error) {
	file := &File{Entries: make([]Entry, 0)}
	br := bufio.NewReader(r)

	for lineNo := 1; ; lineNo++ {
		line, err := br.ReadBytes('\n')
		if errors.Is(err, io.EOF) {
			// A line without its newline was cut off mid-write.
			return file, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read crawl record: %w", err)
		}

		if file.Closed {
			return nil, fmt.Errorf("%w: line %d follows the end marker", ErrMalformedRecord, lineNo)
		}

		raw, err := decodeLine(line)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrMalformedRecord, lineNo, err)
		}

		switch raw.Marker {
		case markerBegin:
			if lineNo != 1 {
				return nil, fmt.Errorf("%w: line %d: begin marker after the first line", ErrMalformedRecord, lineNo)
			}
			file.RunID, file.Started = raw.RunID, raw.Started
		case markerEnd:
			file.Closed, file.Searched = true, raw.Searched
		default:
			file.Entries = append(file.Entries, raw.entry())
		}
	}
}
