// Package savestate stores the crawl frontier between runs.
//
// A savestate is two lines, each a JSON array of strings: the pending
// addresses in discovery order, then the searched addresses in completion
// order. The file is replaced atomically so a crash while saving leaves the
// previous savestate intact.
package savestate

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/nao1215/onioncrawl/internal/frontier"
)

// FileName is the savestate file inside the output directory.
const FileName = "savestate.json"

var (
	// ErrSavestateNotFound is returned when no savestate exists at the path.
	ErrSavestateNotFound = errors.New("savestate not found")

	// ErrMalformedSavestate is returned when the savestate cannot be parsed.
	ErrMalformedSavestate = errors.New("malformed savestate")
)

// Load reads the savestate at path.
func Load(path string) (frontier.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return frontier.Snapshot{}, fmt.Errorf("%w: %s", ErrSavestateNotFound, path)
		}
		return frontier.Snapshot{}, fmt.Errorf("failed to read savestate: %w", err)
	}
	return Parse(data)
}

// Parse decodes savestate contents. Exactly two non-empty lines are
// required; a single trailing newline is allowed.
func Parse(data []byte) (frontier.Snapshot, error) {
	lines := bytes.Split(bytes.TrimSuffix(data, []byte("\n")), []byte("\n"))
	if len(lines) != 2 {
		return frontier.Snapshot{}, fmt.Errorf("%w: expected 2 lines, got %d", ErrMalformedSavestate, len(lines))
	}

	var snap frontier.Snapshot
	if err := decodeList(lines[0], &snap.Pending); err != nil {
		return frontier.Snapshot{}, fmt.Errorf("%w: pending line: %w", ErrMalformedSavestate, err)
	}
	if err := decodeList(lines[1], &snap.Searched); err != nil {
		return frontier.Snapshot{}, fmt.Errorf("%w: searched line: %w", ErrMalformedSavestate, err)
	}
	return snap, nil
}

func decodeList(line []byte, dst *[]string) error {
	if err := json.Unmarshal(line, dst); err != nil {
		return err
	}
	if *dst == nil {
		return errors.New("null instead of an array")
	}
	return nil
}

// Write stores snap at path. The data goes to a temporary file in the same
// directory which is then renamed over path.
func Write(path string, snap frontier.Snapshot) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create savestate directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create savestate: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	w := bufio.NewWriter(tmp)
	for _, list := range [][]string{snap.Pending, snap.Searched} {
		if list == nil {
			list = []string{}
		}
		line, err := json.Marshal(list)
		if err != nil {
			return fmt.Errorf("failed to encode savestate: %w", err)
		}
		if _, err := w.Write(append(line, '\n')); err != nil {
			return fmt.Errorf("failed to write savestate: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to write savestate: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync savestate: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close savestate: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace savestate: %w", err)
	}
	return nil
}
