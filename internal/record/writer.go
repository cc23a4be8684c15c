package record

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// filePermission restricts crawl output to the owner.
const filePermission = 0o600

// LogLine is one completed fetch as shown in the human-readable log.
type LogLine struct {
	Address    string
	QueueDepth int
	Elapsed    time.Duration
	Outcome    string
}

// Format renders the line with its completion sequence number.
func (l LogLine) Format(seq int) string {
	return fmt.Sprintf("#%d | %s | In queue: %d | Render time: %.2f s | %s",
		seq, l.Address, l.QueueDepth, l.Elapsed.Seconds(), l.Outcome)
}

// Writer appends to the crawl-record file and the log file. Each file has
// its own lock so record writes and log writes never wait on each other,
// and entries from concurrent workers interleave only as whole lines.
type Writer struct {
	dataMu   sync.Mutex
	data     *os.File
	dataBuf  *bufio.Writer
	written  int
	dataDone bool

	logMu   sync.Mutex
	log     *os.File
	seq     int
	logDone bool

	now func() time.Time
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithClock sets the time source for the framing markers.
func WithClock(now func() time.Time) WriterOption {
	return func(w *Writer) {
		w.now = now
	}
}

// Create starts a fresh crawl record in dir. It writes the begin marker
// and fails with ErrOutputExists when dir already holds a non-empty record
// unless overwrite is set.
func Create(dir, runID string, overwrite bool, opts ...WriterOption) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	dataPath := filepath.Join(dir, DataFileName)
	if !overwrite {
		if info, err := os.Stat(dataPath); err == nil && info.Size() > 0 {
			return nil, fmt.Errorf("%w: %s", ErrOutputExists, dataPath)
		}
	}

	data, err := os.OpenFile(dataPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePermission)
	if err != nil {
		return nil, fmt.Errorf("failed to create crawl record: %w", err)
	}
	logFile, err := os.OpenFile(filepath.Join(dir, LogFileName), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePermission)
	if err != nil {
		data.Close()
		return nil, fmt.Errorf("failed to create crawl log: %w", err)
	}

	w := newWriter(data, logFile, 0, opts...)
	if err := w.writeLine(beginMarker{Marker: markerBegin, RunID: runID, Started: w.now().UTC()}); err != nil {
		w.closeFiles()
		return nil, err
	}
	return w, nil
}

// Resume reopens the crawl record in dir for appending. A trailing end
// marker from a graceful shutdown is removed, as is a partial last line
// left by a killed process. Log sequence numbers continue after completed.
func Resume(dir string, completed int, opts ...WriterOption) (*Writer, error) {
	dataPath := filepath.Join(dir, DataFileName)
	data, err := os.OpenFile(dataPath, os.O_RDWR, filePermission)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, dataPath)
		}
		return nil, fmt.Errorf("failed to open crawl record: %w", err)
	}
	if err := repairTail(data); err != nil {
		data.Close()
		return nil, err
	}

	logFile, err := os.OpenFile(filepath.Join(dir, LogFileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, filePermission)
	if err != nil {
		data.Close()
		return nil, fmt.Errorf("failed to open crawl log: %w", err)
	}
	return newWriter(data, logFile, completed, opts...), nil
}

func newWriter(data, logFile *os.File, seq int, opts ...WriterOption) *Writer {
	w := &Writer{
		data:    data,
		dataBuf: bufio.NewWriter(data),
		log:     logFile,
		seq:     seq,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// repairTail truncates f to its last complete line and drops a final end
// marker, leaving the offset at the new end of file.
func repairTail(f *os.File) error {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to read crawl record: %w", err)
	}

	r := bufio.NewReader(f)
	var (
		end       int64
		lastStart int64 = -1
		last      []byte
	)
	for {
		line, err := r.ReadBytes('\n')
		if len(line) > 0 && line[len(line)-1] == '\n' {
			lastStart, last = end, line
			end += int64(len(line))
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read crawl record: %w", err)
		}
	}

	if lastStart >= 0 {
		if raw, err := decodeLine(last); err == nil && raw.Marker == markerEnd {
			end = lastStart
		}
	}

	if err := f.Truncate(end); err != nil {
		return fmt.Errorf("failed to repair crawl record: %w", err)
	}
	if _, err := f.Seek(end, io.SeekStart); err != nil {
		return fmt.Errorf("failed to repair crawl record: %w", err)
	}
	return nil
}

// Write appends one entry to the crawl record and flushes it.
func (w *Writer) Write(e Entry) error {
	if err := w.writeLine(e); err != nil {
		return err
	}
	w.dataMu.Lock()
	w.written++
	w.dataMu.Unlock()
	return nil
}

// Written returns the number of entries written by this Writer.
func (w *Writer) Written() int {
	w.dataMu.Lock()
	defer w.dataMu.Unlock()
	return w.written
}

func (w *Writer) writeLine(v any) error {
	line, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode crawl record: %w", err)
	}

	w.dataMu.Lock()
	defer w.dataMu.Unlock()

	if w.dataDone {
		return ErrWriterClosed
	}
	if _, err := w.dataBuf.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to write crawl record: %w", err)
	}
	if err := w.dataBuf.Flush(); err != nil {
		return fmt.Errorf("failed to write crawl record: %w", err)
	}
	return nil
}

// Log appends a line to the crawl log and returns its sequence number.
// Numbers are assigned under the log lock, so they follow the order in
// which lines reach the file.
func (w *Writer) Log(l LogLine) (int, error) {
	w.logMu.Lock()
	defer w.logMu.Unlock()

	if w.logDone {
		return 0, ErrWriterClosed
	}
	w.seq++
	if _, err := io.WriteString(w.log, l.Format(w.seq)+"\n"); err != nil {
		return w.seq, fmt.Errorf("failed to write crawl log: %w", err)
	}
	return w.seq, nil
}

// Close appends the end marker, recording the run's searched total, and
// closes both files. Later calls return ErrWriterClosed.
func (w *Writer) Close(searched int) error {
	if err := w.writeLine(endMarker{Marker: markerEnd, Finished: w.now().UTC(), Searched: searched}); err != nil {
		return err
	}
	return w.closeFiles()
}

func (w *Writer) closeFiles() error {
	w.dataMu.Lock()
	w.dataDone = true
	dataErr := w.data.Close()
	w.dataMu.Unlock()

	w.logMu.Lock()
	w.logDone = true
	logErr := w.log.Close()
	w.logMu.Unlock()

	return errors.Join(dataErr, logErr)
}
