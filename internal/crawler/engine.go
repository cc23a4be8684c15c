package crawler

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/nao1215/onioncrawl/internal/fetch"
	"github.com/nao1215/onioncrawl/internal/frontier"
	"github.com/nao1215/onioncrawl/internal/log"
	"github.com/nao1215/onioncrawl/internal/record"
	"github.com/nao1215/onioncrawl/internal/savestate"
)

const (
	// DefaultWorkers is the pool size when Options.Workers is not set.
	DefaultWorkers = 10

	// DefaultGrace is how long started units may run after the run stops.
	DefaultGrace = 30 * time.Second
)

// ErrNoSeeds is returned when a fresh run has nothing to crawl.
var ErrNoSeeds = errors.New("no seeds or keywords to crawl")

// StopReason tells why a run ended.
type StopReason string

// Stop reasons.
const (
	StopSearchLimit StopReason = "search limit reached"
	StopExhausted   StopReason = "frontier exhausted"
	StopInterrupted StopReason = "interrupted"
	StopWriteFailed StopReason = "write failed"
)

// Options describe one crawl run.
type Options struct {
	// Seeds are the initial addresses.
	Seeds []string

	// Keywords become search locations under SearchPrefix.
	Keywords []string

	// SearchPrefix defaults to DefaultSearchPrefix.
	SearchPrefix string

	// SearchLimit stops the run once this many addresses are searched,
	// counting previous runs when resuming. 0 means no limit.
	SearchLimit int

	// Workers is the size of the default PooledExecutor.
	Workers int

	// Grace bounds how long started units may run after the run stops.
	// A negative value cancels them immediately.
	Grace time.Duration

	// OutputDir holds the crawl record, the crawl log and, by default,
	// the savestate.
	OutputDir string

	// SavestatePath overrides <OutputDir>/savestate.json.
	SavestatePath string

	// Resume continues a previous run from its savestate and crawl record.
	Resume bool

	// Overwrite lets a fresh run replace an existing crawl record.
	Overwrite bool

	// RunID identifies a fresh run. A random UUID is used when empty.
	RunID string
}

// Summary reports the end state of a run.
type Summary struct {
	RunID         string
	StopReason    StopReason
	Searched      int
	Pending       int
	Written       int
	Abandoned     int
	Discarded     int
	SavestatePath string
	Elapsed       time.Duration
}

// Engine runs a crawl.
type Engine struct {
	fetcher   fetch.Fetcher
	extractor Extractor
	executor  Executor
	logger    *slog.Logger
	opts      Options

	frontier *frontier.Frontier
	writer   *record.Writer

	abandoned atomic.Int64
	// queued counts drained units that have not started yet.
	queued atomic.Int64

	errMu    sync.Mutex
	writeErr error
}

// Option configures an Engine.
type Option func(*Engine)

// WithExtractor replaces the HTMLExtractor.
func WithExtractor(x Extractor) Option {
	return func(e *Engine) {
		e.extractor = x
	}
}

// WithExecutor replaces the PooledExecutor.
func WithExecutor(x Executor) Option {
	return func(e *Engine) {
		e.executor = x
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New creates an Engine that fetches with fetcher.
func New(fetcher fetch.Fetcher, opts Options, options ...Option) *Engine {
	if opts.SearchPrefix == "" {
		opts.SearchPrefix = DefaultSearchPrefix
	}
	if opts.Workers < 1 {
		opts.Workers = DefaultWorkers
	}
	if opts.Grace == 0 {
		opts.Grace = DefaultGrace
	}
	if opts.SavestatePath == "" {
		opts.SavestatePath = filepath.Join(opts.OutputDir, savestate.FileName)
	}

	e := &Engine{
		fetcher:   fetcher,
		extractor: HTMLExtractor{},
		logger:    log.Discard(),
		opts:      opts,
	}
	for _, opt := range options {
		opt(e)
	}
	if e.executor == nil {
		e.executor = NewPooledExecutor(opts.Workers)
	}
	return e
}

// Run crawls until the search limit is reached, the frontier is exhausted
// or ctx is cancelled, then writes the savestate and closes the crawl record.
// Cancelling ctx is the normal way to interrupt a run and is not an error.
// Startup failures, and failures to persist results, are returned.
func (e *Engine) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()

	runID, err := e.open()
	if err != nil {
		return nil, err
	}
	e.logger.Info("crawl started",
		"run_id", runID,
		"resume", e.opts.Resume,
		"pending", e.frontier.PendingLen(),
		"searched", e.frontier.SearchedCount(),
		"output", e.opts.OutputDir)

	// Started units outlive ctx so they can finish during the grace period.
	workCtx, cancelWork := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelWork()

	reason, discarded := e.loop(ctx, workCtx)
	e.logger.Info("crawl stopping", "reason", string(reason), "in_flight", e.executor.InFlight())
	e.drain(cancelWork)

	snap := e.frontier.Snapshot()
	var errs []error
	if err := e.firstWriteErr(); err != nil {
		errs = append(errs, err)
	}
	if err := savestate.Write(e.opts.SavestatePath, snap); err != nil {
		errs = append(errs, err)
	}
	if err := e.writer.Close(len(snap.Searched)); err != nil {
		errs = append(errs, err)
	}

	summary := &Summary{
		RunID:         runID,
		StopReason:    reason,
		Searched:      len(snap.Searched),
		Pending:       len(snap.Pending),
		Written:       e.writer.Written(),
		Abandoned:     int(e.abandoned.Load()),
		Discarded:     discarded,
		SavestatePath: e.opts.SavestatePath,
		Elapsed:       time.Since(start),
	}
	e.logger.Info("crawl finished",
		"run_id", runID,
		"searched", summary.Searched,
		"pending", summary.Pending,
		"written", summary.Written,
		"abandoned", summary.Abandoned)

	return summary, errors.Join(errs...)
}

// open builds the frontier and the record writer for a fresh or resumed run.
func (e *Engine) open() (string, error) {
	offered := append(append([]string{}, e.opts.Seeds...),
		KeywordLocations(e.opts.SearchPrefix, e.opts.Keywords)...)

	if e.opts.Resume {
		snap, err := savestate.Load(e.opts.SavestatePath)
		if err != nil {
			return "", err
		}
		e.frontier = frontier.Restore(snap)
		for _, addr := range offered {
			e.frontier.TryEnqueue(addr)
		}
		w, err := record.Resume(e.opts.OutputDir, len(snap.Searched))
		if err != nil {
			return "", err
		}
		e.writer = w
		return e.opts.RunID, nil
	}

	e.frontier = frontier.New(offered...)
	if e.frontier.PendingLen() == 0 {
		return "", ErrNoSeeds
	}
	runID := e.opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	w, err := record.Create(e.opts.OutputDir, runID, e.opts.Overwrite)
	if err != nil {
		return "", err
	}
	e.writer = w
	return runID, nil
}

// loop is the run loop. It only drains the frontier and submits work; it
// returns the stop reason and the number of drained addresses it never
// submitted.
func (e *Engine) loop(runCtx, workCtx context.Context) (StopReason, int) {
	for {
		if e.firstWriteErr() != nil {
			return StopWriteFailed, 0
		}
		if e.opts.SearchLimit > 0 && e.frontier.SearchedCount() >= e.opts.SearchLimit {
			return StopSearchLimit, 0
		}
		if runCtx.Err() != nil {
			return StopInterrupted, 0
		}

		batch := e.frontier.DrainBatch()
		e.queued.Add(int64(len(batch)))
		for i, addr := range batch {
			if err := e.executor.Submit(runCtx, func() { e.process(workCtx, addr) }); err != nil {
				discarded := len(batch) - i
				e.queued.Add(-int64(discarded))
				e.logger.Debug("discarding unsubmitted addresses", "count", discarded)
				return StopInterrupted, discarded
			}
		}
		if len(batch) > 0 {
			continue
		}

		// In-flight units may still enqueue links, so the frontier is only
		// exhausted once nothing runs and nothing is pending.
		if e.executor.InFlight() == 0 && e.frontier.PendingLen() == 0 {
			return StopExhausted, 0
		}
		select {
		case <-e.executor.Completed():
		case <-runCtx.Done():
		}
	}
}

// drain waits for started units. Units still running after the grace
// period have their context cancelled and are abandoned.
func (e *Engine) drain(cancelWork context.CancelFunc) {
	done := make(chan struct{})
	go func() {
		e.executor.Wait()
		close(done)
	}()

	if e.opts.Grace < 0 {
		cancelWork()
		<-done
		return
	}

	timer := time.NewTimer(e.opts.Grace)
	defer timer.Stop()
	select {
	case <-done:
	case <-timer.C:
		e.logger.Warn("grace period expired, cancelling running fetches",
			"grace", e.opts.Grace, "in_flight", e.executor.InFlight())
		cancelWork()
		<-done
	}
}

// fail keeps the first persistence error; the run loop stops on it.
func (e *Engine) fail(err error) {
	e.errMu.Lock()
	defer e.errMu.Unlock()
	if e.writeErr == nil {
		e.writeErr = err
		e.logger.Error("failed to persist crawl result", "error", err)
	}
}

func (e *Engine) firstWriteErr() error {
	e.errMu.Lock()
	defer e.errMu.Unlock()
	return e.writeErr
}
