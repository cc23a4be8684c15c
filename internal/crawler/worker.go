package crawler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/nao1215/onioncrawl/internal/extract"
	"github.com/nao1215/onioncrawl/internal/fetch"
	"github.com/nao1215/onioncrawl/internal/record"
)

// process is one unit of work: it fetches addr and completes it with exactly
// one crawl-record entry, unless ctx is cancelled while the fetch runs.
func (e *Engine) process(ctx context.Context, addr string) {
	e.queued.Add(-1)
	start := time.Now()

	if extract.IsDeprecated(addr) {
		e.complete(addr, record.Failure(addr, extract.DeprecatedStatus), extract.DeprecatedStatus, start)
		return
	}

	resp, err := e.fetcher.Fetch(ctx, addr)
	if err != nil {
		if ctx.Err() != nil {
			e.abandoned.Add(1)
			e.logger.Debug("fetch abandoned", "address", addr)
			return
		}
		e.failFetch(addr, err, start)
		return
	}

	if resp.StatusCode != http.StatusOK {
		e.complete(addr, record.Failure(addr, record.HTTPErrorStatus(resp.StatusCode)), httpOutcome(resp.StatusCode), start)
		return
	}

	page, err := e.extractor.Extract(resp.Body)
	if err != nil {
		e.failFetch(addr, err, start)
		return
	}
	for _, link := range page.Links {
		if e.frontier.TryEnqueue(link) {
			e.logger.Debug("discovered", "address", link, "from", addr)
		}
	}
	e.complete(addr, record.Success(addr, page.Title, page.PaymentAddrs), httpOutcome(resp.StatusCode), start)
}

// failFetch completes addr with the exception kind of err.
func (e *Engine) failFetch(addr string, err error, start time.Time) {
	kind := fetch.Classify(err).String()
	e.logger.Debug("fetch failed", "address", addr, "kind", kind, "error", err)
	e.complete(addr, record.Failure(addr, record.ExceptionStatus(kind)), kind, start)
}

// complete writes the entry of addr, marks it searched and logs it. An
// address whose entry cannot be written stays pending for the next run.
func (e *Engine) complete(addr string, entry record.Entry, outcome string, start time.Time) {
	elapsed := time.Since(start)

	if err := e.writer.Write(entry); err != nil {
		e.fail(err)
		return
	}
	e.frontier.MarkSearched(addr)
	seq, err := e.writer.Log(record.LogLine{
		Address:    addr,
		QueueDepth: e.queueDepth(),
		Elapsed:    elapsed,
		Outcome:    outcome,
	})
	if err != nil {
		e.fail(err)
		return
	}
	e.logger.Info("fetched", "seq", seq, "address", addr, "outcome", outcome, "elapsed", elapsed)
}

// queueDepth counts addresses waiting in the frontier or drained but not
// yet started by a worker.
func (e *Engine) queueDepth() int {
	return e.frontier.PendingLen() + int(e.queued.Load())
}

func httpOutcome(code int) string {
	return "HTTP " + strconv.Itoa(code)
}
