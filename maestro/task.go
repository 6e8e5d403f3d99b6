package maestro

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// TaskResult is the outcome of one submitted search.
type TaskResult struct {
	Query  string
	Result *SearchResult
	Err    error
}

// SearchTask runs at most one search at a time for an interactive caller
// such as a search box. Submitting a new query cancels the running one and
// only the outcome of the latest submission is delivered.
type SearchTask struct {
	lib  *Library
	opts SearchOptions

	mu      sync.Mutex
	seq     uint64
	cancel  context.CancelFunc
	closed  bool
	group   errgroup.Group
	results chan TaskResult
}

// NewSearchTask creates a task searching lib with opts.
func (lib *Library) NewSearchTask(opts SearchOptions) *SearchTask {
	return &SearchTask{
		lib:     lib,
		opts:    opts,
		results: make(chan TaskResult, 1),
	}
}

// Results delivers the outcome of the latest submission. An undelivered
// outcome is replaced when a newer one arrives. The channel is closed by
// Close.
func (t *SearchTask) Results() <-chan TaskResult { return t.results }

// Submit starts searching query, cancelling any search still running.
// It does not block.
func (t *SearchTask) Submit(ctx context.Context, query string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	if t.cancel != nil {
		t.cancel()
	}
	t.seq++
	seq := t.seq
	sctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel

	t.group.Go(func() error {
		defer cancel()
		res, err := t.lib.Search(sctx, query, t.opts)
		t.deliver(seq, TaskResult{Query: query, Result: res, Err: err})
		return nil
	})
}

func (t *SearchTask) deliver(seq uint64, r TaskResult) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed || seq != t.seq {
		t.lib.log.Debug().Str("query", r.Query).Msg("dropping stale search result")
		return
	}
	select {
	case <-t.results:
	default:
	}
	t.results <- r
}

// Cancel stops the running search without delivering its outcome.
func (t *SearchTask) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seq++
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
}

// Close cancels the running search, waits for it to stop and closes the
// results channel.
func (t *SearchTask) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	if t.cancel != nil {
		t.cancel()
	}
	t.mu.Unlock()

	_ = t.group.Wait()
	close(t.results)
}
