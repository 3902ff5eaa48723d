// Package ui provides the terminal user interface for lt.
// This file implements the PageWorker for off-thread page fetching.
package ui

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	ltdebug "github.com/vanderheijden86/lazytree/pkg/debug"
	"github.com/vanderheijden86/lazytree/pkg/loader"
)

// WorkerState represents the current state of the page worker.
type WorkerState int

const (
	// WorkerIdle means no fetch is in flight.
	WorkerIdle WorkerState = iota
	// WorkerProcessing means at least one fetch is in flight.
	WorkerProcessing
	// WorkerStopped means the worker has been stopped.
	WorkerStopped
)

func (s WorkerState) String() string {
	switch s {
	case WorkerIdle:
		return "idle"
	case WorkerProcessing:
		return "processing"
	case WorkerStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// WorkerError wraps errors with phase and retry context.
type WorkerError struct {
	Phase   string // "fetch" or "panic"
	Path    string // Key-path of the node whose children were requested
	Cause   error
	Time    time.Time
	Retries int
}

func (e WorkerError) Error() string {
	return fmt.Sprintf("%s %s failed: %v (retries: %d)", e.Phase, e.Path, e.Cause, e.Retries)
}

func (e WorkerError) Unwrap() error {
	return e.Cause
}

// PageLoadedMsg carries a successful page.
type PageLoadedMsg struct {
	Result loader.Result
}

// PageFailedMsg carries a page whose fetch failed after all retries.
// Result.Err is Err.
type PageFailedMsg struct {
	Result loader.Result
	Err    *WorkerError
}

// WorkerConfig configures the PageWorker.
type WorkerConfig struct {
	Source        loader.Source
	MaxConcurrent int           // default: 4
	MaxRetries    int           // negative disables retries; default: 0
	RetryBackoff  time.Duration // linear backoff step; default: 250ms
	MessageBuffer int           // Buffer size for worker -> UI messages (default: 64)
}

// PageWorker fetches pages off the UI thread. Requests for the same page
// are merged while in flight and at most MaxConcurrent fetches run at once.
type PageWorker struct {
	source       loader.Source
	maxRetries   int
	retryBackoff time.Duration

	sem    *semaphore.Weighted
	flight singleflight.Group

	mu      sync.Mutex
	state   WorkerState
	started bool

	inFlight  atomic.Int64
	submitted atomic.Uint64
	failed    atomic.Uint64
	lastError atomic.Pointer[WorkerError]

	msgCh  chan tea.Msg
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	done   chan struct{}
}

// NewPageWorker creates a worker for cfg.Source.
func NewPageWorker(cfg WorkerConfig) (*PageWorker, error) {
	if cfg.Source == nil {
		return nil, fmt.Errorf("page worker needs a source")
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 4
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 250 * time.Millisecond
	}
	if cfg.MessageBuffer <= 0 {
		cfg.MessageBuffer = 64
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &PageWorker{
		source:       cfg.Source,
		maxRetries:   cfg.MaxRetries,
		retryBackoff: cfg.RetryBackoff,
		sem:          semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
		state:        WorkerIdle,
		msgCh:        make(chan tea.Msg, cfg.MessageBuffer),
		ctx:          ctx,
		cancel:       cancel,
		done:         make(chan struct{}),
	}, nil
}

// Messages returns a channel of Bubble Tea messages emitted by the worker.
// The channel is owned by the worker and is never closed; use Done() to stop waiting.
func (w *PageWorker) Messages() <-chan tea.Msg {
	if w == nil {
		return nil
	}
	return w.msgCh
}

// Done is closed when the worker is stopped.
func (w *PageWorker) Done() <-chan struct{} {
	if w == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return w.done
}

// Start allows submissions. Start is idempotent.
// Returns error if the worker has been stopped.
func (w *PageWorker) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state == WorkerStopped {
		return fmt.Errorf("worker has been stopped")
	}
	if !w.started {
		w.started = true
		ltdebug.Log("worker: started for %s", w.source.Name())
	}
	return nil
}

// Stop cancels in-flight fetches and waits for them to return.
// Stop is idempotent - calling it multiple times has no effect.
func (w *PageWorker) Stop() {
	w.mu.Lock()
	if w.state == WorkerStopped {
		w.mu.Unlock()
		return
	}
	w.state = WorkerStopped
	w.mu.Unlock()

	w.cancel()

	finished := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(5 * time.Second):
		ltdebug.Log("worker: shutdown timeout with %d fetches in flight", w.inFlight.Load())
	}
	close(w.done)
}

// State returns the current worker state.
func (w *PageWorker) State() WorkerState {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state == WorkerStopped {
		return WorkerStopped
	}
	if w.inFlight.Load() > 0 {
		return WorkerProcessing
	}
	return WorkerIdle
}

// InFlight returns the number of fetches that have not reported back yet.
func (w *PageWorker) InFlight() int { return int(w.inFlight.Load()) }

// LastError returns the most recent failure, or nil.
func (w *PageWorker) LastError() *WorkerError { return w.lastError.Load() }

// Counts returns the number of submitted and failed requests.
func (w *PageWorker) Counts() (submitted, failed uint64) {
	return w.submitted.Load(), w.failed.Load()
}

// Submit queues req and returns immediately. It reports false when the
// worker is not running.
func (w *PageWorker) Submit(req loader.Request) bool {
	w.mu.Lock()
	if !w.started || w.state == WorkerStopped {
		w.mu.Unlock()
		return false
	}
	w.wg.Add(1)
	w.mu.Unlock()

	w.submitted.Add(1)
	w.inFlight.Add(1)
	go func() {
		defer w.wg.Done()
		defer w.inFlight.Add(-1)
		// Duplicates of an in-flight request share its single message.
		_, _, _ = w.flight.Do(req.Key(), func() (any, error) {
			w.run(req)
			return nil, nil
		})
	}()
	return true
}

func (w *PageWorker) run(req loader.Request) {
	if err := w.sem.Acquire(w.ctx, 1); err != nil {
		return
	}
	defer w.sem.Release(1)
	defer ltdebug.LogEnterExit("worker: fetch " + req.Key())()

	res, werr := w.fetchWithRetry(req)
	if w.ctx.Err() != nil {
		return
	}

	var msg tea.Msg
	if werr != nil {
		w.failed.Add(1)
		w.lastError.Store(werr)
		res.Err = werr
		msg = PageFailedMsg{Result: res, Err: werr}
	} else {
		msg = PageLoadedMsg{Result: res}
	}
	select {
	case w.msgCh <- msg:
	case <-w.ctx.Done():
	}
}

func (w *PageWorker) fetchWithRetry(req loader.Request) (loader.Result, *WorkerError) {
	var (
		res  loader.Result
		werr *WorkerError
	)
	for attempt := 0; ; attempt++ {
		res, werr = w.safeFetch(req)
		if werr == nil || werr.Phase == "panic" || attempt >= w.maxRetries {
			if werr != nil {
				werr.Retries = attempt
			}
			return res, werr
		}
		ltdebug.Log("worker: retrying %s after %v", req.Path.String(), werr.Cause)
		timer := time.NewTimer(w.retryBackoff * time.Duration(attempt+1))
		select {
		case <-w.ctx.Done():
			timer.Stop()
			werr.Retries = attempt
			return res, werr
		case <-timer.C:
		}
	}
}

// safeFetch runs one fetch and recovers from panics in the source.
func (w *PageWorker) safeFetch(req loader.Request) (res loader.Result, werr *WorkerError) {
	defer func() {
		if r := recover(); r != nil {
			res = loader.Result{Request: req}
			werr = &WorkerError{
				Phase: "panic",
				Path:  req.Path.String(),
				Cause: fmt.Errorf("panic: %v\n%s", r, debug.Stack()),
				Time:  time.Now(),
			}
		}
	}()
	res = loader.Fetch(w.ctx, w.source, req)
	if res.Err != nil {
		return res, &WorkerError{
			Phase: "fetch",
			Path:  req.Path.String(),
			Cause: res.Err,
			Time:  time.Now(),
		}
	}
	return res, nil
}

// WaitForPageCmd waits for the next PageWorker message.
func WaitForPageCmd(w *PageWorker) tea.Cmd {
	return func() tea.Msg {
		if w == nil {
			return nil
		}
		select {
		case msg := <-w.Messages():
			return msg
		case <-w.Done():
			return nil
		}
	}
}
