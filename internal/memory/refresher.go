package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

type refreshRunner interface {
	Refresh(ctx context.Context, sessionID string) (RefreshReport, error)
}

// sessionSlot serialises passes of one session. queued is set while a pass is
// waiting to start; enqueues during that time coalesce into it. refs counts
// the goroutines holding the slot; the slot is dropped when it reaches zero.
type sessionSlot struct {
	lock   chan struct{}
	queued bool
	refs   int
}

// Refresher runs at most one pass per session and at most workers passes in
// total. Enqueue never blocks the caller.
type Refresher struct {
	runner  refreshRunner
	sem     *semaphore.Weighted
	timeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	slots  map[string]*sessionSlot
	closed bool
}

// NewRefresher creates a Refresher over runner.
func NewRefresher(runner refreshRunner, workers int, timeout time.Duration) *Refresher {
	if workers <= 0 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Refresher{
		runner:  runner,
		sem:     semaphore.NewWeighted(int64(workers)),
		timeout: timeout,
		ctx:     ctx,
		cancel:  cancel,
		slots:   make(map[string]*sessionSlot),
	}
}

// acquire returns the slot of sessionID with one more reference. r.mu must be held.
func (r *Refresher) acquire(sessionID string) *sessionSlot {
	s, ok := r.slots[sessionID]
	if !ok {
		s = &sessionSlot{lock: make(chan struct{}, 1)}
		r.slots[sessionID] = s
	}
	s.refs++
	return s
}

func (r *Refresher) release(sessionID string, s *sessionSlot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s.refs--
	if s.refs == 0 && r.slots[sessionID] == s {
		delete(r.slots, sessionID)
	}
}

// Enqueue schedules a background pass. It returns false when the refresher is
// closed or a pass for the session is already waiting.
func (r *Refresher) Enqueue(sessionID string) bool {
	if sessionID == "" {
		return false
	}
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return false
	}
	if s, ok := r.slots[sessionID]; ok && s.queued {
		r.mu.Unlock()
		return false
	}
	s := r.acquire(sessionID)
	s.queued = true
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()
		r.runQueued(sessionID, s)
	}()
	return true
}

func (r *Refresher) runQueued(sessionID string, s *sessionSlot) {
	defer r.release(sessionID, s)
	select {
	case s.lock <- struct{}{}:
	case <-r.ctx.Done():
		r.mu.Lock()
		s.queued = false
		r.mu.Unlock()
		return
	}
	defer func() { <-s.lock }()

	r.mu.Lock()
	s.queued = false
	r.mu.Unlock()

	if _, err := r.run(r.ctx, sessionID); err != nil {
		slog.Error("background memory refresh failed", "session_id", sessionID, "error", err.Error())
	}
}

// RefreshNow runs a pass synchronously, waiting for any running pass of the
// same session first.
func (r *Refresher) RefreshNow(ctx context.Context, sessionID string) (RefreshReport, error) {
	r.mu.Lock()
	s := r.acquire(sessionID)
	r.mu.Unlock()
	defer r.release(sessionID, s)

	select {
	case s.lock <- struct{}{}:
	case <-ctx.Done():
		return RefreshReport{}, ctx.Err()
	}
	defer func() { <-s.lock }()
	return r.run(ctx, sessionID)
}

func (r *Refresher) run(ctx context.Context, sessionID string) (report RefreshReport, err error) {
	if err = r.sem.Acquire(ctx, 1); err != nil {
		return RefreshReport{}, err
	}
	defer r.sem.Release(1)

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	defer func() {
		if p := recover(); p != nil {
			slog.Error("memory refresh panic", "session_id", sessionID, "error", p)
			report, err = RefreshReport{}, fmt.Errorf("memory refresh panic: %v", p)
		}
	}()
	return r.runner.Refresh(ctx, sessionID)
}

// Close stops accepting work, cancels waiting passes and waits for running
// ones to return.
func (r *Refresher) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.cancel()
	r.wg.Wait()
}
