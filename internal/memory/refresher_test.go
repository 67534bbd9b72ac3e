package memory

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type blockingRunner struct {
	mu      sync.Mutex
	running map[string]int
	maxSame int
	calls   atomic.Int32
	active  atomic.Int32
	maxAll  atomic.Int32
	release chan struct{}
}

func newBlockingRunner() *blockingRunner {
	return &blockingRunner{running: map[string]int{}, release: make(chan struct{})}
}

func (b *blockingRunner) Refresh(ctx context.Context, sessionID string) (RefreshReport, error) {
	b.calls.Add(1)
	n := b.active.Add(1)
	for {
		cur := b.maxAll.Load()
		if n <= cur || b.maxAll.CompareAndSwap(cur, n) {
			break
		}
	}
	b.mu.Lock()
	b.running[sessionID]++
	if b.running[sessionID] > b.maxSame {
		b.maxSame = b.running[sessionID]
	}
	b.mu.Unlock()

	select {
	case <-b.release:
	case <-ctx.Done():
	}

	b.mu.Lock()
	b.running[sessionID]--
	b.mu.Unlock()
	b.active.Add(-1)
	return RefreshReport{}, nil
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRefresherCoalescesPerSession(t *testing.T) {
	runner := newBlockingRunner()
	r := NewRefresher(runner, 4, time.Minute)

	if !r.Enqueue("s1") {
		t.Fatalf("first enqueue should be accepted")
	}
	waitFor(t, func() bool { return runner.active.Load() == 1 })

	// One pass is running; the next enqueue waits and later ones coalesce.
	if !r.Enqueue("s1") {
		t.Fatalf("enqueue while running should schedule one more pass")
	}
	if r.Enqueue("s1") {
		t.Fatalf("enqueue while a pass is waiting should coalesce")
	}

	close(runner.release)
	waitFor(t, func() bool { return runner.calls.Load() == 2 })
	r.Close()

	if got := runner.calls.Load(); got != 2 {
		t.Fatalf("expected 2 passes, got %d", got)
	}
	if runner.maxSame != 1 {
		t.Fatalf("passes of one session overlapped")
	}
	if n := slotCount(r); n != 0 {
		t.Fatalf("finished sessions should release their slot, %d left", n)
	}
}

func TestRefresherBoundsWorkers(t *testing.T) {
	runner := newBlockingRunner()
	r := NewRefresher(runner, 2, time.Minute)

	for _, id := range []string{"a", "b", "c", "d"} {
		r.Enqueue(id)
	}
	waitFor(t, func() bool { return runner.active.Load() == 2 })
	time.Sleep(20 * time.Millisecond)
	if got := runner.maxAll.Load(); got != 2 {
		t.Fatalf("expected at most 2 concurrent passes, got %d", got)
	}

	close(runner.release)
	waitFor(t, func() bool { return runner.calls.Load() == 4 })
	r.Close()
	if got := runner.calls.Load(); got != 4 {
		t.Fatalf("expected 4 passes, got %d", got)
	}
}

func TestRefresherRefreshNowAndClose(t *testing.T) {
	runner := newBlockingRunner()
	close(runner.release)
	r := NewRefresher(runner, 1, time.Minute)

	if _, err := r.RefreshNow(context.Background(), "s1"); err != nil {
		t.Fatalf("RefreshNow returned error: %v", err)
	}
	if n := slotCount(r); n != 0 {
		t.Fatalf("slot kept after RefreshNow, %d left", n)
	}
	r.Close()
	if r.Enqueue("s1") {
		t.Fatalf("closed refresher must reject work")
	}
	if got := runner.calls.Load(); got != 1 {
		t.Fatalf("expected 1 pass, got %d", got)
	}
}

type panicRunner struct{}

func (panicRunner) Refresh(ctx context.Context, sessionID string) (RefreshReport, error) {
	panic("boom")
}

func TestRefresherReportsPanicAsError(t *testing.T) {
	r := NewRefresher(panicRunner{}, 1, time.Minute)
	defer r.Close()

	_, err := r.RefreshNow(context.Background(), "s1")
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("expected panic to surface as error, got %v", err)
	}
	if n := slotCount(r); n != 0 {
		t.Fatalf("slot kept after panic, %d left", n)
	}
}

func slotCount(r *Refresher) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.slots)
}
