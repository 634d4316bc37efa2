package display

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"gocv.io/x/gocv"
)

// Mailbox is a single-slot hand-off between the goroutines that build composites
// and the goroutine that owns the display. Publish never blocks: a composite the
// display has not taken yet is replaced and counted as dropped.
type Mailbox struct {
	mu      sync.Mutex
	pending *gocv.Mat
	closed  bool
	ready   chan struct{}

	published atomic.Uint64
	dropped   atomic.Uint64
}

func NewMailbox() *Mailbox {
	return &Mailbox{ready: make(chan struct{}, 1)}
}

// Publish hands composite to the display. The mailbox owns it from now on.
func (m *Mailbox) Publish(composite gocv.Mat) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		composite.Close()
		return
	}
	prev := m.pending
	m.pending = &composite
	m.mu.Unlock()

	m.published.Add(1)
	if prev != nil {
		m.dropped.Add(1)
		prev.Close()
	}
	select {
	case m.ready <- struct{}{}:
	default:
	}
}

// Take waits up to wait for a composite. The caller owns a returned Mat.
func (m *Mailbox) Take(ctx context.Context, wait time.Duration) (gocv.Mat, bool) {
	timer := time.NewTimer(wait)
	defer timer.Stop()
	for {
		if mat, ok := m.tryTake(); ok {
			return mat, true
		}
		select {
		case <-ctx.Done():
			return gocv.Mat{}, false
		case <-timer.C:
			return gocv.Mat{}, false
		case <-m.ready:
		}
	}
}

func (m *Mailbox) tryTake() (gocv.Mat, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pending == nil {
		return gocv.Mat{}, false
	}
	mat := *m.pending
	m.pending = nil
	return mat, true
}

// Close releases a pending composite; later publishes are discarded.
func (m *Mailbox) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	if m.pending != nil {
		m.pending.Close()
		m.pending = nil
	}
}

func (m *Mailbox) Published() uint64 {
	return m.published.Load()
}

func (m *Mailbox) Dropped() uint64 {
	return m.dropped.Load()
}
