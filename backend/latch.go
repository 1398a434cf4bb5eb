package backend

import (
	"context"
	"sync"
)

// AsyncLatch is a manual-reset async gate used to hold the hub's dequeue
// loops off the Backend until "at least one worker connected" becomes true.
//
// Set releases all current waiters atomically: PulseAll swaps the
// underlying one-shot channel and closes the old one, so there is no window
// where a waiter observes "set" but the next WaitAsync call already sees
// reset.
type AsyncLatch struct {
	mu    sync.Mutex
	ch    chan struct{}
	isSet bool
}

// NewAsyncLatch returns a latch in the unset state.
func NewAsyncLatch() *AsyncLatch {
	return &AsyncLatch{ch: make(chan struct{})}
}

// Set transitions the latch to the set state and releases every waiter that
// was blocked in WaitAsync before this call returns.
func (l *AsyncLatch) Set() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.isSet {
		return
	}
	l.isSet = true
	close(l.ch)
}

// Reset transitions the latch back to unset. It is a no-op if already unset.
func (l *AsyncLatch) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.isSet {
		return
	}
	l.isSet = false
	l.ch = make(chan struct{})
}

// PulseAll releases every current waiter and leaves the latch unset
// afterwards — it swaps the channel rather than merely closing it, so a
// waiter that calls WaitAsync immediately after PulseAll returns blocks
// again instead of observing a stale "set" state.
func (l *AsyncLatch) PulseAll() {
	l.mu.Lock()
	defer l.mu.Unlock()
	old := l.ch
	wasSet := l.isSet
	l.ch = make(chan struct{})
	l.isSet = false
	if !wasSet {
		// Set already closed old; closing it again would panic.
		close(old)
	}
}

// WaitAsync blocks until the next Set/PulseAll, returns immediately if the
// latch is already set, or returns ctx.Err() if ctx is done first.
func (l *AsyncLatch) WaitAsync(ctx context.Context) error {
	l.mu.Lock()
	ch := l.ch
	l.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsSet reports the latch's current state without blocking.
func (l *AsyncLatch) IsSet() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.isSet
}
