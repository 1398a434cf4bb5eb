// Package router demultiplexes inbound messages for an in-flight
// orchestration instance into that instance's active turn, so a
// same-process sender can hand a message directly to a locked instance
// instead of waiting for it to come back around through the store's
// ready-to-run queue.
package router

import (
	"fmt"
	"sync"

	"github.com/shubham1172/durabletask-go/backend"
)

// Dispatcher is an unbounded single-reader single-writer channel of
// WorkMessage for one instance in flight. "Unbounded" here means backed by
// an internal slice buffer rather than a hard channel capacity, so Deliver
// never blocks the store's append path on a slow orchestration turn.
type Dispatcher struct {
	router     *MessageRouter
	instanceID string

	mu     sync.Mutex
	buf    []*backend.WorkMessage
	notify chan struct{}
	closed bool
}

func newDispatcher(r *MessageRouter, instanceID string, first *backend.WorkMessage) *Dispatcher {
	d := &Dispatcher{
		router:     r,
		instanceID: instanceID,
		notify:     make(chan struct{}, 1),
	}
	if first != nil {
		d.buf = append(d.buf, first)
	}
	return d
}

// deliver enqueues msg for this dispatcher's reader. It never blocks.
func (d *Dispatcher) deliver(msg *backend.WorkMessage) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return false
	}
	d.buf = append(d.buf, msg)
	select {
	case d.notify <- struct{}{}:
	default:
	}
	return true
}

// Reader exposes the blocking-read side of a Dispatcher to a Session.
type Reader interface {
	// Recv blocks until a message is available or the reader is closed, in
	// which case it returns (nil, false).
	Recv() (*backend.WorkMessage, bool)
	// Close releases the reader; the Dispatcher unregisters itself from the
	// router.
	Close()
}

// Recv implements Reader.
func (d *Dispatcher) Recv() (*backend.WorkMessage, bool) {
	for {
		d.mu.Lock()
		if len(d.buf) > 0 {
			msg := d.buf[0]
			d.buf = d.buf[1:]
			d.mu.Unlock()
			return msg, true
		}
		if d.closed {
			d.mu.Unlock()
			return nil, false
		}
		d.mu.Unlock()
		<-d.notify
	}
}

// Close implements Reader.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.mu.Unlock()
	select {
	case d.notify <- struct{}{}:
	default:
	}
	d.router.remove(d.instanceID)
}

// MessageRouter maps instanceId -> Dispatcher. It is a long-lived singleton
// per hub process, shared by every Session it hands out.
type MessageRouter struct {
	mu          sync.Mutex
	dispatchers map[string]*Dispatcher
}

// NewMessageRouter returns an empty router.
func NewMessageRouter() *MessageRouter {
	return &MessageRouter{dispatchers: make(map[string]*Dispatcher)}
}

// Initialize registers a new Dispatcher for instanceID, pre-seeded with
// firstMsg, and returns its Reader. It fails if a dispatcher is already
// registered for instanceID.
func (r *MessageRouter) Initialize(instanceID string, firstMsg *backend.WorkMessage) (Reader, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.dispatchers[instanceID]; exists {
		return nil, fmt.Errorf("router: dispatcher already registered for instance %q", instanceID)
	}
	d := newDispatcher(r, instanceID, firstMsg)
	r.dispatchers[instanceID] = d
	return d, nil
}

// Deliver routes msg to the dispatcher registered for instanceID, if any.
// It returns true iff a dispatcher existed and accepted the message.
func (r *MessageRouter) Deliver(instanceID string, msg *backend.WorkMessage) bool {
	r.mu.Lock()
	d, ok := r.dispatchers[instanceID]
	r.mu.Unlock()
	if !ok {
		return false
	}
	return d.deliver(msg)
}

// IsActive reports whether instanceID currently has a registered dispatcher
// (i.e. a session has it locked and is consuming from the router directly
// instead of going through the store's ready-to-run queue).
func (r *MessageRouter) IsActive(instanceID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.dispatchers[instanceID]
	return ok
}

func (r *MessageRouter) remove(instanceID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.dispatchers, instanceID)
}
