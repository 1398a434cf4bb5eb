package router

import (
	"context"
	"fmt"
	"sync"

	"github.com/shubham1172/durabletask-go/api"
	"github.com/shubham1172/durabletask-go/backend"
)

// Envelope is the minimal identity of an orchestration in flight: instanceId,
// name, and optional parent pointer. Parent/child are always linked by
// instance id, never by pointer, so a cycle of sub-orchestrations never
// creates a reference cycle in memory.
type Envelope struct {
	InstanceID string
	Name       string
	Parent     *backend.ParentPointer
}

// Session owns one orchestration turn: it wraps the envelope, the Backend,
// this router (for best-effort direct delivery to an active sibling
// dispatcher), and a logger.
type Session struct {
	Envelope   Envelope
	LockToken  string
	be         backend.Backend
	router     *MessageRouter
	logger     backend.Logger

	reader Reader

	mu         sync.Mutex
	completed  bool
	completion chan struct{}
	result     *backend.WorkMessage
}

// NewSession creates a Session for a newly locked orchestration turn and
// registers its inbound Dispatcher with router.
func NewSession(be backend.Backend, r *MessageRouter, logger backend.Logger, env Envelope, lockToken string, firstMsg *backend.WorkMessage) (*Session, error) {
	reader, err := r.Initialize(env.InstanceID, firstMsg)
	if err != nil {
		return nil, err
	}
	return &Session{
		Envelope:   env,
		LockToken:  lockToken,
		be:         be,
		router:     r,
		logger:     logger,
		reader:     reader,
		completion: make(chan struct{}),
	}, nil
}

// Recv reads the next inbound WorkMessage for this turn, whether it arrived
// via the store's initial dequeue or was routed in directly while the turn
// was already in flight.
func (s *Session) Recv() (*backend.WorkMessage, bool) {
	return s.reader.Recv()
}

// SendNewMessage is the outbound half of a turn. Externally
// addressed messages (anything but a self-targeted completion) are first
// offered to the router for same-process fast delivery, then durably
// appended to the store regardless of whether the router accepted them —
// the store append is the actual durability point, router delivery is
// best-effort latency optimization only.
func (s *Session) SendNewMessage(ctx context.Context, msg *backend.WorkMessage) error {
	if msg == nil || msg.Message == nil {
		return fmt.Errorf("session: nil outbound message")
	}

	if e := msg.Message.Event; e.GetExecutionCompleted() != nil {
		s.markCompleted(msg)
		if s.Envelope.Parent != nil {
			parentMsg := &backend.WorkMessage{
				DispatchID: s.Envelope.Parent.Instance.InstanceId,
				Message: &backend.TaskMessage{
					TargetInstanceID: s.Envelope.Parent.Instance.InstanceId,
					Event:            e,
				},
			}
			s.router.Deliver(s.Envelope.Parent.Instance.InstanceId, parentMsg)
			return s.be.AddNewOrchestrationEvent(ctx, api.InstanceID(s.Envelope.Parent.Instance.InstanceId), e)
		}
		return s.be.AddNewOrchestrationEvent(ctx, api.InstanceID(s.Envelope.InstanceID), e)
	}

	// Best-effort fast path: if the target instance already has a live
	// dispatcher (e.g. a sub-orchestration on the same hub), deliver
	// directly so its session doesn't wait on the store's poll interval.
	s.router.Deliver(msg.Message.TargetInstanceID, msg)

	if err := s.be.AddNewOrchestrationEvent(ctx, api.InstanceID(msg.Message.TargetInstanceID), msg.Message.Event); err != nil {
		return fmt.Errorf("session: failed to persist outbound message: %w", err)
	}
	return nil
}

// ConsumeMessage durably records an inbound message's arrival, persisting it
// before it is considered drained from its source queue — persist-then-delete
// guarantees at-least-once delivery even if the process dies in between.
func (s *Session) ConsumeMessage(ctx context.Context, msg *backend.WorkMessage) error {
	if err := s.be.AddNewOrchestrationEvent(ctx, api.InstanceID(s.Envelope.InstanceID), msg.Message.Event); err != nil {
		return fmt.Errorf("session: failed to record inbound message: %w", err)
	}
	return nil
}

func (s *Session) markCompleted(msg *backend.WorkMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.completed {
		return
	}
	s.completed = true
	s.result = msg
	close(s.completion)
}

// Completion returns a channel closed when ExecutionCompleted has been
// observed for this turn, and the message that triggered it (nil until
// closed).
func (s *Session) Completion() (<-chan struct{}, *backend.WorkMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completion, s.result
}

// Release closes the inbound reader; the underlying Dispatcher unregisters
// itself from the router as part of Close.
func (s *Session) Release() {
	s.reader.Close()
}
