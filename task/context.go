package task

import (
	"time"

	"github.com/google/uuid"
)

// Task is an awaitable bound to one outbound action (activity call,
// sub-orchestration call, timer, or external event wait). It is the only
// legal suspension point for user orchestrator code: Await blocks the
// calling goroutine until the cursor resolves it from an inbound completion
// event, a replayed echo of the same action, or ctx cancellation.
type Task interface {
	// Await blocks until the task resolves, deserializing a successful
	// result into v. A non-nil error is either the activity/sub-orchestration
	// failure (already unwrapped from its TaskFailureDetails) or a context
	// cancellation/determinism error.
	Await(v interface{}) error
}

// CallActivityOptions configures a single CallActivity invocation.
type CallActivityOptions struct {
	Input   interface{}
	Version string
}

type CallActivityOption func(*CallActivityOptions)

func WithActivityInput(v interface{}) CallActivityOption {
	return func(o *CallActivityOptions) { o.Input = v }
}

// CallSubOrchestratorOptions configures a single CallSubOrchestrator call.
type CallSubOrchestratorOptions struct {
	Input      interface{}
	InstanceID string
	Version    string
}

type CallSubOrchestratorOption func(*CallSubOrchestratorOptions)

func WithSubOrchestratorInput(v interface{}) CallSubOrchestratorOption {
	return func(o *CallSubOrchestratorOptions) { o.Input = v }
}

func WithSubOrchestratorInstanceID(id string) CallSubOrchestratorOption {
	return func(o *CallSubOrchestratorOptions) { o.InstanceID = id }
}

// OrchestrationContext is the API surface a running orchestration turn
// exposes to user code. Every method either returns immediately
// (deterministic, no suspension) or returns a Task the caller must Await.
type OrchestrationContext interface {
	// InstanceID is this orchestration's identity.
	InstanceID() string

	// GetInput deserializes the orchestration's input into v.
	GetInput(v interface{}) error

	// IsReplaying reports whether the current line of execution is being
	// replayed against history rather than processed live. User code must
	// not perform side effects or branch on wall-clock time except through
	// this context when IsReplaying() is true.
	IsReplaying() bool

	// CurrentUTCDateTime returns the orchestration's logical clock: the
	// timestamp of the most recent processed event, monotonically
	// non-decreasing across the turn.
	CurrentUTCDateTime() time.Time

	// CallActivity schedules an activity invocation and returns its Task.
	CallActivity(name string, opts ...CallActivityOption) Task

	// CallSubOrchestrator schedules a child orchestration and returns its
	// Task, resolved by the child's ExecutionCompleted/Failed.
	CallSubOrchestrator(name string, opts ...CallSubOrchestratorOption) Task

	// CreateTimer returns a Task that resolves once CurrentUTCDateTime
	// reaches fireAt.
	CreateTimer(fireAt time.Time) Task

	// WaitForExternalEvent returns a Task that resolves with the next
	// buffered or future event named name. All waiters for a given name
	// within one turn must agree on the value type they deserialize into.
	WaitForExternalEvent(name string) Task

	// SendEvent fires an EventRaised message at another instance; fire and
	// forget, no Task is returned.
	SendEvent(targetInstanceID, eventName string, data interface{})

	// ContinueAsNew ends the current execution and starts a fresh one with
	// input as its new ExecutionStarted payload. If preserveUnprocessedEvents
	// is true, any buffered-but-unconsumed external events are carried over
	// to the new execution.
	ContinueAsNew(input interface{}, preserveUnprocessedEvents bool)

	// SetCustomStatus attaches a custom status string to the orchestration,
	// visible via OrchestrationMetadata before completion.
	SetCustomStatus(status string)

	// NewGUID derives a deterministic UUID from the orchestration's replay
	// position, so replay reproduces the same value every time. Calling it
	// twice at the same logical instant returns two distinct, stable values.
	NewGUID() uuid.UUID
}
