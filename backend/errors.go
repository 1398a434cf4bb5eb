package backend

import (
	"errors"

	"github.com/shubham1172/durabletask-go/api"
)

var (
	// ErrInstanceNotFound is api.ErrInstanceNotFound at the store boundary, so
	// errors.Is matches either name.
	ErrInstanceNotFound = api.ErrInstanceNotFound

	// ErrDuplicateEvent is returned by RuntimeState.AddEvent when an event has
	// already been recorded for this turn (orchestration.go's applyWorkItem
	// treats this as a dropped-not-fatal condition).
	ErrDuplicateEvent = errors.New("backend: duplicate event")

	// ErrAlreadyCompleted is returned when a work item targets an instance
	// that has already reached a terminal RuntimeStatus.
	ErrAlreadyCompleted = errors.New("backend: orchestration already completed")

	// ErrAlreadyStarted is returned by CreateOrchestrationInstance's dedupe
	// check when an existing, non-terminal instance already owns this ID. It
	// is api.ErrAlreadyStarted, so errors.Is matches either name.
	ErrAlreadyStarted = api.ErrAlreadyStarted

	// ErrNotFound is returned by completeActivityTask/completeOrchestratorTask
	// when no pending work item matches the given dispatch key.
	ErrNotFound = errors.New("backend: no pending work item for this key")

	// ErrNotInitialized reports use of a component before Start. The
	// in-memory backend does not return it: its queues are usable before
	// Start, which only launches the deferred-message pump.
	ErrNotInitialized = errors.New("backend: not initialized")

	// ErrUnsupported is returned by administrative operations a particular
	// Backend implementation does not provide.
	ErrUnsupported = errors.New("backend: operation not supported by this backend")

	// ErrNonDeterministicWorkflow signals a replay determinism violation: a
	// WorkScheduled* history event had no matching PendingAction, or arrived
	// out of the order it was produced in.
	ErrNonDeterministicWorkflow = errors.New("backend: orchestrator history is not deterministic")

	// ErrTaskAborted mirrors the AbortWorkItem sentinel: the worker
	// disconnects the turn without committing so the store retries.
	ErrTaskAborted = errors.New("backend: work item aborted")
)
