// Package backend defines the durable store contract, the runtime state and
// action-applier machinery it persists, and the worker loop(s) that drive
// orchestration/activity processing against it.
package backend

import (
	"context"
	"time"

	"github.com/shubham1172/durabletask-go/api"
	"github.com/shubham1172/durabletask-go/internal/protos"
)

// Backend is the durable store contract: append-only history plus a
// pending-message queue per instance, with locking dequeue operations for
// orchestration and activity work.
type Backend interface {
	// CreateOrchestrationInstance is createInstance: atomic per instanceId;
	// fails with ErrAlreadyStarted if an existing record's status is in
	// dedupeStatuses (default {Pending, Running}).
	CreateOrchestrationInstance(ctx context.Context, e *protos.HistoryEvent, opts ...OrchestrationIDReusePolicy) error

	// AddNewOrchestrationEvent is appendMessage: delivers a TaskMessage to
	// the instance addressed by e's target. A scheduledStart or fireAt
	// timestamp defers delivery, and messages for a terminal instance are
	// dropped.
	AddNewOrchestrationEvent(ctx context.Context, id api.InstanceID, e *protos.HistoryEvent) error

	// GetOrchestrationWorkItem is lockNextOrchestration: blocks until at
	// least one instance is ready to run, then locks it.
	GetOrchestrationWorkItem(ctx context.Context) (WorkItem, error)

	// GetOrchestrationRuntimeState loads (or lazily constructs) the
	// RuntimeState backing an OrchestrationWorkItem.
	GetOrchestrationRuntimeState(ctx context.Context, wi *OrchestrationWorkItem) (*RuntimeState, error)

	// CompleteOrchestrationWorkItem is completeOrchestration: atomically
	// persists new events, enqueues outbound messages, updates the status
	// row, and clears the lock.
	CompleteOrchestrationWorkItem(ctx context.Context, wi *OrchestrationWorkItem) error

	// AbandonOrchestrationWorkItem returns the instance to the ready queue
	// without committing any of the turn's new events.
	AbandonOrchestrationWorkItem(ctx context.Context, wi *OrchestrationWorkItem) error

	// RenewOrchestrationLock extends a held lock's expiry; implementing it
	// is optional, but the hub's renewal policy relies on it when present.
	RenewOrchestrationLock(ctx context.Context, wi *OrchestrationWorkItem) error

	// ReleaseOrchestrationLock returns the instance to idle without
	// abandoning its new events. The hub does not call it: continue-as-new
	// turns are committed through CompleteOrchestrationWorkItem.
	ReleaseOrchestrationLock(ctx context.Context, wi *OrchestrationWorkItem) error

	// GetActivityWorkItem is lockNextActivity: blocking single-consumer
	// dequeue; lock is held until Complete/Abandon.
	GetActivityWorkItem(ctx context.Context) (WorkItem, error)

	// CompleteActivityWorkItem is completeActivity: persists the response
	// as an inbound message for the parent orchestration.
	CompleteActivityWorkItem(ctx context.Context, wi *ActivityWorkItem) error

	// AbandonActivityWorkItem returns the activity to the ready queue.
	AbandonActivityWorkItem(ctx context.Context, wi *ActivityWorkItem) error

	// GetOrchestrationMetadata is getState for a single instance.
	GetOrchestrationMetadata(ctx context.Context, id api.InstanceID) (*api.OrchestrationMetadata, error)

	// QueryOrchestrationStates is query: paginated filter over instances.
	QueryOrchestrationStates(ctx context.Context, filter InstanceQuery) (*QueryResult, error)

	// PurgeOrchestrationState is purge: removes a completed instance's
	// history and status row; returns ErrUnsupported-wrapping errors for
	// instances that are not in a terminal status.
	PurgeOrchestrationState(ctx context.Context, id api.InstanceID) error

	// ForceTerminateOrchestration is forceTerminate: equivalent to
	// appending an ExecutionTerminated inbound message.
	ForceTerminateOrchestration(ctx context.Context, id api.InstanceID, reason string) error

	// Start/Stop bind the Backend's lifecycle to the host application's,
	// since a Backend is typically a process-wide singleton.
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// OrchestrationIDReusePolicy configures CreateOrchestrationInstance's dedupe
// check against existing instance statuses.
type OrchestrationIDReusePolicy func(*createInstanceOptions)

type createInstanceOptions struct {
	dedupeStatuses []protos.OrchestrationStatus
}

// WithDedupeStatuses overrides the default {Pending, Running} dedupe set.
func WithDedupeStatuses(statuses ...protos.OrchestrationStatus) OrchestrationIDReusePolicy {
	return func(o *createInstanceOptions) { o.dedupeStatuses = statuses }
}

// ResolveCreateInstanceOptions applies opts over the default dedupe set.
func ResolveCreateInstanceOptions(opts ...OrchestrationIDReusePolicy) []protos.OrchestrationStatus {
	o := &createInstanceOptions{
		dedupeStatuses: []protos.OrchestrationStatus{
			protos.OrchestrationStatus_ORCHESTRATION_STATUS_PENDING,
			protos.OrchestrationStatus_ORCHESTRATION_STATUS_RUNNING,
		},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o.dedupeStatuses
}

// InstanceQuery is the local-API mirror of protos.InstanceQuery.
type InstanceQuery struct {
	Statuses         []protos.OrchestrationStatus
	CreatedTimeFrom  *time.Time
	CreatedTimeTo    *time.Time
	InstanceIDPrefix string
	PageSize         int
	ContinuationToken string
}

// QueryResult is the page of instances returned by QueryOrchestrationStates.
type QueryResult struct {
	Instances         []*api.OrchestrationMetadata
	ContinuationToken string
}

// WaitForOrchestrationTerminal polls a Backend until id reaches a terminal
// status. It is a thin helper over GetOrchestrationMetadata so store
// implementations don't each need to reimplement polling.
func WaitForOrchestrationTerminal(ctx context.Context, be Backend, id api.InstanceID, pollInterval time.Duration) (*api.OrchestrationMetadata, error) {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		meta, err := be.GetOrchestrationMetadata(ctx, id)
		if err != nil {
			return nil, err
		}
		if meta != nil && meta.IsComplete() {
			return meta, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
