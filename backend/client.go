package backend

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/shubham1172/durabletask-go/api"
	"github.com/shubham1172/durabletask-go/internal/helpers"
	"github.com/shubham1172/durabletask-go/internal/protos"
)

// TaskHubClient is the client service: schedule, inspect, signal and
// terminate orchestrations against whichever Backend the hub embeds.
type TaskHubClient interface {
	ScheduleNewOrchestration(ctx context.Context, orchestrator interface{}, opts ...api.NewOrchestrationOptions) (api.InstanceID, error)
	FetchOrchestrationMetadata(ctx context.Context, id api.InstanceID) (*api.OrchestrationMetadata, error)
	WaitForOrchestrationStart(ctx context.Context, id api.InstanceID) (*api.OrchestrationMetadata, error)
	WaitForOrchestrationCompletion(ctx context.Context, id api.InstanceID) (*api.OrchestrationMetadata, error)
	TerminateOrchestration(ctx context.Context, id api.InstanceID, reason string) error
	RaiseEvent(ctx context.Context, id api.InstanceID, eventName string, input interface{}) error
	SuspendOrchestration(ctx context.Context, id api.InstanceID, reason string) error
	ResumeOrchestration(ctx context.Context, id api.InstanceID, reason string) error
	PurgeOrchestrationState(ctx context.Context, id api.InstanceID) error
	QueryOrchestrationStates(ctx context.Context, filter InstanceQuery) (*QueryResult, error)
}

type backendClient struct {
	be Backend
}

func NewTaskHubClient(be Backend) TaskHubClient {
	return &backendClient{
		be: be,
	}
}

func (c *backendClient) ScheduleNewOrchestration(ctx context.Context, orchestrator interface{}, opts ...api.NewOrchestrationOptions) (api.InstanceID, error) {
	name := helpers.GetTaskFunctionName(orchestrator)
	req := &protos.CreateInstanceRequest{Name: name}
	for _, configure := range opts {
		if err := configure(req); err != nil {
			return api.EmptyInstanceID, fmt.Errorf("failed to apply orchestration option: %w", err)
		}
	}
	if req.InstanceId == "" {
		req.InstanceId = uuid.NewString()
	}

	var input *wrapperspb.StringValue
	if req.Input != "" {
		input = wrapperspb.String(req.Input)
	}
	e := helpers.NewExecutionStartedEvent(-1, req.Name, req.InstanceId, input, nil)
	if len(req.Tags) > 0 {
		e.ExecutionStarted.Tags = req.Tags
	}

	var dedupeOpt []OrchestrationIDReusePolicy
	if req.OrchestrationIdReusePolicy != nil {
		dedupeOpt = append(dedupeOpt, WithDedupeStatuses(req.OrchestrationIdReusePolicy.OperationStatus...))
	}
	if err := c.be.CreateOrchestrationInstance(ctx, e, dedupeOpt...); err != nil {
		return api.EmptyInstanceID, fmt.Errorf("failed to start orchestration: %w", err)
	}
	return api.InstanceID(req.InstanceId), nil
}

// FetchOrchestrationMetadata fetches metadata for the specified orchestration from the configured task hub.
//
// ErrInstanceNotFound is returned when the specified orchestration doesn't exist.
func (c *backendClient) FetchOrchestrationMetadata(ctx context.Context, id api.InstanceID) (*api.OrchestrationMetadata, error) {
	metadata, err := c.be.GetOrchestrationMetadata(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch orchestration metadata: %w", err)
	}
	return metadata, nil
}

// WaitForOrchestrationStart waits for an orchestration to start running and returns an [OrchestrationMetadata] object that contains
// metadata about the started instance.
//
// ErrInstanceNotFound is returned when the specified orchestration doesn't exist.
func (c *backendClient) WaitForOrchestrationStart(ctx context.Context, id api.InstanceID) (*api.OrchestrationMetadata, error) {
	return c.waitForOrchestrationCondition(ctx, id, func(metadata *api.OrchestrationMetadata) bool {
		return metadata.RuntimeStatus != protos.OrchestrationStatus_ORCHESTRATION_STATUS_PENDING
	})
}

// WaitForOrchestrationCompletion waits for an orchestration to complete and returns an [OrchestrationMetadata] object that contains
// metadata about the completed instance.
//
// ErrInstanceNotFound is returned when the specified orchestration doesn't exist.
func (c *backendClient) WaitForOrchestrationCompletion(ctx context.Context, id api.InstanceID) (*api.OrchestrationMetadata, error) {
	return c.waitForOrchestrationCondition(ctx, id, func(metadata *api.OrchestrationMetadata) bool {
		return metadata.IsComplete()
	})
}

func (c *backendClient) waitForOrchestrationCondition(ctx context.Context, id api.InstanceID, condition func(metadata *api.OrchestrationMetadata) bool) (*api.OrchestrationMetadata, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(1 * time.Second):
			metadata, err := c.FetchOrchestrationMetadata(ctx, id)
			if err != nil {
				return nil, err
			}
			if metadata != nil && condition(metadata) {
				return metadata, nil
			}
		}
	}
}

// TerminateOrchestration enqueues a message to terminate a running orchestration, causing it to stop receiving new events and
// go directly into the TERMINATED state. This operation is asynchronous. An orchestration worker must
// dequeue the termination event before the orchestration will be terminated.
func (c *backendClient) TerminateOrchestration(ctx context.Context, id api.InstanceID, reason string) error {
	e := helpers.NewExecutionTerminatedEvent(wrapperspb.String(reason))
	if err := c.be.AddNewOrchestrationEvent(ctx, id, e); err != nil {
		return fmt.Errorf("failed to add terminate event: %w", err)
	}
	return nil
}

// RaiseEvent delivers an externally raised event to a running orchestration.
func (c *backendClient) RaiseEvent(ctx context.Context, id api.InstanceID, eventName string, input interface{}) error {
	var payload *wrapperspb.StringValue
	if input != nil {
		if s, ok := input.(string); ok {
			payload = wrapperspb.String(s)
		} else {
			return fmt.Errorf("RaiseEvent: input must be pre-serialized to a string")
		}
	}
	e := helpers.NewEventRaisedEvent(eventName, payload)
	if err := c.be.AddNewOrchestrationEvent(ctx, id, e); err != nil {
		return fmt.Errorf("failed to raise event %q: %w", eventName, err)
	}
	return nil
}

// SuspendOrchestration appends an ExecutionSuspended inbound message.
func (c *backendClient) SuspendOrchestration(ctx context.Context, id api.InstanceID, reason string) error {
	e := helpers.NewExecutionSuspendedEvent(wrapperspb.String(reason))
	if err := c.be.AddNewOrchestrationEvent(ctx, id, e); err != nil {
		return fmt.Errorf("failed to suspend orchestration: %w", err)
	}
	return nil
}

// ResumeOrchestration appends an ExecutionResumed inbound message.
func (c *backendClient) ResumeOrchestration(ctx context.Context, id api.InstanceID, reason string) error {
	e := helpers.NewExecutionResumedEvent(wrapperspb.String(reason))
	if err := c.be.AddNewOrchestrationEvent(ctx, id, e); err != nil {
		return fmt.Errorf("failed to resume orchestration: %w", err)
	}
	return nil
}

// PurgeOrchestrationState removes a completed instance's history.
func (c *backendClient) PurgeOrchestrationState(ctx context.Context, id api.InstanceID) error {
	if err := c.be.PurgeOrchestrationState(ctx, id); err != nil {
		return fmt.Errorf("failed to purge orchestration state: %w", err)
	}
	return nil
}

// QueryOrchestrationStates pages over instances matching filter.
func (c *backendClient) QueryOrchestrationStates(ctx context.Context, filter InstanceQuery) (*QueryResult, error) {
	result, err := c.be.QueryOrchestrationStates(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query orchestration states: %w", err)
	}
	return result, nil
}
