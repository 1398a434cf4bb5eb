package protos

import (
	"google.golang.org/protobuf/types/known/timestamppb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// HistoryEvent is a tagged variant over every event kind an orchestration's
// history may contain. Exactly one of the Get* accessors returns non-nil for
// a given instance, mirroring a protobuf oneof.
type HistoryEvent struct {
	EventId   int32
	Timestamp *timestamppb.Timestamp

	OrchestratorStarted    *OrchestratorStartedEvent
	OrchestratorCompleted  *OrchestratorCompletedEvent
	ExecutionStarted       *ExecutionStartedEvent
	ExecutionCompleted     *ExecutionCompletedEvent
	ExecutionTerminated    *ExecutionTerminatedEvent
	ContinueAsNew          *ContinueAsNewEvent
	TaskScheduled          *TaskScheduledEvent
	TaskCompleted          *TaskCompletedEvent
	TaskFailed             *TaskFailedEvent
	SubOrchestrationCreated  *SubOrchestrationInstanceCreatedEvent
	SubOrchestrationCompleted *SubOrchestrationInstanceCompletedEvent
	SubOrchestrationFailed    *SubOrchestrationInstanceFailedEvent
	TimerCreated           *TimerCreatedEvent
	TimerFired             *TimerFiredEvent
	EventRaised            *EventRaisedEvent
	EventSent              *EventSentEvent
	ExecutionSuspended     *ExecutionSuspendedEvent
	ExecutionResumed       *ExecutionResumedEvent
	Generic                *GenericEvent
}

func (e *HistoryEvent) GetOrchestratorStarted() *OrchestratorStartedEvent { if e == nil { return nil }; return e.OrchestratorStarted }
func (e *HistoryEvent) GetOrchestratorCompleted() *OrchestratorCompletedEvent { if e == nil { return nil }; return e.OrchestratorCompleted }
func (e *HistoryEvent) GetExecutionStarted() *ExecutionStartedEvent { if e == nil { return nil }; return e.ExecutionStarted }
func (e *HistoryEvent) GetExecutionCompleted() *ExecutionCompletedEvent { if e == nil { return nil }; return e.ExecutionCompleted }
func (e *HistoryEvent) GetExecutionTerminated() *ExecutionTerminatedEvent { if e == nil { return nil }; return e.ExecutionTerminated }
func (e *HistoryEvent) GetContinueAsNew() *ContinueAsNewEvent { if e == nil { return nil }; return e.ContinueAsNew }
func (e *HistoryEvent) GetTaskScheduled() *TaskScheduledEvent { if e == nil { return nil }; return e.TaskScheduled }
func (e *HistoryEvent) GetTaskCompleted() *TaskCompletedEvent { if e == nil { return nil }; return e.TaskCompleted }
func (e *HistoryEvent) GetTaskFailed() *TaskFailedEvent { if e == nil { return nil }; return e.TaskFailed }
func (e *HistoryEvent) GetSubOrchestrationInstanceCreated() *SubOrchestrationInstanceCreatedEvent { if e == nil { return nil }; return e.SubOrchestrationCreated }
func (e *HistoryEvent) GetSubOrchestrationInstanceCompleted() *SubOrchestrationInstanceCompletedEvent { if e == nil { return nil }; return e.SubOrchestrationCompleted }
func (e *HistoryEvent) GetSubOrchestrationInstanceFailed() *SubOrchestrationInstanceFailedEvent { if e == nil { return nil }; return e.SubOrchestrationFailed }
func (e *HistoryEvent) GetTimerCreated() *TimerCreatedEvent { if e == nil { return nil }; return e.TimerCreated }
func (e *HistoryEvent) GetTimerFired() *TimerFiredEvent { if e == nil { return nil }; return e.TimerFired }
func (e *HistoryEvent) GetEventRaised() *EventRaisedEvent { if e == nil { return nil }; return e.EventRaised }
func (e *HistoryEvent) GetEventSent() *EventSentEvent { if e == nil { return nil }; return e.EventSent }
func (e *HistoryEvent) GetExecutionSuspended() *ExecutionSuspendedEvent { if e == nil { return nil }; return e.ExecutionSuspended }
func (e *HistoryEvent) GetExecutionResumed() *ExecutionResumedEvent { if e == nil { return nil }; return e.ExecutionResumed }
func (e *HistoryEvent) GetGeneric() *GenericEvent { if e == nil { return nil }; return e.Generic }

type OrchestratorStartedEvent struct{}

type OrchestratorCompletedEvent struct{}

type ParentInstanceInfo struct {
	TaskScheduledId int32
	Name            *wrapperspb.StringValue
	Version         *wrapperspb.StringValue
	OrchestrationInstance *OrchestrationInstance
}

type ExecutionStartedEvent struct {
	Name                string
	Version             *wrapperspb.StringValue
	Input               *wrapperspb.StringValue
	OrchestrationInstance *OrchestrationInstance
	ParentInstance      *ParentInstanceInfo
	ScheduledStartTimestamp *timestamppb.Timestamp
	Tags                map[string]string
}

type ExecutionCompletedEvent struct {
	OrchestrationStatus OrchestrationStatus
	Result              *wrapperspb.StringValue
	FailureDetails      *TaskFailureDetails
}

type ExecutionTerminatedEvent struct {
	Input *wrapperspb.StringValue
}

type ContinueAsNewEvent struct {
	Input *wrapperspb.StringValue
}

type TaskScheduledEvent struct {
	Name    string
	Version *wrapperspb.StringValue
	Input   *wrapperspb.StringValue
}

type TaskCompletedEvent struct {
	TaskScheduledId int32
	Result          *wrapperspb.StringValue
}

type TaskFailedEvent struct {
	TaskScheduledId int32
	FailureDetails  *TaskFailureDetails
}

type SubOrchestrationInstanceCreatedEvent struct {
	InstanceId string
	Name       string
	Version    *wrapperspb.StringValue
	Input      *wrapperspb.StringValue
	Tags       map[string]string
}

type SubOrchestrationInstanceCompletedEvent struct {
	TaskScheduledId int32
	Result          *wrapperspb.StringValue
}

type SubOrchestrationInstanceFailedEvent struct {
	TaskScheduledId int32
	FailureDetails  *TaskFailureDetails
}

type TimerCreatedEvent struct {
	FireAt *timestamppb.Timestamp
}

type TimerFiredEvent struct {
	TimerId int32
	FireAt  *timestamppb.Timestamp
}

type EventRaisedEvent struct {
	Name  string
	Input *wrapperspb.StringValue
}

type EventSentEvent struct {
	InstanceId string
	Name       string
	Input      *wrapperspb.StringValue
}

type ExecutionSuspendedEvent struct {
	Input *wrapperspb.StringValue
}

type ExecutionResumedEvent struct {
	Input *wrapperspb.StringValue
}

// GenericEvent carries payloads that don't need a dedicated variant, e.g.
// host-specific diagnostic markers round-tripped through history.
type GenericEvent struct {
	Data *wrapperspb.StringValue
}

// TaskFailureDetails carries a structured user-code failure. It is never
// persisted into history on its own; it only rides embedded on the history
// event (e.g. TaskFailed) that records the failure.
type TaskFailureDetails struct {
	ErrorType      string
	ErrorMessage   string
	StackTrace     *wrapperspb.StringValue
	InnerFailure   *TaskFailureDetails
	IsNonRetriable bool
}

// OrchestrationInstance is the wire form of api.InstanceID plus its execution.
type OrchestrationInstance struct {
	InstanceId  string
	ExecutionId *wrapperspb.StringValue
}
