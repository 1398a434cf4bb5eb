// Package helpers provides constructors and formatting utilities shared by
// the backend and worker packages: the glue between the wire-level protos
// types and the domain logic built on top of them.
package helpers

import (
	"fmt"
	"reflect"
	"runtime"
	"strings"
	"time"

	"google.golang.org/protobuf/types/known/timestamppb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/shubham1172/durabletask-go/internal/protos"
)

// NewExecutionStartedEvent builds the seed event of a new orchestration
// instance. Every caller in this module passes eventId -1 (client start,
// sub-orchestration start and ContinueAsNew alike): the hub assigns no
// sequence number to it.
func NewExecutionStartedEvent(eventID int32, name, instanceID string, input *wrapperspb.StringValue, parent *protos.ParentInstanceInfo) *protos.HistoryEvent {
	return &protos.HistoryEvent{
		EventId:   eventID,
		Timestamp: timestamppb.Now(),
		ExecutionStarted: &protos.ExecutionStartedEvent{
			Name:  name,
			Input: input,
			OrchestrationInstance: &protos.OrchestrationInstance{
				InstanceId: instanceID,
			},
			ParentInstance: parent,
		},
	}
}

// NewExecutionTerminatedEvent builds the inbound message that forces an
// orchestration straight to Terminated, bypassing any further turns.
func NewExecutionTerminatedEvent(reason *wrapperspb.StringValue) *protos.HistoryEvent {
	return &protos.HistoryEvent{
		EventId:             -1,
		Timestamp:            timestamppb.Now(),
		ExecutionTerminated: &protos.ExecutionTerminatedEvent{Input: reason},
	}
}

// NewOrchestratorStartedEvent marks the beginning of a turn; it exists purely
// to advance the orchestration's observed current time.
func NewOrchestratorStartedEvent() *protos.HistoryEvent {
	return &protos.HistoryEvent{
		EventId:             -1,
		Timestamp:            timestamppb.Now(),
		OrchestratorStarted: &protos.OrchestratorStartedEvent{},
	}
}

// NewOrchestratorCompletedEvent closes out a turn.
func NewOrchestratorCompletedEvent() *protos.HistoryEvent {
	return &protos.HistoryEvent{
		EventId:               -1,
		Timestamp:              timestamppb.Now(),
		OrchestratorCompleted: &protos.OrchestratorCompletedEvent{},
	}
}

// NewTaskScheduledEvent, NewTimerCreatedEvent, etc. convert a worker-emitted
// OrchestratorAction into the durable event the ActionApplier appends to
// history. eventId always equals the action's id.

func NewTaskScheduledEvent(eventID int32, name string, version *wrapperspb.StringValue, input *wrapperspb.StringValue) *protos.HistoryEvent {
	return &protos.HistoryEvent{
		EventId:   eventID,
		Timestamp: timestamppb.Now(),
		TaskScheduled: &protos.TaskScheduledEvent{
			Name: name, Version: version, Input: input,
		},
	}
}

func NewTaskCompletedEvent(eventID, scheduledID int32, result *wrapperspb.StringValue) *protos.HistoryEvent {
	return &protos.HistoryEvent{
		EventId:   eventID,
		Timestamp: timestamppb.Now(),
		TaskCompleted: &protos.TaskCompletedEvent{
			TaskScheduledId: scheduledID, Result: result,
		},
	}
}

func NewTaskFailedEvent(eventID, scheduledID int32, details *protos.TaskFailureDetails) *protos.HistoryEvent {
	return &protos.HistoryEvent{
		EventId:   eventID,
		Timestamp: timestamppb.Now(),
		TaskFailed: &protos.TaskFailedEvent{
			TaskScheduledId: scheduledID, FailureDetails: details,
		},
	}
}

func NewTimerCreatedEvent(eventID int32, fireAt *timestamppb.Timestamp) *protos.HistoryEvent {
	return &protos.HistoryEvent{
		EventId:   eventID,
		Timestamp: timestamppb.Now(),
		TimerCreated: &protos.TimerCreatedEvent{FireAt: fireAt},
	}
}

func NewTimerFiredEvent(eventID, timerID int32, fireAt *timestamppb.Timestamp) *protos.HistoryEvent {
	return &protos.HistoryEvent{
		EventId:   eventID,
		Timestamp: timestamppb.Now(),
		TimerFired: &protos.TimerFiredEvent{TimerId: timerID, FireAt: fireAt},
	}
}

func NewSubOrchestrationCreatedEvent(eventID int32, instanceID, name string, version, input *wrapperspb.StringValue, tags map[string]string) *protos.HistoryEvent {
	return &protos.HistoryEvent{
		EventId:   eventID,
		Timestamp: timestamppb.Now(),
		SubOrchestrationCreated: &protos.SubOrchestrationInstanceCreatedEvent{
			InstanceId: instanceID, Name: name, Version: version, Input: input, Tags: tags,
		},
	}
}

func NewSubOrchestrationCompletedEvent(eventID, scheduledID int32, result *wrapperspb.StringValue) *protos.HistoryEvent {
	return &protos.HistoryEvent{
		EventId:   eventID,
		Timestamp: timestamppb.Now(),
		SubOrchestrationCompleted: &protos.SubOrchestrationInstanceCompletedEvent{
			TaskScheduledId: scheduledID, Result: result,
		},
	}
}

func NewSubOrchestrationFailedEvent(eventID, scheduledID int32, details *protos.TaskFailureDetails) *protos.HistoryEvent {
	return &protos.HistoryEvent{
		EventId:   eventID,
		Timestamp: timestamppb.Now(),
		SubOrchestrationFailed: &protos.SubOrchestrationInstanceFailedEvent{
			TaskScheduledId: scheduledID, FailureDetails: details,
		},
	}
}

func NewEventSentEvent(eventID int32, targetInstanceID, name string, input *wrapperspb.StringValue) *protos.HistoryEvent {
	return &protos.HistoryEvent{
		EventId:   eventID,
		Timestamp: timestamppb.Now(),
		EventSent: &protos.EventSentEvent{
			InstanceId: targetInstanceID, Name: name, Input: input,
		},
	}
}

func NewEventRaisedEvent(name string, input *wrapperspb.StringValue) *protos.HistoryEvent {
	return &protos.HistoryEvent{
		EventId:   -1,
		Timestamp: timestamppb.Now(),
		EventRaised: &protos.EventRaisedEvent{Name: name, Input: input},
	}
}

func NewExecutionCompletedEvent(eventID int32, status protos.OrchestrationStatus, result *wrapperspb.StringValue, details *protos.TaskFailureDetails) *protos.HistoryEvent {
	return &protos.HistoryEvent{
		EventId:   eventID,
		Timestamp: timestamppb.Now(),
		ExecutionCompleted: &protos.ExecutionCompletedEvent{
			OrchestrationStatus: status, Result: result, FailureDetails: details,
		},
	}
}

func NewExecutionSuspendedEvent(input *wrapperspb.StringValue) *protos.HistoryEvent {
	return &protos.HistoryEvent{EventId: -1, Timestamp: timestamppb.Now(), ExecutionSuspended: &protos.ExecutionSuspendedEvent{Input: input}}
}

func NewExecutionResumedEvent(input *wrapperspb.StringValue) *protos.HistoryEvent {
	return &protos.HistoryEvent{EventId: -1, Timestamp: timestamppb.Now(), ExecutionResumed: &protos.ExecutionResumedEvent{Input: input}}
}

// ToRuntimeStatusString renders an OrchestrationStatus the way log lines and
// the client-facing API expect it.
func ToRuntimeStatusString(s protos.OrchestrationStatus) string {
	return s.String()
}

// HistoryListSummary renders a compact description of an event batch for
// debug logging, e.g. "[ExecutionStarted:Greet, TaskScheduled#1, TaskScheduled#2]".
func HistoryListSummary(events []*protos.HistoryEvent) string {
	parts := make([]string, 0, len(events))
	for _, e := range events {
		parts = append(parts, summarizeEvent(e))
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func summarizeEvent(e *protos.HistoryEvent) string {
	switch {
	case e.GetOrchestratorStarted() != nil:
		return "OrchestratorStarted"
	case e.GetOrchestratorCompleted() != nil:
		return "OrchestratorCompleted"
	case e.GetExecutionStarted() != nil:
		return fmt.Sprintf("ExecutionStarted:%s", e.GetExecutionStarted().Name)
	case e.GetExecutionCompleted() != nil:
		return fmt.Sprintf("ExecutionCompleted:%s", e.GetExecutionCompleted().OrchestrationStatus)
	case e.GetExecutionTerminated() != nil:
		return "ExecutionTerminated"
	case e.GetContinueAsNew() != nil:
		return "ContinueAsNew"
	case e.GetTaskScheduled() != nil:
		return fmt.Sprintf("TaskScheduled#%d", e.EventId)
	case e.GetTaskCompleted() != nil:
		return fmt.Sprintf("TaskCompleted#%d", e.GetTaskCompleted().TaskScheduledId)
	case e.GetTaskFailed() != nil:
		return fmt.Sprintf("TaskFailed#%d", e.GetTaskFailed().TaskScheduledId)
	case e.GetSubOrchestrationInstanceCreated() != nil:
		return fmt.Sprintf("SubOrchestrationCreated#%d", e.EventId)
	case e.GetSubOrchestrationInstanceCompleted() != nil:
		return fmt.Sprintf("SubOrchestrationCompleted#%d", e.GetSubOrchestrationInstanceCompleted().TaskScheduledId)
	case e.GetSubOrchestrationInstanceFailed() != nil:
		return fmt.Sprintf("SubOrchestrationFailed#%d", e.GetSubOrchestrationInstanceFailed().TaskScheduledId)
	case e.GetTimerCreated() != nil:
		return fmt.Sprintf("TimerCreated#%d", e.EventId)
	case e.GetTimerFired() != nil:
		return fmt.Sprintf("TimerFired#%d", e.GetTimerFired().TimerId)
	case e.GetEventRaised() != nil:
		return fmt.Sprintf("EventRaised:%s", e.GetEventRaised().Name)
	case e.GetEventSent() != nil:
		return fmt.Sprintf("EventSent:%s", e.GetEventSent().Name)
	case e.GetExecutionSuspended() != nil:
		return "ExecutionSuspended"
	case e.GetExecutionResumed() != nil:
		return "ExecutionResumed"
	default:
		return "Generic"
	}
}

// ActionListSummary mirrors HistoryListSummary for outbound actions.
func ActionListSummary(actions []*protos.OrchestratorAction) string {
	parts := make([]string, 0, len(actions))
	for _, a := range actions {
		switch {
		case a.GetScheduleTask() != nil:
			parts = append(parts, fmt.Sprintf("ScheduleTask#%d:%s", a.Id, a.GetScheduleTask().Name))
		case a.GetCreateTimer() != nil:
			parts = append(parts, fmt.Sprintf("CreateTimer#%d", a.Id))
		case a.GetCreateSubOrchestration() != nil:
			parts = append(parts, fmt.Sprintf("CreateSubOrchestration#%d:%s", a.Id, a.GetCreateSubOrchestration().Name))
		case a.GetSendEvent() != nil:
			parts = append(parts, fmt.Sprintf("SendEvent#%d:%s", a.Id, a.GetSendEvent().Name))
		case a.GetCompleteOrchestration() != nil:
			parts = append(parts, fmt.Sprintf("CompleteOrchestration#%d:%s", a.Id, a.GetCompleteOrchestration().OrchestrationStatus))
		default:
			parts = append(parts, fmt.Sprintf("Unknown#%d", a.Id))
		}
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// GetTaskFunctionName derives the registered name for an orchestrator or
// activity passed by function reference, so callers can schedule a task by
// its function value instead of a hand-typed string name.
func GetTaskFunctionName(f interface{}) string {
	if f == nil {
		return ""
	}
	if s, ok := f.(string); ok {
		return s
	}
	v := reflect.ValueOf(f)
	if v.Kind() != reflect.Func {
		return reflect.TypeOf(f).String()
	}
	full := runtime.FuncForPC(v.Pointer()).Name()
	// full looks like "github.com/pkg.(*T).Method-fm" or "pkg.Func";
	// keep just the last identifier.
	if idx := strings.LastIndex(full, "."); idx >= 0 {
		full = full[idx+1:]
	}
	full = strings.TrimSuffix(full, "-fm")
	return full
}

// UnixMillis converts a timestamp to Unix milliseconds for comparing
// event/message timestamps; a nil timestamp yields 0.
func UnixMillis(ts *timestamppb.Timestamp) int64 {
	if ts == nil {
		return 0
	}
	return ts.AsTime().UnixMilli()
}

// TimeToProto is the inverse of timestamppb.Timestamp.AsTime, kept here so
// backend code doesn't need to import timestamppb directly everywhere.
func TimeToProto(t time.Time) *timestamppb.Timestamp {
	return timestamppb.New(t)
}
