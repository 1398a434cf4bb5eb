package backend

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/shubham1172/durabletask-go/internal/helpers"
	"github.com/shubham1172/durabletask-go/internal/protos"
)

// TaskMessage is the durable payload of one WorkMessage: a single history
// event addressed to a target instance.
type TaskMessage struct {
	Event            *protos.HistoryEvent
	TargetInstanceID string
}

// WorkMessage is the transport envelope the store queues and the
// MessageRouter demultiplexes.
type WorkMessage struct {
	DispatchID         string
	Message            *TaskMessage
	Parent             *protos.OrchestrationInstance
	PopReceipt         string
	ScheduledStartTime *time.Time
}

// OutboundMessages groups the three message kinds the ActionApplier produces
// per turn: activities and timers addressed to the same instance,
// orchestrator messages addressed elsewhere (sub-orchestrations, sent
// events, parent completions).
type OutboundMessages struct {
	ActivityMessages     []*WorkMessage
	OrchestratorMessages []*WorkMessage
	TimerMessages        []*WorkMessage
}

// ParentPointer carries the identity of the parent orchestration that
// scheduled this instance as a sub-orchestration.
type ParentPointer struct {
	Instance    *protos.OrchestrationInstance
	Name        string
	Version     string
	ScheduledID int32
}

// RuntimeState is the durable truth for one execution of one instance.
// pastEvents holds committed history; newEvents holds what the current
// turn has produced and not yet committed.
type RuntimeState struct {
	Instance      *protos.OrchestrationInstance
	Parent        *ParentPointer
	Tags          map[string]string
	CustomStatus  *wrapperspb.StringValue

	pastEvents []*protos.HistoryEvent
	newEvents  []*protos.HistoryEvent

	seen map[int32]bool // dedupe guard for AddEvent, keyed by eventId where >=0
}

// NewRuntimeState constructs an empty RuntimeState for a fresh instance.
func NewRuntimeState(instance *protos.OrchestrationInstance) *RuntimeState {
	return &RuntimeState{
		Instance: instance,
		seen:     make(map[int32]bool),
	}
}

// NewRuntimeStateFromHistory rehydrates a RuntimeState from committed
// history, used when the hub loads an instance for a new turn.
func NewRuntimeStateFromHistory(instance *protos.OrchestrationInstance, pastEvents []*protos.HistoryEvent) *RuntimeState {
	s := NewRuntimeState(instance)
	s.pastEvents = pastEvents
	return s
}

// OldEvents returns the committed history (read-only).
func (s *RuntimeState) OldEvents() []*protos.HistoryEvent { return s.pastEvents }

// NewEvents returns events produced so far in the current turn (not yet
// committed).
func (s *RuntimeState) NewEvents() []*protos.HistoryEvent { return s.newEvents }

// IsValid reports whether the state has a usable instance identity (spec
// §4.3: "If state.instance is empty, fail with InvalidArgument").
func (s *RuntimeState) IsValid() bool {
	return s != nil && s.Instance != nil && s.Instance.InstanceId != ""
}

// IsCompleted reports whether the most recent ExecutionCompleted/Terminated
// event has already been recorded.
func (s *RuntimeState) IsCompleted() bool {
	return s.RuntimeStatus().IsTerminal()
}

// AddEvent appends e to newEvents after deduping against anything already
// recorded this turn. System-synthesized events (eventId == -1) are never
// deduped since many may legitimately share that sentinel id.
func (s *RuntimeState) AddEvent(e *protos.HistoryEvent) error {
	if e.EventId >= 0 {
		if s.seen == nil {
			s.seen = make(map[int32]bool)
		}
		if s.seen[e.EventId] {
			return ErrDuplicateEvent
		}
		s.seen[e.EventId] = true
	}
	if es := e.GetExecutionStarted(); es != nil && s.Instance == nil {
		s.Instance = es.OrchestrationInstance
	}
	s.newEvents = append(s.newEvents, e)
	return nil
}

// Name returns the orchestration's registered name, sourced from whichever
// of pastEvents/newEvents carries ExecutionStarted.
func (s *RuntimeState) Name() (string, error) {
	for _, e := range s.allEvents() {
		if es := e.GetExecutionStarted(); es != nil {
			return es.Name, nil
		}
	}
	return "", fmt.Errorf("backend: ExecutionStarted event not found")
}

// CreatedTime returns the timestamp of the ExecutionStarted event.
func (s *RuntimeState) CreatedTime() (time.Time, error) {
	for _, e := range s.allEvents() {
		if e.GetExecutionStarted() != nil {
			return e.Timestamp.AsTime(), nil
		}
	}
	return time.Time{}, fmt.Errorf("backend: ExecutionStarted event not found")
}

// CompletedTime returns the timestamp of the terminal ExecutionCompleted
// event, if any has been recorded.
func (s *RuntimeState) CompletedTime() (time.Time, bool) {
	for i := len(s.allEvents()) - 1; i >= 0; i-- {
		e := s.allEvents()[i]
		if e.GetExecutionCompleted() != nil {
			return e.Timestamp.AsTime(), true
		}
	}
	return time.Time{}, false
}

// RuntimeStatus derives the current status by scanning recorded events:
// empty pastEvents and no active turn means Pending regardless of other
// events.
func (s *RuntimeState) RuntimeStatus() protos.OrchestrationStatus {
	status := protos.OrchestrationStatus_ORCHESTRATION_STATUS_PENDING
	for _, e := range s.allEvents() {
		switch {
		case e.GetExecutionStarted() != nil:
			status = protos.OrchestrationStatus_ORCHESTRATION_STATUS_RUNNING
		case e.GetExecutionCompleted() != nil:
			status = e.GetExecutionCompleted().OrchestrationStatus
		case e.GetExecutionTerminated() != nil:
			status = protos.OrchestrationStatus_ORCHESTRATION_STATUS_TERMINATED
		case e.GetExecutionSuspended() != nil:
			status = protos.OrchestrationStatus_ORCHESTRATION_STATUS_SUSPENDED
		case e.GetExecutionResumed() != nil:
			status = protos.OrchestrationStatus_ORCHESTRATION_STATUS_RUNNING
		}
	}
	return status
}

func (s *RuntimeState) allEvents() []*protos.HistoryEvent {
	if len(s.newEvents) == 0 {
		return s.pastEvents
	}
	all := make([]*protos.HistoryEvent, 0, len(s.pastEvents)+len(s.newEvents))
	all = append(all, s.pastEvents...)
	all = append(all, s.newEvents...)
	return all
}

// NextEventID returns the next free, contiguous event id: ids must be
// unique and contiguous within a turn. Exported for callers that must
// synthesize a single action outside the normal cursor-allocated sequence
// (e.g. failing a turn that a determinism violation aborted before the
// cursor could allocate one).
func (s *RuntimeState) NextEventID() int32 {
	max := int32(-1)
	for _, e := range s.allEvents() {
		if e.EventId > max {
			max = e.EventId
		}
	}
	return max + 1
}

// ApplyActions is the action applier: a pure transform from the current
// state plus a turn's worth of actions into new history events, the
// outbound messages those events imply, and a continue-as-new signal.
//
// On ContinueAsNew, s is replaced in place with a fresh state seeded by a new
// OrchestratorStarted + ExecutionStarted pair (fresh executionId, carried
// over events appended); continueAsNew is reported true and any remaining
// actions in the batch are ignored, matching the reference behavior.
func (s *RuntimeState) ApplyActions(actions []*protos.OrchestratorAction, customStatus *wrapperspb.StringValue) (*OutboundMessages, bool, error) {
	if !s.IsValid() {
		return nil, false, fmt.Errorf("%w: runtime state has no instance identity", ErrNotFound)
	}

	out := &OutboundMessages{}
	selfID := s.Instance.InstanceId

	for _, action := range actions {
		switch {
		case action.GetScheduleTask() != nil:
			a := action.GetScheduleTask()
			if a.Name == "" {
				return nil, false, fmt.Errorf("scheduleTask action %d: %w", action.Id, errEmptyTaskName)
			}
			if err := s.AddEvent(helpers.NewTaskScheduledEvent(action.Id, a.Name, a.Version, a.Input)); err != nil && err != ErrDuplicateEvent {
				return nil, false, err
			}
			out.ActivityMessages = append(out.ActivityMessages, &WorkMessage{
				DispatchID: dispatchID(selfID, action.Id),
				Message: &TaskMessage{
					TargetInstanceID: selfID,
					Event:            helpers.NewTaskScheduledEvent(action.Id, a.Name, a.Version, a.Input),
				},
			})

		case action.GetCreateTimer() != nil:
			a := action.GetCreateTimer()
			if err := s.AddEvent(helpers.NewTimerCreatedEvent(action.Id, a.FireAt)); err != nil && err != ErrDuplicateEvent {
				return nil, false, err
			}
			fireAt := a.FireAt.AsTime()
			out.TimerMessages = append(out.TimerMessages, &WorkMessage{
				DispatchID:         dispatchID(selfID, action.Id),
				ScheduledStartTime: &fireAt,
				Message: &TaskMessage{
					TargetInstanceID: selfID,
					Event:            helpers.NewTimerFiredEvent(-1, action.Id, a.FireAt),
				},
			})

		case action.GetCreateSubOrchestration() != nil:
			a := action.GetCreateSubOrchestration()
			if a.InstanceId == "" {
				return nil, false, fmt.Errorf("createSubOrchestration action %d: %w", action.Id, errEmptyInstanceID)
			}
			if err := s.AddEvent(helpers.NewSubOrchestrationCreatedEvent(action.Id, a.InstanceId, a.Name, a.Version, a.Input, a.Tags)); err != nil && err != ErrDuplicateEvent {
				return nil, false, err
			}
			parent := &protos.ParentInstanceInfo{
				TaskScheduledId:       action.Id,
				Name:                  wrapperspb.String(mustName(s)),
				OrchestrationInstance: s.Instance,
			}
			out.OrchestratorMessages = append(out.OrchestratorMessages, &WorkMessage{
				DispatchID: a.InstanceId,
				Parent:     s.Instance,
				Message: &TaskMessage{
					TargetInstanceID: a.InstanceId,
					Event:            helpers.NewExecutionStartedEvent(-1, a.Name, a.InstanceId, a.Input, parent),
				},
			})

		case action.GetSendEvent() != nil:
			a := action.GetSendEvent()
			if a.InstanceId == "" {
				return nil, false, fmt.Errorf("sendEvent action %d: %w", action.Id, errEmptyInstanceID)
			}
			if err := s.AddEvent(helpers.NewEventSentEvent(action.Id, a.InstanceId, a.Name, a.Input)); err != nil && err != ErrDuplicateEvent {
				return nil, false, err
			}
			out.OrchestratorMessages = append(out.OrchestratorMessages, &WorkMessage{
				DispatchID: a.InstanceId,
				Message: &TaskMessage{
					TargetInstanceID: a.InstanceId,
					Event:            helpers.NewEventRaisedEvent(a.Name, a.Input),
				},
			})

		case action.GetCompleteOrchestration() != nil:
			a := action.GetCompleteOrchestration()
			if a.OrchestrationStatus == protos.OrchestrationStatus_ORCHESTRATION_STATUS_CONTINUED_AS_NEW {
				s.applyContinueAsNew(a)
				return out, true, nil
			}

			if err := s.AddEvent(helpers.NewExecutionCompletedEvent(action.Id, a.OrchestrationStatus, a.Result, a.FailureDetails)); err != nil && err != ErrDuplicateEvent {
				return nil, false, err
			}
			if s.Parent != nil {
				var msg *protos.HistoryEvent
				if a.OrchestrationStatus == protos.OrchestrationStatus_ORCHESTRATION_STATUS_COMPLETED {
					msg = helpers.NewSubOrchestrationCompletedEvent(-1, s.Parent.ScheduledID, a.Result)
				} else {
					msg = helpers.NewSubOrchestrationFailedEvent(-1, s.Parent.ScheduledID, a.FailureDetails)
				}
				out.OrchestratorMessages = append(out.OrchestratorMessages, &WorkMessage{
					DispatchID: s.Parent.Instance.InstanceId,
					Message: &TaskMessage{
						TargetInstanceID: s.Parent.Instance.InstanceId,
						Event:            msg,
					},
				})
			}
		}
	}

	if err := s.AddEvent(helpers.NewOrchestratorCompletedEvent()); err != nil && err != ErrDuplicateEvent {
		return nil, false, err
	}
	s.CustomStatus = customStatus
	return out, false, nil
}

// applyContinueAsNew replaces s in place with a fresh execution.
func (s *RuntimeState) applyContinueAsNew(a *protos.CompleteOrchestrationAction) {
	name, _ := s.Name()
	execID := wrapperspb.String(newExecutionID())
	freshInstance := &protos.OrchestrationInstance{
		InstanceId:  s.Instance.InstanceId,
		ExecutionId: execID,
	}

	fresh := NewRuntimeState(freshInstance)
	fresh.Parent = s.Parent
	fresh.Tags = s.Tags
	_ = fresh.AddEvent(helpers.NewOrchestratorStartedEvent())
	_ = fresh.AddEvent(helpers.NewExecutionStartedEvent(-1, name, s.Instance.InstanceId, a.Result, parentInfo(s.Parent)))
	for _, carry := range a.CarryoverEvents {
		_ = fresh.AddEvent(carry)
	}

	*s = *fresh
}

func parentInfo(p *ParentPointer) *protos.ParentInstanceInfo {
	if p == nil {
		return nil
	}
	return &protos.ParentInstanceInfo{
		TaskScheduledId:       p.ScheduledID,
		Name:                  wrapperspb.String(p.Name),
		OrchestrationInstance: p.Instance,
	}
}

func mustName(s *RuntimeState) string {
	name, _ := s.Name()
	return name
}

func dispatchID(instanceID string, taskID int32) string {
	return fmt.Sprintf("%s.%d", instanceID, taskID)
}

var (
	errEmptyTaskName   = fmt.Errorf("task name must not be empty")
	errEmptyInstanceID = fmt.Errorf("target instance id must not be empty")
)

// newExecutionID is a seam so tests can supply a deterministic generator;
// production code mints a fresh google/uuid, same as client.go does for
// instance ids.
var newExecutionID = func() string { return uuid.NewString() }
