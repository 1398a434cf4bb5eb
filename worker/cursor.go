package worker

import (
	"context"
	"fmt"
	"sort"
	"time"

	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/shubham1172/durabletask-go/api"
	"github.com/shubham1172/durabletask-go/backend"
	"github.com/shubham1172/durabletask-go/internal/helpers"
	"github.com/shubham1172/durabletask-go/internal/protos"
	"github.com/shubham1172/durabletask-go/task"
)

// actionKind tags what nextScheduleID's caller is about to emit, so a replay
// can verify that the history event at the matching position is actually
// the same kind of event the orchestrator is re-issuing: for every
// scheduled-work event read back from history, a matching pending action
// with the same ID must already have been produced by the time that event
// is replayed. A mismatched kind is as much a determinism violation as a
// missing one.
type actionKind int

const (
	kindTask actionKind = iota
	kindTimer
	kindSubOrchestration
	kindSendEvent
)

func (k actionKind) String() string {
	switch k {
	case kindTask:
		return "ScheduleTask"
	case kindTimer:
		return "CreateTimer"
	case kindSubOrchestration:
		return "CreateSubOrchestration"
	case kindSendEvent:
		return "SendEvent"
	default:
		return "Unknown"
	}
}

func historicalEventKind(e *protos.HistoryEvent) actionKind {
	switch {
	case e.GetTaskScheduled() != nil:
		return kindTask
	case e.GetTimerCreated() != nil:
		return kindTimer
	case e.GetSubOrchestrationInstanceCreated() != nil:
		return kindSubOrchestration
	case e.GetEventSent() != nil:
		return kindSendEvent
	default:
		return -1
	}
}

// nonDeterminismPanic carries a determinism violation out of the user
// orchestrator function through Run's recover, distinct from parkSignal so
// it is reported as a fatal turn error instead of a normal park — a
// determinism violation is always fatal to the turn, never something to
// retry as-is.
type nonDeterminismPanic struct{ err error }

// OrchestrationCursor replays one orchestration's committed history plus a
// batch of new events, then drives the registered orchestrator function
// forward exactly as far as that input allows. It has no persistence
// responsibilities of its own: backend.RuntimeState.ApplyActions is what
// turns its output into durable history.
//
// A cursor is built fresh for every turn, including every iteration of a
// tight continue-as-new loop — there is no cross-turn state to carry beyond
// what is already implied by oldEvents/newEvents, so there is never a need
// to serialize an in-flight coroutine.
type OrchestrationCursor struct {
	logger backend.Logger

	instanceID  string
	executionID string
	name        string
	input       []byte

	replaying   bool
	currentTime time.Time

	nextID         int32
	replayCursor   int
	historicalActs []*protos.HistoryEvent
	completionByID map[int32]*protos.HistoryEvent

	externalEvents  map[string][]*protos.HistoryEvent
	externalCursor  map[string]int

	guidSequence int

	actions      []*protos.OrchestratorAction
	customStatus *wrapperspb.StringValue
	continueAsNewAction *protos.CompleteOrchestrationAction

	terminated       bool
	terminationInput *wrapperspb.StringValue
}

// TurnResult is everything one Run produced: the actions for
// backend.RuntimeState.ApplyActions to apply, plus the custom status to
// stamp onto the instance.
type TurnResult struct {
	Actions      []*protos.OrchestratorAction
	CustomStatus *wrapperspb.StringValue
}

// NewOrchestrationCursor builds a cursor over the combined history of an
// instance. oldEvents is committed history from prior turns; newEvents is
// this turn's unprocessed batch (already includes the synthetic
// OrchestratorStarted marker the hub prepends, see backend/orchestration.go
// applyWorkItem).
func NewOrchestrationCursor(logger backend.Logger, oldEvents, newEvents []*protos.HistoryEvent) (*OrchestrationCursor, error) {
	c := &OrchestrationCursor{
		logger:         logger,
		replaying:      true,
		completionByID: make(map[int32]*protos.HistoryEvent),
		externalEvents: make(map[string][]*protos.HistoryEvent),
		externalCursor: make(map[string]int),
	}
	if err := c.buildIndices(oldEvents, newEvents); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *OrchestrationCursor) buildIndices(oldEvents, newEvents []*protos.HistoryEvent) error {
	all := make([]*protos.HistoryEvent, 0, len(oldEvents)+len(newEvents))
	all = append(all, oldEvents...)
	all = append(all, newEvents...)

	for _, e := range all {
		if e.EventId > c.nextID {
			c.nextID = e.EventId
		}
		if e.Timestamp != nil {
			if t := e.Timestamp.AsTime(); t.After(c.currentTime) {
				c.currentTime = t
			}
		}

		switch {
		case e.GetExecutionStarted() != nil:
			es := e.GetExecutionStarted()
			c.name = es.Name
			c.input = []byte(es.Input.GetValue())
			if inst := es.OrchestrationInstance; inst != nil {
				c.instanceID = inst.InstanceId
				c.executionID = inst.ExecutionId.GetValue()
			}

		case e.GetTaskScheduled() != nil, e.GetTimerCreated() != nil,
			e.GetSubOrchestrationInstanceCreated() != nil, e.GetEventSent() != nil:
			c.historicalActs = append(c.historicalActs, e)

		case e.GetTaskCompleted() != nil:
			c.completionByID[e.GetTaskCompleted().TaskScheduledId] = e
		case e.GetTaskFailed() != nil:
			c.completionByID[e.GetTaskFailed().TaskScheduledId] = e
		case e.GetTimerFired() != nil:
			c.completionByID[e.GetTimerFired().TimerId] = e
		case e.GetSubOrchestrationInstanceCompleted() != nil:
			c.completionByID[e.GetSubOrchestrationInstanceCompleted().TaskScheduledId] = e
		case e.GetSubOrchestrationInstanceFailed() != nil:
			c.completionByID[e.GetSubOrchestrationInstanceFailed().TaskScheduledId] = e

		case e.GetEventRaised() != nil:
			name := e.GetEventRaised().Name
			c.externalEvents[name] = append(c.externalEvents[name], e)

		case e.GetExecutionTerminated() != nil:
			c.terminated = true
			c.terminationInput = e.GetExecutionTerminated().Input
		}
	}
	c.nextID++

	if c.instanceID == "" {
		return fmt.Errorf("worker: no ExecutionStarted event found in history")
	}
	return nil
}

// Run invokes fn (looked up by name by the caller) to completion or until it
// parks on a task with no matching completion yet, and returns the turn's
// resulting actions.
func (c *OrchestrationCursor) Run(fn task.OrchestratorFn) (result *TurnResult, err error) {
	if c.terminated {
		return c.buildTerminationResult(), nil
	}

	ctx := &orchestrationContext{cursor: c, input: c.input}

	defer func() {
		if r := recover(); r != nil {
			switch p := r.(type) {
			case *parkSignal:
				result = &TurnResult{Actions: c.actions, CustomStatus: c.customStatus}
			case *nonDeterminismPanic:
				err = p.err
			default:
				err = fmt.Errorf("worker: orchestrator %q panicked: %v", c.name, r)
			}
		}
	}()

	output, runErr := fn(ctx)

	if c.continueAsNewAction != nil {
		c.continueAsNewAction.Id = c.allocID()
		c.actions = append(c.actions, &protos.OrchestratorAction{
			Id:                    c.continueAsNewAction.Id,
			CompleteOrchestration: c.continueAsNewAction,
		})
		return &TurnResult{Actions: c.actions, CustomStatus: c.customStatus}, nil
	}

	if runErr != nil {
		c.completeWith(protos.OrchestrationStatus_ORCHESTRATION_STATUS_FAILED, nil, &protos.TaskFailureDetails{
			ErrorType:    "Orchestrator.Error",
			ErrorMessage: runErr.Error(),
		})
		return &TurnResult{Actions: c.actions, CustomStatus: c.customStatus}, nil
	}

	resultPayload, merr := marshalOrNil(output)
	if merr != nil {
		c.completeWith(protos.OrchestrationStatus_ORCHESTRATION_STATUS_FAILED, nil, &protos.TaskFailureDetails{
			ErrorType:    "Orchestrator.ResultMarshalError",
			ErrorMessage: merr.Error(),
		})
		return &TurnResult{Actions: c.actions, CustomStatus: c.customStatus}, nil
	}
	c.completeWith(protos.OrchestrationStatus_ORCHESTRATION_STATUS_COMPLETED, resultPayload, nil)
	return &TurnResult{Actions: c.actions, CustomStatus: c.customStatus}, nil
}

func (c *OrchestrationCursor) completeWith(status protos.OrchestrationStatus, result *wrapperspb.StringValue, details *protos.TaskFailureDetails) {
	id := c.allocID()
	c.actions = append(c.actions, &protos.OrchestratorAction{
		Id: id,
		CompleteOrchestration: &protos.CompleteOrchestrationAction{
			OrchestrationStatus: status,
			Result:              result,
			FailureDetails:      details,
		},
	})
}

func (c *OrchestrationCursor) buildTerminationResult() *TurnResult {
	id := c.allocID()
	return &TurnResult{
		Actions: []*protos.OrchestratorAction{{
			Id: id,
			CompleteOrchestration: &protos.CompleteOrchestrationAction{
				OrchestrationStatus: protos.OrchestrationStatus_ORCHESTRATION_STATUS_TERMINATED,
				Result:              c.terminationInput,
			},
		}},
	}
}

func (c *OrchestrationCursor) allocID() int32 {
	id := c.nextID
	c.nextID++
	return id
}

// nextScheduleID returns the id this call site should use: a reused
// historical id while still inside the recorded portion of history (a
// replay, no new action emitted), or a freshly minted one once the
// orchestrator has run past everything history already knows about. kind
// must match the historical event's own kind at this position, or the
// orchestrator has diverged from its own recorded history and the turn is
// aborted as non-deterministic.
func (c *OrchestrationCursor) nextScheduleID(kind actionKind) (id int32, isNew bool) {
	if c.replayCursor < len(c.historicalActs) {
		ev := c.historicalActs[c.replayCursor]
		if got := historicalEventKind(ev); got != kind {
			panic(&nonDeterminismPanic{err: fmt.Errorf(
				"%w: orchestrator %q issued a %s action at history position %d, but history recorded a %s there",
				backend.ErrNonDeterministicWorkflow, c.name, kind, c.replayCursor, got,
			)})
		}
		id = ev.EventId
		c.replayCursor++
		return id, false
	}
	c.replaying = false
	return c.allocID(), true
}

func (c *OrchestrationCursor) resolveOrPark(id int32) task.Task {
	t := newTask()
	if ev, ok := c.completionByID[id]; ok {
		payload, err := completionPayload(ev)
		t.resolve(payload, err)
	}
	return t
}

func (c *OrchestrationCursor) scheduleTask(name string, version, input *wrapperspb.StringValue) task.Task {
	id, isNew := c.nextScheduleID(kindTask)
	if isNew {
		c.actions = append(c.actions, &protos.OrchestratorAction{
			Id:           id,
			ScheduleTask: &protos.ScheduleTaskAction{Name: name, Version: version, Input: input},
		})
	}
	return c.resolveOrPark(id)
}

func (c *OrchestrationCursor) scheduleTimer(fireAt time.Time) task.Task {
	id, isNew := c.nextScheduleID(kindTimer)
	if isNew {
		c.actions = append(c.actions, &protos.OrchestratorAction{
			Id:          id,
			CreateTimer: &protos.CreateTimerAction{FireAt: helpers.TimeToProto(fireAt)},
		})
	}
	return c.resolveOrPark(id)
}

func (c *OrchestrationCursor) scheduleSubOrchestration(instanceID, name string, version, input *wrapperspb.StringValue) task.Task {
	id, isNew := c.nextScheduleID(kindSubOrchestration)
	if instanceID == "" {
		instanceID = fmt.Sprintf("%s:%d", c.instanceID, id)
	}
	if isNew {
		c.actions = append(c.actions, &protos.OrchestratorAction{
			Id: id,
			CreateSubOrchestration: &protos.CreateSubOrchestrationAction{
				InstanceId: instanceID, Name: name, Version: version, Input: input,
			},
		})
	}
	return c.resolveOrPark(id)
}

func (c *OrchestrationCursor) scheduleSendEvent(targetInstanceID, name string, input *wrapperspb.StringValue) {
	id, isNew := c.nextScheduleID(kindSendEvent)
	if isNew {
		c.actions = append(c.actions, &protos.OrchestratorAction{
			Id:         id,
			SendEvent:  &protos.SendEventAction{InstanceId: targetInstanceID, Name: name, Input: input},
		})
	}
}

func (c *OrchestrationCursor) waitExternalEvent(name string) task.Task {
	idx := c.externalCursor[name]
	c.externalCursor[name] = idx + 1

	t := newTask()
	if events := c.externalEvents[name]; idx < len(events) {
		ev := events[idx].GetEventRaised()
		t.resolve([]byte(ev.Input.GetValue()), nil)
	}
	return t
}

func (c *OrchestrationCursor) continueAsNew(payload *wrapperspb.StringValue, preserveUnprocessedEvents bool) {
	var carry []*protos.HistoryEvent
	if preserveUnprocessedEvents {
		carry = c.unconsumedExternalEvents()
	}
	c.continueAsNewAction = &protos.CompleteOrchestrationAction{
		OrchestrationStatus: protos.OrchestrationStatus_ORCHESTRATION_STATUS_CONTINUED_AS_NEW,
		Result:              payload,
		CarryoverEvents:      carry,
	}
}

func (c *OrchestrationCursor) unconsumedExternalEvents() []*protos.HistoryEvent {
	var out []*protos.HistoryEvent
	for name, events := range c.externalEvents {
		for i := c.externalCursor[name]; i < len(events); i++ {
			out = append(out, events[i])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EventId < out[j].EventId })
	return out
}

func (c *OrchestrationCursor) nextGUIDSequence() int {
	seq := c.guidSequence
	c.guidSequence++
	return seq
}

func completionPayload(ev *protos.HistoryEvent) ([]byte, error) {
	switch {
	case ev.GetTaskCompleted() != nil:
		return []byte(ev.GetTaskCompleted().Result.GetValue()), nil
	case ev.GetTaskFailed() != nil:
		return nil, newTaskFailedError(ev.GetTaskFailed().FailureDetails)
	case ev.GetTimerFired() != nil:
		return nil, nil
	case ev.GetSubOrchestrationInstanceCompleted() != nil:
		return []byte(ev.GetSubOrchestrationInstanceCompleted().Result.GetValue()), nil
	case ev.GetSubOrchestrationInstanceFailed() != nil:
		return nil, newTaskFailedError(ev.GetSubOrchestrationInstanceFailed().FailureDetails)
	}
	return nil, nil
}

// TaskFailedError wraps a TaskFailureDetails so callers can type-assert past
// a plain string message when they need the structured ErrorType, error
// message, and optional stack trace an activity failure carries.
type TaskFailedError struct {
	ErrorType    string
	ErrorMessage string
	StackTrace   string
}

func newTaskFailedError(d *protos.TaskFailureDetails) error {
	if d == nil {
		return fmt.Errorf("worker: task failed with no details")
	}
	return &TaskFailedError{
		ErrorType:    d.ErrorType,
		ErrorMessage: d.ErrorMessage,
		StackTrace:   d.StackTrace.GetValue(),
	}
}

func (e *TaskFailedError) Error() string {
	return fmt.Sprintf("%s: %s", e.ErrorType, e.ErrorMessage)
}

// Executor adapts a task.Registry + OrchestrationCursor into
// backend.OrchestratorExecutor, the interface NewOrchestrationWorker drives.
type Executor struct {
	Registry *task.Registry
	Logger   backend.Logger
}

// NewExecutor builds the worker-side OrchestratorExecutor.
func NewExecutor(registry *task.Registry, logger backend.Logger) *Executor {
	return &Executor{Registry: registry, Logger: logger}
}

func (e *Executor) ExecuteOrchestrator(ctx context.Context, iid api.InstanceID, oldEvents, newEvents []*protos.HistoryEvent) (*backend.ExecutionResults, error) {
	cursor, err := NewOrchestrationCursor(e.Logger, oldEvents, newEvents)
	if err != nil {
		return nil, err
	}
	fn, ok := e.Registry.GetOrchestrator(cursor.name)
	if !ok {
		return nil, fmt.Errorf("worker: no orchestrator registered for %q", cursor.name)
	}
	result, err := cursor.Run(fn)
	if err != nil {
		return nil, err
	}
	return &backend.ExecutionResults{
		Response: &protos.OrchestratorResponse{
			InstanceId:   string(iid),
			Actions:      result.Actions,
			CustomStatus: result.CustomStatus,
		},
	}, nil
}
