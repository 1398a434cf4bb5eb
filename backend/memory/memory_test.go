package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/timestamppb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/shubham1172/durabletask-go/api"
	"github.com/shubham1172/durabletask-go/backend"
	"github.com/shubham1172/durabletask-go/internal/helpers"
	"github.com/shubham1172/durabletask-go/internal/protos"
)

func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	be := NewBackend(nil)
	require.NoError(t, be.Start(context.Background()))
	t.Cleanup(func() { _ = be.Stop(context.Background()) })
	return be
}

func startInstance(t *testing.T, be *Backend, instanceID string) {
	t.Helper()
	e := helpers.NewExecutionStartedEvent(-1, "TestOrchestration", instanceID, wrapperspb.String("input"), nil)
	require.NoError(t, be.CreateOrchestrationInstance(context.Background(), e))
}

func TestCreateOrchestrationInstance_DedupesRunningByDefault(t *testing.T) {
	be := newTestBackend(t)
	startInstance(t, be, "inst-1")

	e := helpers.NewExecutionStartedEvent(-1, "TestOrchestration", "inst-1", nil, nil)
	err := be.CreateOrchestrationInstance(context.Background(), e)
	require.ErrorIs(t, err, backend.ErrAlreadyStarted)
}

func TestCreateOrchestrationInstance_AllowsReuseAfterCompletion(t *testing.T) {
	ctx := context.Background()
	be := newTestBackend(t)
	startInstance(t, be, "inst-2")

	wi, err := be.GetOrchestrationWorkItem(ctx)
	require.NoError(t, err)
	owi := wi.(*backend.OrchestrationWorkItem)
	state, err := be.GetOrchestrationRuntimeState(ctx, owi)
	require.NoError(t, err)
	owi.State = state

	action := &protos.OrchestratorAction{
		Id: 0,
		CompleteOrchestration: &protos.CompleteOrchestrationAction{
			OrchestrationStatus: protos.OrchestrationStatus_ORCHESTRATION_STATUS_COMPLETED,
		},
	}
	outbound, continuedAsNew, err := state.ApplyActions([]*protos.OrchestratorAction{action}, nil)
	require.NoError(t, err)
	require.False(t, continuedAsNew)
	owi.Outbound = outbound
	require.NoError(t, be.CompleteOrchestrationWorkItem(ctx, owi))

	meta, err := be.GetOrchestrationMetadata(ctx, api.InstanceID("inst-2"))
	require.NoError(t, err)
	require.True(t, meta.IsComplete())

	// A fresh start against the same instance id should now succeed since
	// completed is outside the default dedupe set.
	e := helpers.NewExecutionStartedEvent(-1, "TestOrchestration", "inst-2", nil, nil)
	require.NoError(t, be.CreateOrchestrationInstance(ctx, e))
}

func TestOrchestrationLifecycle_CompletesAndQueries(t *testing.T) {
	ctx := context.Background()
	be := newTestBackend(t)
	startInstance(t, be, "inst-3")

	wi, err := be.GetOrchestrationWorkItem(ctx)
	require.NoError(t, err)
	owi := wi.(*backend.OrchestrationWorkItem)
	require.Equal(t, api.InstanceID("inst-3"), owi.InstanceID)

	state, err := be.GetOrchestrationRuntimeState(ctx, owi)
	require.NoError(t, err)
	owi.State = state
	// Feed the dequeued events into the turn, as the hub and the in-process
	// worker do before running the orchestrator.
	for _, e := range owi.NewEvents {
		_ = state.AddEvent(e)
	}

	scheduleAction := &protos.OrchestratorAction{
		Id:           0,
		ScheduleTask: &protos.ScheduleTaskAction{Name: "DoWork"},
	}
	outbound, _, err := state.ApplyActions([]*protos.OrchestratorAction{scheduleAction}, nil)
	require.NoError(t, err)
	owi.Outbound = outbound
	require.NoError(t, be.CompleteOrchestrationWorkItem(ctx, owi))

	meta, err := be.GetOrchestrationMetadata(ctx, api.InstanceID("inst-3"))
	require.NoError(t, err)
	require.Equal(t, protos.OrchestrationStatus_ORCHESTRATION_STATUS_RUNNING, meta.RuntimeStatus)

	// The scheduled activity should now be dequeueable.
	awi, err := be.GetActivityWorkItem(ctx)
	require.NoError(t, err)
	activity := awi.(*backend.ActivityWorkItem)
	require.Equal(t, "inst-3", string(activity.InstanceID))
	ts := activity.NewEvent.GetTaskScheduled()
	require.NotNil(t, ts)
	require.Equal(t, "DoWork", ts.Name)

	activity.Result = helpers.NewTaskCompletedEvent(-1, activity.TaskID, wrapperspb.String("done"))
	require.NoError(t, be.CompleteActivityWorkItem(ctx, activity))

	// Completing the activity delivers a TaskCompleted inbound message, which
	// makes the orchestration ready again.
	wi2, err := be.GetOrchestrationWorkItem(ctx)
	require.NoError(t, err)
	owi2 := wi2.(*backend.OrchestrationWorkItem)
	require.Len(t, owi2.NewEvents, 1)
	require.NotNil(t, owi2.NewEvents[0].GetTaskCompleted())
}

func TestAddNewOrchestrationEvent_InstanceNotFound(t *testing.T) {
	be := newTestBackend(t)
	err := be.AddNewOrchestrationEvent(context.Background(), api.InstanceID("missing"), helpers.NewEventRaisedEvent("Go", nil))
	require.ErrorIs(t, err, backend.ErrInstanceNotFound)
}

func TestAddNewOrchestrationEvent_DroppedAfterTerminal(t *testing.T) {
	ctx := context.Background()
	be := newTestBackend(t)
	startInstance(t, be, "inst-4")

	wi, err := be.GetOrchestrationWorkItem(ctx)
	require.NoError(t, err)
	owi := wi.(*backend.OrchestrationWorkItem)
	state, err := be.GetOrchestrationRuntimeState(ctx, owi)
	require.NoError(t, err)
	owi.State = state

	action := &protos.OrchestratorAction{
		Id: 0,
		CompleteOrchestration: &protos.CompleteOrchestrationAction{
			OrchestrationStatus: protos.OrchestrationStatus_ORCHESTRATION_STATUS_COMPLETED,
		},
	}
	outbound, _, err := state.ApplyActions([]*protos.OrchestratorAction{action}, nil)
	require.NoError(t, err)
	owi.Outbound = outbound
	require.NoError(t, be.CompleteOrchestrationWorkItem(ctx, owi))

	// Terminal instances silently drop new inbound events rather than error.
	err = be.AddNewOrchestrationEvent(ctx, api.InstanceID("inst-4"), helpers.NewEventRaisedEvent("TooLate", nil))
	require.NoError(t, err)
}

func TestDeferredTimer_PromotedAfterFireAt(t *testing.T) {
	ctx := context.Background()
	be := newTestBackend(t)
	startInstance(t, be, "inst-5")

	wi, err := be.GetOrchestrationWorkItem(ctx)
	require.NoError(t, err)
	owi := wi.(*backend.OrchestrationWorkItem)
	state, err := be.GetOrchestrationRuntimeState(ctx, owi)
	require.NoError(t, err)
	owi.State = state

	fireAt := timestamppb.New(time.Now().Add(50 * time.Millisecond))
	action := &protos.OrchestratorAction{
		Id:          0,
		CreateTimer: &protos.CreateTimerAction{FireAt: fireAt},
	}
	outbound, _, err := state.ApplyActions([]*protos.OrchestratorAction{action}, nil)
	require.NoError(t, err)
	owi.Outbound = outbound
	require.NoError(t, be.CompleteOrchestrationWorkItem(ctx, owi))

	// Immediately after completion the timer has not fired yet, so no work
	// item should be ready; once it fires, the deferred pump should promote
	// it onto the ready queue within a couple of pump intervals.
	deadline := time.Now().Add(2 * time.Second)
	var wi2 backend.WorkItem
	for time.Now().Before(deadline) {
		gctx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
		wi2, err = be.GetOrchestrationWorkItem(gctx)
		cancel()
		if err == nil {
			break
		}
	}
	require.NoError(t, err)
	owi2 := wi2.(*backend.OrchestrationWorkItem)
	require.Len(t, owi2.NewEvents, 1)
	require.NotNil(t, owi2.NewEvents[0].GetTimerFired())
}

func TestQueryOrchestrationStates_FiltersByStatus(t *testing.T) {
	ctx := context.Background()
	be := newTestBackend(t)
	startInstance(t, be, "inst-6")
	startInstance(t, be, "inst-7")

	result, err := be.QueryOrchestrationStates(ctx, backend.InstanceQuery{
		Statuses: []protos.OrchestrationStatus{protos.OrchestrationStatus_ORCHESTRATION_STATUS_PENDING},
	})
	require.NoError(t, err)
	require.Len(t, result.Instances, 2)
}

func TestPurgeOrchestrationState_RequiresTerminal(t *testing.T) {
	ctx := context.Background()
	be := newTestBackend(t)
	startInstance(t, be, "inst-8")

	err := be.PurgeOrchestrationState(ctx, api.InstanceID("inst-8"))
	require.ErrorIs(t, err, backend.ErrUnsupported)
}

func TestForceTerminateOrchestration(t *testing.T) {
	ctx := context.Background()
	be := newTestBackend(t)
	startInstance(t, be, "inst-9")

	require.NoError(t, be.ForceTerminateOrchestration(ctx, api.InstanceID("inst-9"), "because"))

	wi, err := be.GetOrchestrationWorkItem(ctx)
	require.NoError(t, err)
	owi := wi.(*backend.OrchestrationWorkItem)
	var sawTerminated bool
	for _, e := range owi.NewEvents {
		if e.GetExecutionTerminated() != nil {
			sawTerminated = true
		}
	}
	require.True(t, sawTerminated)
}
