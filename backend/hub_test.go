package backend_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/shubham1172/durabletask-go/api"
	"github.com/shubham1172/durabletask-go/backend"
	"github.com/shubham1172/durabletask-go/backend/memory"
	"github.com/shubham1172/durabletask-go/internal/helpers"
	"github.com/shubham1172/durabletask-go/internal/protos"
)

func newHub(t *testing.T) (*memory.Backend, *backend.HubDispatcher) {
	t.Helper()
	ctx := context.Background()
	be := memory.NewBackend(nil)
	require.NoError(t, be.Start(ctx))
	hub := backend.NewHubDispatcher(be, nil)
	require.NoError(t, hub.Start(ctx))
	t.Cleanup(func() {
		_ = hub.Stop(context.Background())
		_ = be.Stop(context.Background())
	})
	return be, hub
}

func TestHubDispatcher_NextWorkItemRequiresConnectedWorker(t *testing.T) {
	_, hub := newHub(t)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := hub.NextWorkItem(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestHubDispatcher_ClaimCompleteOrchestratorTask(t *testing.T) {
	ctx := context.Background()
	be, hub := newHub(t)
	hub.WorkerConnected()
	defer hub.WorkerDisconnected()

	e := helpers.NewExecutionStartedEvent(-1, "Greet", "inst-hub-1", nil, nil)
	require.NoError(t, be.CreateOrchestrationInstance(ctx, e))

	wi, err := hub.NextWorkItem(ctx)
	require.NoError(t, err)
	owi, ok := wi.(*backend.OrchestrationWorkItem)
	require.True(t, ok)

	state, err := be.GetOrchestrationRuntimeState(ctx, owi)
	require.NoError(t, err)
	owi.State = state

	resp := &protos.OrchestratorResponse{
		InstanceId: string(owi.InstanceID),
		Actions: []*protos.OrchestratorAction{
			{
				Id: 0,
				CompleteOrchestration: &protos.CompleteOrchestrationAction{
					OrchestrationStatus: protos.OrchestrationStatus_ORCHESTRATION_STATUS_COMPLETED,
					Result:              wrapperspb.String("done"),
				},
			},
		},
	}
	require.NoError(t, hub.CompleteOrchestratorTask(ctx, resp))

	meta, err := be.GetOrchestrationMetadata(ctx, api.InstanceID("inst-hub-1"))
	require.NoError(t, err)
	require.True(t, meta.IsComplete())

	// The claim should have been cleared; completing again should now fail.
	err = hub.CompleteOrchestratorTask(ctx, resp)
	require.ErrorIs(t, err, backend.ErrNotFound)
}

func TestHubDispatcher_CompleteOrchestratorTaskAbandonsOnApplyActionsFailure(t *testing.T) {
	ctx := context.Background()
	be, hub := newHub(t)
	hub.WorkerConnected()
	defer hub.WorkerDisconnected()

	e := helpers.NewExecutionStartedEvent(-1, "Greet", "inst-hub-3", nil, nil)
	require.NoError(t, be.CreateOrchestrationInstance(ctx, e))

	wi, err := hub.NextWorkItem(ctx)
	require.NoError(t, err)
	owi := wi.(*backend.OrchestrationWorkItem)
	state, err := be.GetOrchestrationRuntimeState(ctx, owi)
	require.NoError(t, err)
	owi.State = state

	// An empty task name is an invalid ScheduleTask action: ApplyActions
	// rejects it, which must not leave the instance's lock stuck forever.
	resp := &protos.OrchestratorResponse{
		InstanceId: string(owi.InstanceID),
		Actions: []*protos.OrchestratorAction{
			{Id: 0, ScheduleTask: &protos.ScheduleTaskAction{Name: ""}},
		},
	}
	require.Error(t, hub.CompleteOrchestratorTask(ctx, resp))

	// The lock must have been released back to the store, so the instance
	// is claimable again rather than stuck.
	wi2, err := hub.NextWorkItem(ctx)
	require.NoError(t, err)
	owi2 := wi2.(*backend.OrchestrationWorkItem)
	require.Equal(t, owi.InstanceID, owi2.InstanceID)
}

func TestHubDispatcher_StopAbandonsOutstandingClaims(t *testing.T) {
	ctx := context.Background()
	be, hub := newHub(t)
	hub.WorkerConnected()

	e := helpers.NewExecutionStartedEvent(-1, "Greet", "inst-hub-4", nil, nil)
	require.NoError(t, be.CreateOrchestrationInstance(ctx, e))

	wi, err := hub.NextWorkItem(ctx)
	require.NoError(t, err)
	owi := wi.(*backend.OrchestrationWorkItem)
	require.Equal(t, api.InstanceID("inst-hub-4"), owi.InstanceID)

	// Never completed or abandoned: the claim is still outstanding when the
	// hub is stopped.
	require.NoError(t, hub.Stop(context.Background()))

	// A second Stop must not panic or double-abandon.
	require.NoError(t, hub.Stop(context.Background()))

	// Stop's producer loops have exited for good, so query the Backend
	// directly rather than through the hub to confirm the lock was released
	// rather than left outstanding until expiry.
	wi2, err := be.GetOrchestrationWorkItem(ctx)
	require.NoError(t, err)
	owi2 := wi2.(*backend.OrchestrationWorkItem)
	require.Equal(t, owi.InstanceID, owi2.InstanceID)
}

func TestHubDispatcher_AbandonWorkItemReturnsActivityToQueue(t *testing.T) {
	ctx := context.Background()
	be, hub := newHub(t)
	hub.WorkerConnected()
	defer hub.WorkerDisconnected()

	e := helpers.NewExecutionStartedEvent(-1, "Greet", "inst-hub-2", nil, nil)
	require.NoError(t, be.CreateOrchestrationInstance(ctx, e))

	wi, err := hub.NextWorkItem(ctx)
	require.NoError(t, err)
	owi := wi.(*backend.OrchestrationWorkItem)
	state, err := be.GetOrchestrationRuntimeState(ctx, owi)
	require.NoError(t, err)
	owi.State = state

	resp := &protos.OrchestratorResponse{
		InstanceId: string(owi.InstanceID),
		Actions: []*protos.OrchestratorAction{
			{Id: 0, ScheduleTask: &protos.ScheduleTaskAction{Name: "DoWork"}},
		},
	}
	require.NoError(t, hub.CompleteOrchestratorTask(ctx, resp))

	awi, err := hub.NextWorkItem(ctx)
	require.NoError(t, err)
	activity := awi.(*backend.ActivityWorkItem)

	require.NoError(t, hub.AbandonWorkItem(ctx, string(activity.InstanceID), &activity.TaskID))

	// Abandoning released the lock, so the same activity should be
	// claimable again.
	awi2, err := hub.NextWorkItem(ctx)
	require.NoError(t, err)
	activity2 := awi2.(*backend.ActivityWorkItem)
	require.Equal(t, activity.TaskID, activity2.TaskID)
}
