package worker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/shubham1172/durabletask-go/backend"
	"github.com/shubham1172/durabletask-go/internal/helpers"
	"github.com/shubham1172/durabletask-go/internal/protos"
	"github.com/shubham1172/durabletask-go/task"
)

func greetOrchestrator(ctx task.OrchestrationContext) (interface{}, error) {
	var name string
	if err := ctx.GetInput(&name); err != nil {
		return nil, err
	}
	var greeting string
	if err := ctx.CallActivity("Greet", task.WithActivityInput(name)).Await(&greeting); err != nil {
		return nil, err
	}
	return greeting, nil
}

func startedEvent(instanceID, input string) *protos.HistoryEvent {
	return helpers.NewExecutionStartedEvent(-1, "Greeting", instanceID, wrapperspb.String(input), nil)
}

func TestOrchestrationCursor_FirstTurnParksOnScheduledActivity(t *testing.T) {
	newEvents := []*protos.HistoryEvent{
		helpers.NewOrchestratorStartedEvent(),
		startedEvent("inst-1", `"world"`),
	}
	cursor, err := NewOrchestrationCursor(nil, nil, newEvents)
	require.NoError(t, err)

	result, err := cursor.Run(greetOrchestrator)
	require.NoError(t, err)
	require.Len(t, result.Actions, 1)

	ts := result.Actions[0].GetScheduleTask()
	require.NotNil(t, ts)
	assert.Equal(t, "Greet", ts.Name)
	assert.Equal(t, `"world"`, ts.Input.GetValue())
}

func TestOrchestrationCursor_SecondTurnCompletesAfterActivityResult(t *testing.T) {
	oldEvents := []*protos.HistoryEvent{
		helpers.NewOrchestratorStartedEvent(),
		startedEvent("inst-1", `"world"`),
		helpers.NewTaskScheduledEvent(1, "Greet", nil, wrapperspb.String(`"world"`)),
	}
	newEvents := []*protos.HistoryEvent{
		helpers.NewTaskCompletedEvent(-1, 1, wrapperspb.String(`"hello, world"`)),
	}

	cursor, err := NewOrchestrationCursor(nil, oldEvents, newEvents)
	require.NoError(t, err)

	result, err := cursor.Run(greetOrchestrator)
	require.NoError(t, err)
	require.Len(t, result.Actions, 1)

	complete := result.Actions[0].GetCompleteOrchestration()
	require.NotNil(t, complete)
	assert.Equal(t, protos.OrchestrationStatus_ORCHESTRATION_STATUS_COMPLETED, complete.OrchestrationStatus)
	assert.Equal(t, `"hello, world"`, complete.Result.GetValue())
}

func TestOrchestrationCursor_SecondTurnFailsWhenActivityFailed(t *testing.T) {
	oldEvents := []*protos.HistoryEvent{
		helpers.NewOrchestratorStartedEvent(),
		startedEvent("inst-1", `"world"`),
		helpers.NewTaskScheduledEvent(1, "Greet", nil, wrapperspb.String(`"world"`)),
	}
	newEvents := []*protos.HistoryEvent{
		helpers.NewTaskFailedEvent(-1, 1, &protos.TaskFailureDetails{ErrorType: "Boom", ErrorMessage: "failed hard"}),
	}

	cursor, err := NewOrchestrationCursor(nil, oldEvents, newEvents)
	require.NoError(t, err)

	result, err := cursor.Run(greetOrchestrator)
	require.NoError(t, err)
	require.Len(t, result.Actions, 1)

	complete := result.Actions[0].GetCompleteOrchestration()
	require.NotNil(t, complete)
	assert.Equal(t, protos.OrchestrationStatus_ORCHESTRATION_STATUS_FAILED, complete.OrchestrationStatus)
	assert.Contains(t, complete.FailureDetails.ErrorMessage, "failed hard")
}

func TestNewOrchestrationCursor_RequiresExecutionStarted(t *testing.T) {
	_, err := NewOrchestrationCursor(nil, nil, []*protos.HistoryEvent{helpers.NewOrchestratorStartedEvent()})
	assert.Error(t, err)
}

func TestOrchestrationCursor_ReplayDetectsNonDeterminism(t *testing.T) {
	// History recorded a CreateTimer at the position greetOrchestrator's
	// first CallActivity would replay against: the orchestrator has
	// diverged from its own past (e.g. code changed between deploys).
	fireAt := helpers.TimeToProto(time.Now())
	oldEvents := []*protos.HistoryEvent{
		helpers.NewOrchestratorStartedEvent(),
		startedEvent("inst-1", `"world"`),
		helpers.NewTimerCreatedEvent(1, fireAt),
	}
	newEvents := []*protos.HistoryEvent{
		helpers.NewTimerFiredEvent(-1, 1, fireAt),
	}

	cursor, err := NewOrchestrationCursor(nil, oldEvents, newEvents)
	require.NoError(t, err)

	_, err = cursor.Run(greetOrchestrator)
	require.Error(t, err)
	assert.ErrorIs(t, err, backend.ErrNonDeterministicWorkflow)
}
