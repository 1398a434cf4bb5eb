package worker

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/shubham1172/durabletask-go/backend"
	"github.com/shubham1172/durabletask-go/internal/protos"
	"github.com/shubham1172/durabletask-go/task"
)

func newActivityWorkItem(t *testing.T, name string, input string) *backend.ActivityWorkItem {
	t.Helper()
	return &backend.ActivityWorkItem{
		InstanceID: "inst-1",
		TaskID:     7,
		NewEvent: &protos.HistoryEvent{
			EventId:       7,
			TaskScheduled: &protos.TaskScheduledEvent{Name: name, Input: wrapperspb.String(input)},
		},
	}
}

func TestActivityRunner_ExecuteActivity_Success(t *testing.T) {
	registry := task.NewRegistry()
	require.NoError(t, registry.AddActivityN("Greet", func(ctx task.ActivityContext) (interface{}, error) {
		var name string
		require.NoError(t, ctx.GetInput(&name))
		return fmt.Sprintf("hello, %s", name), nil
	}))

	runner := NewActivityRunner(registry)
	wi := newActivityWorkItem(t, "Greet", `"world"`)

	result, err := runner.ExecuteActivity(context.Background(), "inst-1", wi)
	require.NoError(t, err)

	tc := result.GetTaskCompleted()
	require.NotNil(t, tc)
	assert.Equal(t, `"hello, world"`, tc.Result.GetValue())
}

func TestActivityRunner_ExecuteActivity_UnregisteredNameFailsNonRetriable(t *testing.T) {
	runner := NewActivityRunner(task.NewRegistry())
	wi := newActivityWorkItem(t, "Missing", "")

	result, err := runner.ExecuteActivity(context.Background(), "inst-1", wi)
	require.NoError(t, err)

	tf := result.GetTaskFailed()
	require.NotNil(t, tf)
	assert.True(t, tf.FailureDetails.IsNonRetriable)
}

func TestActivityRunner_ExecuteActivity_ErrorProducesTaskFailed(t *testing.T) {
	registry := task.NewRegistry()
	require.NoError(t, registry.AddActivityN("Boom", func(ctx task.ActivityContext) (interface{}, error) {
		return nil, fmt.Errorf("kaboom")
	}))

	runner := NewActivityRunner(registry)
	wi := newActivityWorkItem(t, "Boom", "")

	result, err := runner.ExecuteActivity(context.Background(), "inst-1", wi)
	require.NoError(t, err)

	tf := result.GetTaskFailed()
	require.NotNil(t, tf)
	assert.Contains(t, tf.FailureDetails.ErrorMessage, "kaboom")
}
