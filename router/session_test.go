package router

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/shubham1172/durabletask-go/api"
	"github.com/shubham1172/durabletask-go/backend"
	"github.com/shubham1172/durabletask-go/backend/memory"
	"github.com/shubham1172/durabletask-go/internal/helpers"
	"github.com/shubham1172/durabletask-go/internal/protos"
)

func TestSession_SendNewMessageDeliversAndPersists(t *testing.T) {
	ctx := context.Background()
	be := memory.NewBackend(nil)
	require.NoError(t, be.Start(ctx))
	t.Cleanup(func() { _ = be.Stop(ctx) })

	e := helpers.NewExecutionStartedEvent(-1, "Parent", "parent-1", nil, nil)
	require.NoError(t, be.CreateOrchestrationInstance(ctx, e))
	// Drain the instance's own ready work item so the session below isn't
	// racing the store's initial delivery.
	_, err := be.GetOrchestrationWorkItem(ctx)
	require.NoError(t, err)

	r := NewMessageRouter()
	sess, err := NewSession(be, r, nil, Envelope{InstanceID: "parent-1"}, "token", nil)
	require.NoError(t, err)
	defer sess.Release()

	out := &backend.WorkMessage{
		Message: &backend.TaskMessage{
			TargetInstanceID: "parent-1",
			Event:            helpers.NewEventRaisedEvent("Go", wrapperspb.String("hi")),
		},
	}
	require.NoError(t, sess.SendNewMessage(ctx, out))

	// The router should have delivered it directly to this session's own
	// dispatcher, since SendNewMessage targets its own instance.
	got, ok := sess.Recv()
	require.True(t, ok)
	require.Equal(t, "Go", got.Message.Event.GetEventRaised().Name)

	// It must also have been durably appended, independent of the fast path.
	meta, err := be.GetOrchestrationMetadata(ctx, api.InstanceID("parent-1"))
	require.NoError(t, err)
	require.NotNil(t, meta)
}

func TestSession_MarkCompletedClosesCompletionChannel(t *testing.T) {
	ctx := context.Background()
	be := memory.NewBackend(nil)
	require.NoError(t, be.Start(ctx))
	t.Cleanup(func() { _ = be.Stop(ctx) })

	e := helpers.NewExecutionStartedEvent(-1, "Solo", "solo-1", nil, nil)
	require.NoError(t, be.CreateOrchestrationInstance(ctx, e))
	_, err := be.GetOrchestrationWorkItem(ctx)
	require.NoError(t, err)

	r := NewMessageRouter()
	sess, err := NewSession(be, r, nil, Envelope{InstanceID: "solo-1"}, "token", nil)
	require.NoError(t, err)
	defer sess.Release()

	ch, result := sess.Completion()
	require.Nil(t, result)
	select {
	case <-ch:
		t.Fatal("completion channel closed before ExecutionCompleted observed")
	default:
	}

	completion := helpers.NewExecutionCompletedEvent(-1, protos.OrchestrationStatus_ORCHESTRATION_STATUS_COMPLETED, wrapperspb.String("ok"), nil)
	require.NoError(t, sess.SendNewMessage(ctx, &backend.WorkMessage{Message: &backend.TaskMessage{
		TargetInstanceID: "solo-1",
		Event:            completion,
	}}))

	ch2, result2 := sess.Completion()
	select {
	case <-ch2:
	default:
		t.Fatal("completion channel not closed after ExecutionCompleted")
	}
	require.NotNil(t, result2)
}
