package router

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shubham1172/durabletask-go/backend"
)

func msg(id string) *backend.WorkMessage {
	return &backend.WorkMessage{Message: &backend.TaskMessage{TargetInstanceID: id}}
}

func TestMessageRouter_InitializeSeedsFirstMessage(t *testing.T) {
	r := NewMessageRouter()
	first := msg("inst-1")
	reader, err := r.Initialize("inst-1", first)
	require.NoError(t, err)

	got, ok := reader.Recv()
	require.True(t, ok)
	assert.Same(t, first, got)
	assert.True(t, r.IsActive("inst-1"))
}

func TestMessageRouter_InitializeRejectsDuplicate(t *testing.T) {
	r := NewMessageRouter()
	_, err := r.Initialize("inst-1", nil)
	require.NoError(t, err)

	_, err = r.Initialize("inst-1", nil)
	assert.Error(t, err)
}

func TestMessageRouter_DeliverRoutesToRegisteredDispatcher(t *testing.T) {
	r := NewMessageRouter()
	reader, err := r.Initialize("inst-1", nil)
	require.NoError(t, err)

	ok := r.Deliver("inst-1", msg("inst-1"))
	assert.True(t, ok)

	got, ok := reader.Recv()
	require.True(t, ok)
	assert.Equal(t, "inst-1", got.Message.TargetInstanceID)
}

func TestMessageRouter_DeliverToUnknownInstanceReturnsFalse(t *testing.T) {
	r := NewMessageRouter()
	assert.False(t, r.Deliver("missing", msg("missing")))
}

func TestDispatcher_RecvBlocksUntilDelivered(t *testing.T) {
	r := NewMessageRouter()
	reader, err := r.Initialize("inst-1", nil)
	require.NoError(t, err)

	done := make(chan *backend.WorkMessage, 1)
	go func() {
		got, _ := reader.Recv()
		done <- got
	}()

	select {
	case <-done:
		t.Fatal("Recv returned before any message was delivered")
	case <-time.After(20 * time.Millisecond):
	}

	r.Deliver("inst-1", msg("inst-1"))
	select {
	case got := <-done:
		assert.NotNil(t, got)
	case <-time.After(time.Second):
		t.Fatal("Recv did not unblock after Deliver")
	}
}

func TestDispatcher_CloseUnblocksReaderAndUnregisters(t *testing.T) {
	r := NewMessageRouter()
	reader, err := r.Initialize("inst-1", nil)
	require.NoError(t, err)

	done := make(chan bool, 1)
	go func() {
		_, ok := reader.Recv()
		done <- ok
	}()

	time.Sleep(20 * time.Millisecond)
	reader.Close()

	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Recv did not unblock after Close")
	}
	assert.False(t, r.IsActive("inst-1"))
}

func TestDispatcher_DeliverAfterCloseReturnsFalse(t *testing.T) {
	r := NewMessageRouter()
	reader, err := r.Initialize("inst-1", nil)
	require.NoError(t, err)
	reader.Close()

	assert.False(t, r.Deliver("inst-1", msg("inst-1")))
}
