package backend

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsyncLatch_WaitAsyncBlocksUntilSet(t *testing.T) {
	l := NewAsyncLatch()
	assert.False(t, l.IsSet())

	done := make(chan error, 1)
	go func() { done <- l.WaitAsync(context.Background()) }()

	select {
	case <-done:
		t.Fatal("WaitAsync returned before Set")
	case <-time.After(20 * time.Millisecond):
	}

	l.Set()
	require.NoError(t, <-done)
	assert.True(t, l.IsSet())
}

func TestAsyncLatch_SetThenWaitAsyncReturnsImmediately(t *testing.T) {
	l := NewAsyncLatch()
	l.Set()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.NoError(t, l.WaitAsync(ctx))
}

func TestAsyncLatch_ResetBlocksSubsequentWaiters(t *testing.T) {
	l := NewAsyncLatch()
	l.Set()
	l.Reset()
	assert.False(t, l.IsSet())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, l.WaitAsync(ctx), context.DeadlineExceeded)
}

func TestAsyncLatch_PulseAllReleasesWaitersButLeavesUnset(t *testing.T) {
	l := NewAsyncLatch()
	done := make(chan error, 1)
	go func() { done <- l.WaitAsync(context.Background()) }()
	time.Sleep(20 * time.Millisecond)

	l.PulseAll()
	require.NoError(t, <-done)
	assert.False(t, l.IsSet())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, l.WaitAsync(ctx), context.DeadlineExceeded)
}

func TestAsyncLatch_SetIsIdempotent(t *testing.T) {
	l := NewAsyncLatch()
	l.Set()
	assert.NotPanics(t, func() { l.Set() })
	assert.True(t, l.IsSet())
}
