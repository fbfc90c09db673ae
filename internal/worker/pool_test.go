package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_RunsTasks(t *testing.T) {
	p := NewPool(3, 10)
	defer p.Shutdown(context.Background())

	var ran atomic.Int32
	for i := 0; i < 10; i++ {
		require.NoError(t, p.Submit(func(ctx context.Context) { ran.Add(1) }))
	}
	assert.Eventually(t, func() bool { return ran.Load() == 10 }, time.Second, 5*time.Millisecond)
}

func TestPool_QueueFull(t *testing.T) {
	p := NewPool(1, 0)
	defer p.Shutdown(context.Background())

	started := make(chan struct{})
	release := make(chan struct{})
	require.NoError(t, submitWhenReady(t, p, func(ctx context.Context) {
		close(started)
		<-release
	}))
	<-started

	assert.ErrorIs(t, p.Submit(func(ctx context.Context) {}), ErrQueueFull)
	close(release)
}

func TestPool_SubmitAfterShutdown(t *testing.T) {
	p := NewPool(1, 1)
	require.NoError(t, p.Shutdown(context.Background()))

	assert.ErrorIs(t, p.Submit(func(ctx context.Context) {}), ErrPoolClosed)
	// a second shutdown is harmless
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestPool_ShutdownCancelsRunningTasks(t *testing.T) {
	p := NewPool(1, 0)

	started := make(chan struct{})
	var cancelled atomic.Bool
	require.NoError(t, submitWhenReady(t, p, func(ctx context.Context) {
		close(started)
		<-ctx.Done()
		cancelled.Store(true)
	}))
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, p.Shutdown(ctx))
	assert.True(t, cancelled.Load())
}

func TestPool_ShutdownTimeout(t *testing.T) {
	p := NewPool(1, 0)

	started := make(chan struct{})
	release := make(chan struct{})
	defer close(release)
	require.NoError(t, submitWhenReady(t, p, func(ctx context.Context) {
		close(started)
		<-release
	}))
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, p.Shutdown(ctx), context.DeadlineExceeded)
}

func TestPool_SurvivesPanics(t *testing.T) {
	p := NewPool(1, 2)
	defer p.Shutdown(context.Background())

	require.NoError(t, p.Submit(func(ctx context.Context) { panic("boom") }))
	var ran atomic.Bool
	require.NoError(t, p.Submit(func(ctx context.Context) { ran.Store(true) }))
	assert.Eventually(t, ran.Load, time.Second, 5*time.Millisecond)
}

// submitWhenReady retries until an idle worker picks the task up from an
// unbuffered queue
func submitWhenReady(t *testing.T, p *Pool, task Task) error {
	t.Helper()
	var err error
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if err = p.Submit(task); err != ErrQueueFull {
			return err
		}
		time.Sleep(time.Millisecond)
	}
	return err
}
