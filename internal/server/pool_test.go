package server

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerPool_RunsTasks(t *testing.T) {
	pool := NewWorkerPool(2, 4, time.Minute)
	defer pool.ShutdownNow()

	var count atomic.Int32
	done := make(chan struct{}, 10)
	for i := 0; i < 10; i++ {
		// Tasks finish quickly; retry while workers are momentarily busy.
		require.Eventually(t, func() bool {
			return pool.Submit(func(ctx context.Context) {
				count.Add(1)
				done <- struct{}{}
			}) == nil
		}, time.Second, time.Millisecond)
	}

	for i := 0; i < 10; i++ {
		<-done
	}
	assert.Equal(t, int32(10), count.Load())
}

func TestWorkerPool_RejectsWhenFull(t *testing.T) {
	pool := NewWorkerPool(0, 2, time.Minute)
	defer pool.ShutdownNow()

	release := make(chan struct{})
	started := make(chan struct{}, 2)
	block := func(ctx context.Context) {
		started <- struct{}{}
		<-release
	}

	require.NoError(t, pool.Submit(block))
	require.NoError(t, pool.Submit(block))
	<-started
	<-started
	assert.Equal(t, 2, pool.Active())

	assert.ErrorIs(t, pool.Submit(block), ErrPoolFull)

	close(release)

	// A freed worker picks up the next task by direct hand-off.
	ran := make(chan struct{})
	require.Eventually(t, func() bool {
		return pool.Submit(func(ctx context.Context) { close(ran) }) == nil
	}, time.Second, time.Millisecond)
	<-ran
}

func TestWorkerPool_IdleWorkersExit(t *testing.T) {
	pool := NewWorkerPool(1, 3, 20*time.Millisecond)
	defer pool.ShutdownNow()

	release := make(chan struct{})
	for i := 0; i < 3; i++ {
		require.Eventually(t, func() bool {
			return pool.Submit(func(ctx context.Context) { <-release }) == nil
		}, time.Second, time.Millisecond)
	}
	assert.Equal(t, 3, pool.Workers())

	close(release)

	assert.Eventually(t, func() bool {
		return pool.Workers() == 1
	}, time.Second, 5*time.Millisecond)
}

func TestWorkerPool_ZeroIdleTimeout(t *testing.T) {
	pool := NewWorkerPool(0, 1, 0)
	defer pool.ShutdownNow()

	done := make(chan struct{})
	require.NoError(t, pool.Submit(func(ctx context.Context) { close(done) }))
	<-done

	assert.Eventually(t, func() bool {
		return pool.Workers() == 0
	}, time.Second, 5*time.Millisecond)
}

func TestWorkerPool_ShutdownNow(t *testing.T) {
	pool := NewWorkerPool(1, 2, time.Minute)

	cancelled := make(chan struct{})
	require.Eventually(t, func() bool {
		return pool.Submit(func(ctx context.Context) {
			<-ctx.Done()
			close(cancelled)
		}) == nil
	}, time.Second, time.Millisecond)

	pool.ShutdownNow()

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("running task was not cancelled")
	}

	pool.Wait()
	assert.Equal(t, 0, pool.Workers())
	assert.ErrorIs(t, pool.Submit(func(ctx context.Context) {}), ErrPoolClosed)
}

func TestWorkerPool_RecoversPanic(t *testing.T) {
	pool := NewWorkerPool(1, 1, time.Minute)
	defer pool.ShutdownNow()

	require.Eventually(t, func() bool {
		return pool.Submit(func(ctx context.Context) { panic("boom") }) == nil
	}, time.Second, time.Millisecond)

	done := make(chan struct{})
	require.Eventually(t, func() bool {
		return pool.Submit(func(ctx context.Context) { close(done) }) == nil
	}, time.Second, time.Millisecond)
	<-done
	assert.Equal(t, 1, pool.Workers())
}
