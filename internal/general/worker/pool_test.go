package worker_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"delivery-realtime/internal/general/logger"
	"delivery-realtime/internal/general/worker"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logger.Logger { return logger.NewWithWriter("test", io.Discard) }

func TestPoolRunsJobsAndDrainsOnClose(t *testing.T) {
	p := worker.NewPool(quietLogger(), 4, 16, time.Second)

	var n atomic.Int32
	for i := 0; i < 40; i++ {
		err := p.Submit(worker.Job{Name: "count", Run: func(context.Context) error {
			n.Add(1)
			return nil
		}})
		if err != nil {
			// queues are small relative to the burst; a drop is acceptable here
			require.ErrorIs(t, err, worker.ErrQueueFull)
		}
	}
	require.NoError(t, p.Close(context.Background()))
	assert.Positive(t, n.Load())

	assert.ErrorIs(t, p.Submit(worker.Job{Name: "late", Run: func(context.Context) error { return nil }}), worker.ErrClosed)
	require.NoError(t, p.Close(context.Background()), "second close is a no-op")
}

func TestPoolKeepsOrderPerKey(t *testing.T) {
	p := worker.NewPool(quietLogger(), 8, 128, 0)

	var mu sync.Mutex
	var got []int
	for i := 0; i < 100; i++ {
		i := i
		require.NoError(t, p.Submit(worker.Job{Name: "ordered", Key: "D1", Run: func(context.Context) error {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
			return nil
		}}))
	}
	require.NoError(t, p.Close(context.Background()))

	require.Len(t, got, 100)
	for i, v := range got {
		assert.Equal(t, i, v)
	}
}

func TestPoolSurvivesFailuresAndPanics(t *testing.T) {
	p := worker.NewPool(quietLogger(), 1, 8, 0)

	done := make(chan struct{})
	require.NoError(t, p.Submit(worker.Job{Name: "fails", Run: func(context.Context) error { return errors.New("boom") }}))
	require.NoError(t, p.Submit(worker.Job{Name: "panics", Run: func(context.Context) error { panic("kaboom") }}))
	require.NoError(t, p.Submit(worker.Job{Name: "after", Run: func(context.Context) error { close(done); return nil }}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker died after a failing job")
	}
	require.NoError(t, p.Close(context.Background()))
}

func TestPoolSubmitNeverBlocks(t *testing.T) {
	p := worker.NewPool(quietLogger(), 1, 1, 0)
	release := make(chan struct{})
	block := worker.Job{Name: "block", Key: "k", Run: func(context.Context) error { <-release; return nil }}

	require.NoError(t, p.Submit(block))
	// the worker may not have picked up the first job yet, so fill until refused
	var err error
	for i := 0; i < 3 && err == nil; i++ {
		err = p.Submit(block)
	}
	assert.ErrorIs(t, err, worker.ErrQueueFull)

	close(release)
	require.NoError(t, p.Close(context.Background()))
}

func TestPoolCloseTimesOut(t *testing.T) {
	p := worker.NewPool(quietLogger(), 1, 1, 0)
	started := make(chan struct{})
	require.NoError(t, p.Submit(worker.Job{Name: "slow", Run: func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}}))
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, p.Close(ctx), context.DeadlineExceeded)
}
