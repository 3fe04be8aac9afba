package session

import (
	"context"
	"sync"
)

// tracker counts running sessions so shutdown can wait for their teardown.
type tracker struct {
	wg sync.WaitGroup
}

func (t *tracker) track(run func()) {
	t.wg.Add(1)
	defer t.wg.Done()
	run()
}

// Wait blocks until every session has torn down or ctx ends.
func (t *tracker) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
