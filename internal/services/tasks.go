package services

import (
	"context"
	"sync"
	"time"

	"shuttle/internal/utils"
)

const DefaultRemoteTimeout = 10 * time.Second

// Tasks runs fire-and-forget work with a bounded timeout and lets shutdown wait for it.
type Tasks struct {
	wg      sync.WaitGroup
	Timeout time.Duration
}

func NewTasks(timeout time.Duration) *Tasks {
	if timeout <= 0 {
		timeout = DefaultRemoteTimeout
	}
	return &Tasks{Timeout: timeout}
}

// Go runs fn in the background with its own context, detached from the request
// but carrying its request id.
func (t *Tasks) Go(requestID string, fn func(ctx context.Context)) {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		ctx, cancel := context.WithTimeout(utils.WithRequestID(context.Background(), requestID), t.Timeout)
		defer cancel()
		fn(ctx)
	}()
}

// Drain waits for running tasks or until ctx is done.
func (t *Tasks) Drain(ctx context.Context) error {
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
