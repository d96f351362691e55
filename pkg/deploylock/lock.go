// Package deploylock serializes deploy and retrieve operations behind a
// single process-wide queue.
package deploylock

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/fulmenhq/metaguard/pkg/logger"
)

// ErrNotHeld is returned by Release when the queue is not locked.
var ErrNotHeld = errors.New("deploy queue is not locked")

// Queue is a mutual-exclusion lock over deploy operations. Unlock is
// idempotent so every cancellation path may release it.
type Queue struct {
	sem    *semaphore.Weighted
	mu     sync.Mutex
	holder string
}

// NewQueue creates an unlocked queue.
func NewQueue() *Queue {
	return &Queue{sem: semaphore.NewWeighted(1)}
}

// Lock waits for the queue and returns a token identifying the holder.
func (q *Queue) Lock(ctx context.Context) (string, error) {
	if err := q.sem.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("acquire deploy queue: %w", err)
	}
	token := uuid.NewString()
	q.mu.Lock()
	q.holder = token
	q.mu.Unlock()
	logger.Debug("Deploy queue locked", logger.String("holder", token))
	return token, nil
}

// TryLock acquires the queue without waiting.
func (q *Queue) TryLock() (string, bool) {
	if !q.sem.TryAcquire(1) {
		return "", false
	}
	token := uuid.NewString()
	q.mu.Lock()
	q.holder = token
	q.mu.Unlock()
	return token, true
}

// Unlock releases the queue. Unlocking an unlocked queue is a no-op.
func (q *Queue) Unlock(ctx context.Context) error {
	err := q.Release()
	if errors.Is(err, ErrNotHeld) {
		return nil
	}
	return err
}

// Release releases the queue, reporting ErrNotHeld when it was not locked.
func (q *Queue) Release() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.holder == "" {
		return ErrNotHeld
	}
	logger.Debug("Deploy queue unlocked", logger.String("holder", q.holder))
	q.holder = ""
	q.sem.Release(1)
	return nil
}

// Held reports whether the queue is currently locked.
func (q *Queue) Held() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.holder != ""
}

// Holder returns the token of the current holder, or "".
func (q *Queue) Holder() string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.holder
}
