package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"restaurant-service/internal/models"
)

// LocalLocker is an in-process OrderLocker for single-instance deployments and tests
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

// NewLocalLocker creates an in-process order locker
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]chan struct{})}
}

// LockOrder waits up to wait for the order's lock. ttl is ignored in-process.
func (l *LocalLocker) LockOrder(ctx context.Context, orderID string, _ time.Duration, wait time.Duration) (func(), error) {
	timer := time.NewTimer(wait)
	defer timer.Stop()

	for {
		l.mu.Lock()
		held, busy := l.locks[orderID]
		if !busy {
			done := make(chan struct{})
			l.locks[orderID] = done
			l.mu.Unlock()

			var once sync.Once
			return func() {
				once.Do(func() {
					l.mu.Lock()
					delete(l.locks, orderID)
					l.mu.Unlock()
					close(done)
				})
			}, nil
		}
		l.mu.Unlock()

		select {
		case <-held:
		case <-timer.C:
			return nil, fmt.Errorf("order %s: %w", orderID, models.ErrConfirmationInProgress)
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
