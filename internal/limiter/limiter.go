// Package limiter bounds how many heavy render/generate operations run at
// once. One Limiter exists per deployment, constructed in cmd/server and
// injected into every worker; it is never reconstructed mid-run.
package limiter

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Limiter is a counting admission gate. Callers beyond capacity block in
// the order the semaphore queues them.
type Limiter struct {
	sem      *semaphore.Weighted
	capacity int
}

func New(capacity int) *Limiter {
	if capacity < 1 {
		capacity = 1
	}
	return &Limiter{
		sem:      semaphore.NewWeighted(int64(capacity)),
		capacity: capacity,
	}
}

// Capacity returns the configured number of slots.
func (l *Limiter) Capacity() int {
	return l.capacity
}

// Run blocks until a slot is free, runs fn, and releases the slot on every
// exit path including panics. The context only bounds the wait for a slot;
// once admitted, fn runs to completion.
func (l *Limiter) Run(ctx context.Context, fn func()) error {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer l.sem.Release(1)
	fn()
	return nil
}
