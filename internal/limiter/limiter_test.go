package limiter

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestRun_NeverExceedsCapacity(t *testing.T) {
	const capacity = 2
	const jobs = 5

	l := New(capacity)

	var running, peak int32
	var wg sync.WaitGroup
	for i := 0; i < jobs; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := l.Run(context.Background(), func() {
				n := atomic.AddInt32(&running, 1)
				for {
					p := atomic.LoadInt32(&peak)
					if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
						break
					}
				}
				time.Sleep(20 * time.Millisecond)
				atomic.AddInt32(&running, -1)
			})
			if err != nil {
				t.Errorf("run failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if peak > capacity {
		t.Errorf("observed %d concurrent executions, capacity is %d", peak, capacity)
	}
	if peak == 0 {
		t.Error("no executions observed")
	}
}

func TestRun_ReleasesSlotOnPanic(t *testing.T) {
	l := New(1)

	func() {
		defer func() { recover() }()
		_ = l.Run(context.Background(), func() {
			panic("worker fault")
		})
	}()

	// The slot must be free again.
	done := make(chan struct{})
	go func() {
		_ = l.Run(context.Background(), func() {})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("slot was not released after panic")
	}
}

func TestRun_ContextCancelledWhileWaiting(t *testing.T) {
	l := New(1)

	block := make(chan struct{})
	go func() {
		_ = l.Run(context.Background(), func() { <-block })
	}()
	time.Sleep(10 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := l.Run(ctx, func() {}); err == nil {
		t.Error("expected error when wait is cancelled")
	}
	close(block)
}
