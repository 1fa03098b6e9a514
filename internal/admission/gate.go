package admission

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"scraibe/internal/services"
)

// ErrAdmissionStall reports that no permit became free within the configured wait.
var ErrAdmissionStall = errors.New("admission stalled")

// Gate is a fixed-capacity permit pool shared by all workers.
type Gate struct {
	sem      *semaphore.Weighted
	capacity int
	timeout  time.Duration

	inUse   atomic.Int64
	waiting atomic.Int64
}

// New creates a gate admitting at most capacity concurrent holders. A positive
// timeout bounds each Acquire; zero waits indefinitely.
func New(capacity int, timeout time.Duration) (*Gate, error) {
	if capacity <= 0 {
		return nil, services.Wrap(services.ErrConfiguration, "admission", "new gate",
			fmt.Sprintf("capacity must be positive, got %d", capacity), nil)
	}
	if timeout < 0 {
		timeout = 0
	}
	return &Gate{
		sem:      semaphore.NewWeighted(int64(capacity)),
		capacity: capacity,
		timeout:  timeout,
	}, nil
}

// Acquire blocks until a permit is free and returns the slot holding it.
// The error wraps ErrAdmissionStall when the bounded wait elapsed, or the
// context error when ctx ended first.
func (g *Gate) Acquire(ctx context.Context) (*Slot, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	waitCtx := ctx
	if g.timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	g.waiting.Add(1)
	err := g.sem.Acquire(waitCtx, 1)
	g.waiting.Add(-1)
	if err != nil {
		if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			return nil, services.Wrap(services.ErrTimeout, "admission", "acquire slot",
				fmt.Sprintf("no worker slot freed within %s", g.timeout), ErrAdmissionStall)
		}
		return nil, err
	}
	g.inUse.Add(1)
	return &Slot{gate: g, acquiredAt: time.Now()}, nil
}

// TryAcquire takes a permit without waiting. It returns false when all
// permits are held.
func (g *Gate) TryAcquire() (*Slot, bool) {
	if !g.sem.TryAcquire(1) {
		return nil, false
	}
	g.inUse.Add(1)
	return &Slot{gate: g, acquiredAt: time.Now()}, true
}

// Capacity returns the number of permits the gate was built with.
func (g *Gate) Capacity() int { return g.capacity }

// InUse returns the number of permits currently held.
func (g *Gate) InUse() int { return int(g.inUse.Load()) }

// Waiting returns the number of callers blocked in Acquire.
func (g *Gate) Waiting() int { return int(g.waiting.Load()) }

// Timeout returns the bounded wait, or zero for unbounded admission.
func (g *Gate) Timeout() time.Duration { return g.timeout }

func (g *Gate) release() {
	g.inUse.Add(-1)
	g.sem.Release(1)
}

// Slot is a held permit. Release returns it to the gate exactly once.
type Slot struct {
	gate       *Gate
	acquiredAt time.Time
	once       sync.Once
}

// Release returns the permit. Further calls are no-ops and never block.
func (s *Slot) Release() {
	if s == nil || s.gate == nil {
		return
	}
	s.once.Do(s.gate.release)
}

// Held reports how long the slot has been held.
func (s *Slot) Held() time.Duration {
	if s == nil {
		return 0
	}
	return time.Since(s.acquiredAt)
}
