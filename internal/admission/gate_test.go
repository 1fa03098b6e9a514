package admission

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"scraibe/internal/services"
)

func TestNewRejectsNonPositiveCapacity(t *testing.T) {
	for _, n := range []int{0, -1} {
		if _, err := New(n, 0); !errors.Is(err, services.ErrConfiguration) {
			t.Fatalf("New(%d) error = %v, want configuration error", n, err)
		}
	}
}

func TestGateBoundsConcurrentHolders(t *testing.T) {
	const capacity = 3
	gate, err := New(capacity, 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var current, peak atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			slot, err := gate.Acquire(context.Background())
			if err != nil {
				t.Errorf("Acquire: %v", err)
				return
			}
			defer slot.Release()
			n := current.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			current.Add(-1)
		}()
	}
	wg.Wait()

	if got := peak.Load(); got > capacity {
		t.Fatalf("peak holders = %d, capacity %d", got, capacity)
	}
	if gate.InUse() != 0 {
		t.Fatalf("expected all permits returned, in use = %d", gate.InUse())
	}
}

func TestSlotReleaseIsIdempotent(t *testing.T) {
	gate, err := New(1, 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	slot, err := gate.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	slot.Release()
	slot.Release()
	if gate.InUse() != 0 {
		t.Fatalf("in use = %d after double release", gate.InUse())
	}

	first, ok := gate.TryAcquire()
	if !ok {
		t.Fatal("expected permit to be available")
	}
	if _, ok := gate.TryAcquire(); ok {
		t.Fatal("double release must not create an extra permit")
	}
	first.Release()
}

func TestAcquireStallsWhenTimeoutConfigured(t *testing.T) {
	gate, err := New(1, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	held, ok := gate.TryAcquire()
	if !ok {
		t.Fatal("expected free permit")
	}
	defer held.Release()

	_, err = gate.Acquire(context.Background())
	if !errors.Is(err, ErrAdmissionStall) {
		t.Fatalf("Acquire error = %v, want ErrAdmissionStall", err)
	}
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout marker, got %v", err)
	}
	if gate.Waiting() != 0 {
		t.Fatalf("waiting = %d after stall", gate.Waiting())
	}
}

func TestAcquireHonoursContextCancellation(t *testing.T) {
	gate, err := New(1, time.Minute)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	held, _ := gate.TryAcquire()
	defer held.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = gate.Acquire(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Acquire error = %v, want context.Canceled", err)
	}
	if errors.Is(err, ErrAdmissionStall) {
		t.Fatal("cancellation must not be reported as a stall")
	}
}

func TestUnboundedAcquireWaitsForRelease(t *testing.T) {
	gate, err := New(1, 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	held, _ := gate.TryAcquire()

	acquired := make(chan struct{})
	go func() {
		slot, err := gate.Acquire(context.Background())
		if err != nil {
			t.Errorf("Acquire: %v", err)
			close(acquired)
			return
		}
		slot.Release()
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("Acquire returned while the only permit was held")
	case <-time.After(30 * time.Millisecond):
	}
	held.Release()
	select {
	case <-acquired:
	case <-time.After(2 * time.Second):
		t.Fatal("Acquire did not proceed after release")
	}
}
