package queue

import (
	"runtime"
	"testing"

	"github.com/mickelsamuel/dpdk-itch5-feedhandler/internal/event"
)

func TestNewPanicsOnNonPowerOfTwo(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for non-power-of-two capacity")
		}
	}()
	New(3)
}

func TestPushPopFIFO(t *testing.T) {
	q := New(8)
	for i := uint64(0); i < 4; i++ {
		if !q.TryPush(event.Event{OrderRef: i}) {
			t.Fatalf("push %d failed unexpectedly", i)
		}
	}
	for i := uint64(0); i < 4; i++ {
		got, ok := q.TryPop()
		if !ok {
			t.Fatalf("pop %d failed unexpectedly", i)
		}
		if got.OrderRef != i {
			t.Errorf("pop %d: got OrderRef %d, want %d", i, got.OrderRef, i)
		}
	}
	if _, ok := q.TryPop(); ok {
		t.Error("expected empty queue after draining")
	}
}

func TestFullAtCapacityMinusOne(t *testing.T) {
	q := New(4) // holds 3 elements before reporting full
	for i := 0; i < 3; i++ {
		if !q.TryPush(event.Event{OrderRef: uint64(i)}) {
			t.Fatalf("push %d should have succeeded", i)
		}
	}
	if !q.Full() {
		t.Error("expected Full() true at capacity-1 occupancy")
	}
	if q.TryPush(event.Event{}) {
		t.Error("expected TryPush to fail when full")
	}
	if q.Available() != 0 {
		t.Errorf("Available() = %d, want 0", q.Available())
	}
}

func TestPeekDoesNotAdvance(t *testing.T) {
	q := New(4)
	q.TryPush(event.Event{OrderRef: 42})
	v, ok := q.Peek()
	if !ok || v.OrderRef != 42 {
		t.Fatalf("Peek() = %+v, %v", v, ok)
	}
	v2, ok := q.Peek()
	if !ok || v2.OrderRef != 42 {
		t.Fatalf("second Peek() = %+v, %v", v2, ok)
	}
	if q.Len() != 1 {
		t.Errorf("Len() = %d after two peeks, want 1", q.Len())
	}
}

func TestCapacityAndAvailable(t *testing.T) {
	q := New(16)
	if q.Capacity() != 16 {
		t.Errorf("Capacity() = %d, want 16", q.Capacity())
	}
	if q.Available() != 15 {
		t.Errorf("Available() = %d, want 15", q.Available())
	}
	q.TryPush(event.Event{})
	if q.Available() != 14 {
		t.Errorf("Available() = %d after one push, want 14", q.Available())
	}
}

func TestBatchTransfer(t *testing.T) {
	q := New(8)
	items := make([]event.Event, 5)
	for i := range items {
		items[i].OrderRef = uint64(i)
	}
	n := q.TryPushBatch(items)
	if n != 5 {
		t.Fatalf("TryPushBatch = %d, want 5", n)
	}
	out := make([]event.Event, 10)
	n = q.TryPopBatch(out)
	if n != 5 {
		t.Fatalf("TryPopBatch = %d, want 5", n)
	}
	for i := 0; i < 5; i++ {
		if out[i].OrderRef != uint64(i) {
			t.Errorf("out[%d].OrderRef = %d, want %d", i, out[i].OrderRef, i)
		}
	}
}

// TestFIFOUnderContention pushes from one goroutine and pops from another,
// asserting every value is observed exactly once and in order.
func TestFIFOUnderContention(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping contention test in short mode")
	}
	const n = 2_000_000
	q := New(1 << 16)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for i := uint64(0); i < n; {
			if q.TryPush(event.Event{OrderRef: i}) {
				i++
			} else {
				runtime.Gosched()
			}
		}
	}()

	var next uint64
	for next < n {
		v, ok := q.TryPop()
		if !ok {
			runtime.Gosched()
			continue
		}
		if v.OrderRef != next {
			t.Fatalf("out of order: got %d, want %d", v.OrderRef, next)
		}
		next++
	}
	<-done
}

func BenchmarkPushPop(b *testing.B) {
	q := New(1024)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		q.TryPush(event.Event{OrderRef: uint64(i)})
		q.TryPop()
	}
}
