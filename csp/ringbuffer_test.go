package csp

import "testing"

func TestRingBufferZeroCapacityAlwaysFullAndEmpty(t *testing.T) {
	r := newRingBuffer[int](0)
	if !r.empty() {
		t.Fatal("expected zero-capacity buffer to be empty")
	}
	if !r.full() {
		t.Fatal("expected zero-capacity buffer to be full")
	}
	if r.len() != 0 {
		t.Fatalf("expected len 0, got %d", r.len())
	}
}

func TestRingBufferFIFOWrap(t *testing.T) {
	r := newRingBuffer[int](3)
	for i := 0; i < 3; i++ {
		if r.full() {
			t.Fatalf("unexpectedly full at i=%d", i)
		}
		r.enqueue(i)
	}
	if !r.full() {
		t.Fatal("expected full after 3 enqueues into capacity-3 buffer")
	}
	if r.len() != 3 {
		t.Fatalf("expected len 3, got %d", r.len())
	}

	for i := 0; i < 2; i++ {
		v := r.dequeue()
		if v != i {
			t.Fatalf("expected %d, got %d", i, v)
		}
	}
	r.enqueue(10)
	r.enqueue(11)
	if !r.full() {
		t.Fatal("expected full after refilling wrapped slots")
	}

	want := []int{2, 10, 11}
	for _, w := range want {
		v := r.dequeue()
		if v != w {
			t.Fatalf("expected %d, got %d", w, v)
		}
	}
	if !r.empty() {
		t.Fatal("expected empty after draining everything")
	}
}
