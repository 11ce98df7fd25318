package csp

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func ctxTimeout(t *testing.T, d time.Duration) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	t.Cleanup(cancel)
	return ctx
}

func TestInvalidCapacity(t *testing.T) {
	_, err := NewChannel[int](-1)
	if !errors.Is(err, ErrInvalidCapacity) {
		t.Fatalf("expected ErrInvalidCapacity, got %v", err)
	}
}

// An unbuffered send blocks at least until a receiver appears.
func TestUnbufferedHandoff(t *testing.T) {
	ch, err := NewChannel[int](0)
	if err != nil {
		t.Fatal(err)
	}

	var got Maybe[int]
	done := make(chan struct{})
	go func() {
		defer close(done)
		time.Sleep(100 * time.Millisecond)
		got = ch.Receive(ctxTimeout(t, time.Second))
	}()

	start := time.Now()
	if err := ch.Send(ctxTimeout(t, time.Second), 7); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	elapsed := time.Since(start)
	<-done

	if elapsed < 90*time.Millisecond {
		t.Errorf("send returned too early: %v", elapsed)
	}
	v, ok := got.Get()
	if !ok || v != 7 {
		t.Errorf("expected Some(7), got (%v, %v)", v, ok)
	}
}

// A full buffer rejects TrySend until drained.
func TestBufferedOverflow(t *testing.T) {
	ch, err := NewChannel[bool](1)
	if err != nil {
		t.Fatal(err)
	}

	if !ch.TrySend(true) {
		t.Fatal("expected first try_send to succeed")
	}
	if ch.TrySend(true) {
		t.Fatal("expected second try_send to fail (full)")
	}

	m := ch.Receive(ctxTimeout(t, time.Second))
	if v, ok := m.Get(); !ok || v != true {
		t.Fatalf("expected Some(true), got (%v, %v)", v, ok)
	}

	if !ch.TrySend(true) {
		t.Fatal("expected try_send to succeed after drain")
	}
}

// Close drains buffered values then returns None forever.
func TestCloseDrainsThenNones(t *testing.T) {
	ch, err := NewChannel[int](2)
	if err != nil {
		t.Fatal(err)
	}
	ctx := ctxTimeout(t, time.Second)

	if err := ch.Send(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if err := ch.Send(ctx, 2); err != nil {
		t.Fatal(err)
	}
	ch.Close()

	for _, want := range []int{1, 2} {
		m := ch.Receive(ctx)
		v, ok := m.Get()
		if !ok || v != want {
			t.Fatalf("expected Some(%d), got (%v, %v)", want, v, ok)
		}
	}
	m := ch.Receive(ctx)
	if _, ok := m.Get(); ok {
		t.Fatal("expected None after drain")
	}
	// and again, forever
	m = ch.Receive(ctx)
	if _, ok := m.Get(); ok {
		t.Fatal("expected None on repeated receive")
	}
}

func TestSendOnClosedFails(t *testing.T) {
	ch, _ := NewChannel[int](1)
	ch.Close()

	if err := ch.Send(ctxTimeout(t, time.Second), 1); !errors.Is(err, ErrClosedChannel) {
		t.Fatalf("expected ErrClosedChannel, got %v", err)
	}
	if ch.TrySend(1) {
		t.Fatal("expected TrySend on closed channel to return false")
	}
}

func TestCloseIdempotent(t *testing.T) {
	ch, _ := NewChannel[int](0)
	ch.Close()
	ch.Close() // must not panic or block
}

func TestReceiveOnClosedEmptyNeverBlocks(t *testing.T) {
	ch, _ := NewChannel[int](0)
	ch.Close()
	ctx := ctxTimeout(t, 50*time.Millisecond)
	m := ch.Receive(ctx)
	if _, ok := m.Get(); ok {
		t.Fatal("expected None")
	}
	if ctx.Err() != nil {
		t.Fatal("receive on closed, empty channel should not have blocked until timeout")
	}
}

func TestTryReceiveWouldBlock(t *testing.T) {
	ch, _ := NewChannel[int](0)
	m := ch.TryReceive()
	if _, ok := m.Get(); ok {
		t.Fatal("expected no value")
	}
}

// Buffered send does not block while capacity remains, blocks once full,
// and unblocks as receive frees a slot.
func TestBufferedSendBlocksWhenFull(t *testing.T) {
	ch, _ := NewChannel[int](1)
	ctx := ctxTimeout(t, time.Second)
	if err := ch.Send(ctx, 1); err != nil {
		t.Fatal(err)
	}

	sendDone := make(chan error, 1)
	go func() {
		sendDone <- ch.Send(ctx, 2)
	}()

	select {
	case <-sendDone:
		t.Fatal("second send should have blocked on a full buffer")
	case <-time.After(50 * time.Millisecond):
	}

	if m := ch.Receive(ctx); m.Ok() {
		// drains the first value, freeing a slot for the blocked sender
	}

	select {
	case err := <-sendDone:
		if err != nil {
			t.Fatalf("blocked send failed: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("blocked send never unblocked")
	}
}

// FIFO ordering within a single channel, single sender.
func TestFIFOOrdering(t *testing.T) {
	ch, _ := NewChannel[int](0)
	ctx := ctxTimeout(t, time.Second)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 10; i++ {
			if err := ch.Send(ctx, i); err != nil {
				t.Error(err)
				return
			}
		}
		ch.Close()
	}()

	i := 0
	for {
		m := ch.Receive(ctx)
		v, ok := m.Get()
		if !ok {
			break
		}
		if v != i {
			t.Fatalf("out of order: expected %d, got %d", i, v)
		}
		i++
	}
	wg.Wait()
	if i != 10 {
		t.Fatalf("expected 10 values, got %d", i)
	}
}

func TestAllIterator(t *testing.T) {
	ch, _ := NewChannel[int](3)
	ctx := ctxTimeout(t, time.Second)
	for i := 0; i < 3; i++ {
		if err := ch.Send(ctx, i); err != nil {
			t.Fatal(err)
		}
	}
	ch.Close()

	var got []int
	for v := range ch.All(ctx) {
		got = append(got, v)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 values, got %v", got)
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("expected %d at position %d, got %d", i, i, v)
		}
	}
}

func TestAfter(t *testing.T) {
	ch := After(50 * time.Millisecond)
	start := time.Now()
	m := ch.Receive(ctxTimeout(t, time.Second))
	if !m.Ok() {
		t.Fatal("expected a timestamp")
	}
	if time.Since(start) < 40*time.Millisecond {
		t.Error("After fired too early")
	}
	// safe to receive again: closed, drained
	if ch.Receive(ctxTimeout(t, time.Second)).Ok() {
		t.Fatal("expected channel to be closed after firing")
	}
}
