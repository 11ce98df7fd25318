package rategen

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestGenerateProducesAndCloses(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	ch, err := Generate(ctx, 2, 1000, 10, 5, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}

	var got []int
	for v := range ch.All(ctx) {
		got = append(got, v)
	}
	if len(got) != 5 {
		t.Fatalf("expected 5 values, got %v", got)
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("expected %d at position %d, got %d", i, i, v)
		}
	}
}

func TestGenerateStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ch, err := Generate(ctx, 0, 1, 1, 1000, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}

	// Let the producer take its burst token and park on the unbuffered
	// send (nothing receives yet), then cancel.
	time.Sleep(10 * time.Millisecond)
	cancel()

	drainCtx, drainCancel := context.WithTimeout(context.Background(), time.Second)
	defer drainCancel()
	for {
		m := ch.Receive(drainCtx)
		if !m.Ok() {
			if drainCtx.Err() != nil {
				t.Fatal("producer never closed its channel after cancellation")
			}
			return
		}
	}
}
