package queue

import (
	"context"
	"testing"
	"time"
)

func TestMemoryQueueDeliversInOrder(t *testing.T) {
	q := NewMemory(4)
	defer q.Close()

	ctx := context.Background()
	for _, id := range []string{"t1", "t2", "t3"} {
		if err := q.Enqueue(ctx, id); err != nil {
			t.Fatalf("enqueue %s: %v", id, err)
		}
	}

	received := make([]string, 0, 3)
	consumeCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		_ = q.Consume(consumeCtx, func(ctx context.Context, transcriptID string) error {
			received = append(received, transcriptID)
			if len(received) == 3 {
				cancel()
			}
			return nil
		})
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("consumer did not finish, received %v", received)
	}

	if len(received) != 3 || received[0] != "t1" || received[1] != "t2" || received[2] != "t3" {
		t.Fatalf("unexpected delivery order: %v", received)
	}
}

func TestMemoryQueueEnqueueAfterCloseFails(t *testing.T) {
	q := NewMemory(1)
	if err := q.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if err := q.Enqueue(context.Background(), "t1"); err == nil {
		t.Fatalf("expected enqueue on closed queue to fail")
	}

	// Close is idempotent.
	if err := q.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestMemoryQueueConsumeStopsOnClose(t *testing.T) {
	q := NewMemory(1)

	done := make(chan error, 1)
	go func() {
		done <- q.Consume(context.Background(), func(ctx context.Context, transcriptID string) error {
			return nil
		})
	}()

	q.Close()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected clean stop, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("consumer did not stop after close")
	}
}
