package queue

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func newTestRedisQueue(t *testing.T) (*Redis, context.Context) {
	t.Helper()

	srv := miniredis.RunT(t)
	q, err := NewRedis(RedisOptions{
		Addr:       srv.Addr(),
		Stream:     "test:feedback",
		Group:      "test-group",
		MaxRetries: 2,
	}, zap.NewNop().Sugar())
	if err != nil {
		t.Fatalf("new redis queue: %v", err)
	}
	t.Cleanup(func() { q.Close() })

	ctx := context.Background()
	if err := q.ensureGroup(ctx); err != nil {
		t.Fatalf("ensure group: %v", err)
	}

	return q, ctx
}

func readOne(t *testing.T, q *Redis, ctx context.Context) redis.XMessage {
	t.Helper()

	streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    q.group,
		Consumer: q.consumer,
		Streams:  []string{q.stream, ">"},
		Count:    1,
		Block:    0,
	}).Result()
	if err != nil {
		t.Fatalf("read group: %v", err)
	}
	if len(streams) != 1 || len(streams[0].Messages) != 1 {
		t.Fatalf("expected one message, got %+v", streams)
	}
	return streams[0].Messages[0]
}

func TestRedisQueueEnqueueAndProcessAcks(t *testing.T) {
	q, ctx := newTestRedisQueue(t)

	if err := q.Enqueue(ctx, "transcript-1"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	msg := readOne(t, q, ctx)

	var handled string
	q.process(ctx, msg, func(ctx context.Context, transcriptID string) error {
		handled = transcriptID
		return nil
	})

	if handled != "transcript-1" {
		t.Fatalf("expected handler to receive transcript-1, got %q", handled)
	}

	pending, err := q.client.XPending(ctx, q.stream, q.group).Result()
	if err != nil {
		t.Fatalf("xpending: %v", err)
	}
	if pending.Count != 0 {
		t.Fatalf("expected no pending entries after ack, got %d", pending.Count)
	}
}

func TestRedisQueueFailedJobStaysPending(t *testing.T) {
	q, ctx := newTestRedisQueue(t)

	if err := q.Enqueue(ctx, "transcript-2"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	msg := readOne(t, q, ctx)

	q.process(ctx, msg, func(ctx context.Context, transcriptID string) error {
		return errors.New("generation blew up")
	})

	pending, err := q.client.XPending(ctx, q.stream, q.group).Result()
	if err != nil {
		t.Fatalf("xpending: %v", err)
	}
	if pending.Count != 1 {
		t.Fatalf("expected failed job to stay pending for reclaim, got %d", pending.Count)
	}
}

func TestRedisQueueMalformedMessageIsDropped(t *testing.T) {
	q, ctx := newTestRedisQueue(t)

	if err := q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: q.stream,
		Values: map[string]interface{}{"bogus": "value"},
	}).Err(); err != nil {
		t.Fatalf("xadd: %v", err)
	}

	msg := readOne(t, q, ctx)

	called := false
	q.process(ctx, msg, func(ctx context.Context, transcriptID string) error {
		called = true
		return nil
	})

	if called {
		t.Fatalf("handler should not run for a message without a transcript id")
	}

	pending, err := q.client.XPending(ctx, q.stream, q.group).Result()
	if err != nil {
		t.Fatalf("xpending: %v", err)
	}
	if pending.Count != 0 {
		t.Fatalf("expected malformed message to be acked away, got %d pending", pending.Count)
	}
}
