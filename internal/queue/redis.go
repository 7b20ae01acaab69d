package queue

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	streamField  = "transcript_id"
	streamMaxLen = 10000
)

// Redis is a Redis Streams backed queue. Jobs are delivered through a
// consumer group, acknowledged on success and reclaimed after claimIdle when
// a consumer dies mid-job. After maxRetries failed deliveries a job is
// dropped from the stream; its feedback row stays pending and is picked up by
// the next recovery sweep.
type Redis struct {
	client     *redis.Client
	stream     string
	group      string
	consumer   string
	block      time.Duration
	claimIdle  time.Duration
	maxRetries int64
	logger     *zap.SugaredLogger
}

type RedisOptions struct {
	Addr       string
	Password   string
	Stream     string
	Group      string
	Block      time.Duration
	ClaimIdle  time.Duration
	MaxRetries int64
}

func NewRedis(opts RedisOptions, logger *zap.SugaredLogger) (*Redis, error) {
	addr := strings.TrimSpace(opts.Addr)
	if addr == "" {
		return nil, errors.New("queue: redis addr required")
	}
	stream := strings.TrimSpace(opts.Stream)
	if stream == "" {
		stream = "feedback:jobs"
	}
	group := strings.TrimSpace(opts.Group)
	if group == "" {
		group = "feedback-workers"
	}
	block := opts.Block
	if block <= 0 {
		block = 5 * time.Second
	}
	claimIdle := opts.ClaimIdle
	if claimIdle <= 0 {
		claimIdle = 30 * time.Second
	}
	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	return &Redis{
		client:     redis.NewClient(&redis.Options{Addr: addr, Password: opts.Password}),
		stream:     stream,
		group:      group,
		consumer:   uuid.NewString(),
		block:      block,
		claimIdle:  claimIdle,
		maxRetries: maxRetries,
		logger:     logger,
	}, nil
}

func (q *Redis) Enqueue(ctx context.Context, transcriptID string) error {
	return q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: q.stream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]interface{}{streamField: transcriptID},
	}).Err()
}

func (q *Redis) Consume(ctx context.Context, handler Handler) error {
	if err := q.ensureGroup(ctx); err != nil {
		return err
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		claimed, _, err := q.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   q.stream,
			Group:    q.group,
			Consumer: q.consumer,
			MinIdle:  q.claimIdle,
			Start:    "0",
			Count:    10,
		}).Result()
		if err != nil && !errors.Is(err, redis.Nil) && ctx.Err() == nil {
			q.logger.Warnw("reclaim stale jobs failed", "error", err)
		}
		for _, msg := range claimed {
			q.process(ctx, msg, handler)
		}

		streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    q.group,
			Consumer: q.consumer,
			Streams:  []string{q.stream, ">"},
			Count:    10,
			Block:    q.block,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			q.logger.Warnw("read job stream failed", "error", err)
			time.Sleep(time.Second)
			continue
		}

		for _, stream := range streams {
			for _, msg := range stream.Messages {
				q.process(ctx, msg, handler)
			}
		}
	}
}

func (q *Redis) Close() error {
	return q.client.Close()
}

func (q *Redis) ensureGroup(ctx context.Context) error {
	err := q.client.XGroupCreateMkStream(ctx, q.stream, q.group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return err
	}
	return nil
}

func (q *Redis) process(ctx context.Context, msg redis.XMessage, handler Handler) {
	id, _ := msg.Values[streamField].(string)
	if id == "" {
		q.ack(ctx, msg.ID)
		return
	}

	if err := handler(ctx, id); err != nil {
		if q.deliveryCount(ctx, msg.ID) >= q.maxRetries {
			q.logger.Warnw("dropping job after max retries", "transcript_id", id)
			q.ack(ctx, msg.ID)
		}
		// otherwise leave the entry pending so it is reclaimed after claimIdle
		return
	}

	q.ack(ctx, msg.ID)
}

func (q *Redis) ack(ctx context.Context, msgID string) {
	if err := q.client.XAck(ctx, q.stream, q.group, msgID).Err(); err != nil && ctx.Err() == nil {
		q.logger.Warnw("ack job failed", "message_id", msgID, "error", err)
	}
}

func (q *Redis) deliveryCount(ctx context.Context, msgID string) int64 {
	pending, err := q.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: q.stream,
		Group:  q.group,
		Start:  msgID,
		End:    msgID,
		Count:  1,
	}).Result()
	if err != nil || len(pending) == 0 {
		return 0
	}
	return pending[0].RetryCount
}
