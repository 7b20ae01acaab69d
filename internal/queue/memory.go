package queue

import (
	"context"
	"errors"
	"sync"
)

const defaultBuffer = 256

var errQueueClosed = errors.New("queue: closed")

// Memory is the default in-process queue. Jobs survive only as long as the
// process does; durability comes from the startup recovery sweep over pending
// feedback rows.
type Memory struct {
	jobs chan string

	mu     sync.Mutex
	closed bool
}

func NewMemory(buffer int) *Memory {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Memory{jobs: make(chan string, buffer)}
}

func (q *Memory) Enqueue(ctx context.Context, transcriptID string) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return errQueueClosed
	}
	q.mu.Unlock()

	select {
	case q.jobs <- transcriptID:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Memory) Consume(ctx context.Context, handler Handler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case id, ok := <-q.jobs:
			if !ok {
				return nil
			}
			// Handler errors are already recorded on the feedback row;
			// nothing useful to do here beyond moving on.
			_ = handler(ctx, id)
		}
	}
}

func (q *Memory) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	q.closed = true
	close(q.jobs)
	return nil
}
