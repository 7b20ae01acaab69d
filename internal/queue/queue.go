// Package queue provides the background job pipeline for feedback generation.
// Transcript saves enqueue the transcript id; a worker pool consumes ids and
// runs the generator. Pending feedback rows are re-enqueued at startup, so a
// job lost to a crash is retried on the next boot.
package queue

import "context"

// Handler processes one job, identified by the transcript id.
type Handler func(ctx context.Context, transcriptID string) error

// Queue is a FIFO of transcript ids awaiting feedback generation.
type Queue interface {
	// Enqueue schedules generation for a transcript. It must not block on
	// slow consumers longer than ctx allows.
	Enqueue(ctx context.Context, transcriptID string) error

	// Consume delivers jobs to handler until ctx is cancelled or the queue
	// is closed. Handler errors are the handler's problem: the job is
	// considered delivered either way, except where the implementation
	// supports redelivery.
	Consume(ctx context.Context, handler Handler) error

	Close() error
}
