package queue

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Worker runs a fixed pool of consumers against a queue, applying a per-job
// timeout around the handler.
type Worker struct {
	queue       Queue
	handler     Handler
	concurrency int
	jobTimeout  time.Duration
	logger      *zap.SugaredLogger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewWorker(q Queue, handler Handler, concurrency int, jobTimeout time.Duration, logger *zap.SugaredLogger) *Worker {
	if concurrency <= 0 {
		concurrency = 1
	}
	if jobTimeout <= 0 {
		jobTimeout = 90 * time.Second
	}

	return &Worker{
		queue:       q,
		handler:     handler,
		concurrency: concurrency,
		jobTimeout:  jobTimeout,
		logger:      logger,
	}
}

func (w *Worker) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			err := w.queue.Consume(ctx, w.runJob)
			if err != nil && ctx.Err() == nil {
				w.logger.Errorw("consumer stopped", "error", err)
			}
		}()
	}
}

// Stop cancels consumption and waits for in-flight jobs to finish.
func (w *Worker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}

func (w *Worker) runJob(ctx context.Context, transcriptID string) error {
	jobCtx, cancel := context.WithTimeout(ctx, w.jobTimeout)
	defer cancel()

	start := time.Now()
	err := w.handler(jobCtx, transcriptID)
	if err != nil {
		w.logger.Warnw("feedback job failed", "transcript_id", transcriptID, "elapsed", time.Since(start), "error", err)
		return err
	}

	w.logger.Infow("feedback job done", "transcript_id", transcriptID, "elapsed", time.Since(start))
	return nil
}
