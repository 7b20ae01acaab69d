package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pitchlabs/pitchcoach/internal/models"
)

type feedbackRepo struct {
	pool *pgxpool.Pool
}

// Create inserts a feedback row for a transcript. The unique constraint on
// transcript_id makes concurrent lazy backfills converge on a single row; the
// second writer simply observes created == false.
func (r *feedbackRepo) Create(ctx context.Context, feedback *models.Feedback) (bool, error) {
	const query = `INSERT INTO feedback (id, transcript_id, content, status, error_detail, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (transcript_id) DO NOTHING`

	tag, err := r.pool.Exec(ctx, query,
		feedback.ID,
		feedback.TranscriptID,
		feedback.Content,
		feedback.Status,
		feedback.ErrorDetail,
		feedback.CreatedAt,
		feedback.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert feedback: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

func (r *feedbackRepo) GetByTranscript(ctx context.Context, transcriptID string) (*models.Feedback, error) {
	const query = `SELECT id, transcript_id, content, status, error_detail, created_at, updated_at
		FROM feedback WHERE transcript_id = $1`

	var feedback models.Feedback
	if err := r.pool.QueryRow(ctx, query, transcriptID).Scan(
		&feedback.ID,
		&feedback.TranscriptID,
		&feedback.Content,
		&feedback.Status,
		&feedback.ErrorDetail,
		&feedback.CreatedAt,
		&feedback.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query feedback: %w", err)
	}

	return &feedback, nil
}

// MarkCompleted transitions a pending row to completed. Rows already in a
// terminal state are left untouched.
func (r *feedbackRepo) MarkCompleted(ctx context.Context, transcriptID, content string) error {
	const query = `UPDATE feedback SET content = $1, status = $2, error_detail = '', updated_at = $3
		WHERE transcript_id = $4 AND status = $5`

	_, err := r.pool.Exec(ctx, query, content, models.FeedbackCompleted, time.Now().UTC(), transcriptID, models.FeedbackPending)
	if err != nil {
		return fmt.Errorf("mark feedback completed: %w", err)
	}

	return nil
}

func (r *feedbackRepo) MarkFailed(ctx context.Context, transcriptID, content, errorDetail string) error {
	const query = `UPDATE feedback SET content = $1, status = $2, error_detail = $3, updated_at = $4
		WHERE transcript_id = $5 AND status = $6`

	_, err := r.pool.Exec(ctx, query, content, models.FeedbackFailed, errorDetail, time.Now().UTC(), transcriptID, models.FeedbackPending)
	if err != nil {
		return fmt.Errorf("mark feedback failed: %w", err)
	}

	return nil
}

// ListPendingTranscriptIDs returns the transcripts whose feedback is still
// pending. The worker replays these at startup so generations lost to a crash
// are retried.
func (r *feedbackRepo) ListPendingTranscriptIDs(ctx context.Context) ([]string, error) {
	const query = `SELECT transcript_id FROM feedback WHERE status = $1 ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, models.FeedbackPending)
	if err != nil {
		return nil, fmt.Errorf("query pending feedback: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan pending feedback: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}
