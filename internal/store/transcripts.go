package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pitchlabs/pitchcoach/internal/models"
)

type transcriptRepo struct {
	pool *pgxpool.Pool
}

func (r *transcriptRepo) Create(ctx context.Context, transcript *models.Transcript) error {
	const query = `INSERT INTO transcripts (id, user_id, role_id, scenario_id, title, content, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.pool.Exec(ctx, query,
		transcript.ID,
		transcript.UserID,
		nullable(transcript.RoleID),
		nullable(transcript.ScenarioID),
		transcript.Title,
		transcript.Content,
		transcript.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transcript: %w", err)
	}

	return nil
}

func (r *transcriptRepo) Get(ctx context.Context, id string) (*models.Transcript, error) {
	const query = `SELECT t.id, t.user_id, t.role_id, t.scenario_id, t.title, t.content, t.created_at,
			COALESCE(r.name, ''), COALESCE(s.name, '')
		FROM transcripts t
		LEFT JOIN roles r ON r.id = t.role_id
		LEFT JOIN scenarios s ON s.id = t.scenario_id
		WHERE t.id = $1`

	transcript, err := scanTranscript(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return transcript, nil
}

func (r *transcriptRepo) ListByUser(ctx context.Context, userID string) ([]models.Transcript, error) {
	const query = `SELECT t.id, t.user_id, t.role_id, t.scenario_id, t.title, t.content, t.created_at,
			COALESCE(r.name, ''), COALESCE(s.name, '')
		FROM transcripts t
		LEFT JOIN roles r ON r.id = t.role_id
		LEFT JOIN scenarios s ON s.id = t.scenario_id
		WHERE t.user_id = $1
		ORDER BY t.created_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query transcripts: %w", err)
	}
	defer rows.Close()

	transcripts := make([]models.Transcript, 0)
	for rows.Next() {
		transcript, err := scanTranscript(rows)
		if err != nil {
			return nil, err
		}
		transcripts = append(transcripts, *transcript)
	}

	return transcripts, rows.Err()
}

func scanTranscript(row pgx.Row) (*models.Transcript, error) {
	var (
		transcript models.Transcript
		roleID     *string
		scenarioID *string
	)
	if err := row.Scan(
		&transcript.ID,
		&transcript.UserID,
		&roleID,
		&scenarioID,
		&transcript.Title,
		&transcript.Content,
		&transcript.CreatedAt,
		&transcript.RoleName,
		&transcript.ScenarioName,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, pgx.ErrNoRows
		}
		return nil, fmt.Errorf("scan transcript: %w", err)
	}

	if roleID != nil {
		transcript.RoleID = *roleID
	}
	if scenarioID != nil {
		transcript.ScenarioID = *scenarioID
	}

	return &transcript, nil
}

func nullable(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
