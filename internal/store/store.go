package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pitchlabs/pitchcoach/internal/models"
)

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrDuplicate is returned when an insert violates a unique constraint.
	ErrDuplicate = errors.New("store: duplicate")
)

// Users persists application users.
type Users interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Count(ctx context.Context) (int64, error)
}

// Reference reads and seeds the shared role/scenario catalog.
type Reference interface {
	ListRoles(ctx context.Context) ([]models.Role, error)
	GetRole(ctx context.Context, id string) (*models.Role, error)
	CreateRole(ctx context.Context, role *models.Role) (bool, error)
	ListScenarios(ctx context.Context) ([]models.Scenario, error)
	GetScenario(ctx context.Context, id string) (*models.Scenario, error)
	CreateScenario(ctx context.Context, scenario *models.Scenario) (bool, error)
}

// Transcripts persists immutable conversation transcripts.
type Transcripts interface {
	Create(ctx context.Context, transcript *models.Transcript) error
	Get(ctx context.Context, id string) (*models.Transcript, error)
	ListByUser(ctx context.Context, userID string) ([]models.Transcript, error)
}

// FeedbackStore persists the one-to-one feedback rows. Create is idempotent
// per transcript; the Mark transitions only apply to rows still pending so a
// terminal state is never overwritten.
type FeedbackStore interface {
	Create(ctx context.Context, feedback *models.Feedback) (bool, error)
	GetByTranscript(ctx context.Context, transcriptID string) (*models.Feedback, error)
	MarkCompleted(ctx context.Context, transcriptID, content string) error
	MarkFailed(ctx context.Context, transcriptID, content, errorDetail string) error
	ListPendingTranscriptIDs(ctx context.Context) ([]string, error)
}

// Store bundles the pgx-backed repositories sharing one pool.
type Store struct {
	Users       Users
	Reference   Reference
	Transcripts Transcripts
	Feedback    FeedbackStore
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{
		Users:       &userRepo{pool: pool},
		Reference:   &referenceRepo{pool: pool},
		Transcripts: &transcriptRepo{pool: pool},
		Feedback:    &feedbackRepo{pool: pool},
	}
}
