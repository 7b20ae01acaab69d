package transcripts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pitchlabs/pitchcoach/internal/models"
	"github.com/pitchlabs/pitchcoach/internal/queue"
	"github.com/pitchlabs/pitchcoach/internal/store"
)

// DefaultTitle is assigned when a transcript is saved without one.
const DefaultTitle = "Conversation"

var (
	ErrContentRequired = errors.New("transcripts: content is required")
	ErrUserRequired    = errors.New("transcripts: userId is required")
	ErrUserNotFound    = errors.New("transcripts: user not found")
	ErrNotFound        = errors.New("transcripts: transcript not found")
)

type CreateInput struct {
	Content    string
	UserID     string
	RoleID     string
	ScenarioID string
	Title      string
}

type CreateResult struct {
	ID        string
	Title     string
	CreatedAt time.Time
}

// View is a transcript together with its feedback, as served to the client.
// Feedback is always populated; when no row could be created a synthetic
// failed stub stands in.
type View struct {
	Transcript models.Transcript
	Feedback   models.Feedback
}

// Service owns the transcript lifecycle: saving transcripts, attaching
// pending feedback rows, and scheduling generation on the queue.
type Service struct {
	users       store.Users
	transcripts store.Transcripts
	feedback    store.FeedbackStore
	queue       queue.Queue
	logger      *zap.SugaredLogger
}

func NewService(st *store.Store, q queue.Queue, logger *zap.SugaredLogger) *Service {
	return &Service{
		users:       st.Users,
		transcripts: st.Transcripts,
		feedback:    st.Feedback,
		queue:       q,
		logger:      logger,
	}
}

// Create persists a transcript and schedules feedback generation. The
// transcript insert is authoritative: a failure to create the feedback row or
// to enqueue the job is logged and absorbed, and the lazy backfill in Get
// heals the gap on the next read.
func (s *Service) Create(ctx context.Context, input CreateInput) (*CreateResult, error) {
	if strings.TrimSpace(input.Content) == "" {
		return nil, ErrContentRequired
	}
	if strings.TrimSpace(input.UserID) == "" {
		return nil, ErrUserRequired
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		title = DefaultTitle
	}

	transcript := &models.Transcript{
		ID:         uuid.NewString(),
		UserID:     strings.TrimSpace(input.UserID),
		RoleID:     strings.TrimSpace(input.RoleID),
		ScenarioID: strings.TrimSpace(input.ScenarioID),
		Title:      title,
		Content:    input.Content,
		CreatedAt:  time.Now().UTC(),
	}

	if err := s.transcripts.Create(ctx, transcript); err != nil {
		return nil, fmt.Errorf("save transcript: %w", err)
	}

	s.scheduleFeedback(ctx, transcript.ID)

	return &CreateResult{ID: transcript.ID, Title: transcript.Title, CreatedAt: transcript.CreatedAt}, nil
}

// ListByUser returns the user's transcripts newest-first, with role and
// scenario names denormalized where the reference rows still exist.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]models.Transcript, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	list, err := s.transcripts.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list transcripts: %w", err)
	}

	return list, nil
}

// Get returns one transcript with its feedback. Ownership is checked before
// any enrichment; a transcript belonging to another user reads as not found.
func (s *Service) Get(ctx context.Context, transcriptID, userID string) (*View, error) {
	transcript, err := s.transcripts.Get(ctx, transcriptID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load transcript: %w", err)
	}

	if transcript.UserID != userID {
		return nil, ErrNotFound
	}

	fb, err := s.feedback.GetByTranscript(ctx, transcriptID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("load feedback: %w", err)
		}
		fb = s.backfillFeedback(ctx, transcriptID)
	}

	return &View{Transcript: *transcript, Feedback: *fb}, nil
}

// RequeuePending re-enqueues every feedback row still pending. Run once at
// startup so generations lost to a crash are retried.
func (s *Service) RequeuePending(ctx context.Context) (int, error) {
	ids, err := s.feedback.ListPendingTranscriptIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list pending feedback: %w", err)
	}

	requeued := 0
	for _, id := range ids {
		if err := s.queue.Enqueue(ctx, id); err != nil {
			s.logger.Warnw("requeue pending feedback failed", "transcript_id", id, "error", err)
			continue
		}
		requeued++
	}

	return requeued, nil
}

// scheduleFeedback creates the pending row and enqueues generation.
// Best-effort on purpose: the transcript save must never fail because of it.
func (s *Service) scheduleFeedback(ctx context.Context, transcriptID string) {
	now := time.Now().UTC()
	created, err := s.feedback.Create(ctx, &models.Feedback{
		ID:           uuid.NewString(),
		TranscriptID: transcriptID,
		Content:      models.PlaceholderFeedback,
		Status:       models.FeedbackPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		s.logger.Warnw("create feedback row failed", "transcript_id", transcriptID, "error", err)
		return
	}
	if !created {
		// A row already exists; generation was scheduled when it was created.
		return
	}

	if err := s.queue.Enqueue(ctx, transcriptID); err != nil {
		s.logger.Warnw("enqueue feedback generation failed", "transcript_id", transcriptID, "error", err)
	}
}

// backfillFeedback handles a transcript with no feedback row, either because
// it predates feedback or because the creation-time insert failed. When even
// this insert fails the caller gets a synthetic failed stub so the client
// never sees missing feedback.
func (s *Service) backfillFeedback(ctx context.Context, transcriptID string) *models.Feedback {
	now := time.Now().UTC()
	pending := &models.Feedback{
		ID:           uuid.NewString(),
		TranscriptID: transcriptID,
		Content:      models.PlaceholderFeedback,
		Status:       models.FeedbackPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	created, err := s.feedback.Create(ctx, pending)
	if err != nil {
		s.logger.Warnw("backfill feedback row failed", "transcript_id", transcriptID, "error", err)
		return &models.Feedback{
			TranscriptID: transcriptID,
			Content:      "Feedback could not be prepared for this conversation.",
			Status:       models.FeedbackFailed,
			ErrorDetail:  "feedback row creation failed",
			CreatedAt:    now,
			UpdatedAt:    now,
		}
	}

	if !created {
		// Lost a race with a concurrent read; use whatever row won.
		if existing, err := s.feedback.GetByTranscript(ctx, transcriptID); err == nil {
			return existing
		}
		return pending
	}

	if err := s.queue.Enqueue(ctx, transcriptID); err != nil {
		s.logger.Warnw("enqueue backfilled generation failed", "transcript_id", transcriptID, "error", err)
	}

	return pending
}
