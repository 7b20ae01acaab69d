package models

import "time"

// Feedback lifecycle states. A row transitions pending -> completed or
// pending -> failed exactly once and never leaves a terminal state.
const (
	FeedbackPending   = "pending"
	FeedbackCompleted = "completed"
	FeedbackFailed    = "failed"
)

// PlaceholderFeedback is the content of a feedback row that has not been
// generated yet.
const PlaceholderFeedback = "Feedback is being generated..."

// Feedback is the AI-generated critique attached to a transcript, at most one
// per transcript.
type Feedback struct {
	ID           string
	TranscriptID string
	Content      string
	Status       string
	ErrorDetail  string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
