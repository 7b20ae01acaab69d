package feedback

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/pitchlabs/pitchcoach/internal/config"
	"github.com/pitchlabs/pitchcoach/internal/models"
	"github.com/pitchlabs/pitchcoach/internal/store"
)

const (
	generationTemperature = 0.7
	generationMaxTokens   = 1000
)

// Generator drives the pending -> completed|failed transition of feedback
// rows. The outcome of a generation, success or failure, is recorded on the
// row itself; Generate returns an error only when the job could not run at
// all and is worth redelivering.
type Generator struct {
	transcripts store.Transcripts
	feedback    store.FeedbackStore
	reference   store.Reference
	client      *openai.Client
	model       string
	logger      *zap.SugaredLogger
}

func NewGenerator(st *store.Store, cfg config.OpenAIConfig, logger *zap.SugaredLogger) *Generator {
	var client *openai.Client
	if cfg.APIKey != "" {
		clientCfg := openai.DefaultConfig(cfg.APIKey)
		if cfg.BaseURL != "" {
			clientCfg.BaseURL = cfg.BaseURL
		}
		client = openai.NewClientWithConfig(clientCfg)
	}

	model := strings.TrimSpace(cfg.FeedbackModel)
	if model == "" {
		model = openai.GPT4oMini
	}

	return &Generator{
		transcripts: st.Transcripts,
		feedback:    st.Feedback,
		reference:   st.Reference,
		client:      client,
		model:       model,
		logger:      logger,
	}
}

// Generate produces coaching feedback for one transcript.
func (g *Generator) Generate(ctx context.Context, transcriptID string) error {
	if g.client == nil {
		// Deterministic failure rather than a row stuck pending forever.
		return g.markFailed(ctx, transcriptID,
			"Feedback is unavailable: the OPENAI_API_KEY credential is not configured on the server.",
			"missing OPENAI_API_KEY")
	}

	transcript, err := g.transcripts.Get(ctx, transcriptID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			g.logger.Warnw("transcript vanished before generation", "transcript_id", transcriptID)
			return nil
		}
		return fmt.Errorf("load transcript: %w", err)
	}

	// Scenario context is best-effort: a missing or unreadable scenario
	// degrades to transcript-only feedback.
	var scenario *models.Scenario
	if transcript.ScenarioID != "" {
		scenario, err = g.reference.GetScenario(ctx, transcript.ScenarioID)
		if err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				g.logger.Warnw("load scenario failed", "scenario_id", transcript.ScenarioID, "error", err)
			}
			scenario = nil
		}
	}

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: BuildUserPrompt(transcript, scenario)},
		},
		Temperature: generationTemperature,
		MaxTokens:   generationMaxTokens,
	})
	if err != nil {
		return g.markFailed(ctx, transcriptID,
			"Feedback generation failed. Please try saving the conversation again later.",
			upstreamErrorDetail(err))
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return g.markFailed(ctx, transcriptID,
			"Feedback generation returned an empty response.",
			"chat completion contained no choices")
	}

	content := resp.Choices[0].Message.Content
	if err := g.feedback.MarkCompleted(ctx, transcriptID, content); err != nil {
		return fmt.Errorf("record feedback: %w", err)
	}

	g.logger.Infow("feedback generated", "transcript_id", transcriptID, "tokens", resp.Usage.TotalTokens)
	return nil
}

func (g *Generator) markFailed(ctx context.Context, transcriptID, content, detail string) error {
	if err := g.feedback.MarkFailed(ctx, transcriptID, content, detail); err != nil {
		return fmt.Errorf("record failure: %w", err)
	}
	g.logger.Warnw("feedback generation failed", "transcript_id", transcriptID, "detail", detail)
	return nil
}

// upstreamErrorDetail keeps the structured API error when the SDK provides
// one, falling back to the raw error string.
func upstreamErrorDetail(err error) string {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Sprintf("upstream api error (%d): %s", apiErr.HTTPStatusCode, apiErr.Message)
	}
	return err.Error()
}
