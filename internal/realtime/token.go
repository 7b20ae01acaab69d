package realtime

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pitchlabs/pitchcoach/internal/config"
	"github.com/pitchlabs/pitchcoach/internal/models"
	"github.com/pitchlabs/pitchcoach/internal/store"
)

const issueTimeout = 20 * time.Second

// ErrAPIKeyMissing is returned when no upstream credential is configured.
var ErrAPIKeyMissing = errors.New("realtime: api key is not configured")

type httpDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Issuer requests short-lived realtime session credentials from the upstream
// voice API, with role and scenario instructions resolved in-process.
type Issuer struct {
	reference       store.Reference
	apiKey          string
	baseURL         string
	model           string
	transcribeModel string
	defaultVoice    string
	client          httpDoer
	logger          *zap.SugaredLogger
}

func NewIssuer(reference store.Reference, cfg config.OpenAIConfig, logger *zap.SugaredLogger) *Issuer {
	voice := strings.TrimSpace(cfg.DefaultVoice)
	if voice == "" {
		voice = "verse"
	}

	return &Issuer{
		reference:       reference,
		apiKey:          cfg.APIKey,
		baseURL:         strings.TrimRight(cfg.BaseURL, "/"),
		model:           cfg.RealtimeModel,
		transcribeModel: cfg.TranscribeModel,
		defaultVoice:    voice,
		client:          &http.Client{Timeout: issueTimeout},
		logger:          logger,
	}
}

type sessionRequest struct {
	Model                   string             `json:"model"`
	Voice                   string             `json:"voice"`
	Instructions            string             `json:"instructions"`
	InputAudioTranscription transcriptionModel `json:"input_audio_transcription"`
}

type transcriptionModel struct {
	Model string `json:"model"`
}

// Issue returns the upstream session payload and its HTTP status. Non-2xx
// upstream responses are forwarded verbatim rather than converted into
// errors; the client decides what to do with them.
func (i *Issuer) Issue(ctx context.Context, roleID, scenarioID string) (json.RawMessage, int, error) {
	if strings.TrimSpace(i.apiKey) == "" {
		return nil, 0, ErrAPIKeyMissing
	}

	role := i.lookupRole(ctx, roleID)
	scenario := i.lookupScenario(ctx, scenarioID)

	voice := i.defaultVoice
	if role != nil && strings.TrimSpace(role.Voice) != "" {
		voice = role.Voice
	}

	payload := sessionRequest{
		Model:                   i.model,
		Voice:                   voice,
		Instructions:            mergeInstructions(role, scenario),
		InputAudioTranscription: transcriptionModel{Model: i.transcribeModel},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, fmt.Errorf("marshal session payload: %w", err)
	}

	endpoint := i.baseURL + "/realtime/sessions"
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("create session request: %w", err)
	}

	request.Header.Set("Authorization", "Bearer "+i.apiKey)
	request.Header.Set("Content-Type", "application/json")

	response, err := i.client.Do(request)
	if err != nil {
		return nil, 0, fmt.Errorf("call realtime api: %w", err)
	}
	defer response.Body.Close()

	respBody, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read session response: %w", err)
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		i.logger.Warnw("realtime session request rejected", "status", response.StatusCode)
	}

	return json.RawMessage(respBody), response.StatusCode, nil
}

func (i *Issuer) lookupRole(ctx context.Context, roleID string) *models.Role {
	if strings.TrimSpace(roleID) == "" {
		return nil
	}
	role, err := i.reference.GetRole(ctx, roleID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			i.logger.Warnw("load role failed", "role_id", roleID, "error", err)
		}
		return nil
	}
	return role
}

func (i *Issuer) lookupScenario(ctx context.Context, scenarioID string) *models.Scenario {
	if strings.TrimSpace(scenarioID) == "" {
		return nil
	}
	scenario, err := i.reference.GetScenario(ctx, scenarioID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			i.logger.Warnw("load scenario failed", "scenario_id", scenarioID, "error", err)
		}
		return nil
	}
	return scenario
}

// mergeInstructions combines role and scenario instructions, role first with
// the scenario appended under a Context label. A missing side is skipped;
// both missing yields an empty string.
func mergeInstructions(role *models.Role, scenario *models.Scenario) string {
	var parts []string
	if role != nil && strings.TrimSpace(role.Instructions) != "" {
		parts = append(parts, strings.TrimSpace(role.Instructions))
	}
	if scenario != nil && strings.TrimSpace(scenario.Instructions) != "" {
		label := "Context: " + strings.TrimSpace(scenario.Instructions)
		parts = append(parts, label)
	}
	return strings.Join(parts, "\n\n")
}
