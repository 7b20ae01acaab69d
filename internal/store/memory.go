package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/pitchlabs/pitchcoach/internal/models"
)

// Memory is an in-memory Store used by tests and local experiments. It
// mirrors the semantics of the pgx repositories, including the idempotent
// feedback insert and the pending-only status transitions.
type Memory struct {
	mu          sync.RWMutex
	users       map[string]*models.User
	roles       map[string]*models.Role
	scenarios   map[string]*models.Scenario
	transcripts map[string]*models.Transcript
	feedback    map[string]*models.Feedback

	// FailFeedbackCreate makes feedback inserts fail, for exercising the
	// degraded paths.
	FailFeedbackCreate bool
}

func NewMemory() *Memory {
	return &Memory{
		users:       make(map[string]*models.User),
		roles:       make(map[string]*models.Role),
		scenarios:   make(map[string]*models.Scenario),
		transcripts: make(map[string]*models.Transcript),
		feedback:    make(map[string]*models.Feedback),
	}
}

// Store exposes the memory implementation through the repository interfaces.
func (m *Memory) Store() *Store {
	return &Store{
		Users:       memUsers{m},
		Reference:   memReference{m},
		Transcripts: memTranscripts{m},
		Feedback:    memFeedback{m},
	}
}

type memUsers struct{ m *Memory }

func (u memUsers) Create(ctx context.Context, user *models.User) error {
	u.m.mu.Lock()
	defer u.m.mu.Unlock()

	for _, existing := range u.m.users {
		if existing.Username == user.Username {
			return ErrDuplicate
		}
	}

	clone := *user
	u.m.users[user.ID] = &clone
	return nil
}

func (u memUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	u.m.mu.RLock()
	defer u.m.mu.RUnlock()

	user, ok := u.m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *user
	return &clone, nil
}

func (u memUsers) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	u.m.mu.RLock()
	defer u.m.mu.RUnlock()

	for _, user := range u.m.users {
		if user.Username == username {
			clone := *user
			return &clone, nil
		}
	}
	return nil, ErrNotFound
}

func (u memUsers) Count(ctx context.Context) (int64, error) {
	u.m.mu.RLock()
	defer u.m.mu.RUnlock()
	return int64(len(u.m.users)), nil
}

type memReference struct{ m *Memory }

func (r memReference) ListRoles(ctx context.Context) ([]models.Role, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	roles := make([]models.Role, 0, len(r.m.roles))
	for _, role := range r.m.roles {
		roles = append(roles, *role)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i].Name < roles[j].Name })
	return roles, nil
}

func (r memReference) GetRole(ctx context.Context, id string) (*models.Role, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	role, ok := r.m.roles[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *role
	return &clone, nil
}

func (r memReference) CreateRole(ctx context.Context, role *models.Role) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	for _, existing := range r.m.roles {
		if existing.Name == role.Name {
			return false, nil
		}
	}

	clone := *role
	r.m.roles[role.ID] = &clone
	return true, nil
}

func (r memReference) ListScenarios(ctx context.Context) ([]models.Scenario, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	scenarios := make([]models.Scenario, 0, len(r.m.scenarios))
	for _, scenario := range r.m.scenarios {
		scenarios = append(scenarios, *scenario)
	}
	sort.Slice(scenarios, func(i, j int) bool { return scenarios[i].Name < scenarios[j].Name })
	return scenarios, nil
}

func (r memReference) GetScenario(ctx context.Context, id string) (*models.Scenario, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	scenario, ok := r.m.scenarios[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *scenario
	return &clone, nil
}

func (r memReference) CreateScenario(ctx context.Context, scenario *models.Scenario) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	for _, existing := range r.m.scenarios {
		if existing.Name == scenario.Name {
			return false, nil
		}
	}

	clone := *scenario
	r.m.scenarios[scenario.ID] = &clone
	return true, nil
}

type memTranscripts struct{ m *Memory }

func (t memTranscripts) Create(ctx context.Context, transcript *models.Transcript) error {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()

	clone := *transcript
	t.m.transcripts[transcript.ID] = &clone
	return nil
}

func (t memTranscripts) Get(ctx context.Context, id string) (*models.Transcript, error) {
	t.m.mu.RLock()
	defer t.m.mu.RUnlock()

	transcript, ok := t.m.transcripts[id]
	if !ok {
		return nil, ErrNotFound
	}

	clone := *transcript
	t.m.enrichLocked(&clone)
	return &clone, nil
}

func (t memTranscripts) ListByUser(ctx context.Context, userID string) ([]models.Transcript, error) {
	t.m.mu.RLock()
	defer t.m.mu.RUnlock()

	list := make([]models.Transcript, 0)
	for _, transcript := range t.m.transcripts {
		if transcript.UserID != userID {
			continue
		}
		clone := *transcript
		t.m.enrichLocked(&clone)
		list = append(list, clone)
	}

	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return list, nil
}

type memFeedback struct{ m *Memory }

func (f memFeedback) Create(ctx context.Context, feedback *models.Feedback) (bool, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()

	if f.m.FailFeedbackCreate {
		return false, errors.New("store: feedback insert failed")
	}

	if _, exists := f.m.feedback[feedback.TranscriptID]; exists {
		return false, nil
	}

	clone := *feedback
	f.m.feedback[feedback.TranscriptID] = &clone
	return true, nil
}

func (f memFeedback) GetByTranscript(ctx context.Context, transcriptID string) (*models.Feedback, error) {
	f.m.mu.RLock()
	defer f.m.mu.RUnlock()

	feedback, ok := f.m.feedback[transcriptID]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *feedback
	return &clone, nil
}

func (f memFeedback) MarkCompleted(ctx context.Context, transcriptID, content string) error {
	return f.m.transition(transcriptID, models.FeedbackCompleted, content, "")
}

func (f memFeedback) MarkFailed(ctx context.Context, transcriptID, content, errorDetail string) error {
	return f.m.transition(transcriptID, models.FeedbackFailed, content, errorDetail)
}

func (f memFeedback) ListPendingTranscriptIDs(ctx context.Context) ([]string, error) {
	f.m.mu.RLock()
	defer f.m.mu.RUnlock()

	ids := make([]string, 0)
	for id, feedback := range f.m.feedback {
		if feedback.Status == models.FeedbackPending {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *Memory) transition(transcriptID, status, content, errorDetail string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	feedback, ok := m.feedback[transcriptID]
	if !ok || feedback.Status != models.FeedbackPending {
		return nil
	}

	feedback.Status = status
	feedback.Content = content
	feedback.ErrorDetail = errorDetail
	feedback.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *Memory) enrichLocked(transcript *models.Transcript) {
	if role, ok := m.roles[transcript.RoleID]; ok {
		transcript.RoleName = role.Name
	}
	if scenario, ok := m.scenarios[transcript.ScenarioID]; ok {
		transcript.ScenarioName = scenario.Name
	}
}
