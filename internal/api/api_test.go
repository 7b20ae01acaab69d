package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pitchlabs/pitchcoach/internal/auth"
	"github.com/pitchlabs/pitchcoach/internal/config"
	"github.com/pitchlabs/pitchcoach/internal/models"
	"github.com/pitchlabs/pitchcoach/internal/queue"
	"github.com/pitchlabs/pitchcoach/internal/realtime"
	"github.com/pitchlabs/pitchcoach/internal/seed"
	"github.com/pitchlabs/pitchcoach/internal/store"
	"github.com/pitchlabs/pitchcoach/internal/transcripts"
)

type testApp struct {
	router *gin.Engine
}

func newTestApp(t *testing.T) *testApp {
	return newTestAppWithOpenAI(t, config.OpenAIConfig{})
}

func newTestAppWithOpenAI(t *testing.T, openaiCfg config.OpenAIConfig) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mem := store.NewMemory()
	st := mem.Store()
	logger := zap.NewNop().Sugar()

	if err := seed.Run(context.Background(), st, logger); err != nil {
		t.Fatalf("seed: %v", err)
	}

	q := queue.NewMemory(0)
	t.Cleanup(func() { q.Close() })

	authService, err := auth.NewService(st.Users, "test-secret", time.Hour)
	if err != nil {
		t.Fatalf("auth service: %v", err)
	}
	transcriptService := transcripts.NewService(st, q, logger)
	issuer := realtime.NewIssuer(st.Reference, openaiCfg, logger)

	router := gin.New()
	NewHandler(authService, transcriptService, st.Reference, issuer, logger).RegisterRoutes(router)

	return &testApp{router: router}
}

func (a *testApp) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)

	var decoded map[string]interface{}
	if rec.Body.Len() > 0 {
		// Array payloads are decoded by the callers that expect them.
		_ = json.Unmarshal(rec.Body.Bytes(), &decoded)
	}
	return rec, decoded
}

func (a *testApp) registerUser(t *testing.T, username string) string {
	t.Helper()

	rec, body := a.do(t, http.MethodPost, "/api/register", gin.H{
		"username": username,
		"password": "s3cret-pw",
		"email":    username + "@example.com",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register %s: status %d body %s", username, rec.Code, rec.Body)
	}
	user, ok := body["user"].(map[string]interface{})
	if !ok {
		t.Fatalf("register response missing user: %s", rec.Body)
	}
	id, _ := user["id"].(string)
	if id == "" {
		t.Fatalf("register response missing user id: %s", rec.Body)
	}
	return id
}

func TestRegisterLoginFlow(t *testing.T) {
	app := newTestApp(t)

	rec, body := app.do(t, http.MethodPost, "/api/register", gin.H{
		"username": "alice", "password": "pw123456", "email": "alice@example.com",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: status %d body %s", rec.Code, rec.Body)
	}
	if token, _ := body["token"].(string); token == "" {
		t.Fatalf("register response missing token: %s", rec.Body)
	}
	if user, _ := body["user"].(map[string]interface{}); user["username"] != "alice" {
		t.Fatalf("unexpected user payload: %s", rec.Body)
	}

	rec, _ = app.do(t, http.MethodPost, "/api/register", gin.H{
		"username": "alice", "password": "other-pw",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate register: expected 409, got %d", rec.Code)
	}

	rec, _ = app.do(t, http.MethodPost, "/api/login", gin.H{
		"username": "alice", "password": "pw123456",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: status %d body %s", rec.Code, rec.Body)
	}

	rec, body = app.do(t, http.MethodPost, "/api/login", gin.H{
		"username": "alice", "password": "wrong",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad login: expected 401, got %d", rec.Code)
	}
	if body["error"] == nil {
		t.Fatalf("error responses must carry an error field: %s", rec.Body)
	}
}

func TestRegisterValidationErrors(t *testing.T) {
	app := newTestApp(t)

	rec, _ := app.do(t, http.MethodPost, "/api/register", gin.H{"username": " ", "password": "pw"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("blank username: expected 400, got %d", rec.Code)
	}
	rec, _ = app.do(t, http.MethodPost, "/api/register", gin.H{"username": "bob"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing password: expected 400, got %d", rec.Code)
	}
}

func TestListRolesAndScenarios(t *testing.T) {
	app := newTestApp(t)

	rec, _ := app.do(t, http.MethodGet, "/api/roles", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("roles: status %d", rec.Code)
	}
	var roles []map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &roles); err != nil {
		t.Fatalf("decode roles: %v", err)
	}
	if len(roles) != 3 {
		t.Fatalf("expected 3 seeded roles, got %d", len(roles))
	}
	for _, role := range roles {
		if role["name"] == "" || role["voice"] == "" {
			t.Fatalf("role payload incomplete: %v", role)
		}
	}

	rec, _ = app.do(t, http.MethodGet, "/api/scenarios", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("scenarios: status %d", rec.Code)
	}
	var scenarios []map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &scenarios); err != nil {
		t.Fatalf("decode scenarios: %v", err)
	}
	if len(scenarios) != 3 {
		t.Fatalf("expected 3 seeded scenarios, got %d", len(scenarios))
	}
	for _, sc := range scenarios {
		rubric, ok := sc["rubric"].([]interface{})
		if !ok || len(rubric) == 0 {
			t.Fatalf("scenario rubric missing: %v", sc)
		}
	}
}

func TestTranscriptLifecycle(t *testing.T) {
	app := newTestApp(t)
	userID := app.registerUser(t, "carol")

	rec, body := app.do(t, http.MethodPost, "/api/transcripts", gin.H{
		"content": "User: hi\nProspect: who is this?",
		"userId":  userID,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create transcript: status %d body %s", rec.Code, rec.Body)
	}
	created, ok := body["transcript"].(map[string]interface{})
	if !ok {
		t.Fatalf("create response missing transcript: %s", rec.Body)
	}
	if created["title"] != transcripts.DefaultTitle {
		t.Fatalf("expected default title, got %v", created["title"])
	}
	transcriptID, _ := created["id"].(string)
	if transcriptID == "" {
		t.Fatalf("create response missing id: %s", rec.Body)
	}

	rec, body = app.do(t, http.MethodGet, "/api/transcripts/"+transcriptID+"?userId="+userID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get transcript: status %d body %s", rec.Code, rec.Body)
	}
	feedback, ok := body["feedback"].(map[string]interface{})
	if !ok {
		t.Fatalf("transcript read must always include feedback: %s", rec.Body)
	}
	if feedback["status"] != models.FeedbackPending {
		t.Fatalf("expected pending feedback, got %v", feedback["status"])
	}
	if feedback["content"] != models.PlaceholderFeedback {
		t.Fatalf("unexpected placeholder: %v", feedback["content"])
	}

	rec, _ = app.do(t, http.MethodGet, "/api/transcripts/user/"+userID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list transcripts: status %d", rec.Code)
	}
	var list []map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 1 || list[0]["id"] != transcriptID {
		t.Fatalf("unexpected list payload: %s", rec.Body)
	}
}

func TestTranscriptErrorCases(t *testing.T) {
	app := newTestApp(t)
	userID := app.registerUser(t, "dave")

	rec, _ := app.do(t, http.MethodPost, "/api/transcripts", gin.H{"userId": userID})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing content: expected 400, got %d", rec.Code)
	}

	rec, _ = app.do(t, http.MethodPost, "/api/transcripts", gin.H{"content": "hi"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing userId: expected 400, got %d", rec.Code)
	}

	rec, _ = app.do(t, http.MethodGet, "/api/transcripts/user/"+uuid.NewString(), nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown user: expected 404, got %d", rec.Code)
	}

	rec, _ = app.do(t, http.MethodGet, "/api/transcripts/"+uuid.NewString()+"?userId="+userID, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown transcript: expected 404, got %d", rec.Code)
	}

	recCreate, body := app.do(t, http.MethodPost, "/api/transcripts", gin.H{
		"content": "call", "userId": userID,
	})
	if recCreate.Code != http.StatusCreated {
		t.Fatalf("create: status %d", recCreate.Code)
	}
	transcriptID := body["transcript"].(map[string]interface{})["id"].(string)

	rec, _ = app.do(t, http.MethodGet, "/api/transcripts/"+transcriptID, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing userId query: expected 400, got %d", rec.Code)
	}

	otherID := app.registerUser(t, "mallory")
	rec, _ = app.do(t, http.MethodGet, "/api/transcripts/"+transcriptID+"?userId="+otherID, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("foreign transcript: expected 404, got %d", rec.Code)
	}
}

func TestIssueTokenWithoutKeyReturns503(t *testing.T) {
	app := newTestApp(t)

	rec, body := app.do(t, http.MethodGet, "/token", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d body %s", rec.Code, rec.Body)
	}
	if body["error"] == nil {
		t.Fatalf("expected an error payload: %s", rec.Body)
	}
}

func TestIssueTokenForwardsUpstream(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"client_secret":{"value":"ephemeral-token"}}`))
	}))
	defer upstream.Close()

	app := newTestAppWithOpenAI(t, config.OpenAIConfig{APIKey: "sk-test", BaseURL: upstream.URL})

	rec, body := app.do(t, http.MethodGet, "/token", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("token: status %d body %s", rec.Code, rec.Body)
	}
	secret, ok := body["client_secret"].(map[string]interface{})
	if !ok || secret["value"] != "ephemeral-token" {
		t.Fatalf("upstream payload not forwarded: %s", rec.Body)
	}
}
