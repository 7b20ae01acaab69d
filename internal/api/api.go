package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pitchlabs/pitchcoach/internal/auth"
	"github.com/pitchlabs/pitchcoach/internal/models"
	"github.com/pitchlabs/pitchcoach/internal/realtime"
	"github.com/pitchlabs/pitchcoach/internal/store"
	"github.com/pitchlabs/pitchcoach/internal/transcripts"
)

// Handler bridges the HTTP surface to the services.
type Handler struct {
	authService *auth.Service
	transcripts *transcripts.Service
	reference   store.Reference
	issuer      *realtime.Issuer
	logger      *zap.SugaredLogger
}

func NewHandler(authService *auth.Service, transcriptService *transcripts.Service, reference store.Reference, issuer *realtime.Issuer, logger *zap.SugaredLogger) *Handler {
	return &Handler{
		authService: authService,
		transcripts: transcriptService,
		reference:   reference,
		issuer:      issuer,
		logger:      logger,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	apiGroup := router.Group("/api")

	apiGroup.POST("/register", h.handleRegister)
	apiGroup.POST("/login", h.handleLogin)

	apiGroup.GET("/roles", h.handleListRoles)
	apiGroup.GET("/scenarios", h.handleListScenarios)

	apiGroup.POST("/transcripts", h.handleCreateTranscript)
	apiGroup.GET("/transcripts/user/:userId", h.handleListTranscripts)
	apiGroup.GET("/transcripts/:id", h.handleGetTranscript)

	router.GET("/token", h.handleIssueToken)
}

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) handleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid payload", err)
		return
	}

	result, err := h.authService.Register(c.Request.Context(), auth.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrUsernameRequired), errors.Is(err, auth.ErrPasswordRequired):
			writeError(c, http.StatusBadRequest, err.Error(), err)
		case errors.Is(err, auth.ErrUserExists):
			writeError(c, http.StatusConflict, err.Error(), err)
		default:
			h.logger.Errorw("register failed", "error", err)
			writeError(c, http.StatusInternalServerError, "failed to register user", err)
		}
		return
	}

	c.JSON(http.StatusCreated, newAuthResponse(result))
}

func (h *Handler) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid payload", err)
		return
	}

	result, err := h.authService.Login(c.Request.Context(), auth.LoginInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(c, http.StatusUnauthorized, "invalid credentials", err)
			return
		}
		h.logger.Errorw("login failed", "error", err)
		writeError(c, http.StatusInternalServerError, "failed to login", err)
		return
	}

	c.JSON(http.StatusOK, newAuthResponse(result))
}

func (h *Handler) handleListRoles(c *gin.Context) {
	roles, err := h.reference.ListRoles(c.Request.Context())
	if err != nil {
		h.logger.Errorw("list roles failed", "error", err)
		writeError(c, http.StatusInternalServerError, "failed to load roles", err)
		return
	}

	payload := make([]gin.H, 0, len(roles))
	for _, role := range roles {
		payload = append(payload, roleJSON(role))
	}

	c.JSON(http.StatusOK, payload)
}

func (h *Handler) handleListScenarios(c *gin.Context) {
	scenarios, err := h.reference.ListScenarios(c.Request.Context())
	if err != nil {
		h.logger.Errorw("list scenarios failed", "error", err)
		writeError(c, http.StatusInternalServerError, "failed to load scenarios", err)
		return
	}

	payload := make([]gin.H, 0, len(scenarios))
	for _, scenario := range scenarios {
		payload = append(payload, scenarioJSON(scenario))
	}

	c.JSON(http.StatusOK, payload)
}

func (h *Handler) handleIssueToken(c *gin.Context) {
	roleID := strings.TrimSpace(c.Query("roleId"))
	scenarioID := strings.TrimSpace(c.Query("scenarioId"))

	payload, status, err := h.issuer.Issue(c.Request.Context(), roleID, scenarioID)
	if err != nil {
		if errors.Is(err, realtime.ErrAPIKeyMissing) {
			writeError(c, http.StatusServiceUnavailable, "realtime api key is not configured", err)
			return
		}
		h.logger.Errorw("issue session token failed", "error", err)
		writeError(c, http.StatusBadGateway, "failed to issue session token", err)
		return
	}

	// The upstream payload (including error bodies) is forwarded verbatim.
	c.Data(status, "application/json", payload)
}

func newAuthResponse(result *auth.AuthResult) gin.H {
	return gin.H{
		"token":     result.Token,
		"expiresAt": result.ExpiresAt.Format(time.RFC3339),
		"user": gin.H{
			"id":       result.User.ID,
			"username": result.User.Username,
			"email":    result.User.Email,
		},
	}
}

func roleJSON(role models.Role) gin.H {
	return gin.H{
		"id":           role.ID,
		"name":         role.Name,
		"title":        role.Title,
		"style":        role.Style,
		"voice":        role.Voice,
		"instructions": role.Instructions,
		"photoUrl":     role.PhotoURL,
	}
}

func scenarioJSON(scenario models.Scenario) gin.H {
	rubric := scenario.Rubric
	if rubric == nil {
		rubric = []string{}
	}
	return gin.H{
		"id":           scenario.ID,
		"name":         scenario.Name,
		"description":  scenario.Description,
		"instructions": scenario.Instructions,
		"rubric":       rubric,
	}
}

func writeError(c *gin.Context, status int, message string, err error) {
	c.JSON(status, gin.H{
		"error":   message,
		"details": err.Error(),
	})
}
