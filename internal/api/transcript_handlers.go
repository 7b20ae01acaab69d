package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pitchlabs/pitchcoach/internal/models"
	"github.com/pitchlabs/pitchcoach/internal/transcripts"
)

type createTranscriptRequest struct {
	Content    string `json:"content"`
	UserID     string `json:"userId"`
	RoleID     string `json:"roleId"`
	ScenarioID string `json:"scenarioId"`
	Title      string `json:"title"`
}

func (h *Handler) handleCreateTranscript(c *gin.Context) {
	var req createTranscriptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid payload", err)
		return
	}

	result, err := h.transcripts.Create(c.Request.Context(), transcripts.CreateInput{
		Content:    req.Content,
		UserID:     req.UserID,
		RoleID:     req.RoleID,
		ScenarioID: req.ScenarioID,
		Title:      req.Title,
	})
	if err != nil {
		switch {
		case errors.Is(err, transcripts.ErrContentRequired), errors.Is(err, transcripts.ErrUserRequired):
			writeError(c, http.StatusBadRequest, err.Error(), err)
		default:
			h.logger.Errorw("save transcript failed", "error", err)
			writeError(c, http.StatusInternalServerError, "failed to save transcript", err)
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"transcript": gin.H{
			"id":        result.ID,
			"title":     result.Title,
			"createdAt": result.CreatedAt.Format(time.RFC3339),
		},
	})
}

func (h *Handler) handleListTranscripts(c *gin.Context) {
	userID := c.Param("userId")

	list, err := h.transcripts.ListByUser(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, transcripts.ErrUserNotFound) {
			writeError(c, http.StatusNotFound, "user not found", err)
			return
		}
		h.logger.Errorw("list transcripts failed", "user_id", userID, "error", err)
		writeError(c, http.StatusInternalServerError, "failed to load transcripts", err)
		return
	}

	payload := make([]gin.H, 0, len(list))
	for _, transcript := range list {
		payload = append(payload, transcriptJSON(transcript))
	}

	c.JSON(http.StatusOK, payload)
}

func (h *Handler) handleGetTranscript(c *gin.Context) {
	transcriptID := c.Param("id")
	userID := strings.TrimSpace(c.Query("userId"))
	if userID == "" {
		writeError(c, http.StatusBadRequest, "userId is required", errMissingUserID)
		return
	}

	view, err := h.transcripts.Get(c.Request.Context(), transcriptID, userID)
	if err != nil {
		if errors.Is(err, transcripts.ErrNotFound) {
			writeError(c, http.StatusNotFound, "transcript not found", err)
			return
		}
		h.logger.Errorw("get transcript failed", "transcript_id", transcriptID, "error", err)
		writeError(c, http.StatusInternalServerError, "failed to load transcript", err)
		return
	}

	payload := transcriptJSON(view.Transcript)
	payload["feedback"] = feedbackJSON(view.Feedback)

	c.JSON(http.StatusOK, payload)
}

var errMissingUserID = errors.New("userId is required")

func transcriptJSON(transcript models.Transcript) gin.H {
	return gin.H{
		"id":           transcript.ID,
		"userId":       transcript.UserID,
		"roleId":       transcript.RoleID,
		"scenarioId":   transcript.ScenarioID,
		"roleName":     transcript.RoleName,
		"scenarioName": transcript.ScenarioName,
		"title":        transcript.Title,
		"content":      transcript.Content,
		"createdAt":    transcript.CreatedAt.Format(time.RFC3339),
	}
}

func feedbackJSON(feedback models.Feedback) gin.H {
	return gin.H{
		"status":    feedback.Status,
		"content":   feedback.Content,
		"error":     feedback.ErrorDetail,
		"updatedAt": feedback.UpdatedAt.Format(time.RFC3339),
	}
}
