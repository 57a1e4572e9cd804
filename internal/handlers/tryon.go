package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/szonjajakab/ponpa/internal/platform/gemini"
	"github.com/szonjajakab/ponpa/internal/services"
)

type TryOnHandler struct {
	tryOnService services.TryOnService
}

func NewTryOnHandler(tryOnService services.TryOnService) *TryOnHandler {
	return &TryOnHandler{tryOnService: tryOnService}
}

// POST /generate-try-on-image
// Creates the session and returns immediately; the image is generated in
// the background and the client polls the status endpoint.
func (th *TryOnHandler) GenerateTryOnImage(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req struct {
		OutfitID    uuid.UUID          `json:"outfit_id" binding:"required"`
		UserContext gemini.UserContext `json:"user_context"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	session, err := th.tryOnService.StartImageGeneration(c.Request.Context(), userID, req.OutfitID, req.UserContext)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{
		"session_id": session.SessionID,
		"status":     session.Status,
		"message":    "Image generation started. Poll the status endpoint for progress.",
		"poll_url":   fmt.Sprintf("/api/v1/try-on-status/%s", session.SessionID),
	})
}

// GET /try-on-status/:session_id
func (th *TryOnHandler) GetStatus(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	sessionID, ok := pathUUID(c, "session_id")
	if !ok {
		return
	}
	view, err := th.tryOnService.GetStatus(c.Request.Context(), userID, sessionID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, view)
}

// GET /my-try-on-sessions?limit=N
func (th *TryOnHandler) ListSessions(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	limit := queryInt(c, "limit", 10)
	sessions, err := th.tryOnService.ListSessions(c.Request.Context(), userID, limit)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"sessions": sessions, "total": len(sessions)})
}

// DELETE /try-on-session/:session_id
func (th *TryOnHandler) DeleteSession(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	sessionID, ok := pathUUID(c, "session_id")
	if !ok {
		return
	}
	if err := th.tryOnService.DeleteSession(c.Request.Context(), userID, sessionID); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"message": "session deleted"})
}

// POST /try-on-session/:session_id/cancel
func (th *TryOnHandler) CancelSession(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	sessionID, ok := pathUUID(c, "session_id")
	if !ok {
		return
	}
	if err := th.tryOnService.CancelSession(c.Request.Context(), userID, sessionID); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"message": "session cancelled"})
}

// POST /try-on
// Synchronous text-only try-on: a styled description of the outfit, with
// an optional compatibility analysis.
func (th *TryOnHandler) TryOn(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req struct {
		OutfitID             uuid.UUID          `json:"outfit_id" binding:"required"`
		UserContext          gemini.UserContext `json:"user_context"`
		IncludeCompatibility bool               `json:"include_compatibility"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	result, err := th.tryOnService.GenerateTryOn(c.Request.Context(), userID, req.OutfitID, req.UserContext, req.IncludeCompatibility)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, result)
}

// POST /try-on-with-image
// Multipart: an "image" file of the user plus an "outfit_id" form field.
func (th *TryOnHandler) TryOnWithImage(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	outfitID, err := uuid.Parse(c.PostForm("outfit_id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", fmt.Errorf("invalid outfit_id"))
		return
	}
	raw, _, ok := readUploadedImage(c)
	if !ok {
		return
	}
	result, sErr := th.tryOnService.GenerateTryOnWithImage(c.Request.Context(), userID, outfitID, raw)
	if sErr != nil {
		RespondServiceError(c, sErr)
		return
	}
	RespondOK(c, result)
}

// GET /outfit-suggestions/:outfit_id
func (th *TryOnHandler) OutfitSuggestions(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	outfitID, ok := pathUUID(c, "outfit_id")
	if !ok {
		return
	}
	suggestions, err := th.tryOnService.GetOutfitSuggestions(c.Request.Context(), userID, outfitID, c.Query("occasion"), c.Query("weather"))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"outfit_id": outfitID, "suggestions": suggestions})
}

// GET /ai-service/status
func (th *TryOnHandler) AIServiceStatus(c *gin.Context) {
	if _, ok := currentUserID(c); !ok {
		return
	}
	RespondOK(c, th.tryOnService.AIServiceStatus())
}
