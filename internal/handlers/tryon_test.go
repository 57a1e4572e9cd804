package handlers

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

	"github.com/szonjajakab/ponpa/internal/platform/apierr"
	"github.com/szonjajakab/ponpa/internal/platform/gemini"
	"github.com/szonjajakab/ponpa/internal/requestdata"
	"github.com/szonjajakab/ponpa/internal/services"
	"github.com/szonjajakab/ponpa/internal/types"
)

type fakeTryOnService struct {
	services.TryOnService

	session    *types.TryOnSession
	sessionErr error
	status     *services.SessionStatusView
	statusErr  error
	sessions   []*types.TryOnSession
	deleteErr  error
	cancelErr  error
}

func (f *fakeTryOnService) StartImageGeneration(ctx context.Context, userID, outfitID uuid.UUID, userContext gemini.UserContext) (*types.TryOnSession, error) {
	if f.sessionErr != nil {
		return nil, f.sessionErr
	}
	return f.session, nil
}

func (f *fakeTryOnService) GetStatus(ctx context.Context, userID, sessionID uuid.UUID) (*services.SessionStatusView, error) {
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	return f.status, nil
}

func (f *fakeTryOnService) ListSessions(ctx context.Context, userID uuid.UUID, limit int) ([]*types.TryOnSession, error) {
	if limit > 0 && limit < len(f.sessions) {
		return f.sessions[:limit], nil
	}
	return f.sessions, nil
}

func (f *fakeTryOnService) DeleteSession(ctx context.Context, userID, sessionID uuid.UUID) error {
	return f.deleteErr
}

func (f *fakeTryOnService) CancelSession(ctx context.Context, userID, sessionID uuid.UUID) error {
	return f.cancelErr
}

// testRouter wires the handler behind a middleware that plants a fixed
// identity, standing in for the real auth middleware.
func testRouter(svc services.TryOnService, userID uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		ctx := requestdata.WithRequestData(c.Request.Context(), &requestdata.RequestData{UserID: userID})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})
	th := NewTryOnHandler(svc)
	router.POST("/generate-try-on-image", th.GenerateTryOnImage)
	router.GET("/try-on-status/:session_id", th.GetStatus)
	router.GET("/my-try-on-sessions", th.ListSessions)
	router.DELETE("/try-on-session/:session_id", th.DeleteSession)
	router.POST("/try-on-session/:session_id/cancel", th.CancelSession)
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestGenerateTryOnImageResponse(t *testing.T) {
	sessionID := uuid.New()
	svc := &fakeTryOnService{
		session: &types.TryOnSession{SessionID: sessionID, Status: types.TryOnStatusPending},
	}
	router := testRouter(svc, uuid.New())

	w := doJSON(t, router, http.MethodPost, "/generate-try-on-image", gin.H{
		"outfit_id":    uuid.New().String(),
		"user_context": gin.H{"occasion": "casual"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp struct {
		SessionID string `json:"session_id"`
		Status    string `json:"status"`
		Message   string `json:"message"`
		PollURL   string `json:"poll_url"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.SessionID != sessionID.String() {
		t.Fatalf("session_id = %q", resp.SessionID)
	}
	if resp.Status != "pending" {
		t.Fatalf("status = %q", resp.Status)
	}
	want := "/api/v1/try-on-status/" + sessionID.String()
	if resp.PollURL != want {
		t.Fatalf("poll_url = %q, want %q", resp.PollURL, want)
	}
	if resp.Message == "" {
		t.Fatalf("message missing")
	}
}

func TestGenerateTryOnImageMissingOutfit(t *testing.T) {
	router := testRouter(&fakeTryOnService{}, uuid.New())
	w := doJSON(t, router, http.MethodPost, "/generate-try-on-image", gin.H{})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestGetStatusShape(t *testing.T) {
	sessionID := uuid.New()
	eta := 30
	completedAt := time.Now()
	svc := &fakeTryOnService{
		status: &services.SessionStatusView{
			SessionID:               sessionID,
			Status:                  types.TryOnStatusInProgress,
			ProgressPercentage:      40,
			CreatedAt:               time.Now(),
			EstimatedCompletionTime: &eta,
		},
	}
	router := testRouter(svc, uuid.New())

	w := doJSON(t, router, http.MethodGet, "/try-on-status/"+sessionID.String(), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["status"] != "in_progress" {
		t.Fatalf("status = %v", resp["status"])
	}
	if resp["progress_percentage"].(float64) != 40 {
		t.Fatalf("progress = %v", resp["progress_percentage"])
	}
	if resp["estimated_completion_time"].(float64) != 30 {
		t.Fatalf("eta = %v", resp["estimated_completion_time"])
	}
	for _, absent := range []string{"generated_image_url", "error_message", "completed_at"} {
		if _, ok := resp[absent]; ok {
			t.Fatalf("running session should omit %q", absent)
		}
	}

	// Terminal sessions carry no estimate but do carry the outcome fields.
	svc.status = &services.SessionStatusView{
		SessionID:          sessionID,
		Status:             types.TryOnStatusCompleted,
		ProgressPercentage: 100,
		GeneratedImageURL:  "https://cdn.test/tryon/x.png",
		CreatedAt:          time.Now(),
		CompletedAt:        &completedAt,
	}
	w = doJSON(t, router, http.MethodGet, "/try-on-status/"+sessionID.String(), nil)
	resp = map[string]any{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := resp["estimated_completion_time"]; ok {
		t.Fatalf("terminal session should omit the estimate")
	}
	if resp["generated_image_url"] != "https://cdn.test/tryon/x.png" {
		t.Fatalf("generated_image_url = %v", resp["generated_image_url"])
	}
}

func TestGetStatusNotFound(t *testing.T) {
	svc := &fakeTryOnService{
		statusErr: apierr.New(http.StatusNotFound, "session_not_found", nil),
	}
	router := testRouter(svc, uuid.New())

	w := doJSON(t, router, http.MethodGet, "/try-on-status/"+uuid.New().String(), nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	var resp ErrorEnvelope
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error.Code != "session_not_found" {
		t.Fatalf("code = %q", resp.Error.Code)
	}
}

func TestGetStatusBadSessionID(t *testing.T) {
	router := testRouter(&fakeTryOnService{}, uuid.New())
	w := doJSON(t, router, http.MethodGet, "/try-on-status/not-a-uuid", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestListSessionsEnvelope(t *testing.T) {
	svc := &fakeTryOnService{
		sessions: []*types.TryOnSession{
			{SessionID: uuid.New(), Status: types.TryOnStatusCompleted},
			{SessionID: uuid.New(), Status: types.TryOnStatusFailed},
		},
	}
	router := testRouter(svc, uuid.New())

	w := doJSON(t, router, http.MethodGet, "/my-try-on-sessions?limit=1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Sessions []json.RawMessage `json:"sessions"`
		Total    int               `json:"total"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Sessions) != 1 || resp.Total != 1 {
		t.Fatalf("sessions = %d, total = %d", len(resp.Sessions), resp.Total)
	}
}

func TestCancelSessionConflict(t *testing.T) {
	svc := &fakeTryOnService{
		cancelErr: apierr.New(http.StatusConflict, "session_finished", nil),
	}
	router := testRouter(svc, uuid.New())

	w := doJSON(t, router, http.MethodPost, "/try-on-session/"+uuid.New().String()+"/cancel", nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", w.Code)
	}
}

func TestDeleteSessionMessage(t *testing.T) {
	router := testRouter(&fakeTryOnService{}, uuid.New())

	w := doJSON(t, router, http.MethodDelete, "/try-on-session/"+uuid.New().String(), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["message"] == "" {
		t.Fatalf("message missing in %s", w.Body.String())
	}
}

func TestUnauthenticatedRequest(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	th := NewTryOnHandler(&fakeTryOnService{})
	router.GET("/my-try-on-sessions", th.ListSessions)

	req := httptest.NewRequest(http.MethodGet, "/my-try-on-sessions", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}
