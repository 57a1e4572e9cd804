package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
	"gorm.io/gorm"

	"github.com/szonjajakab/ponpa/internal/platform/apierr"
	"github.com/szonjajakab/ponpa/internal/platform/gcp"
	"github.com/szonjajakab/ponpa/internal/platform/gemini"
	"github.com/szonjajakab/ponpa/internal/platform/logger"
	"github.com/szonjajakab/ponpa/internal/repos"
	"github.com/szonjajakab/ponpa/internal/types"
)

type TryOnConfig struct {
	MaxConcurrent   int64
	RetentionDays   int
	CleanupInterval time.Duration
}

// SessionStatusView is the poll response for one session. The estimate is
// present only while the session is still running.
type SessionStatusView struct {
	SessionID               uuid.UUID         `json:"session_id"`
	Status                  types.TryOnStatus `json:"status"`
	ProgressPercentage      int               `json:"progress_percentage"`
	GeneratedImageURL       string            `json:"generated_image_url,omitempty"`
	AIDescription           string            `json:"ai_description,omitempty"`
	ErrorMessage            string            `json:"error_message,omitempty"`
	CreatedAt               time.Time         `json:"created_at"`
	CompletedAt             *time.Time        `json:"completed_at,omitempty"`
	EstimatedCompletionTime *int              `json:"estimated_completion_time,omitempty"`
}

type TryOnResult struct {
	OutfitID      uuid.UUID                     `json:"outfit_id"`
	OutfitName    string                        `json:"outfit_name"`
	Description   string                        `json:"description"`
	Compatibility *gemini.CompatibilityAnalysis `json:"compatibility,omitempty"`
	ItemCount     int                           `json:"item_count"`
}

type AIStatus struct {
	Available  bool              `json:"available"`
	Model      string            `json:"model"`
	UsageStats gemini.UsageStats `json:"usage_stats"`
	RateLimits map[string]int    `json:"rate_limits"`
}

type TryOnService interface {
	StartImageGeneration(ctx context.Context, userID, outfitID uuid.UUID, userContext gemini.UserContext) (*types.TryOnSession, error)
	GetStatus(ctx context.Context, userID, sessionID uuid.UUID) (*SessionStatusView, error)
	ListSessions(ctx context.Context, userID uuid.UUID, limit int) ([]*types.TryOnSession, error)
	DeleteSession(ctx context.Context, userID, sessionID uuid.UUID) error
	CancelSession(ctx context.Context, userID, sessionID uuid.UUID) error

	GenerateTryOn(ctx context.Context, userID, outfitID uuid.UUID, userContext gemini.UserContext, includeCompatibility bool) (*TryOnResult, error)
	GenerateTryOnWithImage(ctx context.Context, userID, outfitID uuid.UUID, userImage []byte) (*TryOnResult, error)
	GetOutfitSuggestions(ctx context.Context, userID, outfitID uuid.UUID, occasion, weather string) ([]string, error)
	AIServiceStatus() AIStatus

	CleanupOldSessions(ctx context.Context) (int, error)
	StartCleanupLoop(ctx context.Context)
}

type tryOnService struct {
	db          *gorm.DB
	log         *logger.Logger
	sessionRepo repos.TryOnSessionRepo
	wardrobe    WardrobeService
	gateway     gemini.Service
	bucket      gcp.BucketService
	sem         *semaphore.Weighted
	cfg         TryOnConfig

	// seam for tests: runGeneration normally runs in its own goroutine.
	spawn func(func())
}

func NewTryOnService(
	db *gorm.DB,
	log *logger.Logger,
	sessionRepo repos.TryOnSessionRepo,
	wardrobe WardrobeService,
	gateway gemini.Service,
	bucket gcp.BucketService,
	cfg TryOnConfig,
) TryOnService {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 4
	}
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = 30
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 6 * time.Hour
	}
	return &tryOnService{
		db:          db,
		log:         log.With("service", "TryOnService"),
		sessionRepo: sessionRepo,
		wardrobe:    wardrobe,
		gateway:     gateway,
		bucket:      bucket,
		sem:         semaphore.NewWeighted(cfg.MaxConcurrent),
		cfg:         cfg,
		spawn:       func(fn func()) { go fn() },
	}
}

var errSessionNotFound = apierr.New(http.StatusNotFound, "session_not_found", fmt.Errorf("session not found"))

// cleanupBatchSize bounds one retention sweep; leftovers wait for the next tick.
const cleanupBatchSize = 500

// StartImageGeneration creates the session row (status pending) and kicks
// off the background pipeline. The call returns as soon as the row exists;
// clients poll GetStatus for the outcome.
func (ts *tryOnService) StartImageGeneration(ctx context.Context, userID, outfitID uuid.UUID, userContext gemini.UserContext) (*types.TryOnSession, error) {
	outfit, err := ts.wardrobe.GetOutfit(ctx, userID, outfitID)
	if err != nil {
		return nil, err
	}

	contextJSON, err := json.Marshal(userContext)
	if err != nil {
		return nil, apierr.New(http.StatusBadRequest, "invalid_user_context", fmt.Errorf("user context not serializable: %w", err))
	}

	now := time.Now()
	session := &types.TryOnSession{
		SessionID:       uuid.New(),
		UserID:          userID,
		OutfitID:        outfitID,
		ClothingItemIDs: outfit.ClothingItemIDs,
		UserContext:     contextJSON,
		Status:          types.TryOnStatusPending,
		MaxRetries:      3,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if _, err := ts.sessionRepo.Create(ctx, nil, session); err != nil {
		return nil, fmt.Errorf("failed to create try-on session: %w", err)
	}

	sessionID := session.SessionID
	ts.spawn(func() { ts.runGeneration(sessionID) })
	return session, nil
}

// runGeneration is the whole pipeline for one session. It runs detached
// from the creating request and must always leave the session in a
// terminal state; the deferred recover converts panics into FAILED.
func (ts *tryOnService) runGeneration(sessionID uuid.UUID) {
	ctx := context.Background()

	if err := ts.sem.Acquire(ctx, 1); err != nil {
		ts.failSession(ctx, sessionID, fmt.Sprintf("Image generation failed: %v", err))
		return
	}
	defer ts.sem.Release(1)

	defer func() {
		if r := recover(); r != nil {
			ts.log.Error("generation pipeline panicked", "session_id", sessionID, "panic", r)
			ts.failSession(ctx, sessionID, fmt.Sprintf("Image generation failed: %v", r))
		}
	}()

	session, err := ts.sessionRepo.GetByID(ctx, nil, sessionID)
	if err != nil || session == nil {
		ts.log.Error("session vanished before generation", "session_id", sessionID, "error", err)
		ts.failSession(ctx, sessionID, "Session not found")
		return
	}
	if session.Status == types.TryOnStatusCancelled {
		return
	}

	if err := ts.updateStatus(ctx, session, types.TryOnStatusInProgress, 10, nil); err != nil {
		ts.log.Error("failed to mark session in progress", "session_id", sessionID, "error", err)
		return
	}

	// Resolve the outfit and its items.
	_, items, err := ts.wardrobe.GetOutfitClothingItems(ctx, session.UserID, session.OutfitID)
	if err != nil {
		if errors.Is(err, errOutfitNotFound) {
			ts.failSession(ctx, sessionID, "Outfit not found")
		} else {
			ts.failSession(ctx, sessionID, fmt.Sprintf("Image generation failed: %v", err))
		}
		return
	}
	if len(items) == 0 {
		ts.failSession(ctx, sessionID, "No clothing items found")
		return
	}
	if ts.isCancelled(ctx, sessionID) {
		return
	}
	if err := ts.updateStatus(ctx, session, types.TryOnStatusInProgress, 30, nil); err != nil {
		return
	}

	if !ts.gateway.IsAvailable() {
		ts.failSession(ctx, sessionID, "AI service not available")
		return
	}
	if ts.isCancelled(ctx, sessionID) {
		return
	}
	if err := ts.updateStatus(ctx, session, types.TryOnStatusInProgress, 50, nil); err != nil {
		return
	}

	userContext := sessionUserContext(session)
	infos := itemInfos(items)

	generationStart := time.Now()
	imageData, err := ts.gateway.GenerateTryOnImage(ctx, infos, nil, userContext)
	if err != nil {
		ts.failSession(ctx, sessionID, fmt.Sprintf("Image generation failed: %v", err))
		return
	}
	generationSeconds := time.Since(generationStart).Seconds()

	if ts.isCancelled(ctx, sessionID) {
		return
	}
	if err := ts.updateStatus(ctx, session, types.TryOnStatusInProgress, 80, nil); err != nil {
		return
	}

	imageKey := fmt.Sprintf("%s.png", sessionID.String())
	if err := ts.bucket.UploadBytes(ctx, gcp.BucketCategoryTryOn, imageKey, imageData, "image/png"); err != nil {
		ts.log.Error("failed to store generated image", "session_id", sessionID, "error", err)
		ts.failSession(ctx, sessionID, "Failed to save generated image")
		return
	}
	imageURL := ts.bucket.GetPublicURL(gcp.BucketCategoryTryOn, imageKey)
	imagePath := ts.bucket.ObjectPath(gcp.BucketCategoryTryOn, imageKey)

	// Description is best-effort; the image already succeeded.
	description, err := ts.gateway.GenerateTryOnDescription(ctx, infos, userContext)
	if err != nil {
		ts.log.Warn("description generation failed, using fallback", "session_id", sessionID, "error", err)
		description = "Virtual try-on image generated successfully."
	}

	if ts.isCancelled(ctx, sessionID) {
		return
	}
	if err := ts.updateStatus(ctx, session, types.TryOnStatusCompleted, 100, map[string]interface{}{
		"generated_image_url":     imageURL,
		"generated_image_path":    imagePath,
		"ai_description":          description,
		"ai_model_used":           ts.gateway.Model(),
		"generation_time_seconds": generationSeconds,
	}); err != nil {
		ts.log.Error("failed to mark session completed", "session_id", sessionID, "error", err)
		return
	}
	ts.log.Info("try-on generation completed",
		"session_id", sessionID,
		"generation_time_seconds", generationSeconds,
	)
}

// updateStatus is the sole post-create session mutator. It stamps
// started_at on the first transition into in_progress and completed_at
// whenever a generated image URL is set. Re-applying the same update is
// harmless.
func (ts *tryOnService) updateStatus(ctx context.Context, session *types.TryOnSession, status types.TryOnStatus, progress int, extra map[string]interface{}) error {
	updates := map[string]interface{}{
		"status":              status,
		"progress_percentage": progress,
	}
	if status == types.TryOnStatusInProgress && session.StartedAt == nil {
		now := time.Now()
		updates["started_at"] = now
		session.StartedAt = &now
	}
	for k, v := range extra {
		updates[k] = v
	}
	if url, ok := updates["generated_image_url"].(string); ok && url != "" {
		updates["completed_at"] = time.Now()
	}
	ok, err := ts.sessionRepo.UpdateFieldsIfActive(ctx, nil, session.SessionID, updates)
	if err != nil {
		return fmt.Errorf("failed to update session status: %w", err)
	}
	if !ok {
		return fmt.Errorf("session %s is no longer active", session.SessionID)
	}
	session.Status = status
	session.ProgressPercentage = progress
	return nil
}

// failSession marks the session failed, leaving the progress where it was.
// A session that already reached a terminal state (a concurrent cancel, in
// particular) is left untouched.
func (ts *tryOnService) failSession(ctx context.Context, sessionID uuid.UUID, message string) {
	if _, err := ts.sessionRepo.UpdateFieldsIfActive(ctx, nil, sessionID, map[string]interface{}{
		"status":        types.TryOnStatusFailed,
		"error_message": message,
	}); err != nil {
		ts.log.Error("failed to mark session failed", "session_id", sessionID, "error", err)
	}
}

func (ts *tryOnService) isCancelled(ctx context.Context, sessionID uuid.UUID) bool {
	session, err := ts.sessionRepo.GetByID(ctx, nil, sessionID)
	if err != nil || session == nil {
		return false
	}
	return session.Status == types.TryOnStatusCancelled
}

func (ts *tryOnService) GetStatus(ctx context.Context, userID, sessionID uuid.UUID) (*SessionStatusView, error) {
	session, err := ts.sessionRepo.GetByIDForUser(ctx, nil, userID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if session == nil {
		return nil, errSessionNotFound
	}

	view := &SessionStatusView{
		SessionID:          session.SessionID,
		Status:             session.Status,
		ProgressPercentage: session.ProgressPercentage,
		GeneratedImageURL:  session.GeneratedImageURL,
		AIDescription:      session.AIDescription,
		ErrorMessage:       session.ErrorMessage,
		CreatedAt:          session.CreatedAt,
		CompletedAt:        session.CompletedAt,
	}
	if eta := estimateCompletionSeconds(session); eta != nil {
		view.EstimatedCompletionTime = eta
	}
	return view, nil
}

// estimateCompletionSeconds is a linear heuristic, not a measurement:
// pending sessions get a flat 60 seconds, in-progress ones half a second
// per remaining progress point. Terminal sessions get no estimate.
func estimateCompletionSeconds(session *types.TryOnSession) *int {
	switch session.Status {
	case types.TryOnStatusPending:
		eta := 60
		return &eta
	case types.TryOnStatusInProgress:
		eta := int(float64(100-session.ProgressPercentage) * 0.5)
		return &eta
	}
	return nil
}

func (ts *tryOnService) ListSessions(ctx context.Context, userID uuid.UUID, limit int) ([]*types.TryOnSession, error) {
	return ts.sessionRepo.ListByUserID(ctx, nil, userID, limit)
}

func (ts *tryOnService) DeleteSession(ctx context.Context, userID, sessionID uuid.UUID) error {
	session, err := ts.sessionRepo.GetByIDForUser(ctx, nil, userID, sessionID)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}
	if session == nil {
		return errSessionNotFound
	}
	deleted, err := ts.sessionRepo.DeleteByIDForUser(ctx, nil, userID, sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if !deleted {
		return errSessionNotFound
	}
	ts.deleteSessionImage(ctx, session)
	return nil
}

// CancelSession marks a pending or in-progress session cancelled. The
// pipeline notices at its next check and stops without further mutation.
func (ts *tryOnService) CancelSession(ctx context.Context, userID, sessionID uuid.UUID) error {
	session, err := ts.sessionRepo.GetByIDForUser(ctx, nil, userID, sessionID)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}
	if session == nil {
		return errSessionNotFound
	}
	if session.Status.Terminal() {
		return apierr.New(http.StatusConflict, "session_finished", fmt.Errorf("session already %s", session.Status))
	}
	cancelled, err := ts.sessionRepo.UpdateFieldsIfActive(ctx, nil, sessionID, map[string]interface{}{
		"status": types.TryOnStatusCancelled,
	})
	if err != nil {
		return fmt.Errorf("failed to cancel session: %w", err)
	}
	if !cancelled {
		return apierr.New(http.StatusConflict, "session_finished", fmt.Errorf("session already finished"))
	}
	return nil
}

func (ts *tryOnService) GenerateTryOn(ctx context.Context, userID, outfitID uuid.UUID, userContext gemini.UserContext, includeCompatibility bool) (*TryOnResult, error) {
	outfit, items, err := ts.wardrobe.GetOutfitClothingItems(ctx, userID, outfitID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, apierr.New(http.StatusBadRequest, "empty_outfit", fmt.Errorf("outfit has no resolvable clothing items"))
	}
	infos := itemInfos(items)

	description, err := ts.gateway.GenerateTryOnDescription(ctx, infos, userContext)
	if err != nil {
		return nil, mapGatewayErr(err)
	}

	result := &TryOnResult{
		OutfitID:    outfit.ID,
		OutfitName:  outfit.Name,
		Description: description,
		ItemCount:   len(items),
	}
	if includeCompatibility {
		// Degradable: a compatibility failure does not sink the try-on.
		analysis, cErr := ts.gateway.AnalyzeClothingCompatibility(ctx, infos)
		if cErr != nil {
			ts.log.Warn("compatibility analysis failed (omitted)", "outfit_id", outfitID, "error", cErr)
		} else {
			result.Compatibility = &analysis
		}
	}
	return result, nil
}

func (ts *tryOnService) GenerateTryOnWithImage(ctx context.Context, userID, outfitID uuid.UUID, userImage []byte) (*TryOnResult, error) {
	if len(userImage) == 0 {
		return nil, apierr.New(http.StatusBadRequest, "missing_image", fmt.Errorf("user image required"))
	}
	outfit, items, err := ts.wardrobe.GetOutfitClothingItems(ctx, userID, outfitID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, apierr.New(http.StatusBadRequest, "empty_outfit", fmt.Errorf("outfit has no resolvable clothing items"))
	}

	description, err := ts.gateway.GenerateOutfitWithImage(ctx, itemInfos(items), userImage)
	if err != nil {
		return nil, mapGatewayErr(err)
	}
	return &TryOnResult{
		OutfitID:    outfit.ID,
		OutfitName:  outfit.Name,
		Description: description,
		ItemCount:   len(items),
	}, nil
}

// GetOutfitSuggestions asks the gateway for improvement ideas. The caller
// may override occasion and weather; empty values fall back to what the
// outfit has stored.
func (ts *tryOnService) GetOutfitSuggestions(ctx context.Context, userID, outfitID uuid.UUID, occasion, weather string) ([]string, error) {
	outfit, items, err := ts.wardrobe.GetOutfitClothingItems(ctx, userID, outfitID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, apierr.New(http.StatusBadRequest, "empty_outfit", fmt.Errorf("outfit has no resolvable clothing items"))
	}
	if occasion == "" {
		occasion = outfit.Occasion
	}
	if weather == "" {
		weather = outfit.Weather
	}
	suggestions, err := ts.gateway.SuggestOutfitImprovements(ctx, itemInfos(items), occasion, weather)
	if err != nil {
		return nil, mapGatewayErr(err)
	}
	return suggestions, nil
}

func (ts *tryOnService) AIServiceStatus() AIStatus {
	rpm, tpm := ts.gateway.RateLimits()
	return AIStatus{
		Available:  ts.gateway.IsAvailable(),
		Model:      ts.gateway.Model(),
		UsageStats: ts.gateway.UsageStats(24 * time.Hour),
		RateLimits: map[string]int{
			"requests_per_minute": rpm,
			"tokens_per_minute":   tpm,
		},
	}
}

// CleanupOldSessions deletes terminal sessions older than the retention
// cutoff. Per-item failures are logged and skipped; the sweep never fails
// as a whole because one row would not delete.
func (ts *tryOnService) CleanupOldSessions(ctx context.Context) (int, error) {
	cutoff := time.Now().AddDate(0, 0, -ts.cfg.RetentionDays)
	stale, err := ts.sessionRepo.ListTerminalOlderThan(ctx, nil, cutoff, cleanupBatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list stale sessions: %w", err)
	}
	deleted := 0
	for _, session := range stale {
		if _, err := ts.sessionRepo.DeleteByID(ctx, nil, session.SessionID); err != nil {
			ts.log.Warn("failed to delete stale session (skipped)", "session_id", session.SessionID, "error", err)
			continue
		}
		ts.deleteSessionImage(ctx, session)
		deleted++
	}
	if deleted > 0 {
		ts.log.Info("session retention sweep done", "deleted", deleted, "cutoff", cutoff)
	}
	return deleted, nil
}

func (ts *tryOnService) StartCleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(ts.cfg.CleanupInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := ts.CleanupOldSessions(ctx); err != nil {
					ts.log.Error("session cleanup sweep failed", "error", err)
				}
			}
		}
	}()
}

func (ts *tryOnService) deleteSessionImage(ctx context.Context, session *types.TryOnSession) {
	if session.GeneratedImagePath == "" {
		return
	}
	key := fmt.Sprintf("%s.png", session.SessionID.String())
	if err := ts.bucket.DeleteFile(ctx, gcp.BucketCategoryTryOn, key); err != nil {
		ts.log.Warn("failed to delete generated image (ignored)", "session_id", session.SessionID, "error", err)
	}
}

func mapGatewayErr(err error) error {
	switch {
	case errors.Is(err, gemini.ErrUnavailable):
		return apierr.New(http.StatusServiceUnavailable, "ai_unavailable", err)
	case errors.Is(err, gemini.ErrRateLimited):
		return apierr.New(http.StatusTooManyRequests, "ai_rate_limited", err)
	default:
		return apierr.New(http.StatusBadGateway, "ai_request_failed", err)
	}
}

func sessionUserContext(session *types.TryOnSession) gemini.UserContext {
	uc := gemini.UserContext{}
	if len(session.UserContext) > 0 {
		_ = json.Unmarshal(session.UserContext, &uc)
	}
	return uc
}

func itemInfos(items []*types.ClothingItem) []gemini.ItemInfo {
	infos := make([]gemini.ItemInfo, 0, len(items))
	for _, item := range items {
		var colors []types.Color
		if len(item.Colors) > 0 {
			_ = json.Unmarshal(item.Colors, &colors)
		}
		names := make([]string, 0, len(colors))
		for _, c := range colors {
			names = append(names, c.Name)
		}
		infos = append(infos, gemini.ItemInfo{
			Name:        item.Name,
			Category:    item.Category,
			Brand:       item.Brand,
			Size:        item.Size,
			Description: item.Description,
			Colors:      names,
		})
	}
	return infos
}
