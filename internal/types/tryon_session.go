package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// TryOnStatus is the lifecycle state of a try-on image generation session.
type TryOnStatus string

const (
	TryOnStatusPending    TryOnStatus = "pending"
	TryOnStatusInProgress TryOnStatus = "in_progress"
	TryOnStatusCompleted  TryOnStatus = "completed"
	TryOnStatusFailed     TryOnStatus = "failed"
	TryOnStatusCancelled  TryOnStatus = "cancelled"
)

// Terminal reports whether no further transitions are permitted.
func (s TryOnStatus) Terminal() bool {
	switch s {
	case TryOnStatusCompleted, TryOnStatusFailed, TryOnStatusCancelled:
		return true
	}
	return false
}

// CanTransition reports whether moving from s to next is a legal transition.
// pending -> in_progress -> completed|failed; cancelled is reachable from any
// non-terminal state.
func (s TryOnStatus) CanTransition(next TryOnStatus) bool {
	if s.Terminal() {
		return false
	}
	switch next {
	case TryOnStatusCancelled:
		return true
	case TryOnStatusInProgress:
		return s == TryOnStatusPending || s == TryOnStatusInProgress
	case TryOnStatusCompleted, TryOnStatusFailed:
		return s == TryOnStatusInProgress || s == TryOnStatusPending
	case TryOnStatusPending:
		return false
	}
	return false
}

// TryOnSession is one try-on image generation job. The row is created by the
// session service with status pending and from then on mutated only by the
// generation pipeline, via partial status updates.
type TryOnSession struct {
	SessionID       uuid.UUID      `gorm:"type:uuid;primaryKey;column:session_id" json:"session_id"`
	UserID          uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	OutfitID        uuid.UUID      `gorm:"type:uuid;not null" json:"outfit_id"`
	ClothingItemIDs datatypes.JSON `gorm:"type:jsonb;column:clothing_item_ids" json:"clothing_item_ids"` // []uuid
	UserContext     datatypes.JSON `gorm:"type:jsonb;column:user_context" json:"user_context,omitempty"`
	UserImageURL    string         `gorm:"column:user_image_url" json:"user_image_url,omitempty"`

	Status             TryOnStatus `gorm:"column:status;not null;index" json:"status"`
	ProgressPercentage int         `gorm:"column:progress_percentage;not null;default:0" json:"progress_percentage"`

	GeneratedImageURL  string `gorm:"column:generated_image_url" json:"generated_image_url,omitempty"`
	GeneratedImagePath string `gorm:"column:generated_image_path" json:"generated_image_path,omitempty"`
	AIDescription      string `gorm:"column:ai_description" json:"ai_description,omitempty"`

	ErrorMessage string `gorm:"column:error_message" json:"error_message,omitempty"`
	RetryCount   int    `gorm:"column:retry_count;not null;default:0" json:"retry_count"`
	MaxRetries   int    `gorm:"column:max_retries;not null;default:3" json:"max_retries"`

	AIModelUsed           string   `gorm:"column:ai_model_used" json:"ai_model_used,omitempty"`
	GenerationTimeSeconds *float64 `gorm:"column:generation_time_seconds" json:"generation_time_seconds,omitempty"`
	TokensUsed            *int     `gorm:"column:tokens_used" json:"tokens_used,omitempty"`

	CreatedAt   time.Time  `gorm:"not null;index" json:"created_at"`
	StartedAt   *time.Time `gorm:"column:started_at" json:"started_at,omitempty"`
	CompletedAt *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
	UpdatedAt   time.Time  `gorm:"not null" json:"updated_at"`
}

func (TryOnSession) TableName() string { return "tryon_session" }
