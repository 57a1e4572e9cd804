package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type User struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Email         string         `gorm:"uniqueIndex;not null" json:"email"`
	Password      string         `gorm:"not null" json:"-"`
	DisplayName   string         `gorm:"column:display_name" json:"display_name"`
	FirstName     string         `gorm:"column:first_name" json:"first_name"`
	LastName      string         `gorm:"column:last_name" json:"last_name"`
	AvatarURL     string         `gorm:"column:avatar_url" json:"avatar_url"`
	Status        string         `gorm:"column:status;not null;default:active" json:"status"` // active|suspended
	EmailVerified bool           `gorm:"column:email_verified;not null;default:false" json:"email_verified"`
	LastLogin     *time.Time     `gorm:"column:last_login" json:"last_login,omitempty"`
	Preferences   datatypes.JSON `gorm:"type:jsonb;column:preferences" json:"preferences"`
	CreatedAt     time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null" json:"updated_at"`
}

func (User) TableName() string { return "user" }

type UserToken struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Token     string    `gorm:"not null;index" json:"-"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (UserToken) TableName() string { return "user_token" }
