package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Outfit struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	Name            string         `gorm:"not null" json:"name"`
	Description     string         `gorm:"column:description" json:"description"`
	ClothingItemIDs datatypes.JSON `gorm:"type:jsonb;column:clothing_item_ids" json:"clothing_item_ids"` // []uuid
	Tags            datatypes.JSON `gorm:"type:jsonb;column:tags" json:"tags"`                           // []string
	Occasion        string         `gorm:"column:occasion" json:"occasion"`
	Season          string         `gorm:"column:season" json:"season"`
	Weather         string         `gorm:"column:weather" json:"weather"`
	ImageURL        string         `gorm:"column:image_url" json:"image_url"`
	IsFavorite      bool           `gorm:"column:is_favorite;not null;default:false" json:"is_favorite"`
	WearCount       int            `gorm:"column:wear_count;not null;default:0" json:"wear_count"`
	LastWorn        *time.Time     `gorm:"column:last_worn" json:"last_worn,omitempty"`
	CreatedAt       time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"not null" json:"updated_at"`
}

func (Outfit) TableName() string { return "outfit" }
