package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Clothing categories mirror the mobile client picker.
const (
	CategoryTops        = "tops"
	CategoryBottoms     = "bottoms"
	CategoryDresses     = "dresses"
	CategoryOuterwear   = "outerwear"
	CategoryShoes       = "shoes"
	CategoryAccessories = "accessories"
	CategoryUnderwear   = "underwear"
	CategoryActivewear  = "activewear"
)

// Color is an element of ClothingItem.Colors.
type Color struct {
	Name    string `json:"name"`
	HexCode string `json:"hex_code,omitempty"`
}

type ClothingItem struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID        uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	Name          string         `gorm:"not null" json:"name"`
	Category      string         `gorm:"not null;index" json:"category"`
	Brand         string         `gorm:"column:brand" json:"brand"`
	Size          string         `gorm:"column:size" json:"size"`
	Colors        datatypes.JSON `gorm:"type:jsonb;column:colors" json:"colors"`     // []Color
	Description   string         `gorm:"column:description" json:"description"`
	ImageURLs     datatypes.JSON `gorm:"type:jsonb;column:image_urls" json:"image_urls"` // []string
	PurchaseDate  *time.Time     `gorm:"column:purchase_date" json:"purchase_date,omitempty"`
	PurchasePrice *float64       `gorm:"column:purchase_price" json:"purchase_price,omitempty"`
	Tags          datatypes.JSON `gorm:"type:jsonb;column:tags" json:"tags"` // []string
	IsFavorite    bool           `gorm:"column:is_favorite;not null;default:false" json:"is_favorite"`
	WearCount     int            `gorm:"column:wear_count;not null;default:0" json:"wear_count"`
	LastWorn      *time.Time     `gorm:"column:last_worn" json:"last_worn,omitempty"`
	Condition     string         `gorm:"column:condition" json:"condition"`
	Notes         string         `gorm:"column:notes" json:"notes"`
	CreatedAt     time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null" json:"updated_at"`
}

func (ClothingItem) TableName() string { return "clothing_item" }
