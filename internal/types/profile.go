package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Profile holds the extended, try-on relevant user data: body measurements and
// style preferences feed prompt construction and size recommendations.
type Profile struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID           uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	Bio              string         `gorm:"column:bio" json:"bio"`
	Location         string         `gorm:"column:location" json:"location"`
	Website          string         `gorm:"column:website" json:"website"`
	Measurements     datatypes.JSON `gorm:"type:jsonb;column:measurements" json:"measurements"`
	StylePreferences datatypes.JSON `gorm:"type:jsonb;column:style_preferences" json:"style_preferences"`
	PrivacySettings  datatypes.JSON `gorm:"type:jsonb;column:privacy_settings" json:"privacy_settings"`
	CreatedAt        time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"not null" json:"updated_at"`
}

func (Profile) TableName() string { return "profile" }

// BodyMeasurements is the shape stored in Profile.Measurements.
type BodyMeasurements struct {
	Unit          string   `json:"unit,omitempty"` // cm|in
	Height        *float64 `json:"height,omitempty"`
	Weight        *float64 `json:"weight,omitempty"`
	ChestBust     *float64 `json:"chest_bust,omitempty"`
	Waist         *float64 `json:"waist,omitempty"`
	Hips          *float64 `json:"hips,omitempty"`
	ShoulderWidth *float64 `json:"shoulder_width,omitempty"`
	ShirtSize     string   `json:"shirt_size,omitempty"`
	PantsSize     string   `json:"pants_size,omitempty"`
	ShoeSize      string   `json:"shoe_size,omitempty"`
}

// StylePreferences is the shape stored in Profile.StylePreferences.
type StylePreferences struct {
	Styles            []string `json:"styles,omitempty"`
	FitPreference     string   `json:"fit_preference,omitempty"` // slim|regular|loose
	PreferredColors   []string `json:"preferred_colors,omitempty"`
	AvoidedColors     []string `json:"avoided_colors,omitempty"`
	PreferredBrands   []string `json:"preferred_brands,omitempty"`
	PrimaryOccasions  []string `json:"primary_occasions,omitempty"`
	BudgetRangeMin    *float64 `json:"budget_range_min,omitempty"`
	BudgetRangeMax    *float64 `json:"budget_range_max,omitempty"`
	SustainabilityPri bool     `json:"sustainability_important,omitempty"`
}
