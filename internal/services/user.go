package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/szonjajakab/ponpa/internal/platform/apierr"
	"github.com/szonjajakab/ponpa/internal/platform/logger"
	"github.com/szonjajakab/ponpa/internal/repos"
	"github.com/szonjajakab/ponpa/internal/types"
)

// ProfileInput is the write shape for profile upserts.
type ProfileInput struct {
	Bio              string                  `json:"bio"`
	Location         string                  `json:"location"`
	Website          string                  `json:"website"`
	Measurements     *types.BodyMeasurements `json:"measurements,omitempty"`
	StylePreferences *types.StylePreferences `json:"style_preferences,omitempty"`
	PrivacySettings  map[string]bool         `json:"privacy_settings,omitempty"`
}

type UserService interface {
	GetUser(ctx context.Context, userID uuid.UUID) (*types.User, error)
	UpdateUser(ctx context.Context, userID uuid.UUID, updates map[string]interface{}) (*types.User, error)
	UploadAvatar(ctx context.Context, userID uuid.UUID, raw []byte) (*types.User, error)
	RemoveAvatar(ctx context.Context, userID uuid.UUID) error
	GetProfile(ctx context.Context, userID uuid.UUID) (*types.Profile, error)
	UpsertProfile(ctx context.Context, userID uuid.UUID, input ProfileInput) (*types.Profile, error)
	DeleteProfile(ctx context.Context, userID uuid.UUID) error
}

type userService struct {
	db            *gorm.DB
	log           *logger.Logger
	userRepo      repos.UserRepo
	profileRepo   repos.ProfileRepo
	avatarService AvatarService
}

func NewUserService(
	db *gorm.DB,
	log *logger.Logger,
	userRepo repos.UserRepo,
	profileRepo repos.ProfileRepo,
	avatarService AvatarService,
) UserService {
	return &userService{
		db:            db,
		log:           log.With("service", "UserService"),
		userRepo:      userRepo,
		profileRepo:   profileRepo,
		avatarService: avatarService,
	}
}

var errUserNotFound = apierr.New(http.StatusNotFound, "user_not_found", fmt.Errorf("user not found"))

func (us *userService) GetUser(ctx context.Context, userID uuid.UUID) (*types.User, error) {
	user, err := us.userRepo.GetByID(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return nil, errUserNotFound
	}
	return user, nil
}

// UpdateUser applies a whitelisted partial update. Identity and security
// fields are not writable through this path.
func (us *userService) UpdateUser(ctx context.Context, userID uuid.UUID, updates map[string]interface{}) (*types.User, error) {
	allowed := map[string]bool{
		"display_name": true,
		"first_name":   true,
		"last_name":    true,
		"preferences":  true,
	}
	filtered := map[string]interface{}{}
	for k, v := range updates {
		if allowed[k] {
			filtered[k] = v
		}
	}
	if len(filtered) == 0 {
		return nil, apierr.New(http.StatusBadRequest, "no_updatable_fields", fmt.Errorf("no updatable fields provided"))
	}
	if prefs, ok := filtered["preferences"]; ok {
		raw, err := json.Marshal(prefs)
		if err != nil {
			return nil, apierr.New(http.StatusBadRequest, "invalid_preferences", fmt.Errorf("preferences not serializable: %w", err))
		}
		filtered["preferences"] = datatypes.JSON(raw)
	}

	if err := us.userRepo.UpdateFields(ctx, nil, userID, filtered); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return us.GetUser(ctx, userID)
}

func (us *userService) UploadAvatar(ctx context.Context, userID uuid.UUID, raw []byte) (*types.User, error) {
	user, err := us.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := us.avatarService.CreateAndUploadUserAvatarFromImage(ctx, user, raw); err != nil {
		return nil, apierr.New(http.StatusBadRequest, "invalid_avatar_image", err)
	}
	if err := us.userRepo.UpdateFields(ctx, nil, userID, map[string]interface{}{"avatar_url": user.AvatarURL}); err != nil {
		return nil, fmt.Errorf("failed to persist avatar url: %w", err)
	}
	return user, nil
}

func (us *userService) RemoveAvatar(ctx context.Context, userID uuid.UUID) error {
	user, err := us.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if err := us.avatarService.RemoveUserAvatar(ctx, user); err != nil {
		return fmt.Errorf("failed to remove avatar: %w", err)
	}
	return us.userRepo.UpdateFields(ctx, nil, userID, map[string]interface{}{"avatar_url": ""})
}

func (us *userService) GetProfile(ctx context.Context, userID uuid.UUID) (*types.Profile, error) {
	profile, err := us.profileRepo.GetByUserID(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	if profile == nil {
		return nil, apierr.New(http.StatusNotFound, "profile_not_found", fmt.Errorf("profile not found"))
	}
	return profile, nil
}

func (us *userService) UpsertProfile(ctx context.Context, userID uuid.UUID, input ProfileInput) (*types.Profile, error) {
	measurements, err := marshalJSONField(input.Measurements)
	if err != nil {
		return nil, apierr.New(http.StatusBadRequest, "invalid_measurements", err)
	}
	stylePrefs, err := marshalJSONField(input.StylePreferences)
	if err != nil {
		return nil, apierr.New(http.StatusBadRequest, "invalid_style_preferences", err)
	}
	privacy, err := marshalJSONField(input.PrivacySettings)
	if err != nil {
		return nil, apierr.New(http.StatusBadRequest, "invalid_privacy_settings", err)
	}

	existing, err := us.profileRepo.GetByUserID(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	if existing == nil {
		profile := &types.Profile{
			ID:               uuid.New(),
			UserID:           userID,
			Bio:              input.Bio,
			Location:         input.Location,
			Website:          input.Website,
			Measurements:     measurements,
			StylePreferences: stylePrefs,
			PrivacySettings:  privacy,
			CreatedAt:        time.Now(),
			UpdatedAt:        time.Now(),
		}
		return us.profileRepo.Create(ctx, nil, profile)
	}

	updates := map[string]interface{}{
		"bio":      input.Bio,
		"location": input.Location,
		"website":  input.Website,
	}
	if measurements != nil {
		updates["measurements"] = measurements
	}
	if stylePrefs != nil {
		updates["style_preferences"] = stylePrefs
	}
	if privacy != nil {
		updates["privacy_settings"] = privacy
	}
	if err := us.profileRepo.UpdateFields(ctx, nil, userID, updates); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return us.profileRepo.GetByUserID(ctx, nil, userID)
}

func (us *userService) DeleteProfile(ctx context.Context, userID uuid.UUID) error {
	deleted, err := us.profileRepo.DeleteByUserID(ctx, nil, userID)
	if err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	if !deleted {
		return apierr.New(http.StatusNotFound, "profile_not_found", fmt.Errorf("profile not found"))
	}
	return nil
}

func marshalJSONField(v interface{}) (datatypes.JSON, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case *types.BodyMeasurements:
		if val == nil {
			return nil, nil
		}
	case *types.StylePreferences:
		if val == nil {
			return nil, nil
		}
	case map[string]bool:
		if val == nil {
			return nil, nil
		}
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("not serializable: %w", err)
	}
	return datatypes.JSON(raw), nil
}
