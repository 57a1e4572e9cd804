package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/szonjajakab/ponpa/internal/platform/logger"
	"github.com/szonjajakab/ponpa/internal/types"
)

type OutfitFilter struct {
	Occasion  string
	Season    string
	Favorites bool
	Limit     int
	Offset    int
}

type OutfitRepo interface {
	Create(ctx context.Context, tx *gorm.DB, outfit *types.Outfit) (*types.Outfit, error)
	GetByIDForUser(ctx context.Context, tx *gorm.DB, userID, outfitID uuid.UUID) (*types.Outfit, error)
	ListByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID, filter OutfitFilter) ([]*types.Outfit, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, userID, outfitID uuid.UUID, updates map[string]interface{}) (bool, error)
	DeleteByIDForUser(ctx context.Context, tx *gorm.DB, userID, outfitID uuid.UUID) (bool, error)
}

type outfitRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewOutfitRepo(db *gorm.DB, baseLog *logger.Logger) OutfitRepo {
	return &outfitRepo{db: db, log: baseLog.With("repo", "OutfitRepo")}
}

func (r *outfitRepo) Create(ctx context.Context, tx *gorm.DB, outfit *types.Outfit) (*types.Outfit, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if outfit == nil {
		return nil, nil
	}
	if err := transaction.WithContext(ctx).Create(outfit).Error; err != nil {
		return nil, err
	}
	return outfit, nil
}

func (r *outfitRepo) GetByIDForUser(ctx context.Context, tx *gorm.DB, userID, outfitID uuid.UUID) (*types.Outfit, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil || outfitID == uuid.Nil {
		return nil, nil
	}
	var outfit types.Outfit
	err := transaction.WithContext(ctx).
		Where("id = ? AND user_id = ?", outfitID, userID).
		First(&outfit).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &outfit, nil
}

func (r *outfitRepo) ListByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID, filter OutfitFilter) ([]*types.Outfit, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var outfits []*types.Outfit
	if userID == uuid.Nil {
		return outfits, nil
	}
	q := transaction.WithContext(ctx).Where("user_id = ?", userID)
	if filter.Occasion != "" {
		q = q.Where("occasion = ?", filter.Occasion)
	}
	if filter.Season != "" {
		q = q.Where("season = ?", filter.Season)
	}
	if filter.Favorites {
		q = q.Where("is_favorite = ?", true)
	}
	q = q.Order("created_at DESC")
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}
	if err := q.Find(&outfits).Error; err != nil {
		return nil, err
	}
	return outfits, nil
}

func (r *outfitRepo) UpdateFields(ctx context.Context, tx *gorm.DB, userID, outfitID uuid.UUID, updates map[string]interface{}) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil || outfitID == uuid.Nil {
		return false, nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	res := transaction.WithContext(ctx).
		Model(&types.Outfit{}).
		Where("id = ? AND user_id = ?", outfitID, userID).
		Updates(updates)
	return res.RowsAffected > 0, res.Error
}

func (r *outfitRepo) DeleteByIDForUser(ctx context.Context, tx *gorm.DB, userID, outfitID uuid.UUID) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil || outfitID == uuid.Nil {
		return false, nil
	}
	res := transaction.WithContext(ctx).
		Where("id = ? AND user_id = ?", outfitID, userID).
		Delete(&types.Outfit{})
	return res.RowsAffected > 0, res.Error
}
