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

// ClothingItemFilter narrows ListByUserID. Zero values mean "no filter".
type ClothingItemFilter struct {
	Category   string
	Brand      string
	Favorites  bool
	Limit      int
	Offset     int
}

type ClothingItemRepo interface {
	Create(ctx context.Context, tx *gorm.DB, item *types.ClothingItem) (*types.ClothingItem, error)
	GetByIDForUser(ctx context.Context, tx *gorm.DB, userID, itemID uuid.UUID) (*types.ClothingItem, error)
	GetByIDsForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, itemIDs []uuid.UUID) ([]*types.ClothingItem, error)
	ListByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID, filter ClothingItemFilter) ([]*types.ClothingItem, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, userID, itemID uuid.UUID, updates map[string]interface{}) (bool, error)
	DeleteByIDForUser(ctx context.Context, tx *gorm.DB, userID, itemID uuid.UUID) (bool, error)
}

type clothingItemRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewClothingItemRepo(db *gorm.DB, baseLog *logger.Logger) ClothingItemRepo {
	return &clothingItemRepo{db: db, log: baseLog.With("repo", "ClothingItemRepo")}
}

func (r *clothingItemRepo) Create(ctx context.Context, tx *gorm.DB, item *types.ClothingItem) (*types.ClothingItem, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if item == nil {
		return nil, nil
	}
	if err := transaction.WithContext(ctx).Create(item).Error; err != nil {
		return nil, err
	}
	return item, nil
}

func (r *clothingItemRepo) GetByIDForUser(ctx context.Context, tx *gorm.DB, userID, itemID uuid.UUID) (*types.ClothingItem, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil || itemID == uuid.Nil {
		return nil, nil
	}
	var item types.ClothingItem
	err := transaction.WithContext(ctx).
		Where("id = ? AND user_id = ?", itemID, userID).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *clothingItemRepo) GetByIDsForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, itemIDs []uuid.UUID) ([]*types.ClothingItem, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var items []*types.ClothingItem
	if userID == uuid.Nil || len(itemIDs) == 0 {
		return items, nil
	}
	err := transaction.WithContext(ctx).
		Where("user_id = ? AND id IN ?", userID, itemIDs).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *clothingItemRepo) ListByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID, filter ClothingItemFilter) ([]*types.ClothingItem, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var items []*types.ClothingItem
	if userID == uuid.Nil {
		return items, nil
	}
	q := transaction.WithContext(ctx).Where("user_id = ?", userID)
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if filter.Brand != "" {
		q = q.Where("brand = ?", filter.Brand)
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
	if err := q.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *clothingItemRepo) UpdateFields(ctx context.Context, tx *gorm.DB, userID, itemID uuid.UUID, updates map[string]interface{}) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil || itemID == uuid.Nil {
		return false, nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	res := transaction.WithContext(ctx).
		Model(&types.ClothingItem{}).
		Where("id = ? AND user_id = ?", itemID, userID).
		Updates(updates)
	return res.RowsAffected > 0, res.Error
}

func (r *clothingItemRepo) DeleteByIDForUser(ctx context.Context, tx *gorm.DB, userID, itemID uuid.UUID) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil || itemID == uuid.Nil {
		return false, nil
	}
	res := transaction.WithContext(ctx).
		Where("id = ? AND user_id = ?", itemID, userID).
		Delete(&types.ClothingItem{})
	return res.RowsAffected > 0, res.Error
}
