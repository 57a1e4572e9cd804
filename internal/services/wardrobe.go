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
	"github.com/szonjajakab/ponpa/internal/platform/gcp"
	"github.com/szonjajakab/ponpa/internal/platform/logger"
	"github.com/szonjajakab/ponpa/internal/repos"
	"github.com/szonjajakab/ponpa/internal/types"
)

type ClothingItemInput struct {
	Name          string        `json:"name" binding:"required"`
	Category      string        `json:"category" binding:"required"`
	Brand         string        `json:"brand"`
	Size          string        `json:"size"`
	Colors        []types.Color `json:"colors"`
	Description   string        `json:"description"`
	PurchaseDate  *time.Time    `json:"purchase_date"`
	PurchasePrice *float64      `json:"purchase_price"`
	Tags          []string      `json:"tags"`
	Condition     string        `json:"condition"`
	Notes         string        `json:"notes"`
}

type OutfitInput struct {
	Name            string      `json:"name" binding:"required"`
	Description     string      `json:"description"`
	ClothingItemIDs []uuid.UUID `json:"clothing_item_ids" binding:"required"`
	Tags            []string    `json:"tags"`
	Occasion        string      `json:"occasion"`
	Season          string      `json:"season"`
	Weather         string      `json:"weather"`
}

type WardrobeService interface {
	CreateClothingItem(ctx context.Context, userID uuid.UUID, input ClothingItemInput) (*types.ClothingItem, error)
	GetClothingItem(ctx context.Context, userID, itemID uuid.UUID) (*types.ClothingItem, error)
	ListClothingItems(ctx context.Context, userID uuid.UUID, filter repos.ClothingItemFilter) ([]*types.ClothingItem, error)
	UpdateClothingItem(ctx context.Context, userID, itemID uuid.UUID, updates map[string]interface{}) (*types.ClothingItem, error)
	DeleteClothingItem(ctx context.Context, userID, itemID uuid.UUID) error
	MarkItemWorn(ctx context.Context, userID, itemID uuid.UUID) (*types.ClothingItem, error)
	UploadItemImage(ctx context.Context, userID, itemID uuid.UUID, raw []byte, ext string) (*types.ClothingItem, error)

	CreateOutfit(ctx context.Context, userID uuid.UUID, input OutfitInput) (*types.Outfit, error)
	GetOutfit(ctx context.Context, userID, outfitID uuid.UUID) (*types.Outfit, error)
	ListOutfits(ctx context.Context, userID uuid.UUID, filter repos.OutfitFilter) ([]*types.Outfit, error)
	UpdateOutfit(ctx context.Context, userID, outfitID uuid.UUID, updates map[string]interface{}) (*types.Outfit, error)
	DeleteOutfit(ctx context.Context, userID, outfitID uuid.UUID) error
	MarkOutfitWorn(ctx context.Context, userID, outfitID uuid.UUID) (*types.Outfit, error)
	GetOutfitClothingItems(ctx context.Context, userID, outfitID uuid.UUID) (*types.Outfit, []*types.ClothingItem, error)
}

type wardrobeService struct {
	db            *gorm.DB
	log           *logger.Logger
	itemRepo      repos.ClothingItemRepo
	outfitRepo    repos.OutfitRepo
	bucketService gcp.BucketService
}

func NewWardrobeService(
	db *gorm.DB,
	log *logger.Logger,
	itemRepo repos.ClothingItemRepo,
	outfitRepo repos.OutfitRepo,
	bucketService gcp.BucketService,
) WardrobeService {
	return &wardrobeService{
		db:            db,
		log:           log.With("service", "WardrobeService"),
		itemRepo:      itemRepo,
		outfitRepo:    outfitRepo,
		bucketService: bucketService,
	}
}

var (
	errItemNotFound   = apierr.New(http.StatusNotFound, "clothing_item_not_found", fmt.Errorf("clothing item not found"))
	errOutfitNotFound = apierr.New(http.StatusNotFound, "outfit_not_found", fmt.Errorf("outfit not found"))
)

func validCategory(category string) bool {
	switch category {
	case types.CategoryTops, types.CategoryBottoms, types.CategoryDresses,
		types.CategoryOuterwear, types.CategoryShoes, types.CategoryAccessories,
		types.CategoryUnderwear, types.CategoryActivewear:
		return true
	}
	return false
}

func (ws *wardrobeService) CreateClothingItem(ctx context.Context, userID uuid.UUID, input ClothingItemInput) (*types.ClothingItem, error) {
	if !validCategory(input.Category) {
		return nil, apierr.New(http.StatusBadRequest, "invalid_category", fmt.Errorf("unknown category: %s", input.Category))
	}
	colors, err := toJSON(input.Colors)
	if err != nil {
		return nil, err
	}
	tags, err := toJSON(input.Tags)
	if err != nil {
		return nil, err
	}

	item := &types.ClothingItem{
		ID:            uuid.New(),
		UserID:        userID,
		Name:          input.Name,
		Category:      input.Category,
		Brand:         input.Brand,
		Size:          input.Size,
		Colors:        colors,
		Description:   input.Description,
		PurchaseDate:  input.PurchaseDate,
		PurchasePrice: input.PurchasePrice,
		Tags:          tags,
		Condition:     input.Condition,
		Notes:         input.Notes,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	return ws.itemRepo.Create(ctx, nil, item)
}

func (ws *wardrobeService) GetClothingItem(ctx context.Context, userID, itemID uuid.UUID) (*types.ClothingItem, error) {
	item, err := ws.itemRepo.GetByIDForUser(ctx, nil, userID, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to load clothing item: %w", err)
	}
	if item == nil {
		return nil, errItemNotFound
	}
	return item, nil
}

func (ws *wardrobeService) ListClothingItems(ctx context.Context, userID uuid.UUID, filter repos.ClothingItemFilter) ([]*types.ClothingItem, error) {
	return ws.itemRepo.ListByUserID(ctx, nil, userID, filter)
}

func (ws *wardrobeService) UpdateClothingItem(ctx context.Context, userID, itemID uuid.UUID, updates map[string]interface{}) (*types.ClothingItem, error) {
	allowed := map[string]bool{
		"name": true, "category": true, "brand": true, "size": true,
		"colors": true, "description": true, "purchase_date": true,
		"purchase_price": true, "tags": true, "is_favorite": true,
		"condition": true, "notes": true,
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
	if cat, ok := filtered["category"].(string); ok && !validCategory(cat) {
		return nil, apierr.New(http.StatusBadRequest, "invalid_category", fmt.Errorf("unknown category: %s", cat))
	}
	for _, jsonField := range []string{"colors", "tags"} {
		if v, ok := filtered[jsonField]; ok {
			encoded, err := toJSON(v)
			if err != nil {
				return nil, err
			}
			filtered[jsonField] = encoded
		}
	}

	updated, err := ws.itemRepo.UpdateFields(ctx, nil, userID, itemID, filtered)
	if err != nil {
		return nil, fmt.Errorf("failed to update clothing item: %w", err)
	}
	if !updated {
		return nil, errItemNotFound
	}
	return ws.GetClothingItem(ctx, userID, itemID)
}

func (ws *wardrobeService) DeleteClothingItem(ctx context.Context, userID, itemID uuid.UUID) error {
	item, err := ws.GetClothingItem(ctx, userID, itemID)
	if err != nil {
		return err
	}
	deleted, err := ws.itemRepo.DeleteByIDForUser(ctx, nil, userID, itemID)
	if err != nil {
		return fmt.Errorf("failed to delete clothing item: %w", err)
	}
	if !deleted {
		return errItemNotFound
	}
	// Best-effort object cleanup after the row is gone.
	var urls []string
	if len(item.ImageURLs) > 0 {
		_ = json.Unmarshal(item.ImageURLs, &urls)
	}
	if len(urls) > 0 {
		if err := ws.bucketService.DeletePrefix(ctx, gcp.BucketCategoryWardrobe, itemID.String()+"/"); err != nil {
			ws.log.Warn("failed to delete item images (ignored)", "item_id", itemID, "error", err)
		}
	}
	return nil
}

func (ws *wardrobeService) MarkItemWorn(ctx context.Context, userID, itemID uuid.UUID) (*types.ClothingItem, error) {
	item, err := ws.GetClothingItem(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	updated, err := ws.itemRepo.UpdateFields(ctx, nil, userID, itemID, map[string]interface{}{
		"wear_count": item.WearCount + 1,
		"last_worn":  now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to mark item worn: %w", err)
	}
	if !updated {
		return nil, errItemNotFound
	}
	return ws.GetClothingItem(ctx, userID, itemID)
}

func (ws *wardrobeService) UploadItemImage(ctx context.Context, userID, itemID uuid.UUID, raw []byte, ext string) (*types.ClothingItem, error) {
	item, err := ws.GetClothingItem(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}
	if ext == "" {
		ext = "jpg"
	}
	key := fmt.Sprintf("%s/%d.%s", itemID.String(), time.Now().UnixNano(), ext)
	if err := ws.bucketService.UploadBytes(ctx, gcp.BucketCategoryWardrobe, key, raw, ""); err != nil {
		return nil, fmt.Errorf("failed to upload item image: %w", err)
	}
	url := ws.bucketService.GetPublicURL(gcp.BucketCategoryWardrobe, key)

	var urls []string
	if len(item.ImageURLs) > 0 {
		_ = json.Unmarshal(item.ImageURLs, &urls)
	}
	urls = append(urls, url)
	encoded, err := toJSON(urls)
	if err != nil {
		return nil, err
	}
	if _, err := ws.itemRepo.UpdateFields(ctx, nil, userID, itemID, map[string]interface{}{"image_urls": encoded}); err != nil {
		return nil, fmt.Errorf("failed to persist item image url: %w", err)
	}
	return ws.GetClothingItem(ctx, userID, itemID)
}

func (ws *wardrobeService) CreateOutfit(ctx context.Context, userID uuid.UUID, input OutfitInput) (*types.Outfit, error) {
	if len(input.ClothingItemIDs) == 0 {
		return nil, apierr.New(http.StatusBadRequest, "empty_outfit", fmt.Errorf("outfit needs at least one clothing item"))
	}
	// Every referenced item must belong to the caller.
	items, err := ws.itemRepo.GetByIDsForUser(ctx, nil, userID, input.ClothingItemIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve clothing items: %w", err)
	}
	if len(items) != len(input.ClothingItemIDs) {
		return nil, apierr.New(http.StatusBadRequest, "unknown_clothing_items", fmt.Errorf("one or more clothing items not found"))
	}

	itemIDs, err := toJSON(input.ClothingItemIDs)
	if err != nil {
		return nil, err
	}
	tags, err := toJSON(input.Tags)
	if err != nil {
		return nil, err
	}
	outfit := &types.Outfit{
		ID:              uuid.New(),
		UserID:          userID,
		Name:            input.Name,
		Description:     input.Description,
		ClothingItemIDs: itemIDs,
		Tags:            tags,
		Occasion:        input.Occasion,
		Season:          input.Season,
		Weather:         input.Weather,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}
	return ws.outfitRepo.Create(ctx, nil, outfit)
}

func (ws *wardrobeService) GetOutfit(ctx context.Context, userID, outfitID uuid.UUID) (*types.Outfit, error) {
	outfit, err := ws.outfitRepo.GetByIDForUser(ctx, nil, userID, outfitID)
	if err != nil {
		return nil, fmt.Errorf("failed to load outfit: %w", err)
	}
	if outfit == nil {
		return nil, errOutfitNotFound
	}
	return outfit, nil
}

func (ws *wardrobeService) ListOutfits(ctx context.Context, userID uuid.UUID, filter repos.OutfitFilter) ([]*types.Outfit, error) {
	return ws.outfitRepo.ListByUserID(ctx, nil, userID, filter)
}

func (ws *wardrobeService) UpdateOutfit(ctx context.Context, userID, outfitID uuid.UUID, updates map[string]interface{}) (*types.Outfit, error) {
	allowed := map[string]bool{
		"name": true, "description": true, "clothing_item_ids": true,
		"tags": true, "occasion": true, "season": true, "weather": true,
		"is_favorite": true,
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
	for _, jsonField := range []string{"clothing_item_ids", "tags"} {
		if v, ok := filtered[jsonField]; ok {
			encoded, err := toJSON(v)
			if err != nil {
				return nil, err
			}
			filtered[jsonField] = encoded
		}
	}

	updated, err := ws.outfitRepo.UpdateFields(ctx, nil, userID, outfitID, filtered)
	if err != nil {
		return nil, fmt.Errorf("failed to update outfit: %w", err)
	}
	if !updated {
		return nil, errOutfitNotFound
	}
	return ws.GetOutfit(ctx, userID, outfitID)
}

func (ws *wardrobeService) DeleteOutfit(ctx context.Context, userID, outfitID uuid.UUID) error {
	deleted, err := ws.outfitRepo.DeleteByIDForUser(ctx, nil, userID, outfitID)
	if err != nil {
		return fmt.Errorf("failed to delete outfit: %w", err)
	}
	if !deleted {
		return errOutfitNotFound
	}
	return nil
}

func (ws *wardrobeService) MarkOutfitWorn(ctx context.Context, userID, outfitID uuid.UUID) (*types.Outfit, error) {
	outfit, err := ws.GetOutfit(ctx, userID, outfitID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	if _, err := ws.outfitRepo.UpdateFields(ctx, nil, userID, outfitID, map[string]interface{}{
		"wear_count": outfit.WearCount + 1,
		"last_worn":  now,
	}); err != nil {
		return nil, fmt.Errorf("failed to mark outfit worn: %w", err)
	}

	// Wearing an outfit counts a wear for each of its items too.
	for _, itemID := range outfitItemIDs(outfit) {
		if _, err := ws.MarkItemWorn(ctx, userID, itemID); err != nil {
			ws.log.Warn("failed to mark outfit item worn (skipped)", "item_id", itemID, "error", err)
		}
	}
	return ws.GetOutfit(ctx, userID, outfitID)
}

// GetOutfitClothingItems resolves the outfit's item references. Items that
// no longer exist are skipped with a warning rather than failing the whole
// resolution.
func (ws *wardrobeService) GetOutfitClothingItems(ctx context.Context, userID, outfitID uuid.UUID) (*types.Outfit, []*types.ClothingItem, error) {
	outfit, err := ws.GetOutfit(ctx, userID, outfitID)
	if err != nil {
		return nil, nil, err
	}
	ids := outfitItemIDs(outfit)
	items, err := ws.itemRepo.GetByIDsForUser(ctx, nil, userID, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve clothing items: %w", err)
	}
	if len(items) < len(ids) {
		found := make(map[uuid.UUID]bool, len(items))
		for _, item := range items {
			found[item.ID] = true
		}
		for _, id := range ids {
			if !found[id] {
				ws.log.Warn("outfit references missing clothing item (skipped)", "outfit_id", outfitID, "item_id", id)
			}
		}
	}
	return outfit, items, nil
}

func outfitItemIDs(outfit *types.Outfit) []uuid.UUID {
	var ids []uuid.UUID
	if len(outfit.ClothingItemIDs) > 0 {
		_ = json.Unmarshal(outfit.ClothingItemIDs, &ids)
	}
	return ids
}

func toJSON(v interface{}) (datatypes.JSON, error) {
	if v == nil {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, apierr.New(http.StatusBadRequest, "invalid_json_field", fmt.Errorf("not serializable: %w", err))
	}
	return datatypes.JSON(raw), nil
}
