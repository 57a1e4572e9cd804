package handlers

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/szonjajakab/ponpa/internal/repos"
	"github.com/szonjajakab/ponpa/internal/services"
)

type WardrobeHandler struct {
	wardrobeService services.WardrobeService
}

func NewWardrobeHandler(wardrobeService services.WardrobeService) *WardrobeHandler {
	return &WardrobeHandler{wardrobeService: wardrobeService}
}

func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", fmt.Errorf("invalid %s", name))
		return uuid.Nil, false
	}
	return id, true
}

func queryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func (wh *WardrobeHandler) CreateClothingItem(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var input services.ClothingItemInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	item, err := wh.wardrobeService.CreateClothingItem(c.Request.Context(), userID, input)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (wh *WardrobeHandler) GetClothingItem(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	itemID, ok := pathUUID(c, "item_id")
	if !ok {
		return
	}
	item, err := wh.wardrobeService.GetClothingItem(c.Request.Context(), userID, itemID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, item)
}

func (wh *WardrobeHandler) ListClothingItems(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	filter := repos.ClothingItemFilter{
		Category:  c.Query("category"),
		Brand:     c.Query("brand"),
		Favorites: c.Query("favorites") == "true",
		Limit:     queryInt(c, "limit", 50),
		Offset:    queryInt(c, "offset", 0),
	}
	items, err := wh.wardrobeService.ListClothingItems(c.Request.Context(), userID, filter)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"items": items, "total": len(items)})
}

func (wh *WardrobeHandler) UpdateClothingItem(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	itemID, ok := pathUUID(c, "item_id")
	if !ok {
		return
	}
	var updates map[string]interface{}
	if err := c.ShouldBindJSON(&updates); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", fmt.Errorf("invalid request body"))
		return
	}
	item, err := wh.wardrobeService.UpdateClothingItem(c.Request.Context(), userID, itemID, updates)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, item)
}

func (wh *WardrobeHandler) DeleteClothingItem(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	itemID, ok := pathUUID(c, "item_id")
	if !ok {
		return
	}
	if err := wh.wardrobeService.DeleteClothingItem(c.Request.Context(), userID, itemID); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"message": "clothing item deleted"})
}

func (wh *WardrobeHandler) MarkItemWorn(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	itemID, ok := pathUUID(c, "item_id")
	if !ok {
		return
	}
	item, err := wh.wardrobeService.MarkItemWorn(c.Request.Context(), userID, itemID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, item)
}

func (wh *WardrobeHandler) UploadItemImage(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	itemID, ok := pathUUID(c, "item_id")
	if !ok {
		return
	}
	raw, filename, ok := readUploadedImage(c)
	if !ok {
		return
	}
	ext := strings.TrimPrefix(filepath.Ext(filename), ".")
	if ext == "" {
		ext = "png"
	}
	item, err := wh.wardrobeService.UploadItemImage(c.Request.Context(), userID, itemID, raw, ext)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, item)
}

func (wh *WardrobeHandler) CreateOutfit(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var input services.OutfitInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	outfit, err := wh.wardrobeService.CreateOutfit(c.Request.Context(), userID, input)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, outfit)
}

func (wh *WardrobeHandler) GetOutfit(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	outfitID, ok := pathUUID(c, "outfit_id")
	if !ok {
		return
	}
	outfit, err := wh.wardrobeService.GetOutfit(c.Request.Context(), userID, outfitID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, outfit)
}

func (wh *WardrobeHandler) ListOutfits(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	filter := repos.OutfitFilter{
		Occasion:  c.Query("occasion"),
		Season:    c.Query("season"),
		Favorites: c.Query("favorites") == "true",
		Limit:     queryInt(c, "limit", 50),
		Offset:    queryInt(c, "offset", 0),
	}
	outfits, err := wh.wardrobeService.ListOutfits(c.Request.Context(), userID, filter)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"outfits": outfits, "total": len(outfits)})
}

func (wh *WardrobeHandler) UpdateOutfit(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	outfitID, ok := pathUUID(c, "outfit_id")
	if !ok {
		return
	}
	var updates map[string]interface{}
	if err := c.ShouldBindJSON(&updates); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", fmt.Errorf("invalid request body"))
		return
	}
	outfit, err := wh.wardrobeService.UpdateOutfit(c.Request.Context(), userID, outfitID, updates)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, outfit)
}

func (wh *WardrobeHandler) DeleteOutfit(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	outfitID, ok := pathUUID(c, "outfit_id")
	if !ok {
		return
	}
	if err := wh.wardrobeService.DeleteOutfit(c.Request.Context(), userID, outfitID); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"message": "outfit deleted"})
}

func (wh *WardrobeHandler) MarkOutfitWorn(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	outfitID, ok := pathUUID(c, "outfit_id")
	if !ok {
		return
	}
	outfit, err := wh.wardrobeService.MarkOutfitWorn(c.Request.Context(), userID, outfitID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, outfit)
}

func (wh *WardrobeHandler) GetOutfitItems(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	outfitID, ok := pathUUID(c, "outfit_id")
	if !ok {
		return
	}
	outfit, items, err := wh.wardrobeService.GetOutfitClothingItems(c.Request.Context(), userID, outfitID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"outfit": outfit, "items": items})
}
