package services

import (
	"bytes"
	"context"
	"fmt"
	"hash/fnv"
	"image"
	"image/color"
	"os"
	"strings"
	"time"

	_ "image/jpeg"
	_ "image/png"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/google/uuid"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"

	"github.com/szonjajakab/ponpa/internal/platform/gcp"
	"github.com/szonjajakab/ponpa/internal/platform/logger"
	"github.com/szonjajakab/ponpa/internal/types"
)

// Background palette for generated initial avatars. The color for a given
// user is stable: picked by hashing the user ID.
var avatarPalette = []color.NRGBA{
	{R: 0x4C, G: 0x6E, B: 0xF5, A: 0xFF},
	{R: 0xE8, G: 0x59, B: 0x0C, A: 0xFF},
	{R: 0x0C, G: 0xA6, B: 0x78, A: 0xFF},
	{R: 0xAE, G: 0x3E, B: 0xC9, A: 0xFF},
	{R: 0xF0, G: 0x8C, B: 0x00, A: 0xFF},
	{R: 0x15, G: 0xAA, B: 0xBF, A: 0xFF},
	{R: 0xE6, G: 0x49, B: 0x80, A: 0xFF},
	{R: 0x74, G: 0x8F, B: 0xFC, A: 0xFF},
}

type AvatarService interface {
	CreateAndUploadUserAvatar(ctx context.Context, user *types.User) error
	CreateAndUploadUserAvatarFromImage(ctx context.Context, user *types.User, raw []byte) error
	GenerateUserAvatar(user *types.User) (bytes.Buffer, error)
	RemoveUserAvatar(ctx context.Context, user *types.User) error
}

type avatarService struct {
	log           *logger.Logger
	bucketService gcp.BucketService
	fontFace      font.Face
}

func NewAvatarService(log *logger.Logger, bucketService gcp.BucketService) (AvatarService, error) {
	serviceLog := log.With("service", "AvatarService")

	fontPath := strings.TrimSpace(os.Getenv("AVATAR_FONT"))
	if fontPath == "" {
		return nil, fmt.Errorf("env var AVATAR_FONT is empty")
	}
	serviceLog.Info("Loading avatar font", "font", fontPath)

	face, err := loadFontFace(fontPath, 206)
	if err != nil {
		return nil, fmt.Errorf("could not load avatar font: %w", err)
	}

	return &avatarService{
		log:           serviceLog,
		bucketService: bucketService,
		fontFace:      face,
	}, nil
}

func (as *avatarService) CreateAndUploadUserAvatar(ctx context.Context, user *types.User) error {
	buf, err := as.GenerateUserAvatar(user)
	if err != nil {
		return err
	}
	return as.uploadAvatar(ctx, user, buf.Bytes())
}

func (as *avatarService) CreateAndUploadUserAvatarFromImage(ctx context.Context, user *types.User, raw []byte) error {
	if user == nil || user.ID == uuid.Nil {
		return fmt.Errorf("user required")
	}
	processed, err := processUploadedAvatar(raw, 512)
	if err != nil {
		return err
	}
	return as.uploadAvatar(ctx, user, processed.Bytes())
}

// uploadAvatar stores the new object under a versioned key so CDNs and
// browsers never serve stale content, then sweeps older versions.
func (as *avatarService) uploadAvatar(ctx context.Context, user *types.User, data []byte) error {
	newKey := fmt.Sprintf("%s/%d.png", user.ID.String(), time.Now().UnixNano())

	if err := as.bucketService.UploadBytes(ctx, gcp.BucketCategoryAvatar, newKey, data, "image/png"); err != nil {
		return fmt.Errorf("failed to upload user avatar: %w", err)
	}
	user.AvatarURL = as.bucketService.GetPublicURL(gcp.BucketCategoryAvatar, newKey)

	// Best-effort: remove older versions after the new one is in place.
	keys, err := as.bucketService.ListKeys(ctx, gcp.BucketCategoryAvatar, user.ID.String()+"/")
	if err != nil {
		as.log.Warn("failed to list old avatars (ignored)", "error", err)
		return nil
	}
	newObjectPath := as.bucketService.ObjectPath(gcp.BucketCategoryAvatar, newKey)
	for _, k := range keys {
		if k == newObjectPath {
			continue
		}
		trimmed := strings.TrimPrefix(k, string(gcp.BucketCategoryAvatar)+"/")
		if err := as.bucketService.DeleteFile(ctx, gcp.BucketCategoryAvatar, trimmed); err != nil {
			as.log.Warn("failed to delete old avatar (ignored)", "key", k, "error", err)
		}
	}
	return nil
}

func (as *avatarService) RemoveUserAvatar(ctx context.Context, user *types.User) error {
	if user == nil || user.ID == uuid.Nil {
		return fmt.Errorf("user required")
	}
	if err := as.bucketService.DeletePrefix(ctx, gcp.BucketCategoryAvatar, user.ID.String()+"/"); err != nil {
		return fmt.Errorf("failed to delete avatar objects: %w", err)
	}
	user.AvatarURL = ""
	return nil
}

func (as *avatarService) GenerateUserAvatar(user *types.User) (bytes.Buffer, error) {
	const size = 512

	dc := gg.NewContext(size, size)

	dc.DrawCircle(float64(size)/2, float64(size)/2, float64(size)/2)
	dc.Clip()

	dc.SetColor(pickAvatarColor(user.ID))
	dc.DrawRectangle(0, 0, float64(size), float64(size))
	dc.Fill()

	initials := computeInitials(user)
	dc.SetFontFace(as.fontFace)
	tw, th := dc.MeasureString(initials)
	cx, cy := float64(size)/2, float64(size)/2

	dc.SetColor(color.White)
	dc.DrawString(initials, cx-(tw/2)+5, cy+(th/2)-10)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return buf, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return buf, nil
}

func processUploadedAvatar(raw []byte, size int) (bytes.Buffer, error) {
	var out bytes.Buffer

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return out, fmt.Errorf("decode image: %w", err)
	}

	// Center-crop to square.
	b := img.Bounds()
	w := b.Dx()
	h := b.Dy()
	side := w
	if h < w {
		side = h
	}
	x0 := b.Min.X + (w-side)/2
	y0 := b.Min.Y + (h-side)/2

	cropRect := image.Rect(0, 0, side, side)
	cropped := image.NewRGBA(cropRect)
	draw.Draw(cropped, cropRect, img, image.Point{X: x0, Y: y0}, draw.Src)

	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.CatmullRom.Scale(dst, dst.Bounds(), cropped, cropped.Bounds(), draw.Over, nil)

	dc := gg.NewContext(size, size)
	dc.DrawCircle(float64(size)/2, float64(size)/2, float64(size)/2)
	dc.Clip()
	dc.DrawImage(dst, 0, 0)

	if err := dc.EncodePNG(&out); err != nil {
		return out, fmt.Errorf("encode png: %w", err)
	}
	return out, nil
}

func pickAvatarColor(id uuid.UUID) color.NRGBA {
	h := fnv.New32a()
	_, _ = h.Write(id[:])
	return avatarPalette[int(h.Sum32())%len(avatarPalette)]
}

func computeInitials(user *types.User) string {
	first := strings.TrimSpace(user.FirstName)
	last := strings.TrimSpace(user.LastName)
	if first == "" && last == "" {
		if dn := strings.TrimSpace(user.DisplayName); dn != "" {
			return strings.ToUpper(dn[:1])
		}
		return "?"
	}
	initials := ""
	if first != "" {
		initials += strings.ToUpper(first[:1])
	}
	if last != "" {
		initials += strings.ToUpper(last[:1])
	}
	return initials
}

func loadFontFace(fontPath string, size float64) (font.Face, error) {
	fontBytes, err := os.ReadFile(fontPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read font file: %w", err)
	}
	parsedFont, err := truetype.Parse(fontBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse TTF: %w", err)
	}
	return truetype.NewFace(parsedFont, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	}), nil
}
