package server

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/szonjajakab/ponpa/internal/handlers"
	"github.com/szonjajakab/ponpa/internal/middleware"
	"github.com/szonjajakab/ponpa/internal/platform/envutil"
)

type RouterConfig struct {
	AuthHandler     *handlers.AuthHandler
	AuthMiddleware  *middleware.AuthMiddleware
	UserHandler     *handlers.UserHandler
	WardrobeHandler *handlers.WardrobeHandler
	TryOnHandler    *handlers.TryOnHandler
	TracingEnabled  bool
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	if cfg.TracingEnabled {
		router.Use(otelgin.Middleware(envutil.String("OTEL_SERVICE_NAME", "ponpa")))
	}

	origins := strings.Split(envutil.String("CORS_ALLOW_ORIGINS", "http://localhost:3000"), ",")
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", handlers.HealthCheck)
	api := router.Group("/api/v1")
	{
		api.POST("/auth/register", cfg.AuthHandler.Register)
		api.POST("/auth/login", cfg.AuthHandler.Login)
	}

	// ===============
	// || Protected ||
	// ===============
	protected := router.Group("/api/v1")
	protected.Use(cfg.AuthMiddleware.RequireAuth())

	// Auth
	protected.POST("/auth/refresh", cfg.AuthHandler.Refresh)
	protected.POST("/auth/logout", cfg.AuthHandler.Logout)

	// User
	protected.GET("/users/me", cfg.UserHandler.GetMe)
	protected.PUT("/users/me", cfg.UserHandler.UpdateMe)
	protected.POST("/users/me/avatar", cfg.UserHandler.UploadAvatar)
	protected.DELETE("/users/me/avatar", cfg.UserHandler.RemoveAvatar)
	protected.GET("/users/me/profile", cfg.UserHandler.GetProfile)
	protected.POST("/users/me/profile", cfg.UserHandler.UpsertProfile)
	protected.PUT("/users/me/profile", cfg.UserHandler.UpsertProfile)
	protected.DELETE("/users/me/profile", cfg.UserHandler.DeleteProfile)

	// Wardrobe: clothing items
	protected.POST("/clothing-items", cfg.WardrobeHandler.CreateClothingItem)
	protected.GET("/clothing-items", cfg.WardrobeHandler.ListClothingItems)
	protected.GET("/clothing-items/:item_id", cfg.WardrobeHandler.GetClothingItem)
	protected.PUT("/clothing-items/:item_id", cfg.WardrobeHandler.UpdateClothingItem)
	protected.DELETE("/clothing-items/:item_id", cfg.WardrobeHandler.DeleteClothingItem)
	protected.POST("/clothing-items/:item_id/worn", cfg.WardrobeHandler.MarkItemWorn)
	protected.POST("/clothing-items/:item_id/image", cfg.WardrobeHandler.UploadItemImage)

	// Wardrobe: outfits
	protected.POST("/outfits", cfg.WardrobeHandler.CreateOutfit)
	protected.GET("/outfits", cfg.WardrobeHandler.ListOutfits)
	protected.GET("/outfits/:outfit_id", cfg.WardrobeHandler.GetOutfit)
	protected.PUT("/outfits/:outfit_id", cfg.WardrobeHandler.UpdateOutfit)
	protected.DELETE("/outfits/:outfit_id", cfg.WardrobeHandler.DeleteOutfit)
	protected.POST("/outfits/:outfit_id/worn", cfg.WardrobeHandler.MarkOutfitWorn)
	protected.GET("/outfits/:outfit_id/items", cfg.WardrobeHandler.GetOutfitItems)

	// Try-on
	protected.POST("/try-on", cfg.TryOnHandler.TryOn)
	protected.POST("/try-on-with-image", cfg.TryOnHandler.TryOnWithImage)
	protected.GET("/outfit-suggestions/:outfit_id", cfg.TryOnHandler.OutfitSuggestions)
	protected.POST("/generate-try-on-image", cfg.TryOnHandler.GenerateTryOnImage)
	protected.GET("/try-on-status/:session_id", cfg.TryOnHandler.GetStatus)
	protected.GET("/my-try-on-sessions", cfg.TryOnHandler.ListSessions)
	protected.DELETE("/try-on-session/:session_id", cfg.TryOnHandler.DeleteSession)
	protected.POST("/try-on-session/:session_id/cancel", cfg.TryOnHandler.CancelSession)
	protected.GET("/ai-service/status", cfg.TryOnHandler.AIServiceStatus)

	return router
}
