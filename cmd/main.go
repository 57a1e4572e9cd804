package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/szonjajakab/ponpa/internal/app"
	"github.com/szonjajakab/ponpa/internal/db"
	"github.com/szonjajakab/ponpa/internal/handlers"
	"github.com/szonjajakab/ponpa/internal/middleware"
	"github.com/szonjajakab/ponpa/internal/observability"
	"github.com/szonjajakab/ponpa/internal/platform/envutil"
	"github.com/szonjajakab/ponpa/internal/platform/gcp"
	"github.com/szonjajakab/ponpa/internal/platform/gemini"
	"github.com/szonjajakab/ponpa/internal/platform/logger"
	"github.com/szonjajakab/ponpa/internal/repos"
	"github.com/szonjajakab/ponpa/internal/server"
	"github.com/szonjajakab/ponpa/internal/services"
)

func main() {
	// Logger
	logMode := envutil.String("LOG_MODE", "development")
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx := context.Background()

	// Env
	cfg := app.LoadConfig(log)

	// Tracing
	shutdownTracing := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
		Version:     cfg.Version,
	})
	defer func() {
		if shutdownTracing == nil {
			return
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Warn("Tracing shutdown failed", "error", err)
		}
	}()

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Error("Postgres auto migration failed", "error", err)
		os.Exit(1)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	userRepo := repos.NewUserRepo(thePG, log)
	userTokenRepo := repos.NewUserTokenRepo(thePG, log)
	profileRepo := repos.NewProfileRepo(thePG, log)
	clothingItemRepo := repos.NewClothingItemRepo(thePG, log)
	outfitRepo := repos.NewOutfitRepo(thePG, log)
	tryOnSessionRepo := repos.NewTryOnSessionRepo(thePG, log)

	// Services
	log.Info("Setting up Services from main...")
	bucketService, err := gcp.NewBucketService(log)
	if err != nil {
		log.Error("Could not init BucketService", "error", err)
		os.Exit(1)
	}
	geminiService, err := gemini.NewService(log, cfg.Gemini)
	if err != nil {
		log.Error("Could not init AI gateway", "error", err)
		os.Exit(1)
	}
	defer geminiService.Close()

	avatarService, err := services.NewAvatarService(log, bucketService)
	if err != nil {
		log.Error("Could not init AvatarService", "error", err)
		os.Exit(1)
	}
	authService := services.NewAuthService(thePG, log, userRepo, userTokenRepo, avatarService, cfg.JWTSecretKey, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	userService := services.NewUserService(thePG, log, userRepo, profileRepo, avatarService)
	wardrobeService := services.NewWardrobeService(thePG, log, clothingItemRepo, outfitRepo, bucketService)
	tryOnService := services.NewTryOnService(thePG, log, tryOnSessionRepo, wardrobeService, geminiService, bucketService, cfg.TryOn)
	tryOnService.StartCleanupLoop(ctx)

	// Handlers
	log.Info("Setting up handlers from main...")
	authHandler := handlers.NewAuthHandler(authService)
	userHandler := handlers.NewUserHandler(userService)
	wardrobeHandler := handlers.NewWardrobeHandler(wardrobeService)
	tryOnHandler := handlers.NewTryOnHandler(tryOnService)

	// Middleware
	log.Info("Setting up middleware from main...")
	authMiddleware := middleware.NewAuthMiddleware(log, authService)

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		AuthHandler:     authHandler,
		AuthMiddleware:  authMiddleware,
		UserHandler:     userHandler,
		WardrobeHandler: wardrobeHandler,
		TryOnHandler:    tryOnHandler,
		TracingEnabled:  cfg.TracingEnabled,
	})

	log.Info("Server listening", "port", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
