package app

import (
	"time"

	"github.com/szonjajakab/ponpa/internal/platform/envutil"
	"github.com/szonjajakab/ponpa/internal/platform/gemini"
	"github.com/szonjajakab/ponpa/internal/platform/logger"
	"github.com/szonjajakab/ponpa/internal/services"
)

// Config is the full environment surface of the server. Bucket and
// Postgres settings are read by their own services; everything else
// lands here.
type Config struct {
	Port        string
	Environment string
	Version     string

	JWTSecretKey    string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	Gemini gemini.Config
	TryOn  services.TryOnConfig

	TracingEnabled bool
	ServiceName    string
}

func LoadConfig(log *logger.Logger) Config {
	log.Info("Loading environment variables...")
	cfg := Config{
		Port:        envutil.String("PORT", "8080"),
		Environment: envutil.String("APP_ENV", "development"),
		Version:     envutil.String("APP_VERSION", "dev"),

		JWTSecretKey:    envutil.String("JWT_SECRET_KEY", "defaultsecret"),
		AccessTokenTTL:  envutil.Duration("ACCESS_TOKEN_TTL", time.Hour),
		RefreshTokenTTL: envutil.Duration("REFRESH_TOKEN_TTL", 24*time.Hour),

		Gemini: gemini.Config{
			APIKey:      envutil.String("GOOGLE_AI_API_KEY", ""),
			Model:       envutil.String("GOOGLE_AI_MODEL", "gemini-2.5-flash-image-preview"),
			Temperature: float32(envutil.Float("GOOGLE_AI_TEMPERATURE", 0.7)),
			MaxTokens:   int32(envutil.Int("GOOGLE_AI_MAX_TOKENS", 2048)),
			RPM:         envutil.Int("GOOGLE_AI_RATE_LIMIT_RPM", 15),
			TPM:         envutil.Int("GOOGLE_AI_RATE_LIMIT_TPM", 32000),
			Timeout:     envutil.Duration("GOOGLE_AI_TIMEOUT", 30*time.Second),
		},
		TryOn: services.TryOnConfig{
			MaxConcurrent:   int64(envutil.Int("TRYON_MAX_CONCURRENT", 4)),
			RetentionDays:   envutil.Int("TRYON_SESSION_RETENTION_DAYS", 30),
			CleanupInterval: envutil.Duration("TRYON_CLEANUP_INTERVAL", 6*time.Hour),
		},

		TracingEnabled: envutil.Bool("OTEL_ENABLED", false),
		ServiceName:    envutil.String("OTEL_SERVICE_NAME", "ponpa"),
	}
	if cfg.JWTSecretKey == "defaultsecret" {
		log.Warn("JWT_SECRET_KEY not set, using insecure default")
	}
	return cfg
}
