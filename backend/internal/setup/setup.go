package setup

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/sawatantra/api/backend/internal/handler"
	"github.com/sawatantra/api/backend/internal/service"
	"github.com/sawatantra/api/backend/internal/storage/cache"
	"github.com/sawatantra/api/backend/internal/storage/pg"
	"github.com/sawatantra/api/backend/internal/utils/email"
	"github.com/sawatantra/api/backend/internal/utils/gemini"
	"github.com/sawatantra/api/shared/config"
	"github.com/sawatantra/api/shared/jwt"
	"github.com/sawatantra/api/shared/logger"
	mw "github.com/sawatantra/api/shared/middleware"
)

// Dependencies struct to hold all initialized dependencies.
type Dependencies struct {
	Storage        *pg.Storage
	Handler        *handler.Handler
	AuthMiddleware *mw.Auth
	Redis          *redis.Client // nil when redis is not configured
	Assistant      gemini.Assistant
	Config         *config.Config
}

// SetupDependencies initializes all dependencies required for the application.
func SetupDependencies(ctx context.Context, cfg *config.Config) (*Dependencies, error) {
	storage, err := pg.New(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var redisClient *redis.Client
	if cfg.Private.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Private.Redis.Addr,
			Password: cfg.Private.Redis.Password,
			DB:       cfg.Private.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			// names are resolved from postgres while redis is unreachable
			logger.Log.Warn("redis ping failed", "addr", cfg.Private.Redis.Addr, "error", err)
		}
	}
	directoryCache := cache.NewDirectory(storage, redisClient, cfg.Public.DirectoryCacheTTL)

	assistant, err := gemini.New(ctx, cfg.Private.GeminiAPIKey, cfg.Public.Assistant)
	if err != nil {
		storage.Cleanup()
		return nil, fmt.Errorf("init assistant: %w", err)
	}

	emailSender := email.New(&cfg.Private.Email)
	jwtService := jwt.New(cfg.JwtKey(), cfg.JwtTTL())

	auth := service.NewAuth(storage, emailSender, jwtService, &cfg.Public)
	poker := service.NewPoker(storage, directoryCache)
	directory := service.NewDirectory(storage)
	knowledge := service.NewKnowledge(storage, assistant, &cfg.Public.Assistant)

	health := []handler.HealthCheck{{Name: "postgres", Checker: storage}}
	if redisClient != nil {
		health = append(health, handler.HealthCheck{
			Name:     "redis",
			Optional: true,
			Checker:  handler.PingFunc(func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }),
		})
	}

	h := handler.New(auth, poker, directory, knowledge, health, cfg)

	return &Dependencies{
		Storage:        storage,
		Handler:        h,
		AuthMiddleware: mw.NewAuth(jwtService),
		Redis:          redisClient,
		Assistant:      assistant,
		Config:         cfg,
	}, nil
}

// Close releases every external resource held by the dependencies.
func (d *Dependencies) Close() {
	if err := d.Assistant.Close(); err != nil {
		logger.Log.Error("failed to close assistant", "error", err)
	}
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			logger.Log.Error("failed to close redis client", "error", err)
		}
	}
	if err := d.Storage.Cleanup(); err != nil {
		logger.Log.Error("failed to close storage", "error", err)
	}
}
