// Command sweep purges expired sessions once and exits. It is meant to run as a scheduled job.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"cliente_backend/internal/app/di"
	authadapters "cliente_backend/internal/feature/auth/adapters"
	authusecase "cliente_backend/internal/feature/auth/usecase"
	"cliente_backend/internal/platform/config"
	platformdb "cliente_backend/internal/platform/db"
	jwtmw "cliente_backend/internal/platform/jwt"
	platformredis "cliente_backend/internal/platform/redis"
)

func main() {
	config.LoadEnv()
	cfg, err := config.LoadConfigFromEnv()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(config.NewLogger(cfg.LogLevel))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	db, err := platformdb.OpenDB(platformdb.LoadConfigFromEnv())
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}

	var rdb *redisv9.Client
	if rcfg := platformredis.LoadConfigFromEnv(); rcfg.Enabled() {
		if rdb, err = platformredis.NewRedisClient(ctx, rcfg); err != nil {
			slog.Error("failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		defer func() { _ = rdb.Close() }()
	}

	uc := authusecase.NewAuthUsecase(
		authadapters.NewUserRepository(db),
		di.NewSessionRepository(rdb, db),
		jwtmw.NewGenerator(cfg.JWTSecret, cfg.AccessTokenTTL),
		cfg.RefreshTokenTTL,
	)

	n, err := uc.PurgeExpiredSessions(ctx)
	if err != nil {
		slog.Error("sweep failed", "error", err)
		os.Exit(1)
	}
	slog.Info("sweep ok", "purged", n)
}
