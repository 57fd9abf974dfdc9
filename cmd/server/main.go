package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"cliente_backend/internal/app/di"
	"cliente_backend/internal/app/router"
	authadapters "cliente_backend/internal/feature/auth/adapters"
	authhandler "cliente_backend/internal/feature/auth/transport/handler"
	authusecase "cliente_backend/internal/feature/auth/usecase"
	clientehandler "cliente_backend/internal/feature/cliente/transport/handler"
	clienteusecase "cliente_backend/internal/feature/cliente/usecase"
	dashboardhandler "cliente_backend/internal/feature/dashboard/transport/handler"
	"cliente_backend/internal/platform/config"
	platformdb "cliente_backend/internal/platform/db"
	"cliente_backend/internal/platform/http/handler"
	jwtmw "cliente_backend/internal/platform/jwt"
	"cliente_backend/internal/platform/mongodb"
	platformredis "cliente_backend/internal/platform/redis"
	"cliente_backend/internal/shared/ratelimiter"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// .envを読み込む
	config.LoadEnv()
	cfg, err := config.LoadConfigFromEnv()
	if err != nil {
		return err
	}
	slog.SetDefault(config.NewLogger(cfg.LogLevel))

	// JWT_SECRET未設定では全リクエストが認証エラーになるため起動しない
	if cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET is not set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// db
	db, err := platformdb.OpenDB(platformdb.LoadConfigFromEnv())
	if err != nil {
		return err
	}

	// Redis（任意）
	var rdb *redisv9.Client
	if rcfg := platformredis.LoadConfigFromEnv(); rcfg.Enabled() {
		if tmp, err := platformredis.NewRedisClient(ctx, rcfg); err != nil {
			slog.Warn("Redis unavailable. Running without cache.")
		} else {
			rdb = tmp
			defer func() {
				if err := rdb.Close(); err != nil {
					slog.Error("failed to close Redis client", "error", err)
				}
			}()
		}
	}

	// MongoDB（CLIENTE_STORE=document の場合のみ）
	var mdb *mongo.Database
	if cfg.ClienteStore == config.StoreDocument {
		client, database, err := mongodb.Connect(ctx, mongodb.LoadConfigFromEnv())
		if err != nil {
			return err
		}
		mdb = database
		defer func() {
			if err := client.Disconnect(context.Background()); err != nil {
				slog.Error("failed to disconnect MongoDB", "error", err)
			}
		}()
	}

	// Repository
	userRepo := authadapters.NewUserRepository(db)
	sessionRepo := di.NewSessionRepository(rdb, db)
	clienteRepo, err := di.NewClienteRepository(ctx, di.ClienteStore{
		Kind: cfg.ClienteStore, DB: db, Mongo: mdb, Redis: rdb, CacheTTL: cfg.ListCacheTTL,
	})
	if err != nil {
		return err
	}

	// Usecase
	jwtGen := jwtmw.NewGenerator(cfg.JWTSecret, cfg.AccessTokenTTL)
	authUC := authusecase.NewAuthUsecase(userRepo, sessionRepo, jwtGen, cfg.RefreshTokenTTL)
	clienteUC := clienteusecase.NewClienteUsecase(clienteRepo, di.NewChangeNotifier(rdb))

	// Handler
	checks := map[string]handler.Pinger{
		"db": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if rdb != nil {
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	if mdb != nil {
		checks["mongodb"] = func(ctx context.Context) error { return mdb.Client().Ping(ctx, nil) }
	}

	clienteH := clientehandler.NewClienteHandler(clienteUC)

	// ルータ生成
	r := router.NewRouter(router.Handlers{
		Auth:      authhandler.NewAuthHandler(authUC),
		Cliente:   clienteH,
		Dashboard: dashboardhandler.NewDashboardHandler(authUC, clienteUC),
		Ready:     handler.Ready(checks),
	}, router.Options{
		JWTSecret:   cfg.JWTSecret,
		Sessions:    authUC,
		AuthLimiter: ratelimiter.NewRateLimiter(cfg.AuthRateLimit, time.Minute),
		CORSOrigins: cfg.CORSAllowedOrigins,
	})

	go sweepSessions(ctx, authUC, cfg.SessionSweepEvery)

	srv := newHTTPServer(":"+cfg.Port, r, clienteH.CloseStreams)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", srv.Addr, "cliente_store", cfg.ClienteStore, "redis", rdb != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newHTTPServer はシグナルとは独立したリクエストcontextを持つサーバーを生成します。
// 通常のリクエストは Shutdown 中も完了まで処理され、onShutdown でSSEなどの長寿命接続を閉じます。
func newHTTPServer(addr string, h http.Handler, onShutdown ...func()) *http.Server {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	for _, f := range onShutdown {
		srv.RegisterOnShutdown(f)
	}
	return srv
}

type sessionPurger interface {
	PurgeExpiredSessions(ctx context.Context) (int64, error)
}

// sweepSessions は期限切れセッションを定期的に削除します。
func sweepSessions(ctx context.Context, p sessionPurger, every time.Duration) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := p.PurgeExpiredSessions(ctx)
			if err != nil {
				slog.Warn("session sweep failed", "error", err)
				continue
			}
			slog.Info("session sweep", "purged", n)
		}
	}
}
