package di

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"gorm.io/gorm"

	clienteadapters "cliente_backend/internal/feature/cliente/adapters"
	"cliente_backend/internal/feature/cliente/adapters/document"
	"cliente_backend/internal/feature/cliente/usecase"
	"cliente_backend/internal/platform/cache"
	"cliente_backend/internal/platform/config"
	"cliente_backend/internal/platform/notify"
)

// ClienteStore carries the backends a ClienteRepository can be built on.
type ClienteStore struct {
	Kind     string // config.StoreRelational or config.StoreDocument
	DB       *gorm.DB
	Mongo    *mongo.Database
	Redis    *redis.Client // optional list cache
	CacheTTL time.Duration // 0 disables the cache
}

// NewClienteRepository builds the configured store, wrapped in the Redis list cache when possible.
func NewClienteRepository(ctx context.Context, s ClienteStore) (usecase.ClienteRepository, error) {
	var repo usecase.ClienteRepository
	switch s.Kind {
	case config.StoreRelational:
		if s.DB == nil {
			return nil, errors.New("relational cliente store requires a database")
		}
		repo = clienteadapters.NewClienteRepository(s.DB)
	case config.StoreDocument:
		if s.Mongo == nil {
			return nil, errors.New("document cliente store requires MongoDB")
		}
		docs := document.NewClienteRepository(s.Mongo)
		if err := docs.EnsureIndexes(ctx); err != nil {
			return nil, fmt.Errorf("failed to create cliente indexes: %w", err)
		}
		repo = docs
	default:
		return nil, fmt.Errorf("unknown cliente store %q", s.Kind)
	}

	if s.Redis == nil || s.CacheTTL <= 0 {
		return repo, nil
	}
	return cache.NewCachingClienteRepository(s.Redis, s.CacheTTL, repo, "clientes"), nil
}

// NewChangeNotifier returns a Redis Pub/Sub notifier when Redis is available,
// otherwise an in-process one that only reaches subscribers of this instance.
func NewChangeNotifier(rdb *redis.Client) usecase.ChangeNotifier {
	if rdb != nil {
		return notify.NewRedisNotifier(rdb, "")
	}
	slog.Warn("Redis unavailable; change feed limited to this instance")
	return notify.NewMemoryNotifier()
}
