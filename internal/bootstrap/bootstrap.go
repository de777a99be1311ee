// Package bootstrap turns configuration into connected infrastructure shared
// by the server and the admin CLI.
package bootstrap

import (
	"fmt"

	"github.com/jeovahfialho/papertrader/internal/config"
	"github.com/jeovahfialho/papertrader/internal/quote"
	"github.com/jeovahfialho/papertrader/internal/storage"
	"github.com/jeovahfialho/papertrader/internal/storage/cache"
	"github.com/jeovahfialho/papertrader/internal/storage/postgres"
	"github.com/jeovahfialho/papertrader/internal/storage/sqlite"
	"github.com/jeovahfialho/papertrader/pkg/logger"
	"go.uber.org/zap"
)

// Migrate brings the configured database schema up to date.
func Migrate(cfg *config.Config) error {
	switch cfg.DatabaseDriver {
	case config.DriverPostgres:
		return postgres.Migrate(cfg.DatabaseURL)
	case config.DriverSQLite:
		store, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return err
		}
		return store.Close()
	default:
		return fmt.Errorf("driver de banco desconhecido: %q", cfg.DatabaseDriver)
	}
}

// OpenStore migrates and connects the configured ledger store.
func OpenStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.DatabaseDriver {
	case config.DriverPostgres:
		if err := postgres.Migrate(cfg.DatabaseURL); err != nil {
			return nil, err
		}

		db, err := postgres.NewDB(cfg)
		if err != nil {
			return nil, fmt.Errorf("erro ao conectar PostgreSQL: %w", err)
		}

		logger.Info("conectado ao PostgreSQL")
		return postgres.NewStore(db), nil

	case config.DriverSQLite:
		store, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}

		logger.Info("usando SQLite", zap.String("path", cfg.SQLitePath))
		return store, nil

	default:
		return nil, fmt.Errorf("driver de banco desconhecido: %q", cfg.DatabaseDriver)
	}
}

func ConnectRedis(cfg *config.Config) (*cache.RedisCache, error) {
	redisCache, err := cache.NewRedisCache(cfg)
	if err != nil {
		return nil, err
	}

	logger.Info("conectado ao Redis")
	return redisCache, nil
}

// Quotes wraps the upstream quote client with the redis cache.
func Quotes(cfg *config.Config, redisCache *cache.RedisCache) *quote.Cached {
	return quote.NewCached(quote.NewClient(cfg), redisCache, cfg.QuoteCacheTTL)
}
