package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jeovahfialho/papertrader/internal/config"
	"github.com/jeovahfialho/papertrader/pkg/metrics"
)

const (
	connectTimeout  = 10 * time.Second
	maxConnIdleTime = 30 * time.Minute
)

// DB owns the pgx pool shared by every ledger query.
type DB struct {
	pool *pgxpool.Pool
}

// NewDB opens the pool and pings it once so a bad DATABASE_URL fails at boot.
func NewDB(cfg *config.Config) (*DB, error) {
	poolConfig, err := newPoolConfig(cfg)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("erro ao criar pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("erro ao conectar: %w", err)
	}

	db := &DB{pool: pool}
	db.reportPoolStats()
	return db, nil
}

func newPoolConfig(cfg *config.Config) (*pgxpool.Config, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("erro ao parsear config: %w", err)
	}

	if cfg.DatabaseMinConns > cfg.DatabaseMaxConns {
		return nil, fmt.Errorf("DATABASE_MIN_CONNS (%d) maior que DATABASE_MAX_CONNS (%d)",
			cfg.DatabaseMinConns, cfg.DatabaseMaxConns)
	}

	poolConfig.MaxConns = cfg.DatabaseMaxConns
	poolConfig.MinConns = cfg.DatabaseMinConns
	poolConfig.MaxConnLifetime = cfg.DatabaseMaxConnLife
	poolConfig.MaxConnIdleTime = maxConnIdleTime

	return poolConfig, nil
}

func (db *DB) Pool() *pgxpool.Pool {
	return db.pool
}

func (db *DB) Close() {
	db.pool.Close()
}

// HealthCheck pings the pool and refreshes the pool gauges for /ready.
func (db *DB) HealthCheck(ctx context.Context) error {
	err := db.pool.Ping(ctx)
	db.reportPoolStats()
	return err
}

func (db *DB) reportPoolStats() {
	stat := db.pool.Stat()
	metrics.RecordPoolStats(stat.TotalConns(), stat.AcquiredConns(), stat.IdleConns())
}
