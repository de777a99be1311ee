package bootstrap

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jeovahfialho/papertrader/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenStoreSQLite(t *testing.T) {
	cfg := &config.Config{
		DatabaseDriver: config.DriverSQLite,
		SQLitePath:     filepath.Join(t.TempDir(), "finance.db"),
	}

	require.NoError(t, Migrate(cfg))

	store, err := OpenStore(cfg)
	require.NoError(t, err)
	defer store.Close()

	assert.NoError(t, store.HealthCheck(context.Background()))
}

func TestOpenStoreUnknownDriver(t *testing.T) {
	cfg := &config.Config{DatabaseDriver: "oracle"}

	_, err := OpenStore(cfg)
	assert.Error(t, err)
	assert.Error(t, Migrate(cfg))
}
