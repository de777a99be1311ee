//go:build integration

package postgres_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jeovahfialho/papertrader/internal/config"
	"github.com/jeovahfialho/papertrader/internal/domain"
	"github.com/jeovahfialho/papertrader/internal/service"
	"github.com/jeovahfialho/papertrader/internal/storage/postgres"
	"github.com/jeovahfialho/papertrader/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run with: DATABASE_URL=postgres://... go test -tags integration ./internal/storage/postgres/
func setupPostgresStore(t *testing.T) *postgres.Store {
	t.Helper()

	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}

	require.NoError(t, postgres.Migrate(url))

	db, err := postgres.NewDB(&config.Config{
		DatabaseURL:         url,
		DatabaseMaxConns:    8,
		DatabaseMinConns:    1,
		DatabaseMaxConnLife: time.Hour,
	})
	require.NoError(t, err)

	store := postgres.NewStore(db)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func createUser(t *testing.T, store *postgres.Store, cash string) int64 {
	t.Helper()

	id, err := store.CreateUser(context.Background(), "it-"+uuid.NewString()[:8], "hash", decimal.RequireFromString(cash))
	require.NoError(t, err)
	return id
}

func TestConcurrentFullSellsLockUserRow(t *testing.T) {
	store := setupPostgresStore(t)
	quotes := testutil.NewStaticQuotes().Set("AAPL", "Apple Inc.", "150.00")
	trades := service.NewTradeService(store, quotes, nil)
	ctx := context.Background()
	userID := createUser(t, store, "10000.00")

	_, err := trades.Buy(ctx, userID, "AAPL", 10)
	require.NoError(t, err)

	const sellers = 8
	var wg sync.WaitGroup
	errs := make([]error, sellers)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = trades.Sell(ctx, userID, "AAPL", 10)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrInsufficientShares)
	}
	assert.Equal(t, 1, succeeded)

	user, err := store.UserByID(ctx, userID)
	require.NoError(t, err)
	assert.True(t, user.Cash.Equal(decimal.NewFromInt(10000)), user.Cash.String())

	ledger, err := store.Trades(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, ledger, 2)
}

func TestConcurrentBuysNeverOverspend(t *testing.T) {
	store := setupPostgresStore(t)
	quotes := testutil.NewStaticQuotes().Set("AAPL", "Apple Inc.", "100.00")
	trades := service.NewTradeService(store, quotes, nil)
	ctx := context.Background()
	userID := createUser(t, store, "1000.00")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = trades.Buy(ctx, userID, "AAPL", 1)
		}()
	}
	wg.Wait()

	user, err := store.UserByID(ctx, userID)
	require.NoError(t, err)
	assert.True(t, user.Cash.IsZero(), user.Cash.String())

	ledger, err := store.Trades(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, ledger, 10)
}

func TestNumericColumnsDoNotDrift(t *testing.T) {
	store := setupPostgresStore(t)
	quotes := testutil.NewStaticQuotes()
	trades := service.NewTradeService(store, quotes, nil)
	ctx := context.Background()
	userID := createUser(t, store, "10000.00")
	prices := []string{"0.0001", "33.3333", "150.07", "1.01"}

	for i := 0; i < 100; i++ {
		quotes.Set("XYZ", "XYZ Corp", prices[i%len(prices)])
		shares := int64(i%5 + 1)

		_, err := trades.Buy(ctx, userID, "XYZ", shares)
		require.NoError(t, err)
		_, err = trades.Sell(ctx, userID, "XYZ", shares)
		require.NoError(t, err)
	}

	user, err := store.UserByID(ctx, userID)
	require.NoError(t, err)
	assert.True(t, user.Cash.Equal(decimal.NewFromInt(10000)), user.Cash.String())

	ledger, err := store.Trades(ctx, userID)
	require.NoError(t, err)
	require.Len(t, ledger, 200)
	assert.True(t, ledger[len(ledger)-1].Price.Equal(decimal.RequireFromString("0.0001")))
}
