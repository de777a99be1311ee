package quote

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jeovahfialho/papertrader/internal/domain"
	"github.com/jeovahfialho/papertrader/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSymbols struct {
	symbols []string
	err     error
}

func (s staticSymbols) HeldSymbols(context.Context) ([]string, error) {
	return s.symbols, s.err
}

func TestWarmerRun(t *testing.T) {
	upstream := testutil.NewStaticQuotes().
		Set("AAPL", "Apple Inc.", "162.35").
		Set("MSFT", "Microsoft Corporation", "410.50").
		Set("NFLX", "Netflix Inc.", "612.00")
	mem := testutil.NewMemoryCache()
	cached := NewCached(upstream, mem, time.Minute)

	w := NewWarmer(staticSymbols{symbols: []string{"AAPL", "MSFT", "NFLX"}}, cached, 2)
	require.NoError(t, w.Run(context.Background()))

	assert.Equal(t, 3, mem.Len())

	_, err := cached.Lookup(context.Background(), "MSFT")
	require.NoError(t, err)
	assert.Equal(t, 1, upstream.Calls("MSFT"))
}

func TestWarmerRunReportsFailures(t *testing.T) {
	upstream := testutil.NewStaticQuotes().
		Set("AAPL", "Apple Inc.", "162.35").
		Fail("MSFT", domain.ErrQuoteUnavailable)
	mem := testutil.NewMemoryCache()

	w := NewWarmer(staticSymbols{symbols: []string{"AAPL", "MSFT"}}, NewCached(upstream, mem, time.Minute), 4)
	err := w.Run(context.Background())

	assert.Error(t, err)
	assert.Equal(t, 1, mem.Len())
}

func TestWarmerRunNothingHeld(t *testing.T) {
	upstream := testutil.NewStaticQuotes()
	w := NewWarmer(staticSymbols{}, NewCached(upstream, testutil.NewMemoryCache(), time.Minute), 0)

	assert.NoError(t, w.Run(context.Background()))
}

func TestWarmerRunSourceError(t *testing.T) {
	upstream := testutil.NewStaticQuotes()
	w := NewWarmer(staticSymbols{err: errors.New("db down")}, NewCached(upstream, testutil.NewMemoryCache(), time.Minute), 1)

	assert.Error(t, w.Run(context.Background()))
}
