package ledger

import (
	"testing"
	"time"

	"github.com/jeovahfialho/papertrader/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trade(symbol string, shares int64, price string) domain.Trade {
	return domain.Trade{
		UserID:    1,
		Symbol:    symbol,
		Shares:    shares,
		Price:     decimal.RequireFromString(price),
		Timestamp: time.Now(),
	}
}

func TestAggregate(t *testing.T) {
	trades := []domain.Trade{
		trade("MSFT", 5, "300"),
		trade("AAPL", 10, "150"),
		trade("AAPL", -4, "155"),
		trade("TSLA", 3, "200"),
		trade("TSLA", -3, "210"),
		trade("NFLX", 2, "400"),
		trade("NFLX", -2, "390"),
	}

	holdings := Aggregate(trades)

	assert.Equal(t, []domain.Holding{
		{Symbol: "AAPL", Shares: 6},
		{Symbol: "MSFT", Shares: 5},
	}, holdings)
	assert.Equal(t, []string{"AAPL", "MSFT"}, Symbols(holdings))
}

func TestAggregate_Empty(t *testing.T) {
	assert.Empty(t, Aggregate(nil))
}

func TestHoldingOf(t *testing.T) {
	trades := []domain.Trade{
		trade("AAPL", 10, "150"),
		trade("AAPL", -3, "150"),
		trade("MSFT", 1, "300"),
	}

	assert.Equal(t, int64(7), HoldingOf(trades, "AAPL"))
	assert.Equal(t, int64(7), HoldingOf(trades, "aapl"))
	assert.Equal(t, int64(0), HoldingOf(trades, "GOOG"))
}

func TestValuate(t *testing.T) {
	// cash=10000, bought 10 AAPL @150 -> cash 8500, valued at the current price
	cash := decimal.NewFromInt(10000).Sub(Cost(10, decimal.NewFromInt(150)))
	holdings := Aggregate([]domain.Trade{trade("AAPL", 10, "150")})

	quotes := map[string]domain.Quote{
		"AAPL": {Symbol: "AAPL", Name: "Apple Inc.", Price: decimal.RequireFromString("162.35")},
	}

	p := Valuate(7, cash, holdings, quotes)

	require.Len(t, p.Positions, 1)
	assert.Equal(t, int64(7), p.UserID)
	assert.True(t, p.Cash.Equal(decimal.NewFromInt(8500)))
	assert.True(t, p.Positions[0].Value.Equal(decimal.RequireFromString("1623.50")))
	assert.True(t, p.Total.Equal(decimal.RequireFromString("10123.50")))
	assert.Equal(t, "Apple Inc.", p.Positions[0].Name)
}

func TestValuate_NoHoldings(t *testing.T) {
	p := Valuate(1, decimal.RequireFromString("42.10"), nil, nil)

	assert.Empty(t, p.Positions)
	assert.True(t, p.Total.Equal(decimal.RequireFromString("42.10")))
}

func TestReplay_NoDriftOverManyCycles(t *testing.T) {
	start := decimal.NewFromInt(10000)
	cash := start
	prices := []string{"0.1", "0.2", "0.3", "150.07", "33.33", "1.01"}

	var trades []domain.Trade
	for i := 0; i < 1000; i++ {
		price := decimal.RequireFromString(prices[i%len(prices)])
		shares := int64(i%7 + 1)

		cash = cash.Sub(Cost(shares, price))
		trades = append(trades, trade("XYZ", shares, price.String()))

		cash = cash.Add(Cost(shares, price))
		trades = append(trades, trade("XYZ", -shares, price.String()))
	}

	assert.True(t, cash.Equal(start), "cash drifted to %s", cash)
	assert.Equal(t, int64(0), HoldingOf(trades, "XYZ"))
	assert.Empty(t, Aggregate(trades))
}
