// Package ledger derives holdings and portfolio value from the append-only
// trade log. Nothing here touches storage: every function is a replay over
// the trades it is given.
package ledger

import (
	"sort"
	"strings"

	"github.com/jeovahfialho/papertrader/internal/domain"
	"github.com/shopspring/decimal"
)

// Aggregate groups trades by symbol and sums their signed share counts.
// Symbols whose sum is zero or negative are not held and are dropped.
// The result is sorted by symbol.
func Aggregate(trades []domain.Trade) []domain.Holding {
	totals := make(map[string]int64)
	for _, t := range trades {
		totals[t.Symbol] += t.Shares
	}

	holdings := make([]domain.Holding, 0, len(totals))
	for symbol, shares := range totals {
		if shares <= 0 {
			continue
		}
		holdings = append(holdings, domain.Holding{Symbol: symbol, Shares: shares})
	}

	sort.Slice(holdings, func(i, j int) bool {
		return holdings[i].Symbol < holdings[j].Symbol
	})

	return holdings
}

// HoldingOf returns the current share count of symbol, or 0 when the
// position is closed or was never opened.
func HoldingOf(trades []domain.Trade, symbol string) int64 {
	symbol = strings.ToUpper(symbol)

	var total int64
	for _, t := range trades {
		if t.Symbol == symbol {
			total += t.Shares
		}
	}

	if total < 0 {
		return 0
	}
	return total
}

// Symbols lists the held symbols in order.
func Symbols(holdings []domain.Holding) []string {
	symbols := make([]string, len(holdings))
	for i, h := range holdings {
		symbols[i] = h.Symbol
	}
	return symbols
}

// Valuate prices each holding with quotes and adds the cash balance.
// Every holding must have a quote; the caller is expected to fail before
// calling Valuate when one is missing.
func Valuate(userID int64, cash decimal.Decimal, holdings []domain.Holding, quotes map[string]domain.Quote) domain.Portfolio {
	portfolio := domain.Portfolio{
		UserID:    userID,
		Positions: make([]domain.Position, 0, len(holdings)),
		Cash:      cash,
		Holdings:  decimal.Zero,
	}

	for _, h := range holdings {
		q := quotes[h.Symbol]
		value := q.Price.Mul(decimal.NewFromInt(h.Shares))

		portfolio.Positions = append(portfolio.Positions, domain.Position{
			Symbol: h.Symbol,
			Name:   q.Name,
			Shares: h.Shares,
			Price:  q.Price,
			Value:  value,
		})
		portfolio.Holdings = portfolio.Holdings.Add(value)
	}

	portfolio.Total = cash.Add(portfolio.Holdings)
	return portfolio
}

// Cost is the cash moved by trading shares at price.
func Cost(shares int64, price decimal.Decimal) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(shares))
}
