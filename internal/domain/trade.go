package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Trade is one immutable ledger row. Shares is signed: positive for a buy,
// negative for a sell.
type Trade struct {
	ID        int64           `db:"id" json:"id"`
	UserID    int64           `db:"user_id" json:"user_id"`
	Symbol    string          `db:"symbol" json:"symbol"`
	Shares    int64           `db:"shares" json:"shares"`
	Price     decimal.Decimal `db:"price" json:"price"`
	Timestamp time.Time       `db:"timestamp" json:"timestamp"`
}

func (t Trade) Side() Side {
	if t.Shares < 0 {
		return SideSell
	}
	return SideBuy
}

// Amount is the absolute cash moved by the trade.
func (t Trade) Amount() decimal.Decimal {
	return t.Price.Mul(decimal.NewFromInt(t.Shares)).Abs()
}

type Holding struct {
	Symbol string `json:"symbol"`
	Shares int64  `json:"shares"`
}

type Position struct {
	Symbol string          `json:"symbol"`
	Name   string          `json:"name,omitempty"`
	Shares int64           `json:"shares"`
	Price  decimal.Decimal `json:"price"`
	Value  decimal.Decimal `json:"value"`
}

type Portfolio struct {
	UserID    int64           `json:"user_id"`
	Positions []Position      `json:"positions"`
	Cash      decimal.Decimal `json:"cash"`
	Holdings  decimal.Decimal `json:"holdings_value"`
	Total     decimal.Decimal `json:"total"`
}

type Quote struct {
	Symbol string          `json:"symbol"`
	Name   string          `json:"name"`
	Price  decimal.Decimal `json:"price"`
}

// Execution is the outcome of a committed buy or sell.
type Execution struct {
	Trade  Trade           `json:"trade"`
	Amount decimal.Decimal `json:"amount"`
	Cash   decimal.Decimal `json:"cash"`
}

// PriceScale is the number of decimal places kept for prices and cash.
// Postgres stores both as NUMERIC(20,4).
const PriceScale int32 = 4

// MaxOrderShares caps a single buy or sell.
const MaxOrderShares int64 = 1_000_000_000
