package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID           int64           `db:"id" json:"id"`
	Username     string          `db:"username" json:"username"`
	PasswordHash string          `db:"password_hash" json:"-"`
	Cash         decimal.Decimal `db:"cash" json:"cash"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}

// Balance limits keep cash inside NUMERIC(20,4) and int64 cents.
var (
	MaxDeposit = decimal.NewFromInt(1_000_000_000)
	MaxCash    = decimal.NewFromInt(1_000_000_000_000)
)
