// Package storage defines the ledger store: users with their cash balance
// and the append-only trade log.
package storage

import (
	"context"

	"github.com/jeovahfialho/papertrader/internal/domain"
	"github.com/shopspring/decimal"
)

type Store interface {
	CreateUser(ctx context.Context, username, passwordHash string, cash decimal.Decimal) (int64, error)
	UserByUsername(ctx context.Context, username string) (domain.User, error)
	UserByID(ctx context.Context, id int64) (domain.User, error)

	// Trades returns every trade of the user, most recent first.
	Trades(ctx context.Context, userID int64) ([]domain.Trade, error)

	// HeldSymbols lists the symbols any user currently holds.
	HeldSymbols(ctx context.Context) ([]string, error)

	// WithinTransaction locks the user row and runs fn inside one database
	// transaction. The transaction commits only when fn returns nil.
	WithinTransaction(ctx context.Context, userID int64, fn func(ctx context.Context, tx Tx) error) error

	HealthCheck(ctx context.Context) error
	Close() error
}

// Tx is the unit of work of a single buy, sell or deposit.
type Tx interface {
	// User is the locked row as read when the transaction started.
	User() domain.User
	TradesForSymbol(ctx context.Context, symbol string) ([]domain.Trade, error)
	SetCash(ctx context.Context, cash decimal.Decimal) error
	AppendTrade(ctx context.Context, trade *domain.Trade) error
}
