// Package sqlite is the embedded ledger store used for local runs and tests.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jeovahfialho/papertrader/internal/domain"
	"github.com/jeovahfialho/papertrader/internal/storage"
	"github.com/jeovahfialho/papertrader/pkg/metrics"
	"github.com/shopspring/decimal"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var _ storage.Store = (*Store)(nil)

// userModel stores money as TEXT so decimals round-trip exactly.
type userModel struct {
	ID           int64           `gorm:"primaryKey;autoIncrement"`
	Username     string          `gorm:"uniqueIndex;not null"`
	PasswordHash string          `gorm:"not null"`
	Cash         decimal.Decimal `gorm:"type:text;not null"`
	CreatedAt    time.Time
}

func (userModel) TableName() string { return "users" }

type tradeModel struct {
	ID        int64           `gorm:"primaryKey;autoIncrement"`
	UserID    int64           `gorm:"not null;index:idx_trades_user_symbol,priority:1"`
	Symbol    string          `gorm:"not null;index:idx_trades_user_symbol,priority:2"`
	Shares    int64           `gorm:"not null"`
	Price     decimal.Decimal `gorm:"type:text;not null"`
	Timestamp time.Time       `gorm:"not null;index"`
}

func (tradeModel) TableName() string { return "trades" }

type Store struct {
	db *gorm.DB
}

// Open connects to the database file at path and migrates the schema.
// SQLite has no row locks, so the pool is pinned to a single connection
// and every ledger transaction runs alone.
func Open(path string) (*Store, error) {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}

	db, err := gorm.Open(gormsqlite.Open(path+sep+"_foreign_keys=on&_busy_timeout=5000"), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)

	if err := AutoMigrate(db); err != nil {
		return nil, err
	}

	return &Store{db: db}, nil
}

func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&userModel{}, &tradeModel{}); err != nil {
		return fmt.Errorf("failed to auto-migrate database: %w", err)
	}
	return nil
}

func (s *Store) CreateUser(ctx context.Context, username, passwordHash string, cash decimal.Decimal) (int64, error) {
	timer := metrics.NewTimer()

	user := userModel{
		Username:     username,
		PasswordHash: passwordHash,
		Cash:         cash,
		CreatedAt:    time.Now().UTC(),
	}

	err := s.db.WithContext(ctx).Create(&user).Error
	metrics.RecordDatabaseQuery("create_user", metrics.StatusLabel(err), timer.Elapsed())
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return 0, domain.ErrDuplicateUsername
		}
		return 0, fmt.Errorf("failed to create user: %w", err)
	}

	return user.ID, nil
}

func (s *Store) UserByUsername(ctx context.Context, username string) (domain.User, error) {
	var user userModel
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	return toUser(user, err)
}

func (s *Store) UserByID(ctx context.Context, id int64) (domain.User, error) {
	var user userModel
	err := s.db.WithContext(ctx).First(&user, id).Error
	return toUser(user, err)
}

func (s *Store) Trades(ctx context.Context, userID int64) ([]domain.Trade, error) {
	timer := metrics.NewTimer()

	var rows []tradeModel
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("timestamp desc").
		Order("id desc").
		Find(&rows).Error
	metrics.RecordDatabaseQuery("user_trades", metrics.StatusLabel(err), timer.Elapsed())
	if err != nil {
		return nil, fmt.Errorf("failed to get trades: %w", err)
	}

	return toTrades(rows), nil
}

func (s *Store) HeldSymbols(ctx context.Context) ([]string, error) {
	var symbols []string
	err := s.db.WithContext(ctx).Raw(`
        SELECT DISTINCT symbol FROM (
            SELECT user_id, symbol
            FROM trades
            GROUP BY user_id, symbol
            HAVING SUM(shares) > 0
        ) held
        ORDER BY symbol`).Scan(&symbols).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get held symbols: %w", err)
	}
	return symbols, nil
}

func (s *Store) WithinTransaction(ctx context.Context, userID int64, fn func(ctx context.Context, tx storage.Tx) error) error {
	timer := metrics.NewTimer()

	err := s.db.WithContext(ctx).Transaction(func(gtx *gorm.DB) error {
		var user userModel
		lookupErr := gtx.First(&user, userID).Error
		u, err := toUser(user, lookupErr)
		if err != nil {
			return err
		}
		return fn(ctx, &ledgerTx{db: gtx, user: u})
	})

	metrics.RecordDatabaseQuery("ledger_tx", metrics.StatusLabel(err), timer.Elapsed())
	return err
}

func (s *Store) HealthCheck(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type ledgerTx struct {
	db   *gorm.DB
	user domain.User
}

func (t *ledgerTx) User() domain.User {
	return t.user
}

func (t *ledgerTx) TradesForSymbol(ctx context.Context, symbol string) ([]domain.Trade, error) {
	var rows []tradeModel
	err := t.db.WithContext(ctx).
		Where("user_id = ? AND symbol = ?", t.user.ID, strings.ToUpper(symbol)).
		Order("timestamp desc").
		Order("id desc").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get trades for symbol: %w", err)
	}
	return toTrades(rows), nil
}

func (t *ledgerTx) SetCash(ctx context.Context, cash decimal.Decimal) error {
	err := t.db.WithContext(ctx).
		Model(&userModel{}).
		Where("id = ?", t.user.ID).
		Update("cash", cash).Error
	if err != nil {
		return fmt.Errorf("failed to update cash: %w", err)
	}
	t.user.Cash = cash
	return nil
}

func (t *ledgerTx) AppendTrade(ctx context.Context, trade *domain.Trade) error {
	row := tradeModel{
		UserID:    t.user.ID,
		Symbol:    trade.Symbol,
		Shares:    trade.Shares,
		Price:     trade.Price,
		Timestamp: trade.Timestamp.UTC(),
	}

	if err := t.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to insert trade: %w", err)
	}

	trade.ID = row.ID
	trade.UserID = row.UserID
	return nil
}

func toUser(m userModel, err error) (domain.User, error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("failed to get user: %w", err)
	}
	return domain.User{
		ID:           m.ID,
		Username:     m.Username,
		PasswordHash: m.PasswordHash,
		Cash:         m.Cash,
		CreatedAt:    m.CreatedAt,
	}, nil
}

func toTrades(rows []tradeModel) []domain.Trade {
	trades := make([]domain.Trade, 0, len(rows))
	for _, r := range rows {
		trades = append(trades, domain.Trade{
			ID:        r.ID,
			UserID:    r.UserID,
			Symbol:    r.Symbol,
			Shares:    r.Shares,
			Price:     r.Price,
			Timestamp: r.Timestamp,
		})
	}
	return trades
}
