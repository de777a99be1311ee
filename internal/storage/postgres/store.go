package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jeovahfialho/papertrader/internal/domain"
	"github.com/jeovahfialho/papertrader/internal/storage"
	"github.com/jeovahfialho/papertrader/pkg/logger"
	"github.com/jeovahfialho/papertrader/pkg/metrics"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const uniqueViolation = "23505"

var _ storage.Store = (*Store)(nil)

// Store is the ledger store on PostgreSQL. Concurrent trades of one user
// are serialized by locking the user row with SELECT ... FOR UPDATE.
type Store struct {
	db *DB
}

func NewStore(db *DB) *Store {
	return &Store{db: db}
}

func (s *Store) CreateUser(ctx context.Context, username, passwordHash string, cash decimal.Decimal) (int64, error) {
	timer := metrics.NewTimer()

	query := `
        INSERT INTO users (username, password_hash, cash)
        VALUES ($1, $2, $3)
        RETURNING id
    `

	var id int64
	err := s.db.Pool().QueryRow(ctx, query, username, passwordHash, cash).Scan(&id)
	metrics.RecordDatabaseQuery("create_user", metrics.StatusLabel(err), timer.Elapsed())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return 0, domain.ErrDuplicateUsername
		}
		return 0, fmt.Errorf("erro ao criar usuário: %w", err)
	}

	return id, nil
}

func (s *Store) UserByUsername(ctx context.Context, username string) (domain.User, error) {
	query := `
        SELECT id, username, password_hash, cash, created_at
        FROM users
        WHERE username = $1
    `
	return scanUser(s.db.Pool().QueryRow(ctx, query, username))
}

func (s *Store) UserByID(ctx context.Context, id int64) (domain.User, error) {
	query := `
        SELECT id, username, password_hash, cash, created_at
        FROM users
        WHERE id = $1
    `
	return scanUser(s.db.Pool().QueryRow(ctx, query, id))
}

func (s *Store) Trades(ctx context.Context, userID int64) ([]domain.Trade, error) {
	timer := metrics.NewTimer()

	query := `
        SELECT id, user_id, symbol, shares, price, timestamp
        FROM trades
        WHERE user_id = $1
        ORDER BY timestamp DESC, id DESC
    `

	rows, err := s.db.Pool().Query(ctx, query, userID)
	if err != nil {
		metrics.RecordDatabaseQuery("user_trades", "error", timer.Elapsed())
		return nil, fmt.Errorf("erro ao buscar trades: %w", err)
	}

	trades, err := collectTrades(rows)
	metrics.RecordDatabaseQuery("user_trades", metrics.StatusLabel(err), timer.Elapsed())
	if err != nil {
		return nil, err
	}

	logger.Debug("trades recuperados",
		zap.Int64("user_id", userID),
		zap.Int("records", len(trades)))

	return trades, nil
}

func (s *Store) HeldSymbols(ctx context.Context) ([]string, error) {
	query := `
        SELECT DISTINCT symbol FROM (
            SELECT user_id, symbol
            FROM trades
            GROUP BY user_id, symbol
            HAVING SUM(shares) > 0
        ) held
        ORDER BY symbol
    `

	rows, err := s.db.Pool().Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("erro ao buscar símbolos em carteira: %w", err)
	}

	symbols, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("erro ao escanear símbolos: %w", err)
	}

	return symbols, nil
}

func (s *Store) WithinTransaction(ctx context.Context, userID int64, fn func(ctx context.Context, tx storage.Tx) error) (err error) {
	timer := metrics.NewTimer()

	pgTx, err := s.db.Pool().BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("erro ao iniciar transação: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := pgTx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				logger.Error("erro ao reverter transação", zap.Error(rbErr))
			}
		}
	}()

	lockQuery := `
        SELECT id, username, password_hash, cash, created_at
        FROM users
        WHERE id = $1
        FOR UPDATE
    `

	user, err := scanUser(pgTx.QueryRow(ctx, lockQuery, userID))
	if err != nil {
		return err
	}

	if err = fn(ctx, &ledgerTx{tx: pgTx, user: user}); err != nil {
		metrics.RecordDatabaseQuery("ledger_tx", "rollback", timer.Elapsed())
		return err
	}

	if err = pgTx.Commit(ctx); err != nil {
		metrics.RecordDatabaseQuery("ledger_tx", "error", timer.Elapsed())
		return fmt.Errorf("erro no commit: %w", err)
	}

	metrics.RecordDatabaseQuery("ledger_tx", "success", timer.Elapsed())
	return nil
}

func (s *Store) HealthCheck(ctx context.Context) error {
	return s.db.HealthCheck(ctx)
}

func (s *Store) Close() error {
	s.db.Close()
	return nil
}

type ledgerTx struct {
	tx   pgx.Tx
	user domain.User
}

func (t *ledgerTx) User() domain.User {
	return t.user
}

func (t *ledgerTx) TradesForSymbol(ctx context.Context, symbol string) ([]domain.Trade, error) {
	query := `
        SELECT id, user_id, symbol, shares, price, timestamp
        FROM trades
        WHERE user_id = $1 AND symbol = $2
        ORDER BY timestamp DESC, id DESC
    `

	rows, err := t.tx.Query(ctx, query, t.user.ID, strings.ToUpper(symbol))
	if err != nil {
		return nil, fmt.Errorf("erro ao buscar trades do símbolo: %w", err)
	}

	return collectTrades(rows)
}

func (t *ledgerTx) SetCash(ctx context.Context, cash decimal.Decimal) error {
	if _, err := t.tx.Exec(ctx, `UPDATE users SET cash = $1 WHERE id = $2`, cash, t.user.ID); err != nil {
		return fmt.Errorf("erro ao atualizar saldo: %w", err)
	}
	t.user.Cash = cash
	return nil
}

func (t *ledgerTx) AppendTrade(ctx context.Context, trade *domain.Trade) error {
	query := `
        INSERT INTO trades (user_id, symbol, shares, price, timestamp)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id
    `

	trade.UserID = t.user.ID
	err := t.tx.QueryRow(ctx, query,
		trade.UserID,
		trade.Symbol,
		trade.Shares,
		trade.Price,
		trade.Timestamp,
	).Scan(&trade.ID)
	if err != nil {
		return fmt.Errorf("erro ao inserir trade: %w", err)
	}

	return nil
}

func scanUser(row pgx.Row) (domain.User, error) {
	var user domain.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.Cash,
		&user.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("erro ao escanear usuário: %w", err)
	}
	return user, nil
}

func collectTrades(rows pgx.Rows) ([]domain.Trade, error) {
	defer rows.Close()

	var trades []domain.Trade
	for rows.Next() {
		var trade domain.Trade
		err := rows.Scan(
			&trade.ID,
			&trade.UserID,
			&trade.Symbol,
			&trade.Shares,
			&trade.Price,
			&trade.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("erro ao escanear trade: %w", err)
		}
		trades = append(trades, trade)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("erro ao iterar resultados: %w", err)
	}

	return trades, nil
}
