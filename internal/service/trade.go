package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jeovahfialho/papertrader/internal/domain"
	"github.com/jeovahfialho/papertrader/internal/events"
	"github.com/jeovahfialho/papertrader/internal/ledger"
	"github.com/jeovahfialho/papertrader/internal/quote"
	"github.com/jeovahfialho/papertrader/internal/storage"
	"github.com/jeovahfialho/papertrader/pkg/logger"
	"github.com/jeovahfialho/papertrader/pkg/metrics"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type TradeService struct {
	store     storage.Store
	quotes    quote.Provider
	publisher events.Publisher
	now       func() time.Time
}

func NewTradeService(store storage.Store, quotes quote.Provider, publisher events.Publisher) *TradeService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &TradeService{
		store:     store,
		quotes:    quotes,
		publisher: publisher,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Buy debits shares × current price from the user's cash and records the
// purchase. Exact affordability is allowed.
func (s *TradeService) Buy(ctx context.Context, userID int64, symbol string, shares int64) (domain.Execution, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.TradeDuration.WithLabelValues(string(domain.SideBuy)))

	exec, err := s.buy(ctx, userID, symbol, shares)
	metrics.RecordTrade(string(domain.SideBuy), tradeStatus(err))
	if err != nil {
		return domain.Execution{}, err
	}

	s.publish(ctx, exec.Trade)

	logger.WithContext(ctx).Info("compra executada",
		zap.Int64("user_id", userID),
		zap.String("symbol", exec.Trade.Symbol),
		zap.Int64("shares", shares),
		zap.String("price", exec.Trade.Price.String()),
		zap.Duration("duration", timer.Elapsed()))

	return exec, nil
}

func (s *TradeService) buy(ctx context.Context, userID int64, symbol string, shares int64) (domain.Execution, error) {
	symbol, err := validateOrder(symbol, shares)
	if err != nil {
		return domain.Execution{}, err
	}

	q, err := s.quotes.Lookup(ctx, symbol)
	if err != nil {
		return domain.Execution{}, err
	}
	cost := ledger.Cost(shares, q.Price)

	var exec domain.Execution
	err = s.store.WithinTransaction(ctx, userID, func(ctx context.Context, tx storage.Tx) error {
		user := tx.User()
		if user.Cash.LessThan(cost) {
			return domain.ErrInsufficientFunds
		}

		cash := user.Cash.Sub(cost)
		if err := tx.SetCash(ctx, cash); err != nil {
			return err
		}

		trade := domain.Trade{
			UserID:    userID,
			Symbol:    symbol,
			Shares:    shares,
			Price:     q.Price,
			Timestamp: s.now(),
		}
		if err := tx.AppendTrade(ctx, &trade); err != nil {
			return err
		}

		exec = domain.Execution{Trade: trade, Amount: cost, Cash: cash}
		return nil
	})
	if err != nil {
		return domain.Execution{}, err
	}

	return exec, nil
}

// Sell credits shares × current price to the user's cash. Selling more than
// the current holding is rejected outright, never partially filled.
func (s *TradeService) Sell(ctx context.Context, userID int64, symbol string, shares int64) (domain.Execution, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.TradeDuration.WithLabelValues(string(domain.SideSell)))

	exec, err := s.sell(ctx, userID, symbol, shares)
	metrics.RecordTrade(string(domain.SideSell), tradeStatus(err))
	if err != nil {
		return domain.Execution{}, err
	}

	s.publish(ctx, exec.Trade)

	logger.WithContext(ctx).Info("venda executada",
		zap.Int64("user_id", userID),
		zap.String("symbol", exec.Trade.Symbol),
		zap.Int64("shares", shares),
		zap.String("price", exec.Trade.Price.String()),
		zap.Duration("duration", timer.Elapsed()))

	return exec, nil
}

func (s *TradeService) sell(ctx context.Context, userID int64, symbol string, shares int64) (domain.Execution, error) {
	symbol, err := validateOrder(symbol, shares)
	if err != nil {
		return domain.Execution{}, err
	}

	q, err := s.quotes.Lookup(ctx, symbol)
	if err != nil {
		return domain.Execution{}, err
	}
	proceeds := ledger.Cost(shares, q.Price)

	var exec domain.Execution
	err = s.store.WithinTransaction(ctx, userID, func(ctx context.Context, tx storage.Tx) error {
		trades, err := tx.TradesForSymbol(ctx, symbol)
		if err != nil {
			return err
		}
		if shares > ledger.HoldingOf(trades, symbol) {
			return domain.ErrInsufficientShares
		}

		cash := tx.User().Cash.Add(proceeds)
		if cash.GreaterThan(domain.MaxCash) {
			return domain.NewValidationError("shares", "sale would exceed the maximum balance")
		}
		if err := tx.SetCash(ctx, cash); err != nil {
			return err
		}

		trade := domain.Trade{
			UserID:    userID,
			Symbol:    symbol,
			Shares:    -shares,
			Price:     q.Price,
			Timestamp: s.now(),
		}
		if err := tx.AppendTrade(ctx, &trade); err != nil {
			return err
		}

		exec = domain.Execution{Trade: trade, Amount: proceeds, Cash: cash}
		return nil
	})
	if err != nil {
		return domain.Execution{}, err
	}

	return exec, nil
}

// Deposit adds cash to the user's balance. No ledger row is written.
func (s *TradeService) Deposit(ctx context.Context, userID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	if err := ValidateDeposit(amount); err != nil {
		metrics.Deposits.WithLabelValues("rejected").Inc()
		return decimal.Zero, err
	}

	var cash decimal.Decimal
	err := s.store.WithinTransaction(ctx, userID, func(ctx context.Context, tx storage.Tx) error {
		cash = tx.User().Cash.Add(amount)
		if cash.GreaterThan(domain.MaxCash) {
			return domain.NewValidationError("amount", "would exceed the maximum balance of "+domain.MaxCash.StringFixed(2))
		}
		return tx.SetCash(ctx, cash)
	})
	metrics.Deposits.WithLabelValues(tradeStatus(err)).Inc()
	if err != nil {
		return decimal.Zero, err
	}

	logger.WithContext(ctx).Info("depósito realizado",
		zap.Int64("user_id", userID),
		zap.String("amount", amount.String()))

	return cash, nil
}

// ValidateDeposit accepts positive amounts with at most two decimal places.
func ValidateDeposit(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return domain.NewValidationError("amount", "must be greater than zero")
	}
	if !amount.Equal(amount.Truncate(2)) {
		return domain.NewValidationError("amount", "must have at most two decimal places")
	}
	if amount.GreaterThan(domain.MaxDeposit) {
		return domain.NewValidationError("amount", "must not exceed "+domain.MaxDeposit.StringFixed(2))
	}
	return nil
}

func validateOrder(symbol string, shares int64) (string, error) {
	symbol = quote.Normalize(symbol)
	if symbol == "" {
		return "", domain.NewValidationError("symbol", "missing symbol")
	}
	if shares <= 0 {
		return "", domain.NewValidationError("shares", "must be a positive integer")
	}
	if shares > domain.MaxOrderShares {
		return "", domain.NewValidationError("shares", fmt.Sprintf("at most %d shares per order", domain.MaxOrderShares))
	}
	return symbol, nil
}

// publish runs after commit; a lost event never undoes a trade.
func (s *TradeService) publish(ctx context.Context, trade domain.Trade) {
	if err := s.publisher.PublishTrade(ctx, trade); err != nil {
		logger.WithContext(ctx).Error("erro ao publicar trade",
			zap.Int64("trade_id", trade.ID),
			zap.Error(err))
	}
}

func tradeStatus(err error) string {
	switch {
	case err == nil:
		return "success"
	case domain.IsValidation(err),
		errors.Is(err, domain.ErrUnknownSymbol),
		errors.Is(err, domain.ErrInsufficientFunds),
		errors.Is(err, domain.ErrInsufficientShares):
		return "rejected"
	default:
		return "error"
	}
}

// Describe renders the flash message shown after a trade.
func Describe(exec domain.Execution) string {
	verb := "Bought"
	if exec.Trade.Side() == domain.SideSell {
		verb = "Sold"
	}

	shares := exec.Trade.Shares
	if shares < 0 {
		shares = -shares
	}

	noun := "shares"
	if shares == 1 {
		noun = "share"
	}

	return fmt.Sprintf("%s %d %s of %s for %s", verb, shares, noun, exec.Trade.Symbol, FormatUSD(exec.Amount))
}
