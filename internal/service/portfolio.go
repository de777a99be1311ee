package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jeovahfialho/papertrader/internal/domain"
	"github.com/jeovahfialho/papertrader/internal/ledger"
	"github.com/jeovahfialho/papertrader/internal/quote"
	"github.com/jeovahfialho/papertrader/internal/storage"
	"github.com/jeovahfialho/papertrader/pkg/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type PortfolioService struct {
	store   storage.Store
	quotes  quote.Provider
	workers int
}

func NewPortfolioService(store storage.Store, quotes quote.Provider, workers int) *PortfolioService {
	if workers <= 0 {
		workers = 1
	}
	return &PortfolioService{store: store, quotes: quotes, workers: workers}
}

// Portfolio values every current holding at its latest price. When any held
// symbol cannot be priced the whole call fails with ErrQuoteUnavailable.
func (s *PortfolioService) Portfolio(ctx context.Context, userID int64) (domain.Portfolio, error) {
	user, err := s.store.UserByID(ctx, userID)
	if err != nil {
		return domain.Portfolio{}, err
	}

	trades, err := s.store.Trades(ctx, userID)
	if err != nil {
		return domain.Portfolio{}, err
	}

	holdings := ledger.Aggregate(trades)

	quotes, err := s.resolve(ctx, ledger.Symbols(holdings))
	if err != nil {
		return domain.Portfolio{}, err
	}

	return ledger.Valuate(user.ID, user.Cash, holdings, quotes), nil
}

// HeldSymbols lists the symbols the user can currently sell.
func (s *PortfolioService) HeldSymbols(ctx context.Context, userID int64) ([]string, error) {
	trades, err := s.store.Trades(ctx, userID)
	if err != nil {
		return nil, err
	}
	return ledger.Symbols(ledger.Aggregate(trades)), nil
}

func (s *PortfolioService) resolve(ctx context.Context, symbols []string) (map[string]domain.Quote, error) {
	quotes := make(map[string]domain.Quote, len(symbols))
	if len(symbols) == 0 {
		return quotes, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for _, symbol := range symbols {
		symbol := symbol
		g.Go(func() error {
			q, err := s.quotes.Lookup(gctx, symbol)
			if err != nil {
				logger.WithContext(ctx).Warn("erro ao cotar posição",
					zap.String("symbol", symbol),
					zap.Error(err))
				if errors.Is(err, domain.ErrQuoteUnavailable) {
					return fmt.Errorf("%s: %w", symbol, err)
				}
				return fmt.Errorf("%w: %s: %v", domain.ErrQuoteUnavailable, symbol, err)
			}

			mu.Lock()
			quotes[symbol] = q
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return quotes, nil
}
