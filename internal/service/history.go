package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jeovahfialho/papertrader/internal/domain"
	"github.com/jeovahfialho/papertrader/internal/storage"
	"github.com/shopspring/decimal"
)

type HistoryEntry struct {
	ID            int64           `json:"id"`
	Symbol        string          `json:"symbol"`
	Side          domain.Side     `json:"side"`
	Shares        int64           `json:"shares"`
	Price         decimal.Decimal `json:"price"`
	PriceDisplay  string          `json:"price_display"`
	Amount        decimal.Decimal `json:"amount"`
	AmountDisplay string          `json:"amount_display"`
	Timestamp     time.Time       `json:"timestamp"`
}

type HistoryExporter interface {
	History(ctx context.Context, trades []domain.Trade) ([]byte, error)
}

type HistoryService struct {
	store    storage.Store
	exporter HistoryExporter
}

func NewHistoryService(store storage.Store, exporter HistoryExporter) *HistoryService {
	return &HistoryService{store: store, exporter: exporter}
}

// History lists every trade of the user, most recent first.
func (s *HistoryService) History(ctx context.Context, userID int64) ([]HistoryEntry, error) {
	trades, err := s.store.Trades(ctx, userID)
	if err != nil {
		return nil, err
	}

	entries := make([]HistoryEntry, 0, len(trades))
	for _, t := range trades {
		entries = append(entries, HistoryEntry{
			ID:            t.ID,
			Symbol:        t.Symbol,
			Side:          t.Side(),
			Shares:        t.Shares,
			Price:         t.Price,
			PriceDisplay:  FormatUSD(t.Price),
			Amount:        t.Amount(),
			AmountDisplay: FormatUSD(t.Amount()),
			Timestamp:     t.Timestamp,
		})
	}

	return entries, nil
}

// Export renders the same rows as History as a spreadsheet.
func (s *HistoryService) Export(ctx context.Context, userID int64) ([]byte, error) {
	trades, err := s.store.Trades(ctx, userID)
	if err != nil {
		return nil, err
	}

	data, err := s.exporter.History(ctx, trades)
	if err != nil {
		return nil, fmt.Errorf("erro ao exportar histórico: %w", err)
	}
	return data, nil
}
