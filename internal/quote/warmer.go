package quote

import (
	"context"
	"fmt"
	"sync"

	"github.com/jeovahfialho/papertrader/pkg/logger"
	"go.uber.org/zap"
)

type SymbolSource interface {
	HeldSymbols(ctx context.Context) ([]string, error)
}

// Warmer refreshes the cached quote of every symbol somebody holds, so
// portfolio views rarely wait on the upstream API.
type Warmer struct {
	source  SymbolSource
	cached  *Cached
	workers int
}

func NewWarmer(source SymbolSource, cached *Cached, workers int) *Warmer {
	if workers <= 0 {
		workers = 1
	}
	return &Warmer{source: source, cached: cached, workers: workers}
}

type warmResult struct {
	symbol string
	err    error
}

func (w *Warmer) Run(ctx context.Context) error {
	symbols, err := w.source.HeldSymbols(ctx)
	if err != nil {
		return fmt.Errorf("erro ao listar símbolos: %w", err)
	}
	if len(symbols) == 0 {
		return nil
	}

	jobs := make(chan string, w.workers*2)
	results := make(chan warmResult, len(symbols))

	var wg sync.WaitGroup
	for i := 0; i < w.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for symbol := range jobs {
				_, err := w.cached.Refresh(ctx, symbol)
				results <- warmResult{symbol: symbol, err: err}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, symbol := range symbols {
			select {
			case <-ctx.Done():
				return
			case jobs <- symbol:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	failed := 0
	for r := range results {
		if r.err != nil {
			failed++
			logger.Warn("erro ao aquecer cotação", zap.String("symbol", r.symbol), zap.Error(r.err))
		}
	}

	logger.Info("cotações aquecidas",
		zap.Int("symbols", len(symbols)),
		zap.Int("failed", failed))

	if failed > 0 {
		return fmt.Errorf("%d de %d cotações falharam", failed, len(symbols))
	}
	return nil
}
