package quote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/jeovahfialho/papertrader/internal/config"
	"github.com/jeovahfialho/papertrader/internal/domain"
	"github.com/jeovahfialho/papertrader/pkg/logger"
	"github.com/jeovahfialho/papertrader/pkg/metrics"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const quotePath = "/stable/stock/{symbol}/quote"

var _ Provider = (*Client)(nil)

// Client talks to an IEX style quote API.
type Client struct {
	client  *resty.Client
	token   string
	timeout time.Duration
	retries int
	limiter *rate.Limiter
}

type quoteResponse struct {
	Symbol      string          `json:"symbol"`
	CompanyName string          `json:"companyName"`
	LatestPrice decimal.Decimal `json:"latestPrice"`
}

func NewClient(cfg *config.Config) *Client {
	client := resty.New().
		SetBaseURL(cfg.QuoteAPIURL).
		SetTimeout(cfg.QuoteTimeout).
		SetHeader("Accept", "application/json")

	return &Client{
		client:  client,
		token:   cfg.QuoteAPIKey,
		timeout: cfg.QuoteTimeout,
		retries: cfg.QuoteRetries,
		limiter: rate.NewLimiter(rate.Limit(cfg.QuoteRateLimit), cfg.QuoteRateBurst),
	}
}

func (c *Client) Lookup(ctx context.Context, symbol string) (domain.Quote, error) {
	symbol = Normalize(symbol)
	if !ValidSymbol(symbol) {
		return domain.Quote{}, domain.ErrUnknownSymbol
	}

	// one deadline covers every attempt
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	q, err := c.lookup(ctx, symbol)

	outcome := "success"
	switch {
	case errors.Is(err, domain.ErrUnknownSymbol):
		outcome = "unknown"
	case err != nil:
		outcome = "unavailable"
	}
	metrics.RecordQuoteLookup(outcome, time.Since(start))

	return q, err
}

func (c *Client) lookup(ctx context.Context, symbol string) (domain.Quote, error) {
	var lastErr error

	for attempt := 0; attempt <= c.retries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return domain.Quote{}, fmt.Errorf("%w: %v", domain.ErrQuoteUnavailable, err)
		}

		resp, err := c.client.R().
			SetContext(ctx).
			SetPathParam("symbol", symbol).
			SetQueryParam("token", c.token).
			SetResult(&quoteResponse{}).
			Get(quotePath)

		retry := false
		switch {
		case err != nil:
			lastErr = err
			retry = true
		case resp.StatusCode() == http.StatusNotFound || resp.StatusCode() == http.StatusBadRequest:
			return domain.Quote{}, domain.ErrUnknownSymbol
		case resp.StatusCode() == http.StatusTooManyRequests || resp.StatusCode() >= 500:
			lastErr = fmt.Errorf("status %d", resp.StatusCode())
			retry = true
		case resp.IsError():
			return domain.Quote{}, fmt.Errorf("%w: status %d", domain.ErrQuoteUnavailable, resp.StatusCode())
		default:
			return toQuote(symbol, resp.Result().(*quoteResponse))
		}

		if !retry || attempt == c.retries {
			break
		}

		backoff := time.Duration(100<<attempt) * time.Millisecond
		logger.WithContext(ctx).Warn("falha ao buscar cotação, tentando novamente",
			zap.String("symbol", symbol),
			zap.Int("attempt", attempt+1),
			zap.Duration("retry_after", backoff),
			zap.Error(lastErr))

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return domain.Quote{}, fmt.Errorf("%w: %v", domain.ErrQuoteUnavailable, ctx.Err())
		}
	}

	return domain.Quote{}, fmt.Errorf("%w: %v", domain.ErrQuoteUnavailable, lastErr)
}

func toQuote(symbol string, r *quoteResponse) (domain.Quote, error) {
	if r == nil || r.Symbol == "" {
		return domain.Quote{}, domain.ErrUnknownSymbol
	}
	price := r.LatestPrice.Round(domain.PriceScale)
	if !price.IsPositive() {
		return domain.Quote{}, fmt.Errorf("%w: no price for %s", domain.ErrQuoteUnavailable, symbol)
	}

	return domain.Quote{
		Symbol: Normalize(r.Symbol),
		Name:   r.CompanyName,
		Price:  price,
	}, nil
}
