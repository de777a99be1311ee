package api

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jeovahfialho/papertrader/internal/domain"
	"github.com/jeovahfialho/papertrader/internal/quote"
	"github.com/shopspring/decimal"
)

type BuyForm struct {
	Symbol string `form:"symbol"`
	Shares string `form:"shares"`
}

// Validate returns the normalized symbol and a positive whole share count.
func (f BuyForm) Validate() (string, int64, error) {
	return validateOrder(f.Symbol, f.Shares)
}

type SellForm struct {
	Symbol string `form:"symbol"`
	Shares string `form:"shares"`
}

func (f SellForm) Validate() (string, int64, error) {
	return validateOrder(f.Symbol, f.Shares)
}

func validateOrder(symbol, shares string) (string, int64, error) {
	symbol = quote.Normalize(symbol)
	if symbol == "" {
		return "", 0, domain.NewValidationError("symbol", "must provide symbol")
	}

	shares = strings.TrimSpace(shares)
	if shares == "" {
		return "", 0, domain.NewValidationError("shares", "must provide shares")
	}

	n, err := strconv.ParseInt(shares, 10, 64)
	if err != nil || n <= 0 {
		return "", 0, domain.NewValidationError("shares", "must provide positive integer number of shares")
	}
	if n > domain.MaxOrderShares {
		return "", 0, domain.NewValidationError("shares", fmt.Sprintf("at most %d shares per order", domain.MaxOrderShares))
	}

	return symbol, n, nil
}

type QuoteForm struct {
	Symbol string `form:"symbol"`
}

func (f QuoteForm) Validate() (string, error) {
	symbol := quote.Normalize(f.Symbol)
	if symbol == "" {
		return "", domain.NewValidationError("symbol", "must provide symbol")
	}
	return symbol, nil
}

type DepositForm struct {
	Amount string `form:"amount"`
}

func (f DepositForm) Validate() (decimal.Decimal, error) {
	raw := strings.TrimSpace(f.Amount)
	if raw == "" {
		return decimal.Zero, domain.NewValidationError("amount", "must provide amount")
	}

	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, domain.NewValidationError("amount", "must provide a numeric amount")
	}
	if !amount.IsPositive() {
		return decimal.Zero, domain.NewValidationError("amount", "must be greater than zero")
	}
	if !amount.Equal(amount.Truncate(2)) {
		return decimal.Zero, domain.NewValidationError("amount", "must have at most two decimal places")
	}
	if amount.GreaterThan(domain.MaxDeposit) {
		return decimal.Zero, domain.NewValidationError("amount", "must not exceed "+domain.MaxDeposit.StringFixed(2))
	}

	return amount, nil
}

type LoginForm struct {
	Username string `form:"username"`
	Password string `form:"password"`
}

func (f LoginForm) Validate() error {
	if strings.TrimSpace(f.Username) == "" {
		return domain.NewValidationError("username", "must provide username")
	}
	if f.Password == "" {
		return domain.NewValidationError("password", "must provide password")
	}
	return nil
}

type RegisterForm struct {
	Username     string `form:"username"`
	Password     string `form:"password"`
	Confirmation string `form:"confirmation"`
}

func (f RegisterForm) Validate() error {
	if strings.TrimSpace(f.Username) == "" {
		return domain.NewValidationError("username", "must provide username")
	}
	if f.Password == "" {
		return domain.NewValidationError("password", "must provide password")
	}
	if f.Confirmation == "" {
		return domain.NewValidationError("confirmation", "must confirm password")
	}
	if f.Password != f.Confirmation {
		return domain.NewValidationError("confirmation", "passwords do not match")
	}
	return nil
}

type HealthResponse struct {
	Status    string                   `json:"status"`
	Version   string                   `json:"version"`
	Timestamp time.Time                `json:"timestamp"`
	Services  map[string]ServiceHealth `json:"services,omitempty"`
}

type ServiceHealth struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
	Error   string `json:"error,omitempty"`
}

type ErrorResponse struct {
	Error     string    `json:"error"`
	Code      int       `json:"code"`
	RequestID string    `json:"request_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type PortfolioResponse struct {
	Positions    []domain.Position `json:"positions"`
	Cash         decimal.Decimal   `json:"cash"`
	CashDisplay  string            `json:"cash_display"`
	Total        decimal.Decimal   `json:"total"`
	TotalDisplay string            `json:"total_display"`
}

type QuoteResponse struct {
	Symbol       string          `json:"symbol"`
	Name         string          `json:"name"`
	Price        decimal.Decimal `json:"price"`
	PriceDisplay string          `json:"price_display"`
}
