// Package quote resolves ticker symbols to current market prices.
package quote

import (
	"context"
	"regexp"
	"strings"

	"github.com/jeovahfialho/papertrader/internal/domain"
)

// Provider returns the current quote of a symbol. Unknown symbols yield
// domain.ErrUnknownSymbol; upstream failures and timeouts yield
// domain.ErrQuoteUnavailable.
type Provider interface {
	Lookup(ctx context.Context, symbol string) (domain.Quote, error)
}

var symbolPattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9.\-]{0,9}$`)

// Normalize upper-cases and trims a user supplied symbol.
func Normalize(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// ValidSymbol reports whether a normalized symbol is worth asking upstream about.
func ValidSymbol(symbol string) bool {
	return symbolPattern.MatchString(symbol)
}
