package quotes

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"papertrade/internal/ledger"
)

// ErrQuoteUnavailable is returned when a source cannot price a symbol this
// call. The caller skips the symbol and carries on; it is never fatal.
var ErrQuoteUnavailable = errors.New("quote unavailable")

// Source supplies current prices. Implementations own their timeouts and
// must be safe for concurrent calls on distinct symbols.
type Source interface {
	GetPrice(ctx context.Context, symbol string, class ledger.AssetClass) (decimal.Decimal, error)
}
