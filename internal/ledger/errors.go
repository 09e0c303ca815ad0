package ledger

import "errors"

// Rejection reasons returned by the trade executor. All of them are
// expected, recoverable conditions; a rejected order leaves the portfolio
// untouched.
var (
	ErrInvalidQuantity      = errors.New("quantity must be a positive finite number")
	ErrInvalidPrice         = errors.New("price must be a positive finite number")
	ErrInvalidAction        = errors.New("action must be 'buy' or 'sell'")
	ErrInvalidAssetClass    = errors.New("asset class must be 'stock' or 'crypto'")
	ErrInsufficientFunds    = errors.New("insufficient balance")
	ErrNoSuchHolding        = errors.New("no holding for this symbol")
	ErrInsufficientHoldings = errors.New("not enough quantity held to sell")
)

// IsRejection reports whether err is an order rejection as opposed to an
// infrastructure failure.
func IsRejection(err error) bool {
	for _, r := range []error{
		ErrInvalidQuantity, ErrInvalidPrice, ErrInvalidAction, ErrInvalidAssetClass,
		ErrInsufficientFunds, ErrNoSuchHolding, ErrInsufficientHoldings,
	} {
		if errors.Is(err, r) {
			return true
		}
	}
	return false
}
