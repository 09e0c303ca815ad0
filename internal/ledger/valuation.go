package ledger

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Valuation is the derived view of a holding at a given price.
type Valuation struct {
	CurrentValue         decimal.Decimal
	UnrealizedPnL        decimal.Decimal
	UnrealizedPnLPercent decimal.Decimal
}

// Valuate computes the current value and unrealized P&L of h at price.
// Pure function; callers decide whether to store the result. A zero cost
// basis cannot occur for a stored holding, but is answered with 0% rather
// than a division by zero.
func Valuate(h Holding, price decimal.Decimal) Valuation {
	value := h.Quantity.Mul(price)
	cost := h.Quantity.Mul(h.AverageCost)
	pnl := value.Sub(cost)
	pct := decimal.Zero
	if cost.IsPositive() {
		pct = pnl.Div(cost).Mul(hundred)
	}
	return Valuation{
		CurrentValue:         value,
		UnrealizedPnL:        pnl,
		UnrealizedPnLPercent: pct,
	}
}

// applyValuation writes a quote result onto the holding's display fields.
// Canonical fields (quantity, average cost) are untouched.
func applyValuation(h *Holding, price decimal.Decimal) {
	v := Valuate(*h, price)
	h.CurrentPrice = price
	h.CurrentValue = v.CurrentValue
	h.UnrealizedPnL = v.UnrealizedPnL
	h.UnrealizedPnLPercent = v.UnrealizedPnLPercent
}
