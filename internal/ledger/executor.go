package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is a market order submitted by the caller. Price is the execution
// price supplied with the order; there is no order book.
type Order struct {
	Symbol     string
	Name       string
	AssetClass AssetClass
	Action     Action
	Quantity   decimal.Decimal
	Price      decimal.Decimal
}

// Execute applies order o to portfolio p and returns the resulting
// portfolio and the appended transaction. It is a pure state transition:
// no I/O, and on rejection the input portfolio is returned unchanged.
//
// Cost basis is a quantity-weighted average over all buys. Selling part of
// a position reduces quantity but never changes the average cost of the
// remainder; realized gain/loss is derivable from the transaction record.
func Execute(p Portfolio, o Order, now time.Time) (Portfolio, Transaction, error) {
	if !o.Quantity.IsPositive() {
		return p, Transaction{}, ErrInvalidQuantity
	}
	if !o.Price.IsPositive() {
		return p, Transaction{}, ErrInvalidPrice
	}
	if !o.AssetClass.Valid() {
		return p, Transaction{}, ErrInvalidAssetClass
	}

	total := o.Quantity.Mul(o.Price)

	switch o.Action {
	case ActionBuy:
		if total.GreaterThan(p.CashBalance) {
			return p, Transaction{}, ErrInsufficientFunds
		}
	case ActionSell:
		h, ok := p.Holding(o.Symbol, o.AssetClass)
		if !ok {
			return p, Transaction{}, ErrNoSuchHolding
		}
		if o.Quantity.GreaterThan(h.Quantity) {
			return p, Transaction{}, ErrInsufficientHoldings
		}
	default:
		return p, Transaction{}, ErrInvalidAction
	}

	next := p.Clone()

	switch o.Action {
	case ActionBuy:
		next.CashBalance = next.CashBalance.Sub(total)
		if i := next.findHolding(o.Symbol, o.AssetClass); i >= 0 {
			h := next.Holdings[i]
			newQty := h.Quantity.Add(o.Quantity)
			// weighted average: (q0*a0 + q*p) / (q0+q)
			newAvg := h.Quantity.Mul(h.AverageCost).Add(total).Div(newQty)
			h.Quantity = newQty
			h.AverageCost = newAvg
			if o.Name != "" {
				h.Name = o.Name
			}
			next.Holdings[i] = h
		} else {
			next.Holdings = append(next.Holdings, Holding{
				Symbol:      o.Symbol,
				AssetClass:  o.AssetClass,
				Name:        o.Name,
				Quantity:    o.Quantity,
				AverageCost: o.Price,
			})
		}
	case ActionSell:
		next.CashBalance = next.CashBalance.Add(total)
		i := next.findHolding(o.Symbol, o.AssetClass)
		if next.Holdings[i].Quantity.Equal(o.Quantity) {
			next.Holdings = append(next.Holdings[:i], next.Holdings[i+1:]...)
		} else {
			next.Holdings[i].Quantity = next.Holdings[i].Quantity.Sub(o.Quantity)
		}
	}

	tx := Transaction{
		ID:         newTransactionID(now),
		Symbol:     o.Symbol,
		Name:       o.Name,
		AssetClass: o.AssetClass,
		Action:     o.Action,
		Quantity:   o.Quantity,
		Price:      o.Price,
		Total:      total,
		Timestamp:  now,
	}
	next.Transactions = append(next.Transactions, tx)

	return next, tx, nil
}
