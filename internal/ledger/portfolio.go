package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type AssetClass string

const (
	AssetStock  AssetClass = "stock"
	AssetCrypto AssetClass = "crypto"
)

func (a AssetClass) Valid() bool {
	return a == AssetStock || a == AssetCrypto
}

type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
)

// Holding is one open position. Quantity and AverageCost are the canonical
// fields; the Current* fields are display values written by the price
// refresher and are not persisted.
type Holding struct {
	Symbol               string          `json:"symbol"`
	AssetClass           AssetClass      `json:"type"`
	Name                 string          `json:"name"`
	Quantity             decimal.Decimal `json:"quantity"`
	AverageCost          decimal.Decimal `json:"averagePrice"`
	CurrentPrice         decimal.Decimal `json:"currentPrice"`
	CurrentValue         decimal.Decimal `json:"currentValue"`
	UnrealizedPnL        decimal.Decimal `json:"unrealizedPnL"`
	UnrealizedPnLPercent decimal.Decimal `json:"unrealizedPnLPercent"`
}

// Transaction is an immutable record of one executed trade. The log is
// append-only; records are never edited or reordered after creation.
type Transaction struct {
	ID         string          `json:"id"`
	Symbol     string          `json:"symbol"`
	Name       string          `json:"name"`
	AssetClass AssetClass      `json:"type"`
	Action     Action          `json:"action"`
	Quantity   decimal.Decimal `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	Total      decimal.Decimal `json:"total"`
	Timestamp  time.Time       `json:"timestamp"`
}

// Portfolio is the aggregate root. Holdings are unique by (symbol, asset
// class); a position that reaches zero quantity is removed, never stored.
type Portfolio struct {
	CashBalance     decimal.Decimal `json:"balance"`
	StartingBalance decimal.Decimal `json:"startingBalance"`
	BaseCurrency    string          `json:"baseCurrency"`
	CreatedAt       time.Time       `json:"createdAt"`
	Holdings        []Holding       `json:"holdings"`
	Transactions    []Transaction   `json:"transactions"`
}

func NewPortfolio(startingBalance decimal.Decimal, baseCurrency string, now time.Time) Portfolio {
	return Portfolio{
		CashBalance:     startingBalance,
		StartingBalance: startingBalance,
		BaseCurrency:    baseCurrency,
		CreatedAt:       now,
		Holdings:        []Holding{},
		Transactions:    []Transaction{},
	}
}

// Clone returns a deep copy. decimal.Decimal values are immutable, so
// copying the structs is enough once the slices are duplicated.
func (p Portfolio) Clone() Portfolio {
	cp := p
	cp.Holdings = make([]Holding, len(p.Holdings))
	copy(cp.Holdings, p.Holdings)
	cp.Transactions = make([]Transaction, len(p.Transactions))
	copy(cp.Transactions, p.Transactions)
	return cp
}

// findHolding returns the index of the position for (symbol, class), or -1.
func (p Portfolio) findHolding(symbol string, class AssetClass) int {
	for i := range p.Holdings {
		if p.Holdings[i].Symbol == symbol && p.Holdings[i].AssetClass == class {
			return i
		}
	}
	return -1
}

// Holding returns the position for (symbol, class), if any.
func (p Portfolio) Holding(symbol string, class AssetClass) (Holding, bool) {
	if i := p.findHolding(symbol, class); i >= 0 {
		return p.Holdings[i], true
	}
	return Holding{}, false
}

// TotalValue is cash plus the market value of every holding, using the
// last refreshed price and falling back to cost basis for positions that
// have never been quoted.
func (p Portfolio) TotalValue() decimal.Decimal {
	total := p.CashBalance
	for _, h := range p.Holdings {
		price := h.CurrentPrice
		if !price.IsPositive() {
			price = h.AverageCost
		}
		total = total.Add(h.Quantity.Mul(price))
	}
	return total
}

// newTransactionID builds a millisecond-timestamp-plus-uuid-fragment ID.
// The uuid fragment makes collisions impossible within one process even
// for trades executed in the same millisecond.
func newTransactionID(now time.Time) string {
	return fmt.Sprintf("%d-%s", now.UnixMilli(), uuid.NewString()[:8])
}
