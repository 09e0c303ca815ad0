package ledger

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// PerformancePoint is one sample of total portfolio value.
type PerformancePoint struct {
	Timestamp  time.Time       `json:"timestamp"`
	TotalValue decimal.Decimal `json:"totalValue"`
}

type positionKey struct {
	symbol string
	class  AssetClass
}

type position struct {
	quantity       decimal.Decimal
	lastTradePrice decimal.Decimal
}

// Reconstruct replays the transaction log into a time series of total
// portfolio value, one point per transaction, seeded with the starting
// balance at creation time.
//
// Historical points value open positions at the price of the last trade in
// that symbol, so the series is fully derivable from the log with no
// external price dependency. The final point, appended only when it
// differs from the last replayed value, uses liveTotal (current prices),
// so the series always ends at the true present value. Both valuations are
// intentional; neither may replace the other.
//
// The function is pure and recomputed from scratch on every call, never
// incrementally maintained.
func Reconstruct(p Portfolio, now time.Time, liveTotal decimal.Decimal) []PerformancePoint {
	series := []PerformancePoint{{Timestamp: p.CreatedAt, TotalValue: p.StartingBalance}}

	txs := make([]Transaction, len(p.Transactions))
	copy(txs, p.Transactions)
	// stable: ties keep append order
	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].Timestamp.Before(txs[j].Timestamp)
	})

	cash := p.StartingBalance
	positions := map[positionKey]position{}

	for _, tx := range txs {
		key := positionKey{tx.Symbol, tx.AssetClass}
		switch tx.Action {
		case ActionBuy:
			cash = cash.Sub(tx.Total)
			pos := positions[key]
			pos.quantity = pos.quantity.Add(tx.Quantity)
			pos.lastTradePrice = tx.Price
			positions[key] = pos
		case ActionSell:
			cash = cash.Add(tx.Total)
			pos := positions[key]
			pos.quantity = pos.quantity.Sub(tx.Quantity)
			pos.lastTradePrice = tx.Price
			if pos.quantity.IsPositive() {
				positions[key] = pos
			} else {
				delete(positions, key)
			}
		}

		holdingsValue := decimal.Zero
		for _, pos := range positions {
			holdingsValue = holdingsValue.Add(pos.quantity.Mul(pos.lastTradePrice))
		}
		series = append(series, PerformancePoint{
			Timestamp:  tx.Timestamp,
			TotalValue: cash.Add(holdingsValue),
		})
	}

	if !series[len(series)-1].TotalValue.Equal(liveTotal) {
		series = append(series, PerformancePoint{Timestamp: now, TotalValue: liveTotal})
	}
	return series
}
