package quotes

import (
	"context"
	"math/rand"
	"sync"

	"github.com/shopspring/decimal"

	"papertrade/internal/ledger"
)

// SimSource is a random-walk price generator for running the service
// without a market-data provider. Each symbol starts at a class-dependent
// base price and drifts up to ±2% per quote.
type SimSource struct {
	mu   sync.Mutex
	last map[string]decimal.Decimal
	rng  *rand.Rand
}

func NewSimSource(seed int64) *SimSource {
	return &SimSource{
		last: make(map[string]decimal.Decimal),
		rng:  rand.New(rand.NewSource(seed)),
	}
}

func (s *SimSource) GetPrice(ctx context.Context, symbol string, class ledger.AssetClass) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := string(class) + ":" + symbol
	price, ok := s.last[key]
	if !ok {
		base := 50 + s.rng.Float64()*950
		if class == ledger.AssetCrypto {
			base = 100 + s.rng.Float64()*50000
		}
		price = decimal.NewFromFloat(base).Round(4)
	} else {
		drift := 1 + (s.rng.Float64()-0.5)*0.04
		price = price.Mul(decimal.NewFromFloat(drift)).Round(4)
		if !price.IsPositive() {
			price = decimal.NewFromFloat(0.0001)
		}
	}
	s.last[key] = price
	return price, nil
}
