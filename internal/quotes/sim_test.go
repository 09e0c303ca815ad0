package quotes

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"papertrade/internal/ledger"
)

func TestSimSourcePricesArePositive(t *testing.T) {
	src := NewSimSource(1)
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		p, err := src.GetPrice(ctx, "AAPL", ledger.AssetStock)
		require.NoError(t, err)
		assert.True(t, p.IsPositive(), "tick %d: %s", i, p)
	}
}

func TestSimSourceTracksSymbolsSeparately(t *testing.T) {
	src := NewSimSource(1)
	ctx := context.Background()

	a, err := src.GetPrice(ctx, "AAPL", ledger.AssetStock)
	require.NoError(t, err)
	b, err := src.GetPrice(ctx, "AAPL", ledger.AssetCrypto)
	require.NoError(t, err)
	// same ticker, different asset class: independent walks
	assert.False(t, a.Equal(b))
}

func TestSimSourceHonorsContext(t *testing.T) {
	src := NewSimSource(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := src.GetPrice(ctx, "AAPL", ledger.AssetStock)
	assert.Error(t, err)
}

func TestSimSourceConcurrentAccess(t *testing.T) {
	src := NewSimSource(1)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_, err := src.GetPrice(ctx, "AAPL", ledger.AssetStock)
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()
}
