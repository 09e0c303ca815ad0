package refresh

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"papertrade/internal/ledger"
	"papertrade/internal/quotes"
)

const defaultParallelism = 4

// Driver periodically re-prices every held position. Each tick fetches one
// quote per distinct (symbol, asset class) with bounded parallelism and
// applies results through the manager, so a refresh can never interleave
// with a trade. A failed fetch skips that symbol for the tick; the others
// still update.
type Driver struct {
	mgr      *ledger.Manager
	src      quotes.Source
	log      *logrus.Logger
	parallel int
}

func NewDriver(mgr *ledger.Manager, src quotes.Source, log *logrus.Logger) *Driver {
	return &Driver{mgr: mgr, src: src, log: log, parallel: defaultParallelism}
}

// Start launches the refresh loop. Stopping the context stops the loop;
// an in-flight tick runs to completion.
func (d *Driver) Start(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				d.log.Info("price refresher stopping")
				return
			case <-ticker.C:
				d.Tick(ctx)
			}
		}
	}()
}

// Tick refreshes every current holding once.
func (d *Driver) Tick(ctx context.Context) {
	refs := d.mgr.HoldingRefs()
	if len(refs) == 0 {
		return
	}

	sem := make(chan struct{}, d.parallel)
	var wg sync.WaitGroup
	for _, ref := range refs {
		ref := ref
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			price, err := d.src.GetPrice(ctx, ref.Symbol, ref.AssetClass)
			if err != nil {
				d.log.Warnf("quote fetch failed for %s/%s: %v", ref.AssetClass, ref.Symbol, err)
				return
			}
			// applied against current state: a no-op if the position
			// was sold while the fetch was in flight
			d.mgr.ApplyQuote(ref, price)
		}()
	}
	wg.Wait()
}
