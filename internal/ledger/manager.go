package ledger

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Saver receives portfolio snapshots after successful mutations. Saving is
// best-effort and asynchronous; a failed save never rolls back in-memory
// state.
type Saver interface {
	Enqueue(p Portfolio)
}

// HoldingRef identifies one position for the price refresher.
type HoldingRef struct {
	Symbol     string
	AssetClass AssetClass
}

// Manager owns the live Portfolio and is the single serialization point
// for every mutation: trades, quote applications, hydration and reset.
type Manager struct {
	mu    sync.Mutex
	p     Portfolio
	log   *logrus.Logger
	saver Saver
}

func NewManager(p Portfolio, log *logrus.Logger, saver Saver) *Manager {
	return &Manager{p: p, log: log, saver: saver}
}

// Trade validates and executes an order, returning the new snapshot and
// the appended transaction. On rejection the portfolio is unchanged and
// nothing is enqueued for persistence.
func (m *Manager) Trade(o Order) (Portfolio, Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next, tx, err := Execute(m.p, o, time.Now().UTC())
	if err != nil {
		return Portfolio{}, Transaction{}, err
	}
	m.p = next
	m.log.Infof("executed %s %s %s/%s @ %s", tx.Action, tx.Quantity, tx.AssetClass, tx.Symbol, tx.Price)
	m.enqueueSave()
	return m.p.Clone(), tx, nil
}

// ApplyQuote refreshes the display valuation of one holding. A quote
// arriving after the position was fully sold is a no-op; the result is
// checked against current state, never blindly written.
func (m *Manager) ApplyQuote(ref HoldingRef, price decimal.Decimal) bool {
	if !price.IsPositive() {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.p.findHolding(ref.Symbol, ref.AssetClass)
	if i < 0 {
		return false
	}
	applyValuation(&m.p.Holdings[i], price)
	return true
}

// HoldingRefs lists the distinct positions to quote this tick.
func (m *Manager) HoldingRefs() []HoldingRef {
	m.mu.Lock()
	defer m.mu.Unlock()

	refs := make([]HoldingRef, 0, len(m.p.Holdings))
	for _, h := range m.p.Holdings {
		refs = append(refs, HoldingRef{Symbol: h.Symbol, AssetClass: h.AssetClass})
	}
	return refs
}

// Snapshot returns a deep copy of the current portfolio.
func (m *Manager) Snapshot() Portfolio {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.p.Clone()
}

// TotalValue is the live total (cash + holdings at refreshed prices).
func (m *Manager) TotalValue() decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.p.TotalValue()
}

// Performance reconstructs the value series from the transaction log.
func (m *Manager) Performance() []PerformancePoint {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Reconstruct(m.p, time.Now().UTC(), m.p.TotalValue())
}

// Hydrate replaces the in-memory portfolio with a loaded one. Used for the
// second startup phase, after the remote load succeeds.
func (m *Manager) Hydrate(p Portfolio) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.p = p.Clone()
}

// Reset replaces the portfolio with a fresh one at the same starting
// balance and currency, clearing holdings and transactions.
func (m *Manager) Reset() Portfolio {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.p = NewPortfolio(m.p.StartingBalance, m.p.BaseCurrency, time.Now().UTC())
	m.log.Infof("portfolio reset to %s %s", m.p.StartingBalance, m.p.BaseCurrency)
	m.enqueueSave()
	return m.p.Clone()
}

// enqueueSave hands a snapshot to the saver. Callers hold the mutex.
func (m *Manager) enqueueSave() {
	if m.saver == nil {
		return
	}
	m.saver.Enqueue(m.p.Clone())
}
