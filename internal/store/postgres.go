package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"papertrade/internal/ledger"
)

// Postgres is the canonical portfolio store. The schema matches
// migrations/0001_init.up.sql: a single portfolio row, holdings keyed by
// (symbol, asset_class), the transactions table (seq-ordered, mirrored
// from the snapshot on every save) and the watchlist.
type Postgres struct {
	db  *sqlx.DB
	log *logrus.Logger
}

func NewPostgres(db *sqlx.DB, log *logrus.Logger) *Postgres {
	return &Postgres{db: db, log: log}
}

type holdingRow struct {
	Symbol      string `db:"symbol"`
	AssetClass  string `db:"asset_class"`
	Name        string `db:"name"`
	Quantity    string `db:"quantity"`
	AverageCost string `db:"average_cost"`
}

type transactionRow struct {
	ID         string    `db:"id"`
	Symbol     string    `db:"symbol"`
	Name       string    `db:"name"`
	AssetClass string    `db:"asset_class"`
	Action     string    `db:"action"`
	Quantity   string    `db:"quantity"`
	Price      string    `db:"price"`
	Total      string    `db:"total"`
	Timestamp  time.Time `db:"timestamp"`
}

// Load reads the full aggregate. Returns ErrNotFound when the portfolio
// row does not exist yet.
func (s *Postgres) Load(ctx context.Context) (ledger.Portfolio, error) {
	var p ledger.Portfolio

	var balance, starting, currency string
	var createdAt time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT balance::text, starting_balance::text, base_currency, created_at FROM portfolio WHERE id = 1`,
	).Scan(&balance, &starting, &currency, &createdAt)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	if err != nil {
		return p, err
	}
	p.CashBalance, err = decimal.NewFromString(balance)
	if err != nil {
		return p, err
	}
	p.StartingBalance, err = decimal.NewFromString(starting)
	if err != nil {
		return p, err
	}
	p.BaseCurrency = currency
	p.CreatedAt = createdAt.UTC()
	p.Holdings = []ledger.Holding{}
	p.Transactions = []ledger.Transaction{}

	hrows, err := s.db.QueryxContext(ctx,
		`SELECT symbol, asset_class, name, quantity::text, average_cost::text FROM holdings ORDER BY symbol, asset_class`)
	if err != nil {
		return p, err
	}
	defer hrows.Close()
	for hrows.Next() {
		var r holdingRow
		if err := hrows.StructScan(&r); err != nil {
			s.log.Warnf("scan holding failed: %v", err)
			continue
		}
		qty, err1 := decimal.NewFromString(r.Quantity)
		avg, err2 := decimal.NewFromString(r.AverageCost)
		if err1 != nil || err2 != nil {
			s.log.Warnf("bad numeric in holding %s/%s", r.AssetClass, r.Symbol)
			continue
		}
		p.Holdings = append(p.Holdings, ledger.Holding{
			Symbol:      r.Symbol,
			AssetClass:  ledger.AssetClass(r.AssetClass),
			Name:        r.Name,
			Quantity:    qty,
			AverageCost: avg,
		})
	}

	trows, err := s.db.QueryxContext(ctx,
		`SELECT id, symbol, name, asset_class, action, quantity::text, price::text, total::text, timestamp FROM transactions ORDER BY timestamp ASC, seq ASC`)
	if err != nil {
		return p, err
	}
	defer trows.Close()
	for trows.Next() {
		var r transactionRow
		if err := trows.StructScan(&r); err != nil {
			s.log.Warnf("scan transaction failed: %v", err)
			continue
		}
		qty, _ := decimal.NewFromString(r.Quantity)
		price, _ := decimal.NewFromString(r.Price)
		total, _ := decimal.NewFromString(r.Total)
		p.Transactions = append(p.Transactions, ledger.Transaction{
			ID:         r.ID,
			Symbol:     r.Symbol,
			Name:       r.Name,
			AssetClass: ledger.AssetClass(r.AssetClass),
			Action:     ledger.Action(r.Action),
			Quantity:   qty,
			Price:      price,
			Total:      total,
			Timestamp:  r.Timestamp.UTC(),
		})
	}

	return p, nil
}

// Save writes the full aggregate in one transaction. Holdings and
// transactions are replaced wholesale so the stored aggregate always
// equals the snapshot; a post-reset snapshot therefore clears the stored
// log instead of resurrecting it on the next load.
func (s *Postgres) Save(ctx context.Context, p ledger.Portfolio) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO portfolio (id, balance, starting_balance, base_currency, created_at)
		 VALUES (1, $1::numeric, $2::numeric, $3, $4)
		 ON CONFLICT (id) DO UPDATE SET balance = $1::numeric, starting_balance = $2::numeric, base_currency = $3, created_at = $4`,
		p.CashBalance.String(), p.StartingBalance.String(), p.BaseCurrency, p.CreatedAt)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM holdings`); err != nil {
		return err
	}
	for _, h := range p.Holdings {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO holdings (symbol, asset_class, name, quantity, average_cost)
			 VALUES ($1, $2, $3, $4::numeric, $5::numeric)`,
			h.Symbol, string(h.AssetClass), h.Name, h.Quantity.String(), h.AverageCost.String())
		if err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM transactions`); err != nil {
		return err
	}
	for _, t := range p.Transactions {
		// insertion order assigns seq, preserving the append order of
		// the log for same-timestamp trades across a round trip
		_, err := tx.ExecContext(ctx,
			`INSERT INTO transactions (id, symbol, name, asset_class, action, quantity, price, total, timestamp)
			 VALUES ($1, $2, $3, $4, $5, $6::numeric, $7::numeric, $8::numeric, $9)`,
			t.ID, t.Symbol, t.Name, string(t.AssetClass), string(t.Action),
			t.Quantity.String(), t.Price.String(), t.Total.String(), t.Timestamp)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// AppendTransaction persists a single trade record without rewriting the
// aggregate. Incremental variant of Save for callers that want it.
func (s *Postgres) AppendTransaction(ctx context.Context, t ledger.Transaction) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transactions (id, symbol, name, asset_class, action, quantity, price, total, timestamp)
		 VALUES ($1, $2, $3, $4, $5, $6::numeric, $7::numeric, $8::numeric, $9)
		 ON CONFLICT (id) DO NOTHING`,
		t.ID, t.Symbol, t.Name, string(t.AssetClass), string(t.Action),
		t.Quantity.String(), t.Price.String(), t.Total.String(), t.Timestamp)
	return err
}

// Reset clears holdings and transactions and writes the fresh portfolio.
func (s *Postgres) Reset(ctx context.Context, fresh ledger.Portfolio) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM transactions`); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM holdings`); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO portfolio (id, balance, starting_balance, base_currency, created_at)
		 VALUES (1, $1::numeric, $2::numeric, $3, $4)
		 ON CONFLICT (id) DO UPDATE SET balance = $1::numeric, starting_balance = $2::numeric, base_currency = $3, created_at = $4`,
		fresh.CashBalance.String(), fresh.StartingBalance.String(), fresh.BaseCurrency, fresh.CreatedAt)
	if err != nil {
		return err
	}
	return tx.Commit()
}

// WatchlistItem is a symbol the user tracks; no ledger coupling.
type WatchlistItem struct {
	Symbol     string    `db:"symbol" json:"symbol"`
	Name       string    `db:"name" json:"name"`
	AssetClass string    `db:"asset_class" json:"type"`
	AddedAt    time.Time `db:"added_at" json:"addedAt"`
}

func (s *Postgres) GetWatchlist(ctx context.Context) ([]WatchlistItem, error) {
	rows, err := s.db.QueryxContext(ctx,
		`SELECT symbol, name, asset_class, added_at FROM watchlist ORDER BY added_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []WatchlistItem{}
	for rows.Next() {
		var w WatchlistItem
		if err := rows.StructScan(&w); err != nil {
			s.log.Warnf("scan watchlist item failed: %v", err)
			continue
		}
		res = append(res, w)
	}
	return res, nil
}

func (s *Postgres) AddWatchlistItem(ctx context.Context, w WatchlistItem) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO watchlist (symbol, name, asset_class, added_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (symbol) DO NOTHING`,
		w.Symbol, w.Name, w.AssetClass, w.AddedAt)
	return err
}

func (s *Postgres) RemoveWatchlistItem(ctx context.Context, symbol string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM watchlist WHERE symbol = $1`, symbol)
	return err
}
