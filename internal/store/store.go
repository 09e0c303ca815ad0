package store

import (
	"context"
	"errors"

	"papertrade/internal/ledger"
)

// ErrNotFound is returned by Load when no snapshot has been persisted yet.
var ErrNotFound = errors.New("no portfolio snapshot stored")

// ErrPersistenceUnavailable reports that snapshots are not reaching any
// store, either because none is configured or because the last write
// failed. The ledger keeps operating in-memory.
var ErrPersistenceUnavailable = errors.New("persistence unavailable, operating in-memory")

// Snapshotter is the persistence boundary the ledger core depends on.
// Saving is best-effort: a failure is logged and the in-memory portfolio
// keeps operating.
type Snapshotter interface {
	Load(ctx context.Context) (ledger.Portfolio, error)
	Save(ctx context.Context, p ledger.Portfolio) error
}
