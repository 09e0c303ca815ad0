package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"papertrade/internal/ledger"
)

const retryDelay = 500 * time.Millisecond

// Outbox decouples persistence from the trade path. Enqueue never blocks
// the ledger: snapshots are coalesced so only the newest pending one is
// written, and a failed write is retried once per sink and then logged.
// Failures never reach back into the in-memory portfolio.
type Outbox struct {
	ch    chan ledger.Portfolio
	sinks []Snapshotter
	log   *logrus.Logger

	mu      sync.Mutex
	lastErr error
}

func NewOutbox(log *logrus.Logger, sinks ...Snapshotter) *Outbox {
	return &Outbox{
		ch:    make(chan ledger.Portfolio, 16),
		sinks: sinks,
		log:   log,
	}
}

// Enqueue hands a snapshot to the writer goroutine. If the queue is full
// the oldest pending snapshot is dropped; only the latest state matters.
func (o *Outbox) Enqueue(p ledger.Portfolio) {
	for {
		select {
		case o.ch <- p:
			return
		default:
			select {
			case <-o.ch:
			default:
			}
		}
	}
}

// Start runs the writer until the context is cancelled.
func (o *Outbox) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				o.drain()
				return
			case p := <-o.ch:
				p = o.coalesce(p)
				o.write(ctx, p)
			}
		}
	}()
}

// coalesce skips ahead to the newest pending snapshot.
func (o *Outbox) coalesce(p ledger.Portfolio) ledger.Portfolio {
	for {
		select {
		case newer := <-o.ch:
			p = newer
		default:
			return p
		}
	}
}

func (o *Outbox) write(ctx context.Context, p ledger.Portfolio) {
	var failed error
	for _, sink := range o.sinks {
		if err := sink.Save(ctx, p); err != nil {
			o.log.Warnf("portfolio save failed, retrying: %v", err)
			time.Sleep(retryDelay)
			if err := sink.Save(ctx, p); err != nil {
				o.log.Errorf("portfolio save failed after retry: %v", err)
				failed = err
			}
		}
	}
	o.mu.Lock()
	if failed != nil {
		o.lastErr = fmt.Errorf("%w: %v", ErrPersistenceUnavailable, failed)
	} else {
		o.lastErr = nil
	}
	o.mu.Unlock()
}

// LastError reports whether snapshots are reaching the stores. It returns
// ErrPersistenceUnavailable when no sink is configured, the most recent
// write failure otherwise, and nil once writes succeed again.
func (o *Outbox) LastError() error {
	if len(o.sinks) == 0 {
		return ErrPersistenceUnavailable
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastErr
}

// drain flushes whatever is still queued with a short deadline so a clean
// shutdown does not lose the last trade.
func (o *Outbox) drain() {
	select {
	case p := <-o.ch:
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		o.write(ctx, o.coalesce(p))
	default:
	}
}
