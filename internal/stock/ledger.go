package stock

import (
	"context"
	"errors"
	"sync"
	"time"
)

const (
	applyMaxAttempts = 5
	applyBackoffBase = 10 * time.Millisecond
)

// Ledger owns the per-item, per-warehouse stock rows. Every mutation goes
// through Apply, which serializes writers on the row key and enforces the
// invariant quantity == available + reserved with all fields non-negative.
type Ledger struct {
	store Store

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewLedger(store Store) *Ledger {
	return &Ledger{
		store: store,
		locks: make(map[string]*sync.Mutex),
	}
}

func rowKey(itemID, warehouseID string) string {
	return itemID + "|" + warehouseID
}

// lockRow returns the mutex for one row key, creating it on first use.
// Locks are never removed; the key space is bounded by the catalog size.
func (l *Ledger) lockRow(itemID, warehouseID string) *sync.Mutex {
	key := rowKey(itemID, warehouseID)
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	return m
}

// Get reads one row. Missing rows surface as ErrNotFound.
func (l *Ledger) Get(ctx context.Context, itemID, warehouseID string) (*StockInfo, error) {
	return l.store.GetStock(ctx, itemID, warehouseID)
}

// Apply atomically applies a signed delta to one row. A row that does not
// exist yet starts from zero, so purely additive deltas (imports, returns,
// transfers in) create it. Deltas that would break the invariant are
// rejected with ErrInvalidTransition and nothing is written. Version
// conflicts against concurrent external writers are retried with backoff up
// to applyMaxAttempts before surfacing ErrConcurrentModification.
func (l *Ledger) Apply(ctx context.Context, d Delta) (*StockInfo, error) {
	if d.ItemID == "" || d.WarehouseID == "" {
		return nil, ErrUnknownReference
	}

	m := l.lockRow(d.ItemID, d.WarehouseID)
	m.Lock()
	defer m.Unlock()

	var lastErr error
	for attempt := 0; attempt < applyMaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(applyBackoffBase * time.Duration(attempt)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		info, err := l.store.GetStock(ctx, d.ItemID, d.WarehouseID)
		switch {
		case errors.Is(err, ErrNotFound):
			info = &StockInfo{ItemID: d.ItemID, ItemType: d.ItemType, WarehouseID: d.WarehouseID}
		case err != nil:
			return nil, err
		}

		next := *info
		next.Quantity += d.Quantity
		next.Available += d.Available
		next.Reserved += d.Reserved
		if d.ItemType != "" {
			next.ItemType = d.ItemType
		}

		if next.Quantity < 0 || next.Available < 0 || next.Reserved < 0 ||
			next.Quantity != next.Available+next.Reserved {
			return nil, ErrInvalidTransition
		}

		if err := l.store.PutStock(ctx, &next, info.Version); err != nil {
			if errors.Is(err, ErrVersionConflict) {
				lastErr = err
				continue
			}
			return nil, err
		}
		return &next, nil
	}
	return nil, errors.Join(ErrConcurrentModification, lastErr)
}
