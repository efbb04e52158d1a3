package stock

import "context"

// Store is the persistence adapter the engine writes through. Implementations
// must be safe for concurrent use; write serialization per row is the
// ledger's job, the store only has to detect lost writes via the version
// counter.
type Store interface {
	// GetStock returns the row for (itemID, warehouseID) or ErrNotFound.
	GetStock(ctx context.Context, itemID, warehouseID string) (*StockInfo, error)

	// ListStockByItem returns all rows for an item, possibly none.
	ListStockByItem(ctx context.Context, itemID string) ([]StockInfo, error)

	// PutStock inserts or updates a row. expectedVersion is the version the
	// writer read (0 for a new row); a mismatch returns ErrVersionConflict
	// and leaves the row untouched. On success the stored version is bumped.
	PutStock(ctx context.Context, info *StockInfo, expectedVersion int64) error

	GetWarehouse(ctx context.Context, id string) (*Warehouse, error)
	ListWarehouses(ctx context.Context) ([]Warehouse, error)
	SaveWarehouse(ctx context.Context, w *Warehouse) error
	DeleteWarehouse(ctx context.Context, id string) error

	// AppendEvent appends to the change log. The log is append-only: no
	// update or delete operation exists.
	AppendEvent(ctx context.Context, ev *ChangeEvent) error

	// ListEvents returns change events, newest first.
	ListEvents(ctx context.Context, filter EventFilter) ([]ChangeEvent, error)

	CreateReservationLines(ctx context.Context, lines []ReservationLine) error
	ListReservationLines(ctx context.Context, orderID string) ([]ReservationLine, error)

	// TransitionReservationLine flips one line from one status to another,
	// atomically with respect to concurrent callers. Returns false when the
	// line was not in the expected status (another caller already moved it),
	// ErrNotFound when the line does not exist. The engine uses this as the
	// serialization point for release and commit.
	TransitionReservationLine(ctx context.Context, lineID, from, to string) (bool, error)
}

// EventFilter narrows a movements query. Zero values match everything.
type EventFilter struct {
	ItemID      string
	WarehouseID string
	OrderID     string
	Limit       int
}

// Events mirrors change events to an external broker. Implementations must
// tolerate broker downtime; a nil Events is a no-op.
type Events interface {
	Publish(ctx context.Context, ev *ChangeEvent) error
}
