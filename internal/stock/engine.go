package stock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Engine is the reservation state machine. All order-facing mutations
// (reserve, release, commit) and the admin movements (transfer, return,
// adjust, import) go through it; every successful row mutation appends one
// change event.
type Engine struct {
	ledger *Ledger
	store  Store
	agg    *Aggregator
	events Events
	log    zerolog.Logger

	mu         sync.Mutex
	orderLocks map[string]*sync.Mutex
}

// NewEngine wires the engine over a store. events may be nil.
func NewEngine(store Store, events Events, log zerolog.Logger) *Engine {
	return &Engine{
		ledger:     NewLedger(store),
		store:      store,
		agg:        NewAggregator(store),
		events:     events,
		log:        log.With().Str("component", "stock-engine").Logger(),
		orderLocks: make(map[string]*sync.Mutex),
	}
}

// lockOrder serializes reserve, release and commit per order id within this
// process. Duplicates arriving from another process are caught by the
// conditional line status transition in the store.
func (e *Engine) lockOrder(orderID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	m, ok := e.orderLocks[orderID]
	if !ok {
		m = &sync.Mutex{}
		e.orderLocks[orderID] = m
	}
	return m
}

// Aggregate exposes the read path for handlers.
func (e *Engine) Aggregate(ctx context.Context, itemID string) (*MultiWarehouseStock, error) {
	return e.agg.Aggregate(ctx, itemID)
}

// Ledger exposes direct row reads for handlers.
func (e *Engine) Ledger() *Ledger { return e.ledger }

// appliedDelta remembers one successful apply so a failed batch can be
// compensated in reverse order.
type appliedDelta struct {
	delta Delta
	after *StockInfo
}

// Reserve holds stock for every item of an order, all-or-nothing. Business
// failures (insufficient stock, no suitable warehouse) come back as a failed
// ReservationResult with a nil error; structural misuse (empty order id,
// non-positive quantity, duplicate order) is returned as an error.
func (e *Engine) Reserve(ctx context.Context, orderID string, items []ReservationItem, actor Actor) (*ReservationResult, error) {
	if orderID == "" || len(items) == 0 {
		return nil, fmt.Errorf("%w: пустой заказ", ErrUnknownReference)
	}
	for _, it := range items {
		if it.ItemID == "" || it.Quantity <= 0 {
			return nil, fmt.Errorf("%w: некорректная позиция заказа", ErrInvalidTransition)
		}
	}

	m := e.lockOrder(orderID)
	m.Lock()
	defer m.Unlock()

	if existing, err := e.store.ListReservationLines(ctx, orderID); err != nil {
		return nil, err
	} else if len(existing) > 0 {
		return nil, fmt.Errorf("%w: заказ %s уже зарезервирован", ErrInvalidTransition, orderID)
	}

	var applied []appliedDelta
	var lines []ReservationLine

	fail := func(cause error) (*ReservationResult, error) {
		e.compensate(ctx, applied)
		e.log.Info().Str("order_id", orderID).Err(cause).Msg("reserve rolled back")
		return &ReservationResult{Success: false, Error: cause.Error()}, nil
	}

	for _, it := range items {
		agg, err := e.agg.Aggregate(ctx, it.ItemID)
		if err != nil {
			e.compensate(ctx, applied)
			return nil, err
		}
		if err := CanReserve(agg, it.Quantity); err != nil {
			return fail(err)
		}

		wh, err := SelectWarehouseForReservation(agg, it.Quantity, it.WarehouseID)
		if err != nil {
			return fail(err)
		}

		d := Delta{
			ItemID:      it.ItemID,
			ItemType:    it.ItemType,
			WarehouseID: wh.WarehouseID,
			Available:   -it.Quantity,
			Reserved:    it.Quantity,
		}
		after, err := e.ledger.Apply(ctx, d)
		if err != nil {
			// The aggregate snapshot said yes but the authoritative apply
			// said no: someone took the stock in between. Re-read so the
			// failure reports what actually remains.
			if errors.Is(err, ErrInvalidTransition) {
				avail := 0
				if row, rerr := e.ledger.Get(ctx, it.ItemID, wh.WarehouseID); rerr == nil {
					avail = row.Available
				}
				return fail(insufficientf(it.ItemID, it.Quantity, avail))
			}
			e.compensate(ctx, applied)
			return nil, err
		}
		applied = append(applied, appliedDelta{delta: d, after: after})

		lines = append(lines, ReservationLine{
			ID:          uuid.NewString(),
			OrderID:     orderID,
			ItemID:      it.ItemID,
			ItemType:    it.ItemType,
			WarehouseID: wh.WarehouseID,
			Quantity:    it.Quantity,
			Status:      LineActive,
			CreatedAt:   time.Now(),
		})
	}

	if err := e.store.CreateReservationLines(ctx, lines); err != nil {
		e.compensate(ctx, applied)
		return nil, err
	}
	for _, a := range applied {
		e.emitEvent(ctx, ChangeReserve, a, orderID, actor)
	}

	result := &ReservationResult{Success: true, ReservationID: orderID}
	for _, ln := range lines {
		result.ItemsReserved = append(result.ItemsReserved, ReservationItem{
			ItemID:      ln.ItemID,
			ItemType:    ln.ItemType,
			Quantity:    ln.Quantity,
			WarehouseID: ln.WarehouseID,
		})
	}
	e.log.Info().Str("order_id", orderID).Int("lines", len(lines)).Msg("order reserved")
	return result, nil
}

// Release frees every still-active reservation line of an order. Idempotent:
// a line is released only by the caller that wins its status transition, so
// a duplicate release can never free stock a second time or touch another
// order's hold. A drifted ledger row is never driven negative.
func (e *Engine) Release(ctx context.Context, orderID string, actor Actor) error {
	m := e.lockOrder(orderID)
	m.Lock()
	defer m.Unlock()

	lines, err := e.activeLines(ctx, orderID)
	if err != nil {
		return err
	}

	for _, ln := range lines {
		won, err := e.store.TransitionReservationLine(ctx, ln.ID, LineActive, LineReleased)
		if err != nil {
			return err
		}
		if !won {
			// Another release already handled this line.
			continue
		}

		qty, err := e.heldQuantity(ctx, ln)
		if err != nil {
			return err
		}
		if qty > 0 {
			d := Delta{
				ItemID:      ln.ItemID,
				ItemType:    ln.ItemType,
				WarehouseID: ln.WarehouseID,
				Available:   qty,
				Reserved:    -qty,
			}
			after, err := e.ledger.Apply(ctx, d)
			if err != nil {
				if _, terr := e.store.TransitionReservationLine(ctx, ln.ID, LineReleased, LineActive); terr != nil {
					e.log.Error().Err(terr).Str("line_id", ln.ID).Msg("failed to restore line after release error")
				}
				return err
			}
			e.emitEvent(ctx, ChangeRelease, appliedDelta{delta: d, after: after}, orderID, actor)
		}
	}
	e.log.Info().Str("order_id", orderID).Int("lines", len(lines)).Msg("order released")
	return nil
}

// Commit permanently deducts every still-active reservation line: quantity
// and reserved drop by the recorded amount, available stays where the
// reserve left it. Each line is committed only by the caller that wins its
// status transition; a row drifted by admin adjustments is clamped to what
// is actually held, the same way Release clamps. Irreversible except via
// Return.
func (e *Engine) Commit(ctx context.Context, orderID string, actor Actor) error {
	m := e.lockOrder(orderID)
	m.Lock()
	defer m.Unlock()

	lines, err := e.activeLines(ctx, orderID)
	if err != nil {
		return err
	}

	for _, ln := range lines {
		won, err := e.store.TransitionReservationLine(ctx, ln.ID, LineActive, LineCommitted)
		if err != nil {
			return err
		}
		if !won {
			continue
		}

		qty, err := e.heldQuantity(ctx, ln)
		if err != nil {
			return err
		}
		if qty > 0 {
			d := Delta{
				ItemID:      ln.ItemID,
				ItemType:    ln.ItemType,
				WarehouseID: ln.WarehouseID,
				Quantity:    -qty,
				Reserved:    -qty,
			}
			after, err := e.ledger.Apply(ctx, d)
			if err != nil {
				if _, terr := e.store.TransitionReservationLine(ctx, ln.ID, LineCommitted, LineActive); terr != nil {
					e.log.Error().Err(terr).Str("line_id", ln.ID).Msg("failed to restore line after commit error")
				}
				return err
			}
			e.emitEvent(ctx, ChangeCommit, appliedDelta{delta: d, after: after}, orderID, actor)
		}
	}
	e.log.Info().Str("order_id", orderID).Int("lines", len(lines)).Msg("order committed")
	return nil
}

// heldQuantity returns how much of a recorded line the ledger still holds.
// Manual adjustments may have shrunk reserved below the recorded amount.
func (e *Engine) heldQuantity(ctx context.Context, ln ReservationLine) (int, error) {
	row, err := e.ledger.Get(ctx, ln.ItemID, ln.WarehouseID)
	if errors.Is(err, ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if row.Reserved < ln.Quantity {
		return row.Reserved, nil
	}
	return ln.Quantity, nil
}

// activeLines loads the order's reservation lines and filters to the active
// ones. An order with no lines at all is an unknown reference.
func (e *Engine) activeLines(ctx context.Context, orderID string) ([]ReservationLine, error) {
	if orderID == "" {
		return nil, fmt.Errorf("%w: пустой идентификатор заказа", ErrUnknownReference)
	}
	lines, err := e.store.ListReservationLines(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: заказ %s", ErrUnknownReference, orderID)
	}
	var active []ReservationLine
	for _, ln := range lines {
		if ln.Status == LineActive {
			active = append(active, ln)
		}
	}
	return active, nil
}

// Transfer moves qty units between two warehouses. Never spans a
// reservation: only free (available) stock moves.
func (e *Engine) Transfer(ctx context.Context, itemID string, fromWarehouseID, toWarehouseID string, qty int, actor Actor) error {
	if qty <= 0 {
		return fmt.Errorf("%w: количество должно быть положительным", ErrInvalidTransition)
	}
	if fromWarehouseID == toWarehouseID {
		return fmt.Errorf("%w: склад-источник совпадает со складом-приёмником", ErrInvalidTransition)
	}
	if _, err := e.warehouse(ctx, fromWarehouseID); err != nil {
		return err
	}
	if _, err := e.warehouse(ctx, toWarehouseID); err != nil {
		return err
	}

	src, err := e.ledger.Get(ctx, itemID, fromWarehouseID)
	if errors.Is(err, ErrNotFound) || (err == nil && src.Available < qty) {
		avail := 0
		if src != nil {
			avail = src.Available
		}
		return insufficientf(itemID, qty, avail)
	}
	if err != nil {
		return err
	}

	out := Delta{ItemID: itemID, ItemType: src.ItemType, WarehouseID: fromWarehouseID, Quantity: -qty, Available: -qty}
	afterOut, err := e.ledger.Apply(ctx, out)
	if err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			return insufficientf(itemID, qty, src.Available)
		}
		return err
	}

	in := Delta{ItemID: itemID, ItemType: src.ItemType, WarehouseID: toWarehouseID, Quantity: qty, Available: qty}
	afterIn, err := e.ledger.Apply(ctx, in)
	if err != nil {
		e.compensate(ctx, []appliedDelta{{delta: out, after: afterOut}})
		return err
	}

	e.emitEvent(ctx, ChangeTransfer, appliedDelta{delta: out, after: afterOut}, "", actor)
	e.emitEvent(ctx, ChangeTransfer, appliedDelta{delta: in, after: afterIn}, "", actor)
	e.log.Info().Str("item_id", itemID).
		Str("from", fromWarehouseID).Str("to", toWarehouseID).
		Int("qty", qty).Msg("stock transferred")
	return nil
}

// Return puts physically returned units back on the shelf: quantity and
// available both grow. Inverse of the quantity-reducing half of Commit.
func (e *Engine) Return(ctx context.Context, itemID, warehouseID string, qty int, actor Actor) error {
	if qty <= 0 {
		return fmt.Errorf("%w: количество должно быть положительным", ErrInvalidTransition)
	}
	if _, err := e.warehouse(ctx, warehouseID); err != nil {
		return err
	}

	row, err := e.ledger.Get(ctx, itemID, warehouseID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	itemType := ItemTrailer
	if row != nil {
		itemType = row.ItemType
	}

	d := Delta{ItemID: itemID, ItemType: itemType, WarehouseID: warehouseID, Quantity: qty, Available: qty}
	after, err := e.ledger.Apply(ctx, d)
	if err != nil {
		return err
	}
	e.emitEvent(ctx, ChangeReturn, appliedDelta{delta: d, after: after}, "", actor)
	return nil
}

// Adjust applies a manual admin correction directly to one row.
func (e *Engine) Adjust(ctx context.Context, d Delta, actor Actor) (*StockInfo, error) {
	if _, err := e.warehouse(ctx, d.WarehouseID); err != nil {
		return nil, err
	}
	after, err := e.ledger.Apply(ctx, d)
	if err != nil {
		return nil, err
	}
	e.emitEvent(ctx, ChangeAdjust, appliedDelta{delta: d, after: after}, "", actor)
	return after, nil
}

// SetQuantity sets the absolute free quantity of one row, used by the 1C
// import. Reserved stock is untouched; the row is created when absent.
func (e *Engine) SetQuantity(ctx context.Context, itemID string, itemType ItemType, warehouseID string, newQty int, actor Actor) (*StockInfo, error) {
	if newQty < 0 {
		return nil, fmt.Errorf("%w: отрицательное количество", ErrInvalidTransition)
	}
	if _, err := e.warehouse(ctx, warehouseID); err != nil {
		return nil, err
	}

	row, err := e.ledger.Get(ctx, itemID, warehouseID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	current := 0
	if row != nil {
		current = row.Available
	}
	diff := newQty - current
	if diff == 0 {
		return row, nil
	}

	d := Delta{ItemID: itemID, ItemType: itemType, WarehouseID: warehouseID, Quantity: diff, Available: diff}
	after, err := e.ledger.Apply(ctx, d)
	if err != nil {
		return nil, err
	}
	e.emitEvent(ctx, ChangeImport, appliedDelta{delta: d, after: after}, "", actor)
	return after, nil
}

func (e *Engine) warehouse(ctx context.Context, id string) (*Warehouse, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: пустой идентификатор склада", ErrUnknownReference)
	}
	w, err := e.store.GetWarehouse(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%w: склад %s", ErrUnknownReference, id)
	}
	if err != nil {
		return nil, err
	}
	return w, nil
}

// compensate replays inverse deltas in reverse order after a failed batch.
// Compensation failures are logged, not returned: the caller already has the
// primary error.
func (e *Engine) compensate(ctx context.Context, applied []appliedDelta) {
	for i := len(applied) - 1; i >= 0; i-- {
		d := applied[i].delta
		inverse := Delta{
			ItemID:      d.ItemID,
			ItemType:    d.ItemType,
			WarehouseID: d.WarehouseID,
			Quantity:    -d.Quantity,
			Available:   -d.Available,
			Reserved:    -d.Reserved,
		}
		if _, err := e.ledger.Apply(ctx, inverse); err != nil {
			e.log.Error().Err(err).
				Str("item_id", d.ItemID).Str("warehouse_id", d.WarehouseID).
				Msg("compensation failed, ledger may need manual correction")
		}
	}
}

// emitEvent appends one change event and mirrors it to the broker. The
// before snapshot is reconstructed from the applied delta.
func (e *Engine) emitEvent(ctx context.Context, ct ChangeType, a appliedDelta, orderID string, actor Actor) {
	after := a.after
	ev := &ChangeEvent{
		ID:              uuid.NewString(),
		ItemID:          after.ItemID,
		ItemType:        after.ItemType,
		WarehouseID:     after.WarehouseID,
		ChangeType:      ct,
		QuantityBefore:  after.Quantity - a.delta.Quantity,
		QuantityAfter:   after.Quantity,
		AvailableBefore: after.Available - a.delta.Available,
		AvailableAfter:  after.Available,
		ReservedBefore:  after.Reserved - a.delta.Reserved,
		ReservedAfter:   after.Reserved,
		OrderID:         orderID,
		UserID:          actor.UserID,
		Reason:          actor.Reason,
		Timestamp:       time.Now(),
	}
	if err := e.store.AppendEvent(ctx, ev); err != nil {
		e.log.Error().Err(err).Str("item_id", ev.ItemID).Msg("failed to append change event")
	}
	if e.events != nil {
		if err := e.events.Publish(ctx, ev); err != nil {
			e.log.Warn().Err(err).Str("item_id", ev.ItemID).Msg("failed to publish change event")
		}
	}
}
