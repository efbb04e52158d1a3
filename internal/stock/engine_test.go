package stock_test

import (
	"context"
	"sync"
	"testing"

	"pricep86-backend/internal/stock"
	"pricep86-backend/internal/storage/memstore"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testActor = stock.Actor{UserID: "admin", Reason: "test"}

// seededStore builds a fresh in-memory store with the dealer's warehouses.
func seededStore(t *testing.T) *memstore.Store {
	t.Helper()
	ctx := context.Background()
	store := memstore.New()

	warehouses := []stock.Warehouse{
		{ID: "wh-surgut", Name: "Центральный склад", City: "Сургут", Region: "ХМАО", Type: stock.WarehouseMain, IsActive: true},
		{ID: "wh-nv", Name: "Склад Нижневартовск", City: "Нижневартовск", Region: "ХМАО", Type: stock.WarehouseRegional, IsActive: true},
		{ID: "wh-noyabrsk", Name: "Партнёр Ноябрьск", City: "Ноябрьск", Region: "ЯНАО", Type: stock.WarehousePartner, IsActive: true},
	}
	for i := range warehouses {
		require.NoError(t, store.SaveWarehouse(ctx, &warehouses[i]))
	}
	return store
}

// newEngine builds an engine over a seeded store with initial availability
// per warehouse.
func newEngine(t *testing.T, seed map[string]int) (*stock.Engine, *memstore.Store) {
	t.Helper()
	store := seededStore(t)
	engine := stock.NewEngine(store, nil, zerolog.Nop())
	for wh, qty := range seed {
		_, err := engine.SetQuantity(context.Background(), "trailer-821", stock.ItemTrailer, wh, qty, testActor)
		require.NoError(t, err)
	}
	return engine, store
}

func row(t *testing.T, store *memstore.Store, itemID, warehouseID string) stock.StockInfo {
	t.Helper()
	info, err := store.GetStock(context.Background(), itemID, warehouseID)
	require.NoError(t, err)
	return *info
}

func TestReserve_PicksMainWarehouse(t *testing.T) {
	ctx := context.Background()
	engine, store := newEngine(t, map[string]int{"wh-surgut": 5, "wh-nv": 10})

	res, err := engine.Reserve(ctx, "order-1", []stock.ReservationItem{
		{ItemID: "trailer-821", ItemType: stock.ItemTrailer, Quantity: 5},
	}, testActor)
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Len(t, res.ItemsReserved, 1)
	assert.Equal(t, "wh-surgut", res.ItemsReserved[0].WarehouseID)

	main := row(t, store, "trailer-821", "wh-surgut")
	assert.Equal(t, 5, main.Quantity)
	assert.Equal(t, 0, main.Available)
	assert.Equal(t, 5, main.Reserved)

	regional := row(t, store, "trailer-821", "wh-nv")
	assert.Equal(t, 10, regional.Available)
}

func TestReserve_ExplicitWarehouseNoFallback(t *testing.T) {
	ctx := context.Background()
	engine, _ := newEngine(t, map[string]int{"wh-surgut": 1, "wh-nv": 10})

	res, err := engine.Reserve(ctx, "order-1", []stock.ReservationItem{
		{ItemID: "trailer-821", ItemType: stock.ItemTrailer, Quantity: 3, WarehouseID: "wh-surgut"},
	}, testActor)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Error)
}

func TestReserve_InsufficientNetworkWide(t *testing.T) {
	ctx := context.Background()
	engine, store := newEngine(t, map[string]int{"wh-surgut": 2})

	res, err := engine.Reserve(ctx, "order-1", []stock.ReservationItem{
		{ItemID: "trailer-821", ItemType: stock.ItemTrailer, Quantity: 3},
	}, testActor)
	require.NoError(t, err)
	assert.False(t, res.Success)

	// Nothing moved and no reservation lines were written.
	assert.Equal(t, 2, row(t, store, "trailer-821", "wh-surgut").Available)
	lines, err := store.ListReservationLines(ctx, "order-1")
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestReserve_BatchRollsBackOnPartialFailure(t *testing.T) {
	ctx := context.Background()
	engine, store := newEngine(t, map[string]int{"wh-surgut": 5})
	_, err := engine.SetQuantity(ctx, "option-winch", stock.ItemOption, "wh-surgut", 2, testActor)
	require.NoError(t, err)

	// Third line cannot be covered, the first two must be unwound.
	res, err := engine.Reserve(ctx, "order-1", []stock.ReservationItem{
		{ItemID: "trailer-821", ItemType: stock.ItemTrailer, Quantity: 2},
		{ItemID: "option-winch", ItemType: stock.ItemOption, Quantity: 1},
		{ItemID: "option-winch", ItemType: stock.ItemOption, Quantity: 5},
	}, testActor)
	require.NoError(t, err)
	assert.False(t, res.Success)

	trailer := row(t, store, "trailer-821", "wh-surgut")
	assert.Equal(t, 5, trailer.Available)
	assert.Equal(t, 0, trailer.Reserved)

	winch := row(t, store, "option-winch", "wh-surgut")
	assert.Equal(t, 2, winch.Available)
	assert.Equal(t, 0, winch.Reserved)
}

func TestReserve_DuplicateOrderRejected(t *testing.T) {
	ctx := context.Background()
	engine, _ := newEngine(t, map[string]int{"wh-surgut": 5})

	items := []stock.ReservationItem{{ItemID: "trailer-821", ItemType: stock.ItemTrailer, Quantity: 1}}
	res, err := engine.Reserve(ctx, "order-1", items, testActor)
	require.NoError(t, err)
	require.True(t, res.Success)

	_, err = engine.Reserve(ctx, "order-1", items, testActor)
	assert.ErrorIs(t, err, stock.ErrInvalidTransition)
}

func TestReserve_StructuralValidation(t *testing.T) {
	ctx := context.Background()
	engine, _ := newEngine(t, map[string]int{"wh-surgut": 5})

	_, err := engine.Reserve(ctx, "", []stock.ReservationItem{{ItemID: "trailer-821", Quantity: 1}}, testActor)
	assert.ErrorIs(t, err, stock.ErrUnknownReference)

	_, err = engine.Reserve(ctx, "order-1", nil, testActor)
	assert.ErrorIs(t, err, stock.ErrUnknownReference)

	_, err = engine.Reserve(ctx, "order-1", []stock.ReservationItem{{ItemID: "trailer-821", Quantity: 0}}, testActor)
	assert.ErrorIs(t, err, stock.ErrInvalidTransition)
}

func TestReleaseRestoresExactly(t *testing.T) {
	ctx := context.Background()
	engine, store := newEngine(t, map[string]int{"wh-surgut": 5})

	res, err := engine.Reserve(ctx, "order-1", []stock.ReservationItem{
		{ItemID: "trailer-821", ItemType: stock.ItemTrailer, Quantity: 3},
	}, testActor)
	require.NoError(t, err)
	require.True(t, res.Success)

	require.NoError(t, engine.Release(ctx, "order-1", testActor))

	info := row(t, store, "trailer-821", "wh-surgut")
	assert.Equal(t, 5, info.Quantity)
	assert.Equal(t, 5, info.Available)
	assert.Equal(t, 0, info.Reserved)

	// A second release finds no active lines and changes nothing.
	require.NoError(t, engine.Release(ctx, "order-1", testActor))
	assert.Equal(t, 5, row(t, store, "trailer-821", "wh-surgut").Available)
}

func TestRelease_UnknownOrder(t *testing.T) {
	engine, _ := newEngine(t, map[string]int{"wh-surgut": 5})
	err := engine.Release(context.Background(), "order-ghost", testActor)
	assert.ErrorIs(t, err, stock.ErrUnknownReference)
}

func TestCommitDeductsQuantity(t *testing.T) {
	ctx := context.Background()
	engine, store := newEngine(t, map[string]int{"wh-surgut": 5})

	_, err := engine.Reserve(ctx, "order-1", []stock.ReservationItem{
		{ItemID: "trailer-821", ItemType: stock.ItemTrailer, Quantity: 3},
	}, testActor)
	require.NoError(t, err)

	require.NoError(t, engine.Commit(ctx, "order-1", testActor))

	info := row(t, store, "trailer-821", "wh-surgut")
	assert.Equal(t, 2, info.Quantity)
	assert.Equal(t, 2, info.Available)
	assert.Equal(t, 0, info.Reserved)

	// Committing again is a no-op: the lines are no longer active.
	require.NoError(t, engine.Commit(ctx, "order-1", testActor))
	assert.Equal(t, 2, row(t, store, "trailer-821", "wh-surgut").Quantity)
}

func TestCommitAfterReleaseIsNoOp(t *testing.T) {
	ctx := context.Background()
	engine, store := newEngine(t, map[string]int{"wh-surgut": 5})

	_, err := engine.Reserve(ctx, "order-1", []stock.ReservationItem{
		{ItemID: "trailer-821", ItemType: stock.ItemTrailer, Quantity: 2},
	}, testActor)
	require.NoError(t, err)
	require.NoError(t, engine.Release(ctx, "order-1", testActor))

	require.NoError(t, engine.Commit(ctx, "order-1", testActor))
	info := row(t, store, "trailer-821", "wh-surgut")
	assert.Equal(t, 5, info.Quantity)
	assert.Equal(t, 5, info.Available)
}

func TestTransferKeepsNetworkTotal(t *testing.T) {
	ctx := context.Background()
	engine, store := newEngine(t, map[string]int{"wh-surgut": 5, "wh-nv": 1})

	require.NoError(t, engine.Transfer(ctx, "trailer-821", "wh-surgut", "wh-nv", 2, testActor))

	src := row(t, store, "trailer-821", "wh-surgut")
	dst := row(t, store, "trailer-821", "wh-nv")
	assert.Equal(t, 3, src.Available)
	assert.Equal(t, 3, dst.Available)

	agg, err := engine.Aggregate(ctx, "trailer-821")
	require.NoError(t, err)
	assert.Equal(t, 6, agg.TotalQuantity)
	assert.Equal(t, 6, agg.TotalAvailable)
	assert.Empty(t, stock.ValidateMultiWarehouseStock(*agg))
}

func TestTransfer_CreatesDestinationRow(t *testing.T) {
	ctx := context.Background()
	engine, store := newEngine(t, map[string]int{"wh-surgut": 5})

	require.NoError(t, engine.Transfer(ctx, "trailer-821", "wh-surgut", "wh-noyabrsk", 1, testActor))
	assert.Equal(t, 1, row(t, store, "trailer-821", "wh-noyabrsk").Available)
}

func TestTransfer_Validation(t *testing.T) {
	ctx := context.Background()
	engine, _ := newEngine(t, map[string]int{"wh-surgut": 5})

	assert.ErrorIs(t, engine.Transfer(ctx, "trailer-821", "wh-surgut", "wh-surgut", 1, testActor), stock.ErrInvalidTransition)
	assert.ErrorIs(t, engine.Transfer(ctx, "trailer-821", "wh-surgut", "wh-nv", 0, testActor), stock.ErrInvalidTransition)
	assert.ErrorIs(t, engine.Transfer(ctx, "trailer-821", "wh-surgut", "wh-ghost", 1, testActor), stock.ErrUnknownReference)
	assert.ErrorIs(t, engine.Transfer(ctx, "trailer-821", "wh-surgut", "wh-nv", 9, testActor), stock.ErrInsufficientStock)
	assert.ErrorIs(t, engine.Transfer(ctx, "trailer-unknown", "wh-surgut", "wh-nv", 1, testActor), stock.ErrInsufficientStock)
}

func TestReturnGrowsShelf(t *testing.T) {
	ctx := context.Background()
	engine, store := newEngine(t, map[string]int{"wh-surgut": 5})

	_, err := engine.Reserve(ctx, "order-1", []stock.ReservationItem{
		{ItemID: "trailer-821", ItemType: stock.ItemTrailer, Quantity: 2},
	}, testActor)
	require.NoError(t, err)
	require.NoError(t, engine.Commit(ctx, "order-1", testActor))
	require.NoError(t, engine.Return(ctx, "trailer-821", "wh-surgut", 1, testActor))

	info := row(t, store, "trailer-821", "wh-surgut")
	assert.Equal(t, 4, info.Quantity)
	assert.Equal(t, 4, info.Available)

	assert.ErrorIs(t, engine.Return(ctx, "trailer-821", "wh-ghost", 1, testActor), stock.ErrUnknownReference)
	assert.ErrorIs(t, engine.Return(ctx, "trailer-821", "wh-surgut", 0, testActor), stock.ErrInvalidTransition)
}

func TestAdjustRejectsInvariantBreak(t *testing.T) {
	ctx := context.Background()
	engine, _ := newEngine(t, map[string]int{"wh-surgut": 5})

	// Single-field delta breaks quantity == available + reserved.
	_, err := engine.Adjust(ctx, stock.Delta{
		ItemID: "trailer-821", WarehouseID: "wh-surgut", Available: -1,
	}, testActor)
	assert.ErrorIs(t, err, stock.ErrInvalidTransition)

	// Balanced write-off passes.
	info, err := engine.Adjust(ctx, stock.Delta{
		ItemID: "trailer-821", WarehouseID: "wh-surgut", Quantity: -1, Available: -1,
	}, testActor)
	require.NoError(t, err)
	assert.Equal(t, 4, info.Quantity)
}

func TestSetQuantityPreservesReserved(t *testing.T) {
	ctx := context.Background()
	engine, store := newEngine(t, map[string]int{"wh-surgut": 5})

	_, err := engine.Reserve(ctx, "order-1", []stock.ReservationItem{
		{ItemID: "trailer-821", ItemType: stock.ItemTrailer, Quantity: 2},
	}, testActor)
	require.NoError(t, err)

	// 1C says 10 free units; the 2 reserved stay reserved.
	_, err = engine.SetQuantity(ctx, "trailer-821", stock.ItemTrailer, "wh-surgut", 10, testActor)
	require.NoError(t, err)

	info := row(t, store, "trailer-821", "wh-surgut")
	assert.Equal(t, 12, info.Quantity)
	assert.Equal(t, 10, info.Available)
	assert.Equal(t, 2, info.Reserved)
}

func TestChangeEventsRecorded(t *testing.T) {
	ctx := context.Background()
	engine, store := newEngine(t, map[string]int{"wh-surgut": 5})

	_, err := engine.Reserve(ctx, "order-1", []stock.ReservationItem{
		{ItemID: "trailer-821", ItemType: stock.ItemTrailer, Quantity: 2},
	}, testActor)
	require.NoError(t, err)

	events, err := store.ListEvents(ctx, stock.EventFilter{OrderID: "order-1"})
	require.NoError(t, err)
	require.Len(t, events, 1)

	ev := events[0]
	assert.Equal(t, stock.ChangeReserve, ev.ChangeType)
	assert.Equal(t, 5, ev.AvailableBefore)
	assert.Equal(t, 3, ev.AvailableAfter)
	assert.Equal(t, 0, ev.ReservedBefore)
	assert.Equal(t, 2, ev.ReservedAfter)
	assert.Equal(t, 5, ev.QuantityBefore)
	assert.Equal(t, 5, ev.QuantityAfter)
	assert.Equal(t, "admin", ev.UserID)
}

func TestConcurrentReserveLastUnit(t *testing.T) {
	ctx := context.Background()
	engine, store := newEngine(t, map[string]int{"wh-surgut": 1})

	const workers = 8
	var wg sync.WaitGroup
	results := make([]*stock.ReservationResult, workers)
	errs := make([]error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			results[n], errs[n] = engine.Reserve(ctx, "order-"+string(rune('a'+n)), []stock.ReservationItem{
				{ItemID: "trailer-821", ItemType: stock.ItemTrailer, Quantity: 1},
			}, testActor)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		if results[i].Success {
			succeeded++
		}
	}
	assert.Equal(t, 1, succeeded, "exactly one reservation may win the last unit")

	info := row(t, store, "trailer-821", "wh-surgut")
	assert.Equal(t, 1, info.Quantity)
	assert.Equal(t, 0, info.Available)
	assert.Equal(t, 1, info.Reserved)
}

func TestRelease_ConcurrentDuplicateFreesOnce(t *testing.T) {
	ctx := context.Background()
	engine, store := newEngine(t, map[string]int{"wh-surgut": 4})

	for _, orderID := range []string{"order-a", "order-b"} {
		res, err := engine.Reserve(ctx, orderID, []stock.ReservationItem{
			{ItemID: "trailer-821", ItemType: stock.ItemTrailer, Quantity: 2},
		}, testActor)
		require.NoError(t, err)
		require.True(t, res.Success)
	}

	const workers = 4
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			errs[n] = engine.Release(ctx, "order-a", testActor)
		}(i)
	}
	wg.Wait()
	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
	}

	// Only order-a's hold came back; order-b still holds its two units.
	info := row(t, store, "trailer-821", "wh-surgut")
	assert.Equal(t, 4, info.Quantity)
	assert.Equal(t, 2, info.Available)
	assert.Equal(t, 2, info.Reserved)

	require.NoError(t, engine.Release(ctx, "order-b", testActor))
	assert.Equal(t, 4, row(t, store, "trailer-821", "wh-surgut").Available)
}

// staleLineStore can serve an outdated reservation line snapshot for an
// order, the view a second process holds while the first one finishes a
// release.
type staleLineStore struct {
	*memstore.Store
	mu    sync.Mutex
	stale map[string][]stock.ReservationLine
}

func (s *staleLineStore) holdStale(orderID string, lines []stock.ReservationLine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stale[orderID] = lines
}

func (s *staleLineStore) ListReservationLines(ctx context.Context, orderID string) ([]stock.ReservationLine, error) {
	s.mu.Lock()
	lines, ok := s.stale[orderID]
	s.mu.Unlock()
	if ok {
		out := make([]stock.ReservationLine, len(lines))
		copy(out, lines)
		return out, nil
	}
	return s.Store.ListReservationLines(ctx, orderID)
}

func TestRelease_StaleLineViewDoesNotFreeTwice(t *testing.T) {
	ctx := context.Background()
	raw := seededStore(t)
	ws := &staleLineStore{Store: raw, stale: make(map[string][]stock.ReservationLine)}
	engine := stock.NewEngine(ws, nil, zerolog.Nop())
	_, err := engine.SetQuantity(ctx, "trailer-821", stock.ItemTrailer, "wh-surgut", 4, testActor)
	require.NoError(t, err)

	for _, orderID := range []string{"order-a", "order-b"} {
		res, err := engine.Reserve(ctx, orderID, []stock.ReservationItem{
			{ItemID: "trailer-821", ItemType: stock.ItemTrailer, Quantity: 2},
		}, testActor)
		require.NoError(t, err)
		require.True(t, res.Success)
	}

	// Capture order-a's lines while they are still active, release for real,
	// then replay the release against the captured view.
	captured, err := raw.ListReservationLines(ctx, "order-a")
	require.NoError(t, err)
	require.NoError(t, engine.Release(ctx, "order-a", testActor))
	ws.holdStale("order-a", captured)

	require.NoError(t, engine.Release(ctx, "order-a", testActor))

	// The replay lost the status transition and must not have freed order-b's
	// hold a second time.
	info := row(t, raw, "trailer-821", "wh-surgut")
	assert.Equal(t, 4, info.Quantity)
	assert.Equal(t, 2, info.Available)
	assert.Equal(t, 2, info.Reserved)
}

func TestCommit_ConcurrentDuplicateDeductsOnce(t *testing.T) {
	ctx := context.Background()
	engine, store := newEngine(t, map[string]int{"wh-surgut": 4})

	res, err := engine.Reserve(ctx, "order-a", []stock.ReservationItem{
		{ItemID: "trailer-821", ItemType: stock.ItemTrailer, Quantity: 2},
	}, testActor)
	require.NoError(t, err)
	require.True(t, res.Success)

	const workers = 4
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			errs[n] = engine.Commit(ctx, "order-a", testActor)
		}(i)
	}
	wg.Wait()
	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
	}

	info := row(t, store, "trailer-821", "wh-surgut")
	assert.Equal(t, 2, info.Quantity)
	assert.Equal(t, 2, info.Available)
	assert.Equal(t, 0, info.Reserved)
}

func TestReserve_ConcurrentSameOrderHoldsOnce(t *testing.T) {
	ctx := context.Background()
	engine, store := newEngine(t, map[string]int{"wh-surgut": 4})

	const workers = 4
	var wg sync.WaitGroup
	results := make([]*stock.ReservationResult, workers)
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			results[n], errs[n] = engine.Reserve(ctx, "order-dup", []stock.ReservationItem{
				{ItemID: "trailer-821", ItemType: stock.ItemTrailer, Quantity: 1},
			}, testActor)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for i := 0; i < workers; i++ {
		if errs[i] == nil {
			require.True(t, results[i].Success)
			succeeded++
		} else {
			assert.ErrorIs(t, errs[i], stock.ErrInvalidTransition)
		}
	}
	assert.Equal(t, 1, succeeded, "one order id may hold stock only once")

	info := row(t, store, "trailer-821", "wh-surgut")
	assert.Equal(t, 1, info.Reserved)
	assert.Equal(t, 3, info.Available)
}

func TestCommit_ClampsToHeldAfterAdjust(t *testing.T) {
	ctx := context.Background()
	engine, store := newEngine(t, map[string]int{"wh-surgut": 5})

	res, err := engine.Reserve(ctx, "order-a", []stock.ReservationItem{
		{ItemID: "trailer-821", ItemType: stock.ItemTrailer, Quantity: 3},
	}, testActor)
	require.NoError(t, err)
	require.True(t, res.Success)

	// An admin write-off takes one unit straight out of the hold; the line
	// still records three.
	_, err = engine.Adjust(ctx, stock.Delta{
		ItemID: "trailer-821", WarehouseID: "wh-surgut", Quantity: -1, Reserved: -1,
	}, testActor)
	require.NoError(t, err)

	require.NoError(t, engine.Commit(ctx, "order-a", testActor))

	info := row(t, store, "trailer-821", "wh-surgut")
	assert.Equal(t, 2, info.Quantity)
	assert.Equal(t, 2, info.Available)
	assert.Equal(t, 0, info.Reserved)

	lines, err := store.ListReservationLines(ctx, "order-a")
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, stock.LineCommitted, lines[0].Status)
}

// inflatedStockStore overstates availability on the aggregate read path,
// standing in for a snapshot that went stale between the check and the
// authoritative apply.
type inflatedStockStore struct {
	*memstore.Store
}

func (s *inflatedStockStore) ListStockByItem(ctx context.Context, itemID string) ([]stock.StockInfo, error) {
	rows, err := s.Store.ListStockByItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].Quantity += 5
		rows[i].Available += 5
	}
	return rows, nil
}

func TestReserve_LostRaceReportsActualRemainder(t *testing.T) {
	ctx := context.Background()
	raw := seededStore(t)
	engine := stock.NewEngine(&inflatedStockStore{Store: raw}, nil, zerolog.Nop())
	_, err := engine.SetQuantity(ctx, "trailer-821", stock.ItemTrailer, "wh-surgut", 1, testActor)
	require.NoError(t, err)

	// The snapshot promises six units, the row holds one; the apply fails
	// and the failure must quote the real remainder.
	res, err := engine.Reserve(ctx, "order-a", []stock.ReservationItem{
		{ItemID: "trailer-821", ItemType: stock.ItemTrailer, Quantity: 3},
	}, testActor)
	require.NoError(t, err)
	require.False(t, res.Success)
	assert.Contains(t, res.Error, "доступно 1")
}
