// Package memstore is an in-memory stock.Store used by tests and by the
// server when no database DSN is configured.
package memstore

import (
	"context"
	"sort"
	"sync"

	"pricep86-backend/internal/stock"
)

type Store struct {
	mu         sync.RWMutex
	rows       map[string]stock.StockInfo // key: itemID|warehouseID
	warehouses map[string]stock.Warehouse
	events     []stock.ChangeEvent
	lines      map[string][]stock.ReservationLine // key: orderID
}

func New() *Store {
	return &Store{
		rows:       make(map[string]stock.StockInfo),
		warehouses: make(map[string]stock.Warehouse),
		lines:      make(map[string][]stock.ReservationLine),
	}
}

func key(itemID, warehouseID string) string { return itemID + "|" + warehouseID }

func (s *Store) GetStock(_ context.Context, itemID, warehouseID string) (*stock.StockInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.rows[key(itemID, warehouseID)]
	if !ok {
		return nil, stock.ErrNotFound
	}
	cp := row
	return &cp, nil
}

func (s *Store) ListStockByItem(_ context.Context, itemID string) ([]stock.StockInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []stock.StockInfo
	for _, row := range s.rows {
		if row.ItemID == itemID {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WarehouseID < out[j].WarehouseID })
	return out, nil
}

func (s *Store) PutStock(_ context.Context, info *stock.StockInfo, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(info.ItemID, info.WarehouseID)
	current, ok := s.rows[k]
	if ok && current.Version != expectedVersion {
		return stock.ErrVersionConflict
	}
	if !ok && expectedVersion != 0 {
		return stock.ErrVersionConflict
	}
	next := *info
	next.Version = expectedVersion + 1
	s.rows[k] = next
	return nil
}

func (s *Store) SaveWarehouse(_ context.Context, w *stock.Warehouse) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.warehouses[w.ID] = *w
	return nil
}

func (s *Store) DeleteWarehouse(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.warehouses[id]; !ok {
		return stock.ErrNotFound
	}
	delete(s.warehouses, id)
	return nil
}

func (s *Store) GetWarehouse(_ context.Context, id string) (*stock.Warehouse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.warehouses[id]
	if !ok {
		return nil, stock.ErrNotFound
	}
	cp := w
	return &cp, nil
}

func (s *Store) ListWarehouses(_ context.Context) ([]stock.Warehouse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]stock.Warehouse, 0, len(s.warehouses))
	for _, w := range s.warehouses {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) AppendEvent(_ context.Context, ev *stock.ChangeEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, *ev)
	return nil
}

func (s *Store) ListEvents(_ context.Context, f stock.EventFilter) ([]stock.ChangeEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []stock.ChangeEvent
	for i := len(s.events) - 1; i >= 0; i-- {
		ev := s.events[i]
		if f.ItemID != "" && ev.ItemID != f.ItemID {
			continue
		}
		if f.WarehouseID != "" && ev.WarehouseID != f.WarehouseID {
			continue
		}
		if f.OrderID != "" && ev.OrderID != f.OrderID {
			continue
		}
		out = append(out, ev)
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	return out, nil
}

func (s *Store) CreateReservationLines(_ context.Context, lines []stock.ReservationLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ln := range lines {
		s.lines[ln.OrderID] = append(s.lines[ln.OrderID], ln)
	}
	return nil
}

func (s *Store) ListReservationLines(_ context.Context, orderID string) ([]stock.ReservationLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]stock.ReservationLine, len(s.lines[orderID]))
	copy(out, s.lines[orderID])
	return out, nil
}

func (s *Store) TransitionReservationLine(_ context.Context, lineID, from, to string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for orderID, lines := range s.lines {
		for i := range lines {
			if lines[i].ID == lineID {
				if lines[i].Status != from {
					return false, nil
				}
				lines[i].Status = to
				s.lines[orderID] = lines
				return true, nil
			}
		}
	}
	return false, stock.ErrNotFound
}
