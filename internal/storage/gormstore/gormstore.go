// Package gormstore implements stock.Store on Postgres via GORM. Writes use
// an optimistic version check (UPDATE ... WHERE version = ?) so concurrent
// processes cannot silently overwrite each other; the engine's ledger
// retries on conflict.
package gormstore

import (
	"context"
	"errors"

	"pricep86-backend/internal/models"
	"pricep86-backend/internal/stock"

	"gorm.io/gorm"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func toInfo(row models.StockItem) stock.StockInfo {
	return stock.StockInfo{
		ItemID:      row.ItemID,
		ItemType:    stock.ItemType(row.ItemType),
		WarehouseID: row.WarehouseID,
		Quantity:    row.Quantity,
		Available:   row.AvailableQuantity,
		Reserved:    row.ReservedQuantity,
		Version:     row.Version,
	}
}

func (s *Store) GetStock(ctx context.Context, itemID, warehouseID string) (*stock.StockInfo, error) {
	var row models.StockItem
	err := s.db.WithContext(ctx).
		Where("item_id = ? AND warehouse_id = ?", itemID, warehouseID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, stock.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	info := toInfo(row)
	return &info, nil
}

func (s *Store) ListStockByItem(ctx context.Context, itemID string) ([]stock.StockInfo, error) {
	var rows []models.StockItem
	if err := s.db.WithContext(ctx).
		Where("item_id = ?", itemID).
		Order("warehouse_id asc").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]stock.StockInfo, 0, len(rows))
	for _, row := range rows {
		out = append(out, toInfo(row))
	}
	return out, nil
}

func (s *Store) PutStock(ctx context.Context, info *stock.StockInfo, expectedVersion int64) error {
	if expectedVersion == 0 {
		row := models.StockItem{
			ItemID:            info.ItemID,
			ItemType:          string(info.ItemType),
			WarehouseID:       info.WarehouseID,
			Quantity:          info.Quantity,
			AvailableQuantity: info.Available,
			ReservedQuantity:  info.Reserved,
			Version:           1,
		}
		err := s.db.WithContext(ctx).Create(&row).Error
		if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
			return stock.ErrVersionConflict
		}
		return err
	}

	res := s.db.WithContext(ctx).Model(&models.StockItem{}).
		Where("item_id = ? AND warehouse_id = ? AND version = ?",
			info.ItemID, info.WarehouseID, expectedVersion).
		Updates(map[string]interface{}{
			"quantity":           info.Quantity,
			"available_quantity": info.Available,
			"reserved_quantity":  info.Reserved,
			"version":            expectedVersion + 1,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return stock.ErrVersionConflict
	}
	return nil
}

func toWarehouse(w models.Warehouse) stock.Warehouse {
	return stock.Warehouse{
		ID:       w.ID,
		Name:     w.Name,
		City:     w.City,
		Region:   w.Region,
		Type:     stock.WarehouseType(w.Type),
		Address:  w.Address,
		Phone:    w.Phone,
		IsActive: w.IsActive,
	}
}

func (s *Store) SaveWarehouse(ctx context.Context, w *stock.Warehouse) error {
	row := models.Warehouse{
		ID:       w.ID,
		Name:     w.Name,
		City:     w.City,
		Region:   w.Region,
		Type:     models.WarehouseType(w.Type),
		Address:  w.Address,
		Phone:    w.Phone,
		IsActive: w.IsActive,
	}
	return s.db.WithContext(ctx).Save(&row).Error
}

func (s *Store) DeleteWarehouse(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&models.Warehouse{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return stock.ErrNotFound
	}
	return nil
}

func (s *Store) GetWarehouse(ctx context.Context, id string) (*stock.Warehouse, error) {
	var row models.Warehouse
	err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, stock.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	w := toWarehouse(row)
	return &w, nil
}

func (s *Store) ListWarehouses(ctx context.Context) ([]stock.Warehouse, error) {
	var rows []models.Warehouse
	if err := s.db.WithContext(ctx).Order("id asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]stock.Warehouse, 0, len(rows))
	for _, row := range rows {
		out = append(out, toWarehouse(row))
	}
	return out, nil
}

func (s *Store) AppendEvent(ctx context.Context, ev *stock.ChangeEvent) error {
	row := models.StockMovement{
		ID:              ev.ID,
		ItemID:          ev.ItemID,
		ItemType:        string(ev.ItemType),
		WarehouseID:     ev.WarehouseID,
		ChangeType:      string(ev.ChangeType),
		QuantityBefore:  ev.QuantityBefore,
		QuantityAfter:   ev.QuantityAfter,
		AvailableBefore: ev.AvailableBefore,
		AvailableAfter:  ev.AvailableAfter,
		ReservedBefore:  ev.ReservedBefore,
		ReservedAfter:   ev.ReservedAfter,
		OrderID:         ev.OrderID,
		UserID:          ev.UserID,
		Reason:          ev.Reason,
		CreatedAt:       ev.Timestamp,
	}
	return s.db.WithContext(ctx).Create(&row).Error
}

func (s *Store) ListEvents(ctx context.Context, f stock.EventFilter) ([]stock.ChangeEvent, error) {
	q := s.db.WithContext(ctx).Model(&models.StockMovement{}).Order("created_at desc, id desc")
	if f.ItemID != "" {
		q = q.Where("item_id = ?", f.ItemID)
	}
	if f.WarehouseID != "" {
		q = q.Where("warehouse_id = ?", f.WarehouseID)
	}
	if f.OrderID != "" {
		q = q.Where("order_id = ?", f.OrderID)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	var rows []models.StockMovement
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]stock.ChangeEvent, 0, len(rows))
	for _, row := range rows {
		out = append(out, stock.ChangeEvent{
			ID:              row.ID,
			ItemID:          row.ItemID,
			ItemType:        stock.ItemType(row.ItemType),
			WarehouseID:     row.WarehouseID,
			ChangeType:      stock.ChangeType(row.ChangeType),
			QuantityBefore:  row.QuantityBefore,
			QuantityAfter:   row.QuantityAfter,
			AvailableBefore: row.AvailableBefore,
			AvailableAfter:  row.AvailableAfter,
			ReservedBefore:  row.ReservedBefore,
			ReservedAfter:   row.ReservedAfter,
			OrderID:         row.OrderID,
			UserID:          row.UserID,
			Reason:          row.Reason,
			Timestamp:       row.CreatedAt,
		})
	}
	return out, nil
}

func (s *Store) CreateReservationLines(ctx context.Context, lines []stock.ReservationLine) error {
	rows := make([]models.ReservationLine, 0, len(lines))
	for _, ln := range lines {
		rows = append(rows, models.ReservationLine{
			ID:          ln.ID,
			OrderID:     ln.OrderID,
			ItemID:      ln.ItemID,
			ItemType:    string(ln.ItemType),
			WarehouseID: ln.WarehouseID,
			Quantity:    ln.Quantity,
			Status:      ln.Status,
			CreatedAt:   ln.CreatedAt,
		})
	}
	return s.db.WithContext(ctx).Create(&rows).Error
}

func (s *Store) ListReservationLines(ctx context.Context, orderID string) ([]stock.ReservationLine, error) {
	var rows []models.ReservationLine
	if err := s.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at asc").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]stock.ReservationLine, 0, len(rows))
	for _, row := range rows {
		out = append(out, stock.ReservationLine{
			ID:          row.ID,
			OrderID:     row.OrderID,
			ItemID:      row.ItemID,
			ItemType:    stock.ItemType(row.ItemType),
			WarehouseID: row.WarehouseID,
			Quantity:    row.Quantity,
			Status:      row.Status,
			CreatedAt:   row.CreatedAt,
		})
	}
	return out, nil
}

func (s *Store) TransitionReservationLine(ctx context.Context, lineID, from, to string) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.ReservationLine{}).
		Where("id = ? AND status = ?", lineID, from).
		Update("status", to)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.ReservationLine{}).
			Where("id = ?", lineID).Count(&count).Error; err != nil {
			return false, err
		}
		if count == 0 {
			return false, stock.ErrNotFound
		}
		return false, nil
	}
	return true, nil
}
