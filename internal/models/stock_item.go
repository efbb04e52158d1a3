package models

import "time"

// StockItem: one ledger row, the quantities of one item at one warehouse.
// quantity == available_quantity + reserved_quantity at all times.
type StockItem struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	ItemID      string `gorm:"size:64;not null;index:idx_stock_item_wh,unique" json:"item_id"`
	ItemType    string `gorm:"size:20;not null" json:"item_type"` // trailer / option
	WarehouseID string `gorm:"size:64;not null;index:idx_stock_item_wh,unique" json:"warehouse_id"`
	Warehouse   Warehouse

	Quantity          int `gorm:"not null;default:0" json:"quantity"`
	AvailableQuantity int `gorm:"not null;default:0" json:"available_quantity"`
	ReservedQuantity  int `gorm:"not null;default:0" json:"reserved_quantity"`

	// Optimistic concurrency counter, bumped on every write.
	Version int64 `gorm:"not null;default:0" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
