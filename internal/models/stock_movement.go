package models

import "time"

// StockMovement: append-only audit record of one ledger mutation. Rows are
// created by the engine and never updated or deleted; this table is the
// sole source of truth for why a number changed.
type StockMovement struct {
	ID          string `gorm:"primaryKey;size:64" json:"id"`
	ItemID      string `gorm:"size:64;not null;index" json:"item_id"`
	ItemType    string `gorm:"size:20;not null" json:"item_type"`
	WarehouseID string `gorm:"size:64;not null;index" json:"warehouse_id"`

	// reserve / release / commit / adjust / import / transfer / return
	ChangeType string `gorm:"size:20;not null;index" json:"change_type"`

	QuantityBefore  int `gorm:"not null" json:"quantity_before"`
	QuantityAfter   int `gorm:"not null" json:"quantity_after"`
	AvailableBefore int `gorm:"not null" json:"available_before"`
	AvailableAfter  int `gorm:"not null" json:"available_after"`
	ReservedBefore  int `gorm:"not null" json:"reserved_before"`
	ReservedAfter   int `gorm:"not null" json:"reserved_after"`

	OrderID string `gorm:"size:64;index" json:"order_id,omitempty"`
	UserID  string `gorm:"size:64" json:"user_id,omitempty"`
	Reason  string `gorm:"size:255" json:"reason,omitempty"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
}
