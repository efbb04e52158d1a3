package models

import "time"

// ReservationLine: what Reserve actually held for an order, so release and
// commit move exactly the recorded amount even if admins adjusted the row
// in between.
type ReservationLine struct {
	ID          string `gorm:"primaryKey;size:64" json:"id"`
	OrderID     string `gorm:"size:64;not null;index" json:"order_id"`
	ItemID      string `gorm:"size:64;not null;index" json:"item_id"`
	ItemType    string `gorm:"size:20;not null" json:"item_type"`
	WarehouseID string `gorm:"size:64;not null" json:"warehouse_id"`
	Quantity    int    `gorm:"not null" json:"quantity"`

	// active / released / committed
	Status string `gorm:"size:20;not null;default:active;index" json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
