package models

import "time"

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderCancelled OrderStatus = "cancelled"
	OrderCompleted OrderStatus = "completed"
)

// Order: the order workflow's own record. The stock engine only sees the
// order id; customer data stays here.
type Order struct {
	ID            string      `gorm:"primaryKey;size:64" json:"id"`
	CustomerName  string      `gorm:"size:100;not null" json:"customer_name"`
	CustomerPhone string      `gorm:"size:50" json:"customer_phone"`
	CustomerCity  string      `gorm:"size:100" json:"customer_city"`
	Comment       string      `gorm:"size:500" json:"comment"`
	Status        OrderStatus `gorm:"size:20;not null;default:pending;index" json:"status"`

	// Reserved line items as returned by the engine (JSON).
	ItemsJSON string `gorm:"type:jsonb" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
