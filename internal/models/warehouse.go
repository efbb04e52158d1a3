package models

import "time"

type WarehouseType string

const (
	WarehouseMain     WarehouseType = "main"
	WarehouseRegional WarehouseType = "regional"
	WarehousePartner  WarehouseType = "partner"
)

type Warehouse struct {
	ID        string        `gorm:"primaryKey;size:64" json:"id"`
	Name      string        `gorm:"size:100;not null" json:"name"`
	City      string        `gorm:"size:100;not null;index" json:"city"`
	Region    string        `gorm:"size:100" json:"region"`
	Type      WarehouseType `gorm:"size:20;not null;default:regional" json:"type"`
	Address   string        `gorm:"size:255" json:"address"`
	Phone     string        `gorm:"size:50" json:"phone"`
	IsActive  bool          `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}
