package stock

import "time"

type ItemType string

const (
	ItemTrailer ItemType = "trailer"
	ItemOption  ItemType = "option"
)

type WarehouseType string

const (
	WarehouseMain     WarehouseType = "main"
	WarehouseRegional WarehouseType = "regional"
	WarehousePartner  WarehouseType = "partner"
)

// ChangeType identifies why a stock row changed. One event is appended
// per mutated row, never updated afterwards.
type ChangeType string

const (
	ChangeReserve  ChangeType = "reserve"
	ChangeRelease  ChangeType = "release"
	ChangeCommit   ChangeType = "commit"
	ChangeAdjust   ChangeType = "adjust"
	ChangeImport   ChangeType = "import"
	ChangeTransfer ChangeType = "transfer"
	ChangeReturn   ChangeType = "return"
)

// StockInfo is one ledger row: the quantities of one item at one warehouse.
// Invariant: Quantity == Available + Reserved, all fields >= 0.
type StockInfo struct {
	ItemID      string   `json:"item_id"`
	ItemType    ItemType `json:"item_type"`
	WarehouseID string   `json:"warehouse_id"`
	Quantity    int      `json:"quantity"`
	Available   int      `json:"available_quantity"`
	Reserved    int      `json:"reserved_quantity"`

	// Version is bumped by the store on every write (optimistic concurrency).
	Version int64 `json:"-"`
}

// Warehouse describes a stock-holding location.
type Warehouse struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	City     string        `json:"city"`
	Region   string        `json:"region"`
	Type     WarehouseType `json:"type"`
	Address  string        `json:"address,omitempty"`
	Phone    string        `json:"phone,omitempty"`
	IsActive bool          `json:"is_active"`
}

// WarehouseStock is a ledger row enriched with warehouse metadata.
// Read-only projection used by the aggregator and the selector.
type WarehouseStock struct {
	WarehouseID   string        `json:"warehouse_id"`
	WarehouseName string        `json:"warehouse_name"`
	City          string        `json:"city"`
	Region        string        `json:"region"`
	Type          WarehouseType `json:"type"`
	Quantity      int           `json:"quantity"`
	Available     int           `json:"available_quantity"`
	Reserved      int           `json:"reserved_quantity"`
}

// MultiWarehouseStock aggregates one item across all warehouses.
// Derived on demand, never persisted.
type MultiWarehouseStock struct {
	ItemID         string           `json:"item_id"`
	ItemType       ItemType         `json:"item_type"`
	TotalQuantity  int              `json:"total_quantity"`
	TotalAvailable int              `json:"total_available"`
	TotalReserved  int              `json:"total_reserved"`
	ByWarehouse    []WarehouseStock `json:"by_warehouse"`
}

// NearestWarehouse points the storefront at the closest warehouse that
// still has the item when the customer's own city does not.
type NearestWarehouse struct {
	City     string `json:"city"`
	Quantity int    `json:"quantity"`
}

// AvailabilityResult is what the storefront renders as a badge.
type AvailabilityResult struct {
	IsAvailable         bool              `json:"is_available"`
	IsLocalStock        bool              `json:"is_local_stock"`
	LocalQuantity       int               `json:"local_quantity"`
	OtherCitiesQuantity int               `json:"other_cities_quantity"`
	DeliveryDays        string            `json:"delivery_days,omitempty"`
	Label               string            `json:"label"`
	BadgeClass          string            `json:"badge_class"`
	NearestWarehouse    *NearestWarehouse `json:"nearest_warehouse,omitempty"`
}

// ReservationItem is one requested line of an order. WarehouseID is
// optional; when empty the selector picks one.
type ReservationItem struct {
	ItemID      string   `json:"item_id"`
	ItemType    ItemType `json:"item_type"`
	Quantity    int      `json:"quantity"`
	WarehouseID string   `json:"warehouse_id,omitempty"`
}

// ReservationResult reports the outcome of a batch reserve.
type ReservationResult struct {
	Success       bool              `json:"success"`
	ReservationID string            `json:"reservation_id,omitempty"`
	ItemsReserved []ReservationItem `json:"items_reserved,omitempty"`
	Error         string            `json:"error,omitempty"`
}

// ReservationLine records what Reserve actually held, so that Release and
// Commit move exactly the recorded amount regardless of manual adjustments
// made in between.
type ReservationLine struct {
	ID          string    `json:"id"`
	OrderID     string    `json:"order_id"`
	ItemID      string    `json:"item_id"`
	ItemType    ItemType  `json:"item_type"`
	WarehouseID string    `json:"warehouse_id"`
	Quantity    int       `json:"quantity"`
	Status      string    `json:"status"` // active / released / committed
	CreatedAt   time.Time `json:"created_at"`
}

const (
	LineActive    = "active"
	LineReleased  = "released"
	LineCommitted = "committed"
)

// ChangeEvent is one immutable audit record of a ledger mutation.
type ChangeEvent struct {
	ID              string     `json:"id"`
	ItemID          string     `json:"item_id"`
	ItemType        ItemType   `json:"item_type"`
	WarehouseID     string     `json:"warehouse_id"`
	ChangeType      ChangeType `json:"change_type"`
	QuantityBefore  int        `json:"quantity_before"`
	QuantityAfter   int        `json:"quantity_after"`
	AvailableBefore int        `json:"available_before"`
	AvailableAfter  int        `json:"available_after"`
	ReservedBefore  int        `json:"reserved_before"`
	ReservedAfter   int        `json:"reserved_after"`
	OrderID         string     `json:"order_id,omitempty"`
	UserID          string     `json:"user_id,omitempty"`
	Reason          string     `json:"reason,omitempty"`
	Timestamp       time.Time  `json:"timestamp"`
}

// Delta is a signed change to one ledger row. The ledger applies it
// atomically or not at all.
type Delta struct {
	ItemID      string
	ItemType    ItemType
	WarehouseID string
	Quantity    int
	Available   int
	Reserved    int
}

// Actor identifies who triggered a mutation, for the audit trail.
type Actor struct {
	UserID string
	Reason string
}
