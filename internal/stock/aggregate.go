package stock

import "context"

// Aggregator combines per-warehouse ledger rows into one view per item.
// Read-only and safe to call concurrently; results may be one reservation
// stale, Reserve re-validates at mutation time.
type Aggregator struct {
	store Store
}

func NewAggregator(store Store) *Aggregator {
	return &Aggregator{store: store}
}

// Aggregate reads all rows for an item and attaches warehouse metadata.
// Zero matching rows yield an all-zero aggregate, not an error.
func (a *Aggregator) Aggregate(ctx context.Context, itemID string) (*MultiWarehouseStock, error) {
	rows, err := a.store.ListStockByItem(ctx, itemID)
	if err != nil {
		return nil, err
	}

	warehouses, err := a.store.ListWarehouses(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]Warehouse, len(warehouses))
	for _, w := range warehouses {
		byID[w.ID] = w
	}

	agg := &MultiWarehouseStock{ItemID: itemID}
	for _, row := range rows {
		if agg.ItemType == "" {
			agg.ItemType = row.ItemType
		}
		ws := WarehouseStock{
			WarehouseID: row.WarehouseID,
			Quantity:    row.Quantity,
			Available:   row.Available,
			Reserved:    row.Reserved,
		}
		if w, ok := byID[row.WarehouseID]; ok {
			ws.WarehouseName = w.Name
			ws.City = w.City
			ws.Region = w.Region
			ws.Type = w.Type
		}
		agg.ByWarehouse = append(agg.ByWarehouse, ws)
		agg.TotalQuantity += row.Quantity
		agg.TotalAvailable += row.Available
		agg.TotalReserved += row.Reserved
	}
	return agg, nil
}
