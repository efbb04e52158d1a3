package stock

import "fmt"

// ValidateStockState checks the ledger invariant on one row.
func ValidateStockState(info StockInfo) []string {
	var violations []string
	if info.Quantity < 0 {
		violations = append(violations, fmt.Sprintf("quantity %d < 0", info.Quantity))
	}
	if info.Available < 0 {
		violations = append(violations, fmt.Sprintf("available %d < 0", info.Available))
	}
	if info.Reserved < 0 {
		violations = append(violations, fmt.Sprintf("reserved %d < 0", info.Reserved))
	}
	if info.Available+info.Reserved != info.Quantity {
		violations = append(violations, fmt.Sprintf(
			"available %d + reserved %d != quantity %d",
			info.Available, info.Reserved, info.Quantity))
	}
	return violations
}

// ValidateMultiWarehouseStock checks every row of an aggregate plus the
// three total-reconciliation equalities.
func ValidateMultiWarehouseStock(agg MultiWarehouseStock) []string {
	var violations []string

	var qty, avail, reserved int
	for _, w := range agg.ByWarehouse {
		row := StockInfo{
			ItemID:      agg.ItemID,
			WarehouseID: w.WarehouseID,
			Quantity:    w.Quantity,
			Available:   w.Available,
			Reserved:    w.Reserved,
		}
		for _, v := range ValidateStockState(row) {
			violations = append(violations, fmt.Sprintf("warehouse %s: %s", w.WarehouseID, v))
		}
		qty += w.Quantity
		avail += w.Available
		reserved += w.Reserved
	}

	if qty != agg.TotalQuantity {
		violations = append(violations, fmt.Sprintf("total quantity %d != sum %d", agg.TotalQuantity, qty))
	}
	if avail != agg.TotalAvailable {
		violations = append(violations, fmt.Sprintf("total available %d != sum %d", agg.TotalAvailable, avail))
	}
	if reserved != agg.TotalReserved {
		violations = append(violations, fmt.Sprintf("total reserved %d != sum %d", agg.TotalReserved, reserved))
	}
	return violations
}
