package stock

import "sort"

// SelectWarehouseForReservation picks the warehouse to hold requestedQty of
// one item. With an explicit warehouse id only that warehouse is checked, no
// fallback. Otherwise candidates with enough available stock are ranked by
// warehouse type priority, then best fit (least leftover), then id.
func SelectWarehouseForReservation(agg *MultiWarehouseStock, requestedQty int, explicitWarehouseID string) (*WarehouseStock, error) {
	if agg == nil || requestedQty <= 0 {
		return nil, ErrNoSuitableWarehouse
	}

	if explicitWarehouseID != "" {
		for i := range agg.ByWarehouse {
			w := &agg.ByWarehouse[i]
			if w.WarehouseID != explicitWarehouseID {
				continue
			}
			if w.Available < requestedQty {
				return nil, insufficientf(agg.ItemID, requestedQty, w.Available)
			}
			return w, nil
		}
		return nil, ErrNoSuitableWarehouse
	}

	var candidates []WarehouseStock
	for _, w := range agg.ByWarehouse {
		if w.Available >= requestedQty {
			candidates = append(candidates, w)
		}
	}
	if len(candidates) == 0 {
		return nil, ErrNoSuitableWarehouse
	}

	sort.Slice(candidates, func(i, j int) bool {
		pi, pj := typePriority(candidates[i].Type), typePriority(candidates[j].Type)
		if pi != pj {
			return pi < pj
		}
		// Best fit: minimize leftover to reduce fragmentation.
		li, lj := candidates[i].Available-requestedQty, candidates[j].Available-requestedQty
		if li != lj {
			return li < lj
		}
		return candidates[i].WarehouseID < candidates[j].WarehouseID
	})
	return &candidates[0], nil
}

// FindNearestWarehouse ranks warehouses holding stock by delivery route
// priority toward the customer's city, then by available quantity. Used by
// the availability calculator for the "delivery from another city" badge.
func FindNearestWarehouse(customerCity string, warehouses []WarehouseStock, cfg CityDeliveryConfig) *WarehouseStock {
	if len(warehouses) == 0 {
		return nil
	}
	if len(warehouses) == 1 {
		return &warehouses[0]
	}

	sorted := make([]WarehouseStock, len(warehouses))
	copy(sorted, warehouses)

	_, known := cfg.Cities[NormalizeCity(customerCity)]
	sort.Slice(sorted, func(i, j int) bool {
		if known {
			pi := cfg.RoutePriority(customerCity, sorted[i].City)
			pj := cfg.RoutePriority(customerCity, sorted[j].City)
			if pi != pj {
				return pi < pj
			}
		} else {
			// City not in the table: fall back to warehouse type priority.
			pi, pj := typePriority(sorted[i].Type), typePriority(sorted[j].Type)
			if pi != pj {
				return pi < pj
			}
		}
		return sorted[i].Available > sorted[j].Available
	})
	return &sorted[0]
}

// CanReserve reports whether the network as a whole can cover the quantity.
// Only the final atomic apply is authoritative; this is the cheap pre-check.
func CanReserve(agg *MultiWarehouseStock, quantity int) error {
	if agg == nil {
		return ErrUnknownReference
	}
	if agg.TotalAvailable < quantity {
		return insufficientf(agg.ItemID, quantity, agg.TotalAvailable)
	}
	return nil
}
