package stock

import "fmt"

// CalculateAvailability produces the storefront verdict for one item and one
// customer city. Pure function over the aggregate; never errors. An
// unknown city simply falls through to remote delivery with the
// other-region default.
func CalculateAvailability(agg *MultiWarehouseStock, customerCity string, settings Settings, cfg CityDeliveryConfig) AvailabilityResult {
	if agg == nil || agg.TotalQuantity == 0 {
		return AvailabilityResult{
			DeliveryDays: settings.OrderDeliveryDays,
			Label:        LabelOnOrder,
			BadgeClass:   BadgeOnOrder,
		}
	}

	city := NormalizeCity(customerCity)

	var localQty int
	var remote []WarehouseStock
	for _, w := range agg.ByWarehouse {
		if NormalizeCity(w.City) == city {
			localQty += w.Available
		} else if w.Available > 0 {
			remote = append(remote, w)
		}
	}
	var otherQty int
	for _, w := range remote {
		otherQty += w.Available
	}

	switch settings.DisplayMode {
	case DisplayTotal:
		if localQty+otherQty > 0 {
			return AvailabilityResult{
				IsAvailable:         true,
				IsLocalStock:        localQty > 0,
				LocalQuantity:       localQty,
				OtherCitiesQuantity: otherQty,
				Label:               inStockLabel(settings, localQty+otherQty),
				BadgeClass:          BadgeInStock,
			}
		}
	case DisplayHidden:
		available := localQty+otherQty > 0
		res := AvailabilityResult{
			IsAvailable:         available,
			IsLocalStock:        localQty > 0,
			LocalQuantity:       localQty,
			OtherCitiesQuantity: otherQty,
			Label:               LabelOnOrder,
			BadgeClass:          BadgeOnOrder,
		}
		if available {
			res.Label = LabelInStock
			res.BadgeClass = BadgeInStock
		} else {
			res.DeliveryDays = settings.OrderDeliveryDays
		}
		return res
	}

	// Default mode: availability relative to the customer's city.
	if localQty > 0 {
		return AvailabilityResult{
			IsAvailable:         true,
			IsLocalStock:        true,
			LocalQuantity:       localQty,
			OtherCitiesQuantity: otherQty,
			Label:               inStockLabel(settings, localQty),
			BadgeClass:          BadgeInStock,
		}
	}

	if otherQty > 0 {
		nearest := FindNearestWarehouse(customerCity, remote, cfg)
		days := cfg.DeliveryDays(customerCity, nearest.City)
		return AvailabilityResult{
			IsAvailable:         true,
			OtherCitiesQuantity: otherQty,
			DeliveryDays:        days,
			Label:               days,
			BadgeClass:          BadgeOtherCityDelivery,
			NearestWarehouse: &NearestWarehouse{
				City:     nearest.City,
				Quantity: nearest.Available,
			},
		}
	}

	return AvailabilityResult{
		OtherCitiesQuantity: otherQty,
		DeliveryDays:        settings.OrderDeliveryDays,
		Label:               LabelOnOrder,
		BadgeClass:          BadgeOnOrder,
	}
}

func inStockLabel(settings Settings, qty int) string {
	if settings.ShowQuantity {
		return fmt.Sprintf("%s (%d шт.)", LabelInStock, qty)
	}
	return LabelInStock
}
