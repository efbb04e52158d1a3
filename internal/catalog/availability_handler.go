package catalog

import (
	"pricep86-backend/internal/stock"

	"github.com/gofiber/fiber/v2"
)

type BatchAvailabilityRequest struct {
	ItemIDs []string `json:"item_ids"`
	City    string   `json:"city"`
}

// GET /api/availability/:itemId?city=Сургут
// The storefront badge for one product card.
func GetAvailabilityHandler(cache *stock.CachedAggregator, settings stock.Settings, cfg stock.CityDeliveryConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		itemID := c.Params("itemId")
		if itemID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Не указан товар")
		}

		agg, err := cache.Aggregate(c.Context(), itemID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Не удалось получить остатки")
		}
		return c.JSON(stock.CalculateAvailability(agg, c.Query("city"), settings, cfg))
	}
}

// POST /api/availability/batch
// Catalog pages ask for a whole listing at once.
func BatchAvailabilityHandler(cache *stock.CachedAggregator, settings stock.Settings, cfg stock.CityDeliveryConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body BatchAvailabilityRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Некорректное тело запроса")
		}
		if len(body.ItemIDs) == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Не указаны товары")
		}
		if len(body.ItemIDs) > 200 {
			return fiber.NewError(fiber.StatusBadRequest, "Слишком много товаров в одном запросе")
		}

		results := make(map[string]stock.AvailabilityResult, len(body.ItemIDs))
		for _, itemID := range body.ItemIDs {
			agg, err := cache.Aggregate(c.Context(), itemID)
			if err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "Не удалось получить остатки")
			}
			results[itemID] = stock.CalculateAvailability(agg, body.City, settings, cfg)
		}
		return c.JSON(results)
	}
}

// GET /api/availability/:itemId/stock
// Per-warehouse breakdown shown on the product page.
func GetItemWarehousesHandler(cache *stock.CachedAggregator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		agg, err := cache.Aggregate(c.Context(), c.Params("itemId"))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Не удалось получить остатки")
		}
		return c.JSON(agg)
	}
}
