package admin

import (
	"errors"

	"pricep86-backend/internal/stock"

	"github.com/gofiber/fiber/v2"
)

type AdjustStockRequest struct {
	ItemID      string `json:"item_id"`
	ItemType    string `json:"item_type"`
	WarehouseID string `json:"warehouse_id"`
	Quantity    int    `json:"quantity"`  // signed delta
	Available   int    `json:"available"` // signed delta
	Reserved    int    `json:"reserved"`  // signed delta
	Reason      string `json:"reason"`
}

type TransferStockRequest struct {
	ItemID          string `json:"item_id"`
	FromWarehouseID string `json:"from_warehouse_id"`
	ToWarehouseID   string `json:"to_warehouse_id"`
	Quantity        int    `json:"quantity"`
	Reason          string `json:"reason"`
}

type ReturnStockRequest struct {
	ItemID      string `json:"item_id"`
	WarehouseID string `json:"warehouse_id"`
	Quantity    int    `json:"quantity"`
	Reason      string `json:"reason"`
}

func actorFrom(c *fiber.Ctx, reason string) stock.Actor {
	return stock.Actor{UserID: c.Get("X-User"), Reason: reason}
}

// engineError maps engine errors onto HTTP statuses.
func engineError(err error) error {
	switch {
	case errors.Is(err, stock.ErrUnknownReference):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, stock.ErrInsufficientStock),
		errors.Is(err, stock.ErrNoSuitableWarehouse),
		errors.Is(err, stock.ErrInvalidTransition):
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, stock.ErrConcurrentModification):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, "Внутренняя ошибка склада")
	}
}

// GET /api/admin/stock/:itemId
// Aggregate for one item plus invariant violations, for the stock panel.
func GetItemStockHandler(engine *stock.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		agg, err := engine.Aggregate(c.Context(), c.Params("itemId"))
		if err != nil {
			return engineError(err)
		}
		return c.JSON(fiber.Map{
			"stock":      agg,
			"violations": stock.ValidateMultiWarehouseStock(*agg),
		})
	}
}

// POST /api/admin/stock/adjust
// Manual count correction; writes a signed delta straight to the ledger.
func AdjustStockHandler(engine *stock.Engine, cache *stock.CachedAggregator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body AdjustStockRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Некорректное тело запроса")
		}
		if body.ItemID == "" || body.WarehouseID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "item_id и warehouse_id обязательны")
		}

		info, err := engine.Adjust(c.Context(), stock.Delta{
			ItemID:      body.ItemID,
			ItemType:    stock.ItemType(body.ItemType),
			WarehouseID: body.WarehouseID,
			Quantity:    body.Quantity,
			Available:   body.Available,
			Reserved:    body.Reserved,
		}, actorFrom(c, body.Reason))
		if err != nil {
			return engineError(err)
		}
		cache.Invalidate(body.ItemID)
		return c.JSON(info)
	}
}

// POST /api/admin/stock/transfer
func TransferStockHandler(engine *stock.Engine, cache *stock.CachedAggregator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body TransferStockRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Некорректное тело запроса")
		}
		if body.ItemID == "" || body.FromWarehouseID == "" || body.ToWarehouseID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "item_id, from_warehouse_id и to_warehouse_id обязательны")
		}

		err := engine.Transfer(c.Context(), body.ItemID, body.FromWarehouseID, body.ToWarehouseID,
			body.Quantity, actorFrom(c, body.Reason))
		if err != nil {
			return engineError(err)
		}
		cache.Invalidate(body.ItemID)
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// POST /api/admin/stock/return
// Physical customer return back onto the shelf.
func ReturnStockHandler(engine *stock.Engine, cache *stock.CachedAggregator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body ReturnStockRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Некорректное тело запроса")
		}
		if body.ItemID == "" || body.WarehouseID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "item_id и warehouse_id обязательны")
		}

		err := engine.Return(c.Context(), body.ItemID, body.WarehouseID, body.Quantity,
			actorFrom(c, body.Reason))
		if err != nil {
			return engineError(err)
		}
		cache.Invalidate(body.ItemID)
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// GET /api/admin/stock/movements?item_id=&warehouse_id=&order_id=&limit=
// The movements ledger view: why every number changed.
func ListMovementsHandler(store stock.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit := c.QueryInt("limit", 100)
		if limit < 1 || limit > 1000 {
			limit = 100
		}
		events, err := store.ListEvents(c.Context(), stock.EventFilter{
			ItemID:      c.Query("item_id"),
			WarehouseID: c.Query("warehouse_id"),
			OrderID:     c.Query("order_id"),
			Limit:       limit,
		})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Не удалось получить журнал движений")
		}
		return c.JSON(events)
	}
}
