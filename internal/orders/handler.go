package orders

import (
	"encoding/json"
	"errors"

	"pricep86-backend/internal/models"
	"pricep86-backend/internal/stock"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type CreateOrderRequest struct {
	CustomerName  string                  `json:"customer_name"`
	CustomerPhone string                  `json:"customer_phone"`
	CustomerCity  string                  `json:"customer_city"`
	Comment       string                  `json:"comment"`
	Items         []stock.ReservationItem `json:"items"`
}

type OrderResponse struct {
	Order       *models.Order            `json:"order"`
	Reservation *stock.ReservationResult `json:"reservation,omitempty"`
}

func actorFrom(c *fiber.Ctx, reason string) stock.Actor {
	return stock.Actor{UserID: c.Get("X-User"), Reason: reason}
}

func stockError(err error) error {
	switch {
	case errors.Is(err, stock.ErrNotFound), errors.Is(err, stock.ErrUnknownReference):
		return fiber.NewError(fiber.StatusNotFound, "Заказ не найден")
	case errors.Is(err, stock.ErrInvalidTransition):
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, stock.ErrConcurrentModification):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, "Внутренняя ошибка заказа")
	}
}

// POST /api/orders
// Creates the order and reserves every line atomically. A failed
// reservation is a normal outcome, not an HTTP error: the caller gets
// the failed result and no order record.
func CreateOrderHandler(repo Repo, engine *stock.Engine, cache *stock.CachedAggregator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateOrderRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Некорректное тело запроса")
		}
		if body.CustomerName == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Не указано имя покупателя")
		}
		if len(body.Items) == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Заказ не содержит позиций")
		}

		orderID := uuid.NewString()
		result, err := engine.Reserve(c.Context(), orderID, body.Items, actorFrom(c, "Оформление заказа"))
		if err != nil {
			if errors.Is(err, stock.ErrInvalidTransition) || errors.Is(err, stock.ErrUnknownReference) {
				return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
			}
			return stockError(err)
		}
		for _, item := range body.Items {
			cache.Invalidate(item.ItemID)
		}
		if !result.Success {
			return c.Status(fiber.StatusConflict).JSON(OrderResponse{Reservation: result})
		}

		itemsJSON, _ := json.Marshal(result.ItemsReserved)
		order := &models.Order{
			ID:            orderID,
			CustomerName:  body.CustomerName,
			CustomerPhone: body.CustomerPhone,
			CustomerCity:  stock.NormalizeCity(body.CustomerCity),
			Comment:       body.Comment,
			Status:        models.OrderPending,
			ItemsJSON:     string(itemsJSON),
		}
		if err := repo.Create(c.Context(), order); err != nil {
			// The order record failed, release the hold so stock is not stranded.
			if relErr := engine.Release(c.Context(), orderID, actorFrom(c, "Откат после ошибки сохранения заказа")); relErr != nil {
				return stockError(relErr)
			}
			return fiber.NewError(fiber.StatusInternalServerError, "Не удалось сохранить заказ")
		}

		return c.Status(fiber.StatusCreated).JSON(OrderResponse{Order: order, Reservation: result})
	}
}

// GET /api/orders/:id
func GetOrderHandler(repo Repo, store stock.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		order, err := repo.Get(c.Context(), c.Params("id"))
		if err != nil {
			return stockError(err)
		}
		lines, err := store.ListReservationLines(c.Context(), order.ID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Не удалось получить резервы заказа")
		}
		return c.JSON(fiber.Map{"order": order, "reservation_lines": lines})
	}
}

// GET /api/orders?limit=
func ListOrdersHandler(repo Repo) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit := c.QueryInt("limit", 50)
		if limit < 1 || limit > 500 {
			limit = 50
		}
		list, err := repo.List(c.Context(), limit)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Не удалось получить заказы")
		}
		return c.JSON(list)
	}
}

// POST /api/orders/:id/cancel
// Releases every active hold and marks the order cancelled. Idempotent.
func CancelOrderHandler(repo Repo, engine *stock.Engine, cache *stock.CachedAggregator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		order, err := repo.Get(c.Context(), c.Params("id"))
		if err != nil {
			return stockError(err)
		}
		if order.Status == models.OrderCompleted {
			return fiber.NewError(fiber.StatusUnprocessableEntity, "Завершённый заказ нельзя отменить")
		}

		if err := engine.Release(c.Context(), order.ID, actorFrom(c, "Отмена заказа")); err != nil {
			return stockError(err)
		}
		if err := repo.UpdateStatus(c.Context(), order.ID, models.OrderCancelled); err != nil {
			return stockError(err)
		}
		invalidateOrderItems(cache, order)
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// POST /api/orders/:id/fulfill
// The trailer left the yard: reserved units become shipped units.
func FulfillOrderHandler(repo Repo, engine *stock.Engine, cache *stock.CachedAggregator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		order, err := repo.Get(c.Context(), c.Params("id"))
		if err != nil {
			return stockError(err)
		}
		if order.Status == models.OrderCancelled {
			return fiber.NewError(fiber.StatusUnprocessableEntity, "Отменённый заказ нельзя выдать")
		}

		if err := engine.Commit(c.Context(), order.ID, actorFrom(c, "Выдача заказа")); err != nil {
			return stockError(err)
		}
		if err := repo.UpdateStatus(c.Context(), order.ID, models.OrderCompleted); err != nil {
			return stockError(err)
		}
		invalidateOrderItems(cache, order)
		return c.SendStatus(fiber.StatusNoContent)
	}
}

func invalidateOrderItems(cache *stock.CachedAggregator, order *models.Order) {
	var items []stock.ReservationItem
	if json.Unmarshal([]byte(order.ItemsJSON), &items) != nil {
		return
	}
	for _, item := range items {
		cache.Invalidate(item.ItemID)
	}
}
