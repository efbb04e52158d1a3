package admin

import (
	"errors"
	"strings"

	"pricep86-backend/internal/stock"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type CreateWarehouseRequest struct {
	ID      string  `json:"id"` // optional; generated when empty
	Name    string  `json:"name"`
	City    string  `json:"city"`
	Region  string  `json:"region"`
	Type    string  `json:"type"` // main / regional / partner
	Address string  `json:"address"`
	Phone   *string `json:"phone"`
}

type UpdateWarehouseRequest struct {
	Name     *string `json:"name"`
	City     *string `json:"city"`
	Region   *string `json:"region"`
	Type     *string `json:"type"`
	Address  *string `json:"address"`
	Phone    *string `json:"phone"`
	IsActive *bool   `json:"is_active"`
}

func validWarehouseType(t string) bool {
	switch stock.WarehouseType(t) {
	case stock.WarehouseMain, stock.WarehouseRegional, stock.WarehousePartner:
		return true
	}
	return false
}

// POST /api/admin/warehouses
func CreateWarehouseHandler(store stock.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateWarehouseRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Некорректное тело запроса")
		}

		body.Name = strings.TrimSpace(body.Name)
		body.City = strings.TrimSpace(body.City)
		if body.Name == "" || body.City == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Название и город склада обязательны")
		}
		if body.Type == "" {
			body.Type = string(stock.WarehouseRegional)
		}
		if !validWarehouseType(body.Type) {
			return fiber.NewError(fiber.StatusBadRequest, "Тип склада должен быть main, regional или partner")
		}
		if body.ID == "" {
			body.ID = "wh-" + uuid.NewString()[:8]
		}

		w := stock.Warehouse{
			ID:       body.ID,
			Name:     body.Name,
			City:     stock.NormalizeCity(body.City),
			Region:   strings.TrimSpace(body.Region),
			Type:     stock.WarehouseType(body.Type),
			Address:  body.Address,
			IsActive: true,
		}
		if body.Phone != nil {
			w.Phone = strings.TrimSpace(*body.Phone)
		}

		if err := store.SaveWarehouse(c.Context(), &w); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Не удалось создать склад")
		}
		return c.Status(fiber.StatusCreated).JSON(w)
	}
}

// GET /api/admin/warehouses
func ListWarehousesHandler(store stock.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		warehouses, err := store.ListWarehouses(c.Context())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Не удалось получить список складов")
		}
		return c.JSON(warehouses)
	}
}

// GET /api/admin/warehouses/:id
func GetWarehouseHandler(store stock.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		w, err := store.GetWarehouse(c.Context(), c.Params("id"))
		if errors.Is(err, stock.ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "Склад не найден")
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Не удалось получить склад")
		}
		return c.JSON(w)
	}
}

// PUT /api/admin/warehouses/:id
func UpdateWarehouseHandler(store stock.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		w, err := store.GetWarehouse(c.Context(), c.Params("id"))
		if errors.Is(err, stock.ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "Склад не найден")
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Не удалось получить склад")
		}

		var body UpdateWarehouseRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Некорректное тело запроса")
		}

		if body.Name != nil {
			name := strings.TrimSpace(*body.Name)
			if name == "" {
				return fiber.NewError(fiber.StatusBadRequest, "Название склада не может быть пустым")
			}
			w.Name = name
		}
		if body.City != nil {
			w.City = stock.NormalizeCity(*body.City)
		}
		if body.Region != nil {
			w.Region = strings.TrimSpace(*body.Region)
		}
		if body.Type != nil {
			if !validWarehouseType(*body.Type) {
				return fiber.NewError(fiber.StatusBadRequest, "Тип склада должен быть main, regional или partner")
			}
			w.Type = stock.WarehouseType(*body.Type)
		}
		if body.Address != nil {
			w.Address = *body.Address
		}
		if body.Phone != nil {
			w.Phone = strings.TrimSpace(*body.Phone)
		}
		if body.IsActive != nil {
			w.IsActive = *body.IsActive
		}

		if err := store.SaveWarehouse(c.Context(), w); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Не удалось обновить склад")
		}
		return c.JSON(w)
	}
}

// DELETE /api/admin/warehouses/:id
func DeleteWarehouseHandler(store stock.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := store.DeleteWarehouse(c.Context(), c.Params("id"))
		if errors.Is(err, stock.ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "Склад не найден")
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Не удалось удалить склад")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
