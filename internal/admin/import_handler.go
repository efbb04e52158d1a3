package admin

import (
	"strconv"
	"strings"

	"pricep86-backend/internal/stock"

	"github.com/gofiber/fiber/v2"
	"github.com/xuri/excelize/v2"
)

type ImportRowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

type ImportResult struct {
	Processed int              `json:"processed"`
	Skipped   int              `json:"skipped"`
	Errors    []ImportRowError `json:"errors"`
}

// ImportStockHandler takes the nightly 1C export as an .xlsx upload and
// rewrites absolute availability per warehouse. Expected columns:
// item_id, item_type, warehouse_id, quantity. The first row is skipped
// when it looks like a header.
//
// POST /api/admin/stock/import (multipart, field "file")
func ImportStockHandler(engine *stock.Engine, cache *stock.CachedAggregator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fileHeader, err := c.FormFile("file")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Не удалось загрузить файл: "+err.Error())
		}
		if !strings.HasSuffix(strings.ToLower(fileHeader.Filename), ".xlsx") {
			return fiber.NewError(fiber.StatusBadRequest, "Поддерживаются только файлы .xlsx")
		}

		file, err := fileHeader.Open()
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Не удалось открыть файл: "+err.Error())
		}
		defer file.Close()

		excelFile, err := excelize.OpenReader(file)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Не удалось прочитать файл Excel: "+err.Error())
		}
		defer excelFile.Close()

		sheetList := excelFile.GetSheetList()
		if len(sheetList) == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "В файле Excel нет листов")
		}

		rows, err := excelFile.GetRows(sheetList[0])
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Не удалось прочитать лист: "+err.Error())
		}
		if len(rows) == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Файл Excel пуст")
		}

		startIndex := 0
		if len(rows[0]) > 0 {
			firstCell := strings.ToLower(strings.TrimSpace(rows[0][0]))
			if strings.Contains(firstCell, "item") || strings.Contains(firstCell, "товар") ||
				strings.Contains(firstCell, "артикул") {
				startIndex = 1
			}
		}

		actor := actorFrom(c, "Импорт остатков из 1С")
		result := ImportResult{Errors: make([]ImportRowError, 0)}
		touched := make(map[string]struct{})

		for i := startIndex; i < len(rows); i++ {
			row := rows[i]
			if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
				continue
			}
			if len(row) < 4 {
				result.Skipped++
				result.Errors = append(result.Errors, ImportRowError{Row: i + 1, Message: "недостаточно колонок"})
				continue
			}

			itemID := strings.TrimSpace(row[0])
			itemType := stock.ItemType(strings.TrimSpace(row[1]))
			warehouseID := strings.TrimSpace(row[2])
			qty, convErr := strconv.Atoi(strings.TrimSpace(row[3]))
			if convErr != nil || qty < 0 {
				result.Skipped++
				result.Errors = append(result.Errors, ImportRowError{Row: i + 1, Message: "некорректное количество"})
				continue
			}
			if itemType != stock.ItemTrailer && itemType != stock.ItemOption {
				result.Skipped++
				result.Errors = append(result.Errors, ImportRowError{Row: i + 1, Message: "неизвестный тип товара"})
				continue
			}

			if _, err := engine.SetQuantity(c.Context(), itemID, itemType, warehouseID, qty, actor); err != nil {
				result.Skipped++
				result.Errors = append(result.Errors, ImportRowError{Row: i + 1, Message: err.Error()})
				continue
			}
			touched[itemID] = struct{}{}
			result.Processed++
		}

		for itemID := range touched {
			cache.Invalidate(itemID)
		}
		return c.JSON(result)
	}
}
