package main

import (
	"os"
	"strings"
	"time"

	"pricep86-backend/internal/admin"
	"pricep86-backend/internal/catalog"
	"pricep86-backend/internal/config"
	"pricep86-backend/internal/database"
	"pricep86-backend/internal/events"
	"pricep86-backend/internal/orders"
	"pricep86-backend/internal/stock"
	"pricep86-backend/internal/storage/gormstore"
	"pricep86-backend/internal/storage/memstore"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg := config.Load()

	var store stock.Store
	var orderRepo orders.Repo
	if cfg.DatabaseDSN != "" {
		database.Init(cfg)
		store = gormstore.New(database.DB)
		orderRepo = orders.NewGormRepo(database.DB)
	} else {
		store = memstore.New()
		orderRepo = orders.NewMemRepo()
	}

	var publisher stock.Events
	if cfg.AMQPURL != "" {
		pub, err := events.NewPublisher(cfg.AMQPURL)
		if err != nil {
			log.Fatal().Err(err).Msg("amqp connection failed")
		}
		defer pub.Close()
		publisher = pub
	}

	engine := stock.NewEngine(store, publisher, log.Logger)
	cache := stock.NewCachedAggregator(stock.NewAggregator(store),
		cfg.AvailabilityCacheSize, time.Duration(cfg.AvailabilityCacheTTL)*time.Second)

	settings := stock.Settings{
		DisplayMode:       stock.DisplayMode(cfg.StockDisplayMode),
		ShowQuantity:      cfg.ShowQuantity,
		LocalDeliveryDays: cfg.LocalDeliveryDays,
		OrderDeliveryDays: cfg.OrderDeliveryDays,
	}
	cityConfig := stock.DefaultCityConfig()

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if e, ok := err.(*fiber.Error); ok {
				return c.Status(e.Code).JSON(fiber.Map{
					"error": e.Message,
				})
			}
			log.Error().Err(err).Str("path", c.Path()).Msg("unexpected error")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Непредвиденная ошибка сервера",
			})
		},
	})

	corsOrigins := strings.Split(cfg.CORSOrigins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(corsOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, X-User",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))

	api := app.Group("/api")

	// Storefront
	api.Get("/availability/:itemId", catalog.GetAvailabilityHandler(cache, settings, cityConfig))
	api.Get("/availability/:itemId/stock", catalog.GetItemWarehousesHandler(cache))
	api.Post("/availability/batch", catalog.BatchAvailabilityHandler(cache, settings, cityConfig))

	// Orders
	api.Post("/orders", orders.CreateOrderHandler(orderRepo, engine, cache))
	api.Get("/orders", orders.ListOrdersHandler(orderRepo))
	api.Get("/orders/:id", orders.GetOrderHandler(orderRepo, store))
	api.Post("/orders/:id/cancel", orders.CancelOrderHandler(orderRepo, engine, cache))
	api.Post("/orders/:id/fulfill", orders.FulfillOrderHandler(orderRepo, engine, cache))

	// Admin
	adminRoutes := api.Group("/admin")

	adminRoutes.Post("/warehouses", admin.CreateWarehouseHandler(store))
	adminRoutes.Get("/warehouses", admin.ListWarehousesHandler(store))
	adminRoutes.Get("/warehouses/:id", admin.GetWarehouseHandler(store))
	adminRoutes.Put("/warehouses/:id", admin.UpdateWarehouseHandler(store))
	adminRoutes.Delete("/warehouses/:id", admin.DeleteWarehouseHandler(store))

	adminRoutes.Get("/stock/movements", admin.ListMovementsHandler(store))
	adminRoutes.Get("/stock/:itemId", admin.GetItemStockHandler(engine))
	adminRoutes.Post("/stock/adjust", admin.AdjustStockHandler(engine, cache))
	adminRoutes.Post("/stock/transfer", admin.TransferStockHandler(engine, cache))
	adminRoutes.Post("/stock/return", admin.ReturnStockHandler(engine, cache))
	adminRoutes.Post("/stock/import", admin.ImportStockHandler(engine, cache))

	log.Info().Str("port", cfg.HTTPPort).Msg("server listening")
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
