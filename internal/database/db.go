package database

import (
	"pricep86-backend/internal/config"
	"pricep86-backend/internal/models"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func Init(cfg *config.Config) {
	var err error

	DB, err = gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	err = DB.AutoMigrate(
		&models.Warehouse{},
		&models.StockItem{},
		&models.StockMovement{},
		&models.ReservationLine{},
		&models.Order{},
	)
	if err != nil {
		log.Fatal().Err(err).Msg("auto-migration failed")
	}

	log.Info().Msg("database connected, migration complete")
}
