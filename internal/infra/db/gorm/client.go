package gorm

import (
	"fmt"
	"log/slog"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to Postgres and applies the schema.
func Open(dsn string, log *slog.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("gorm: open postgres: %w", err)
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	if log != nil {
		log.Info("database ready")
	}
	return db, nil
}

// Migrate creates or updates every table the application owns.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&userModel{},
		&sessionModel{},
		&propertyModel{},
		&bookingModel{},
		&installmentModel{},
		&transactionModel{},
		&conflictModel{},
		&outboxModel{},
		&idempotencyModel{},
	); err != nil {
		return fmt.Errorf("gorm: migrate: %w", err)
	}
	return nil
}
