package postgres

import (
	"fmt"
	"log"
	"time"

	"deliverysim/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Init opens the database and migrates the start point table
func Init(url string) (*gorm.DB, error) {
	gormLogger := logger.New(
		log.New(log.Writer(), "", 0),
		logger.Config{
			SlowThreshold: 500 * time.Millisecond,
			LogLevel:      logger.Warn,
		},
	)

	db, err := gorm.Open(postgres.Open(url), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if err := db.AutoMigrate(&model.StartPointPG{}); err != nil {
		return nil, fmt.Errorf("migrate start points: %w", err)
	}

	return db, nil
}

// Close releases the underlying connection pool
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	log.Println("Closing PostgreSQL connection...")
	return sqlDB.Close()
}
