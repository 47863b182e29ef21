package config

import (
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"todo-backend/internal/models"
)

// ConnectDB opens the database named by dsn and migrates the app's tables.
// ":memory:" and "file:" DSNs use sqlite, anything else postgres.
func ConnectDB(dsn string, log *zap.Logger) (*gorm.DB, error) {
	db, err := connectAndMigrate(dsn)
	if err != nil {
		return nil, err
	}
	log.Info("database connected and migrated", zap.String("dialect", db.Dialector.Name()))
	return db, nil
}

func connectAndMigrate(dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	if dsn == ":memory:" || strings.HasPrefix(dsn, "file:") {
		dialector = sqlite.Open(dsn)
	} else {
		dialector = postgres.Open(dsn)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, err
	}

	if dialector.Name() == "sqlite" {
		// a single connection keeps an in-memory database alive and serializes writers
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates or updates the app's tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.RefreshToken{},
		&models.Todo{},
	)
}
