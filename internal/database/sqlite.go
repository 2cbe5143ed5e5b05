package database

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/hoaportal/backend/internal/models"
)

var DB *gorm.DB

// Initialize opens the database at dbPath, migrates the schema and stores the
// handle in DB.
func Initialize(dbPath string, logLevel string) error {
	db, err := Open(dbPath, logLevel)
	if err != nil {
		return err
	}
	DB = db
	return nil
}

// Open connects to a SQLite database, runs schema and data migrations and
// returns the handle. ":memory:" is supported for tests.
func Open(dbPath string, logLevel string) (*gorm.DB, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger:         logger.Default.LogMode(parseLogLevel(logLevel)),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// Each new in-memory connection would see an empty database
	if dbPath == ":memory:" {
		sqlDB.SetMaxOpenConns(1)
	}

	log.Println("Database connected successfully")

	if err := db.AutoMigrate(&models.Document{}, &models.TranslationJob{}); err != nil {
		return nil, err
	}

	if err := RunMigrations(db); err != nil {
		return nil, err
	}

	log.Println("Database migration completed")
	return db, nil
}

func GetDB() *gorm.DB {
	return DB
}

func parseLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}
