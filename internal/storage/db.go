package storage

import (
	"fmt"
	"log"
	"time"

	"tg-autodelete/internal/config"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// Initialize opens the database connection based on configuration.
// The sqlite driver is pure Go and is the default for small deployments;
// mysql matches the original hosted setup.
func Initialize(cfg *config.Config) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger: NewCustomGormLogger(cfg.Logger.Level),
	}

	var db *gorm.DB
	var err error

	switch cfg.Database.Driver {
	case "mysql":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=True&loc=Local",
			cfg.Database.Username,
			cfg.Database.Password,
			cfg.Database.Host,
			cfg.Database.Port,
			cfg.Database.DBName,
			cfg.Database.Charset,
		)

		log.Printf("Connecting to database: %s:%d/%s", cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName)
		db, err = gorm.Open(mysql.Open(dsn), gormConfig)
	case "sqlite", "":
		log.Printf("Opening sqlite database: %s", cfg.Database.Path)
		db, err = gorm.Open(sqlite.Open(cfg.Database.Path), gormConfig)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Database.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying SQL DB to configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get SQL DB: %w", err)
	}

	// Set connection pool settings
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Printf("Database connection established successfully")
	return db, nil
}
