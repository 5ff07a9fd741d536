package db

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"pedidos-app/internal/models"
)

// ConnectAndMigrate opens the database selected by the DSN (postgres URL or
// sqlite file path) and brings the schema up to date. Set MIGRATIONS=1 to
// run SQL migrations instead of AutoMigrate.
func ConnectAndMigrate(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("DATABASE_DSN is empty")
	}

	logLevel := logger.Silent
	if os.Getenv("DB_DEBUG") == "1" {
		logLevel = logger.Info
	}
	cfg := &gorm.Config{Logger: logger.Default.LogMode(logLevel)}

	var (
		db  *gorm.DB
		err error
	)
	if isPostgres(dsn) {
		for i := 0; i < 10; i++ {
			db, err = gorm.Open(postgres.Open(dsn), cfg)
			if err == nil {
				break
			}
			time.Sleep(2 * time.Second)
		}
	} else {
		db, err = gorm.Open(sqlite.Open(dsn), cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	if pingErr := db.Exec("SELECT 1").Error; pingErr != nil {
		return nil, fmt.Errorf("db ping failed: %w", pingErr)
	}

	if v := strings.ToLower(os.Getenv("MIGRATIONS")); v == "1" || v == "true" || v == "yes" {
		if err := runSQLMigrations(dsn); err != nil {
			return nil, fmt.Errorf("sql migrations failed: %w", err)
		}
	} else if err := AutoMigrate(db); err != nil {
		return nil, err
	}

	if v := strings.ToLower(os.Getenv("DB_SEED")); v == "1" || v == "true" || v == "yes" {
		seed(db)
	}
	return db, nil
}

// AutoMigrate creates/updates tables for every model.
func AutoMigrate(db *gorm.DB) error {
	toMigrate := []interface{}{
		&models.Category{}, &models.Product{}, &models.Customer{}, &models.Seller{},
		&models.Order{}, &models.OrderItem{}, &models.Expense{},
		&models.Purchase{}, &models.PriceHistory{},
		&models.Payment{}, &models.WeeklyOffer{},
	}
	for _, m := range toMigrate {
		if err := db.AutoMigrate(m); err != nil {
			return fmt.Errorf("automigrate %T: %w", m, err)
		}
	}
	return nil
}

func isPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") ||
		strings.Contains(dsn, "host=")
}

// seed inserts the baseline categories; it is idempotent.
func seed(db *gorm.DB) {
	baseCategories := []models.Category{
		{Name: "Fruta"},
		{Name: "Verdura"},
		{Name: "Otros"},
	}
	for _, c := range baseCategories {
		var existing models.Category
		if err := db.Where("name = ?", c.Name).First(&existing).Error; err == gorm.ErrRecordNotFound {
			db.Create(&c)
		}
	}
}
