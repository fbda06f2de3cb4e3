package db

import (
	"fmt"

	"github.com/jjgames/storefront/internal/models"
	"gorm.io/gorm"
)

// Migrate applies the schema for all storefront models.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}

	if err := conn.AutoMigrate(
		&models.User{},
		&models.Wallet{},
		&models.LedgerEntry{},
		&models.Game{},
		&models.Cart{},
		&models.CartItem{},
		&models.Order{},
		&models.Address{},
		&models.Admin{},
		&models.Setting{},
	); err != nil {
		return fmt.Errorf("db: migrate: %w", err)
	}

	// Deployments that predate the dedup_key column rely on AutoMigrate adding
	// it; the unique index must exist before any rate-limited grant runs.
	if !conn.Migrator().HasColumn(&models.LedgerEntry{}, "dedup_key") {
		return fmt.Errorf("db: migrate: ledger_entries missing dedup_key")
	}

	return nil
}
