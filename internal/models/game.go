package models

import "time"

// Game is a catalog product. Order rows snapshot its price at order time, so
// later catalog edits never affect placed orders.
type Game struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Title       string   `gorm:"type:text;not null"`           // Display title.
	Description string   `gorm:"type:text"`                    // Long description.
	Price       float64  `gorm:"type:decimal(20,2);not null"`  // Current list price.
	OldPrice    *float64 `gorm:"type:decimal(20,2)"`           // Pre-discount price, if on sale.
	Image       string   `gorm:"type:text"`                    // Cover image URL.
	Tag         string   `gorm:"type:text;index"`              // Marketing tag.

	IsActive bool `gorm:"not null;default:true"` // Whether the game is purchasable.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
