package models

import "time"

// Cart is the server-persisted cart, one live row per account. Guest carts
// live outside the database (see internal/cart) until they merge in at login.
type Cart struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID uint64 `gorm:"not null;uniqueIndex"` // Owning user.

	Items []CartItem `gorm:"foreignKey:CartID"` // Line items, unique by game.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// CartItem is one line of a cart. A game appears at most once per cart;
// re-adding it increments Quantity.
type CartItem struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	CartID uint64 `gorm:"not null;uniqueIndex:idx_cart_item_cart_game"` // Owning cart.
	GameID uint64 `gorm:"not null;uniqueIndex:idx_cart_item_cart_game"` // Referenced game.

	Title    string  `gorm:"type:text;not null"`          // Title at add time, for display only.
	Price    float64 `gorm:"type:decimal(20,2);not null"` // Price at add time, for display only.
	Image    string  `gorm:"type:text"`                   // Image at add time.
	Quantity int     `gorm:"not null;default:1"`          // Always >= 1.

	AddedAt time.Time `gorm:"not null;autoCreateTime"` // First add timestamp.
}
