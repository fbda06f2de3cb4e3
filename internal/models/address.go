package models

import "time"

// Address is a saved shipping address. Orders copy the fields at settlement
// time rather than referencing the row.
type Address struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID uint64 `gorm:"not null;index"` // Owning user.

	Name    string `gorm:"type:text;not null"`              // Recipient name.
	Phone   string `gorm:"type:text;not null"`              // Contact phone.
	Line1   string `gorm:"type:text;not null"`              // Street address.
	City    string `gorm:"type:text;not null"`              // City.
	State   string `gorm:"type:text;not null"`              // State.
	Pincode string `gorm:"type:text;not null"`              // Postal code.
	Country string `gorm:"type:text;not null;default:'India'"` // Country.

	IsDefault bool `gorm:"not null;default:false"` // Preselected at checkout.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
