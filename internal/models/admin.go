package models

import (
	"time"

	"gorm.io/datatypes"
)

// Admin represents an administrator account stored in the database.
type Admin struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Username string `gorm:"type:text;not null;uniqueIndex"` // Unique login name.
	Password string `gorm:"type:text;not null"`             // Hashed password.

	Active bool `gorm:"not null;default:true"` // Whether the admin can sign in.

	IsSuperAdmin bool `gorm:"not null;default:false"` // Grants all permissions when true.

	Permissions datatypes.JSON `gorm:"not null;default:'[]'"` // Permission keys in JSON.

	TOTPSecret string `gorm:"type:text"` // TOTP secret when a second factor is enrolled.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
