package models

import "time"

// User represents a storefront customer account.
type User struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Name     string `gorm:"type:text"`                      // Display name.
	Username string `gorm:"type:text;not null;uniqueIndex"` // Unique login name.
	Email    string `gorm:"type:text;not null;uniqueIndex"` // Unique email address.
	Password string `gorm:"type:text;not null"`             // Hashed password.

	IsVerified bool       `gorm:"not null;default:false"` // Whether the email OTP was confirmed.
	OTP        string     `gorm:"type:text"`              // Pending email verification code.
	OTPExpiry  *time.Time // Verification code expiry, if pending.

	IsBlocked   bool       `gorm:"not null;default:false"` // Whether the account is blocked.
	BlockExpiry *time.Time // Block expiry; nil while blocked means forever.

	Wallet *Wallet `gorm:"foreignKey:UserID"` // Points wallet relation.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// BlockActive reports whether the user is blocked at the given instant.
func (u *User) BlockActive(now time.Time) bool {
	if !u.IsBlocked {
		return false
	}
	if u.BlockExpiry == nil {
		return true
	}
	return now.Before(*u.BlockExpiry)
}
