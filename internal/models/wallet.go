package models

import "time"

// Wallet is the per-user points account. CurrentPoints, TotalEarned and
// TotalRedeemed are a cached projection of the ledger; they are only ever
// written in the same transaction as a ledger entry insert.
type Wallet struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID uint64 `gorm:"not null;uniqueIndex"` // Owning user, 1:1.

	CurrentPoints int64 `gorm:"not null;default:0"` // Spendable balance.
	TotalEarned   int64 `gorm:"not null;default:0"` // Lifetime points earned.
	TotalRedeemed int64 `gorm:"not null;default:0"` // Lifetime points redeemed.

	ReferralCode  string  `gorm:"type:text;not null;uniqueIndex"` // Immutable share code.
	ReferralCount int64   `gorm:"not null;default:0"`             // Successful referred signups.
	ReferredBy    *uint64 `gorm:"index"`                          // Referrer user ID, if any.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
