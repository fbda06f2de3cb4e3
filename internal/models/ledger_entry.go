package models

import "time"

// EntryType classifies the direction of a ledger entry.
const (
	// EntryTypeEarned credits points to a wallet.
	EntryTypeEarned = "earned"
	// EntryTypeRedeemed debits points from a wallet.
	EntryTypeRedeemed = "redeemed"
)

// Ledger entry sources.
const (
	// SourceSignupBonus is the one-time registration grant.
	SourceSignupBonus = "signup_bonus"
	// SourceReferralBonus is the grant to a referrer on a referred signup.
	SourceReferralBonus = "referral_bonus"
	// SourceDailyPlay is the once-per-day play grant.
	SourceDailyPlay = "daily_play"
	// SourcePurchaseEarn is the credit computed from an order's final amount.
	SourcePurchaseEarn = "purchase_earn"
	// SourceDiscountRedemption is the debit applied as a checkout discount.
	SourceDiscountRedemption = "discount_redemption"
	// SourceAdminAdjustment is an out-of-band admin credit or debit.
	SourceAdminAdjustment = "admin_adjustment"
)

// LedgerEntry is one immutable record of a point credit or debit. Entries are
// append-only; the wallet projection is derived from them. DedupKey carries
// the business idempotency keys (one signup bonus per wallet, one daily bonus
// per wallet per UTC day, one referral bonus per referred user).
type LedgerEntry struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	WalletID uint64 `gorm:"not null;index:idx_ledger_wallet_created"` // Owning wallet.

	Type   string `gorm:"type:text;not null"` // earned or redeemed.
	Points int64  `gorm:"not null"`           // Always positive; sign implied by Type.
	Source string `gorm:"type:text;not null"` // Business source of the entry.

	Description string `gorm:"type:text;not null"` // Human-readable audit text.

	DedupKey *string `gorm:"type:text;uniqueIndex"` // Idempotency key, when the source is rate-limited.
	OrderID  *uint64 `gorm:"index"`                 // Related order for purchase/redemption entries.

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index:idx_ledger_wallet_created"` // Insertion timestamp.
}
