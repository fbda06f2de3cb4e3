package settings

// DB config keys and defaults for the points economy.
const (
	// SignupBonusPointsKey is the one-time registration grant.
	SignupBonusPointsKey = "SIGNUP_BONUS_POINTS"
	// ReferralBonusPointsKey is the per-referred-signup grant to the referrer.
	ReferralBonusPointsKey = "REFERRAL_BONUS_POINTS"
	// DailyPlayBonusPointsKey is the once-per-day play grant.
	DailyPlayBonusPointsKey = "DAILY_PLAY_BONUS_POINTS"
	// PurchaseEarnPercentKey is the percent of an order's final amount earned back.
	PurchaseEarnPercentKey = "PURCHASE_EARN_PERCENT"
	// MaxDiscountPercentKey caps point redemption as a percent of the subtotal.
	MaxDiscountPercentKey = "MAX_DISCOUNT_PERCENT"

	// DefaultSignupBonusPoints is the fallback signup grant.
	DefaultSignupBonusPoints = 20
	// DefaultReferralBonusPoints is the fallback referral grant.
	DefaultReferralBonusPoints = 200
	// DefaultDailyPlayBonusPoints is the fallback daily play grant.
	DefaultDailyPlayBonusPoints = 10
	// DefaultPurchaseEarnPercent is the fallback purchase earn rate.
	DefaultPurchaseEarnPercent = 1
	// DefaultMaxDiscountPercent is the fallback redemption cap.
	DefaultMaxDiscountPercent = 50
)

// PointsConfig bundles the active points economy parameters.
type PointsConfig struct {
	SignupBonus         int64 `json:"signup_bonus"`
	ReferralBonus       int64 `json:"referral_bonus"`
	DailyPlayBonus      int64 `json:"daily_play_bonus"`
	PurchaseEarnPercent int   `json:"purchase_earn_percent"`
	MaxDiscountPercent  int   `json:"max_discount_percent"`
}

// CurrentPointsConfig resolves the points configuration from the DB snapshot,
// falling back to defaults for unset keys.
func CurrentPointsConfig() PointsConfig {
	return PointsConfig{
		SignupBonus:         int64Value(SignupBonusPointsKey, DefaultSignupBonusPoints),
		ReferralBonus:       int64Value(ReferralBonusPointsKey, DefaultReferralBonusPoints),
		DailyPlayBonus:      int64Value(DailyPlayBonusPointsKey, DefaultDailyPlayBonusPoints),
		PurchaseEarnPercent: intValue(PurchaseEarnPercentKey, DefaultPurchaseEarnPercent),
		MaxDiscountPercent:  intValue(MaxDiscountPercentKey, DefaultMaxDiscountPercent),
	}
}
