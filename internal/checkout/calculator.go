package checkout

import (
	"math"

	"github.com/jjgames/storefront/internal/settings"
)

// Quote is the authoritative redemption computation for a cart subtotal and a
// wallet balance. It is always recomputed server-side from current state at
// settlement time; a client-supplied points figure is never trusted.
type Quote struct {
	Subtotal       float64 `json:"subtotal"`
	MaxDiscount    int64   `json:"max_discount"`
	PointsToRedeem int64   `json:"points_to_redeem"`
	Discount       float64 `json:"discount"`
	FinalAmount    float64 `json:"final_amount"`
}

// ComputeQuote clamps redemption to min(balance, floor(subtotal * cap%)).
// One point is one currency unit.
func ComputeQuote(subtotal float64, currentPoints int64, usePoints bool) Quote {
	if subtotal < 0 {
		subtotal = 0
	}
	cfg := settings.CurrentPointsConfig()

	maxDiscount := int64(math.Floor(subtotal * float64(cfg.MaxDiscountPercent) / 100))
	if maxDiscount < 0 {
		maxDiscount = 0
	}

	var points int64
	if usePoints {
		points = currentPoints
		if points > maxDiscount {
			points = maxDiscount
		}
		if points < 0 {
			points = 0
		}
	}

	discount := float64(points)
	return Quote{
		Subtotal:       subtotal,
		MaxDiscount:    maxDiscount,
		PointsToRedeem: points,
		Discount:       discount,
		FinalAmount:    subtotal - discount,
	}
}

// PointsEarned computes the purchase-earn credit from an order's final,
// post-discount amount.
func PointsEarned(finalAmount float64) int64 {
	if finalAmount <= 0 {
		return 0
	}
	cfg := settings.CurrentPointsConfig()
	return int64(math.Floor(finalAmount * float64(cfg.PurchaseEarnPercent) / 100))
}
