package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jjgames/storefront/internal/checkout"
	"github.com/jjgames/storefront/internal/settings"
	"github.com/jjgames/storefront/internal/wallet"
)

// WalletHandler handles wallet endpoints for users.
type WalletHandler struct {
	wallets *wallet.Service
}

// NewWalletHandler constructs a WalletHandler.
func NewWalletHandler(wallets *wallet.Service) *WalletHandler {
	return &WalletHandler{wallets: wallets}
}

// Get returns the wallet summary and the active points configuration.
func (h *WalletHandler) Get(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	w, errBalance := h.wallets.Balance(c.Request.Context(), userID)
	if errBalance != nil {
		respondWalletError(c, errBalance)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"wallet": gin.H{
			"current_points": w.CurrentPoints,
			"total_earned":   w.TotalEarned,
			"total_redeemed": w.TotalRedeemed,
			"referral_code":  w.ReferralCode,
			"referral_count": w.ReferralCount,
		},
		"points_config": settings.CurrentPointsConfig(),
	})
}

// historyQuery defines the pagination query for ledger history.
type historyQuery struct {
	Page  int `form:"page,default=1"`
	Limit int `form:"limit,default=20"`
}

// History returns the user's ledger entries, newest first.
func (h *WalletHandler) History(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var q historyQuery
	if errBind := c.ShouldBindQuery(&q); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query"})
		return
	}

	entries, total, errHistory := h.wallets.History(c.Request.Context(), userID, q.Page, q.Limit)
	if errHistory != nil {
		respondWalletError(c, errHistory)
		return
	}

	history := make([]gin.H, 0, len(entries))
	for _, entry := range entries {
		history = append(history, gin.H{
			"id":          entry.ID,
			"type":        entry.Type,
			"points":      entry.Points,
			"source":      entry.Source,
			"description": entry.Description,
			"order_id":    entry.OrderID,
			"created_at":  entry.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"history": history,
		"total":   total,
		"page":    q.Page,
		"limit":   q.Limit,
	})
}

// DailyBonus claims the daily play bonus. A repeat claim the same UTC day is
// reported as already_claimed, not as an error.
func (h *WalletHandler) DailyBonus(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	result, errClaim := h.wallets.ClaimDailyBonus(c.Request.Context(), userID, time.Now())
	if errClaim != nil {
		respondWalletError(c, errClaim)
		return
	}

	if result.AlreadyClaimed {
		c.JSON(http.StatusOK, gin.H{
			"success":         false,
			"already_claimed": true,
			"message":         "daily bonus already claimed today, play again tomorrow!",
			"current_points":  result.CurrentPoints,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"points_earned":  result.PointsEarned,
		"current_points": result.CurrentPoints,
	})
}

// Discount previews the redemption quote for a cart total. The preview is
// advisory; settlement recomputes it from authoritative state.
func (h *WalletHandler) Discount(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	amount, errParse := strconv.ParseFloat(c.Query("amount"), 64)
	if errParse != nil || amount < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
		return
	}

	w, errBalance := h.wallets.Balance(c.Request.Context(), userID)
	if errBalance != nil {
		respondWalletError(c, errBalance)
		return
	}

	quote := checkout.ComputeQuote(amount, w.CurrentPoints, true)
	c.JSON(http.StatusOK, gin.H{
		"current_points":   w.CurrentPoints,
		"max_points_usable": quote.PointsToRedeem,
		"discount_amount":  quote.Discount,
		"final_amount":     quote.FinalAmount,
	})
}
