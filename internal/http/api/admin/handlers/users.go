package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	dbutil "github.com/jjgames/storefront/internal/db"
	"github.com/jjgames/storefront/internal/models"
	"github.com/jjgames/storefront/internal/wallet"
	"gorm.io/gorm"
)

// UserAdminHandler manages customer accounts from the admin side.
type UserAdminHandler struct {
	db      *gorm.DB
	wallets *wallet.Service
}

// NewUserAdminHandler constructs a UserAdminHandler.
func NewUserAdminHandler(db *gorm.DB, wallets *wallet.Service) *UserAdminHandler {
	return &UserAdminHandler{db: db, wallets: wallets}
}

// userSummary renders one user row with its wallet summary.
func userSummary(user models.User) gin.H {
	out := gin.H{
		"id":           user.ID,
		"name":         user.Name,
		"username":     user.Username,
		"email":        user.Email,
		"is_verified":  user.IsVerified,
		"is_blocked":   user.IsBlocked,
		"block_expiry": user.BlockExpiry,
		"created_at":   user.CreatedAt,
	}
	if user.Wallet != nil {
		out["wallet"] = gin.H{
			"current_points": user.Wallet.CurrentPoints,
			"total_earned":   user.Wallet.TotalEarned,
			"total_redeemed": user.Wallet.TotalRedeemed,
			"referral_code":  user.Wallet.ReferralCode,
			"referral_count": user.Wallet.ReferralCount,
		}
	}
	return out
}

// List returns users with an optional username or email search.
func (h *UserAdminHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	q := h.db.WithContext(c.Request.Context()).Model(&models.User{})
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		pattern := dbutil.NormalizeLikePattern(h.db, "%"+search+"%")
		q = q.Where(
			h.db.Where(dbutil.CaseInsensitiveLikeExpr(h.db, "username"), pattern).
				Or(dbutil.CaseInsensitiveLikeExpr(h.db, "email"), pattern),
		)
	}

	var total int64
	if errCount := q.Count(&total).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	var users []models.User
	if errFind := q.Preload("Wallet").
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&users).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	out := make([]gin.H, 0, len(users))
	for _, user := range users {
		out = append(out, userSummary(user))
	}
	c.JSON(http.StatusOK, gin.H{
		"users": out,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

// Get returns one user with wallet and recent ledger history.
func (h *UserAdminHandler) Get(c *gin.Context) {
	userID, errParse := strconv.ParseUint(c.Param("id"), 10, 64)
	if errParse != nil || userID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	var user models.User
	if errFind := h.db.WithContext(c.Request.Context()).Preload("Wallet").First(&user, userID).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	response := userSummary(user)

	entries, _, errHistory := h.wallets.History(c.Request.Context(), userID, 1, 20)
	if errHistory == nil {
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
		response["recent_history"] = history
	}

	var orderCount int64
	if errCount := h.db.WithContext(c.Request.Context()).Model(&models.Order{}).
		Where("user_id = ?", userID).
		Count(&orderCount).Error; errCount == nil {
		response["order_count"] = orderCount
	}

	c.JSON(http.StatusOK, gin.H{"user": response})
}

// updatePointsRequest defines the request body for a manual adjustment.
type updatePointsRequest struct {
	Action string `json:"action"` // add or deduct
	Points int64  `json:"points"`
	Reason string `json:"reason"`
}

// UpdatePoints applies a manual credit or debit through the ledger. Every
// adjustment leaves an audit entry; there is no direct balance write.
func (h *UserAdminHandler) UpdatePoints(c *gin.Context) {
	userID, errParse := strconv.ParseUint(c.Param("id"), 10, 64)
	if errParse != nil || userID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	var body updatePointsRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if body.Points <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "points must be positive"})
		return
	}

	delta := body.Points
	switch strings.ToLower(strings.TrimSpace(body.Action)) {
	case "add":
	case "deduct":
		delta = -delta
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "action must be add or deduct"})
		return
	}

	entry, updated, errAdjust := h.wallets.Adjust(c.Request.Context(), userID, delta, strings.TrimSpace(body.Reason))
	if errAdjust != nil {
		respondAdjustError(c, errAdjust)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"entry": gin.H{
			"id":          entry.ID,
			"type":        entry.Type,
			"points":      entry.Points,
			"description": entry.Description,
		},
		"current_points": updated.CurrentPoints,
	})
}

// respondAdjustError maps adjustment errors onto HTTP responses.
func respondAdjustError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, wallet.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, wallet.ErrInsufficientBalance):
		c.JSON(http.StatusBadRequest, gin.H{"error": "insufficient points balance"})
	case errors.Is(err, wallet.ErrWalletNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "wallet not found"})
	case errors.Is(err, wallet.ErrConcurrencyConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "please try again"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "adjustment failed"})
	}
}

// blockUserRequest defines the request body for blocking a user. Days of -1
// blocks until manually lifted; zero with blocked=false unblocks.
type blockUserRequest struct {
	Blocked bool `json:"blocked"`
	Days    int  `json:"days"`
}

// Block sets or lifts an account block.
func (h *UserAdminHandler) Block(c *gin.Context) {
	userID, errParse := strconv.ParseUint(c.Param("id"), 10, 64)
	if errParse != nil || userID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	var body blockUserRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	updates := map[string]any{"updated_at": time.Now().UTC()}
	if !body.Blocked {
		updates["is_blocked"] = false
		updates["block_expiry"] = nil
	} else {
		updates["is_blocked"] = true
		switch {
		case body.Days == -1:
			updates["block_expiry"] = nil
		case body.Days > 0:
			expiry := time.Now().UTC().AddDate(0, 0, body.Days)
			updates["block_expiry"] = &expiry
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "days must be positive or -1 for permanent"})
			return
		}
	}

	res := h.db.WithContext(c.Request.Context()).Model(&models.User{}).
		Where("id = ?", userID).
		Updates(updates)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}
