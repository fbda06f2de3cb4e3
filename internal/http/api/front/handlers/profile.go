package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jjgames/storefront/internal/models"
	"github.com/jjgames/storefront/internal/wallet"
	"gorm.io/gorm"
)

// ProfileHandler handles the authenticated user's profile.
type ProfileHandler struct {
	db      *gorm.DB
	wallets *wallet.Service
}

// NewProfileHandler constructs a ProfileHandler.
func NewProfileHandler(db *gorm.DB, wallets *wallet.Service) *ProfileHandler {
	return &ProfileHandler{db: db, wallets: wallets}
}

// Get returns the profile with the wallet summary attached.
func (h *ProfileHandler) Get(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var user models.User
	if errFind := h.db.WithContext(c.Request.Context()).First(&user, userID).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	response := gin.H{
		"id":          user.ID,
		"name":        user.Name,
		"username":    user.Username,
		"email":       user.Email,
		"is_verified": user.IsVerified,
		"created_at":  user.CreatedAt,
	}
	if w, errWallet := h.wallets.Balance(c.Request.Context(), userID); errWallet == nil {
		response["wallet"] = gin.H{
			"current_points": w.CurrentPoints,
			"total_earned":   w.TotalEarned,
			"total_redeemed": w.TotalRedeemed,
			"referral_code":  w.ReferralCode,
			"referral_count": w.ReferralCount,
		}
	}
	c.JSON(http.StatusOK, gin.H{"user": response})
}

// updateProfileRequest defines the request body for a profile edit.
type updateProfileRequest struct {
	Name string `json:"name"`
}

// Update edits the profile's display name.
func (h *ProfileHandler) Update(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var body updateProfileRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	name := strings.TrimSpace(body.Name)
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	if errUpdate := h.db.WithContext(c.Request.Context()).
		Model(&models.User{}).
		Where("id = ?", userID).
		Update("name", name).Error; errUpdate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "profile updated"})
}
