package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jjgames/storefront/internal/models"
	"github.com/jjgames/storefront/internal/settings"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SettingsHandler manages the DB-backed points economy configuration.
type SettingsHandler struct {
	db *gorm.DB
}

// NewSettingsHandler constructs a SettingsHandler.
func NewSettingsHandler(db *gorm.DB) *SettingsHandler {
	return &SettingsHandler{db: db}
}

// Get returns the active points configuration.
func (h *SettingsHandler) Get(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"points_config": settings.CurrentPointsConfig(),
		"updated_at":    settings.DBConfigUpdatedAt(),
	})
}

// updateSettingsRequest defines the request body for configuration changes.
// Only provided fields change.
type updateSettingsRequest struct {
	SignupBonus         *int64 `json:"signup_bonus"`
	ReferralBonus       *int64 `json:"referral_bonus"`
	DailyPlayBonus      *int64 `json:"daily_play_bonus"`
	PurchaseEarnPercent *int   `json:"purchase_earn_percent"`
	MaxDiscountPercent  *int   `json:"max_discount_percent"`
}

// Update persists configuration changes and refreshes the in-memory snapshot,
// so new values take effect without a restart. Ledger entries already written
// under the old values are never revised.
func (h *SettingsHandler) Update(c *gin.Context) {
	var body updateSettingsRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	pending := map[string]int64{}
	if body.SignupBonus != nil {
		pending[settings.SignupBonusPointsKey] = *body.SignupBonus
	}
	if body.ReferralBonus != nil {
		pending[settings.ReferralBonusPointsKey] = *body.ReferralBonus
	}
	if body.DailyPlayBonus != nil {
		pending[settings.DailyPlayBonusPointsKey] = *body.DailyPlayBonus
	}
	if body.PurchaseEarnPercent != nil {
		pending[settings.PurchaseEarnPercentKey] = int64(*body.PurchaseEarnPercent)
	}
	if body.MaxDiscountPercent != nil {
		pending[settings.MaxDiscountPercentKey] = int64(*body.MaxDiscountPercent)
	}
	if len(pending) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no settings provided"})
		return
	}

	for key, value := range pending {
		if value < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "values must be non-negative"})
			return
		}
		switch key {
		case settings.PurchaseEarnPercentKey, settings.MaxDiscountPercentKey:
			if value > 100 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "percent values must not exceed 100"})
				return
			}
		}
	}

	errTx := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		for key, value := range pending {
			raw, errMarshal := json.Marshal(value)
			if errMarshal != nil {
				return errMarshal
			}
			row := models.Setting{Key: key, Value: raw, UpdatedAt: time.Now().UTC()}
			if errUpsert := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "key"}},
				DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
			}).Create(&row).Error; errUpsert != nil {
				return errUpsert
			}
		}
		return nil
	})
	if errTx != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update settings failed"})
		return
	}

	if errRefresh := settings.RefreshDBConfigSnapshot(c.Request.Context(), h.db); errRefresh != nil {
		log.WithError(errRefresh).Warn("settings snapshot refresh failed")
	}

	c.JSON(http.StatusOK, gin.H{
		"points_config": settings.CurrentPointsConfig(),
	})
}
