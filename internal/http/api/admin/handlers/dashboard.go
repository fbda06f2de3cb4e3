package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jjgames/storefront/internal/models"
	"gorm.io/gorm"
)

// DashboardHandler serves storefront KPIs.
type DashboardHandler struct {
	db *gorm.DB
}

// NewDashboardHandler constructs a DashboardHandler.
func NewDashboardHandler(db *gorm.DB) *DashboardHandler {
	return &DashboardHandler{db: db}
}

// Overview returns counters for users, orders, revenue and the points economy.
// Points in circulation is the sum of wallet balances, which equals earned
// minus redeemed across all ledgers.
func (h *DashboardHandler) Overview(c *gin.Context) {
	ctx := c.Request.Context()

	var userCount int64
	if errCount := h.db.WithContext(ctx).Model(&models.User{}).Count(&userCount).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	var orderCount int64
	if errCount := h.db.WithContext(ctx).Model(&models.Order{}).Count(&orderCount).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	type revenueRow struct {
		Revenue       float64
		TotalDiscount float64
	}
	var revenue revenueRow
	if errScan := h.db.WithContext(ctx).Model(&models.Order{}).
		Select("COALESCE(SUM(final_amount), 0) AS revenue, COALESCE(SUM(discount), 0) AS total_discount").
		Where("order_status <> ?", models.OrderStatusCancelled).
		Scan(&revenue).Error; errScan != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	type pointsRow struct {
		InCirculation int64
		TotalEarned   int64
		TotalRedeemed int64
	}
	var points pointsRow
	if errScan := h.db.WithContext(ctx).Model(&models.Wallet{}).
		Select("COALESCE(SUM(current_points), 0) AS in_circulation, COALESCE(SUM(total_earned), 0) AS total_earned, COALESCE(SUM(total_redeemed), 0) AS total_redeemed").
		Scan(&points).Error; errScan != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	since := time.Now().UTC().AddDate(0, 0, -7)
	var recentOrders int64
	if errCount := h.db.WithContext(ctx).Model(&models.Order{}).
		Where("created_at >= ?", since).
		Count(&recentOrders).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"users":          userCount,
		"orders":         orderCount,
		"orders_7d":      recentOrders,
		"revenue":        revenue.Revenue,
		"total_discount": revenue.TotalDiscount,
		"points": gin.H{
			"in_circulation": points.InCirculation,
			"total_earned":   points.TotalEarned,
			"total_redeemed": points.TotalRedeemed,
		},
	})
}
