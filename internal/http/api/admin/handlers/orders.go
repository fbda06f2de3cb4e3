package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jjgames/storefront/internal/models"
	"gorm.io/gorm"
)

// OrderAdminHandler manages orders from the admin side. Orders are never
// deleted; only their status fields move, and only along legal edges.
type OrderAdminHandler struct {
	db *gorm.DB
}

// NewOrderAdminHandler constructs an OrderAdminHandler.
func NewOrderAdminHandler(db *gorm.DB) *OrderAdminHandler {
	return &OrderAdminHandler{db: db}
}

// adminOrderResponse renders one order with decoded snapshots.
func adminOrderResponse(order models.Order) gin.H {
	var items []models.OrderItem
	_ = json.Unmarshal(order.Items, &items)
	var address models.OrderAddress
	_ = json.Unmarshal(order.ShippingAddress, &address)

	return gin.H{
		"id":               order.ID,
		"user_id":          order.UserID,
		"order_number":     order.OrderNumber,
		"items":            items,
		"shipping_address": address,
		"subtotal":         order.Subtotal,
		"points_used":      order.PointsUsed,
		"discount":         order.Discount,
		"final_amount":     order.FinalAmount,
		"points_earned":    order.PointsEarned,
		"payment_method":   order.PaymentMethod,
		"payment_status":   order.PaymentStatus,
		"order_status":     order.OrderStatus,
		"tracking_number":  order.TrackingNumber,
		"created_at":       order.CreatedAt,
		"updated_at":       order.UpdatedAt,
	}
}

// List returns orders with optional status and order-number filters.
func (h *OrderAdminHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	q := h.db.WithContext(c.Request.Context()).Model(&models.Order{})
	if status := strings.TrimSpace(c.Query("status")); status != "" {
		q = q.Where("order_status = ?", status)
	}
	if paymentStatus := strings.TrimSpace(c.Query("payment_status")); paymentStatus != "" {
		q = q.Where("payment_status = ?", paymentStatus)
	}
	if number := strings.TrimSpace(c.Query("order_number")); number != "" {
		q = q.Where("order_number = ?", number)
	}
	if userQ := strings.TrimSpace(c.Query("user_id")); userQ != "" {
		if userID, errParse := strconv.ParseUint(userQ, 10, 64); errParse == nil {
			q = q.Where("user_id = ?", userID)
		}
	}

	var total int64
	if errCount := q.Count(&total).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	var orders []models.Order
	if errFind := q.Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&orders).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	out := make([]gin.H, 0, len(orders))
	for _, order := range orders {
		out = append(out, adminOrderResponse(order))
	}
	c.JSON(http.StatusOK, gin.H{
		"orders": out,
		"total":  total,
		"page":   page,
		"limit":  limit,
	})
}

// Get returns one order by ID.
func (h *OrderAdminHandler) Get(c *gin.Context) {
	orderID, errParse := strconv.ParseUint(c.Param("id"), 10, 64)
	if errParse != nil || orderID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	var order models.Order
	if errFind := h.db.WithContext(c.Request.Context()).First(&order, orderID).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": adminOrderResponse(order)})
}

// updateOrderStatusRequest defines the request body for a fulfilment change.
type updateOrderStatusRequest struct {
	Status         string `json:"status"`
	TrackingNumber string `json:"tracking_number"`
}

// UpdateStatus moves an order along the fulfilment state machine. The read and
// the conditional update run in one transaction, so two admins racing on the
// same edge cannot both win.
func (h *OrderAdminHandler) UpdateStatus(c *gin.Context) {
	orderID, errParse := strconv.ParseUint(c.Param("id"), 10, 64)
	if errParse != nil || orderID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	var body updateOrderStatusRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	target := strings.TrimSpace(body.Status)

	var order models.Order
	errTx := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if errFind := tx.First(&order, orderID).Error; errFind != nil {
			return errFind
		}
		if !models.CanTransitionOrderStatus(order.OrderStatus, target) {
			return errIllegalTransition
		}

		updates := map[string]any{
			"order_status": target,
			"updated_at":   time.Now().UTC(),
		}
		if tracking := strings.TrimSpace(body.TrackingNumber); tracking != "" && target == models.OrderStatusShipped {
			updates["tracking_number"] = tracking
		}

		res := tx.Model(&models.Order{}).
			Where("id = ? AND order_status = ?", order.ID, order.OrderStatus).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errIllegalTransition
		}
		order.OrderStatus = target
		return nil
	})
	if errTx != nil {
		respondOrderTransitionError(c, errTx)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "order_status": order.OrderStatus})
}

// updatePaymentStatusRequest defines the request body for a payment change.
type updatePaymentStatusRequest struct {
	Status string `json:"status"`
}

// UpdatePaymentStatus moves an order along the payment state machine. The
// completed to refunded edge exists only here.
func (h *OrderAdminHandler) UpdatePaymentStatus(c *gin.Context) {
	orderID, errParse := strconv.ParseUint(c.Param("id"), 10, 64)
	if errParse != nil || orderID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	var body updatePaymentStatusRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	target := strings.TrimSpace(body.Status)

	var order models.Order
	errTx := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if errFind := tx.First(&order, orderID).Error; errFind != nil {
			return errFind
		}
		if !models.CanTransitionPaymentStatus(order.PaymentStatus, target) {
			return errIllegalTransition
		}

		res := tx.Model(&models.Order{}).
			Where("id = ? AND payment_status = ?", order.ID, order.PaymentStatus).
			Updates(map[string]any{
				"payment_status": target,
				"updated_at":     time.Now().UTC(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errIllegalTransition
		}
		order.PaymentStatus = target
		return nil
	})
	if errTx != nil {
		respondOrderTransitionError(c, errTx)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "payment_status": order.PaymentStatus})
}

// errIllegalTransition marks a status change outside the state machine.
var errIllegalTransition = errors.New("illegal status transition")

// respondOrderTransitionError maps transition failures onto HTTP responses.
func respondOrderTransitionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
	case errors.Is(err, errIllegalTransition):
		c.JSON(http.StatusConflict, gin.H{"error": "illegal status transition"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
	}
}
