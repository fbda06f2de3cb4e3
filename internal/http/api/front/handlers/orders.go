package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jjgames/storefront/internal/checkout"
	"github.com/jjgames/storefront/internal/models"
	"gorm.io/gorm"
)

// OrderHandler handles order placement and order history for users.
type OrderHandler struct {
	db         *gorm.DB
	settlement *checkout.Service
}

// NewOrderHandler constructs an OrderHandler.
func NewOrderHandler(db *gorm.DB, settlement *checkout.Service) *OrderHandler {
	return &OrderHandler{db: db, settlement: settlement}
}

// createOrderRequest defines the request body for checkout.
type createOrderRequest struct {
	AddressID     uint64 `json:"address_id"`
	PaymentMethod string `json:"payment_method"`
	UsePoints     bool   `json:"use_points"`
}

// Create settles the user's cart into an order.
func (h *OrderHandler) Create(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var body createOrderRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if body.AddressID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "address_id is required"})
		return
	}

	result, errPlace := h.settlement.PlaceOrder(c.Request.Context(), checkout.PlaceOrderInput{
		UserID:        userID,
		AddressID:     body.AddressID,
		PaymentMethod: body.PaymentMethod,
		UsePoints:     body.UsePoints,
	})
	if errPlace != nil {
		respondWalletError(c, errPlace)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"order":         orderResponse(result.Order),
		"points_used":   result.PointsUsed,
		"points_earned": result.PointsEarned,
		"message":       "order placed",
	})
}

// orderListQuery defines the pagination query for order history.
type orderListQuery struct {
	Page  int `form:"page,default=1"`
	Limit int `form:"limit,default=10"`
}

// List returns the user's orders, newest first.
func (h *OrderHandler) List(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var q orderListQuery
	if errBind := c.ShouldBindQuery(&q); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query"})
		return
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 || q.Limit > 100 {
		q.Limit = 10
	}

	query := h.db.WithContext(c.Request.Context()).Model(&models.Order{}).Where("user_id = ?", userID)

	var total int64
	if errCount := query.Count(&total).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	var orders []models.Order
	if errFind := query.
		Order("created_at DESC").
		Offset((q.Page - 1) * q.Limit).
		Limit(q.Limit).
		Find(&orders).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	rendered := make([]gin.H, 0, len(orders))
	for _, order := range orders {
		rendered = append(rendered, orderResponse(order))
	}
	c.JSON(http.StatusOK, gin.H{
		"orders": rendered,
		"total":  total,
		"page":   q.Page,
		"limit":  q.Limit,
	})
}

// Get returns one of the user's orders.
func (h *OrderHandler) Get(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	orderID, errParse := strconv.ParseUint(c.Param("id"), 10, 64)
	if errParse != nil || orderID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	var order models.Order
	if errFind := h.db.WithContext(c.Request.Context()).
		Where("id = ? AND user_id = ?", orderID, userID).
		First(&order).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": orderResponse(order)})
}

// orderResponse renders an order with its snapshot fields decoded.
func orderResponse(order models.Order) gin.H {
	var items []models.OrderItem
	_ = json.Unmarshal(order.Items, &items)
	var address models.OrderAddress
	_ = json.Unmarshal(order.ShippingAddress, &address)

	return gin.H{
		"id":               order.ID,
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
	}
}
