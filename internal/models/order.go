package models

import (
	"time"

	"gorm.io/datatypes"
)

// Order statuses. Legal transitions: processing -> confirmed -> shipped ->
// delivered, plus processing -> cancelled. Delivered and cancelled are
// terminal.
const (
	OrderStatusProcessing = "processing"
	OrderStatusConfirmed  = "confirmed"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
)

// Payment statuses. pending -> completed | failed; completed -> refunded is
// admin-only.
const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
	PaymentStatusRefunded  = "refunded"
)

// Payment methods accepted at checkout.
const (
	PaymentMethodCard       = "card"
	PaymentMethodUPI        = "upi"
	PaymentMethodNetbanking = "netbanking"
	PaymentMethodCOD        = "cod"
)

// OrderItem is a priced line item snapshotted into an order at settlement.
type OrderItem struct {
	GameID   uint64  `json:"game_id"`
	Title    string  `json:"title"`
	Price    float64 `json:"price"`
	Image    string  `json:"image"`
	Quantity int     `json:"quantity"`
}

// OrderAddress is the shipping address snapshotted into an order.
type OrderAddress struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Line1   string `json:"line1"`
	City    string `json:"city"`
	State   string `json:"state"`
	Pincode string `json:"pincode"`
	Country string `json:"country"`
}

// Order is created once by the settlement transaction and never deleted; only
// its status fields change afterwards.
type Order struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID      uint64 `gorm:"not null;index:idx_orders_user_created"` // Owning user.
	OrderNumber string `gorm:"type:text;not null;uniqueIndex"`         // Customer-facing order number.

	Items           datatypes.JSON `gorm:"not null"` // Snapshot of []OrderItem, prices locked.
	ShippingAddress datatypes.JSON `gorm:"not null"` // Snapshot of OrderAddress.

	Subtotal    float64 `gorm:"type:decimal(20,2);not null"`           // Sum of item price * quantity.
	PointsUsed  int64   `gorm:"not null;default:0"`                    // Points redeemed against this order.
	Discount    float64 `gorm:"type:decimal(20,2);not null;default:0"` // Equals PointsUsed at 1:1.
	FinalAmount float64 `gorm:"type:decimal(20,2);not null"`           // Subtotal - Discount.

	PointsEarned int64 `gorm:"not null;default:0"` // Purchase-earn credit for this order.

	PaymentMethod  string `gorm:"type:text;not null"`                        // card, upi, netbanking or cod.
	PaymentStatus  string `gorm:"type:text;not null;default:'pending'"`      // Payment state machine.
	OrderStatus    string `gorm:"type:text;not null;default:'processing';index:idx_orders_user_status"` // Fulfilment state machine.
	TrackingNumber string `gorm:"type:text"`                                 // Carrier tracking, once shipped.

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index:idx_orders_user_created"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"`                               // Last update timestamp.
}

// orderStatusTransitions enumerates the legal fulfilment edges.
var orderStatusTransitions = map[string][]string{
	OrderStatusProcessing: {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed:  {OrderStatusShipped},
	OrderStatusShipped:    {OrderStatusDelivered},
}

// paymentStatusTransitions enumerates the legal payment edges.
var paymentStatusTransitions = map[string][]string{
	PaymentStatusPending:   {PaymentStatusCompleted, PaymentStatusFailed},
	PaymentStatusCompleted: {PaymentStatusRefunded},
}

// CanTransitionOrderStatus reports whether from -> to is a legal fulfilment edge.
func CanTransitionOrderStatus(from, to string) bool {
	for _, next := range orderStatusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CanTransitionPaymentStatus reports whether from -> to is a legal payment edge.
func CanTransitionPaymentStatus(from, to string) bool {
	for _, next := range paymentStatusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidPaymentMethod reports whether method is an accepted payment method.
func ValidPaymentMethod(method string) bool {
	switch method {
	case PaymentMethodCard, PaymentMethodUPI, PaymentMethodNetbanking, PaymentMethodCOD:
		return true
	}
	return false
}
