package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/jjgames/storefront/internal/catalog"
	dbutil "github.com/jjgames/storefront/internal/db"
	"github.com/jjgames/storefront/internal/models"
	"github.com/jjgames/storefront/internal/payment"
	"github.com/jjgames/storefront/internal/wallet"
	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PaymentProcessor resolves the initial payment status for an order.
type PaymentProcessor interface {
	Outcome(ctx context.Context, method string, amount float64) (string, error)
}

// Service turns a cart into an order while reconciling point debits and
// credits. The whole settlement is one transaction: on any failure the
// wallet, cart and order store are left exactly as they were.
type Service struct {
	db       *gorm.DB
	wallets  *wallet.Service
	catalog  *catalog.Service
	payments PaymentProcessor
}

// NewService constructs a checkout Service.
func NewService(db *gorm.DB, wallets *wallet.Service, cat *catalog.Service, payments PaymentProcessor) *Service {
	return &Service{db: db, wallets: wallets, catalog: cat, payments: payments}
}

// PlaceOrderInput carries the client's checkout intent. UsePoints is a
// boolean intent only; the redeemed amount is recomputed server-side.
type PlaceOrderInput struct {
	UserID        uint64
	AddressID     uint64
	PaymentMethod string
	UsePoints     bool
}

// PlaceOrderResult is the settlement outcome.
type PlaceOrderResult struct {
	Order        models.Order
	PointsUsed   int64
	PointsEarned int64
}

// PlaceOrder executes the settlement transaction:
//
//  1. re-fetch the authoritative cart, address and wallet balance
//  2. recompute the redemption quote from current state
//  3. debit redeemed points (aborts on a losing race)
//  4. create the order with locked prices
//  5. credit the purchase earn
//  6. clear the cart
//
// A transient conflict retries once from scratch via wallet.Transact.
func (s *Service) PlaceOrder(ctx context.Context, in PlaceOrderInput) (PlaceOrderResult, error) {
	if !models.ValidPaymentMethod(in.PaymentMethod) {
		return PlaceOrderResult{}, fmt.Errorf("%w: unsupported payment method", wallet.ErrValidation)
	}

	var result PlaceOrderResult
	errTx := wallet.Transact(ctx, s.db, func(tx *gorm.DB) error {
		var cart models.Cart
		if errCart := tx.Where("user_id = ?", in.UserID).First(&cart).Error; errCart != nil {
			if errors.Is(errCart, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: cart is empty", wallet.ErrValidation)
			}
			return errCart
		}
		var items []models.CartItem
		if errItems := tx.Where("cart_id = ?", cart.ID).Order("added_at ASC, id ASC").Find(&items).Error; errItems != nil {
			return errItems
		}
		if len(items) == 0 {
			return fmt.Errorf("%w: cart is empty", wallet.ErrValidation)
		}

		var address models.Address
		if errAddress := tx.Where("id = ? AND user_id = ?", in.AddressID, in.UserID).First(&address).Error; errAddress != nil {
			if errors.Is(errAddress, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: shipping address not found", wallet.ErrValidation)
			}
			return fmt.Errorf("%w: address lookup failed", wallet.ErrDownstreamUnavailable)
		}

		// Re-price every line from the catalog; the cart's stored prices are
		// display-only and may be stale.
		orderItems := make([]models.OrderItem, 0, len(items))
		subtotal := 0.0
		for _, item := range items {
			game, errGame := s.catalog.GameTx(tx, item.GameID)
			if errGame != nil {
				if errors.Is(errGame, gorm.ErrRecordNotFound) {
					return fmt.Errorf("%w: game %d is no longer available", wallet.ErrValidation, item.GameID)
				}
				return fmt.Errorf("%w: catalog lookup failed", wallet.ErrDownstreamUnavailable)
			}
			if !game.IsActive {
				return fmt.Errorf("%w: game %q is no longer available", wallet.ErrValidation, game.Title)
			}
			orderItems = append(orderItems, models.OrderItem{
				GameID:   game.ID,
				Title:    game.Title,
				Price:    game.Price,
				Image:    game.Image,
				Quantity: item.Quantity,
			})
			subtotal += game.Price * float64(item.Quantity)
		}

		w, errLock := s.wallets.LockWalletForUserTx(tx, in.UserID)
		if errLock != nil {
			return errLock
		}

		quote := ComputeQuote(subtotal, w.CurrentPoints, in.UsePoints)

		var redemption *models.LedgerEntry
		if quote.PointsToRedeem > 0 {
			entry, errRedeem := s.wallets.AppendTx(tx, wallet.AppendParams{
				WalletID:    w.ID,
				Type:        models.EntryTypeRedeemed,
				Points:      quote.PointsToRedeem,
				Source:      models.SourceDiscountRedemption,
				Description: fmt.Sprintf("Redeemed %d points for a %.2f discount", quote.PointsToRedeem, quote.Discount),
			})
			if errRedeem != nil {
				return errRedeem
			}
			redemption = &entry
		}

		paymentStatus, errPayment := s.payments.Outcome(ctx, in.PaymentMethod, quote.FinalAmount)
		if errPayment != nil {
			if errors.Is(errPayment, payment.ErrUnsupportedMethod) {
				return fmt.Errorf("%w: unsupported payment method", wallet.ErrValidation)
			}
			return fmt.Errorf("%w: payment failed", wallet.ErrDownstreamUnavailable)
		}

		itemsJSON, errItemsJSON := json.Marshal(orderItems)
		if errItemsJSON != nil {
			return errItemsJSON
		}
		addressJSON, errAddressJSON := json.Marshal(models.OrderAddress{
			Name:    address.Name,
			Phone:   address.Phone,
			Line1:   address.Line1,
			City:    address.City,
			State:   address.State,
			Pincode: address.Pincode,
			Country: address.Country,
		})
		if errAddressJSON != nil {
			return errAddressJSON
		}

		pointsEarned := PointsEarned(quote.FinalAmount)
		order := models.Order{
			UserID:          in.UserID,
			Items:           datatypes.JSON(itemsJSON),
			ShippingAddress: datatypes.JSON(addressJSON),
			Subtotal:        quote.Subtotal,
			PointsUsed:      quote.PointsToRedeem,
			Discount:        quote.Discount,
			FinalAmount:     quote.FinalAmount,
			PointsEarned:    pointsEarned,
			PaymentMethod:   in.PaymentMethod,
			PaymentStatus:   paymentStatus,
			OrderStatus:     models.OrderStatusProcessing,
		}
		if errCreate := createOrderWithNumber(tx, &order); errCreate != nil {
			return errCreate
		}

		if redemption != nil {
			if errLink := tx.Model(&models.LedgerEntry{}).
				Where("id = ?", redemption.ID).
				UpdateColumn("order_id", order.ID).Error; errLink != nil {
				return errLink
			}
		}

		if pointsEarned > 0 {
			orderID := order.ID
			if _, errEarn := s.wallets.AppendTx(tx, wallet.AppendParams{
				WalletID:    w.ID,
				Type:        models.EntryTypeEarned,
				Points:      pointsEarned,
				Source:      models.SourcePurchaseEarn,
				Description: fmt.Sprintf("Earned %d points from order %s", pointsEarned, order.OrderNumber),
				OrderID:     &orderID,
			}); errEarn != nil {
				return errEarn
			}
		}

		if errClear := tx.Where("cart_id = ?", cart.ID).Delete(&models.CartItem{}).Error; errClear != nil {
			return errClear
		}

		result = PlaceOrderResult{
			Order:        order,
			PointsUsed:   quote.PointsToRedeem,
			PointsEarned: pointsEarned,
		}
		return nil
	})
	if errTx != nil {
		return PlaceOrderResult{}, errTx
	}

	log.WithFields(log.Fields{
		"user_id":       in.UserID,
		"order_number":  result.Order.OrderNumber,
		"points_used":   result.PointsUsed,
		"points_earned": result.PointsEarned,
	}).Info("order settled")

	return result, nil
}

// createOrderWithNumber inserts the order, regenerating the order number on
// the rare unique collision. Each attempt runs under a savepoint so a
// collision does not abort the settlement transaction on postgres.
func createOrderWithNumber(tx *gorm.DB, order *models.Order) error {
	for attempt := 0; attempt < 3; attempt++ {
		order.OrderNumber = generateOrderNumber(time.Now())
		if errSave := tx.SavePoint("order_create").Error; errSave != nil {
			return errSave
		}
		errCreate := tx.Create(order).Error
		if errCreate == nil {
			return nil
		}
		if !dbutil.IsDuplicateKey(errCreate) {
			return errCreate
		}
		if errRollback := tx.RollbackTo("order_create").Error; errRollback != nil {
			return errRollback
		}
		order.ID = 0
	}
	return fmt.Errorf("checkout: could not allocate a unique order number")
}

// generateOrderNumber builds a customer-facing order number.
func generateOrderNumber(now time.Time) string {
	millis := now.UnixMilli() % 100000000
	return fmt.Sprintf("JJ%08d%03d", millis, rand.Intn(1000))
}
