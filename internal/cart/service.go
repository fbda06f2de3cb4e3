package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jjgames/storefront/internal/models"
	"github.com/jjgames/storefront/internal/wallet"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Service manages account carts and the guest-to-account merge. The guest
// store may be nil; guest endpoints are then disabled and Get skips merging.
type Service struct {
	db     *gorm.DB
	guests GuestStore
}

// NewService constructs a cart Service. guests may be nil.
func NewService(db *gorm.DB, guests GuestStore) *Service {
	return &Service{db: db, guests: guests}
}

// GuestStoreEnabled reports whether server-side guest carts are available.
func (s *Service) GuestStoreEnabled() bool {
	return s.guests != nil
}

// Get returns the account cart, creating an empty one on first read. When a
// guest token accompanies an authenticated read, the guest cart merges in
// first and its copy is discarded, so a replay of the same request is a no-op.
func (s *Service) Get(ctx context.Context, userID uint64, guestToken string) (models.Cart, error) {
	if token := strings.TrimSpace(guestToken); token != "" && s.GuestStoreEnabled() {
		if errMerge := s.MergeGuest(ctx, userID, token); errMerge != nil {
			return models.Cart{}, errMerge
		}
	}

	cart, errEnsure := s.ensureCart(ctx, userID)
	if errEnsure != nil {
		return models.Cart{}, errEnsure
	}
	return s.loadWithItems(ctx, cart.ID)
}

// AddItem adds a game to the account cart; re-adding increments quantity.
func (s *Service) AddItem(ctx context.Context, userID uint64, game models.Game) (models.Cart, error) {
	cart, errEnsure := s.ensureCart(ctx, userID)
	if errEnsure != nil {
		return models.Cart{}, errEnsure
	}

	errTx := wallet.Transact(ctx, s.db, func(tx *gorm.DB) error {
		return upsertItem(tx, cart.ID, models.CartItem{
			CartID:   cart.ID,
			GameID:   game.ID,
			Title:    game.Title,
			Price:    game.Price,
			Image:    game.Image,
			Quantity: 1,
		})
	})
	if errTx != nil {
		return models.Cart{}, errTx
	}
	return s.loadWithItems(ctx, cart.ID)
}

// UpdateQuantity sets a line's quantity; zero or less removes the line.
func (s *Service) UpdateQuantity(ctx context.Context, userID, gameID uint64, quantity int) (models.Cart, error) {
	cart, errFind := s.cartForUser(ctx, userID)
	if errFind != nil {
		return models.Cart{}, errFind
	}

	if quantity <= 0 {
		return s.RemoveItem(ctx, userID, gameID)
	}

	result := s.db.WithContext(ctx).Model(&models.CartItem{}).
		Where("cart_id = ? AND game_id = ?", cart.ID, gameID).
		Update("quantity", quantity)
	if result.Error != nil {
		return models.Cart{}, result.Error
	}
	if result.RowsAffected == 0 {
		return models.Cart{}, fmt.Errorf("%w: item not in cart", wallet.ErrValidation)
	}
	return s.loadWithItems(ctx, cart.ID)
}

// RemoveItem deletes one line from the account cart.
func (s *Service) RemoveItem(ctx context.Context, userID, gameID uint64) (models.Cart, error) {
	cart, errFind := s.cartForUser(ctx, userID)
	if errFind != nil {
		return models.Cart{}, errFind
	}
	if errDelete := s.db.WithContext(ctx).
		Where("cart_id = ? AND game_id = ?", cart.ID, gameID).
		Delete(&models.CartItem{}).Error; errDelete != nil {
		return models.Cart{}, errDelete
	}
	return s.loadWithItems(ctx, cart.ID)
}

// Clear empties the account cart.
func (s *Service) Clear(ctx context.Context, userID uint64) error {
	cart, errFind := s.cartForUser(ctx, userID)
	if errFind != nil {
		if errors.Is(errFind, wallet.ErrValidation) {
			return nil
		}
		return errFind
	}
	return s.db.WithContext(ctx).Where("cart_id = ?", cart.ID).Delete(&models.CartItem{}).Error
}

// MergeGuest folds a guest cart into the account cart, summing quantities per
// game, then discards the guest copy. The delete happens only after the merge
// commits, so a crash in between re-merges rather than losing items; merging
// twice cannot double quantities because the second read finds nothing.
func (s *Service) MergeGuest(ctx context.Context, userID uint64, token string) error {
	if !s.GuestStoreEnabled() {
		return nil
	}

	items, errGet := s.guests.Get(ctx, token)
	if errGet != nil {
		return errGet
	}
	if len(items) == 0 {
		return nil
	}

	cart, errEnsure := s.ensureCart(ctx, userID)
	if errEnsure != nil {
		return errEnsure
	}

	errTx := wallet.Transact(ctx, s.db, func(tx *gorm.DB) error {
		for _, item := range items {
			if item.Quantity < 1 {
				continue
			}
			if errUpsert := upsertItem(tx, cart.ID, models.CartItem{
				CartID:   cart.ID,
				GameID:   item.GameID,
				Title:    item.Title,
				Price:    item.Price,
				Image:    item.Image,
				Quantity: item.Quantity,
			}); errUpsert != nil {
				return errUpsert
			}
		}
		return nil
	})
	if errTx != nil {
		return errTx
	}

	if errDelete := s.guests.Delete(ctx, token); errDelete != nil {
		return errDelete
	}

	log.WithFields(log.Fields{"user_id": userID, "items": len(items)}).Debug("guest cart merged")
	return nil
}

// Guests exposes the guest store for the guest cart endpoints.
func (s *Service) Guests() GuestStore {
	return s.guests
}

// ensureCart returns the user's cart row, creating it when absent.
func (s *Service) ensureCart(ctx context.Context, userID uint64) (models.Cart, error) {
	var cart models.Cart
	errFind := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&cart).Error
	if errFind == nil {
		return cart, nil
	}
	if !errors.Is(errFind, gorm.ErrRecordNotFound) {
		return models.Cart{}, errFind
	}

	cart = models.Cart{UserID: userID, CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC()}
	if errCreate := s.db.WithContext(ctx).Create(&cart).Error; errCreate != nil {
		// A concurrent first read may have created it already.
		var existing models.Cart
		if errRetry := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&existing).Error; errRetry == nil {
			return existing, nil
		}
		return models.Cart{}, errCreate
	}
	return cart, nil
}

// cartForUser returns the user's cart row or a validation error when absent.
func (s *Service) cartForUser(ctx context.Context, userID uint64) (models.Cart, error) {
	var cart models.Cart
	if errFind := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&cart).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return models.Cart{}, fmt.Errorf("%w: cart not found", wallet.ErrValidation)
		}
		return models.Cart{}, errFind
	}
	return cart, nil
}

// loadWithItems loads a cart row with its line items ordered by first add.
func (s *Service) loadWithItems(ctx context.Context, cartID uint64) (models.Cart, error) {
	var cart models.Cart
	if errFind := s.db.WithContext(ctx).First(&cart, cartID).Error; errFind != nil {
		return models.Cart{}, errFind
	}
	if errItems := s.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Order("added_at ASC, id ASC").
		Find(&cart.Items).Error; errItems != nil {
		return models.Cart{}, errItems
	}
	return cart, nil
}

// upsertItem inserts a line or increments the quantity of an existing line.
func upsertItem(tx *gorm.DB, cartID uint64, item models.CartItem) error {
	var existing models.CartItem
	errFind := tx.Where("cart_id = ? AND game_id = ?", cartID, item.GameID).First(&existing).Error
	if errFind == nil {
		return tx.Model(&existing).Update("quantity", existing.Quantity+item.Quantity).Error
	}
	if !errors.Is(errFind, gorm.ErrRecordNotFound) {
		return errFind
	}
	item.CartID = cartID
	item.AddedAt = time.Now().UTC()
	return tx.Create(&item).Error
}
