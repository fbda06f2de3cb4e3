package app

import (
	"context"
	"time"

	"github.com/jjgames/storefront/internal/models"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	defaultSweepInterval = 6 * time.Hour
	defaultStaleCartAge  = 60 * 24 * time.Hour
)

// CartSweeper periodically empties account carts that have not been touched
// for a long time, mirroring the guest store's TTL. The cart row itself stays;
// only its line items go, so a returning user starts from a clean cart instead
// of stale prices.
type CartSweeper struct {
	db       *gorm.DB
	interval time.Duration
	maxAge   time.Duration
}

// NewCartSweeper constructs a cart sweeper.
func NewCartSweeper(db *gorm.DB) *CartSweeper {
	if db == nil {
		return nil
	}
	return &CartSweeper{db: db, interval: defaultSweepInterval, maxAge: defaultStaleCartAge}
}

// Start launches the sweep loop in a background goroutine.
func (s *CartSweeper) Start(ctx context.Context) {
	if s == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	go s.run(ctx)
	log.Infof("cart sweeper started (interval=%s, max age=%s)", s.interval, s.maxAge)
}

func (s *CartSweeper) run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		s.sweep(ctx)
		timer := time.NewTimer(s.interval)
		select {
		case <-ctx.Done():
			if !timer.Stop() {
				<-timer.C
			}
			return
		case <-timer.C:
		}
	}
}

func (s *CartSweeper) sweep(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-s.maxAge)
	stale := s.db.Model(&models.Cart{}).Select("id").Where("updated_at <= ?", cutoff)
	res := s.db.WithContext(ctx).
		Where("cart_id IN (?)", stale).
		Delete(&models.CartItem{})
	if res.Error != nil {
		log.WithError(res.Error).Warn("cart sweeper: sweep failed")
		return
	}
	if res.RowsAffected > 0 {
		log.Infof("cart sweeper: cleared %d stale cart items", res.RowsAffected)
	}
}
