package app

import (
	"context"
	"time"

	"github.com/jjgames/storefront/internal/models"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const defaultReapInterval = 10 * time.Minute

// BlockReaper periodically lifts expired account blocks. Login and the auth
// middleware also unblock lazily, so the reaper only keeps the stored flags
// tidy for admin listings.
type BlockReaper struct {
	db       *gorm.DB
	interval time.Duration
}

// NewBlockReaper constructs a block reaper.
func NewBlockReaper(db *gorm.DB) *BlockReaper {
	if db == nil {
		return nil
	}
	return &BlockReaper{db: db, interval: defaultReapInterval}
}

// Start launches the reap loop in a background goroutine.
func (r *BlockReaper) Start(ctx context.Context) {
	if r == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	go r.run(ctx)
	log.Infof("block reaper started (interval=%s)", r.interval)
}

func (r *BlockReaper) run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		r.reap(ctx)
		timer := time.NewTimer(r.interval)
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

func (r *BlockReaper) reap(ctx context.Context) {
	res := r.db.WithContext(ctx).Model(&models.User{}).
		Where("is_blocked = ? AND block_expiry IS NOT NULL AND block_expiry <= ?", true, time.Now().UTC()).
		Updates(map[string]any{
			"is_blocked":   false,
			"block_expiry": nil,
		})
	if res.Error != nil {
		log.WithError(res.Error).Warn("block reaper: sweep failed")
		return
	}
	if res.RowsAffected > 0 {
		log.Infof("block reaper: lifted %d expired blocks", res.RowsAffected)
	}
}
