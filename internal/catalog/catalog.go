package catalog

import (
	"context"

	dbutil "github.com/jjgames/storefront/internal/db"
	"github.com/jjgames/storefront/internal/models"
	"gorm.io/gorm"
)

// Service exposes read access to the game catalog. Settlement reads prices
// through it so order rows lock the price in effect at order time.
type Service struct {
	db *gorm.DB
}

// NewService constructs a catalog Service.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Game returns one catalog entry.
func (s *Service) Game(ctx context.Context, id uint64) (models.Game, error) {
	var game models.Game
	err := s.db.WithContext(ctx).First(&game, id).Error
	return game, err
}

// GameTx returns one catalog entry inside an existing transaction.
func (s *Service) GameTx(tx *gorm.DB, id uint64) (models.Game, error) {
	var game models.Game
	err := tx.First(&game, id).Error
	return game, err
}

// List returns active games filtered by an optional title search and tag.
func (s *Service) List(ctx context.Context, search, tag string, page, limit int) ([]models.Game, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	query := s.db.WithContext(ctx).Model(&models.Game{}).Where("is_active = ?", true)
	if search != "" {
		pattern := dbutil.NormalizeLikePattern(s.db, "%"+search+"%")
		query = query.Where(dbutil.CaseInsensitiveLikeExpr(s.db, "title"), pattern)
	}
	if tag != "" {
		query = query.Where("tag = ?", tag)
	}

	var total int64
	if errCount := query.Count(&total).Error; errCount != nil {
		return nil, 0, errCount
	}

	var games []models.Game
	if errFind := query.
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&games).Error; errFind != nil {
		return nil, 0, errFind
	}
	return games, total, nil
}
