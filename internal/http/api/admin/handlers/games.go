package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	dbutil "github.com/jjgames/storefront/internal/db"
	"github.com/jjgames/storefront/internal/models"
	"gorm.io/gorm"
)

// GameAdminHandler manages the game catalog.
type GameAdminHandler struct {
	db *gorm.DB
}

// NewGameAdminHandler constructs a GameAdminHandler.
func NewGameAdminHandler(db *gorm.DB) *GameAdminHandler {
	return &GameAdminHandler{db: db}
}

// gameRequest defines the request body for creating or updating a game.
type gameRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Price       *float64 `json:"price"`
	OldPrice    *float64 `json:"old_price"`
	Image       string   `json:"image"`
	Tag         string   `json:"tag"`
	IsActive    *bool    `json:"is_active"`
}

// List returns all games, inactive ones included.
func (h *GameAdminHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	q := h.db.WithContext(c.Request.Context()).Model(&models.Game{})
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		pattern := dbutil.NormalizeLikePattern(h.db, "%"+search+"%")
		q = q.Where(dbutil.CaseInsensitiveLikeExpr(h.db, "title"), pattern)
	}

	var total int64
	if errCount := q.Count(&total).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	var games []models.Game
	if errFind := q.Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&games).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"games": games,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

// Create adds a game to the catalog.
func (h *GameAdminHandler) Create(c *gin.Context) {
	var body gameRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	title := strings.TrimSpace(body.Title)
	if title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title is required"})
		return
	}
	if body.Price == nil || *body.Price < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "price must be non-negative"})
		return
	}

	game := models.Game{
		Title:       title,
		Description: strings.TrimSpace(body.Description),
		Price:       *body.Price,
		OldPrice:    body.OldPrice,
		Image:       strings.TrimSpace(body.Image),
		Tag:         strings.TrimSpace(body.Tag),
		IsActive:    true,
	}
	if body.IsActive != nil {
		game.IsActive = *body.IsActive
	}

	if errCreate := h.db.WithContext(c.Request.Context()).Create(&game).Error; errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create game failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"game": game})
}

// Update edits a catalog entry. Placed orders keep their snapshotted prices.
func (h *GameAdminHandler) Update(c *gin.Context) {
	gameID, errParse := strconv.ParseUint(c.Param("id"), 10, 64)
	if errParse != nil || gameID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid game id"})
		return
	}

	var body gameRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	updates := map[string]any{"updated_at": time.Now().UTC()}
	if title := strings.TrimSpace(body.Title); title != "" {
		updates["title"] = title
	}
	if body.Description != "" {
		updates["description"] = strings.TrimSpace(body.Description)
	}
	if body.Price != nil {
		if *body.Price < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "price must be non-negative"})
			return
		}
		updates["price"] = *body.Price
	}
	if body.OldPrice != nil {
		updates["old_price"] = *body.OldPrice
	}
	if body.Image != "" {
		updates["image"] = strings.TrimSpace(body.Image)
	}
	if body.Tag != "" {
		updates["tag"] = strings.TrimSpace(body.Tag)
	}
	if body.IsActive != nil {
		updates["is_active"] = *body.IsActive
	}

	res := h.db.WithContext(c.Request.Context()).Model(&models.Game{}).
		Where("id = ?", gameID).
		Updates(updates)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update game failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "game not found"})
		return
	}

	var game models.Game
	if errFind := h.db.WithContext(c.Request.Context()).First(&game, gameID).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"game": game})
}

// Delete deactivates a game rather than removing the row, so existing cart
// lines and order snapshots stay resolvable.
func (h *GameAdminHandler) Delete(c *gin.Context) {
	gameID, errParse := strconv.ParseUint(c.Param("id"), 10, 64)
	if errParse != nil || gameID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid game id"})
		return
	}

	var game models.Game
	if errFind := h.db.WithContext(c.Request.Context()).First(&game, gameID).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "game not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	if errUpdate := h.db.WithContext(c.Request.Context()).Model(&game).
		Updates(map[string]any{"is_active": false, "updated_at": time.Now().UTC()}).Error; errUpdate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete game failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
