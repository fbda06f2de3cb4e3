package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jjgames/storefront/internal/catalog"
	"github.com/jjgames/storefront/internal/models"
	"gorm.io/gorm"
)

// GameHandler handles public catalog endpoints.
type GameHandler struct {
	catalog *catalog.Service
}

// NewGameHandler constructs a GameHandler.
func NewGameHandler(cat *catalog.Service) *GameHandler {
	return &GameHandler{catalog: cat}
}

// gameListQuery defines the catalog listing query.
type gameListQuery struct {
	Search string `form:"search"`
	Tag    string `form:"tag"`
	Page   int    `form:"page,default=1"`
	Limit  int    `form:"limit,default=20"`
}

// List returns active games with optional search and tag filters.
func (h *GameHandler) List(c *gin.Context) {
	var q gameListQuery
	if errBind := c.ShouldBindQuery(&q); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query"})
		return
	}

	games, total, errList := h.catalog.List(c.Request.Context(), q.Search, q.Tag, q.Page, q.Limit)
	if errList != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	rendered := make([]gin.H, 0, len(games))
	for _, game := range games {
		rendered = append(rendered, gameResponse(game))
	}
	c.JSON(http.StatusOK, gin.H{
		"games": rendered,
		"total": total,
		"page":  q.Page,
		"limit": q.Limit,
	})
}

// Get returns one catalog entry.
func (h *GameHandler) Get(c *gin.Context) {
	gameID, errParse := strconv.ParseUint(c.Param("id"), 10, 64)
	if errParse != nil || gameID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid game id"})
		return
	}

	game, errGame := h.catalog.Game(c.Request.Context(), gameID)
	if errGame != nil {
		if errors.Is(errGame, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "game not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	if !game.IsActive {
		c.JSON(http.StatusNotFound, gin.H{"error": "game not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"game": gameResponse(game)})
}

// gameResponse renders one catalog entry.
func gameResponse(game models.Game) gin.H {
	return gin.H{
		"id":          game.ID,
		"title":       game.Title,
		"description": game.Description,
		"price":       game.Price,
		"old_price":   game.OldPrice,
		"image":       game.Image,
		"tag":         game.Tag,
		"is_active":   game.IsActive,
		"created_at":  game.CreatedAt,
	}
}
