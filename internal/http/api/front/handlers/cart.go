package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jjgames/storefront/internal/cart"
	"github.com/jjgames/storefront/internal/catalog"
	"github.com/jjgames/storefront/internal/models"
	"gorm.io/gorm"
)

// guestTokenHeader carries the client-generated guest cart token.
const guestTokenHeader = "X-Guest-Token"

// CartHandler handles account cart endpoints.
type CartHandler struct {
	carts   *cart.Service
	catalog *catalog.Service
}

// NewCartHandler constructs a CartHandler.
func NewCartHandler(carts *cart.Service, cat *catalog.Service) *CartHandler {
	return &CartHandler{carts: carts, catalog: cat}
}

// cartResponse renders a cart with its derived totals.
func cartResponse(c models.Cart) gin.H {
	items := make([]gin.H, 0, len(c.Items))
	totalItems := 0
	totalPrice := 0.0
	for _, item := range c.Items {
		items = append(items, gin.H{
			"game_id":  item.GameID,
			"title":    item.Title,
			"price":    item.Price,
			"image":    item.Image,
			"quantity": item.Quantity,
			"added_at": item.AddedAt,
		})
		totalItems += item.Quantity
		totalPrice += item.Price * float64(item.Quantity)
	}
	return gin.H{
		"items":       items,
		"total_items": totalItems,
		"total_price": totalPrice,
	}
}

// Get returns the account cart, merging a guest cart in first when the
// request carries a guest token.
func (h *CartHandler) Get(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	loaded, errGet := h.carts.Get(c.Request.Context(), userID, c.GetHeader(guestTokenHeader))
	if errGet != nil {
		respondWalletError(c, errGet)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cart": cartResponse(loaded)})
}

// addItemRequest defines the request body for adding a cart item.
type addItemRequest struct {
	GameID uint64 `json:"game_id"`
}

// AddItem adds a game to the cart; re-adding increments its quantity.
func (h *CartHandler) AddItem(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var body addItemRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil || body.GameID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "game_id is required"})
		return
	}

	game, errGame := h.catalog.Game(c.Request.Context(), body.GameID)
	if errGame != nil {
		if errors.Is(errGame, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "game not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	if !game.IsActive {
		c.JSON(http.StatusBadRequest, gin.H{"error": "game is not available"})
		return
	}

	loaded, errAdd := h.carts.AddItem(c.Request.Context(), userID, game)
	if errAdd != nil {
		respondWalletError(c, errAdd)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cart": cartResponse(loaded), "message": "item added to cart"})
}

// updateQuantityRequest defines the request body for a quantity change.
type updateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// UpdateQuantity sets a line's quantity; zero removes the line.
func (h *CartHandler) UpdateQuantity(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	gameID, errParse := strconv.ParseUint(c.Param("gameId"), 10, 64)
	if errParse != nil || gameID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid game id"})
		return
	}

	var body updateQuantityRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	loaded, errUpdate := h.carts.UpdateQuantity(c.Request.Context(), userID, gameID, body.Quantity)
	if errUpdate != nil {
		respondWalletError(c, errUpdate)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cart": cartResponse(loaded), "message": "cart updated"})
}

// Remove deletes one line from the cart.
func (h *CartHandler) Remove(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	gameID, errParse := strconv.ParseUint(c.Param("gameId"), 10, 64)
	if errParse != nil || gameID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid game id"})
		return
	}

	loaded, errRemove := h.carts.RemoveItem(c.Request.Context(), userID, gameID)
	if errRemove != nil {
		respondWalletError(c, errRemove)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cart": cartResponse(loaded), "message": "item removed"})
}

// Clear empties the account cart.
func (h *CartHandler) Clear(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	if errClear := h.carts.Clear(c.Request.Context(), userID); errClear != nil {
		respondWalletError(c, errClear)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "cart cleared"})
}

// GuestCartHandler handles pre-login cart endpoints backed by the guest store.
type GuestCartHandler struct {
	carts   *cart.Service
	catalog *catalog.Service
}

// NewGuestCartHandler constructs a GuestCartHandler.
func NewGuestCartHandler(carts *cart.Service, cat *catalog.Service) *GuestCartHandler {
	return &GuestCartHandler{carts: carts, catalog: cat}
}

// guestToken extracts and validates the guest token header.
func guestToken(c *gin.Context) (string, bool) {
	token := strings.TrimSpace(c.GetHeader(guestTokenHeader))
	if token == "" || len(token) > 128 {
		return "", false
	}
	return token, true
}

// guestCartResponse renders guest items with derived totals.
func guestCartResponse(items []cart.GuestItem) gin.H {
	rendered := make([]gin.H, 0, len(items))
	totalItems := 0
	totalPrice := 0.0
	for _, item := range items {
		rendered = append(rendered, gin.H{
			"game_id":  item.GameID,
			"title":    item.Title,
			"price":    item.Price,
			"image":    item.Image,
			"quantity": item.Quantity,
		})
		totalItems += item.Quantity
		totalPrice += item.Price * float64(item.Quantity)
	}
	return gin.H{
		"items":       rendered,
		"total_items": totalItems,
		"total_price": totalPrice,
	}
}

// Get returns the guest cart for the request token.
func (h *GuestCartHandler) Get(c *gin.Context) {
	token, ok := guestToken(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing guest token"})
		return
	}

	items, errGet := h.carts.Guests().Get(c.Request.Context(), token)
	if errGet != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "guest cart unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cart": guestCartResponse(items)})
}

// AddItem adds a game to the guest cart; re-adding increments its quantity.
func (h *GuestCartHandler) AddItem(c *gin.Context) {
	token, ok := guestToken(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing guest token"})
		return
	}

	var body addItemRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil || body.GameID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "game_id is required"})
		return
	}

	game, errGame := h.catalog.Game(c.Request.Context(), body.GameID)
	if errGame != nil {
		if errors.Is(errGame, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "game not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	if !game.IsActive {
		c.JSON(http.StatusBadRequest, gin.H{"error": "game is not available"})
		return
	}

	items, errGet := h.carts.Guests().Get(c.Request.Context(), token)
	if errGet != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "guest cart unavailable"})
		return
	}

	found := false
	for i := range items {
		if items[i].GameID == game.ID {
			items[i].Quantity++
			found = true
			break
		}
	}
	if !found {
		items = append(items, cart.GuestItem{
			GameID:   game.ID,
			Title:    game.Title,
			Price:    game.Price,
			Image:    game.Image,
			Quantity: 1,
		})
	}

	if errSave := h.carts.Guests().Save(c.Request.Context(), token, items); errSave != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "guest cart unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cart": guestCartResponse(items), "message": "item added to cart"})
}

// UpdateQuantity sets a guest line's quantity; zero removes the line.
func (h *GuestCartHandler) UpdateQuantity(c *gin.Context) {
	token, ok := guestToken(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing guest token"})
		return
	}

	gameID, errParse := strconv.ParseUint(c.Param("gameId"), 10, 64)
	if errParse != nil || gameID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid game id"})
		return
	}

	var body updateQuantityRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	items, errGet := h.carts.Guests().Get(c.Request.Context(), token)
	if errGet != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "guest cart unavailable"})
		return
	}

	next := items[:0]
	for _, item := range items {
		if item.GameID == gameID {
			if body.Quantity <= 0 {
				continue
			}
			item.Quantity = body.Quantity
		}
		next = append(next, item)
	}

	if errSave := h.carts.Guests().Save(c.Request.Context(), token, next); errSave != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "guest cart unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cart": guestCartResponse(next), "message": "cart updated"})
}

// Clear deletes the guest cart.
func (h *GuestCartHandler) Clear(c *gin.Context) {
	token, ok := guestToken(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing guest token"})
		return
	}
	if errDelete := h.carts.Guests().Delete(c.Request.Context(), token); errDelete != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "guest cart unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "cart cleared"})
}
