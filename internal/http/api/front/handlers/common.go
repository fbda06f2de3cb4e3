package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jjgames/storefront/internal/wallet"
)

// getUserID extracts the user ID from gin context.
func getUserID(c *gin.Context) uint64 {
	val, exists := c.Get("userID")
	if !exists {
		return 0
	}
	switch v := val.(type) {
	case uint64:
		return v
	case int64:
		return uint64(v)
	case uint:
		return uint64(v)
	case int:
		return uint64(v)
	default:
		return 0
	}
}

// respondWalletError maps the wallet/checkout error taxonomy onto HTTP
// responses without leaking internal detail.
func respondWalletError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, wallet.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, wallet.ErrInsufficientBalance):
		c.JSON(http.StatusBadRequest, gin.H{"error": "insufficient points balance"})
	case errors.Is(err, wallet.ErrConcurrencyConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "please try again"})
	case errors.Is(err, wallet.ErrDownstreamUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service temporarily unavailable, please try again"})
	case errors.Is(err, wallet.ErrWalletNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "wallet not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "request failed"})
	}
}
