package front

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jjgames/storefront/internal/cart"
	"github.com/jjgames/storefront/internal/catalog"
	"github.com/jjgames/storefront/internal/checkout"
	"github.com/jjgames/storefront/internal/config"
	"github.com/jjgames/storefront/internal/email"
	"github.com/jjgames/storefront/internal/http/api/front/handlers"
	"github.com/jjgames/storefront/internal/models"
	"github.com/jjgames/storefront/internal/security"
	"github.com/jjgames/storefront/internal/wallet"
	"gorm.io/gorm"
)

// Deps bundles the services the storefront routes need.
type Deps struct {
	DB         *gorm.DB
	JWT        config.JWTConfig
	Wallets    *wallet.Service
	Carts      *cart.Service
	Catalog    *catalog.Service
	Settlement *checkout.Service
	Mail       email.Sender
}

// RegisterFrontRoutes registers public and authenticated storefront routes.
func RegisterFrontRoutes(r *gin.Engine, deps Deps) {
	if r == nil || deps.DB == nil {
		return
	}

	api := r.Group("/api")

	authHandler := handlers.NewAuthHandler(deps.DB, deps.JWT, deps.Wallets, deps.Mail)
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/verify-otp", authHandler.VerifyOTP)
	api.POST("/auth/login", authHandler.Login)
	api.GET("/auth/validate-referral/:code", authHandler.ValidateReferral)

	gameHandler := handlers.NewGameHandler(deps.Catalog)
	api.GET("/games", gameHandler.List)
	api.GET("/games/:id", gameHandler.Get)

	if deps.Carts.GuestStoreEnabled() {
		guestHandler := handlers.NewGuestCartHandler(deps.Carts, deps.Catalog)
		api.GET("/guest-cart", guestHandler.Get)
		api.POST("/guest-cart/items", guestHandler.AddItem)
		api.PUT("/guest-cart/items/:gameId", guestHandler.UpdateQuantity)
		api.DELETE("/guest-cart", guestHandler.Clear)
	}

	authed := api.Group("")
	authed.Use(userAuthMiddleware(deps.DB, deps.JWT))

	walletHandler := handlers.NewWalletHandler(deps.Wallets)
	authed.GET("/wallet", walletHandler.Get)
	authed.GET("/wallet/history", walletHandler.History)
	authed.POST("/wallet/daily-game-bonus", walletHandler.DailyBonus)
	authed.GET("/wallet/discount", walletHandler.Discount)

	cartHandler := handlers.NewCartHandler(deps.Carts, deps.Catalog)
	authed.GET("/cart", cartHandler.Get)
	authed.POST("/cart/items", cartHandler.AddItem)
	authed.PUT("/cart/items/:gameId", cartHandler.UpdateQuantity)
	authed.DELETE("/cart/items/:gameId", cartHandler.Remove)
	authed.DELETE("/cart", cartHandler.Clear)

	orderHandler := handlers.NewOrderHandler(deps.DB, deps.Settlement)
	authed.POST("/orders", orderHandler.Create)
	authed.GET("/orders", orderHandler.List)
	authed.GET("/orders/:id", orderHandler.Get)

	addressHandler := handlers.NewAddressHandler(deps.DB)
	authed.GET("/addresses", addressHandler.List)
	authed.POST("/addresses", addressHandler.Create)
	authed.PUT("/addresses/:id", addressHandler.Update)
	authed.DELETE("/addresses/:id", addressHandler.Delete)

	profileHandler := handlers.NewProfileHandler(deps.DB, deps.Wallets)
	authed.GET("/profile", profileHandler.Get)
	authed.PUT("/profile", profileHandler.Update)
}

// userAuthMiddleware validates user JWTs and loads the user into context.
// Blocked accounts are rejected here so a mid-session block takes effect on
// the next request.
func userAuthMiddleware(db *gorm.DB, jwtCfg config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == authHeader {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			return
		}
		token = strings.TrimSpace(token)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "empty token"})
			return
		}

		claims, errJWT := security.ParseToken(jwtCfg.Secret, token)
		if errJWT != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		var user models.User
		if errFind := db.WithContext(c.Request.Context()).First(&user, claims.UserID).Error; errFind != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
			return
		}
		if user.BlockActive(time.Now().UTC()) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "account blocked"})
			return
		}

		c.Set("userID", user.ID)
		c.Next()
	}
}
