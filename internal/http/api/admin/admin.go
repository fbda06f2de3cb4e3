package admin

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jjgames/storefront/internal/config"
	"github.com/jjgames/storefront/internal/http/api/admin/handlers"
	"github.com/jjgames/storefront/internal/models"
	"github.com/jjgames/storefront/internal/security"
	"github.com/jjgames/storefront/internal/wallet"
	"gorm.io/gorm"
)

// RegisterAdminRoutes registers the admin API. Login is public; everything
// else requires an admin JWT and passes the permission check.
func RegisterAdminRoutes(r *gin.Engine, db *gorm.DB, jwtCfg config.JWTConfig, wallets *wallet.Service) {
	if r == nil || db == nil {
		return
	}

	group := r.Group("/api/admin")

	authHandler := handlers.NewAuthHandler(db, jwtCfg)
	group.POST("/auth/login", authHandler.Login)
	group.POST("/auth/login/prepare", authHandler.LoginPrepare)
	group.POST("/auth/login/totp", authHandler.LoginTOTP)

	authed := group.Group("")
	authed.Use(adminAuthMiddleware(db, jwtCfg))
	authed.Use(adminPermissionMiddleware(db))

	dashboardHandler := handlers.NewDashboardHandler(db)
	authed.GET("/dashboard", dashboardHandler.Overview)

	userHandler := handlers.NewUserAdminHandler(db, wallets)
	authed.GET("/users", userHandler.List)
	authed.GET("/users/:id", userHandler.Get)
	authed.PUT("/users/:id/points", userHandler.UpdatePoints)
	authed.PUT("/users/:id/block", userHandler.Block)

	orderHandler := handlers.NewOrderAdminHandler(db)
	authed.GET("/orders", orderHandler.List)
	authed.GET("/orders/:id", orderHandler.Get)
	authed.PUT("/orders/:id/status", orderHandler.UpdateStatus)
	authed.PUT("/orders/:id/payment-status", orderHandler.UpdatePaymentStatus)

	gameHandler := handlers.NewGameAdminHandler(db)
	authed.GET("/games", gameHandler.List)
	authed.POST("/games", gameHandler.Create)
	authed.PUT("/games/:id", gameHandler.Update)
	authed.DELETE("/games/:id", gameHandler.Delete)

	settingsHandler := handlers.NewSettingsHandler(db)
	authed.GET("/settings", settingsHandler.Get)
	authed.PUT("/settings", settingsHandler.Update)

	adminHandler := handlers.NewAdminHandler(db)
	authed.GET("/admins", adminHandler.List)
	authed.POST("/admins", adminHandler.Create)
	authed.GET("/admins/:id", adminHandler.Get)
	authed.PUT("/admins/:id", adminHandler.Update)
	authed.DELETE("/admins/:id", adminHandler.Delete)
	authed.PUT("/admins/:id/password", adminHandler.ChangePassword)
	authed.POST("/admins/:id/disable", adminHandler.Disable)
	authed.POST("/admins/:id/enable", adminHandler.Enable)

	mfaHandler := handlers.NewMFAHandler(db)
	authed.GET("/mfa/status", mfaHandler.Status)
	authed.POST("/mfa/totp/prepare", mfaHandler.PrepareTOTP)
	authed.POST("/mfa/totp/confirm", mfaHandler.ConfirmTOTP)
	authed.POST("/mfa/totp/disable", mfaHandler.DisableTOTP)

	authed.GET("/permissions", handlers.ListPermissionDefinitions)
}

// adminAuthMiddleware validates admin JWTs and loads the admin ID into context.
func adminAuthMiddleware(db *gorm.DB, jwtCfg config.JWTConfig) gin.HandlerFunc {
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

		claims, errJWT := security.ParseAdminToken(jwtCfg.Secret, token)
		if errJWT != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		var admin models.Admin
		if errFind := db.WithContext(c.Request.Context()).Select("id", "active").First(&admin, claims.AdminID).Error; errFind != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "admin not found"})
			return
		}
		if !admin.Active {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin account is disabled"})
			return
		}

		c.Set("adminID", admin.ID)
		c.Next()
	}
}
