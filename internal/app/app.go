package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jjgames/storefront/internal/cart"
	"github.com/jjgames/storefront/internal/catalog"
	"github.com/jjgames/storefront/internal/checkout"
	"github.com/jjgames/storefront/internal/config"
	"github.com/jjgames/storefront/internal/db"
	"github.com/jjgames/storefront/internal/email"
	adminapi "github.com/jjgames/storefront/internal/http/api/admin"
	"github.com/jjgames/storefront/internal/http/api/front"
	"github.com/jjgames/storefront/internal/logging"
	"github.com/jjgames/storefront/internal/models"
	"github.com/jjgames/storefront/internal/payment"
	"github.com/jjgames/storefront/internal/security"
	"github.com/jjgames/storefront/internal/settings"
	"github.com/jjgames/storefront/internal/wallet"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Migrate opens the database and runs migrations.
func Migrate(ctx context.Context, configPath string) error {
	cfg, errLoad := config.Load(config.ResolveConfigPath(configPath))
	if errLoad != nil {
		return errLoad
	}
	conn, errOpen := db.Open(cfg.Database.DSN)
	if errOpen != nil {
		return errOpen
	}
	return db.Migrate(conn)
}

// RunServer boots the storefront API server and blocks until ctx is done.
func RunServer(ctx context.Context, configPath string) error {
	cfg, errLoad := config.Load(config.ResolveConfigPath(configPath))
	if errLoad != nil {
		return errLoad
	}
	logging.Setup(cfg.Log)

	conn, errOpen := db.Open(cfg.Database.DSN)
	if errOpen != nil {
		return errOpen
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}

	if errRefresh := settings.RefreshDBConfigSnapshot(ctx, conn); errRefresh != nil {
		return errRefresh
	}
	if errSeed := EnsureDefaultAdmin(ctx, conn, cfg.Bootstrap); errSeed != nil {
		return errSeed
	}

	wallets := wallet.NewService(conn)
	catalogSvc := catalog.NewService(conn)

	var guests cart.GuestStore
	if store := cart.NewRedisGuestStore(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB); store != nil {
		guests = store
	}
	carts := cart.NewService(conn, guests)

	payments := payment.NewSimulator()
	settlement := checkout.NewService(conn, wallets, catalogSvc, payments)
	mail := email.NewSender(cfg.Email)

	gin.SetMode(cfg.Server.Mode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	front.RegisterFrontRoutes(engine, front.Deps{
		DB:         conn,
		JWT:        cfg.JWT,
		Wallets:    wallets,
		Carts:      carts,
		Catalog:    catalogSvc,
		Settlement: settlement,
		Mail:       mail,
	})
	adminapi.RegisterAdminRoutes(engine, conn, cfg.JWT, wallets)

	NewBlockReaper(conn).Start(ctx)
	NewCartSweeper(conn).Start(ctx)

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("storefront listening on %s", cfg.Server.Addr)
		if errServe := server.ListenAndServe(); errServe != nil && !errors.Is(errServe, http.ErrServerClosed) {
			errCh <- errServe
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if errShutdown := server.Shutdown(shutdownCtx); errShutdown != nil {
			return errShutdown
		}
		return <-errCh
	case errServe := <-errCh:
		return errServe
	}
}

// EnsureDefaultAdmin seeds the first super admin when the admins table is
// empty and bootstrap credentials are configured.
func EnsureDefaultAdmin(ctx context.Context, conn *gorm.DB, bootstrap config.BootstrapConfig) error {
	if bootstrap.AdminUsername == "" || bootstrap.AdminPassword == "" {
		return nil
	}

	var count int64
	if errCount := conn.WithContext(ctx).Model(&models.Admin{}).Count(&count).Error; errCount != nil {
		return errCount
	}
	if count > 0 {
		return nil
	}

	hash, errHash := security.HashPassword(bootstrap.AdminPassword)
	if errHash != nil {
		return errHash
	}
	admin := models.Admin{
		Username:     bootstrap.AdminUsername,
		Password:     hash,
		Active:       true,
		IsSuperAdmin: true,
	}
	if errCreate := conn.WithContext(ctx).Create(&admin).Error; errCreate != nil {
		return errCreate
	}
	log.Infof("seeded bootstrap admin %q", bootstrap.AdminUsername)
	return nil
}
