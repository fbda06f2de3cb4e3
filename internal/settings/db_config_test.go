package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/jjgames/storefront/internal/models"
	"gorm.io/gorm"
)

var testDBCounter atomic.Int64

func resetSnapshot(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		StoreDBConfig(time.Time{}, nil)
	})
	StoreDBConfig(time.Time{}, nil)
}

func TestCurrentPointsConfigDefaults(t *testing.T) {
	resetSnapshot(t)

	cfg := CurrentPointsConfig()
	if cfg.SignupBonus != 20 || cfg.ReferralBonus != 200 || cfg.DailyPlayBonus != 10 {
		t.Fatalf("bonus defaults wrong: %+v", cfg)
	}
	if cfg.PurchaseEarnPercent != 1 || cfg.MaxDiscountPercent != 50 {
		t.Fatalf("percent defaults wrong: %+v", cfg)
	}
}

func TestStoreDBConfigOverridesDefaults(t *testing.T) {
	resetSnapshot(t)

	StoreDBConfig(time.Now(), map[string]json.RawMessage{
		SignupBonusPointsKey: json.RawMessage(`50`),
		MaxDiscountPercentKey: json.RawMessage(`"25"`),
	})

	cfg := CurrentPointsConfig()
	if cfg.SignupBonus != 50 {
		t.Fatalf("signup bonus = %d, want 50", cfg.SignupBonus)
	}
	if cfg.MaxDiscountPercent != 25 {
		t.Fatalf("max discount = %d, want 25 (string value accepted)", cfg.MaxDiscountPercent)
	}
	if cfg.ReferralBonus != 200 {
		t.Fatalf("unset key should fall back: %d", cfg.ReferralBonus)
	}
}

func TestMalformedValuesFallBack(t *testing.T) {
	resetSnapshot(t)

	StoreDBConfig(time.Now(), map[string]json.RawMessage{
		SignupBonusPointsKey:  json.RawMessage(`"lots"`),
		MaxDiscountPercentKey: json.RawMessage(`150`),
		DailyPlayBonusPointsKey: json.RawMessage(`-5`),
	})

	cfg := CurrentPointsConfig()
	if cfg.SignupBonus != 20 {
		t.Fatalf("non-numeric value should fall back, got %d", cfg.SignupBonus)
	}
	if cfg.MaxDiscountPercent != 50 {
		t.Fatalf("out-of-range percent should fall back, got %d", cfg.MaxDiscountPercent)
	}
	if cfg.DailyPlayBonus != 10 {
		t.Fatalf("negative value should fall back, got %d", cfg.DailyPlayBonus)
	}
}

func TestRefreshDBConfigSnapshot(t *testing.T) {
	resetSnapshot(t)

	dsn := fmt.Sprintf("file:settings_test_%d?mode=memory&cache=shared", testDBCounter.Add(1))
	conn, errOpen := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open sqlite: %v", errOpen)
	}
	if errMigrate := conn.AutoMigrate(&models.Setting{}); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}

	row := models.Setting{Key: ReferralBonusPointsKey, Value: json.RawMessage(`300`)}
	if errCreate := conn.Create(&row).Error; errCreate != nil {
		t.Fatalf("seed setting: %v", errCreate)
	}

	if errRefresh := RefreshDBConfigSnapshot(context.Background(), conn); errRefresh != nil {
		t.Fatalf("refresh: %v", errRefresh)
	}

	if got := CurrentPointsConfig().ReferralBonus; got != 300 {
		t.Fatalf("referral bonus after refresh = %d, want 300", got)
	}
	if DBConfigUpdatedAt().IsZero() {
		t.Fatal("updated_at should track the refreshed row")
	}
}
