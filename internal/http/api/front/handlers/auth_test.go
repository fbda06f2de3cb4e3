package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/jjgames/storefront/internal/config"
	"github.com/jjgames/storefront/internal/db"
	"github.com/jjgames/storefront/internal/models"
	"github.com/jjgames/storefront/internal/wallet"
	"gorm.io/gorm"
)

// captureSender records the last OTP instead of sending mail.
type captureSender struct {
	to   string
	code string
}

func (s *captureSender) SendOTP(to, _, code string) error {
	s.to = to
	s.code = code
	return nil
}

func newAuthEnv(t *testing.T) (*testEnv, *captureSender) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:front_auth_test_%d?mode=memory&cache=shared", testDBCounter.Add(1))
	conn, errOpen := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open sqlite: %v", errOpen)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}

	wallets := wallet.NewService(conn)
	mail := &captureSender{}
	auth := NewAuthHandler(conn, config.JWTConfig{Secret: "test-secret"}, wallets, mail)

	engine := gin.New()
	engine.POST("/api/auth/register", auth.Register)
	engine.POST("/api/auth/verify-otp", auth.VerifyOTP)
	engine.POST("/api/auth/login", auth.Login)
	engine.GET("/api/auth/validate-referral/:code", auth.ValidateReferral)

	return &testEnv{conn: conn, wallets: wallets, engine: engine}, mail
}

func TestRegisterVerifyLoginFlow(t *testing.T) {
	env, mail := newAuthEnv(t)

	rec := env.do(http.MethodPost, "/api/auth/register",
		`{"name": "Asha", "username": "asha", "email": "asha@example.com", "password": "secret1"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d: %s", rec.Code, rec.Body.String())
	}
	created := decodeBody(t, rec)
	if created["points_earned"].(float64) != 20 {
		t.Fatalf("signup bonus = %v, want 20", created["points_earned"])
	}
	if mail.to != "asha@example.com" || mail.code == "" {
		t.Fatalf("otp mail not captured: to=%q code=%q", mail.to, mail.code)
	}

	// Login before verification is refused.
	rec = env.do(http.MethodPost, "/api/auth/login", `{"username": "asha", "password": "secret1"}`)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("unverified login status = %d, want 403", rec.Code)
	}

	rec = env.do(http.MethodPost, "/api/auth/verify-otp",
		fmt.Sprintf(`{"email": "asha@example.com", "otp": %q}`, mail.code))
	if rec.Code != http.StatusOK {
		t.Fatalf("verify status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = env.do(http.MethodPost, "/api/auth/login", `{"username": "asha", "password": "secret1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["token"].(string) == "" {
		t.Fatal("login did not issue a token")
	}
	user := body["user"].(map[string]any)
	if user["points"].(float64) != 20 {
		t.Fatalf("login points = %v, want 20", user["points"])
	}
}

func TestRegisterRejectsWrongOTP(t *testing.T) {
	env, _ := newAuthEnv(t)

	rec := env.do(http.MethodPost, "/api/auth/register",
		`{"username": "bo", "email": "bo@example.com", "password": "secret1"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = env.do(http.MethodPost, "/api/auth/verify-otp",
		`{"email": "bo@example.com", "otp": "000000x"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad otp status = %d, want 400", rec.Code)
	}
}

func TestRegisterWithReferralCreditsReferrer(t *testing.T) {
	env, mail := newAuthEnv(t)

	rec := env.do(http.MethodPost, "/api/auth/register",
		`{"username": "referrer", "email": "ref@example.com", "password": "secret1"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register referrer status = %d: %s", rec.Code, rec.Body.String())
	}

	var referrerWallet models.Wallet
	if errFind := env.conn.Where("user_id = ?", uint64(1)).First(&referrerWallet).Error; errFind != nil {
		t.Fatalf("load referrer wallet: %v", errFind)
	}

	rec = env.do(http.MethodGet, "/api/auth/validate-referral/"+referrerWallet.ReferralCode, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("validate referral status = %d", rec.Code)
	}
	if decoded := decodeBody(t, rec); decoded["valid"] != true {
		t.Fatalf("referral code should validate: %v", decoded)
	}

	rec = env.do(http.MethodPost, "/api/auth/register",
		fmt.Sprintf(`{"username": "friend", "email": "friend@example.com", "password": "secret1", "referral_code": %q}`, referrerWallet.ReferralCode))
	if rec.Code != http.StatusCreated {
		t.Fatalf("register friend status = %d: %s", rec.Code, rec.Body.String())
	}
	_ = mail

	env.conn.First(&referrerWallet, referrerWallet.ID)
	if referrerWallet.CurrentPoints != 220 {
		t.Fatalf("referrer balance = %d, want 220 (20 signup + 200 referral)", referrerWallet.CurrentPoints)
	}
	if referrerWallet.ReferralCount != 1 {
		t.Fatalf("referral count = %d, want 1", referrerWallet.ReferralCount)
	}

	var friendWallet models.Wallet
	env.conn.Where("user_id = ?", uint64(2)).First(&friendWallet)
	if friendWallet.CurrentPoints != 20 {
		t.Fatalf("friend balance = %d, want 20", friendWallet.CurrentPoints)
	}
	if friendWallet.ReferredBy == nil || *friendWallet.ReferredBy != 1 {
		t.Fatalf("friend wallet should record referrer: %v", friendWallet.ReferredBy)
	}
}

func TestRegisterUnknownReferralRejected(t *testing.T) {
	env, _ := newAuthEnv(t)

	rec := env.do(http.MethodPost, "/api/auth/register",
		`{"username": "solo", "email": "solo@example.com", "password": "secret1", "referral_code": "JJNOPE0000"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown referral status = %d, want 400", rec.Code)
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	env, _ := newAuthEnv(t)

	body := `{"username": "dup", "email": "dup@example.com", "password": "secret1"}`
	if rec := env.do(http.MethodPost, "/api/auth/register", body); rec.Code != http.StatusCreated {
		t.Fatalf("first register status = %d", rec.Code)
	}
	if rec := env.do(http.MethodPost, "/api/auth/register", body); rec.Code != http.StatusConflict {
		t.Fatalf("duplicate register status = %d, want 409", rec.Code)
	}
}
