package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/jjgames/storefront/internal/db"
	"github.com/jjgames/storefront/internal/models"
	"github.com/jjgames/storefront/internal/security"
	"github.com/pquerna/otp/totp"
	"gorm.io/gorm"
)

// staffTestEnv routes the staff-account and MFA endpoints behind a stub
// auth middleware whose identity tests can switch per request.
type staffTestEnv struct {
	conn        *gorm.DB
	engine      *gin.Engine
	selfAdminID uint64
}

func newStaffTestEnv(t *testing.T) *staffTestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:staff_handlers_test_%d?mode=memory&cache=shared", testDBCounter.Add(1))
	conn, errOpen := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open sqlite: %v", errOpen)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}

	env := &staffTestEnv{conn: conn, engine: gin.New()}
	env.engine.Use(func(c *gin.Context) {
		if env.selfAdminID != 0 {
			c.Set("adminID", env.selfAdminID)
		}
		c.Next()
	})

	admins := NewAdminHandler(conn)
	env.engine.POST("/api/admin/admins", admins.Create)
	env.engine.GET("/api/admin/admins", admins.List)
	env.engine.GET("/api/admin/admins/:id", admins.Get)
	env.engine.PUT("/api/admin/admins/:id", admins.Update)
	env.engine.DELETE("/api/admin/admins/:id", admins.Delete)
	env.engine.PUT("/api/admin/admins/:id/password", admins.ChangePassword)
	env.engine.POST("/api/admin/admins/:id/disable", admins.Disable)
	env.engine.POST("/api/admin/admins/:id/enable", admins.Enable)

	mfa := NewMFAHandler(conn)
	env.engine.GET("/api/admin/mfa/status", mfa.Status)
	env.engine.POST("/api/admin/mfa/totp/prepare", mfa.PrepareTOTP)
	env.engine.POST("/api/admin/mfa/totp/confirm", mfa.ConfirmTOTP)
	env.engine.POST("/api/admin/mfa/totp/disable", mfa.DisableTOTP)

	return env
}

func (e *staffTestEnv) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.engine.ServeHTTP(rec, req)
	return rec
}

func (e *staffTestEnv) seedAdmin(t *testing.T, username, password string) models.Admin {
	t.Helper()
	hash, errHash := security.HashPassword(password)
	if errHash != nil {
		t.Fatalf("hash password: %v", errHash)
	}
	admin := models.Admin{Username: username, Password: hash, Active: true}
	if errCreate := e.conn.Create(&admin).Error; errCreate != nil {
		t.Fatalf("seed admin: %v", errCreate)
	}
	return admin
}

func (e *staffTestEnv) adminByID(t *testing.T, id uint64) models.Admin {
	t.Helper()
	var admin models.Admin
	if errFind := e.conn.First(&admin, id).Error; errFind != nil {
		t.Fatalf("load admin %d: %v", id, errFind)
	}
	return admin
}

func TestCreateAdminAccount(t *testing.T) {
	env := newStaffTestEnv(t)

	rec := env.do(http.MethodPost, "/api/admin/admins",
		`{"username": "clerk", "password": "longenough", "permissions": ["GET /api/admin/users"]}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeJSON(t, rec)
	if body["username"] != "clerk" || body["active"] != true {
		t.Fatalf("unexpected account body: %v", body)
	}
	if body["totp_enabled"] != false {
		t.Fatalf("new account must start without totp: %v", body)
	}

	rec = env.do(http.MethodPost, "/api/admin/admins",
		`{"username": "clerk", "password": "longenough"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate username status = %d", rec.Code)
	}

	rec = env.do(http.MethodPost, "/api/admin/admins",
		`{"username": "shorty", "password": "short"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("short password status = %d", rec.Code)
	}
}

func TestAdminCannotDisableOrDeleteSelf(t *testing.T) {
	env := newStaffTestEnv(t)
	self := env.seedAdmin(t, "boss", "longenough")
	other := env.seedAdmin(t, "clerk", "longenough")
	env.selfAdminID = self.ID

	rec := env.do(http.MethodPost, fmt.Sprintf("/api/admin/admins/%d/disable", self.ID), "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("self disable status = %d", rec.Code)
	}
	rec = env.do(http.MethodDelete, fmt.Sprintf("/api/admin/admins/%d", self.ID), "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("self delete status = %d", rec.Code)
	}

	rec = env.do(http.MethodPost, fmt.Sprintf("/api/admin/admins/%d/disable", other.ID), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("disable other status = %d: %s", rec.Code, rec.Body.String())
	}
	if env.adminByID(t, other.ID).Active {
		t.Fatal("disable did not stick")
	}

	rec = env.do(http.MethodPost, fmt.Sprintf("/api/admin/admins/%d/enable", other.ID), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("enable status = %d", rec.Code)
	}
	if !env.adminByID(t, other.ID).Active {
		t.Fatal("enable did not stick")
	}

	rec = env.do(http.MethodDelete, fmt.Sprintf("/api/admin/admins/%d", other.ID), "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete other status = %d", rec.Code)
	}
}

func TestChangeOwnPasswordNeedsCurrentOne(t *testing.T) {
	env := newStaffTestEnv(t)
	self := env.seedAdmin(t, "boss", "oldpassword")
	env.selfAdminID = self.ID

	rec := env.do(http.MethodPut, fmt.Sprintf("/api/admin/admins/%d/password", self.ID),
		`{"old_password": "wrongwrong", "new_password": "newpassword"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong old password status = %d", rec.Code)
	}

	rec = env.do(http.MethodPut, fmt.Sprintf("/api/admin/admins/%d/password", self.ID),
		`{"old_password": "oldpassword", "new_password": "newpassword"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("change password status = %d: %s", rec.Code, rec.Body.String())
	}
	if !security.CheckPassword(env.adminByID(t, self.ID).Password, "newpassword") {
		t.Fatal("new password was not persisted")
	}
}

func TestUpdateAdminRejectsEmptyPatch(t *testing.T) {
	env := newStaffTestEnv(t)
	target := env.seedAdmin(t, "clerk", "longenough")

	rec := env.do(http.MethodPut, fmt.Sprintf("/api/admin/admins/%d", target.ID), `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty patch status = %d", rec.Code)
	}

	rec = env.do(http.MethodPut, fmt.Sprintf("/api/admin/admins/%d", target.ID),
		`{"is_super_admin": true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("patch status = %d: %s", rec.Code, rec.Body.String())
	}
	if !env.adminByID(t, target.ID).IsSuperAdmin {
		t.Fatal("super admin flag was not persisted")
	}
}

func TestTOTPEnrollmentLifecycle(t *testing.T) {
	env := newStaffTestEnv(t)
	self := env.seedAdmin(t, "boss", "longenough")
	env.selfAdminID = self.ID

	rec := env.do(http.MethodGet, "/api/admin/mfa/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeJSON(t, rec)
	if body["totp_enabled"] != false || body["setup_pending"] != false {
		t.Fatalf("fresh account mfa state: %v", body)
	}

	// Confirming before preparing must fail.
	rec = env.do(http.MethodPost, "/api/admin/mfa/totp/confirm", `{"code": "123456"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("confirm without prepare status = %d", rec.Code)
	}

	rec = env.do(http.MethodPost, "/api/admin/mfa/totp/prepare", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("prepare status = %d: %s", rec.Code, rec.Body.String())
	}
	body = decodeJSON(t, rec)
	secret, _ := body["secret"].(string)
	if secret == "" || body["otpauth_url"] == "" {
		t.Fatalf("prepare response incomplete: %v", body)
	}

	rec = env.do(http.MethodGet, "/api/admin/mfa/status", "")
	if body = decodeJSON(t, rec); body["setup_pending"] != true {
		t.Fatalf("prepare should leave an enrollment pending: %v", body)
	}

	rec = env.do(http.MethodPost, "/api/admin/mfa/totp/confirm", `{"code": "000000"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad code status = %d", rec.Code)
	}

	code, errCode := totp.GenerateCode(secret, time.Now())
	if errCode != nil {
		t.Fatalf("generate code: %v", errCode)
	}
	rec = env.do(http.MethodPost, "/api/admin/mfa/totp/confirm", fmt.Sprintf(`{"code": %q}`, code))
	if rec.Code != http.StatusOK {
		t.Fatalf("confirm status = %d: %s", rec.Code, rec.Body.String())
	}
	if env.adminByID(t, self.ID).TOTPSecret != secret {
		t.Fatal("confirmed secret was not persisted")
	}

	// A second enrollment while enabled is rejected.
	rec = env.do(http.MethodPost, "/api/admin/mfa/totp/prepare", "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("prepare while enabled status = %d", rec.Code)
	}

	rec = env.do(http.MethodPost, "/api/admin/mfa/totp/disable", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("disable status = %d", rec.Code)
	}
	if env.adminByID(t, self.ID).TOTPSecret != "" {
		t.Fatal("disable left the secret behind")
	}
}
