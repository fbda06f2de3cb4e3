package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/jjgames/storefront/internal/db"
	"github.com/jjgames/storefront/internal/models"
	"github.com/jjgames/storefront/internal/wallet"
	"gorm.io/gorm"
)

var testDBCounter atomic.Int64

type adminTestEnv struct {
	conn    *gorm.DB
	wallets *wallet.Service
	engine  *gin.Engine
}

func newAdminTestEnv(t *testing.T) *adminTestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:admin_handlers_test_%d?mode=memory&cache=shared", testDBCounter.Add(1))
	conn, errOpen := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open sqlite: %v", errOpen)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}

	wallets := wallet.NewService(conn)
	engine := gin.New()

	users := NewUserAdminHandler(conn, wallets)
	engine.GET("/api/admin/users", users.List)
	engine.GET("/api/admin/users/:id", users.Get)
	engine.PUT("/api/admin/users/:id/points", users.UpdatePoints)
	engine.PUT("/api/admin/users/:id/block", users.Block)

	orders := NewOrderAdminHandler(conn)
	engine.PUT("/api/admin/orders/:id/status", orders.UpdateStatus)
	engine.PUT("/api/admin/orders/:id/payment-status", orders.UpdatePaymentStatus)

	return &adminTestEnv{conn: conn, wallets: wallets, engine: engine}
}

func (e *adminTestEnv) seedUser(t *testing.T, userID uint64, balance int64) {
	t.Helper()
	user := models.User{
		ID:         userID,
		Username:   fmt.Sprintf("user%d", userID),
		Email:      fmt.Sprintf("user%d@example.com", userID),
		Password:   "x",
		IsVerified: true,
	}
	if errCreate := e.conn.Create(&user).Error; errCreate != nil {
		t.Fatalf("seed user: %v", errCreate)
	}
	errTx := e.conn.Transaction(func(tx *gorm.DB) error {
		_, errWallet := e.wallets.CreateWalletTx(tx, userID, user.Username, nil)
		return errWallet
	})
	if errTx != nil {
		t.Fatalf("seed wallet: %v", errTx)
	}
	if balance > 0 {
		if _, _, errAdjust := e.wallets.Adjust(context.Background(), userID, balance, "seed"); errAdjust != nil {
			t.Fatalf("seed balance: %v", errAdjust)
		}
	}
}

func (e *adminTestEnv) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.engine.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if errDecode := json.Unmarshal(rec.Body.Bytes(), &body); errDecode != nil {
		t.Fatalf("decode response: %v (%s)", errDecode, rec.Body.String())
	}
	return body
}

func TestUpdatePointsAddAndDeduct(t *testing.T) {
	env := newAdminTestEnv(t)
	env.seedUser(t, 1, 0)

	rec := env.do(http.MethodPut, "/api/admin/users/1/points",
		`{"action": "add", "points": 100, "reason": "compensation"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("add status = %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeJSON(t, rec)
	if body["current_points"].(float64) != 100 {
		t.Fatalf("balance after add = %v, want 100", body["current_points"])
	}

	rec = env.do(http.MethodPut, "/api/admin/users/1/points",
		`{"action": "deduct", "points": 30, "reason": "abuse"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("deduct status = %d: %s", rec.Code, rec.Body.String())
	}
	body = decodeJSON(t, rec)
	if body["current_points"].(float64) != 70 {
		t.Fatalf("balance after deduct = %v, want 70", body["current_points"])
	}

	var entries int64
	env.conn.Model(&models.LedgerEntry{}).Where("source = ?", models.SourceAdminAdjustment).Count(&entries)
	if entries != 2 {
		t.Fatalf("expected 2 audit entries, got %d", entries)
	}
}

func TestUpdatePointsInsufficientBalance(t *testing.T) {
	env := newAdminTestEnv(t)
	env.seedUser(t, 1, 20)

	rec := env.do(http.MethodPut, "/api/admin/users/1/points",
		`{"action": "deduct", "points": 50}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", rec.Code, rec.Body.String())
	}

	var w models.Wallet
	env.conn.Where("user_id = ?", uint64(1)).First(&w)
	if w.CurrentPoints != 20 {
		t.Fatalf("failed deduct moved the balance: %d", w.CurrentPoints)
	}
}

func TestUpdatePointsValidation(t *testing.T) {
	env := newAdminTestEnv(t)
	env.seedUser(t, 1, 0)

	rec := env.do(http.MethodPut, "/api/admin/users/1/points", `{"action": "add", "points": 0}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("zero points status = %d, want 400", rec.Code)
	}

	rec = env.do(http.MethodPut, "/api/admin/users/1/points", `{"action": "reset", "points": 10}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown action status = %d, want 400", rec.Code)
	}

	rec = env.do(http.MethodPut, "/api/admin/users/999/points", `{"action": "add", "points": 10}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing wallet status = %d, want 404", rec.Code)
	}
}

func TestBlockUser(t *testing.T) {
	env := newAdminTestEnv(t)
	env.seedUser(t, 1, 0)

	rec := env.do(http.MethodPut, "/api/admin/users/1/block", `{"blocked": true, "days": 7}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("block status = %d: %s", rec.Code, rec.Body.String())
	}
	var user models.User
	env.conn.First(&user, 1)
	if !user.IsBlocked || user.BlockExpiry == nil {
		t.Fatalf("timed block not applied: blocked=%v expiry=%v", user.IsBlocked, user.BlockExpiry)
	}

	rec = env.do(http.MethodPut, "/api/admin/users/1/block", `{"blocked": true, "days": -1}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("permanent block status = %d", rec.Code)
	}
	user = models.User{} // gorm leaves stale pointer fields when scanning NULL into a reused struct
	env.conn.First(&user, 1)
	if !user.IsBlocked || user.BlockExpiry != nil {
		t.Fatalf("permanent block should clear expiry: expiry=%v", user.BlockExpiry)
	}

	rec = env.do(http.MethodPut, "/api/admin/users/1/block", `{"blocked": false}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("unblock status = %d", rec.Code)
	}
	env.conn.First(&user, 1)
	if user.IsBlocked {
		t.Fatal("unblock not applied")
	}

	rec = env.do(http.MethodPut, "/api/admin/users/1/block", `{"blocked": true, "days": 0}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("days=0 status = %d, want 400", rec.Code)
	}
}

func seedOrder(t *testing.T, conn *gorm.DB, orderStatus, paymentStatus string) models.Order {
	t.Helper()
	order := models.Order{
		UserID:          1,
		OrderNumber:     fmt.Sprintf("JJ%d", testDBCounter.Add(1)),
		Items:           []byte(`[]`),
		ShippingAddress: []byte(`{}`),
		Subtotal:        100,
		FinalAmount:     100,
		PaymentMethod:   models.PaymentMethodCard,
		PaymentStatus:   paymentStatus,
		OrderStatus:     orderStatus,
	}
	if errCreate := conn.Create(&order).Error; errCreate != nil {
		t.Fatalf("seed order: %v", errCreate)
	}
	return order
}

func TestOrderStatusTransitions(t *testing.T) {
	env := newAdminTestEnv(t)
	order := seedOrder(t, env.conn, models.OrderStatusProcessing, models.PaymentStatusCompleted)

	path := fmt.Sprintf("/api/admin/orders/%d/status", order.ID)

	// Skipping confirmed is not a legal edge.
	rec := env.do(http.MethodPut, path, `{"status": "shipped"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("illegal edge status = %d, want 409: %s", rec.Code, rec.Body.String())
	}

	for _, target := range []string{"confirmed", "shipped", "delivered"} {
		body := fmt.Sprintf(`{"status": %q}`, target)
		if target == "shipped" {
			body = `{"status": "shipped", "tracking_number": "TRK123"}`
		}
		rec = env.do(http.MethodPut, path, body)
		if rec.Code != http.StatusOK {
			t.Fatalf("edge to %s status = %d: %s", target, rec.Code, rec.Body.String())
		}
	}

	var updated models.Order
	env.conn.First(&updated, order.ID)
	if updated.OrderStatus != models.OrderStatusDelivered {
		t.Fatalf("order status = %q, want delivered", updated.OrderStatus)
	}
	if updated.TrackingNumber != "TRK123" {
		t.Fatalf("tracking number = %q", updated.TrackingNumber)
	}

	// Delivered is terminal.
	rec = env.do(http.MethodPut, path, `{"status": "cancelled"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("terminal edge status = %d, want 409", rec.Code)
	}
}

func TestPaymentStatusRefundEdge(t *testing.T) {
	env := newAdminTestEnv(t)
	order := seedOrder(t, env.conn, models.OrderStatusProcessing, models.PaymentStatusCompleted)

	path := fmt.Sprintf("/api/admin/orders/%d/payment-status", order.ID)

	rec := env.do(http.MethodPut, path, `{"status": "refunded"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("refund status = %d: %s", rec.Code, rec.Body.String())
	}

	// Refunded is terminal.
	rec = env.do(http.MethodPut, path, `{"status": "completed"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("terminal edge status = %d, want 409", rec.Code)
	}

	missing := env.do(http.MethodPut, "/api/admin/orders/9999/payment-status", `{"status": "refunded"}`)
	if missing.Code != http.StatusNotFound {
		t.Fatalf("missing order status = %d, want 404", missing.Code)
	}
}
