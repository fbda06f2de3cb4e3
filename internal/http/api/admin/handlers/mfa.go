package handlers

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image/png"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jjgames/storefront/internal/models"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// enrollmentTTL bounds how long a generated secret waits for confirmation.
const enrollmentTTL = 10 * time.Minute

// totpEnrollment is a generated secret awaiting its first valid code.
type totpEnrollment struct {
	secret   string
	deadline time.Time
}

// enrollmentCache holds in-flight TOTP enrollments per admin. Secrets only
// reach the database once the admin proves they scanned the QR code, so an
// abandoned setup can never lock an account out.
type enrollmentCache struct {
	mu      sync.Mutex
	pending map[uint64]totpEnrollment
}

func newEnrollmentCache() *enrollmentCache {
	return &enrollmentCache{pending: make(map[uint64]totpEnrollment)}
}

func (e *enrollmentCache) begin(adminID uint64, secret string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := time.Now()
	for id, enrollment := range e.pending {
		if now.After(enrollment.deadline) {
			delete(e.pending, id)
		}
	}
	e.pending[adminID] = totpEnrollment{secret: secret, deadline: now.Add(enrollmentTTL)}
}

func (e *enrollmentCache) lookup(adminID uint64) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	enrollment, ok := e.pending[adminID]
	if !ok || time.Now().After(enrollment.deadline) {
		delete(e.pending, adminID)
		return "", false
	}
	return enrollment.secret, true
}

func (e *enrollmentCache) forget(adminID uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.pending, adminID)
}

// MFAHandler manages TOTP enrollment for the storefront back office.
type MFAHandler struct {
	db          *gorm.DB
	enrollments *enrollmentCache
}

// NewMFAHandler constructs an MFAHandler.
func NewMFAHandler(db *gorm.DB) *MFAHandler {
	return &MFAHandler{db: db, enrollments: newEnrollmentCache()}
}

// contextAdminID reads the authenticated admin ID set by the auth middleware.
func contextAdminID(c *gin.Context) (uint64, bool) {
	value, ok := c.Get("adminID")
	if !ok {
		return 0, false
	}
	id, ok := value.(uint64)
	return id, ok
}

// requireAdminID returns the authenticated admin ID or writes a 401.
func requireAdminID(c *gin.Context) (uint64, bool) {
	id, ok := contextAdminID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "admin not found"})
		return 0, false
	}
	return id, true
}

// loadAdmin fetches the admin row for an MFA operation.
func (h *MFAHandler) loadAdmin(c *gin.Context, adminID uint64, columns ...string) (models.Admin, bool) {
	var admin models.Admin
	q := h.db.WithContext(c.Request.Context())
	if len(columns) > 0 {
		q = q.Select(columns)
	}
	if errFind := q.First(&admin, adminID).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		}
		return models.Admin{}, false
	}
	return admin, true
}

// Status reports whether the calling admin has TOTP turned on and whether an
// enrollment is waiting for confirmation.
func (h *MFAHandler) Status(c *gin.Context) {
	adminID, ok := requireAdminID(c)
	if !ok {
		return
	}
	admin, ok := h.loadAdmin(c, adminID, "id", "totp_secret")
	if !ok {
		return
	}

	_, pending := h.enrollments.lookup(adminID)
	c.JSON(http.StatusOK, gin.H{
		"totp_enabled":  strings.TrimSpace(admin.TOTPSecret) != "",
		"setup_pending": pending,
	})
}

// PrepareTOTP issues a fresh secret and provisioning QR for the calling
// admin. The secret stays cached until ConfirmTOTP sees a valid code.
func (h *MFAHandler) PrepareTOTP(c *gin.Context) {
	adminID, ok := requireAdminID(c)
	if !ok {
		return
	}
	admin, ok := h.loadAdmin(c, adminID, "id", "username", "totp_secret")
	if !ok {
		return
	}
	if strings.TrimSpace(admin.TOTPSecret) != "" {
		c.JSON(http.StatusConflict, gin.H{"error": "totp already enabled"})
		return
	}

	key, errGenerate := totp.Generate(totp.GenerateOpts{
		Issuer:      "JJ Games Storefront",
		AccountName: admin.Username,
	})
	if errGenerate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "generate totp secret failed"})
		return
	}
	h.enrollments.begin(adminID, key.Secret())

	c.JSON(http.StatusOK, gin.H{
		"secret":      key.Secret(),
		"otpauth_url": key.URL(),
		"qr_png":      renderQRDataURI(key),
	})
}

// renderQRDataURI encodes the provisioning key as an inline PNG. A render
// failure degrades to an empty string; the otpauth URL still works.
func renderQRDataURI(key *otp.Key) string {
	img, errImage := key.Image(256, 256)
	if errImage != nil {
		return ""
	}
	var buf bytes.Buffer
	if errEncode := png.Encode(&buf, img); errEncode != nil {
		return ""
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

// ConfirmTOTP turns on TOTP once the admin submits a code matching the
// cached enrollment secret.
func (h *MFAHandler) ConfirmTOTP(c *gin.Context) {
	adminID, ok := requireAdminID(c)
	if !ok {
		return
	}

	var body struct {
		Code string `json:"code"`
	}
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	code := strings.TrimSpace(body.Code)
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing code"})
		return
	}

	secret, ok := h.enrollments.lookup(adminID)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "totp setup expired"})
		return
	}
	if !totp.Validate(code, secret) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid code"})
		return
	}

	res := h.db.WithContext(c.Request.Context()).Model(&models.Admin{}).
		Where("id = ?", adminID).
		Updates(map[string]any{"totp_secret": secret, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	h.enrollments.forget(adminID)
	log.WithField("admin_id", adminID).Info("admin enabled totp")
	c.JSON(http.StatusOK, gin.H{"totp_enabled": true})
}

// DisableTOTP clears the stored secret and any in-flight enrollment.
func (h *MFAHandler) DisableTOTP(c *gin.Context) {
	adminID, ok := requireAdminID(c)
	if !ok {
		return
	}

	res := h.db.WithContext(c.Request.Context()).Model(&models.Admin{}).
		Where("id = ?", adminID).
		Updates(map[string]any{"totp_secret": "", "updated_at": time.Now().UTC()})
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	h.enrollments.forget(adminID)
	log.WithField("admin_id", adminID).Info("admin disabled totp")
	c.JSON(http.StatusOK, gin.H{"totp_enabled": false})
}
