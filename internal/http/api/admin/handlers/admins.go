package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	dbutil "github.com/jjgames/storefront/internal/db"
	"github.com/jjgames/storefront/internal/http/api/admin/permissions"
	"github.com/jjgames/storefront/internal/models"
	"github.com/jjgames/storefront/internal/security"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AdminHandler manages back-office staff accounts.
type AdminHandler struct {
	db *gorm.DB
}

// NewAdminHandler constructs an AdminHandler.
func NewAdminHandler(db *gorm.DB) *AdminHandler {
	return &AdminHandler{db: db}
}

// adminAccount is the wire shape for one staff account. The password hash
// and raw TOTP secret never leave the server.
type adminAccount struct {
	ID           uint64    `json:"id"`
	Username     string    `json:"username"`
	Active       bool      `json:"active"`
	IsSuperAdmin bool      `json:"is_super_admin"`
	Permissions  []string  `json:"permissions"`
	TOTPEnabled  bool      `json:"totp_enabled"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func newAdminAccount(admin models.Admin) adminAccount {
	return adminAccount{
		ID:           admin.ID,
		Username:     admin.Username,
		Active:       admin.Active,
		IsSuperAdmin: admin.IsSuperAdmin,
		Permissions:  permissions.ParsePermissions(admin.Permissions),
		TOTPEnabled:  strings.TrimSpace(admin.TOTPSecret) != "",
		CreatedAt:    admin.CreatedAt,
		UpdatedAt:    admin.UpdatedAt,
	}
}

// adminIDParam parses the :id route parameter or writes a 400.
func adminIDParam(c *gin.Context) (uint64, bool) {
	id, errParse := strconv.ParseUint(c.Param("id"), 10, 64)
	if errParse != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

// encodePermissionGrants normalizes, validates and marshals a permission
// list, writing the error response itself on failure.
func encodePermissionGrants(c *gin.Context, grants []string) (datatypes.JSON, bool) {
	normalized := permissions.NormalizePermissions(grants)
	if errValidate := permissions.ValidatePermissions(normalized); errValidate != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid permissions"})
		return nil, false
	}
	encoded, errMarshal := permissions.MarshalPermissions(normalized)
	if errMarshal != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "marshal permissions failed"})
		return nil, false
	}
	return datatypes.JSON(encoded), true
}

// Create provisions a staff account. New accounts start active.
func (h *AdminHandler) Create(c *gin.Context) {
	var body struct {
		Username     string   `json:"username"`
		Password     string   `json:"password"`
		Permissions  []string `json:"permissions"`
		IsSuperAdmin bool     `json:"is_super_admin"`
	}
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	username := strings.TrimSpace(body.Username)
	if username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing username"})
		return
	}
	password := strings.TrimSpace(body.Password)
	if len(password) < 8 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "password must be at least 8 characters"})
		return
	}
	grants, ok := encodePermissionGrants(c, body.Permissions)
	if !ok {
		return
	}

	hash, errHash := security.HashPassword(password)
	if errHash != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "hash password failed"})
		return
	}

	admin := models.Admin{
		Username:     username,
		Password:     hash,
		Active:       true,
		IsSuperAdmin: body.IsSuperAdmin,
		Permissions:  grants,
	}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&admin).Error; errCreate != nil {
		if dbutil.IsDuplicateKey(errCreate) {
			c.JSON(http.StatusConflict, gin.H{"error": "username already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create admin failed"})
		return
	}
	c.JSON(http.StatusCreated, newAdminAccount(admin))
}

// List returns staff accounts, newest first, optionally filtered by a
// case-insensitive username fragment.
func (h *AdminHandler) List(c *gin.Context) {
	q := h.db.WithContext(c.Request.Context()).Model(&models.Admin{})
	if fragment := strings.TrimSpace(c.Query("username")); fragment != "" {
		pattern := dbutil.NormalizeLikePattern(h.db, "%"+fragment+"%")
		q = q.Where(dbutil.CaseInsensitiveLikeExpr(h.db, "username"), pattern)
	}

	var rows []models.Admin
	if errFind := q.Order("created_at DESC").Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list admins failed"})
		return
	}
	accounts := make([]adminAccount, 0, len(rows))
	for _, row := range rows {
		accounts = append(accounts, newAdminAccount(row))
	}
	c.JSON(http.StatusOK, gin.H{"admins": accounts, "count": len(accounts)})
}

// Get returns one staff account.
func (h *AdminHandler) Get(c *gin.Context) {
	id, ok := adminIDParam(c)
	if !ok {
		return
	}
	var admin models.Admin
	if errFind := h.db.WithContext(c.Request.Context()).First(&admin, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, newAdminAccount(admin))
}

// Update edits username, permission grants or the super-admin flag. Absent
// fields are left alone.
func (h *AdminHandler) Update(c *gin.Context) {
	id, ok := adminIDParam(c)
	if !ok {
		return
	}
	var body struct {
		Username     *string   `json:"username"`
		Permissions  *[]string `json:"permissions"`
		IsSuperAdmin *bool     `json:"is_super_admin"`
	}
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	updates := map[string]any{}
	if body.Username != nil {
		username := strings.TrimSpace(*body.Username)
		if username == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "username cannot be empty"})
			return
		}
		updates["username"] = username
	}
	if body.Permissions != nil {
		grants, okGrants := encodePermissionGrants(c, *body.Permissions)
		if !okGrants {
			return
		}
		updates["permissions"] = grants
	}
	if body.IsSuperAdmin != nil {
		updates["is_super_admin"] = *body.IsSuperAdmin
	}
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nothing to update"})
		return
	}
	updates["updated_at"] = time.Now().UTC()

	res := h.db.WithContext(c.Request.Context()).Model(&models.Admin{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		if dbutil.IsDuplicateKey(res.Error) {
			c.JSON(http.StatusConflict, gin.H{"error": "username already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Delete removes a staff account. Admins cannot delete themselves; that
// path goes through another super admin.
func (h *AdminHandler) Delete(c *gin.Context) {
	id, ok := adminIDParam(c)
	if !ok {
		return
	}
	if selfID, okSelf := contextAdminID(c); okSelf && selfID == id {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot delete your own account"})
		return
	}
	res := h.db.WithContext(c.Request.Context()).Delete(&models.Admin{}, id)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

// Disable locks a staff account out. Self-disable is rejected so the last
// active admin cannot strand the back office.
func (h *AdminHandler) Disable(c *gin.Context) {
	if id, ok := adminIDParam(c); ok {
		if selfID, okSelf := contextAdminID(c); okSelf && selfID == id {
			c.JSON(http.StatusBadRequest, gin.H{"error": "cannot disable your own account"})
			return
		}
		h.setActive(c, id, false)
	}
}

// Enable reactivates a staff account.
func (h *AdminHandler) Enable(c *gin.Context) {
	if id, ok := adminIDParam(c); ok {
		h.setActive(c, id, true)
	}
}

func (h *AdminHandler) setActive(c *gin.Context, id uint64, active bool) {
	res := h.db.WithContext(c.Request.Context()).Model(&models.Admin{}).
		Where("id = ?", id).
		Updates(map[string]any{"active": active, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// ChangePassword sets a new password. Changing your own password requires
// the current one; a super admin resetting someone else's does not.
func (h *AdminHandler) ChangePassword(c *gin.Context) {
	id, ok := adminIDParam(c)
	if !ok {
		return
	}
	var body struct {
		OldPassword string `json:"old_password"`
		NewPassword string `json:"new_password"`
	}
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	newPassword := strings.TrimSpace(body.NewPassword)
	if len(newPassword) < 8 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "password must be at least 8 characters"})
		return
	}

	if selfID, okSelf := contextAdminID(c); okSelf && selfID == id {
		var admin models.Admin
		if errFind := h.db.WithContext(c.Request.Context()).Select("id", "password").First(&admin, id).Error; errFind != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		if !security.CheckPassword(admin.Password, strings.TrimSpace(body.OldPassword)) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
	}

	hash, errHash := security.HashPassword(newPassword)
	if errHash != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "hash password failed"})
		return
	}
	res := h.db.WithContext(c.Request.Context()).Model(&models.Admin{}).
		Where("id = ?", id).
		Updates(map[string]any{"password": hash, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "change password failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
