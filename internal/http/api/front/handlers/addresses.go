package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jjgames/storefront/internal/models"
	"gorm.io/gorm"
)

// AddressHandler handles the user's saved shipping addresses.
type AddressHandler struct {
	db *gorm.DB
}

// NewAddressHandler constructs an AddressHandler.
func NewAddressHandler(db *gorm.DB) *AddressHandler {
	return &AddressHandler{db: db}
}

// addressRequest defines the request body for creating or updating an address.
type addressRequest struct {
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	Line1     string `json:"line1"`
	City      string `json:"city"`
	State     string `json:"state"`
	Pincode   string `json:"pincode"`
	Country   string `json:"country"`
	IsDefault bool   `json:"is_default"`
}

// validate trims the fields and reports the first missing required one.
func (r *addressRequest) validate() string {
	r.Name = strings.TrimSpace(r.Name)
	r.Phone = strings.TrimSpace(r.Phone)
	r.Line1 = strings.TrimSpace(r.Line1)
	r.City = strings.TrimSpace(r.City)
	r.State = strings.TrimSpace(r.State)
	r.Pincode = strings.TrimSpace(r.Pincode)
	r.Country = strings.TrimSpace(r.Country)

	switch {
	case r.Name == "":
		return "name is required"
	case r.Phone == "":
		return "phone is required"
	case r.Line1 == "":
		return "line1 is required"
	case r.City == "":
		return "city is required"
	case r.State == "":
		return "state is required"
	case r.Pincode == "":
		return "pincode is required"
	}
	return ""
}

// List returns the user's addresses, default first.
func (h *AddressHandler) List(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var addresses []models.Address
	if errFind := h.db.WithContext(c.Request.Context()).
		Where("user_id = ?", userID).
		Order("is_default DESC, created_at DESC").
		Find(&addresses).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	rendered := make([]gin.H, 0, len(addresses))
	for _, address := range addresses {
		rendered = append(rendered, addressResponse(address))
	}
	c.JSON(http.StatusOK, gin.H{"addresses": rendered})
}

// Create saves a new shipping address. Marking it default clears the previous
// default.
func (h *AddressHandler) Create(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var body addressRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if msg := body.validate(); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}
	if body.Country == "" {
		body.Country = "India"
	}

	address := models.Address{
		UserID:    userID,
		Name:      body.Name,
		Phone:     body.Phone,
		Line1:     body.Line1,
		City:      body.City,
		State:     body.State,
		Pincode:   body.Pincode,
		Country:   body.Country,
		IsDefault: body.IsDefault,
	}

	errTx := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if body.IsDefault {
			if errClear := tx.Model(&models.Address{}).
				Where("user_id = ?", userID).
				Update("is_default", false).Error; errClear != nil {
				return errClear
			}
		}
		return tx.Create(&address).Error
	})
	if errTx != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create address failed"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"address": addressResponse(address)})
}

// Update edits one of the user's addresses.
func (h *AddressHandler) Update(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	addressID, errParse := strconv.ParseUint(c.Param("id"), 10, 64)
	if errParse != nil || addressID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid address id"})
		return
	}

	var body addressRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if msg := body.validate(); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	var address models.Address
	if errFind := h.db.WithContext(c.Request.Context()).
		Where("id = ? AND user_id = ?", addressID, userID).
		First(&address).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "address not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	updates := map[string]any{
		"name":       body.Name,
		"phone":      body.Phone,
		"line1":      body.Line1,
		"city":       body.City,
		"state":      body.State,
		"pincode":    body.Pincode,
		"is_default": body.IsDefault,
	}
	if body.Country != "" {
		updates["country"] = body.Country
	}

	errTx := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if body.IsDefault {
			if errClear := tx.Model(&models.Address{}).
				Where("user_id = ? AND id <> ?", userID, address.ID).
				Update("is_default", false).Error; errClear != nil {
				return errClear
			}
		}
		return tx.Model(&address).Updates(updates).Error
	})
	if errTx != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update address failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"address": addressResponse(address)})
}

// Delete removes one of the user's addresses.
func (h *AddressHandler) Delete(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	addressID, errParse := strconv.ParseUint(c.Param("id"), 10, 64)
	if errParse != nil || addressID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid address id"})
		return
	}

	result := h.db.WithContext(c.Request.Context()).
		Where("id = ? AND user_id = ?", addressID, userID).
		Delete(&models.Address{})
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete address failed"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "address not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "address deleted"})
}

// addressResponse renders one saved address.
func addressResponse(address models.Address) gin.H {
	return gin.H{
		"id":         address.ID,
		"name":       address.Name,
		"phone":      address.Phone,
		"line1":      address.Line1,
		"city":       address.City,
		"state":      address.State,
		"pincode":    address.Pincode,
		"country":    address.Country,
		"is_default": address.IsDefault,
		"created_at": address.CreatedAt,
	}
}
