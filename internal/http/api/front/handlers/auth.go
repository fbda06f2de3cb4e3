package handlers

import (
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jjgames/storefront/internal/config"
	"github.com/jjgames/storefront/internal/email"
	"github.com/jjgames/storefront/internal/models"
	"github.com/jjgames/storefront/internal/security"
	"github.com/jjgames/storefront/internal/settings"
	"github.com/jjgames/storefront/internal/wallet"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// otpValidity bounds how long an email verification code stays usable.
const otpValidity = 10 * time.Minute

// AuthHandler handles user authentication endpoints.
type AuthHandler struct {
	db      *gorm.DB
	jwtCfg  config.JWTConfig
	wallets *wallet.Service
	mail    email.Sender
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(db *gorm.DB, jwtCfg config.JWTConfig, wallets *wallet.Service, mail email.Sender) *AuthHandler {
	return &AuthHandler{db: db, jwtCfg: jwtCfg, wallets: wallets, mail: mail}
}

// registerRequest defines the request body for user registration.
type registerRequest struct {
	Name         string `json:"name"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	ReferralCode string `json:"referral_code"`
}

// Register creates a new user account with its wallet, grants the signup
// bonus, and credits the referrer when a valid referral code accompanies the
// signup. All of it commits atomically; the verification mail goes out after.
func (h *AuthHandler) Register(c *gin.Context) {
	var body registerRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	username := strings.TrimSpace(body.Username)
	if username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing username"})
		return
	}
	emailAddr := strings.ToLower(strings.TrimSpace(body.Email))
	if emailAddr == "" || !strings.Contains(emailAddr, "@") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid email"})
		return
	}
	password := strings.TrimSpace(body.Password)
	if len(password) < 6 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "password must be at least 6 characters"})
		return
	}

	var exists models.User
	if errCheck := h.db.WithContext(c.Request.Context()).
		Where("username = ? OR email = ?", username, emailAddr).
		First(&exists).Error; errCheck == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "username or email already exists"})
		return
	} else if !errors.Is(errCheck, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	var referrerWallet *models.Wallet
	if code := strings.TrimSpace(body.ReferralCode); code != "" {
		found, ok, errValidate := h.wallets.ValidateReferralCode(c.Request.Context(), code)
		if errValidate != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
			return
		}
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid referral code"})
			return
		}
		referrerWallet = &found
	}

	hash, errHash := security.HashPassword(password)
	if errHash != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "hash password failed"})
		return
	}

	otp := generateOTP()
	otpExpiry := time.Now().UTC().Add(otpValidity)

	var user models.User
	var signupBonus int64
	errTx := wallet.Transact(c.Request.Context(), h.db, func(tx *gorm.DB) error {
		user = models.User{
			Name:      strings.TrimSpace(body.Name),
			Username:  username,
			Email:     emailAddr,
			Password:  hash,
			OTP:       otp,
			OTPExpiry: &otpExpiry,
		}
		if errCreate := tx.Create(&user).Error; errCreate != nil {
			return errCreate
		}

		var referredBy *uint64
		if referrerWallet != nil {
			referredBy = &referrerWallet.UserID
		}
		w, errWallet := h.wallets.CreateWalletTx(tx, user.ID, username, referredBy)
		if errWallet != nil {
			return errWallet
		}

		bonus, errBonus := h.wallets.GrantSignupBonusTx(tx, w.ID)
		if errBonus != nil {
			return errBonus
		}
		signupBonus = bonus

		if referrerWallet != nil {
			if errReferral := h.wallets.GrantReferralBonusTx(tx, referrerWallet.ID, user.ID, username); errReferral != nil {
				return errReferral
			}
		}
		return nil
	})
	if errTx != nil {
		respondWalletError(c, errTx)
		return
	}

	if errMail := h.mail.SendOTP(user.Email, user.Name, otp); errMail != nil {
		log.WithError(errMail).Warn("verification mail failed")
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":            user.ID,
		"username":      user.Username,
		"email":         user.Email,
		"points_earned": signupBonus,
		"message":       "account created, check your email for the verification code",
	})
}

// verifyOTPRequest defines the request body for email verification.
type verifyOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

// VerifyOTP confirms the emailed verification code.
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var body verifyOTPRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	emailAddr := strings.ToLower(strings.TrimSpace(body.Email))
	code := strings.TrimSpace(body.OTP)
	if emailAddr == "" || code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and otp are required"})
		return
	}

	var user models.User
	if errFind := h.db.WithContext(c.Request.Context()).Where("email = ?", emailAddr).First(&user).Error; errFind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid verification code"})
		return
	}
	if user.IsVerified {
		c.JSON(http.StatusOK, gin.H{"message": "already verified"})
		return
	}
	if user.OTP == "" || user.OTP != code || user.OTPExpiry == nil || time.Now().UTC().After(*user.OTPExpiry) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid verification code"})
		return
	}

	if errUpdate := h.db.WithContext(c.Request.Context()).Model(&user).Updates(map[string]any{
		"is_verified": true,
		"otp":         "",
		"otp_expiry":  nil,
	}).Error; errUpdate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "verification failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "email verified"})
}

// loginRequest defines the request body for login.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login authenticates a user by username or email and issues a JWT. Expired
// blocks are lifted lazily here.
func (h *AuthHandler) Login(c *gin.Context) {
	var body loginRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	username := strings.TrimSpace(body.Username)
	password := strings.TrimSpace(body.Password)
	if username == "" || password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing username or password"})
		return
	}

	var user models.User
	if errFind := h.db.WithContext(c.Request.Context()).
		Where("username = ? OR email = ?", username, strings.ToLower(username)).
		First(&user).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	if !security.CheckPassword(user.Password, password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	now := time.Now().UTC()
	if user.IsBlocked && user.BlockExpiry != nil && now.After(*user.BlockExpiry) {
		if errUnblock := h.db.WithContext(c.Request.Context()).Model(&user).Updates(map[string]any{
			"is_blocked":   false,
			"block_expiry": nil,
		}).Error; errUnblock == nil {
			user.IsBlocked = false
			user.BlockExpiry = nil
		}
	}
	if user.BlockActive(now) {
		message := "your account has been blocked, please contact support"
		if user.BlockExpiry != nil {
			message = fmt.Sprintf("your account is blocked until %s", user.BlockExpiry.Format("2006-01-02"))
		}
		c.JSON(http.StatusForbidden, gin.H{"error": message})
		return
	}
	if !user.IsVerified {
		c.JSON(http.StatusForbidden, gin.H{"error": "please verify your email first"})
		return
	}

	token, errToken := security.GenerateToken(h.jwtCfg.Secret, user.ID, user.Username, user.Email, h.jwtCfg.UserExpiry())
	if errToken != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token generation failed"})
		return
	}

	var currentPoints int64
	if w, errWallet := h.wallets.Balance(c.Request.Context(), user.ID); errWallet == nil {
		currentPoints = w.CurrentPoints
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user": gin.H{
			"id":       user.ID,
			"name":     user.Name,
			"username": user.Username,
			"email":    user.Email,
			"points":   currentPoints,
		},
	})
}

// ValidateReferral checks whether a referral code belongs to a wallet.
func (h *AuthHandler) ValidateReferral(c *gin.Context) {
	code := strings.TrimSpace(c.Param("code"))
	if len(code) < 5 {
		c.JSON(http.StatusOK, gin.H{"valid": false, "message": "invalid referral code format"})
		return
	}

	w, ok, errValidate := h.wallets.ValidateReferralCode(c.Request.Context(), code)
	if errValidate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	if !ok {
		c.JSON(http.StatusOK, gin.H{"valid": false, "message": "referral code not found"})
		return
	}

	var referrer models.User
	if errFind := h.db.WithContext(c.Request.Context()).Select("username").First(&referrer, w.UserID).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	cfg := settings.CurrentPointsConfig()
	c.JSON(http.StatusOK, gin.H{
		"valid":   true,
		"message": fmt.Sprintf("code belongs to %s! you'll both get bonus points", referrer.Username),
		"bonus":   cfg.ReferralBonus,
	})
}

// generateOTP builds a 6-digit verification code.
func generateOTP() string {
	return fmt.Sprintf("%06d", rand.Intn(1000000))
}
