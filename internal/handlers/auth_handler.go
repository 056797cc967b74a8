package handlers

import (
	"net/http"
	"os"
	"strings"
	"time"

	"supchat/internal/events"
	"supchat/internal/models"
	"supchat/internal/utils"
	"supchat/internal/utils/logger"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthHandler struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAuthHandler(db *gorm.DB) *AuthHandler {
	return &AuthHandler{db: db, log: logger.New("AuthHandler")}
}

type RegisterRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ResetPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type VerifyResetCodeRequest struct {
	Code     string `json:"code" validate:"required"`
	Password string `json:"new_password" validate:"required,min=8"`
}

// Register creates a new account. Every new account gets the global membre
// role; workspace and channel rights are granted per workspace afterwards.
func (h *AuthHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	// check if user already exists
	if _, err := models.GetUserByEmail(strings.ToLower(req.Email), h.db); err == nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "User already exists"})
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to hash password"})
	}

	user := models.User{
		Email:     strings.ToLower(req.Email),
		Password:  string(hashedPassword),
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      models.RoleMembre,
	}

	if err := h.db.Create(&user).Error; err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Email already exists"})
	}

	events.Emit("users.created", &user)

	return c.JSON(http.StatusCreated, map[string]string{"message": "User registered successfully"})
}

// Login handles user login by validating credentials, generating a JWT token, and returning it.
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	user, err := models.GetUserByEmail(strings.ToLower(req.Email), h.db)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid credentials"})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid credentials"})
	}

	token, err := utils.GenerateJWT(*user)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to generate token"})
	}
	refreshToken, err := utils.GenerateRefreshToken(*user)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to generate token"})
	}

	authtransaction := &models.AuthTransaction{
		UserID:    user.ID,
		Token:     token,
		Refresh:   refreshToken,
		IPAddress: c.RealIP(),
		UserAgent: c.Request().UserAgent(),
		ExpiresAt: time.Now().Add(24 * 7 * time.Hour),
	}

	if err := h.db.Create(authtransaction).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to create auth transaction"})
	}

	return c.JSON(http.StatusOK, map[string]string{"token": token, "refresh_token": refreshToken})
}

// RequestPasswordReset generates a reset code, stores it and emits the event
// the mailer listens on.
func (h *AuthHandler) RequestPasswordReset(c echo.Context) error {
	tx := h.db.Begin()
	if tx.Error != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to start transaction"})
	}

	var req ResetPasswordRequest
	if err := c.Bind(&req); err != nil {
		tx.Rollback()
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	if err := c.Validate(req); err != nil {
		tx.Rollback()
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	user, err := models.GetUserByEmail(strings.ToLower(req.Email), h.db)
	if err != nil {
		tx.Rollback()
		return c.JSON(http.StatusOK, map[string]string{"message": "If the email exists, a reset code will be sent"})
	}

	code, err := utils.GenerateRandomString(10)
	if err != nil {
		tx.Rollback()
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to generate reset code"})
	}

	reset := models.PasswordReset{
		UserID:    user.ID,
		Code:      code,
		ExpiresAt: time.Now().Add(15 * time.Minute),
	}

	if err := tx.Create(&reset).Error; err != nil {
		tx.Rollback()
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to create reset code"})
	}

	if err := tx.Commit().Error; err != nil {
		tx.Rollback()
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to commit transaction"})
	}

	reset.User = user

	events.Emit("password.reset", &reset)

	return c.JSON(http.StatusOK, map[string]string{"message": "If the email exists, a reset code will be sent"})
}

// VerifyResetCode verifies a reset code, updates the password and marks the
// code as used.
func (h *AuthHandler) VerifyResetCode(c echo.Context) error {
	var req VerifyResetCodeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	var reset models.PasswordReset
	if err := h.db.Where("code = ? AND used = ? AND expires_at > ?",
		req.Code, false, time.Now()).First(&reset).Error; err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid or expired reset code"})
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to hash password"})
	}

	var user models.User
	if err := h.db.Where("id = ?", reset.UserID).First(&user).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to get user"})
	}

	h.db.Model(&user).Update("password", string(hashedPassword))
	h.db.Model(&reset).Update("used", true)

	return c.JSON(http.StatusOK, map[string]string{"message": "Password reset successfully"})
}

// ListUsers returns a list of all users (global admin only)
func (h *AuthHandler) ListUsers(c echo.Context) error {
	if !requireGlobalAdmin(c) {
		return c.JSON(http.StatusForbidden, map[string]string{"error": "Forbidden"})
	}
	var users []models.User
	if err := h.db.Where("is_deleted = ?", false).Find(&users).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch users"})
	}
	return c.JSON(http.StatusOK, users)
}

// GetUser returns details of a specific user (global admin only)
func (h *AuthHandler) GetUser(c echo.Context) error {
	if !requireGlobalAdmin(c) {
		return c.JSON(http.StatusForbidden, map[string]string{"error": "Forbidden"})
	}
	id := c.Param("id")
	var user models.User
	if err := h.db.Where("id = ?", id).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "User not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch user"})
	}
	return c.JSON(http.StatusOK, user)
}

// UpdateUser updates a user's details (global admin only)
func (h *AuthHandler) UpdateUser(c echo.Context) error {
	if !requireGlobalAdmin(c) {
		return c.JSON(http.StatusForbidden, map[string]string{"error": "Forbidden"})
	}
	id := c.Param("id")
	var user models.User
	if err := h.db.Where("id = ?", id).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "User not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch user"})
	}

	// Only update allowed fields
	var updateData struct {
		FirstName string      `json:"first_name"`
		LastName  string      `json:"last_name"`
		Role      models.Role `json:"role"`
	}

	if err := c.Bind(&updateData); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid input"})
	}

	if !models.IsValidRole(updateData.Role) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid role"})
	}

	user.FirstName = updateData.FirstName
	user.LastName = updateData.LastName
	user.Role = updateData.Role

	if err := h.db.Save(&user).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to update user"})
	}

	return c.JSON(http.StatusOK, user)
}

// DeleteUser deletes a user (global admin only)
func (h *AuthHandler) DeleteUser(c echo.Context) error {
	if !requireGlobalAdmin(c) {
		return c.JSON(http.StatusForbidden, map[string]string{"error": "Forbidden"})
	}
	id := c.Param("id")
	var user models.User
	if err := h.db.Where("id = ?", id).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "User not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch user"})
	}

	if err := h.db.Model(&user).Update("is_deleted", true).Update("deleted_at", time.Now()).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to delete user"})
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "User deleted successfully"})
}

// RefreshToken refreshes a user's access token using their refresh token
func (h *AuthHandler) RefreshToken(c echo.Context) error {
	var input struct {
		RefreshToken string `json:"refresh_token"`
	}

	if err := c.Bind(&input); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid input"})
	}

	refreshToken := input.RefreshToken

	// validate refresh token
	_, err := utils.ValidateRefreshToken(refreshToken, os.Getenv("JWT_SECRET"))
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid refresh token"})
	}

	// check in db if refresh token is valid
	var authTransaction models.AuthTransaction
	if err := h.db.Where("refresh = ? AND expires_at > ?", refreshToken, time.Now()).First(&authTransaction).Error; err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid refresh token"})
	}

	var user models.User
	if err := h.db.Where("id = ?", authTransaction.UserID).First(&user).Error; err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "User not found"})
	}

	// generate new access token
	accessToken, err := utils.GenerateJWT(user)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to generate access token"})
	}

	authTransaction.Token = accessToken
	if err := h.db.Save(&authTransaction).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to save access token"})
	}

	return c.JSON(http.StatusOK, map[string]string{"token": accessToken, "exp": "24h"})
}

// GetMe returns the current user
func (h *AuthHandler) GetMe(c echo.Context) error {
	userId := c.Get("userID").(string)

	var user models.User
	if err := h.db.Where("id = ?", userId).Preload("Permissions").First(&user).Error; err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "User not found"})
	}
	return c.JSON(http.StatusOK, user)
}

func requireGlobalAdmin(c echo.Context) bool {
	user, ok := c.Get("user").(*models.User)
	return ok && user.IsGlobalAdmin()
}
