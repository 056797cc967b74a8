package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"

	"supchat/internal/db"
	"supchat/internal/models"
	"supchat/internal/utils/logger"
)

var log = logger.New("auth_middleware")

type AuthMiddleware struct {
	jwtSecret string
}

type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

func NewAuthMiddleware(jwtSecret string) *AuthMiddleware {
	return &AuthMiddleware{jwtSecret: jwtSecret}
}

// Middleware authenticates the request and loads the full user row into the
// context. Handlers pass that user down as the explicit acting user; nothing
// below the HTTP layer reads authentication state ambiently.
func (m *AuthMiddleware) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Missing authorization header")
			}

			tokenParts := strings.Split(authHeader, " ")
			if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid authorization header format")
			}

			return m.validateJWT(c, tokenParts[1], next)
		}
	}
}

func (m *AuthMiddleware) validateJWT(c echo.Context, tokenString string, next echo.HandlerFunc) error {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(m.jwtSecret), nil
	})

	if err != nil || !token.Valid {
		log.Error("Error parsing JWT token: %v", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
	}

	// Validate expiration
	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now()) {
		return echo.NewHTTPError(http.StatusUnauthorized, "Token has expired")
	}

	// Verify auth transaction
	transaction := &models.AuthTransaction{}
	if err := db.DB.Where("user_id = ? AND token = ?",
		claims.UserID, tokenString).First(transaction).Error; err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Auth transaction not found")
	}

	// Verify user exists
	user := &models.User{}
	if err := db.DB.Where("id = ? AND is_deleted = ?", claims.UserID, false).First(user).Error; err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not found")
	}

	// Set context values
	c.Set("user", user)
	c.Set("userID", user.ID)
	c.Set("email", user.Email)
	c.Set("role", string(user.Role))

	return next(c)
}

// GetUser returns the authenticated user loaded by the middleware.
func GetUser(c echo.Context) *models.User {
	if user, ok := c.Get("user").(*models.User); ok {
		return user
	}
	return nil
}

// GetUserID Helper functions to get values from context
func GetUserID(c echo.Context) string {
	if id, ok := c.Get("userID").(string); ok {
		return id
	}
	return ""
}

func GetUserRole(c echo.Context) string {
	if role, ok := c.Get("role").(string); ok {
		return role
	}
	return ""
}
