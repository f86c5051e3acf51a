package middleware

import (
	"errors"
	"strings"

	"github.com/drawing-gallery/core/internal/pkg/jwt"
	"github.com/drawing-gallery/core/internal/pkg/response"
	"github.com/gin-gonic/gin"
)

const ContextKeyUsername = "username"

// Auth returns a middleware that rejects requests without a valid admin token.
func Auth(signer *jwt.Signer) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := ValidateToken(signer, extractToken(c))
		if err != nil {
			response.Unauthorized(c)
			return
		}
		c.Set(ContextKeyUsername, claims.Username)
		c.Next()
	}
}

// OptionalAuth marks the request as admin if a valid token is present, but does not block it.
func OptionalAuth(signer *jwt.Signer) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, err := ValidateToken(signer, extractToken(c)); err == nil && claims.Username != "" {
			c.Set(ContextKeyUsername, claims.Username)
		}
		c.Next()
	}
}

// ValidateToken verifies a raw Authorization value and returns its claims.
func ValidateToken(signer *jwt.Signer, rawToken string) (*jwt.Claims, error) {
	token := NormalizeToken(rawToken)
	if token == "" {
		return nil, errors.New("token is required")
	}
	return signer.Parse(token)
}

// CurrentUsername extracts the authenticated admin name from context.
func CurrentUsername(c *gin.Context) string {
	v, _ := c.Get(ContextKeyUsername)
	name, _ := v.(string)
	return name
}

// IsAuthenticated returns true if the request has a valid auth token.
func IsAuthenticated(c *gin.Context) bool {
	return CurrentUsername(c) != ""
}

func extractToken(c *gin.Context) string {
	auth := c.GetHeader("Authorization")
	if auth != "" {
		return NormalizeToken(auth)
	}
	return NormalizeToken(c.Query("token"))
}

// NormalizeToken trims spaces and strips optional Bearer prefix.
func NormalizeToken(raw string) string {
	token := strings.TrimSpace(raw)
	if token == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		return strings.TrimSpace(token[7:])
	}
	return token
}
