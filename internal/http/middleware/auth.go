package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Monir-Ruet/authentication/internal/token"
)

const sessionClaimsKey = "sessionClaims"

// Auth validates the Authorization header and attaches claims.
type Auth struct {
	Issuer *token.Issuer
}

// ValidateJWT ensures the request carries a valid bearer token.
func (m *Auth) ValidateJWT(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if header == "" {
		c.Header("WWW-Authenticate", "Bearer")
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_token", "error_description": "Authorization header required."})
		return
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_token", "error_description": "Bearer token required."})
		return
	}
	claims, err := m.Issuer.Validate(strings.TrimSpace(parts[1]))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_token", "error_description": "Invalid access token."})
		return
	}
	c.Set(sessionClaimsKey, claims)
	c.Next()
}

// GetSessionClaims exposes the validated claims to handlers.
func GetSessionClaims(c *gin.Context) (*token.SessionClaims, bool) {
	value, ok := c.Get(sessionClaimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := value.(*token.SessionClaims)
	return claims, ok
}
