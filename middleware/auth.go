package middleware

import (
	"log"
	"net/http"
	"strings"

	"incident-service/config"

	"github.com/gin-gonic/gin"
)

// TokenValidator checks a session token and returns the identity it
// carries.
type TokenValidator interface {
	ValidateToken(token string) (name, email string, err error)
}

// AuthMiddleware validates Bearer tokens and stores the identity in
// the request context. Requests without a valid token are rejected.
func AuthMiddleware(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
			c.Abort()
			return
		}

		tokenString := extractToken(authHeader)
		if tokenString == "" {
			log.Printf("WARNING: Invalid authorization format from %s", c.ClientIP())
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			c.Abort()
			return
		}

		name, email, err := validator.ValidateToken(tokenString)
		if err != nil {
			log.Printf("WARNING: Invalid token from %s: %v", c.ClientIP(), err)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			c.Abort()
			return
		}

		c.Set("name", name)
		c.Set("email", email)
		c.Next()
	}
}

// AdminRequired gates admin endpoints on allow-list membership. The
// check runs server-side on every request: the is_admin flag handed to
// clients at login is a routing hint, not the enforcement point.
func AdminRequired(admins *config.AllowList) gin.HandlerFunc {
	return func(c *gin.Context) {
		email := c.GetString("email")
		if !admins.Contains(email) {
			log.Printf("WARNING: Admin endpoint denied for %s from %s", email, c.ClientIP())
			c.JSON(http.StatusForbidden, gin.H{"error": "administrator access required"})
			c.Abort()
			return
		}
		c.Next()
	}
}

func extractToken(authHeader string) string {
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return ""
	}
	return parts[1]
}

// CORSMiddleware handles Cross-Origin Resource Sharing
func CORSMiddleware() gin.HandlerFunc {
	return gin.HandlerFunc(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Header("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})
}

// SecurityHeaders adds security-related HTTP headers
func SecurityHeaders() gin.HandlerFunc {
	return gin.HandlerFunc(func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Next()
	})
}
