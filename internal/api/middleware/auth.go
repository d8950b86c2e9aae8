package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"carmarket/api/internal/auth"
	"carmarket/api/internal/services"
)

const (
	// ContextKeyAccountID holds the authenticated account id (hex).
	ContextKeyAccountID = "accountID"
	// ContextKeyAccountKind holds auth.AccountKind.
	ContextKeyAccountKind = "accountKind"
	// ContextKeyIsAdmin holds the key for admin status in Gin context.
	ContextKeyIsAdmin = "isAdmin"
)

// tokenFrom reads a Bearer token, falling back to the session cookie.
func tokenFrom(c *gin.Context, cookieName string) (string, bool) {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
			return "", false
		}
		return parts[1], true
	}
	if cookie, err := c.Cookie(cookieName); err == nil && cookie != "" {
		return cookie, true
	}
	return "", false
}

// AuthMiddleware validates the JWT and stores the caller in the Gin context.
func AuthMiddleware(jwtSecret, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := tokenFrom(c, cookieName)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
			return
		}

		claims, err := auth.ValidateJWT(tokenString, jwtSecret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid or expired token"})
			return
		}

		c.Set(ContextKeyAccountID, claims.AccountID)
		c.Set(ContextKeyAccountKind, claims.Kind)
		c.Set(ContextKeyIsAdmin, claims.IsAdmin)

		c.Next()
	}
}

// AdminMiddleware requires an admin caller. Assumes AuthMiddleware runs first.
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !c.GetBool(ContextKeyIsAdmin) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "Administrator privileges required"})
			return
		}
		c.Next()
	}
}

// Actor returns the authenticated caller, or a zero Actor when unauthenticated.
func Actor(c *gin.Context) services.Actor {
	return services.Actor{
		ID:      c.GetString(ContextKeyAccountID),
		IsAdmin: c.GetBool(ContextKeyIsAdmin),
	}
}

// AccountKind returns the kind of the authenticated account.
func AccountKind(c *gin.Context) auth.AccountKind {
	kind, _ := c.Get(ContextKeyAccountKind)
	k, _ := kind.(auth.AccountKind)
	return k
}
