package security

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/chirino/spaces-sync-service/internal/config"
	"github.com/chirino/spaces-sync-service/internal/model"
	registrystore "github.com/chirino/spaces-sync-service/internal/registry/store"
	"github.com/gin-gonic/gin"
)

const (
	// ContextKeyUserID is the gin context key for the authenticated user ID.
	ContextKeyUserID = "userID"
	// ContextKeyUserEmail is the gin context key for the authenticated user's email.
	ContextKeyUserEmail = "userEmail"
)

// UserLookup resolves an auth token to a user. Satisfied by the store.
type UserLookup interface {
	UserByToken(ctx context.Context, token string) (*model.User, error)
	UserByID(ctx context.Context, id int64) (*model.User, error)
}

// GetUserID returns the authenticated user id set by AuthMiddleware.
func GetUserID(c *gin.Context) int64 {
	return c.GetInt64(ContextKeyUserID)
}

// GetUserEmail returns the authenticated user's email set by AuthMiddleware.
func GetUserEmail(c *gin.Context) string {
	return c.GetString(ContextKeyUserEmail)
}

// AuthMiddleware authenticates requests with a Bearer token resolved against
// the user table. In testing mode an X-User-ID header is accepted instead so
// tests can impersonate users without minting tokens.
func AuthMiddleware(cfg *config.Config, users UserLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg != nil && cfg.Mode == config.ModeTesting {
			if raw := c.GetHeader("X-User-ID"); raw != "" {
				id, err := strconv.ParseInt(raw, 10, 64)
				if err != nil {
					c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid X-User-ID header"})
					return
				}
				user, err := users.UserByID(c.Request.Context(), id)
				if err != nil || user == nil {
					c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unknown user"})
					return
				}
				c.Set(ContextKeyUserID, user.ID)
				c.Set(ContextKeyUserEmail, user.Email)
				c.Next()
				return
			}
		}

		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing Authorization header"})
			return
		}
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid Authorization header; expected Bearer token"})
			return
		}
		user, err := users.UserByToken(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "auth lookup failed"})
			return
		}
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(ContextKeyUserID, user.ID)
		c.Set(ContextKeyUserEmail, user.Email)
		c.Next()
	}
}

var _ UserLookup = (registrystore.Store)(nil)
