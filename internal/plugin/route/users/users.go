// Package users mounts account endpoints: join, auth check, whoami and
// password rotation.
package users

import (
	"errors"
	"net/http"

	"github.com/chirino/spaces-sync-service/internal/profile"
	registrystore "github.com/chirino/spaces-sync-service/internal/registry/store"
	"github.com/chirino/spaces-sync-service/internal/security"
	"github.com/gin-gonic/gin"
)

// MountRoutes mounts the user routes. Join is unauthenticated; everything
// else sits behind auth.
func MountRoutes(r *gin.Engine, svc *profile.Service, auth gin.HandlerFunc) {
	r.POST("/users", func(c *gin.Context) {
		join(c, svc)
	})

	g := r.Group("/", auth)
	// a cheap endpoint for clients to verify their credentials still work
	g.POST("/auth", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	g.GET("/users/me", func(c *gin.Context) {
		whoami(c, svc)
	})
	g.PUT("/users/me/password", func(c *gin.Context) {
		changePassword(c, svc)
	})
}

func join(c *gin.Context, svc *profile.Service) {
	var req struct {
		Username string         `json:"username" binding:"required"`
		Auth     string         `json:"auth"     binding:"required"`
		Data     map[string]any `json:"data"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "validation_error", "error": err.Error()})
		return
	}
	item, err := svc.Join(c.Request.Context(), req.Username, req.Auth, req.Data)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile.CleanUser(item))
}

func whoami(c *gin.Context, svc *profile.Service) {
	item, err := svc.UserItem(c.Request.Context(), security.GetUserID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	if item == nil {
		c.JSON(http.StatusNotFound, gin.H{"code": "not_found", "error": "user not found"})
		return
	}
	c.JSON(http.StatusOK, profile.CleanUser(item))
}

// changePassword swaps the caller's auth token and re-encrypted profile
// blob, and notifies their other devices through the ledger.
func changePassword(c *gin.Context, svc *profile.Service) {
	var req struct {
		Auth string         `json:"auth" binding:"required"`
		Data map[string]any `json:"data"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "validation_error", "error": err.Error()})
		return
	}
	syncIDs, err := svc.ChangePassword(c.Request.Context(), security.GetUserID(c), req.Auth, req.Data)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "sync_ids": syncIDs})
}

func handleError(c *gin.Context, err error) {
	var notFound *registrystore.NotFoundError
	var validation *registrystore.ValidationError
	var conflict *registrystore.ConflictError
	var forbidden *registrystore.ForbiddenError

	switch {
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"code": "not_found", "error": err.Error()})
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"code": "validation_error", "error": err.Error()})
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &forbidden):
		c.JSON(http.StatusForbidden, gin.H{"code": "forbidden", "error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
