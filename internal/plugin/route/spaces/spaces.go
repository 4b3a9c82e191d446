// Package spaces mounts the space collaboration endpoints: invites and
// member management. Space content itself flows through the sync endpoints.
package spaces

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/chirino/spaces-sync-service/internal/model"
	"github.com/chirino/spaces-sync-service/internal/profile"
	registrystore "github.com/chirino/spaces-sync-service/internal/registry/store"
	"github.com/chirino/spaces-sync-service/internal/security"
	"github.com/gin-gonic/gin"
)

// MountRoutes mounts the space routes.
func MountRoutes(r *gin.Engine, svc *profile.Service, auth gin.HandlerFunc) {
	g := r.Group("/spaces", auth)

	g.POST("/:space_id/invites", func(c *gin.Context) {
		sendInvite(c, svc)
	})
	g.POST("/:space_id/invites/:invite_id/accept", func(c *gin.Context) {
		acceptInvite(c, svc)
	})
	g.PUT("/:space_id/invites/:invite_id", func(c *gin.Context) {
		updateInvite(c, svc)
	})
	g.DELETE("/:space_id/invites/:invite_id", func(c *gin.Context) {
		deleteInvite(c, svc)
	})
	g.PUT("/:space_id/members/:user_id", func(c *gin.Context) {
		updateMember(c, svc)
	})
	g.DELETE("/:space_id/members/:user_id", func(c *gin.Context) {
		deleteMember(c, svc)
	})
}

func sendInvite(c *gin.Context, svc *profile.Service) {
	userID := security.GetUserID(c)
	spaceID := c.Param("space_id")
	var data map[string]any
	if err := c.ShouldBindJSON(&data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "validation_error", "error": err.Error()})
		return
	}
	outcome, err := svc.SendInvite(c.Request.Context(), userID, spaceID, data)
	if err != nil {
		handleError(c, err)
		return
	}
	item := profile.CleanInvite(outcome.Item)
	item["sync_ids"] = outcome.SyncIDs
	c.JSON(http.StatusOK, item)
}

func acceptInvite(c *gin.Context, svc *profile.Service) {
	userID := security.GetUserID(c)
	spaceItem, syncIDs, err := svc.AcceptInvite(c.Request.Context(), userID, c.Param("space_id"), c.Param("invite_id"))
	if err != nil {
		handleError(c, err)
		return
	}
	spaceItem["sync_ids"] = syncIDs
	c.JSON(http.StatusOK, spaceItem)
}

func updateInvite(c *gin.Context, svc *profile.Service) {
	userID := security.GetUserID(c)
	var req struct {
		Role model.Role `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "validation_error", "error": err.Error()})
		return
	}
	item, syncIDs, err := svc.UpdateInvite(c.Request.Context(), userID, c.Param("space_id"), c.Param("invite_id"), req.Role)
	if err != nil {
		handleError(c, err)
		return
	}
	item = profile.CleanInvite(item)
	item["sync_ids"] = syncIDs
	c.JSON(http.StatusOK, item)
}

func deleteInvite(c *gin.Context, svc *profile.Service) {
	userID := security.GetUserID(c)
	syncIDs, err := svc.DeleteInvite(c.Request.Context(), userID, c.Param("space_id"), c.Param("invite_id"))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true, "sync_ids": syncIDs})
}

func updateMember(c *gin.Context, svc *profile.Service) {
	userID := security.GetUserID(c)
	memberUserID, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"code": "not_found", "error": "member not found"})
		return
	}
	var req struct {
		Role model.Role `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "validation_error", "error": err.Error()})
		return
	}
	member, syncIDs, err := svc.UpdateMember(c.Request.Context(), userID, c.Param("space_id"), memberUserID, req.Role)
	if err != nil {
		handleError(c, err)
		return
	}
	member["sync_ids"] = syncIDs
	c.JSON(http.StatusOK, member)
}

func deleteMember(c *gin.Context, svc *profile.Service) {
	userID := security.GetUserID(c)
	memberUserID, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"code": "not_found", "error": "member not found"})
		return
	}
	syncIDs, err := svc.DeleteMember(c.Request.Context(), userID, c.Param("space_id"), memberUserID)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true, "sync_ids": syncIDs})
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
