// Package syncapi mounts the sync endpoints: long-poll partial sync, full
// profile sync, and the bulk incoming applier.
package syncapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/chirino/spaces-sync-service/internal/model"
	registrystore "github.com/chirino/spaces-sync-service/internal/registry/store"
	"github.com/chirino/spaces-sync-service/internal/security"
	syncengine "github.com/chirino/spaces-sync-service/internal/sync"
	"github.com/gin-gonic/gin"
)

type syncResponse struct {
	Records []model.SyncRecord `json:"records"`
	SyncID  int64              `json:"sync_id"`
}

// MountRoutes mounts the sync routes.
func MountRoutes(r *gin.Engine, engine *syncengine.Engine, auth gin.HandlerFunc) {
	g := r.Group("/", auth)

	g.GET("/sync", func(c *gin.Context) {
		partialSync(c, engine)
	})
	g.GET("/sync/full", func(c *gin.Context) {
		fullSync(c, engine)
	})
	g.POST("/sync", func(c *gin.Context) {
		bulkSync(c, engine)
	})
}

// partialSync streams the caller's profile changes after their cursor. By
// default the request long-polls; `immediate=1` (or any `type` other than
// "poll") returns whatever is pending right away.
func partialSync(c *gin.Context, engine *syncengine.Engine) {
	userID := security.GetUserID(c)
	raw, ok := c.GetQuery("sync_id")
	if raw == "" || !ok {
		c.JSON(http.StatusBadRequest, gin.H{"code": "validation_error", "error": "missing `sync_id` var"})
		return
	}
	sinceID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "validation_error", "error": "`sync_id` must be an integer"})
		return
	}
	poll := c.Query("immediate") != "1"
	if typ := c.Query("type"); typ != "" {
		poll = typ == "poll"
	}

	records, latest, err := engine.SyncFrom(c.Request.Context(), userID, sinceID, poll)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, syncResponse{Records: records, SyncID: latest})
}

func fullSync(c *gin.Context, engine *syncengine.Engine) {
	userID := security.GetUserID(c)
	result, err := engine.FullSync(c.Request.Context(), userID)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// bulkSync applies a batch of incoming mutations in order. The response
// carries per-item successes and failures; the HTTP status is 200 either
// way, since partial failure is the normal mode here.
func bulkSync(c *gin.Context, engine *syncengine.Engine) {
	userID := security.GetUserID(c)
	var items []syncengine.Item
	if err := c.ShouldBindJSON(&items); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "validation_error", "error": err.Error()})
		return
	}
	client := c.GetHeader("X-Sync-Client")
	result, err := engine.BulkApply(c.Request.Context(), userID, items, client)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
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
