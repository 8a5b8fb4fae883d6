package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	cronjob "github.com/mapsketch/mapsketch-backend/internal/cleanup/cron"
	"github.com/mapsketch/mapsketch-backend/internal/cleanup/domain"
)

// Handler exposes a manual cleanup trigger for test environments. The
// endpoint is forbidden in production; the only production trigger is the
// schedule.
type Handler struct {
	runner cronjob.Runner
	env    string
}

func NewHandler(runner cronjob.Runner, env string) *Handler {
	return &Handler{runner: runner, env: env}
}

func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.POST("/cleanup/run", h.run)
}

func (h *Handler) run(c *gin.Context) {
	if h.env == "production" {
		c.JSON(http.StatusForbidden, gin.H{"ok": false, "error": "manual cleanup is disabled in production"})
		return
	}

	res, err := h.runner.Execute(c.Request.Context())
	if errors.Is(err, domain.ErrLockHeld) {
		c.JSON(http.StatusConflict, gin.H{"ok": false, "error": "a cleanup run is already active"})
		return
	}
	if err != nil && res == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":                 res.Success,
		"deletion_record_id": res.DeletionRecordID,
		"canvases_processed": res.CanvasesProcessed,
		"errors":             res.Errors,
	})
}
