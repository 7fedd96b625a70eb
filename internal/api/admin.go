package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

const defaultLogLimit = 50

type bulkRequest struct {
	Action    string  `json:"action" binding:"required"`
	RunIDs    []int64 `json:"run_ids" binding:"required,min=1,max=500"`
	MaxRounds int     `json:"max_rounds" binding:"omitempty,min=1,max=6"`
}

func (h *Handlers) HandleAdminHealth(c *gin.Context) {
	if err := h.store.Health(c.Request.Context()); err != nil {
		h.logger.Error("store health check failed", "error", err)
		fail(c, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	r := h.svc.Rubric()
	c.JSON(http.StatusOK, gin.H{"ok": true, "store": "ok", "rubric_version": r.Version})
}

func (h *Handlers) HandleAdminSummary(c *gin.Context) {
	sum, err := h.store.Summary(c.Request.Context())
	if err != nil {
		h.failErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "summary": sum})
}

// HandleAdminRun returns the run with its A/B summary and recent job logs.
func (h *Handlers) HandleAdminRun(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	run, err := h.svc.GetRun(ctx, id)
	if err != nil {
		h.failErr(c, err)
		return
	}
	ab, err := h.svc.Summary(ctx, id)
	if err != nil {
		h.failErr(c, err)
		return
	}
	logs, err := h.store.ListJobLogs(ctx, id, defaultLogLimit)
	if err != nil {
		h.failErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "run": run, "ab": ab, "logs": logs, "verdict": run.Verdict()})
}

func (h *Handlers) HandleAdminLogs(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	limit := defaultLogLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			fail(c, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	ctx := c.Request.Context()
	if _, err := h.svc.GetRun(ctx, id); err != nil {
		h.failErr(c, err)
		return
	}
	logs, err := h.store.ListJobLogs(ctx, id, limit)
	if err != nil {
		h.failErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "run_id": id, "logs": logs})
}

func (h *Handlers) HandleAdminResetEvents(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if _, err := h.svc.GetRun(ctx, id); err != nil {
		h.failErr(c, err)
		return
	}
	n, err := h.store.ResetEvents(ctx, id)
	if err != nil {
		h.failErr(c, err)
		return
	}
	h.logger.Info("events reset", "run_id", id, "deleted", n, "request_id", c.GetString(requestIDKey))
	c.JSON(http.StatusOK, gin.H{"ok": true, "run_id": id, "deleted": n})
}

func (h *Handlers) HandleAdminDelete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.store.DeleteRun(c.Request.Context(), id); err != nil {
		h.failErr(c, err)
		return
	}
	h.logger.Info("run deleted", "run_id", id, "request_id", c.GetString(requestIDKey))
	c.JSON(http.StatusOK, gin.H{"ok": true, "run_id": id, "deleted": true})
}

func (h *Handlers) HandleBulk(c *gin.Context) {
	var req bulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body", gin.H{"detail": err.Error()})
		return
	}
	m, err := h.svc.Bulk(c.Request.Context(), req.Action, req.RunIDs, req.MaxRounds)
	if err != nil {
		h.failErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "manifest": m})
}
