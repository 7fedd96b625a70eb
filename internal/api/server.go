// Package api exposes the pipeline over HTTP with gin. Public routes serve
// the run lifecycle and previews; the admin group is gated by the
// X-Admin-Token header when a token is configured.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/dtnitsch/landing-ops/models"
	"github.com/dtnitsch/landing-ops/pkg/metrics"
	"github.com/dtnitsch/landing-ops/pkg/pipeline"
	"github.com/gin-gonic/gin"
)

// AdminStore is the store surface the admin routes read and prune.
type AdminStore interface {
	ListRuns(ctx context.Context, f models.RunFilter) ([]models.RunSummary, int, error)
	DeleteRun(ctx context.Context, id int64) error
	ResetEvents(ctx context.Context, id int64) (int64, error)
	ListJobLogs(ctx context.Context, runID int64, limit int) ([]models.JobLog, error)
	Summary(ctx context.Context) (models.StoreSummary, error)
	Health(ctx context.Context) error
}

// Options wires the router.
type Options struct {
	Service    *pipeline.Service
	Store      AdminStore
	AdminToken string
	Metrics    *metrics.Metrics
	Logger     *slog.Logger
}

type Handlers struct {
	svc    *pipeline.Service
	store  AdminStore
	logger *slog.Logger
}

// NewRouter builds the engine with middleware and every route registered.
func NewRouter(opts Options) *gin.Engine {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	h := &Handlers{svc: opts.Service, store: opts.Store, logger: opts.Logger}

	r := gin.New()
	r.Use(gin.Recovery(), requestID(), requestLogger(opts.Logger, opts.Metrics))
	r.NoRoute(func(c *gin.Context) {
		fail(c, http.StatusNotFound, "not found")
	})

	r.GET("/healthz", h.HandleHealthz)
	r.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	r.GET("/r/:id", h.HandlePreview)

	RegisterRoutes(r.Group("/api"), h)
	RegisterAdminRoutes(r.Group("/api/admin", adminGuard(opts.AdminToken)), h)
	return r
}

// RegisterRoutes mounts the run lifecycle under rg.
func RegisterRoutes(rg *gin.RouterGroup, h *Handlers) {
	runs := rg.Group("/runs")
	{
		runs.POST("", h.HandleCreateRun)
		runs.GET("", h.HandleListRuns)
		runs.GET("/:id", h.HandleGetRun)

		// A/B
		runs.POST("/:id/optimize", h.HandleOptimize)
		runs.POST("/:id/events", h.HandleEvent)
		runs.GET("/:id/ctr", h.HandleCTR)
		runs.POST("/:id/approve", h.HandleApprove)

		// Audit, fix and export
		runs.POST("/:id/audit", h.HandleAudit)
		runs.POST("/:id/fix", h.HandleFix)
		runs.POST("/:id/export", h.HandleExport)
		runs.POST("/:id/auto", h.HandleAuto)
		runs.GET("/:id/export", h.HandleOpenExport)
	}
}

// RegisterAdminRoutes mounts the admin views under rg.
func RegisterAdminRoutes(rg *gin.RouterGroup, h *Handlers) {
	rg.GET("/health", h.HandleAdminHealth)
	rg.GET("/summary", h.HandleAdminSummary)
	rg.GET("/runs", h.HandleListRuns)
	rg.GET("/runs/:id", h.HandleAdminRun)
	rg.GET("/runs/:id/logs", h.HandleAdminLogs)
	rg.POST("/runs/:id/events/reset", h.HandleAdminResetEvents)
	rg.DELETE("/runs/:id", h.HandleAdminDelete)
	rg.POST("/bulk", h.HandleBulk)
}

func (h *Handlers) HandleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
