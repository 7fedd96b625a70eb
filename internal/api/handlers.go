package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/dtnitsch/landing-ops/models"
	"github.com/dtnitsch/landing-ops/pkg/abtest"
	"github.com/gin-gonic/gin"
)

const htmlContentType = "text/html; charset=utf-8"

type eventRequest struct {
	Variant   string `json:"variant" binding:"required"`
	EventName string `json:"event_name" binding:"required"`
}

type approveRequest struct {
	Variant string `json:"variant"`
}

type roundsRequest struct {
	MaxRounds int `json:"max_rounds" binding:"omitempty,min=1,max=6"`
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		fail(c, http.StatusBadRequest, fmt.Sprintf("invalid run id %q", c.Param("id")))
		return 0, false
	}
	return id, true
}

// bindOptional decodes an optional JSON body; an empty body leaves dst as is.
func bindOptional(c *gin.Context, dst any) bool {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		fail(c, http.StatusBadRequest, "invalid request body", gin.H{"detail": err.Error()})
		return false
	}
	return true
}

func runFilter(c *gin.Context) (models.RunFilter, error) {
	f := models.RunFilter{
		Query:   strings.TrimSpace(c.Query("q")),
		Stage:   models.Stage(strings.ToUpper(strings.TrimSpace(c.Query("stage")))),
		Verdict: models.Verdict(strings.ToUpper(strings.TrimSpace(c.Query("verdict")))),
		Sort:    strings.ToLower(strings.TrimSpace(c.DefaultQuery("sort", "updated"))),
	}
	if f.Stage != "" && !f.Stage.Valid() {
		return f, fmt.Errorf("unknown stage %q", f.Stage)
	}
	switch f.Verdict {
	case "", models.VerdictPass, models.VerdictWarn, models.VerdictFail, models.VerdictUnknown:
	default:
		return f, fmt.Errorf("unknown verdict %q", f.Verdict)
	}
	switch f.Sort {
	case "updated", "created", "score":
	default:
		return f, fmt.Errorf("unknown sort %q", f.Sort)
	}
	for _, p := range []struct {
		key string
		dst *int
	}{{"limit", &f.Limit}, {"offset", &f.Offset}} {
		raw := c.Query(p.key)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return f, fmt.Errorf("invalid %s %q", p.key, raw)
		}
		*p.dst = n
	}
	return f, nil
}

func (h *Handlers) HandleCreateRun(c *gin.Context) {
	var req models.NewRun
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body", gin.H{"detail": err.Error()})
		return
	}
	run, err := h.svc.CreateRun(c.Request.Context(), req)
	if err != nil {
		h.failErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "run_id": run.ID, "run": run})
}

func (h *Handlers) HandleListRuns(c *gin.Context) {
	f, err := runFilter(c)
	if err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	items, total, err := h.store.ListRuns(c.Request.Context(), f)
	if err != nil {
		h.failErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "total": total, "items": items})
}

func (h *Handlers) HandleGetRun(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	run, err := h.svc.GetRun(c.Request.Context(), id)
	if err != nil {
		h.failErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "run": run})
}

func (h *Handlers) HandleOptimize(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	run, err := h.svc.Optimize(c.Request.Context(), id)
	if err != nil {
		h.failErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "run_id": id, "optimize": run.Optimize, "qc": run.QC, "stage": run.Stage})
}

func (h *Handlers) HandleEvent(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req eventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body", gin.H{"detail": err.Error()})
		return
	}
	ev, err := h.svc.RecordEvent(c.Request.Context(), id, req.Variant, req.EventName)
	if err != nil {
		h.failErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "event": ev})
}

func (h *Handlers) HandleCTR(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	sum, err := h.svc.Summary(c.Request.Context(), id)
	if err != nil {
		h.failErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "run_id": id, "summary": sum})
}

func (h *Handlers) HandleApprove(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	req := approveRequest{Variant: abtest.ChoiceRecommended}
	if !bindOptional(c, &req) {
		return
	}
	if strings.TrimSpace(req.Variant) == "" {
		req.Variant = abtest.ChoiceRecommended
	}
	run, err := h.svc.Approve(c.Request.Context(), id, req.Variant)
	if err != nil {
		h.failErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "run_id": id, "approved": run.Approved, "stage": run.Stage})
}

func (h *Handlers) HandleAudit(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	out, err := h.svc.Audit(c.Request.Context(), id)
	if err != nil {
		h.failErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "run_id": id, "audit": out.Audit, "stage": out.Run.Stage})
}

func (h *Handlers) HandleFix(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req roundsRequest
	if !bindOptional(c, &req) {
		return
	}
	out, err := h.svc.Fix(c.Request.Context(), id, req.MaxRounds)
	if err != nil {
		h.failErr(c, err)
		return
	}
	res := out.Result
	if out.AlreadyPass() {
		c.JSON(http.StatusOK, gin.H{"ok": true, "run_id": id, "status": "already_pass", "audit": res.Audit})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":      true,
		"run_id":  id,
		"state":   res.State,
		"rounds":  res.Rounds,
		"before":  out.Before,
		"fixed":   res.Page,
		"audit":   res.Audit,
		"diff":    res.Diff,
		"history": res.History,
		"stage":   out.Run.Stage,
	})
}

func (h *Handlers) HandleExport(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	out, err := h.svc.Export(c.Request.Context(), id)
	if err != nil {
		h.failErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":          true,
		"run_id":      id,
		"export":      out.Record,
		"export_path": out.Record.Path,
		"export_url":  fmt.Sprintf("/api/runs/%d/export", id),
		"stage":       out.Run.Stage,
	})
}

func (h *Handlers) HandleAuto(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req roundsRequest
	if !bindOptional(c, &req) {
		return
	}
	out, err := h.svc.Auto(c.Request.Context(), id, req.MaxRounds)
	if err != nil {
		h.failErr(c, err)
		return
	}
	res := out.Fix.Result
	if out.Blocked != nil {
		fail(c, http.StatusBadRequest, "Auto PASS + Export blocked: still not PASS", gin.H{
			"run_id":        id,
			"audit_overall": out.Blocked.Verdict,
			"stage":         out.Blocked.Stage,
			"hint":          out.Blocked.Hint,
			"audit":         res.Audit,
			"diff":          res.Diff,
			"fixed":         res.Page,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":          true,
		"run_id":      id,
		"rounds":      res.Rounds,
		"audit":       res.Audit,
		"diff":        res.Diff,
		"export":      out.Export.Record,
		"export_path": out.Export.Record.Path,
		"export_url":  fmt.Sprintf("/api/runs/%d/export", id),
		"stage":       out.Run().Stage,
	})
}

func (h *Handlers) HandleOpenExport(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	body, err := h.svc.OpenExport(c.Request.Context(), id)
	if err != nil {
		h.failErr(c, err)
		return
	}
	c.Data(http.StatusOK, htmlContentType, body)
}

// HandlePreview renders the current snapshot, or one variant overlay when
// ?variant= is given. Previews are always noindex.
func (h *Handlers) HandlePreview(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	variant := abtest.NormalizeVariant(c.Query("variant"))
	if variant != "" && !abtest.ValidVariant(variant) {
		fail(c, http.StatusBadRequest, "variant must be A or B")
		return
	}
	body, err := h.svc.Preview(c.Request.Context(), id, variant)
	if err != nil {
		h.failErr(c, err)
		return
	}
	c.Header("X-Robots-Tag", "noindex")
	c.Data(http.StatusOK, htmlContentType, body)
}
