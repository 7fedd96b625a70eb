package api

import (
	"errors"
	"net/http"

	"github.com/dtnitsch/landing-ops/models"
	"github.com/dtnitsch/landing-ops/pkg/abtest"
	"github.com/dtnitsch/landing-ops/pkg/pipeline"
	"github.com/dtnitsch/landing-ops/pkg/storage"
	"github.com/gin-gonic/gin"
)

// fail writes the {ok:false, error, ...extra} envelope.
func fail(c *gin.Context, status int, msg string, extra ...gin.H) {
	body := gin.H{"ok": false, "error": msg}
	for _, e := range extra {
		for k, v := range e {
			body[k] = v
		}
	}
	if id := c.GetString(requestIDKey); id != "" {
		body["request_id"] = id
	}
	c.JSON(status, body)
}

// failErr maps service errors to status codes. Unknown errors are logged
// and reported as 500 without their text.
func (h *Handlers) failErr(c *gin.Context, err error) {
	var blocked *pipeline.ExportBlockedError
	var noRec *abtest.NoRecommendationError
	switch {
	case errors.Is(err, models.ErrRunNotFound):
		fail(c, http.StatusNotFound, err.Error())
	case errors.As(err, &blocked):
		fail(c, http.StatusBadRequest, "Export requires PASS", gin.H{
			"run_id":        blocked.RunID,
			"audit_overall": blocked.Verdict,
			"stage":         blocked.Stage,
			"hint":          blocked.Hint,
		})
	case errors.As(err, &noRec):
		fail(c, http.StatusBadRequest, noRec.Error(), gin.H{"hint": noRec.Hint, "summary": noRec.Summary})
	case errors.Is(err, pipeline.ErrInvalidInput):
		fail(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, pipeline.ErrNoExport), errors.Is(err, storage.ErrNotFound):
		fail(c, http.StatusNotFound, err.Error())
	default:
		h.logger.Error("request failed", "request_id", c.GetString(requestIDKey), "path", c.Request.URL.Path, "error", err)
		fail(c, http.StatusInternalServerError, "internal error")
	}
}
