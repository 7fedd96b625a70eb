package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"github.com/dtnitsch/landing-ops/models"
	"github.com/dtnitsch/landing-ops/pkg/db"
	"github.com/dtnitsch/landing-ops/pkg/metrics"
	"github.com/dtnitsch/landing-ops/pkg/pipeline"
	"github.com/dtnitsch/landing-ops/pkg/storage"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testToken = "s3cret"

func setupTestRouter(t *testing.T) (*gin.Engine, *db.DB) {
	t.Helper()
	store, err := db.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New()
	svc, err := pipeline.New(pipeline.Options{
		Store:   store,
		Sink:    storage.NewLocal(t.TempDir()),
		Metrics: m,
		Logger:  logger,
		BaseURL: "https://example.com",
	})
	require.NoError(t, err)

	return NewRouter(Options{
		Service:    svc,
		Store:      store,
		AdminToken: testToken,
		Metrics:    m,
		Logger:     logger,
	}), store
}

func do(t *testing.T, router *gin.Engine, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func thinRun() models.NewRun {
	return models.NewRun{
		PrimaryKeyword:     "보습 크림",
		SupportingKeywords: []string{"세라마이드", "민감 피부"},
		Intent:             models.IntentPurchase,
		BodyHTML:           "<h2>소개</h2><p>짧은 본문입니다.</p>",
	}
}

func createRun(t *testing.T, router *gin.Engine, in models.NewRun) string {
	t.Helper()
	w := do(t, router, http.MethodPost, "/api/runs", in)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id, ok := decodeBody(t, w)["run_id"].(float64)
	require.True(t, ok)
	return strconv.FormatInt(int64(id), 10)
}

func TestHealthzAndRequestID(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := do(t, router, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))

	w = do(t, router, http.MethodGet, "/healthz", nil, requestIDHeader, "req-123")
	assert.Equal(t, "req-123", w.Header().Get(requestIDHeader))
}

func TestRunCRUD(t *testing.T) {
	router, _ := setupTestRouter(t)
	id := createRun(t, router, thinRun())

	w := do(t, router, http.MethodGet, "/api/runs/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	run := decodeBody(t, w)["run"].(map[string]any)
	assert.Equal(t, "DRAFT", run["stage"])
	assert.Equal(t, "보습 크림", run["primary_keyword"])

	w = do(t, router, http.MethodGet, "/api/runs?q="+url.QueryEscape("보습")+"&stage=draft", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decodeBody(t, w)["total"])

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"missing run", http.MethodGet, "/api/runs/999", nil, http.StatusNotFound},
		{"bad id", http.MethodGet, "/api/runs/abc", nil, http.StatusBadRequest},
		{"bad stage filter", http.MethodGet, "/api/runs?stage=LIVE", nil, http.StatusBadRequest},
		{"bad buy url", http.MethodPost, "/api/runs", map[string]any{"buy_url": "not a url"}, http.StatusBadRequest},
		{"unknown route", http.MethodGet, "/api/nope", nil, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, router, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
			assert.Equal(t, false, decodeBody(t, w)["ok"])
		})
	}
}

func TestExportGateOverHTTP(t *testing.T) {
	router, _ := setupTestRouter(t)
	id := createRun(t, router, thinRun())

	w := do(t, router, http.MethodPost, "/api/runs/"+id+"/export", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "UNKNOWN", body["audit_overall"])
	assert.Equal(t, "DRAFT", body["stage"])
	assert.NotEmpty(t, body["hint"])

	w = do(t, router, http.MethodGet, "/api/runs/"+id+"/export", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, router, http.MethodPost, "/api/runs/"+id+"/audit", nil)
	require.Equal(t, http.StatusOK, w.Code)
	audit := decodeBody(t, w)["audit"].(map[string]any)
	assert.Equal(t, "FAIL", audit["overall"])

	w = do(t, router, http.MethodPost, "/api/runs/"+id+"/fix", map[string]any{"max_rounds": 9})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, router, http.MethodPost, "/api/runs/"+id+"/fix", map[string]any{"max_rounds": 3})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body = decodeBody(t, w)
	assert.Equal(t, "CONVERGED", body["state"])
	assert.NotNil(t, body["diff"])

	w = do(t, router, http.MethodPost, "/api/runs/"+id+"/fix", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "already_pass", decodeBody(t, w)["status"])

	w = do(t, router, http.MethodPost, "/api/runs/"+id+"/export", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "/api/runs/"+id+"/export", decodeBody(t, w)["export_url"])

	w = do(t, router, http.MethodGet, "/api/runs/"+id+"/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "https://example.com/r/"+id)
	assert.NotContains(t, w.Body.String(), "noindex")
}

func TestPreview(t *testing.T) {
	router, _ := setupTestRouter(t)
	id := createRun(t, router, thinRun())

	w := do(t, router, http.MethodGet, "/r/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "noindex", w.Header().Get("X-Robots-Tag"))
	assert.Contains(t, w.Body.String(), "noindex")

	w = do(t, router, http.MethodGet, "/r/"+id+"?variant=C", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = do(t, router, http.MethodGet, "/r/404", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAutoBlocked(t *testing.T) {
	router, _ := setupTestRouter(t)
	in := thinRun()
	in.BodyHTML += "<p>완치를 약속합니다.</p>"
	id := createRun(t, router, in)

	w := do(t, router, http.MethodPost, "/api/runs/"+id+"/auto", map[string]any{"max_rounds": 2})
	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, false, body["ok"])
	assert.Equal(t, "FAIL", body["audit_overall"])
	assert.NotNil(t, body["audit"])
	assert.NotNil(t, body["fixed"])
}

func TestAutoPasses(t *testing.T) {
	router, _ := setupTestRouter(t)
	id := createRun(t, router, thinRun())

	w := do(t, router, http.MethodPost, "/api/runs/"+id+"/auto", map[string]any{"max_rounds": 3})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decodeBody(t, w)
	assert.Equal(t, "EXPORTED", body["stage"])
	assert.NotEmpty(t, body["export_path"])
}

func TestABRoutes(t *testing.T) {
	router, _ := setupTestRouter(t)
	id := createRun(t, router, thinRun())

	w := do(t, router, http.MethodPost, "/api/runs/"+id+"/optimize", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "AB_READY", decodeBody(t, w)["stage"])

	w = do(t, router, http.MethodPost, "/api/runs/"+id+"/events", map[string]any{"variant": "C", "event_name": "view"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = do(t, router, http.MethodPost, "/api/runs/"+id+"/events", map[string]any{"variant": "A"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = do(t, router, http.MethodPost, "/api/runs/404/events", map[string]any{"variant": "A", "event_name": "view"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, router, http.MethodPost, "/api/runs/"+id+"/events", map[string]any{"variant": "a", "event_name": "view"})
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, router, http.MethodGet, "/api/runs/"+id+"/ctr", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotNil(t, decodeBody(t, w)["summary"])

	// one view cannot support a recommendation
	w = do(t, router, http.MethodPost, "/api/runs/"+id+"/approve", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeBody(t, w)
	assert.NotEmpty(t, body["hint"])
	assert.NotNil(t, body["summary"])

	w = do(t, router, http.MethodPost, "/api/runs/"+id+"/approve", map[string]any{"variant": "B"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body = decodeBody(t, w)
	assert.Equal(t, "APPROVED", body["stage"])
	assert.Equal(t, "B", body["approved"].(map[string]any)["variant"])
}

func TestAdminToken(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := do(t, router, http.MethodGet, "/api/admin/summary", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = do(t, router, http.MethodGet, "/api/admin/summary", nil, adminTokenHeader, "wrong")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, router, http.MethodGet, "/api/admin/summary", nil, adminTokenHeader, testToken)
	assert.Equal(t, http.StatusOK, w.Code)
	w = do(t, router, http.MethodGet, "/api/admin/health", nil, adminTokenHeader, testToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decodeBody(t, w)["rubric_version"])
}

func TestAdminGuardOpenWithoutToken(t *testing.T) {
	router := gin.New()
	router.GET("/x", adminGuard(""), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	w := do(t, router, http.MethodGet, "/x", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestAdminRunLifecycle(t *testing.T) {
	router, _ := setupTestRouter(t)
	id := createRun(t, router, thinRun())
	auth := []string{adminTokenHeader, testToken}

	do(t, router, http.MethodPost, "/api/runs/"+id+"/events", map[string]any{"variant": "A", "event_name": "view"})

	w := do(t, router, http.MethodGet, "/api/admin/runs/"+id, nil, auth...)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "UNKNOWN", body["verdict"])
	assert.Len(t, body["logs"], 1)

	w = do(t, router, http.MethodGet, "/api/admin/runs/"+id+"/logs?limit=0", nil, auth...)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, router, http.MethodPost, "/api/admin/runs/"+id+"/events/reset", nil, auth...)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decodeBody(t, w)["deleted"])

	w = do(t, router, http.MethodDelete, "/api/admin/runs/"+id, nil, auth...)
	require.Equal(t, http.StatusOK, w.Code)
	w = do(t, router, http.MethodDelete, "/api/admin/runs/"+id, nil, auth...)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = do(t, router, http.MethodGet, "/api/runs/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminBulk(t *testing.T) {
	router, _ := setupTestRouter(t)
	id := createRun(t, router, thinRun())
	auth := []string{adminTokenHeader, testToken}

	w := do(t, router, http.MethodPost, "/api/admin/bulk", map[string]any{"action": "publish", "run_ids": []int{1}}, auth...)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = do(t, router, http.MethodPost, "/api/admin/bulk", map[string]any{"action": "AUDIT", "run_ids": []int{}}, auth...)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, router, http.MethodPost, "/api/admin/bulk", map[string]any{"action": "audit", "run_ids": []any{json.Number(id), 404}}, auth...)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	m := decodeBody(t, w)["manifest"].(map[string]any)
	assert.EqualValues(t, 2, m["total"])
	assert.EqualValues(t, 1, m["ok"])
	assert.EqualValues(t, 1, m["failed"])
}

func TestMetricsEndpoint(t *testing.T) {
	router, _ := setupTestRouter(t)
	do(t, router, http.MethodGet, "/healthz", nil)

	w := do(t, router, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `lops_http_requests_total{code="200",method="GET",route="/healthz"}`)
}
