package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-xview/internal/app"
	"github.com/goliatone/go-xview/internal/config"
	"github.com/goliatone/go-xview/pkg/testsupport"
)

func newRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	root := testsupport.ViewTree(t, map[string]string{
		"Home/index.tpl":  `<h1>{{ Model.Value("controller") }}/{{ Model.Value("action") }}</h1>`,
		"Users/list.tpl":  "---\noutput:\n  method: text\n  media-type: text/plain\n---\n{{ Model.Value(\"method\") }} {{ Model.Value(\"path\") }}",
		"Shared/info.tpl": `shared {{ Model.Value("controller") }}`,
	})
	cfg, err := config.Default()
	require.NoError(t, err)
	cfg.Views.AppRoot = root
	cfg.Server.Metrics = true

	a, err := app.Build(testsupport.Context(), cfg, logr.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return NewRouter(a)
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestRoutesRenderViews(t *testing.T) {
	r := newRouter(t)

	rec := get(r, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "<h1>Home/index</h1>", rec.Body.String())
	assert.Equal(t, "text/html", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))

	rec = get(r, "/Users/list")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/plain", rec.Header().Get("Content-Type"))
	assert.Equal(t, "GET /Users/list", rec.Body.String())

	rec = get(r, "/Users/info")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "shared Users", rec.Body.String())

	assert.Equal(t, http.StatusNotFound, get(r, "/Users/missing").Code)
	assert.Equal(t, http.StatusNotFound, get(r, "/Users/a/b").Code)
}

func TestHealthAndMetrics(t *testing.T) {
	r := newRouter(t)
	require.Equal(t, http.StatusOK, get(r, "/Home/index").Code)

	rec := get(r, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, float64(3), body["plugins"])
	assert.Equal(t, float64(1), body["programs"])

	rec = get(r, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "xview_render_renders_total"))
	assert.True(t, strings.Contains(rec.Body.String(), "xview_transform_cache_compiles_total 1"))
}
