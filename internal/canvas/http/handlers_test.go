package http

import (
	"net/http"
	"net/http/httptest"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/mapsketch/mapsketch-backend/internal/canvas/service"
)

func newValidationRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	// Repositories are never reached: everything below fails validation first.
	h := New(service.NewCanvasService(nil, nil), service.NewTileService(nil, nil, nil, nil))
	t.Cleanup(h.Close)
	h.Register(r.Group("/api/v1/canvases"))
	return r
}

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	r.ServeHTTP(w, req)
	return w
}

func TestCreateCanvasRejectsInvalidInput(t *testing.T) {
	r := newValidationRouter(t)

	assert.Equal(t, http.StatusBadRequest,
		do(r, http.MethodPost, "/api/v1/canvases", `not json`).Code)
	assert.Equal(t, http.StatusBadRequest,
		do(r, http.MethodPost, "/api/v1/canvases", `{"lat": 95, "lng": 0, "zoom": 10}`).Code)
	assert.Equal(t, http.StatusBadRequest,
		do(r, http.MethodPost, "/api/v1/canvases", `{"lat": 0, "lng": 0, "zoom": 0}`).Code)
}

func TestTileRoutesRejectMalformedCoordinates(t *testing.T) {
	r := newValidationRouter(t)

	// Non-numeric path parameters.
	assert.Equal(t, http.StatusBadRequest,
		do(r, http.MethodGet, "/api/v1/canvases/somecanvasid00000001/tiles/a/b/c", "").Code)

	// Numeric but out-of-range zoom fails domain validation.
	assert.Equal(t, http.StatusBadRequest,
		do(r, http.MethodGet, "/api/v1/canvases/somecanvasid00000001/tiles/25/1/1", "").Code)

	// Malformed canvas token.
	assert.Equal(t, http.StatusBadRequest,
		do(r, http.MethodGet, "/api/v1/canvases/bad!id/tiles/15/1/1", "").Code)

	// Missing area query parameters.
	assert.Equal(t, http.StatusBadRequest,
		do(r, http.MethodGet, "/api/v1/canvases/somecanvasid00000001/tiles?z=15", "").Code)
}

func TestSaveTilesRejectsEmptyBatch(t *testing.T) {
	r := newValidationRouter(t)

	w := do(r, http.MethodPost, "/api/v1/canvases/somecanvasid00000001/tiles", `{"tiles": []}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSaveLimiterThrottles(t *testing.T) {
	sl := newSaveLimiter(1, 2)
	t.Cleanup(sl.Close)

	assert.True(t, sl.allow("canvas-a"))
	assert.True(t, sl.allow("canvas-a"))
	assert.False(t, sl.allow("canvas-a"), "burst exhausted")
	assert.True(t, sl.allow("canvas-b"), "limits are per canvas")
}

func TestSaveLimiterMiddlewareReturns429(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	sl := newSaveLimiter(0.001, 1)
	t.Cleanup(sl.Close)
	r.POST("/c/:canvas_id/tiles", sl.Middleware(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/c/x/tiles", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, do(r, http.MethodPost, "/c/x/tiles", "").Code)
}

func TestSaveLimiterCloseStopsPruner(t *testing.T) {
	before := runtime.NumGoroutine()
	sl := newSaveLimiter(1, 1)
	sl.Close()

	deadline := time.After(2 * time.Second)
	for runtime.NumGoroutine() > before {
		select {
		case <-deadline:
			t.Fatal("pruner goroutine still running after Close")
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}
}
