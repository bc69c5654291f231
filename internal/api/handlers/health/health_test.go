package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

type fakeAI struct{}

func (fakeAI) Enabled() bool        { return true }
func (fakeAI) ProviderName() string { return "openrouter" }
func (fakeAI) ModelName(vision bool) string {
	if vision {
		return "vision-model"
	}
	return "text-model"
}

func newRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/health", h.HealthCheck)
	r.GET("/ready", h.ReadinessCheck)
	r.GET("/live", h.LivenessCheck)
	return r
}

func get(r *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestHealthCheck(t *testing.T) {
	r := newRouter(NewHandler("1.2.3", "memory", fakePinger{}, fakeAI{}))

	w := get(r, "/health")
	require.Equal(t, http.StatusOK, w.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "1.2.3", resp.Version)
	assert.Equal(t, "memory", resp.Storage)
	require.NotNil(t, resp.AI)
	assert.True(t, resp.AI.Enabled)
	assert.Equal(t, "vision-model", resp.AI.VisionModel)
	assert.Contains(t, resp.Runtime, "goroutines")
}

func TestHealthCheck_NoAI(t *testing.T) {
	r := newRouter(NewHandler("1.0.0", "memory", nil, nil))

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(get(r, "/health").Body.Bytes(), &resp))
	require.NotNil(t, resp.AI)
	assert.False(t, resp.AI.Enabled)
}

func TestReadinessCheck(t *testing.T) {
	assert.Equal(t, http.StatusOK, get(newRouter(NewHandler("1", "postgres", fakePinger{}, nil)), "/ready").Code)

	down := newRouter(NewHandler("1", "postgres", fakePinger{err: errors.New("connection refused")}, nil))
	w := get(down, "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "unavailable")

	assert.Equal(t, http.StatusOK, get(down, "/live").Code)
}
