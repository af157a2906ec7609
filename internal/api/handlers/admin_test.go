package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/nexconsult/nif-lookup/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cacheRouter(cache *fakeCache) *gin.Engine {
	h := NewCacheHandler(cache, slugKey, quietLogger)
	r := gin.New()
	r.GET("/api/v1/cache/stats", h.GetStats)
	r.DELETE("/api/v1/cache/clear", h.Clear)
	r.DELETE("/api/v1/cache/:name", h.Delete)
	return r
}

func TestCache_Stats(t *testing.T) {
	router := cacheRouter(newFakeCache(map[string]models.CachedNIF{"nif:acme": {NIF: "509123457"}}))

	rec := perform(t, router, http.MethodGet, "/api/v1/cache/stats", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(1), body["stats"].(map[string]interface{})["size"])
	assert.Equal(t, "healthy", body["health"].(map[string]interface{})["status"])
}

func TestCache_StatsError(t *testing.T) {
	cache := newFakeCache(nil)
	cache.statsErr = errors.New("redis down")

	rec := perform(t, cacheRouter(cache), http.MethodGet, "/api/v1/cache/stats", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "CACHE_STATS_ERROR", decodeError(t, rec.Body.Bytes()).Code)
}

func TestCache_Clear(t *testing.T) {
	cache := newFakeCache(map[string]models.CachedNIF{"nif:acme": {NIF: "509123457"}})

	rec := perform(t, cacheRouter(cache), http.MethodDelete, "/api/v1/cache/clear", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, cache.cleared)
}

func TestCache_DeleteByCompanyName(t *testing.T) {
	cache := newFakeCache(map[string]models.CachedNIF{"nif:acme-lda": {NIF: "509123457"}})
	router := cacheRouter(cache)

	rec := perform(t, router, http.MethodDelete, "/api/v1/cache/"+url.PathEscape("Acme Lda"), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, cache.entries, "nif:acme-lda")

	rec = perform(t, router, http.MethodDelete, "/api/v1/cache/"+url.PathEscape("Acme Lda"), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NAME_NOT_IN_CACHE", decodeError(t, rec.Body.Bytes()).Code)

	rec = perform(t, router, http.MethodDelete, "/api/v1/cache/%20", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func browserRouter(browsers *fakeBrowsers) *gin.Engine {
	h := NewBrowserHandler(browsers, quietLogger)
	r := gin.New()
	r.GET("/api/v1/browser/stats", h.GetStats)
	r.POST("/api/v1/browser/restart", h.Restart)
	r.GET("/api/v1/browser/health", h.GetHealth)
	return r
}

func TestBrowser_Health(t *testing.T) {
	rec := perform(t, browserRouter(&fakeBrowsers{status: "healthy"}), http.MethodGet, "/api/v1/browser/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = perform(t, browserRouter(&fakeBrowsers{status: "unhealthy"}), http.MethodGet, "/api/v1/browser/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestBrowser_Restart(t *testing.T) {
	browsers := &fakeBrowsers{status: "healthy"}
	rec := perform(t, browserRouter(browsers), http.MethodPost, "/api/v1/browser/restart", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, browsers.restarts)

	browsers.restartErr = errors.New("chrome missing")
	rec = perform(t, browserRouter(browsers), http.MethodPost, "/api/v1/browser/restart", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "BROWSER_RESTART_ERROR", decodeError(t, rec.Body.Bytes()).Code)
}

func TestBrowser_RestartRefusedWhileInUse(t *testing.T) {
	browsers := &fakeBrowsers{status: "healthy", inUse: 1}
	router := browserRouter(browsers)

	rec := perform(t, router, http.MethodPost, "/api/v1/browser/restart", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "BROWSER_IN_USE", decodeError(t, rec.Body.Bytes()).Code)
	assert.Zero(t, browsers.restarts)

	rec = perform(t, router, http.MethodPost, "/api/v1/browser/restart?force=true", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, browsers.restarts)
}

func TestBrowser_Stats(t *testing.T) {
	rec := perform(t, browserRouter(&fakeBrowsers{status: "healthy"}), http.MethodGet, "/api/v1/browser/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "total_browsers")
}

func healthRouter(services HealthChecker) *gin.Engine {
	h := NewHealthHandler(services, quietLogger)
	r := gin.New()
	r.GET("/health", h.GetHealth)
	r.GET("/health/ready", h.GetReadiness)
	r.GET("/health/live", h.GetLiveness)
	return r
}

func TestHealth_Aggregates(t *testing.T) {
	tests := []struct {
		name       string
		services   staticHealth
		wantStatus string
		wantCode   int
	}{
		{
			name: "all healthy",
			services: staticHealth{
				"cache":   map[string]interface{}{"status": "healthy"},
				"browser": map[string]interface{}{"status": "healthy"},
			},
			wantStatus: "healthy",
			wantCode:   http.StatusOK,
		},
		{
			name: "degraded cache",
			services: staticHealth{
				"cache":   map[string]interface{}{"status": "degraded", "error": "redis unavailable"},
				"browser": map[string]interface{}{"status": "healthy"},
			},
			wantStatus: "degraded",
			wantCode:   http.StatusOK,
		},
		{
			name: "browser down",
			services: staticHealth{
				"cache":   map[string]interface{}{"status": "degraded"},
				"browser": map[string]interface{}{"status": "unhealthy"},
			},
			wantStatus: "unhealthy",
			wantCode:   http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := perform(t, healthRouter(tt.services), http.MethodGet, "/health", "")

			assert.Equal(t, tt.wantCode, rec.Code)
			var resp models.HealthResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantStatus, resp.Status)
			assert.Equal(t, Version, resp.Version)
			assert.Len(t, resp.Services, len(tt.services))
		})
	}
}

func TestHealth_DegradedErrorIsReported(t *testing.T) {
	services := staticHealth{"cache": map[string]interface{}{"status": "degraded", "error": "redis unavailable"}}

	rec := perform(t, healthRouter(services), http.MethodGet, "/health", "")

	var resp models.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "redis unavailable", resp.Services["cache"].Error)
}

func TestHealth_Readiness(t *testing.T) {
	ready := staticHealth{
		"browser": map[string]interface{}{"status": "healthy"},
		"nif":     map[string]interface{}{"status": "healthy"},
	}
	rec := perform(t, healthRouter(ready), http.MethodGet, "/health/ready", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	notReady := staticHealth{
		"browser": map[string]interface{}{"status": "unhealthy"},
		"nif":     map[string]interface{}{"status": "healthy"},
	}
	rec = perform(t, healthRouter(notReady), http.MethodGet, "/health/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "browser service is unhealthy")
}

func TestHealth_Liveness(t *testing.T) {
	rec := perform(t, healthRouter(staticHealth{}), http.MethodGet, "/health/live", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"alive":true`)
}
