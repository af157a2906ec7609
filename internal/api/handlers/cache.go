package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nexconsult/nif-lookup/internal/services"
	"github.com/sirupsen/logrus"
)

// CacheHandler handles cache management requests
type CacheHandler struct {
	cacheService services.CacheServiceInterface
	keyFor       func(name string) string
	logger       *logrus.Logger
}

// NewCacheHandler creates a new cache handler. keyFor maps a company name
// onto the key its NIF is cached under.
func NewCacheHandler(cacheService services.CacheServiceInterface, keyFor func(name string) string, logger *logrus.Logger) *CacheHandler {
	return &CacheHandler{
		cacheService: cacheService,
		keyFor:       keyFor,
		logger:       logger,
	}
}

// GetStats handles cache statistics request
// @Summary Get cache statistics
// @Description Get cache size, hit and miss counters and backend health
// @Tags Cache
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 500 {object} models.ErrorResponse
// @Router /api/v1/cache/stats [get]
func (h *CacheHandler) GetStats(c *gin.Context) {
	requestID := c.GetString("request_id")

	stats, err := h.cacheService.GetStats(c.Request.Context())
	if err != nil {
		h.logger.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to get cache statistics")

		abortWithError(c, http.StatusInternalServerError, "Internal server error", "Failed to retrieve cache statistics", "CACHE_STATS_ERROR")
		return
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"stats":     stats,
		"timestamp": time.Now(),
		"health":    h.cacheService.Health(),
	})
}

// Clear handles cache clear request
// @Summary Clear all cached NIFs
// @Description Remove every cached NIF entry
// @Tags Cache
// @Produce json
// @Param X-Admin-Token header string false "Admin token, when one is configured"
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Failure 500 {object} models.ErrorResponse
// @Router /api/v1/cache/clear [delete]
func (h *CacheHandler) Clear(c *gin.Context) {
	requestID := c.GetString("request_id")

	h.logger.WithField("request_id", requestID).Info("Clearing NIF cache")

	if err := h.cacheService.Clear(c.Request.Context()); err != nil {
		h.logger.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to clear cache")

		abortWithError(c, http.StatusInternalServerError, "Internal server error", "Failed to clear cache", "CACHE_CLEAR_ERROR")
		return
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"message":   "Cache cleared successfully",
		"timestamp": time.Now(),
		"success":   true,
	})
}

// Delete handles removal of one company's cached NIF
// @Summary Delete a company from cache
// @Description Remove the cached NIF of a company so the next lookup hits the registry again
// @Tags Cache
// @Param name path string true "Company name as submitted for lookup"
// @Param X-Admin-Token header string false "Admin token, when one is configured"
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/v1/cache/{name} [delete]
func (h *CacheHandler) Delete(c *gin.Context) {
	requestID := c.GetString("request_id")
	name := strings.TrimSpace(c.Param("name"))

	key := ""
	if name != "" {
		key = h.keyFor(name)
	}
	if key == "" {
		h.logger.WithFields(logrus.Fields{
			"request_id": requestID,
			"company":    name,
		}).Warn("Company name yields no cache key")

		abortWithError(c, http.StatusBadRequest, "Invalid company name", "Company name must contain at least one letter or digit", "INVALID_NAME")
		return
	}

	logger := h.logger.WithFields(logrus.Fields{
		"request_id": requestID,
		"company":    name,
		"key":        key,
	})

	exists, err := h.cacheService.Exists(c.Request.Context(), key)
	if err != nil {
		logger.WithError(err).Error("Failed to check cache key existence")
		abortWithError(c, http.StatusInternalServerError, "Internal server error", "Failed to check cache", "CACHE_CHECK_ERROR")
		return
	}
	if !exists {
		abortWithError(c, http.StatusNotFound, "Not found", "Company not found in cache", "NAME_NOT_IN_CACHE")
		return
	}

	if err := h.cacheService.Delete(c.Request.Context(), key); err != nil {
		logger.WithError(err).Error("Failed to delete company from cache")
		abortWithError(c, http.StatusInternalServerError, "Internal server error", "Failed to delete from cache", "CACHE_DELETE_ERROR")
		return
	}

	logger.Info("Company deleted from cache")

	c.JSON(http.StatusOK, map[string]interface{}{
		"message":   "Company deleted from cache successfully",
		"company":   name,
		"key":       key,
		"timestamp": time.Now(),
		"success":   true,
	})
}
