package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nexconsult/nif-lookup/internal/services"
	"github.com/sirupsen/logrus"
)

// BrowserHandler handles browser pool management requests
type BrowserHandler struct {
	browserService services.BrowserServiceInterface
	logger         *logrus.Logger
}

// NewBrowserHandler creates a new browser handler
func NewBrowserHandler(browserService services.BrowserServiceInterface, logger *logrus.Logger) *BrowserHandler {
	return &BrowserHandler{
		browserService: browserService,
		logger:         logger,
	}
}

// GetStats reports the pool and the page each window last loaded
// @Summary Get browser pool statistics
// @Tags Browser
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/browser/stats [get]
func (h *BrowserHandler) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, map[string]interface{}{
		"stats":     h.browserService.GetStats(),
		"timestamp": time.Now(),
		"health":    h.browserService.Health(),
	})
}

// Restart closes every browser window and launches a fresh pool
// @Summary Restart browser pool
// @Description Close every browser and launch a fresh pool. Refused while a lookup or batch holds a browser unless force=true, which interrupts it.
// @Tags Browser
// @Produce json
// @Param force query bool false "Restart even when a browser is in use"
// @Param X-Admin-Token header string false "Admin token, when one is configured"
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/v1/browser/restart [post]
func (h *BrowserHandler) Restart(c *gin.Context) {
	logger := h.logger.WithField("request_id", c.GetString("request_id"))
	force := c.Query("force") == "true"

	if inUse, _ := h.browserService.GetStats()["in_use"].(int); inUse > 0 && !force {
		logger.WithField("in_use", inUse).Warn("Refusing browser restart while a run holds a browser")
		abortWithError(c, http.StatusConflict, "Browser in use",
			"A lookup or batch is using the browser; retry with force=true to interrupt it", "BROWSER_IN_USE")
		return
	}

	logger.WithField("force", force).Info("Restarting browser pool")

	if err := h.browserService.Restart(); err != nil {
		logger.WithError(err).Error("Failed to restart browser pool")
		abortWithError(c, http.StatusInternalServerError, "Internal server error", "Failed to restart browser pool", "BROWSER_RESTART_ERROR")
		return
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"message":   "Browser pool restarted",
		"timestamp": time.Now(),
		"success":   true,
		"stats":     h.browserService.GetStats(),
	})
}

// GetHealth handles browser pool health check request
// @Summary Get browser pool health
// @Tags Browser
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /api/v1/browser/health [get]
func (h *BrowserHandler) GetHealth(c *gin.Context) {
	health := h.browserService.Health()

	httpStatus := http.StatusOK
	if status, _ := health["status"].(string); status == "unhealthy" {
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, map[string]interface{}{
		"health":    health,
		"stats":     h.browserService.GetStats(),
		"timestamp": time.Now(),
	})
}
