package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nexconsult/nif-lookup/internal/models"
	"github.com/sirupsen/logrus"
)

// Version is reported by the health endpoints
const Version = "1.0.0"

// HealthChecker reports per-service health keyed by service name
type HealthChecker interface {
	Health() map[string]interface{}
}

// HealthHandler handles health check requests
type HealthHandler struct {
	services  HealthChecker
	logger    *logrus.Logger
	startTime time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(services HealthChecker, logger *logrus.Logger) *HealthHandler {
	return &HealthHandler{
		services:  services,
		logger:    logger,
		startTime: time.Now(),
	}
}

func serviceStatus(health interface{}) (string, string) {
	healthMap, ok := health.(map[string]interface{})
	if !ok {
		return "", ""
	}
	status, _ := healthMap["status"].(string)
	errMsg, _ := healthMap["error"].(string)
	return status, errMsg
}

// GetHealth handles general health check
// @Summary Health check
// @Description Get the health status of the API and its dependencies
// @Tags Health
// @Produce json
// @Success 200 {object} models.HealthResponse
// @Failure 503 {object} models.HealthResponse
// @Router /health [get]
func (h *HealthHandler) GetHealth(c *gin.Context) {
	start := time.Now()
	servicesHealth := h.services.Health()
	checkedIn := time.Since(start).Milliseconds()

	response := models.HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Version:   Version,
		Services:  make(map[string]models.ServiceInfo, len(servicesHealth)),
		Uptime:    time.Since(h.startTime).String(),
	}

	for name, health := range servicesHealth {
		status, errMsg := serviceStatus(health)
		switch {
		case status == "unhealthy":
			response.Status = "unhealthy"
		case status == "degraded" && response.Status == "healthy":
			response.Status = "degraded"
		}

		response.Services[name] = models.ServiceInfo{
			Status:         status,
			LastCheck:      response.Timestamp,
			ResponseTimeMs: checkedIn,
			Error:          errMsg,
		}
	}

	httpStatus := http.StatusOK
	if response.Status == "unhealthy" {
		h.logger.WithField("request_id", c.GetString("request_id")).Warn("Health check reports unhealthy services")
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, response)
}

// GetReadiness handles readiness probe
// @Summary Readiness check
// @Description Check if the API is ready to serve lookups
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health/ready [get]
func (h *HealthHandler) GetReadiness(c *gin.Context) {
	servicesHealth := h.services.Health()

	issues := make([]string, 0)
	for _, name := range []string{"browser", "nif"} {
		if status, _ := serviceStatus(servicesHealth[name]); status == "unhealthy" {
			issues = append(issues, name+" service is unhealthy")
		}
	}

	response := map[string]interface{}{
		"ready":     len(issues) == 0,
		"timestamp": time.Now(),
		"services":  servicesHealth,
	}

	httpStatus := http.StatusOK
	if len(issues) > 0 {
		response["issues"] = issues
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, response)
}

// GetLiveness handles liveness probe
// @Summary Liveness check
// @Description Check if the API is alive and responding
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health/live [get]
func (h *HealthHandler) GetLiveness(c *gin.Context) {
	c.JSON(http.StatusOK, map[string]interface{}{
		"alive":     true,
		"timestamp": time.Now(),
		"uptime":    time.Since(h.startTime).String(),
		"version":   Version,
	})
}
