package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nexconsult/nif-lookup/internal/models"
	"github.com/nexconsult/nif-lookup/internal/services"
	"github.com/sirupsen/logrus"
)

// Lookuper resolves one company name
type Lookuper interface {
	Lookup(ctx context.Context, name string) (*models.CompanyResult, error)
}

// NIFHandler serves single lookups and batch jobs
type NIFHandler struct {
	nifService Lookuper
	jobs       services.JobManagerInterface
	logger     *logrus.Logger
}

// NewNIFHandler creates a new NIF handler
func NewNIFHandler(nifService Lookuper, jobs services.JobManagerInterface, logger *logrus.Logger) *NIFHandler {
	return &NIFHandler{
		nifService: nifService,
		jobs:       jobs,
		logger:     logger,
	}
}

// Lookup handles a single synchronous lookup
// @Summary Look up the NIF of a company
// @Description Resolve the company's registry page and read its NIF. Placeholders are returned when no page or no identifier is found.
// @Tags NIF
// @Produce json
// @Param name query string true "Company name" example("Padaria Central, Lda")
// @Success 200 {object} models.NIFLookupResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 503 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/v1/nif [get]
func (h *NIFHandler) Lookup(c *gin.Context) {
	requestID := c.GetString("request_id")
	name := strings.TrimSpace(c.Query("name"))

	if name == "" {
		abortWithError(c, http.StatusBadRequest, "Invalid company name", "name query parameter is required", "INVALID_NAME")
		return
	}

	logger := h.logger.WithFields(logrus.Fields{
		"request_id": requestID,
		"company":    name,
	})

	result, err := h.nifService.Lookup(c.Request.Context(), name)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrBrowserUnavailable):
			logger.WithError(err).Warn("Lookup rejected, browser busy or unavailable")
			c.Header("Retry-After", "30")
			abortWithError(c, http.StatusServiceUnavailable, "Service unavailable", "The browser is busy with another run, try again later", "BROWSER_UNAVAILABLE")
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			logger.WithError(err).Warn("Lookup cancelled")
			abortWithError(c, http.StatusRequestTimeout, "Request timeout", "The lookup did not finish in time", "LOOKUP_TIMEOUT")
		default:
			logger.WithError(err).Error("Lookup failed")
			abortWithError(c, http.StatusInternalServerError, "Internal server error", "Failed to look up NIF", "LOOKUP_ERROR")
		}
		return
	}

	c.JSON(http.StatusOK, models.NewNIFLookupResponse(*result, time.Now()))
}

// SubmitJob handles batch submission
// @Summary Submit a batch job
// @Description Queue a list of company names. Jobs run one at a time in submission order.
// @Tags Jobs
// @Accept json
// @Produce json
// @Param request body models.BatchJobRequest true "Company names"
// @Success 202 {object} models.JobResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 503 {object} models.ErrorResponse
// @Router /api/v1/jobs [post]
func (h *NIFHandler) SubmitJob(c *gin.Context) {
	requestID := c.GetString("request_id")

	var req models.BatchJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Warn("Invalid batch job request")

		abortWithError(c, http.StatusBadRequest, "Invalid request", "companies must hold between 1 and 1000 names", "INVALID_REQUEST")
		return
	}

	names := req.CleanNames()
	if len(names) == 0 {
		abortWithError(c, http.StatusBadRequest, "Invalid request", "companies holds only blank names", "INVALID_REQUEST")
		return
	}

	job, err := h.jobs.Submit(names)
	if err != nil {
		if errors.Is(err, services.ErrQueueFull) {
			c.Header("Retry-After", "60")
			abortWithError(c, http.StatusServiceUnavailable, "Service unavailable", "Too many jobs are waiting, try again later", "QUEUE_FULL")
			return
		}
		h.logger.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to submit batch job")
		abortWithError(c, http.StatusInternalServerError, "Internal server error", "Failed to submit job", "JOB_SUBMIT_ERROR")
		return
	}

	h.logger.WithFields(logrus.Fields{
		"request_id": requestID,
		"job_id":     job.ID,
		"companies":  job.Total,
	}).Info("Batch job accepted")

	c.Header("Location", "/api/v1/jobs/"+job.ID)
	c.JSON(http.StatusAccepted, job)
}

// GetJob handles job status requests
// @Summary Get a batch job
// @Description Job status and progress. Results recorded so far are included.
// @Tags Jobs
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} models.JobResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/v1/jobs/{id} [get]
func (h *NIFHandler) GetJob(c *gin.Context) {
	job, err := h.jobs.Get(c.Param("id"))
	if err != nil {
		h.jobError(c, err)
		return
	}

	c.JSON(http.StatusOK, job)
}

// GetJobCSV streams a job's results as company_name,nif
// @Summary Download batch results as CSV
// @Tags Jobs
// @Produce text/csv
// @Param id path string true "Job ID"
// @Success 200 {string} string "company_name,nif rows"
// @Failure 404 {object} models.ErrorResponse
// @Router /api/v1/jobs/{id}/csv [get]
func (h *NIFHandler) GetJobCSV(c *gin.Context) {
	id := c.Param("id")

	results, err := h.jobs.Results(id)
	if err != nil {
		h.jobError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := services.WriteResultsCSV(&buf, results); err != nil {
		h.logger.WithFields(logrus.Fields{
			"request_id": c.GetString("request_id"),
			"job_id":     id,
			"error":      err.Error(),
		}).Error("Failed to render job results")
		abortWithError(c, http.StatusInternalServerError, "Internal server error", "Failed to render results", "CSV_ERROR")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="companies_with_nifs_%s.csv"`, id))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func (h *NIFHandler) jobError(c *gin.Context, err error) {
	if errors.Is(err, services.ErrJobNotFound) {
		abortWithError(c, http.StatusNotFound, "Not found", "Job not found", "JOB_NOT_FOUND")
		return
	}
	h.logger.WithFields(logrus.Fields{
		"request_id": c.GetString("request_id"),
		"error":      err.Error(),
	}).Error("Failed to read job")
	abortWithError(c, http.StatusInternalServerError, "Internal server error", "Failed to read job", "JOB_ERROR")
}
