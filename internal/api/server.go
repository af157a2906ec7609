package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nexconsult/nif-lookup/internal/api/handlers"
	"github.com/nexconsult/nif-lookup/internal/api/middleware"
	"github.com/nexconsult/nif-lookup/internal/config"
	"github.com/nexconsult/nif-lookup/internal/services"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Server represents the HTTP server
type Server struct {
	Router      *gin.Engine
	config      *config.Config
	logger      *logrus.Logger
	services    *services.Container
	rateLimiter *middleware.RateLimiter
}

// NewServer creates a new HTTP server
func NewServer(cfg *config.Config, logger *logrus.Logger, services *services.Container) *Server {
	server := &Server{
		config:   cfg,
		logger:   logger,
		services: services,
	}

	server.setupRouter()
	return server
}

// Close stops background work owned by the router
func (s *Server) Close() {
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
}

func (s *Server) setupRouter() {
	s.Router = gin.New()

	s.Router.Use(middleware.RequestID())
	s.Router.Use(middleware.Logger(s.logger))
	s.Router.Use(middleware.Recovery(s.logger))
	s.Router.Use(middleware.CORS(s.config.Security.CORS))
	s.Router.Use(middleware.Security())

	// Probes are not rate limited
	healthHandler := handlers.NewHealthHandler(s.services, s.logger)
	s.Router.GET("/health", healthHandler.GetHealth)
	s.Router.GET("/health/ready", healthHandler.GetReadiness)
	s.Router.GET("/health/live", healthHandler.GetLiveness)

	if s.config.Server.Environment != "production" {
		s.Router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
		s.Router.GET("/", func(c *gin.Context) {
			c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
		})
	}

	s.rateLimiter = middleware.NewRateLimiter(s.config.Security.RateLimit)
	admin := middleware.AdminAuth(s.config.Security.AdminToken)

	v1 := s.Router.Group("/api/v1")
	v1.Use(s.rateLimiter.Middleware())
	{
		nifHandler := handlers.NewNIFHandler(s.services.NIFService, s.services.JobManager, s.logger)
		v1.GET("/nif", nifHandler.Lookup)

		jobs := v1.Group("/jobs")
		{
			jobs.POST("", nifHandler.SubmitJob)
			jobs.GET("/:id", nifHandler.GetJob)
			jobs.GET("/:id/csv", nifHandler.GetJobCSV)
		}

		cacheHandler := handlers.NewCacheHandler(s.services.CacheService, s.services.NIFService.CacheKey, s.logger)
		cache := v1.Group("/cache")
		{
			cache.GET("/stats", cacheHandler.GetStats)
			cache.DELETE("/clear", admin, cacheHandler.Clear)
			cache.DELETE("/:name", admin, cacheHandler.Delete)
		}

		browserHandler := handlers.NewBrowserHandler(s.services.BrowserService, s.logger)
		browser := v1.Group("/browser")
		{
			browser.GET("/stats", browserHandler.GetStats)
			browser.POST("/restart", admin, browserHandler.Restart)
			browser.GET("/health", browserHandler.GetHealth)
		}
	}

	s.Router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":     "Not Found",
			"message":   "The requested resource was not found",
			"timestamp": time.Now(),
			"path":      c.Request.URL.Path,
		})
	})

	s.Router.HandleMethodNotAllowed = true
	s.Router.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{
			"error":     "Method Not Allowed",
			"message":   "The requested method is not allowed for this resource",
			"timestamp": time.Now(),
			"path":      c.Request.URL.Path,
			"method":    c.Request.Method,
		})
	})
}
