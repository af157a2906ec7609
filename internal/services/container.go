package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nexconsult/nif-lookup/internal/config"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Container holds all service dependencies
type Container struct {
	config         *config.Config
	logger         *logrus.Logger
	redisClient    *redis.Client
	stopCleanup    context.CancelFunc
	NIFService     NIFServiceInterface
	CacheService   CacheServiceInterface
	BrowserService BrowserServiceInterface
	JobManager     JobManagerInterface
}

// NewContainer creates a new service container
func NewContainer(cfg *config.Config, logger *logrus.Logger) (*Container, error) {
	container := &Container{
		config: cfg,
		logger: logger,
	}

	container.initRedis()

	if err := container.initServices(); err != nil {
		container.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	return container, nil
}

// initRedis connects to Redis; without it the cache runs in memory only
func (c *Container) initRedis() {
	if !c.config.Redis.Enabled {
		c.logger.Info("Redis disabled, using in-memory cache")
		return
	}

	c.redisClient = redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", c.config.Redis.Host, c.config.Redis.Port),
		Password:     c.config.Redis.Password,
		DB:           c.config.Redis.DB,
		PoolSize:     c.config.Redis.PoolSize,
		DialTimeout:  c.config.Redis.DialTimeout,
		ReadTimeout:  c.config.Redis.ReadTimeout,
		WriteTimeout: c.config.Redis.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), c.config.Redis.DialTimeout)
	defer cancel()

	if err := c.redisClient.Ping(ctx).Err(); err != nil {
		c.logger.WithError(err).Warn("Redis connection failed, running with in-memory cache")
		c.redisClient.Close()
		c.redisClient = nil
	} else {
		c.logger.Info("Redis connection established")
	}
}

// initServices initializes all services
func (c *Container) initServices() error {
	cache := NewCacheService(c.redisClient, c.config.Redis.CacheTTL, cacheKeyPrefix, c.logger)
	cleanupCtx, stop := context.WithCancel(context.Background())
	c.stopCleanup = stop
	cache.StartCleanupRoutine(cleanupCtx, 5*time.Minute)
	c.CacheService = cache

	browserService, err := NewBrowserService(c.config.Browser, c.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize browser service: %w", err)
	}
	c.BrowserService = browserService

	nifService, err := NewNIFService(c.config, c.CacheService, c.BrowserService, NewRealClock(), c.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize NIF service: %w", err)
	}
	c.NIFService = nifService

	c.JobManager = NewJobManager(nifService, c.config.Server.JobQueueSize, c.config.Server.JobRetention, c.logger)

	return nil
}

// Close closes all service connections
func (c *Container) Close() error {
	var errs []error

	if c.JobManager != nil {
		if err := c.JobManager.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop job manager: %w", err))
		}
	}

	if c.NIFService != nil {
		if err := c.NIFService.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close NIF service: %w", err))
		}
	}

	if c.BrowserService != nil {
		if err := c.BrowserService.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close browser service: %w", err))
		}
	}

	if c.stopCleanup != nil {
		c.stopCleanup()
	}

	if c.redisClient != nil {
		if err := c.redisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close Redis: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %w", errors.Join(errs...))
	}
	return nil
}

// Health checks the health of all services
func (c *Container) Health() map[string]interface{} {
	health := make(map[string]interface{})

	if c.CacheService != nil {
		health["cache"] = c.CacheService.Health()
	}
	if c.BrowserService != nil {
		health["browser"] = c.BrowserService.Health()
	}
	if c.NIFService != nil {
		health["nif"] = c.NIFService.Health()
	}
	if c.JobManager != nil {
		health["jobs"] = c.JobManager.Health()
	}

	return health
}
