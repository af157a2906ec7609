package services

import (
	"context"
	"time"

	"github.com/nexconsult/nif-lookup/internal/models"
)

// NIFServiceInterface defines the interface for NIF lookups
type NIFServiceInterface interface {
	// Lookup resolves a single company name through the pipeline
	Lookup(ctx context.Context, name string) (*models.CompanyResult, error)

	// RunBatch resolves every query in order and persists results to sink
	RunBatch(ctx context.Context, queries []models.CompanyQuery, sink RecordSink) ([]models.CompanyResult, error)

	// CacheKey returns the cache key a company name is stored under
	CacheKey(name string) string

	// Health returns service health status
	Health() map[string]interface{}

	// Close closes the service and releases resources
	Close() error
}

// JobManagerInterface runs batch jobs in the background, one at a time
type JobManagerInterface interface {
	// Submit enqueues a batch of company names
	Submit(names []string) (*models.JobResponse, error)

	// Get returns the current state of a job
	Get(id string) (*models.JobResponse, error)

	// Results returns the results recorded so far for a job
	Results(id string) ([]models.CompanyResult, error)

	// Health reports queue depth and job counts
	Health() map[string]interface{}

	// Close stops the worker, cancelling the running job
	Close() error
}

// CacheServiceInterface defines the interface for cache service
type CacheServiceInterface interface {
	// Get returns the cached record for key or ErrCacheMiss
	Get(ctx context.Context, key string) (models.CachedNIF, error)

	// Set stores a record under key with the configured TTL
	Set(ctx context.Context, key string, record models.CachedNIF) error

	// Delete removes a value from cache
	Delete(ctx context.Context, key string) error

	// Clear clears all cache entries
	Clear(ctx context.Context) error

	// Exists checks if a key exists in cache
	Exists(ctx context.Context, key string) (bool, error)

	// GetStats returns cache statistics
	GetStats(ctx context.Context) (map[string]interface{}, error)

	// Health returns cache service health status
	Health() map[string]interface{}
}

// BrowserServiceInterface defines the interface for browser service
type BrowserServiceInterface interface {
	// GetBrowser gets an available browser context
	GetBrowser(ctx context.Context) (BrowserContext, error)

	// ReleaseBrowser releases a browser context back to the pool
	ReleaseBrowser(browserCtx BrowserContext) error

	// GetStats returns browser pool statistics
	GetStats() map[string]interface{}

	// Health returns browser service health status
	Health() map[string]interface{}

	// Restart restarts the browser pool
	Restart() error

	// Close closes all browsers and releases resources
	Close() error
}

// BrowserContext is the page-fetch capability used by the pipeline
type BrowserContext interface {
	// Navigate navigates to a URL
	Navigate(ctx context.Context, url string) error

	// GetHTML gets HTML content from the current page
	GetHTML(ctx context.Context) (string, error)

	// CurrentURL returns the location after redirects
	CurrentURL(ctx context.Context) (string, error)

	// Close closes the browser context
	Close() error

	// IsHealthy checks if the browser context is healthy
	IsHealthy() bool

	// GetID returns the browser context ID
	GetID() string
}

// RecordSink persists results. Every call receives the full list so far.
type RecordSink interface {
	WriteCheckpoint(results []models.CompanyResult) error
	WriteFinal(results []models.CompanyResult) error
}

// Clock abstracts time so waits can be driven virtually in tests
type Clock interface {
	Now() time.Time
	// Sleep blocks for d or until ctx is done
	Sleep(ctx context.Context, d time.Duration) error
}
