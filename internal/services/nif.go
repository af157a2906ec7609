package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/nexconsult/nif-lookup/internal/config"
	"github.com/nexconsult/nif-lookup/internal/models"
	"github.com/sirupsen/logrus"
)

// NIFService runs lookups through the pipeline, one run at a time
type NIFService struct {
	config   *config.Config
	pipeline *Pipeline
	browser  BrowserServiceInterface
	cache    CacheServiceInterface
	logger   *logrus.Logger

	// One browser drives every run, so runs never overlap
	runMu sync.Mutex

	requestCounter atomic.Int64
	batchCounter   atomic.Int64
}

// NewNIFService wires the pipeline components from configuration
func NewNIFService(cfg *config.Config, cache CacheServiceInterface, browser BrowserServiceInterface, clock Clock, logger *logrus.Logger) (*NIFService, error) {
	pipeline, err := BuildPipeline(cfg, cache, clock, logger)
	if err != nil {
		return nil, err
	}

	return &NIFService{
		config:   cfg,
		pipeline: pipeline,
		browser:  browser,
		cache:    cache,
		logger:   logger,
	}, nil
}

// BuildPipeline assembles normalizer, strategies, extractor and verifier
func BuildPipeline(cfg *config.Config, cache CacheServiceInterface, clock Clock, logger *logrus.Logger) (*Pipeline, error) {
	if clock == nil {
		clock = NewRealClock()
	}

	normalizer := NewNameNormalizer()
	strategies := []ResolutionStrategy{
		NewDirectProbeStrategy(cfg.Registry, normalizer, cfg.Pipeline.DirectSettle, clock, logger),
	}

	if cfg.Search.Enabled {
		gate := NewObstacleGate(cfg.Search, cfg.Pipeline.ObstacleSettle, clock, logger)
		search, err := NewSearchStrategy(cfg.Registry, cfg.Search, gate, cfg.Pipeline.SearchSettle, cfg.Pipeline.NavigateSettle, clock, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize search strategy: %w", err)
		}
		strategies = append(strategies, search)
	}

	var verifier *NameVerifier
	if cfg.Pipeline.MinNameSimilarity > 0 {
		verifier = NewNameVerifier(normalizer, cfg.Pipeline.MinNameSimilarity, logger)
	}

	return NewPipeline(cfg.Pipeline, PipelineDeps{
		Normalizer: normalizer,
		Resolver:   NewPageResolver(logger, strategies...),
		Extractor:  NewPatternExtractor(nil, logger),
		Verifier:   verifier,
		Cache:      cache,
		Clock:      clock,
	}, logger), nil
}

// Pipeline returns the underlying pipeline controller
func (s *NIFService) Pipeline() *Pipeline {
	return s.pipeline
}

// CacheKey returns the cache key for a company name, "" if it has no slug
func (s *NIFService) CacheKey(name string) string {
	return s.pipeline.CacheKey(name)
}

// Lookup resolves a single company name. It fails fast with
// ErrBrowserUnavailable while a batch holds the browser.
func (s *NIFService) Lookup(ctx context.Context, name string) (*models.CompanyResult, error) {
	requestID := s.requestCounter.Add(1)
	logger := s.logger.WithFields(logrus.Fields{
		"company":    name,
		"request_id": requestID,
	})

	queries := models.NewCompanyQueries([]string{name})
	if len(queries) == 0 {
		return nil, fmt.Errorf("company name is empty")
	}

	if !s.runMu.TryLock() {
		return nil, fmt.Errorf("%w: a batch is running", ErrBrowserUnavailable)
	}
	defer s.runMu.Unlock()

	logger.Info("Starting NIF lookup")
	results, err := s.run(ctx, queries, NewMemorySink(nil))
	if err != nil {
		logger.WithError(err).Error("NIF lookup failed")
		return nil, err
	}
	if len(results) != 1 {
		return nil, fmt.Errorf("lookup produced %d results", len(results))
	}

	logger.WithField("status", results[0].Status).Info("NIF lookup completed")
	return &results[0], nil
}

// RunBatch processes queries in order, waiting for any run in progress
func (s *NIFService) RunBatch(ctx context.Context, queries []models.CompanyQuery, sink RecordSink) ([]models.CompanyResult, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	s.batchCounter.Add(1)
	return s.run(ctx, queries, sink)
}

func (s *NIFService) run(ctx context.Context, queries []models.CompanyQuery, sink RecordSink) ([]models.CompanyResult, error) {
	session, err := NewSession(ctx, s.browser, s.logger)
	if err != nil {
		return nil, err
	}
	return s.pipeline.Run(ctx, session, queries, sink)
}

// Health returns service health status
func (s *NIFService) Health() map[string]interface{} {
	busy := !s.runMu.TryLock()
	if !busy {
		s.runMu.Unlock()
	}

	return map[string]interface{}{
		"status":          "healthy",
		"request_count":   s.requestCounter.Load(),
		"batch_count":     s.batchCounter.Load(),
		"busy":            busy,
		"cache_enabled":   s.cache != nil && s.config.Pipeline.CacheEnabled,
		"search_enabled":  s.config.Search.Enabled,
		"browser_enabled": s.browser != nil,
	}
}

// Close closes the service and releases resources
func (s *NIFService) Close() error {
	s.logger.Info("NIF service closed")
	return nil
}
