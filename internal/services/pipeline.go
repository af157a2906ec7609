package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/nexconsult/nif-lookup/internal/config"
	"github.com/nexconsult/nif-lookup/internal/models"
	"github.com/sirupsen/logrus"
)

const cacheKeyPrefix = "nif:"

// PipelineDeps are the collaborators of a Pipeline. Verifier and Cache are optional.
type PipelineDeps struct {
	Normalizer *NameNormalizer
	Resolver   *PageResolver
	Extractor  *PatternExtractor
	Verifier   *NameVerifier
	Cache      CacheServiceInterface
	Clock      Clock
}

// Pipeline drives each query through resolve, extract and retry, and
// checkpoints the accumulated results.
type Pipeline struct {
	config     config.PipelineConfig
	normalizer *NameNormalizer
	resolver   *PageResolver
	extractor  *PatternExtractor
	verifier   *NameVerifier
	cache      CacheServiceInterface
	pacer      pacer
	logger     *logrus.Logger
}

// NewPipeline creates a new pipeline controller
func NewPipeline(cfg config.PipelineConfig, deps PipelineDeps, logger *logrus.Logger) *Pipeline {
	return &Pipeline{
		config:     cfg,
		normalizer: deps.Normalizer,
		resolver:   deps.Resolver,
		extractor:  deps.Extractor,
		verifier:   deps.Verifier,
		cache:      deps.Cache,
		pacer:      newPacer(deps.Clock),
		logger:     logger,
	}
}

// CacheKey returns the cache key for a company name, or "" if it has no slug
func (p *Pipeline) CacheKey(rawName string) string {
	slugs := p.normalizer.Normalize(rawName)
	if len(slugs) == 0 {
		return ""
	}
	return cacheKeyPrefix + slugs[0].Value
}

// Run processes queries in input order. The session is closed and the final
// results written on every exit path; a cancelled run persists the prefix
// processed so far.
func (p *Pipeline) Run(ctx context.Context, session *PipelineSession, queries []models.CompanyQuery, sink RecordSink) (results []models.CompanyResult, err error) {
	if session.Closed() {
		return nil, ErrSessionClosed
	}

	logger := session.Logger()
	logger.WithField("queries", len(queries)).Info("Batch started")

	defer func() {
		if cerr := session.Close(); cerr != nil {
			logger.WithError(cerr).Warn("Failed to release browser")
		}

		results = session.Results()
		if werr := sink.WriteFinal(results); werr != nil {
			err = errors.Join(err, fmt.Errorf("write final results: %w", werr))
		}

		summary := models.Summarize(results)
		stats := session.Stats()
		logger.WithFields(logrus.Fields{
			"retries":              stats["retries"],
			"checkpoints":          stats["checkpoints"],
			"duration":             stats["uptime"],
			"total":                summary.Total,
			"succeeded":            summary.Succeeded,
			"identifier_not_found": summary.IdentifierNotFound,
			"page_not_found":       summary.PageNotFound,
			"search_failed":        summary.SearchFailed,
			"cache_hits":           summary.CacheHits,
			"suspect":              summary.Suspect,
			"name_mismatch":        summary.NameMismatch,
		}).Info("Batch finished")
	}()

	for i, query := range queries {
		result := p.process(ctx, session, query)
		// An interrupted company was not really tried; leave it out of the files
		if ctx.Err() != nil && !result.Succeeded() {
			logger.WithField("company", query.RawName).Info("Run interrupted before company finished")
			return nil, ctx.Err()
		}
		completed := session.Record(result)

		if completed%p.config.CheckpointEvery == 0 {
			if cerr := sink.WriteCheckpoint(session.Results()); cerr != nil {
				logger.WithError(cerr).Warn("Checkpoint write failed")
			} else {
				session.addCheckpoint()
				logger.WithField("completed", completed).Info("Checkpoint saved")
			}
		}

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		if i < len(queries)-1 && !result.FromCache {
			if werr := p.pacer.wait(ctx, p.config.InterQueryDelay); werr != nil {
				return nil, werr
			}
		}
	}

	return nil, nil
}

func (p *Pipeline) process(ctx context.Context, session *PipelineSession, query models.CompanyQuery) (result models.CompanyResult) {
	start := p.pacer.clock.Now()
	logger := session.Logger().WithField("company", query.RawName)

	result = models.CompanyResult{CompanyName: query.RawName}
	defer func() {
		result.DurationMs = p.pacer.clock.Now().Sub(start).Milliseconds()
	}()

	cacheKey := p.CacheKey(query.RawName)
	if cached, ok := p.cachedNIF(ctx, cacheKey); ok {
		result.NIF = cached.NIF
		result.Status = models.StatusSucceeded
		result.FromCache = true
		result.LandedURL = cached.LandedURL
		result.MatchedRule = cached.MatchedRule
		logger.WithFields(logrus.Fields{
			"nif":       cached.NIF,
			"cached_at": cached.CachedAt,
		}).Info("NIF found in cache")
		return result
	}

	var resolution models.ResolutionOutcome
	var extraction models.ExtractionOutcome

	for attempt := 1; attempt <= p.config.MaxAttempts; attempt++ {
		attemptLogger := logger.WithField("attempt", attempt)
		extraction = models.ExtractionOutcome{}

		if attempt > 1 {
			session.addRetry()
			attemptLogger.Info("Retrying company")
			if err := p.pacer.wait(ctx, p.config.RetryDelay); err != nil {
				break
			}
		}
		result.Attempts = attempt

		if err := session.EnsurePage(ctx); err != nil {
			resolution = models.ResolutionOutcome{Status: models.ResolutionError, Err: err}
		} else {
			resolution = p.resolver.Resolve(ctx, session.Page(), query.RawName)
		}
		if resolution.Status == models.ResolutionResolved {
			html, err := session.Page().GetHTML(ctx)
			if err != nil {
				resolution = models.ResolutionOutcome{Status: models.ResolutionError, Err: fmt.Errorf("read registry page: %w", err)}
			} else {
				extraction = p.extractor.Extract(html)
				if extraction.Status == models.ExtractionFound {
					p.fillSuccess(&result, resolution, extraction, html)
					p.storeNIF(ctx, cacheKey, result, extraction, attemptLogger)
					attemptLogger.WithFields(logrus.Fields{
						"nif":  result.NIF,
						"rule": result.MatchedRule,
						"url":  result.LandedURL,
					}).Info("NIF found")
					return result
				}
			}
		}

		entry := attemptLogger.WithFields(logrus.Fields{
			"resolution": resolution.Status,
			"extraction": extraction.Status,
		})
		if resolution.Err != nil {
			entry = entry.WithError(resolution.Err)
		}
		entry.Warn("Attempt failed")

		if ctx.Err() != nil {
			break
		}
	}

	result.Status = terminalStatus(resolution)
	result.NIF = result.Status.Placeholder()
	result.LandedURL = resolution.LandedURL
	logger.WithFields(logrus.Fields{
		"status":   result.Status,
		"attempts": result.Attempts,
	}).Warn("Company exhausted")
	return result
}

func (p *Pipeline) fillSuccess(result *models.CompanyResult, resolution models.ResolutionOutcome, extraction models.ExtractionOutcome, html string) {
	result.NIF = extraction.Identifier
	result.Status = models.StatusSucceeded
	result.MatchedRule = extraction.MatchedRule
	result.Suspect = extraction.Suspect
	result.LandedURL = resolution.LandedURL

	if p.verifier == nil {
		return
	}
	if check, ok := p.verifier.Verify(result.CompanyName, html); ok {
		result.NameSimilarity = check.Similarity
		result.NameMismatch = check.Mismatch
	}
}

// terminalStatus classifies the last attempt of an exhausted query
func terminalStatus(resolution models.ResolutionOutcome) models.TerminalStatus {
	switch resolution.Status {
	case models.ResolutionResolved:
		return models.StatusIdentifierNotFound
	case models.ResolutionError:
		return models.StatusSearchFailed
	default:
		return models.StatusPageNotFound
	}
}

func (p *Pipeline) cachedNIF(ctx context.Context, key string) (models.CachedNIF, bool) {
	if p.cache == nil || !p.config.CacheEnabled || key == "" {
		return models.CachedNIF{}, false
	}
	cached, err := p.cache.Get(ctx, key)
	if err != nil || !models.IsNIFShaped(cached.NIF) {
		return models.CachedNIF{}, false
	}
	return cached, true
}

func (p *Pipeline) storeNIF(ctx context.Context, key string, result models.CompanyResult, extraction models.ExtractionOutcome, logger *logrus.Entry) {
	if p.cache == nil || !p.config.CacheEnabled || key == "" || extraction.Suspect {
		return
	}
	record := models.CachedNIF{
		NIF:         extraction.Identifier,
		CompanyName: result.CompanyName,
		LandedURL:   result.LandedURL,
		MatchedRule: extraction.MatchedRule,
		CachedAt:    p.pacer.clock.Now(),
	}
	if err := p.cache.Set(ctx, key, record); err != nil {
		logger.WithError(err).Warn("Failed to cache NIF")
	}
}
