package services

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/nexconsult/nif-lookup/internal/config"
	"github.com/nexconsult/nif-lookup/internal/models"
	"github.com/sirupsen/logrus"
)

// ResolutionStrategy is one way of landing on a company's registry page
type ResolutionStrategy interface {
	Name() string
	Resolve(ctx context.Context, page BrowserContext, rawName string) models.ResolutionOutcome
}

// PageResolver runs its strategies in order until one lands on a page
type PageResolver struct {
	strategies []ResolutionStrategy
	logger     *logrus.Logger
}

// NewPageResolver creates a resolver over an ordered strategy list
func NewPageResolver(logger *logrus.Logger, strategies ...ResolutionStrategy) *PageResolver {
	return &PageResolver{
		strategies: strategies,
		logger:     logger,
	}
}

// Resolve never panics or returns an error; faults become an Error outcome.
func (r *PageResolver) Resolve(ctx context.Context, page BrowserContext, rawName string) models.ResolutionOutcome {
	var timedOut, faulted bool
	var lastErr error

	for _, strategy := range r.strategies {
		outcome := strategy.Resolve(ctx, page, rawName)
		outcome.Strategy = strategy.Name()

		switch outcome.Status {
		case models.ResolutionResolved:
			return outcome
		case models.ResolutionObstacleTimeout:
			timedOut = true
		case models.ResolutionError:
			faulted = true
			lastErr = outcome.Err
		}

		if ctx.Err() != nil {
			return models.ResolutionOutcome{Status: models.ResolutionError, Err: ctx.Err()}
		}

		r.logger.WithFields(logrus.Fields{
			"company":  rawName,
			"strategy": strategy.Name(),
			"status":   outcome.Status,
		}).Debug("Strategy did not resolve")
	}

	switch {
	case timedOut:
		return models.ResolutionOutcome{Status: models.ResolutionObstacleTimeout}
	case faulted:
		return models.ResolutionOutcome{Status: models.ResolutionError, Err: lastErr}
	default:
		return models.ResolutionOutcome{Status: models.ResolutionNotFound}
	}
}

// DirectProbeStrategy fetches <base_url>/<slug>/ for each candidate slug
type DirectProbeStrategy struct {
	registry   config.RegistryConfig
	normalizer *NameNormalizer
	settle     config.DelayRange
	pacer      pacer
	logger     *logrus.Logger
}

// NewDirectProbeStrategy creates the direct URL probing strategy
func NewDirectProbeStrategy(registry config.RegistryConfig, normalizer *NameNormalizer, settle config.DelayRange, clock Clock, logger *logrus.Logger) *DirectProbeStrategy {
	return &DirectProbeStrategy{
		registry:   registry,
		normalizer: normalizer,
		settle:     settle,
		pacer:      newPacer(clock),
		logger:     logger,
	}
}

func (s *DirectProbeStrategy) Name() string { return "direct" }

// CandidateURL builds the registry URL for a slug
func (s *DirectProbeStrategy) CandidateURL(slug models.CandidateSlug) string {
	return strings.TrimRight(s.registry.BaseURL, "/") + "/" + slug.Value + "/"
}

// Resolve reports Error only when every candidate faulted
func (s *DirectProbeStrategy) Resolve(ctx context.Context, page BrowserContext, rawName string) models.ResolutionOutcome {
	slugs := s.normalizer.Normalize(rawName)
	faults := 0
	var lastErr error

	for _, slug := range slugs {
		target := s.CandidateURL(slug)
		logger := s.logger.WithFields(logrus.Fields{
			"company": rawName,
			"slug":    slug.Value,
			"url":     target,
		})

		html, err := s.fetch(ctx, page, target)
		if err != nil {
			if ctx.Err() != nil {
				return models.ResolutionOutcome{Status: models.ResolutionError, Err: ctx.Err()}
			}
			faults++
			lastErr = err
			logger.WithError(err).Warn("Direct probe failed")
			continue
		}

		if strings.Contains(html, s.registry.NotFoundMarker) {
			logger.Debug("Registry page not found")
			continue
		}

		landed := currentURLOr(ctx, page, target)
		logger.WithField("landed_url", landed).Info("Registry page found by direct probe")
		return models.ResolutionOutcome{Status: models.ResolutionResolved, LandedURL: landed}
	}

	if len(slugs) > 0 && faults == len(slugs) {
		return models.ResolutionOutcome{Status: models.ResolutionError, Err: lastErr}
	}
	return models.ResolutionOutcome{Status: models.ResolutionNotFound}
}

func (s *DirectProbeStrategy) fetch(ctx context.Context, page BrowserContext, target string) (string, error) {
	if err := page.Navigate(ctx, target); err != nil {
		return "", fmt.Errorf("navigate %s: %w", target, err)
	}
	if err := s.pacer.wait(ctx, s.settle); err != nil {
		return "", err
	}
	html, err := page.GetHTML(ctx)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", target, err)
	}
	return html, nil
}

// SearchStrategy queries a search engine scoped to the registry domain
type SearchStrategy struct {
	registry       config.RegistryConfig
	search         config.SearchConfig
	registryHost   string
	gate           *ObstacleGate
	settle         config.DelayRange
	navigateSettle config.DelayRange
	pacer          pacer
	logger         *logrus.Logger
}

// NewSearchStrategy creates the search-engine fallback strategy
func NewSearchStrategy(registry config.RegistryConfig, search config.SearchConfig, gate *ObstacleGate, settle, navigateSettle config.DelayRange, clock Clock, logger *logrus.Logger) (*SearchStrategy, error) {
	base, err := url.Parse(registry.BaseURL)
	if err != nil || base.Host == "" {
		return nil, fmt.Errorf("invalid registry base URL %q", registry.BaseURL)
	}

	return &SearchStrategy{
		registry:       registry,
		search:         search,
		registryHost:   bareHost(base.Hostname()),
		gate:           gate,
		settle:         settle,
		navigateSettle: navigateSettle,
		pacer:          newPacer(clock),
		logger:         logger,
	}, nil
}

func (s *SearchStrategy) Name() string { return "search" }

// QueryURL builds the domain-scoped search URL for a company name
func (s *SearchStrategy) QueryURL(rawName string) string {
	query := fmt.Sprintf("site:%s %s", s.registryHost, strings.TrimSpace(rawName))
	return s.search.EngineURL + "?q=" + url.QueryEscape(query)
}

func (s *SearchStrategy) Resolve(ctx context.Context, page BrowserContext, rawName string) models.ResolutionOutcome {
	searchURL := s.QueryURL(rawName)
	logger := s.logger.WithFields(logrus.Fields{
		"company": rawName,
		"url":     searchURL,
	})
	logger.Info("Falling back to search engine")

	if err := page.Navigate(ctx, searchURL); err != nil {
		return errorOutcome(ctx, fmt.Errorf("navigate search: %w", err))
	}
	if err := s.pacer.wait(ctx, s.settle); err != nil {
		return errorOutcome(ctx, err)
	}

	html, err := page.GetHTML(ctx)
	if err != nil {
		return errorOutcome(ctx, fmt.Errorf("read search results: %w", err))
	}

	gate, err := s.gate.CheckAndWait(ctx, page, html)
	if err != nil {
		return errorOutcome(ctx, err)
	}
	if gate == GateTimedOut {
		return models.ResolutionOutcome{Status: models.ResolutionObstacleTimeout}
	}

	// The gate may have waited on a different document
	html, err = page.GetHTML(ctx)
	if err != nil {
		return errorOutcome(ctx, fmt.Errorf("read search results: %w", err))
	}
	html, found, err := pollForSelector(ctx, s.pacer.clock, page, html, s.search.ClearanceSelector, s.search.ResultsTimeout, s.search.PollInterval, s.logger)
	if err != nil {
		return errorOutcome(ctx, err)
	}
	if !found {
		logger.Debug("No result headings, scanning all links")
	}

	pageURL := currentURLOr(ctx, page, searchURL)
	link, ok := s.FirstAcceptedLink(html, pageURL)
	if !ok {
		logger.Info("No registry link in search results")
		return models.ResolutionOutcome{Status: models.ResolutionNotFound}
	}

	logger = logger.WithField("link", link)
	if err := page.Navigate(ctx, link); err != nil {
		return errorOutcome(ctx, fmt.Errorf("navigate result: %w", err))
	}
	if err := s.pacer.wait(ctx, s.navigateSettle); err != nil {
		return errorOutcome(ctx, err)
	}

	landed := currentURLOr(ctx, page, link)
	logger.WithField("landed_url", landed).Info("Registry page found by search")
	return models.ResolutionOutcome{Status: models.ResolutionResolved, LandedURL: landed}
}

// FirstAcceptedLink scans result headings in document order, then every
// hyperlink, and returns the first link into the registry that is not the
// registry's own search path.
func (s *SearchStrategy) FirstAcceptedLink(html, pageURL string) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", false
	}
	base, _ := url.Parse(pageURL)

	var accepted string
	doc.Find(s.search.ClearanceSelector).EachWithBreak(func(_ int, heading *goquery.Selection) bool {
		href, ok := heading.Closest("a").Attr("href")
		if !ok {
			href, ok = heading.Find("a[href]").First().Attr("href")
		}
		if ok {
			accepted, ok = s.acceptLink(href, base)
		}
		return !ok
	})
	if accepted != "" {
		return accepted, true
	}

	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		var ok bool
		accepted, ok = s.acceptLink(href, base)
		return !ok
	})
	return accepted, accepted != ""
}

func (s *SearchStrategy) acceptLink(href string, base *url.URL) (string, bool) {
	target := unwrapResultLink(href, base)
	if target == nil {
		return "", false
	}
	if target.Scheme != "http" && target.Scheme != "https" {
		return "", false
	}
	if bareHost(target.Hostname()) != s.registryHost {
		return "", false
	}
	if s.isRegistrySearch(target.Path) {
		return "", false
	}
	return target.String(), true
}

// isRegistrySearch matches the registry's own search path on a segment
// boundary, with or without the trailing slash
func (s *SearchStrategy) isRegistrySearch(path string) bool {
	prefix := strings.TrimRight(s.registry.SearchPath, "/")
	if prefix == "" {
		return false
	}
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

// unwrapResultLink resolves href against base and follows /url?q= redirects
func unwrapResultLink(href string, base *url.URL) *url.URL {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return nil
	}
	if base != nil {
		ref = base.ResolveReference(ref)
	}

	if ref.Path == "/url" {
		for _, key := range []string{"q", "url"} {
			if inner := ref.Query().Get(key); inner != "" {
				if target, err := url.Parse(inner); err == nil && target.IsAbs() {
					return target
				}
			}
		}
	}
	return ref
}

func bareHost(host string) string {
	return strings.TrimPrefix(strings.ToLower(host), "www.")
}

func currentURLOr(ctx context.Context, page BrowserContext, fallback string) string {
	if current, err := page.CurrentURL(ctx); err == nil && current != "" {
		return current
	}
	return fallback
}

func errorOutcome(ctx context.Context, err error) models.ResolutionOutcome {
	if ctx.Err() != nil {
		err = ctx.Err()
	}
	return models.ResolutionOutcome{Status: models.ResolutionError, Err: err}
}
