package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nexconsult/nif-lookup/internal/models"
	"github.com/sirupsen/logrus"
)

// PipelineSession owns the page-fetch capability for one batch run
type PipelineSession struct {
	id        string
	browsers  BrowserServiceInterface
	page      BrowserContext
	logger    *logrus.Entry
	startedAt time.Time

	mu          sync.Mutex
	held        bool
	results     []models.CompanyResult
	retries     int
	checkpoints int
	cacheHits   int
	swaps       int
	closed      bool

	closeOnce sync.Once
	closeErr  error
}

// NewSession acquires a browser for the run. Failure here is fatal to the batch.
func NewSession(ctx context.Context, browsers BrowserServiceInterface, logger *logrus.Logger) (*PipelineSession, error) {
	page, err := browsers.GetBrowser(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBrowserUnavailable, err)
	}

	id := uuid.New().String()
	session := &PipelineSession{
		id:        id,
		browsers:  browsers,
		page:      page,
		held:      true,
		startedAt: time.Now(),
		logger: logger.WithFields(logrus.Fields{
			"session_id": id,
			"browser_id": page.GetID(),
		}),
	}
	session.logger.Info("Pipeline session started")
	return session, nil
}

// ID returns the session identifier
func (s *PipelineSession) ID() string {
	return s.id
}

// Page returns the session's page-fetch capability
func (s *PipelineSession) Page() BrowserContext {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page
}

// EnsurePage swaps the window for a fresh one from the pool when it stopped
// working. When no replacement can be had the session holds no window and
// the next call tries again.
func (s *PipelineSession) EnsurePage(ctx context.Context) error {
	s.mu.Lock()
	page, held := s.page, s.held
	s.mu.Unlock()

	if held && page.IsHealthy() {
		return nil
	}

	if held {
		s.logger.WithField("browser_id", page.GetID()).Warn("Browser stopped working, swapping it")
		s.mu.Lock()
		s.held = false
		s.mu.Unlock()
		if err := s.browsers.ReleaseBrowser(page); err != nil {
			s.logger.WithError(err).Warn("Failed to release broken browser")
		}
	}

	fresh, err := s.browsers.GetBrowser(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBrowserUnavailable, err)
	}

	s.mu.Lock()
	s.page = fresh
	s.held = true
	s.swaps++
	s.mu.Unlock()

	s.logger.WithField("browser_id", fresh.GetID()).Info("Continuing on a new browser")
	return nil
}

// Logger returns an entry tagged with the session fields
func (s *PipelineSession) Logger() *logrus.Entry {
	return s.logger
}

// Record appends a terminal result and returns the completed count
func (s *PipelineSession) Record(result models.CompanyResult) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.results = append(s.results, result)
	if result.FromCache {
		s.cacheHits++
	}
	return len(s.results)
}

// Results returns a copy of the results recorded so far
func (s *PipelineSession) Results() []models.CompanyResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.CompanyResult, len(s.results))
	copy(out, s.results)
	return out
}

func (s *PipelineSession) addRetry() {
	s.mu.Lock()
	s.retries++
	s.mu.Unlock()
}

func (s *PipelineSession) addCheckpoint() {
	s.mu.Lock()
	s.checkpoints++
	s.mu.Unlock()
}

// Stats returns the session counters
func (s *PipelineSession) Stats() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	return map[string]interface{}{
		"session_id":  s.id,
		"completed":   len(s.results),
		"retries":     s.retries,
		"checkpoints": s.checkpoints,
		"cache_hits":  s.cacheHits,
		"swaps":       s.swaps,
		"closed":      s.closed,
		"uptime":      time.Since(s.startedAt).String(),
	}
}

// Close releases the browser exactly once; later calls return the first result
func (s *PipelineSession) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		page, held := s.page, s.held
		s.held = false
		s.mu.Unlock()

		if held {
			if err := s.browsers.ReleaseBrowser(page); err != nil {
				s.closeErr = fmt.Errorf("release browser: %w", err)
			}
		}
		s.logger.WithField("duration", time.Since(s.startedAt).String()).Info("Pipeline session closed")
	})
	return s.closeErr
}

// Closed reports whether Close has run
func (s *PipelineSession) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
