package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/nexconsult/nif-lookup/internal/config"
)

const notFoundPage = `<html><body><h2>Página não encontrada</h2></body></html>`

// fakePage serves scripted markup per URL. Successive GetHTML calls on the
// same URL walk the script; the last entry repeats.
type fakePage struct {
	mu        sync.Mutex
	id        string
	pages     map[string][]string
	navErrs   map[string]error
	redirects map[string]string
	current   string
	reads     map[string]int
	visits    []string
	fallback  string
	// onNavigate runs before each navigation
	onNavigate func(url string)
}

func newFakePage() *fakePage {
	return &fakePage{
		id:        "fake-browser",
		pages:     make(map[string][]string),
		navErrs:   make(map[string]error),
		redirects: make(map[string]string),
		reads:     make(map[string]int),
		fallback:  notFoundPage,
	}
}

func (p *fakePage) serve(url string, html ...string) *fakePage {
	p.pages[url] = html
	return p
}

func (p *fakePage) failOn(url string, err error) *fakePage {
	p.navErrs[url] = err
	return p
}

func (p *fakePage) Navigate(ctx context.Context, url string) error {
	if p.onNavigate != nil {
		p.onNavigate(url)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	p.visits = append(p.visits, url)
	if err := p.navErrs[url]; err != nil {
		return err
	}
	if to, ok := p.redirects[url]; ok {
		url = to
	}
	p.current = url
	return nil
}

func (p *fakePage) GetHTML(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	script, ok := p.pages[p.current]
	if !ok || len(script) == 0 {
		return p.fallback, nil
	}
	i := p.reads[p.current]
	p.reads[p.current]++
	if i >= len(script) {
		i = len(script) - 1
	}
	return script[i], nil
}

func (p *fakePage) CurrentURL(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current, nil
}

func (p *fakePage) Close() error    { return nil }
func (p *fakePage) IsHealthy() bool { return true }
func (p *fakePage) GetID() string   { return p.id }

func (p *fakePage) visited() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.visits...)
}

// fakeClock advances virtual time on Sleep
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	c.sleeps = append(c.sleeps, d)
	return nil
}

func (c *fakeClock) recorded() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

// fakeBrowserService hands out the queued pages first, then page
type fakeBrowserService struct {
	mu       sync.Mutex
	page     BrowserContext
	queue    []BrowserContext
	err      error
	acquired int
	released int
}

func (s *fakeBrowserService) GetBrowser(ctx context.Context) (BrowserContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	s.acquired++
	if len(s.queue) > 0 {
		next := s.queue[0]
		s.queue = s.queue[1:]
		return next, nil
	}
	return s.page, nil
}

func (s *fakeBrowserService) failWith(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func (s *fakeBrowserService) enqueue(pages ...BrowserContext) {
	s.mu.Lock()
	s.queue = append(s.queue, pages...)
	s.mu.Unlock()
}

func (s *fakeBrowserService) ReleaseBrowser(BrowserContext) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.released++
	return nil
}

func (s *fakeBrowserService) releases() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.released
}

func (s *fakeBrowserService) GetStats() map[string]interface{} {
	return map[string]interface{}{"total_browsers": 1}
}

func (s *fakeBrowserService) Health() map[string]interface{} {
	return map[string]interface{}{"status": "healthy"}
}

func (s *fakeBrowserService) Restart() error { return nil }
func (s *fakeBrowserService) Close() error   { return nil }

var errNetwork = errors.New("net::ERR_CONNECTION_RESET")

func fixed(d time.Duration) config.DelayRange {
	return config.DelayRange{Min: d, Max: d}
}

// testConfig mirrors the defaults with fixed delays
func testConfig() *config.Config {
	return &config.Config{
		Registry: config.RegistryConfig{
			BaseURL:        "https://www.racius.com",
			NotFoundMarker: "Página não encontrada",
			SearchPath:     "/q/",
		},
		Search: config.SearchConfig{
			Enabled:           true,
			EngineURL:         "https://www.google.com/search",
			ObstacleMarker:    "recaptcha",
			ClearanceSelector: "h3",
			ObstacleTimeout:   300 * time.Second,
			ResultsTimeout:    15 * time.Second,
			PollInterval:      time.Second,
		},
		Pipeline: config.PipelineConfig{
			MaxAttempts:       2,
			CheckpointEvery:   5,
			DirectSettle:      fixed(2 * time.Second),
			SearchSettle:      fixed(4 * time.Second),
			NavigateSettle:    fixed(2 * time.Second),
			ObstacleSettle:    fixed(2 * time.Second),
			InterQueryDelay:   fixed(4 * time.Second),
			RetryDelay:        fixed(6 * time.Second),
			CacheEnabled:      true,
			MinNameSimilarity: 0.85,
		},
	}
}
