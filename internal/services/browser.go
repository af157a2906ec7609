package services

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"github.com/nexconsult/nif-lookup/internal/config"
	"github.com/sirupsen/logrus"
)

// maxConsecutiveFailures marks a page unhealthy so it is swapped on release
const maxConsecutiveFailures = 3

// BrowserService owns a fixed pool of Chrome windows. Each window is handed
// to one pipeline session at a time.
type BrowserService struct {
	config   config.BrowserConfig
	logger   *logrus.Logger
	pool     chan *ChromeBrowserContext
	contexts []*ChromeBrowserContext
	launched int
	mu       sync.RWMutex
	closed   bool
}

// ChromeBrowserContext is one Chrome window driven through chromedp
type ChromeBrowserContext struct {
	id          string
	chromedp    context.Context
	cancel      context.CancelFunc
	pageTimeout time.Duration
	createdAt   time.Time

	mu          sync.RWMutex
	closed      bool
	failures    int
	navigations int
	lastURL     string
}

// NewBrowserService launches the pool. A pool that starts empty is not an
// error here; acquiring a browser from it is.
func NewBrowserService(cfg config.BrowserConfig, logger *logrus.Logger) (*BrowserService, error) {
	service := &BrowserService{
		config:   cfg,
		logger:   logger,
		pool:     make(chan *ChromeBrowserContext, cfg.PoolSize),
		contexts: make([]*ChromeBrowserContext, 0, cfg.PoolSize),
	}

	service.fill()

	logger.WithFields(logrus.Fields{
		"browsers": len(service.contexts),
		"headless": cfg.Headless,
	}).Info("Browser service initialized")
	return service, nil
}

// fill launches browsers up to the pool size. Caller holds mu or owns s.
func (s *BrowserService) fill() {
	for len(s.contexts) < s.config.PoolSize {
		page, err := s.launch()
		if err != nil {
			s.logger.WithError(err).Error("Failed to launch browser")
			return
		}
		s.contexts = append(s.contexts, page)
		s.pool <- page
	}
}

// GetBrowser waits up to the acquire timeout for a free window
func (s *BrowserService) GetBrowser(ctx context.Context) (BrowserContext, error) {
	if s.isClosed() {
		return nil, fmt.Errorf("%w: service is closed", ErrBrowserUnavailable)
	}

	timer := time.NewTimer(s.config.AcquireTimeout)
	defer timer.Stop()

	select {
	case page, ok := <-s.pool:
		if !ok {
			return nil, fmt.Errorf("%w: service is closed", ErrBrowserUnavailable)
		}
		if page.IsHealthy() {
			return page, nil
		}
		s.logger.WithField("browser_id", page.GetID()).Warn("Browser window is gone, launching a new one")
		return s.replace(page)

	case <-timer.C:
		return nil, fmt.Errorf("%w: none free after %s", ErrBrowserUnavailable, s.config.AcquireTimeout)

	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// replace closes old and launches its successor, which the caller now holds
func (s *BrowserService) replace(old *ChromeBrowserContext) (*ChromeBrowserContext, error) {
	old.Close()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.forget(old)

	page, err := s.launch()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBrowserUnavailable, err)
	}
	s.contexts = append(s.contexts, page)
	return page, nil
}

// forget drops page from the roster. Caller holds mu.
func (s *BrowserService) forget(page *ChromeBrowserContext) {
	for i, c := range s.contexts {
		if c == page {
			s.contexts = append(s.contexts[:i], s.contexts[i+1:]...)
			return
		}
	}
}

// ReleaseBrowser returns a window to the pool, swapping it first when it
// stopped working during the session
func (s *BrowserService) ReleaseBrowser(browserCtx BrowserContext) error {
	page, ok := browserCtx.(*ChromeBrowserContext)
	if !ok {
		return fmt.Errorf("cannot release %T: not a chrome browser", browserCtx)
	}

	if !page.IsHealthy() && !s.isClosed() {
		s.logger.WithField("browser_id", page.GetID()).Warn("Released browser is unhealthy, replacing it")
		fresh, err := s.replace(page)
		if err != nil {
			return err
		}
		page = fresh
	}

	// Close takes the write lock, so the pool cannot be closed mid-send
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		page.Close()
		return nil
	}
	select {
	case s.pool <- page:
	default:
		page.Close()
	}
	return nil
}

func (s *BrowserService) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// allocatorOptions builds the Chrome flags. The window size is picked per
// browser within the configured bounds.
func (s *BrowserService) allocatorOptions() []chromedp.ExecAllocatorOption {
	width := randomBetween(s.config.MinWidth, s.config.MaxWidth)
	height := randomBetween(s.config.MinHeight, s.config.MaxHeight)

	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.DisableGPU,
		chromedp.NoSandbox,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("disable-features", "TranslateUI"),
		chromedp.Flag("lang", "pt-PT"),
		chromedp.WindowSize(width, height),
		chromedp.UserAgent(s.config.UserAgent),
	}

	// A visible window is what lets an operator clear a search challenge
	if s.config.Headless {
		opts = append(opts, chromedp.Headless)
	}
	return opts
}

func randomBetween(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + rand.IntN(hi-lo+1)
}

// launch starts a Chrome window and checks it can load a blank page
func (s *BrowserService) launch() (*ChromeBrowserContext, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), s.allocatorOptions()...)
	ctx, ctxCancel := chromedp.NewContext(allocCtx)

	page := &ChromeBrowserContext{
		id:          "chrome-" + uuid.New().String()[:8],
		chromedp:    ctx,
		cancel:      func() { ctxCancel(); allocCancel() },
		pageTimeout: s.config.PageTimeout,
		createdAt:   time.Now(),
	}

	probeCtx, probeCancel := context.WithTimeout(ctx, 15*time.Second)
	defer probeCancel()

	if err := chromedp.Run(probeCtx, chromedp.Navigate("about:blank")); err != nil {
		page.Close()
		return nil, fmt.Errorf("start chrome: %w", err)
	}

	s.launched++
	s.logger.WithField("browser_id", page.id).Debug("Browser launched")
	return page, nil
}

// GetStats reports the pool and what each window last loaded
func (s *BrowserService) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	healthy := 0
	windows := make([]map[string]interface{}, 0, len(s.contexts))
	for _, page := range s.contexts {
		if page.IsHealthy() {
			healthy++
		}
		windows = append(windows, page.stats())
	}

	return map[string]interface{}{
		"total_browsers":   len(s.contexts),
		"healthy_browsers": healthy,
		"available":        len(s.pool),
		"in_use":           len(s.contexts) - len(s.pool),
		"pool_size":        s.config.PoolSize,
		"launched":         s.launched,
		"headless":         s.config.Headless,
		"browsers":         windows,
	}
}

// Health is unhealthy with no working window and degraded below pool size
func (s *BrowserService) Health() map[string]interface{} {
	stats := s.GetStats()
	healthy := stats["healthy_browsers"].(int)

	status := "healthy"
	switch {
	case healthy == 0:
		status = "unhealthy"
	case healthy < s.config.PoolSize:
		status = "degraded"
	}

	return map[string]interface{}{
		"status": status,
		"stats":  stats,
	}
}

// Restart closes every window, including one held by a running batch, and
// launches a fresh pool
func (s *BrowserService) Restart() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("%w: service is closed", ErrBrowserUnavailable)
	}

	if inUse := len(s.contexts) - len(s.pool); inUse > 0 {
		s.logger.WithField("in_use", inUse).Warn("Restarting browsers that are in use")
	}
	for _, page := range s.contexts {
		page.Close()
	}
	for len(s.pool) > 0 {
		<-s.pool
	}
	s.contexts = s.contexts[:0]

	s.fill()
	if len(s.contexts) == 0 {
		return fmt.Errorf("%w: no browser could be started", ErrBrowserUnavailable)
	}

	s.logger.WithField("browsers", len(s.contexts)).Info("Browser pool restarted")
	return nil
}

// Close shuts every window. Later calls are no-ops.
func (s *BrowserService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	for _, page := range s.contexts {
		page.Close()
	}
	for len(s.pool) > 0 {
		<-s.pool
	}
	close(s.pool)

	s.logger.Info("Browser service closed")
	return nil
}

// run executes actions bounded by the page timeout and the caller's ctx
func (c *ChromeBrowserContext) run(ctx context.Context, actions ...chromedp.Action) error {
	if !c.IsHealthy() {
		return fmt.Errorf("browser %s is not usable", c.id)
	}

	runCtx, cancel := context.WithTimeout(c.chromedp, c.pageTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	// The caller giving up says nothing about the window
	if ctx.Err() == nil {
		c.recordResult(err)
	}
	return err
}

func (c *ChromeBrowserContext) recordResult(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err == nil {
		c.failures = 0
		return
	}
	c.failures++
}

// Navigate loads url and waits for the document
func (c *ChromeBrowserContext) Navigate(ctx context.Context, url string) error {
	if err := c.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}

	c.mu.Lock()
	c.navigations++
	c.lastURL = url
	c.mu.Unlock()
	return nil
}

// GetHTML returns the markup of the current document
func (c *ChromeBrowserContext) GetHTML(ctx context.Context) (string, error) {
	var html string
	if err := c.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("read page markup: %w", err)
	}
	return html, nil
}

// CurrentURL returns the location after redirects
func (c *ChromeBrowserContext) CurrentURL(ctx context.Context) (string, error) {
	var location string
	if err := c.run(ctx, chromedp.Location(&location)); err != nil {
		return "", fmt.Errorf("read page location: %w", err)
	}
	return location, nil
}

// Close shuts the window. Safe to call more than once.
func (c *ChromeBrowserContext) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	if c.cancel != nil {
		c.cancel()
	}
	return nil
}

// IsHealthy is false once the window was closed, by us or by the operator,
// or after repeated failed actions
func (c *ChromeBrowserContext) IsHealthy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed || c.failures >= maxConsecutiveFailures {
		return false
	}
	return c.chromedp == nil || c.chromedp.Err() == nil
}

// GetID returns the window id used in logs
func (c *ChromeBrowserContext) GetID() string {
	return c.id
}

func (c *ChromeBrowserContext) stats() map[string]interface{} {
	healthy := c.IsHealthy()

	c.mu.RLock()
	defer c.mu.RUnlock()

	return map[string]interface{}{
		"id":          c.id,
		"healthy":     healthy,
		"navigations": c.navigations,
		"last_url":    c.lastURL,
		"failures":    c.failures,
		"uptime":      time.Since(c.createdAt).Round(time.Second).String(),
	}
}
