package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nexconsult/nif-lookup/internal/logger"
	"github.com/nexconsult/nif-lookup/internal/models"
	"github.com/nexconsult/nif-lookup/internal/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeLookup struct {
	result *models.CompanyResult
	err    error
	names  []string
}

func (f *fakeLookup) Lookup(_ context.Context, name string) (*models.CompanyResult, error) {
	f.names = append(f.names, name)
	return f.result, f.err
}

type fakeJobs struct {
	mu        sync.Mutex
	submitted [][]string
	submitErr error
	jobs      map[string]*models.JobResponse
	results   map[string][]models.CompanyResult
}

func newFakeJobs() *fakeJobs {
	return &fakeJobs{
		jobs:    make(map[string]*models.JobResponse),
		results: make(map[string][]models.CompanyResult),
	}
}

func (f *fakeJobs) Submit(names []string) (*models.JobResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	f.submitted = append(f.submitted, names)
	job := &models.JobResponse{ID: "job-1", Status: models.JobQueued, Total: len(names), CreatedAt: time.Now()}
	f.jobs[job.ID] = job
	return job, nil
}

func (f *fakeJobs) Get(id string) (*models.JobResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return nil, services.ErrJobNotFound
	}
	return job, nil
}

func (f *fakeJobs) Results(id string) ([]models.CompanyResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.jobs[id]; !ok {
		return nil, services.ErrJobNotFound
	}
	return f.results[id], nil
}

func (f *fakeJobs) Close() error { return nil }

func (f *fakeJobs) Health() map[string]interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return map[string]interface{}{"status": "healthy", "queued": len(f.jobs)}
}

type fakeCache struct {
	entries  map[string]models.CachedNIF
	cleared  bool
	statsErr error
}

func newFakeCache(entries map[string]models.CachedNIF) *fakeCache {
	if entries == nil {
		entries = make(map[string]models.CachedNIF)
	}
	return &fakeCache{entries: entries}
}

func (f *fakeCache) Get(_ context.Context, key string) (models.CachedNIF, error) {
	v, ok := f.entries[key]
	if !ok {
		return models.CachedNIF{}, services.ErrCacheMiss
	}
	return v, nil
}

func (f *fakeCache) Set(_ context.Context, key string, record models.CachedNIF) error {
	f.entries[key] = record
	return nil
}

func (f *fakeCache) Delete(_ context.Context, key string) error {
	delete(f.entries, key)
	return nil
}

func (f *fakeCache) Clear(_ context.Context) error {
	f.cleared = true
	f.entries = make(map[string]models.CachedNIF)
	return nil
}

func (f *fakeCache) Exists(_ context.Context, key string) (bool, error) {
	_, ok := f.entries[key]
	return ok, nil
}

func (f *fakeCache) GetStats(_ context.Context) (map[string]interface{}, error) {
	if f.statsErr != nil {
		return nil, f.statsErr
	}
	return map[string]interface{}{"size": len(f.entries)}, nil
}

func (f *fakeCache) Health() map[string]interface{} {
	return map[string]interface{}{"status": "healthy"}
}

type fakeBrowsers struct {
	status     string
	inUse      int
	restarts   int
	restartErr error
}

func (f *fakeBrowsers) GetBrowser(context.Context) (services.BrowserContext, error) {
	return nil, services.ErrBrowserUnavailable
}

func (f *fakeBrowsers) ReleaseBrowser(services.BrowserContext) error { return nil }

func (f *fakeBrowsers) GetStats() map[string]interface{} {
	return map[string]interface{}{"total_browsers": 1, "in_use": f.inUse}
}

func (f *fakeBrowsers) Health() map[string]interface{} {
	return map[string]interface{}{"status": f.status}
}

func (f *fakeBrowsers) Restart() error {
	f.restarts++
	return f.restartErr
}

func (f *fakeBrowsers) Close() error { return nil }

type staticHealth map[string]interface{}

func (h staticHealth) Health() map[string]interface{} { return h }

func perform(t *testing.T, router *gin.Engine, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func slugKey(name string) string {
	folded := strings.ToLower(strings.Join(strings.Fields(name), "-"))
	if folded == "" {
		return ""
	}
	return "nif:" + folded
}

var quietLogger = logger.Discard()
