package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/nexconsult/nif-lookup/internal/config"
	"github.com/nexconsult/nif-lookup/internal/logger"
	"github.com/nexconsult/nif-lookup/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pipelineFixture struct {
	pipeline *Pipeline
	page     *fakePage
	browsers *fakeBrowserService
	clock    *fakeClock
	sink     *MemorySink
	cache    *CacheService
}

func newPipelineFixture(t *testing.T, cfg *config.Config) *pipelineFixture {
	t.Helper()

	clock := newFakeClock()
	cache := NewCacheService(nil, time.Hour, cacheKeyPrefix, logger.Discard())
	pipeline, err := BuildPipeline(cfg, cache, clock, logger.Discard())
	require.NoError(t, err)

	page := newFakePage()
	return &pipelineFixture{
		pipeline: pipeline,
		page:     page,
		browsers: &fakeBrowserService{page: page},
		clock:    clock,
		sink:     NewMemorySink(nil),
		cache:    cache,
	}
}

func (f *pipelineFixture) run(t *testing.T, ctx context.Context, names ...string) ([]models.CompanyResult, error) {
	t.Helper()

	session, err := NewSession(ctx, f.browsers, logger.Discard())
	require.NoError(t, err)
	return f.pipeline.Run(ctx, session, models.NewCompanyQueries(names), f.sink)
}

func registryPage(name, nif string) string {
	return fmt.Sprintf(`<html><head><title>%s</title></head><body><h1>%s</h1><div data-nif="%s"></div></body></html>`, name, name, nif)
}

func TestPipeline_ScenarioDirectProbe(t *testing.T) {
	f := newPipelineFixture(t, testConfig())
	f.page.serve("https://www.racius.com/acme-lda/", registryPage("Acme, Lda.", "509123456"))

	results, err := f.run(t, context.Background(), "Acme, Lda.")
	require.NoError(t, err)
	require.Len(t, results, 1)

	r := results[0]
	assert.Equal(t, "Acme, Lda.", r.CompanyName)
	assert.Equal(t, "509123456", r.NIF)
	assert.Equal(t, models.StatusSucceeded, r.Status)
	assert.Equal(t, 1, r.Attempts)
	assert.Equal(t, RuleDataAttribute, r.MatchedRule)
	assert.True(t, r.Suspect, "check digit of 509123456 fails")
	assert.False(t, r.NameMismatch)

	final, writes := f.sink.Final()
	assert.Equal(t, 1, writes)
	assert.Equal(t, results, final)
}

func TestPipeline_ScenarioObstacleTimeoutExhausts(t *testing.T) {
	f := newPipelineFixture(t, testConfig())

	search := f.pipeline.resolver.strategies[1].(*SearchStrategy)
	f.page.serve(search.QueryURL("Gamma Unipessoal"), challengePage)

	results, err := f.run(t, context.Background(), "Gamma Unipessoal")
	require.NoError(t, err)
	require.Len(t, results, 1)

	r := results[0]
	assert.Equal(t, models.StatusPageNotFound, r.Status)
	assert.Equal(t, models.PlaceholderPageNotFound, r.NIF)
	assert.Equal(t, 2, r.Attempts)

	sleeps := f.clock.recorded()
	assert.Contains(t, sleeps, 6*time.Second)
	assert.Equal(t, 1, countDuration(sleeps, 6*time.Second), "exactly one retry delay")
}

func TestPipeline_IdentifierNotFound(t *testing.T) {
	f := newPipelineFixture(t, testConfig())
	f.page.serve("https://www.racius.com/omega/", `<html><body><h1>Omega</h1><p>Sem contribuinte</p></body></html>`)

	results, err := f.run(t, context.Background(), "Omega")
	require.NoError(t, err)

	assert.Equal(t, models.StatusIdentifierNotFound, results[0].Status)
	assert.Equal(t, models.PlaceholderNotFound, results[0].NIF)
	assert.Equal(t, 2, results[0].Attempts)
}

func TestPipeline_FaultsBecomeSearchFailed(t *testing.T) {
	cfg := testConfig()
	cfg.Search.Enabled = false
	f := newPipelineFixture(t, cfg)
	f.page.failOn("https://www.racius.com/delta/", errNetwork)

	results, err := f.run(t, context.Background(), "Delta")
	require.NoError(t, err)

	assert.Equal(t, models.StatusSearchFailed, results[0].Status)
	assert.Equal(t, models.PlaceholderPageNotFound, results[0].NIF)
}

func TestPipeline_RetryBoundAndDelays(t *testing.T) {
	cfg := testConfig()
	cfg.Search.Enabled = false
	cfg.Pipeline.MaxAttempts = 3
	f := newPipelineFixture(t, cfg)

	results, err := f.run(t, context.Background(), "Nowhere")
	require.NoError(t, err)
	assert.Equal(t, 3, results[0].Attempts)

	// settle, retry, settle, retry, settle
	assert.Equal(t, []time.Duration{
		2 * time.Second, 6 * time.Second,
		2 * time.Second, 6 * time.Second,
		2 * time.Second,
	}, f.clock.recorded())
	assert.Len(t, f.page.visited(), 3)
	assert.Greater(t, cfg.Pipeline.RetryDelay.Min, cfg.Pipeline.InterQueryDelay.Max)
}

func TestPipeline_CheckpointsArePrefixesOfFinal(t *testing.T) {
	f := newPipelineFixture(t, testConfig())

	var names []string
	for i := 1; i <= 12; i++ {
		name := fmt.Sprintf("Empresa %d", i)
		names = append(names, name)
		f.page.serve(fmt.Sprintf("https://www.racius.com/empresa-%d/", i), registryPage(name, "509123457"))
	}

	results, err := f.run(t, context.Background(), names...)
	require.NoError(t, err)
	require.Len(t, results, 12)

	for i, r := range results {
		assert.Equal(t, names[i], r.CompanyName, "input order preserved")
	}

	checkpoints := f.sink.Checkpoints()
	require.Len(t, checkpoints, 2)
	assert.Len(t, checkpoints[0], 5)
	assert.Len(t, checkpoints[1], 10)

	final, writes := f.sink.Final()
	assert.Equal(t, 1, writes)
	for _, cp := range checkpoints {
		assert.Equal(t, final[:len(cp)], cp)
	}

	// inter-query delay between queries only
	assert.Equal(t, 11, countDuration(f.clock.recorded(), 4*time.Second))
}

func TestPipeline_CacheHitSkipsBrowserAndDelay(t *testing.T) {
	cfg := testConfig()
	cfg.Search.Enabled = false
	f := newPipelineFixture(t, cfg)
	require.NoError(t, f.cache.Set(context.Background(), "nif:acme-lda", models.CachedNIF{
		NIF:         "509123457",
		LandedURL:   "https://www.racius.com/acme-lda/",
		MatchedRule: RuleDataAttribute,
	}))

	results, err := f.run(t, context.Background(), "Acme, Lda.", "Beta")
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.True(t, results[0].FromCache)
	assert.Equal(t, "509123457", results[0].NIF)
	assert.Equal(t, models.StatusSucceeded, results[0].Status)
	assert.Equal(t, "https://www.racius.com/acme-lda/", results[0].LandedURL)
	assert.Equal(t, RuleDataAttribute, results[0].MatchedRule)
	assert.NotContains(t, f.page.visited(), "https://www.racius.com/acme-lda/")
	assert.Zero(t, countDuration(f.clock.recorded(), 4*time.Second))
}

func TestPipeline_SuccessIsCached(t *testing.T) {
	f := newPipelineFixture(t, testConfig())
	f.page.serve("https://www.racius.com/acme-lda/", registryPage("Acme, Lda.", "509123457"))

	_, err := f.run(t, context.Background(), "Acme, Lda.")
	require.NoError(t, err)

	cached, err := f.cache.Get(context.Background(), f.pipeline.CacheKey("Acme, Lda."))
	require.NoError(t, err)
	assert.Equal(t, "509123457", cached.NIF)
	assert.Equal(t, "Acme, Lda.", cached.CompanyName)
	assert.Equal(t, "https://www.racius.com/acme-lda/", cached.LandedURL)
	assert.NotEmpty(t, cached.MatchedRule)
}

func TestPipeline_SuspectIsNotCached(t *testing.T) {
	f := newPipelineFixture(t, testConfig())
	f.page.serve("https://www.racius.com/acme-lda/", registryPage("Acme, Lda.", "509123456"))

	_, err := f.run(t, context.Background(), "Acme, Lda.")
	require.NoError(t, err)

	_, err = f.cache.Get(context.Background(), "nif:acme-lda")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestPipeline_NameMismatchIsFlaggedNotRejected(t *testing.T) {
	f := newPipelineFixture(t, testConfig())
	f.page.serve("https://www.racius.com/acme-lda/", registryPage("Zeta Imobiliária, S.A.", "509123457"))

	results, err := f.run(t, context.Background(), "Acme, Lda.")
	require.NoError(t, err)

	r := results[0]
	assert.Equal(t, models.StatusSucceeded, r.Status)
	assert.Equal(t, "509123457", r.NIF)
	assert.True(t, r.NameMismatch)
	assert.Less(t, r.NameSimilarity, 0.85)
}

func TestPipeline_SessionReleasedOnceAndFinalWritten(t *testing.T) {
	f := newPipelineFixture(t, testConfig())
	f.page.serve("https://www.racius.com/acme-lda/", registryPage("Acme, Lda.", "509123457"))

	session, err := NewSession(context.Background(), f.browsers, logger.Discard())
	require.NoError(t, err)

	_, err = f.pipeline.Run(context.Background(), session, models.NewCompanyQueries([]string{"Acme, Lda."}), f.sink)
	require.NoError(t, err)

	assert.True(t, session.Closed())
	assert.Equal(t, 1, f.browsers.releases())
	require.NoError(t, session.Close())
	assert.Equal(t, 1, f.browsers.releases())

	_, err = f.pipeline.Run(context.Background(), session, nil, f.sink)
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestPipeline_CancelledRunWritesNothingUntried(t *testing.T) {
	f := newPipelineFixture(t, testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	session, err := NewSession(context.Background(), f.browsers, logger.Discard())
	require.NoError(t, err)
	cancel()

	results, err := f.pipeline.Run(ctx, session, models.NewCompanyQueries([]string{"Alfa", "Beta", "Gama"}), f.sink)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, results)
	assert.Empty(t, f.page.visited())

	final, writes := f.sink.Final()
	assert.Equal(t, 1, writes)
	assert.Empty(t, final)
	assert.Equal(t, 1, f.browsers.releases())
}

func TestPipeline_CancelledRunPersistsFinishedPrefix(t *testing.T) {
	f := newPipelineFixture(t, testConfig())
	f.page.serve("https://www.racius.com/acme-lda/", registryPage("Acme, Lda.", "509123457"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.page.onNavigate = func(url string) {
		if url == "https://www.racius.com/beta/" {
			cancel()
		}
	}

	results, err := f.run(t, ctx, "Acme, Lda.", "Beta", "Gama")
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, results, 1)
	assert.Equal(t, "Acme, Lda.", results[0].CompanyName)
	assert.Equal(t, "509123457", results[0].NIF)

	final, _ := f.sink.Final()
	assert.Equal(t, results, final)
	assert.NotContains(t, f.page.visited(), "https://www.racius.com/gama/")
}

func TestPipeline_BrokenBrowserIsSwapped(t *testing.T) {
	f := newPipelineFixture(t, testConfig())
	f.page.serve("https://www.racius.com/acme-lda/", registryPage("Acme, Lda.", "509123457"))

	broken := detachedPage("chrome-1")
	for i := 0; i < maxConsecutiveFailures; i++ {
		broken.recordResult(errNetwork)
	}
	f.browsers.page = broken

	session, err := NewSession(context.Background(), f.browsers, logger.Discard())
	require.NoError(t, err)
	f.browsers.enqueue(f.page)

	results, err := f.pipeline.Run(context.Background(), session, models.NewCompanyQueries([]string{"Acme, Lda."}), f.sink)
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, models.StatusSucceeded, results[0].Status)
	assert.Equal(t, "509123457", results[0].NIF)
	assert.Equal(t, 1, results[0].Attempts)
	assert.Equal(t, 1, session.Stats()["swaps"])
	assert.Equal(t, 2, f.browsers.releases(), "broken window and its replacement")
}

func TestPipeline_NoReplacementBrowserKeepsGoing(t *testing.T) {
	f := newPipelineFixture(t, testConfig())

	broken := detachedPage("chrome-1")
	for i := 0; i < maxConsecutiveFailures; i++ {
		broken.recordResult(errNetwork)
	}
	f.browsers.page = broken

	session, err := NewSession(context.Background(), f.browsers, logger.Discard())
	require.NoError(t, err)
	f.browsers.failWith(errNetwork)

	results, err := f.pipeline.Run(context.Background(), session, models.NewCompanyQueries([]string{"Alfa", "Beta"}), f.sink)
	require.NoError(t, err)

	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, models.StatusSearchFailed, r.Status)
		assert.Equal(t, 2, r.Attempts)
	}

	// once when swapping out; Close has nothing left to release
	assert.Equal(t, 1, f.browsers.releases())
	assert.Equal(t, 0, session.Stats()["swaps"])
}

func TestNewSession_BrowserUnavailable(t *testing.T) {
	_, err := NewSession(context.Background(), &fakeBrowserService{err: errNetwork}, logger.Discard())
	assert.ErrorIs(t, err, ErrBrowserUnavailable)
}

func countDuration(sleeps []time.Duration, d time.Duration) int {
	n := 0
	for _, s := range sleeps {
		if s == d {
			n++
		}
	}
	return n
}
