package services

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/nexconsult/nif-lookup/internal/config"
	"github.com/nexconsult/nif-lookup/internal/logger"
	"github.com/nexconsult/nif-lookup/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const companyPage = `<html><head><title>Acme, Lda. | Racius</title></head><body><h1>Acme, Lda.</h1><div data-nif="509123457"></div></body></html>`

func newTestResolver(t *testing.T, cfg *config.Config, clock Clock) (*PageResolver, *DirectProbeStrategy, *SearchStrategy) {
	t.Helper()
	log := logger.Discard()

	direct := NewDirectProbeStrategy(cfg.Registry, NewNameNormalizer(), cfg.Pipeline.DirectSettle, clock, log)
	gate := NewObstacleGate(cfg.Search, cfg.Pipeline.ObstacleSettle, clock, log)
	search, err := NewSearchStrategy(cfg.Registry, cfg.Search, gate, cfg.Pipeline.SearchSettle, cfg.Pipeline.NavigateSettle, clock, log)
	require.NoError(t, err)

	strategies := []ResolutionStrategy{direct}
	if cfg.Search.Enabled {
		strategies = append(strategies, search)
	}
	return NewPageResolver(log, strategies...), direct, search
}

func TestPageResolver_DirectProbeHit(t *testing.T) {
	clock := newFakeClock()
	resolver, _, _ := newTestResolver(t, testConfig(), clock)

	page := newFakePage().serve("https://www.racius.com/acme-lda/", companyPage)

	out := resolver.Resolve(context.Background(), page, "Acme, Lda.")
	assert.Equal(t, models.ResolutionResolved, out.Status)
	assert.Equal(t, "https://www.racius.com/acme-lda/", out.LandedURL)
	assert.Equal(t, "direct", out.Strategy)
	assert.Equal(t, []string{"https://www.racius.com/acme-lda/"}, page.visited())
	assert.Equal(t, []time.Duration{2 * time.Second}, clock.recorded())
}

func TestPageResolver_SecondCandidate(t *testing.T) {
	resolver, _, _ := newTestResolver(t, testConfig(), newFakeClock())

	page := newFakePage().serve("https://www.racius.com/acme/", companyPage)

	out := resolver.Resolve(context.Background(), page, "Acme, Lda.")
	assert.Equal(t, models.ResolutionResolved, out.Status)
	assert.Equal(t, "https://www.racius.com/acme/", out.LandedURL)
	assert.Equal(t, []string{"https://www.racius.com/acme-lda/", "https://www.racius.com/acme/"}, page.visited())
}

func TestPageResolver_FaultOnOneCandidateKeepsProbing(t *testing.T) {
	resolver, _, _ := newTestResolver(t, testConfig(), newFakeClock())

	page := newFakePage().
		failOn("https://www.racius.com/acme-lda/", errNetwork).
		serve("https://www.racius.com/acme/", companyPage)

	out := resolver.Resolve(context.Background(), page, "Acme, Lda.")
	assert.Equal(t, models.ResolutionResolved, out.Status)
	assert.Equal(t, "https://www.racius.com/acme/", out.LandedURL)
}

func TestPageResolver_SearchSkipsRegistrySearchPath(t *testing.T) {
	clock := newFakeClock()
	resolver, _, search := newTestResolver(t, testConfig(), clock)

	results := `<html><body>
		<div class="g"><a href="https://www.racius.com/q/beta-comercio"><h3>Pesquisa: Beta Comercio</h3></a></div>
		<div class="g"><a href="https://www.racius.com/beta-comercio-lda/"><h3>Beta Comércio, Lda</h3></a></div>
	</body></html>`

	page := newFakePage().
		serve(search.QueryURL("Beta Comércio"), results).
		serve("https://www.racius.com/beta-comercio-lda/", companyPage)

	out := resolver.Resolve(context.Background(), page, "Beta Comércio")
	require.Equal(t, models.ResolutionResolved, out.Status)
	assert.Equal(t, "https://www.racius.com/beta-comercio-lda/", out.LandedURL)
	assert.Equal(t, "search", out.Strategy)

	assert.Equal(t, []string{
		"https://www.racius.com/beta-comercio/",
		search.QueryURL("Beta Comércio"),
		"https://www.racius.com/beta-comercio-lda/",
	}, page.visited())

	// direct settle, search settle, navigate settle
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second, 2 * time.Second}, clock.recorded())
}

func TestPageResolver_SearchFallsBackToAllLinks(t *testing.T) {
	resolver, _, search := newTestResolver(t, testConfig(), newFakeClock())

	results := `<html><body>
		<a href="https://www.example.com/acme">Acme elsewhere</a>
		<a href="https://www.racius.com/q/acme">Registry search</a>
		<a href="https://racius.com/acme-industria/">Acme Indústria</a>
	</body></html>`

	page := newFakePage().serve(search.QueryURL("Acme Indústria"), results)

	out := resolver.Resolve(context.Background(), page, "Acme Indústria")
	require.Equal(t, models.ResolutionResolved, out.Status)
	assert.Equal(t, "https://racius.com/acme-industria/", out.LandedURL)
}

func TestPageResolver_SearchNothingAccepted(t *testing.T) {
	resolver, _, search := newTestResolver(t, testConfig(), newFakeClock())

	results := `<html><body><a href="https://www.example.com/"><h3>Other</h3></a></body></html>`
	page := newFakePage().serve(search.QueryURL("Nobody"), results)

	out := resolver.Resolve(context.Background(), page, "Nobody")
	assert.Equal(t, models.ResolutionNotFound, out.Status)
}

func TestPageResolver_ObstacleTimeout(t *testing.T) {
	resolver, _, search := newTestResolver(t, testConfig(), newFakeClock())

	page := newFakePage().serve(search.QueryURL("Gamma"), challengePage)

	out := resolver.Resolve(context.Background(), page, "Gamma")
	assert.Equal(t, models.ResolutionObstacleTimeout, out.Status)
}

func TestPageResolver_AllFaultsBecomeError(t *testing.T) {
	cfg := testConfig()
	cfg.Search.Enabled = false
	resolver, _, _ := newTestResolver(t, cfg, newFakeClock())

	page := newFakePage().
		failOn("https://www.racius.com/acme-lda/", errNetwork).
		failOn("https://www.racius.com/acme/", errNetwork)

	out := resolver.Resolve(context.Background(), page, "Acme, Lda.")
	assert.Equal(t, models.ResolutionError, out.Status)
	assert.ErrorIs(t, out.Err, errNetwork)
}

func TestPageResolver_SearchNavigationFault(t *testing.T) {
	resolver, _, search := newTestResolver(t, testConfig(), newFakeClock())

	page := newFakePage().failOn(search.QueryURL("Delta"), errNetwork)

	out := resolver.Resolve(context.Background(), page, "Delta")
	assert.Equal(t, models.ResolutionError, out.Status)
}

func TestSearchStrategy_QueryURL(t *testing.T) {
	_, _, search := newTestResolver(t, testConfig(), newFakeClock())

	u, err := url.Parse(search.QueryURL("Café & Bar, Lda."))
	require.NoError(t, err)
	assert.Equal(t, "www.google.com", u.Host)
	assert.Equal(t, "site:racius.com Café & Bar, Lda.", u.Query().Get("q"))
}

func TestSearchStrategy_FirstAcceptedLink(t *testing.T) {
	_, _, search := newTestResolver(t, testConfig(), newFakeClock())

	tests := []struct {
		name string
		html string
		want string
		ok   bool
	}{
		{
			name: "redirect wrapper unwrapped",
			html: `<a href="/url?q=https://www.racius.com/acme-lda/&amp;sa=U"><h3>Acme</h3></a>`,
			want: "https://www.racius.com/acme-lda/",
			ok:   true,
		},
		{
			name: "heading order wins over link order",
			html: `<a href="https://www.racius.com/first/">plain</a><a href="https://www.racius.com/second/"><h3>Second</h3></a>`,
			want: "https://www.racius.com/second/",
			ok:   true,
		},
		{
			name: "only registry search links",
			html: `<a href="https://www.racius.com/q/acme"><h3>Acme</h3></a>`,
			ok:   false,
		},
		{
			name: "registry search without trailing slash",
			html: `<a href="https://www.racius.com/q?x=acme"><h3>Acme</h3></a><a href="https://racius.com/q"><h3>Acme</h3></a>`,
			ok:   false,
		},
		{
			name: "company slug sharing the search prefix",
			html: `<a href="https://www.racius.com/quinta-do-vale-lda/"><h3>Quinta</h3></a>`,
			want: "https://www.racius.com/quinta-do-vale-lda/",
			ok:   true,
		},
		{
			name: "lookalike domain rejected",
			html: `<a href="https://www.racius.com.evil.io/acme/"><h3>Acme</h3></a>`,
			ok:   false,
		},
		{
			name: "non http scheme rejected",
			html: `<a href="javascript:void(0)"><h3>Acme</h3></a>`,
			ok:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := search.FirstAcceptedLink(tt.html, "https://www.google.com/search?q=acme")
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDirectProbeStrategy_CandidateURL(t *testing.T) {
	_, direct, _ := newTestResolver(t, testConfig(), newFakeClock())
	assert.Equal(t, "https://www.racius.com/acme-lda/", direct.CandidateURL(models.CandidateSlug{Value: "acme-lda"}))
}
