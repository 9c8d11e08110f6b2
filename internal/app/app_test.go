package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/jobsearch-aggregator/internal/clock/system"
	"github.com/JakeFAU/jobsearch-aggregator/internal/config"
	"github.com/JakeFAU/jobsearch-aggregator/internal/jobs"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Credentials = map[string]string{}
	cfg.Headless.Enabled = false
	return cfg
}

func build(t *testing.T, cfg config.Config) *App {
	t.Helper()
	a, err := Build(context.Background(), cfg, Options{
		Logger:     zap.NewNop(),
		Registerer: prometheus.NewRegistry(),
		Clock:      system.NewFixed(time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, a.Close(context.Background()))
	})
	return a
}

func TestBuildWiresDefaultPortals(t *testing.T) {
	t.Parallel()

	a := build(t, testConfig(t))
	require.NotNil(t, a.Engine())
	require.NoError(t, a.Ready(context.Background()))

	enabled := map[string]bool{}
	for _, e := range a.registry.Entries() {
		enabled[e.Portal] = e.Enabled
	}
	require.True(t, enabled["remotive"])
	require.True(t, enabled["indeed"])
	require.False(t, enabled["adzuna"], "missing credentials disable the portal")
	require.False(t, enabled["glassdoor"], "browser portals need the renderer")

	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyFailsWithoutEnabledPortals(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	off := false
	cfg.Portals = []config.PortalConfig{
		{Name: "remotive", Technique: "api", TimeoutSeconds: 5, Enabled: &off},
	}
	a := build(t, cfg)
	require.Error(t, a.Ready(context.Background()))

	recs, err := a.Engine().Search(context.Background(), jobs.Request{JobTitle: "Data Analyst", City: "Calgary"})
	require.NoError(t, err)
	require.Len(t, recs, 4)
	require.Equal(t, jobs.KindSearchLink, recs[0].Kind)
}

func TestBuildRejectsUnknownFallbackPortal(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Fallback.Portals = []string{"monster"}
	_, err := Build(context.Background(), cfg, Options{Logger: zap.NewNop(), Registerer: prometheus.NewRegistry()})
	require.Error(t, err)
}

func TestSearchArchivesExport(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	off := false
	cfg.Portals = []config.PortalConfig{
		{Name: "remotive", Technique: "api", TimeoutSeconds: 5, Enabled: &off},
	}
	dir := t.TempDir()
	cfg.Archive = config.ArchiveConfig{Backend: config.ArchiveLocal, BaseDir: dir, Prefix: "searches"}
	a := build(t, cfg)

	rep, err := a.Search(context.Background(), jobs.Request{JobTitle: "Nurse", Country: "USA"})
	require.NoError(t, err)
	require.True(t, rep.FallbackUsed)

	// #nosec G304 -- test reads from the controlled temp directory.
	body, err := os.ReadFile(filepath.Join(dir, "searches", "2026-03-10", rep.SearchID+".csv"))
	require.NoError(t, err)
	require.Contains(t, string(body), "Date,Source,Type,Company,Job Title,Location,URL,Notes")
	require.Contains(t, string(body), ",SEARCH_LINK,")
}

func TestSearchRejectsInvalidRequest(t *testing.T) {
	t.Parallel()

	a := build(t, testConfig(t))
	_, err := a.Search(context.Background(), jobs.Request{})
	require.ErrorIs(t, err, jobs.ErrInvalidRequest)
}
