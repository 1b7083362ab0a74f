package cmd

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/amansearch/internal/config"
	"github.com/Aman-CERP/amansearch/internal/mcp"
	"github.com/Aman-CERP/amansearch/internal/telemetry"
	"github.com/Aman-CERP/amansearch/pkg/searcher"
)

func newReloader(t *testing.T, dir string) *reloader {
	t.Helper()
	cfg, err := config.Load(dir)
	require.NoError(t, err)

	metrics := telemetry.NewQueryMetrics(telemetry.DefaultConfig())
	s, err := searcher.New(context.Background(), cfg, searcher.WithMetrics(metrics))
	require.NoError(t, err)

	srv, err := mcp.NewServer(s, mcp.WithMetrics(metrics))
	require.NoError(t, err)

	backends := &backendHolder{}
	backends.swap(s)
	t.Cleanup(backends.close)

	return &reloader{dir: dir, logger: slog.Default(), metrics: metrics, server: srv, backends: backends}
}

func TestReloader_SwapsSearcherOnValidConfig(t *testing.T) {
	// Given: a running server backed by one SearXNG instance
	isolate(t)
	first := searxngServer(t, 1)
	dir := searxngProject(t, first.URL)
	r := newReloader(t, dir)
	before := r.backends.current

	// When: the project config points at a second instance and is reloaded
	second := searxngServer(t, 3)
	searxngProjectAt(t, dir, second.URL)
	require.NoError(t, r.reload(context.Background()))

	// Then: a new searcher serves requests and shares the metrics
	after := r.backends.current
	assert.NotSame(t, before, after)
	assert.Same(t, r.metrics, after.Metrics())

	text, err := r.server.CallTool(context.Background(), mcp.ToolWebSearch, map[string]any{
		"query": "hot reload", "engines": []any{"searxng"}, "format": "json",
	})
	require.NoError(t, err)
	assert.Contains(t, text, "docs3.example.org")
}

func TestReloader_KeepsSearcherOnInvalidConfig(t *testing.T) {
	// Given: a running server
	isolate(t)
	srv := searxngServer(t, 1)
	dir := searxngProject(t, srv.URL)
	r := newReloader(t, dir)
	before := r.backends.current

	// When: the config becomes invalid
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".amansearch.yaml"),
		[]byte("search:\n  max_results: 0\n"), 0o600))
	err := r.reload(context.Background())

	// Then: the reload fails and the old searcher stays
	require.Error(t, err)
	assert.Same(t, before, r.backends.current)
}

func TestWatchPaths(t *testing.T) {
	isolate(t)
	dir := t.TempDir()

	assert.Equal(t, []string{config.GetUserConfigPath(), filepath.Join(dir, ".amansearch.yaml")}, watchPaths(dir))

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".amansearch.yml"), nil, 0o600))
	assert.Equal(t, filepath.Join(dir, ".amansearch.yml"), watchPaths(dir)[1])
}

func TestBackendHolder_CloseIsIdempotent(t *testing.T) {
	h := &backendHolder{}
	h.close()
	h.close()
	assert.Nil(t, h.current)
}
