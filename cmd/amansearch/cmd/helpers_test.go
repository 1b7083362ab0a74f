package cmd

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// isolate points user config and logs at temp dirs and clears env overrides.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("NO_COLOR", "1")
	for _, name := range []string{
		"EXA_API_KEY", "BRAVE_API_KEY", "SEARXNG_URL", "OPENAI_API_KEY",
		"AMANSEARCH_MODE", "AMANSEARCH_MAX_RESULTS", "AMANSEARCH_PROVIDER_TIMEOUT",
		"AMANSEARCH_SIMILARITY_THRESHOLD", "AMANSEARCH_EMBEDDINGS_PROVIDER",
		"AMANSEARCH_EMBEDDINGS_MODEL", "AMANSEARCH_OLLAMA_HOST", "AMANSEARCH_CACHE_ENABLED",
		"AMANSEARCH_CACHE_TTL", "AMANSEARCH_TRACING_EXPORTER", "AMANSEARCH_LOG_LEVEL",
	} {
		t.Setenv(name, "")
	}
}

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCmd()
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

// searxngServer answers SearXNG JSON queries with n results per call.
func searxngServer(t *testing.T, n int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		w.Header().Set("Content-Type", "application/json")
		var items []string
		for i := 1; i <= n; i++ {
			items = append(items, fmt.Sprintf(
				`{"title":"%s result %d","url":"https://docs%d.example.org/page","content":"about %s","engine":"google","score":%d}`,
				q, i, i, q, 10-i))
		}
		_, _ = fmt.Fprintf(w, `{"results":[%s]}`, strings.Join(items, ","))
	}))
	t.Cleanup(srv.Close)
	return srv
}

// searxngProject writes a project config that enables only SearXNG.
func searxngProject(t *testing.T, baseURL string) string {
	t.Helper()
	dir := t.TempDir()
	searxngProjectAt(t, dir, baseURL)
	return dir
}

// searxngProjectAt writes the SearXNG-only project config into dir.
func searxngProjectAt(t *testing.T, dir, baseURL string) {
	t.Helper()
	content := fmt.Sprintf(`providers:
  exa:
    enabled: false
  exa_deep:
    enabled: false
  brave:
    enabled: false
  duckduckgo:
    enabled: false
  searxng:
    enabled: true
    base_url: %s
embeddings:
  provider: none
cache:
  enabled: false
`, baseURL)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".amansearch.yaml"), []byte(content), 0o600))
}
