package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogPath(t *testing.T) {
	assert.Equal(t, filepath.Join("/tmp/x", "server.log"), LogPath("/tmp/x"))
	assert.Contains(t, LogPath(""), filepath.Join(".amansearch", "logs"))
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug, "INFO": slog.LevelInfo, "warn": slog.LevelWarn,
		"warning": slog.LevelWarn, "error": slog.LevelError, "bogus": slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestSetup_WritesJSONToFileAndStderr(t *testing.T) {
	// Given: a file logger mirrored to a buffer
	path := filepath.Join(t.TempDir(), "logs", "server.log")
	var mirror bytes.Buffer
	logger, cleanup, err := Setup(Config{Level: "debug", FilePath: path, Stderr: &mirror})
	require.NoError(t, err)

	// When: logging an event
	logger.Debug("search_completed", slog.Int("results", 3))
	cleanup()

	// Then: both sinks hold the JSON line
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(data), &line))
	assert.Equal(t, "search_completed", line["msg"])
	assert.Equal(t, float64(3), line["results"])
	assert.Contains(t, mirror.String(), "search_completed")
}

func TestSetup_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger, cleanup, err := Setup(Config{Level: "warn", Stderr: &buf})
	require.NoError(t, err)
	defer cleanup()

	logger.Info("hidden")
	logger.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestSetupServeMode_FileOnly(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
	dir := t.TempDir()

	_, cleanup, err := SetupServeMode("info", dir)
	require.NoError(t, err)
	slog.Info("tool_called")
	cleanup()

	data, err := os.ReadFile(LogPath(dir))
	require.NoError(t, err)
	assert.Contains(t, string(data), "serve_logging_ready")
	assert.Contains(t, string(data), "tool_called")
}

func TestFindLogFile(t *testing.T) {
	dir := t.TempDir()

	_, err := FindLogFile("", dir)
	require.Error(t, err)

	require.NoError(t, os.WriteFile(LogPath(dir), []byte("{}\n"), 0o600))
	path, err := FindLogFile("", dir)
	require.NoError(t, err)
	assert.Equal(t, LogPath(dir), path)
}

func TestRotatingWriter_Rotates(t *testing.T) {
	// Given: a writer with a 1MB limit keeping two old files
	path := filepath.Join(t.TempDir(), "server.log")
	w, err := NewRotatingWriter(path, 1, 2)
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	// When: writing four 600KB chunks
	chunk := bytes.Repeat([]byte("x"), 600*1024)
	for i := 0; i < 4; i++ {
		_, err := w.Write(chunk)
		require.NoError(t, err)
	}

	// Then: the current file and at most two rotations exist
	assert.FileExists(t, path)
	assert.FileExists(t, path+".1")
	assert.FileExists(t, path+".2")
	assert.NoFileExists(t, path+".3")
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(len(chunk)), info.Size())
}

func TestRotatingWriter_WriteAfterClose(t *testing.T) {
	w, err := NewRotatingWriter(filepath.Join(t.TempDir(), "server.log"), 1, 1)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	_, err = w.Write([]byte("late"))
	assert.ErrorIs(t, err, os.ErrClosed)
}

func TestRotatingWriter_ConcurrentWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.log")
	w, err := NewRotatingWriter(path, 10, 2)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_, _ = fmt.Fprintf(w, "line %d-%d\n", i, j)
			}
		}(i)
	}
	wg.Wait()
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 400, strings.Count(string(data), "\n"))
}

func writeLog(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "server.log")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o600))
	return path
}

func TestViewer_TailFilters(t *testing.T) {
	path := writeLog(t,
		`{"time":"2026-01-02T10:00:00Z","level":"DEBUG","msg":"query_optimized"}`,
		`{"time":"2026-01-02T10:00:01Z","level":"INFO","msg":"search_completed","results":4}`,
		`{"time":"2026-01-02T10:00:02Z","level":"WARN","msg":"provider_failed","provider":"brave"}`,
		`not json`,
	)

	tests := []struct {
		name string
		cfg  ViewerConfig
		n    int
		want []string
	}{
		{"all", ViewerConfig{}, 10, []string{"query_optimized", "search_completed", "provider_failed", ""}},
		{"last two", ViewerConfig{}, 2, []string{"provider_failed", ""}},
		{"level", ViewerConfig{Level: "info"}, 10, []string{"search_completed", "provider_failed", ""}},
		{"pattern", ViewerConfig{Pattern: regexp.MustCompile("brave")}, 10, []string{"provider_failed"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := NewViewer(tt.cfg, nil).Tail(path, tt.n)

			require.NoError(t, err)
			var msgs []string
			for _, e := range entries {
				msgs = append(msgs, e.Msg)
			}
			assert.Equal(t, tt.want, msgs)
		})
	}
}

func TestViewer_Format(t *testing.T) {
	v := NewViewer(ViewerConfig{}, nil)

	e := ParseLine(`{"time":"2026-01-02T10:00:01.5Z","level":"INFO","msg":"search_completed","results":4,"mode":"auto"}`)

	assert.Equal(t, "10:00:01.500 INFO  search_completed mode=auto results=4", v.Format(e))
	assert.Equal(t, "plain text", v.Format(ParseLine("plain text")))
}

func TestViewer_ColorLevels(t *testing.T) {
	v := NewViewer(ViewerConfig{Color: true}, nil)

	out := v.Format(ParseLine(`{"time":"2026-01-02T10:00:00Z","level":"ERROR","msg":"x"}`))

	assert.Contains(t, out, "\033[31mERROR\033[0m")
}

func TestViewer_Follow(t *testing.T) {
	path := writeLog(t, `{"level":"INFO","msg":"old"}`)
	v := NewViewer(ViewerConfig{}, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	entries := make(chan LogEntry, 4)
	go func() { _ = v.Follow(ctx, path, entries) }()
	time.Sleep(150 * time.Millisecond)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o600)
	require.NoError(t, err)
	_, err = f.WriteString(`{"level":"INFO","msg":"new"}` + "\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	select {
	case e := <-entries:
		assert.Equal(t, "new", e.Msg)
	case <-ctx.Done():
		t.Fatal("no entry followed")
	}
}
