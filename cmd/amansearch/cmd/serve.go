package cmd

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/amansearch/internal/config"
	"github.com/Aman-CERP/amansearch/internal/logging"
	"github.com/Aman-CERP/amansearch/internal/mcp"
	"github.com/Aman-CERP/amansearch/internal/telemetry"
	"github.com/Aman-CERP/amansearch/internal/tracing"
	"github.com/Aman-CERP/amansearch/internal/watcher"
	"github.com/Aman-CERP/amansearch/pkg/searcher"
)

func newServeCmd(g *globalOptions) *cobra.Command {
	var transport string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Serve exposes web_search, search_code and search_status to MCP clients.

Logs go to a rotating file (see 'amansearch logs'), never to stdout or
stderr, because stdout carries the JSON-RPC session.`,
		Annotations: map[string]string{annotationOwnLogging: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), g.dir, transport, g.debug)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "", "Transport protocol (default from config: stdio)")

	return cmd
}

func runServe(ctx context.Context, dir, transport string, debug bool) error {
	cfg, err := config.Load(dir)
	if err != nil {
		return err
	}

	level := cfg.Server.LogLevel
	if debug {
		level = "debug"
	}
	logger, cleanup, err := logging.SetupServeMode(level, cfg.Server.LogDir)
	if err != nil {
		return err
	}
	defer cleanup()

	shutdownTracing, err := tracing.Setup(ctx, tracing.Config{
		Enabled:  cfg.Tracing.Enabled,
		Exporter: cfg.Tracing.Exporter,
		Path:     cfg.Tracing.Path,
	})
	if err != nil {
		logger.Warn("tracing_disabled", slog.String("error", err.Error()))
	} else {
		defer func() { _ = shutdownTracing(context.Background()) }()
	}

	metrics := telemetry.NewQueryMetrics(telemetry.DefaultConfig())
	backends := &backendHolder{}

	s, err := searcher.New(ctx, cfg, searcher.WithLogger(logger), searcher.WithMetrics(metrics))
	if err != nil {
		logger.Error("searcher_init_failed", slog.String("error", err.Error()))
		return err
	}
	backends.swap(s)
	defer backends.close()

	srv, err := mcp.NewServer(s, mcp.WithLogger(logger), mcp.WithMetrics(metrics))
	if err != nil {
		return err
	}

	if cfg.Server.WatchConfig {
		r := &reloader{dir: dir, logger: logger, metrics: metrics, server: srv, backends: backends}
		stop, err := r.watch(ctx)
		if err != nil {
			// Serving without hot reload beats not serving.
			logger.Warn("config_watch_failed", slog.String("error", err.Error()))
		} else {
			defer stop()
		}
	}

	if transport == "" {
		transport = cfg.Server.Transport
	}
	return srv.Serve(ctx, transport)
}

// backendHolder owns the live searcher so it is closed exactly once,
// whether it is replaced by a reload or torn down at exit.
type backendHolder struct {
	mu      sync.Mutex
	current *searcher.Searcher
}

// swap installs s and returns the previous searcher, if any.
func (h *backendHolder) swap(s *searcher.Searcher) *searcher.Searcher {
	h.mu.Lock()
	defer h.mu.Unlock()
	prev := h.current
	h.current = s
	return prev
}

func (h *backendHolder) close() {
	if prev := h.swap(nil); prev != nil {
		_ = prev.Close()
	}
}

// reloader rebuilds the searcher when a config source changes.
type reloader struct {
	dir      string
	logger   *slog.Logger
	metrics  *telemetry.QueryMetrics
	server   *mcp.Server
	backends *backendHolder
}

// watchPaths lists the config files that feed Load for dir, including the
// ones that do not exist yet so creating them triggers a reload.
func watchPaths(dir string) []string {
	paths := []string{config.GetUserConfigPath()}
	if p := config.ProjectConfigPath(dir); p != "" {
		paths = append(paths, p)
	} else {
		paths = append(paths, filepath.Join(dir, ".amansearch.yaml"))
	}
	return paths
}

// watch starts the config watcher and returns its stop function.
func (r *reloader) watch(ctx context.Context) (func(), error) {
	w, err := watcher.NewConfigWatcher(watchPaths(r.dir), watcher.DefaultOptions(), r.logger)
	if err != nil {
		return nil, err
	}
	r.logger.Info("config_watch_enabled", slog.String("mode", w.Mode()))

	ctx, cancel := context.WithCancel(ctx)
	go w.Run(ctx)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case events, ok := <-w.Changes():
				if !ok {
					return
				}
				r.logger.Info("config_changed", slog.Int("events", len(events)))
				if err := r.reload(ctx); err != nil {
					r.logger.Warn("config_reload_failed", slog.String("error", err.Error()))
				}
			}
		}
	}()

	return func() {
		cancel()
		w.Stop()
	}, nil
}

// reload loads config and swaps in a new searcher. On any error the
// running searcher stays in place.
func (r *reloader) reload(ctx context.Context) error {
	cfg, err := config.Load(r.dir)
	if err != nil {
		return err
	}
	s, err := searcher.New(ctx, cfg, searcher.WithLogger(r.logger), searcher.WithMetrics(r.metrics))
	if err != nil {
		return err
	}
	if err := r.server.SetBackend(s); err != nil {
		_ = s.Close()
		return err
	}
	if prev := r.backends.swap(s); prev != nil {
		_ = prev.Close()
	}
	r.logger.Info("config_reloaded", slog.Any("providers", cfg.EnabledProviders()))
	return nil
}
