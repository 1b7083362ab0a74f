package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	amerrors "github.com/Aman-CERP/amansearch/internal/errors"
)

// ConfigWatcher reports changes to a set of config files.
type ConfigWatcher struct {
	files     map[string]struct{}
	opts      Options
	logger    *slog.Logger
	fsWatcher *fsnotify.Watcher
	poller    *poller
	debouncer *Debouncer

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewConfigWatcher watches the given files, which need not exist yet.
// Their parent directories must exist for fsnotify to be used; otherwise
// the watcher polls.
func NewConfigWatcher(paths []string, opts Options, logger *slog.Logger) (*ConfigWatcher, error) {
	if len(paths) == 0 {
		return nil, amerrors.ValidationError("no config files to watch", nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	opts = opts.WithDefaults()

	w := &ConfigWatcher{
		files:     make(map[string]struct{}, len(paths)),
		opts:      opts,
		logger:    logger,
		debouncer: NewDebouncer(opts.DebounceWindow, logger),
		stopCh:    make(chan struct{}),
	}

	var abs []string
	for _, p := range paths {
		a, err := filepath.Abs(p)
		if err != nil {
			return nil, amerrors.ValidationError("invalid config path", err).WithDetail("path", p)
		}
		if _, dup := w.files[a]; !dup {
			w.files[a] = struct{}{}
			abs = append(abs, a)
		}
	}

	if !opts.ForcePolling {
		if err := w.startFsnotify(abs); err != nil {
			logger.Warn("config_watch_fallback_polling", slog.String("error", err.Error()))
		}
	}
	if w.fsWatcher == nil {
		w.poller = newPoller(opts.PollInterval, abs)
	}
	return w, nil
}

func (w *ConfigWatcher) startFsnotify(files []string) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	dirs := make(map[string]struct{})
	for _, f := range files {
		dirs[filepath.Dir(f)] = struct{}{}
	}
	for dir := range dirs {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			// Nothing to watch until the directory exists.
			continue
		}
		if err := fsw.Add(dir); err != nil {
			_ = fsw.Close()
			return err
		}
	}
	if len(fsw.WatchList()) == 0 {
		_ = fsw.Close()
		return amerrors.New(amerrors.ErrCodeFileNotFound, "no config directory exists", nil)
	}
	w.fsWatcher = fsw
	return nil
}

// Mode reports "fsnotify" or "polling".
func (w *ConfigWatcher) Mode() string {
	if w.fsWatcher != nil {
		return "fsnotify"
	}
	return "polling"
}

// Changes returns debounced batches of config file events. The channel is
// closed when the watcher stops.
func (w *ConfigWatcher) Changes() <-chan []FileEvent {
	return w.debouncer.Output()
}

// Run processes file events until ctx is cancelled or Stop is called.
func (w *ConfigWatcher) Run(ctx context.Context) {
	defer w.Stop()

	w.logger.Debug("config_watch_started",
		slog.String("mode", w.Mode()),
		slog.Int("files", len(w.files)))

	if w.poller != nil {
		w.poller.run(ctx, w.stopCh, w.debouncer.Add)
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case ev, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if fe, keep := w.translate(ev); keep {
				w.debouncer.Add(fe)
			}
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config_watch_error", slog.String("error", err.Error()))
		}
	}
}

// translate maps an fsnotify event to a FileEvent for watched files only.
func (w *ConfigWatcher) translate(ev fsnotify.Event) (FileEvent, bool) {
	path := filepath.Clean(ev.Name)
	if _, ok := w.files[path]; !ok {
		return FileEvent{}, false
	}

	fe := FileEvent{Path: path, Timestamp: time.Now()}
	switch {
	case ev.Has(fsnotify.Create):
		fe.Operation = OpCreate
	case ev.Has(fsnotify.Write):
		fe.Operation = OpModify
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		fe.Operation = OpDelete
	default:
		// Chmod alone does not change content.
		return FileEvent{}, false
	}
	return fe, true
}

// Stop releases the watcher. Safe to call multiple times.
func (w *ConfigWatcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		if w.fsWatcher != nil {
			_ = w.fsWatcher.Close()
		}
		w.debouncer.Stop()
	})
}
