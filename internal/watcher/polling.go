package watcher

import (
	"context"
	"os"
	"time"
)

type fileSnapshot struct {
	exists  bool
	modTime time.Time
	size    int64
}

// poller detects changes to a fixed set of files by comparing stat
// results. Used when fsnotify is unavailable.
type poller struct {
	interval time.Duration
	state    map[string]fileSnapshot
}

func newPoller(interval time.Duration, paths []string) *poller {
	p := &poller{
		interval: interval,
		state:    make(map[string]fileSnapshot, len(paths)),
	}
	for _, path := range paths {
		p.state[path] = snapshot(path)
	}
	return p
}

func snapshot(path string) fileSnapshot {
	info, err := os.Stat(path)
	if err != nil {
		return fileSnapshot{}
	}
	return fileSnapshot{exists: true, modTime: info.ModTime(), size: info.Size()}
}

// detect returns events for files whose snapshot changed since the last call.
func (p *poller) detect(now time.Time) []FileEvent {
	var events []FileEvent
	for path, prev := range p.state {
		cur := snapshot(path)
		if cur == prev {
			continue
		}
		p.state[path] = cur

		op := OpModify
		switch {
		case !prev.exists && cur.exists:
			op = OpCreate
		case prev.exists && !cur.exists:
			op = OpDelete
		}
		events = append(events, FileEvent{Path: path, Operation: op, Timestamp: now})
	}
	return events
}

// run polls until ctx is done, sending events to emit.
func (p *poller) run(ctx context.Context, stop <-chan struct{}, emit func(FileEvent)) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case now := <-ticker.C:
			for _, ev := range p.detect(now) {
				emit(ev)
			}
		}
	}
}
