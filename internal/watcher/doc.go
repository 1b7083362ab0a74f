// Package watcher notices edits to AmanSearch config files so a running
// server can reload without a restart.
//
// fsnotify is the primary mechanism. Watches are placed on the directories
// holding the config files, since editors commonly save by writing a temp
// file and renaming it over the original. When fsnotify cannot be created
// the watcher falls back to polling file modification times.
//
// Events are debounced so one save that produces several writes triggers a
// single reload:
//
//	w, err := watcher.NewConfigWatcher(paths, watcher.DefaultOptions(), logger)
//	if err != nil {
//	    return err
//	}
//	go w.Run(ctx)
//	for batch := range w.Changes() {
//	    reload(batch)
//	}
package watcher
