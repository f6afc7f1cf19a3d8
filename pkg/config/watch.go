package config

import (
	"fmt"
	"log"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/godeps/schoolsdk-go/pkg/catalog"
)

// CatalogWatcher reloads the endpoint catalog override file whenever it
// changes on disk, so a moved backend route can be picked up without a
// restart.
type CatalogWatcher struct {
	watcher *fsnotify.Watcher
	path    string
	done    chan struct{}
}

// WatchCatalog starts watching path and invokes onChange with each
// successfully parsed catalog. Parse failures keep the previous catalog
// and are logged. The parent directory is watched, not the file, so
// editors that replace the file atomically still trigger.
func WatchCatalog(path string, onChange func(catalog.Catalog)) (*CatalogWatcher, error) {
	if onChange == nil {
		return nil, fmt.Errorf("config: watch: onChange is required")
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config: watch: %w", err)
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		return nil, fmt.Errorf("config: watch %s: %w", path, err)
	}

	cw := &CatalogWatcher{watcher: w, path: path, done: make(chan struct{})}
	go cw.loop(onChange)
	return cw, nil
}

func (cw *CatalogWatcher) loop(onChange func(catalog.Catalog)) {
	defer close(cw.done)
	target := filepath.Clean(cw.path)
	for {
		select {
		case ev, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			cat, err := catalog.Load(cw.path)
			if err != nil {
				log.Printf("config: catalog reload: %v", err)
				continue
			}
			onChange(cat)
		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("config: catalog watch: %v", err)
		}
	}
}

// Close stops the watcher and waits for the event loop to drain.
func (cw *CatalogWatcher) Close() error {
	err := cw.watcher.Close()
	<-cw.done
	return err
}
