package tools

import (
	"fmt"
	"log"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Registry serves the active catalog to long-running front ends and
// hot-reloads it when the backing file changes on disk.
type Registry struct {
	mu      sync.RWMutex
	catalog *Catalog
	path    string
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewRegistry creates a registry serving the given catalog. If path is
// non-empty, the file is watched and reloaded on change; reload failures
// keep the previous catalog.
func NewRegistry(catalog *Catalog, path string) (*Registry, error) {
	r := &Registry{
		catalog: catalog,
		path:    path,
		done:    make(chan struct{}),
	}
	if path == "" {
		return r, nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create catalog watcher: %w", err)
	}
	// Watch the directory, not the file: editors replace files on save.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch catalog directory: %w", err)
	}
	r.watcher = watcher

	go r.watch()
	return r, nil
}

// Catalog returns the current catalog.
func (r *Registry) Catalog() *Catalog {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.catalog
}

// Close stops the watcher.
func (r *Registry) Close() error {
	close(r.done)
	if r.watcher != nil {
		return r.watcher.Close()
	}
	return nil
}

func (r *Registry) watch() {
	for {
		select {
		case <-r.done:
			return
		case event, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(r.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			catalog, err := LoadCatalog(r.path)
			if err != nil {
				log.Printf("[tools] catalog reload failed, keeping previous: %v", err)
				continue
			}
			r.mu.Lock()
			r.catalog = catalog
			r.mu.Unlock()
			log.Printf("[tools] catalog reloaded from %s (%d tools)", r.path, len(catalog.Tools))
		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("[tools] catalog watcher error: %v", err)
		}
	}
}
