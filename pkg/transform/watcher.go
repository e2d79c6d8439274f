package transform

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/go-logr/logr"
)

// Watcher invalidates cache entries when files change on disk. It watches
// the given roots recursively and every directory the cache reports for a
// newly stored entry.
type Watcher struct {
	cache   *Cache
	fsw     *fsnotify.Watcher
	logger  logr.Logger
	stopCh  chan struct{}
	doneCh  chan struct{}
	closing sync.Once

	mu      sync.Mutex
	watched map[string]struct{}
}

// NewWatcher starts watching roots for changes relevant to cache.
func NewWatcher(cache *Cache, logger logr.Logger, roots ...string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		cache:   cache,
		fsw:     fsw,
		logger:  logger.WithName("watcher"),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
		watched: make(map[string]struct{}),
	}
	for _, root := range roots {
		if strings.TrimSpace(root) == "" {
			continue
		}
		if err := w.addRecursive(root); err != nil {
			_ = fsw.Close()
			return nil, err
		}
	}
	cache.OnStore(w.addDirs)

	go w.loop()
	w.logger.V(1).Info("watching for program changes", "roots", roots)
	return w, nil
}

// Close stops the watch loop and waits for it to exit.
func (w *Watcher) Close() error {
	var err error
	w.closing.Do(func() {
		close(w.stopCh)
		err = w.fsw.Close()
		<-w.doneCh
	})
	return err
}

func (w *Watcher) loop() {
	defer close(w.doneCh)
	for {
		select {
		case <-w.stopCh:
			return
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error(err, "watch error")
		case evt, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if evt.Op&fsnotify.Create != 0 {
				if fi, statErr := os.Stat(evt.Name); statErr == nil && fi.IsDir() {
					if addErr := w.addRecursive(evt.Name); addErr != nil {
						w.logger.Error(addErr, "add watch failed", "path", evt.Name)
					}
				}
			}
			if shouldInvalidate(evt) {
				w.cache.Invalidate(evt.Name)
			}
		}
	}
}

func shouldInvalidate(evt fsnotify.Event) bool {
	if strings.TrimSpace(evt.Name) == "" {
		return false
	}
	if evt.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	return !strings.HasPrefix(filepath.Base(evt.Name), ".")
}

func (w *Watcher) addDirs(dirs []string) {
	for _, dir := range dirs {
		if err := w.add(dir); err != nil {
			w.logger.V(1).Info("add watch failed", "path", dir, "err", err)
		}
	}
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.add(path)
	})
}

func (w *Watcher) add(dir string) error {
	dir = absPath(dir)
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.watched[dir]; ok {
		return nil
	}
	if err := w.fsw.Add(dir); err != nil {
		return err
	}
	w.watched[dir] = struct{}{}
	return nil
}
