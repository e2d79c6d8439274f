package transform

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/flosch/pongo2/v6"
	"github.com/go-logr/logr"
	"github.com/samber/lo"
	"golang.org/x/sync/singleflight"
)

// Option configures a Cache.
type Option func(*config)

type config struct {
	appRoot    string
	viewRoot   string
	logger     logr.Logger
	metrics    *Metrics
	globalData map[string]any
}

// WithAppRoot sets the directory "~" resolves to. Defaults to the working
// directory.
func WithAppRoot(dir string) Option {
	return func(cfg *config) {
		cfg.appRoot = strings.TrimSpace(dir)
	}
}

// WithViewRoot sets the directory relative program paths resolve against.
// Defaults to "Views" under the application root.
func WithViewRoot(dir string) Option {
	return func(cfg *config) {
		cfg.viewRoot = strings.TrimSpace(dir)
	}
}

// WithLogger sets the cache logger.
func WithLogger(logger logr.Logger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}

// WithMetrics records cache activity on m.
func WithMetrics(m *Metrics) Option {
	return func(cfg *config) {
		cfg.metrics = m
	}
}

// WithGlobalData seeds values or functions visible to every program.
func WithGlobalData(data map[string]any) Option {
	return func(cfg *config) {
		if len(data) == 0 {
			return
		}
		if cfg.globalData == nil {
			cfg.globalData = make(map[string]any, len(data))
		}
		for key, value := range data {
			cfg.globalData[strings.TrimSpace(key)] = value
		}
	}
}

type entry struct {
	program *Program
	watched []string
}

// Cache holds compiled programs keyed by absolute path. An entry stays valid
// until a change is reported under one of the directories it watches: the
// program's directory tree and the view root tree. Concurrent misses on the
// same key compile once.
type Cache struct {
	resolver Resolver
	set      *pongo2.TemplateSet
	logger   logr.Logger
	metrics  *Metrics

	mu       sync.RWMutex
	entries  map[string]*entry
	inflight map[string]*flight
	group    singleflight.Group

	observerMu sync.RWMutex
	observers  []func(dirs []string)

	afterCompile func()
}

// NewCache builds a cache rooted at the configured directories.
func NewCache(opts ...Option) (*Cache, error) {
	cfg := &config{logger: logr.Discard()}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	if cfg.appRoot == "" {
		cfg.appRoot = "."
	}
	resolver := Resolver{AppRoot: absPath(cfg.appRoot)}
	if cfg.viewRoot == "" {
		resolver.ViewRoot = filepath.Join(resolver.AppRoot, "Views")
	} else {
		resolver.ViewRoot = resolver.Resolve(cfg.viewRoot, resolver.AppRoot)
	}

	loader, err := pongo2.NewLocalFileSystemLoader(resolver.ViewRoot)
	if err != nil {
		return nil, fmt.Errorf("transform: create view loader: %w", err)
	}
	set := pongo2.NewSet("xview", loader)
	if len(cfg.globalData) > 0 {
		set.Globals.Update(pongo2.Context(cfg.globalData))
	}
	registerDefaultFilters()

	return &Cache{
		resolver: resolver,
		set:      set,
		logger:   cfg.logger.WithName("transform"),
		metrics:  cfg.metrics,
		entries:  make(map[string]*entry),
		inflight: make(map[string]*flight),
	}, nil
}

// Resolver returns the path resolver the cache uses.
func (c *Cache) Resolver() Resolver {
	return c.resolver
}

// Get returns the compiled program for path, compiling it on a miss. The
// returned program stays usable after eviction.
func (c *Cache) Get(path string) (*Program, error) {
	key := c.resolver.Resolve(path, "")
	if program, ok := c.lookup(key); ok {
		c.metrics.hit()
		return program, nil
	}
	c.metrics.miss()

	value, err, _ := c.group.Do(key, func() (any, error) {
		if program, ok := c.lookup(key); ok {
			return program, nil
		}
		f := &flight{}
		c.mu.Lock()
		c.inflight[key] = f
		c.mu.Unlock()

		start := time.Now()
		program, err := Compile(c.set, key)
		c.metrics.compiled(time.Since(start), err)
		if err != nil {
			c.mu.Lock()
			delete(c.inflight, key)
			c.mu.Unlock()
			return nil, err
		}
		if c.afterCompile != nil {
			c.afterCompile()
		}

		watched := c.watchedDirs(program.Dir())
		c.mu.Lock()
		delete(c.inflight, key)
		stored := !f.stale
		if stored {
			c.entries[key] = &entry{program: program, watched: watched}
		}
		c.mu.Unlock()

		if stored {
			c.logger.V(1).Info("program compiled", "path", key, "checksum", program.Checksum(), "watched", len(watched))
			c.notify(watched)
		} else {
			c.logger.V(1).Info("program invalidated during compile, not cached", "path", key)
		}
		return program, nil
	})
	if err != nil {
		return nil, err
	}
	return value.(*Program), nil
}

// flight tracks a compile in progress.
type flight struct {
	stale bool
}

// within reports whether path is dir or lies below it.
func within(path, dir string) bool {
	return path == dir || strings.HasPrefix(path, dir+string(filepath.Separator))
}

func (c *Cache) lookup(key string) (*Program, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if e, ok := c.entries[key]; ok {
		return e.program, true
	}
	return nil, false
}

// Invalidate evicts every entry that watches path or its parent directory
// and returns the number of evictions. A compile running concurrently is
// not stored when path lies in a directory tree it would watch.
func (c *Cache) Invalidate(path string) int {
	path = absPath(path)
	parent := filepath.Dir(path)

	c.mu.Lock()
	for key, f := range c.inflight {
		if key == path || within(parent, filepath.Dir(key)) || within(parent, c.resolver.ViewRoot) {
			f.stale = true
		}
	}
	evicted := 0
	for key, e := range c.entries {
		if key == path || lo.Contains(e.watched, path) || lo.Contains(e.watched, parent) {
			delete(c.entries, key)
			evicted++
		}
	}
	c.mu.Unlock()

	c.metrics.evicted(evicted)
	if evicted > 0 {
		c.logger.V(1).Info("programs evicted", "path", path, "count", evicted)
	}
	return evicted
}

// Purge drops every entry.
func (c *Cache) Purge() {
	c.mu.Lock()
	for _, f := range c.inflight {
		f.stale = true
	}
	evicted := len(c.entries)
	c.entries = make(map[string]*entry)
	c.mu.Unlock()
	c.metrics.evicted(evicted)
}

// Len reports the number of cached programs.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// OnStore registers fn to receive the watched directories of every newly
// stored entry.
func (c *Cache) OnStore(fn func(dirs []string)) {
	if fn == nil {
		return
	}
	c.observerMu.Lock()
	c.observers = append(c.observers, fn)
	c.observerMu.Unlock()
}

func (c *Cache) notify(dirs []string) {
	c.observerMu.RLock()
	observers := make([]func([]string), len(c.observers))
	copy(observers, c.observers)
	c.observerMu.RUnlock()
	for _, fn := range observers {
		fn(dirs)
	}
}

// watchedDirs lists the directory trees under dir and the view root.
func (c *Cache) watchedDirs(dir string) []string {
	return lo.Uniq(append(collectDirs(dir), collectDirs(c.resolver.ViewRoot)...))
}

func collectDirs(root string) []string {
	var dirs []string
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				dirs = append(dirs, root)
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		dirs = append(dirs, path)
		return nil
	})
	return dirs
}
