package domain

import (
	"context"
	"fmt"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/moolen/usersim/internal/config"
	"github.com/moolen/usersim/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// DefaultRegistrySize is the number of schemas kept when RegistryConfig.Size is 0.
const DefaultRegistrySize = 64

// RegistryConfig configures a Registry.
type RegistryConfig struct {
	// Size is the maximum number of cached schemas (default: 64)
	Size int

	// Loader reads domain files (default: config.FileLoader)
	Loader config.Loader

	// Registerer receives the registry metrics. A private registry is used
	// when nil.
	Registerer prometheus.Registerer

	// PreloadConcurrency bounds concurrent loads in Preload (default: 4)
	PreloadConcurrency int

	// DebounceMillis is passed to watchers started by Watch
	DebounceMillis int
}

// Registry caches loaded schemas by path. Concurrent lookups of the same
// missing path share a single load. Cached schemas are only ever replaced
// as a whole, so readers always see a complete schema.
type Registry struct {
	cache   *lru.Cache[string, *Schema]
	loader  config.Loader
	loads   singleflight.Group
	metrics *Metrics
	logger  *logging.Logger
	cfg     RegistryConfig
}

// NewRegistry creates an empty registry.
func NewRegistry(cfg RegistryConfig) (*Registry, error) {
	if cfg.Size < 0 {
		return nil, fmt.Errorf("Size must not be negative, got %d", cfg.Size)
	}
	if cfg.Size == 0 {
		cfg.Size = DefaultRegistrySize
	}
	if cfg.Loader == nil {
		cfg.Loader = config.NewFileLoader()
	}
	if cfg.Registerer == nil {
		cfg.Registerer = prometheus.NewRegistry()
	}
	if cfg.PreloadConcurrency <= 0 {
		cfg.PreloadConcurrency = 4
	}

	logger := logging.GetLogger("domain.registry")
	cache, err := lru.NewWithEvict[string, *Schema](cfg.Size, func(key string, _ *Schema) {
		logger.Debug("evicted %s", key)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create schema cache: %w", err)
	}

	return &Registry{
		cache:   cache,
		loader:  cfg.Loader,
		metrics: NewMetrics(cfg.Registerer),
		logger:  logger,
		cfg:     cfg,
	}, nil
}

// Get returns the schema for path, loading it on first use.
func (r *Registry) Get(path string) (*Schema, error) {
	key := cacheKey(path)

	if s, ok := r.cache.Get(key); ok {
		r.metrics.CacheHitsTotal.Inc()
		return s, nil
	}
	r.metrics.CacheMissesTotal.Inc()

	v, err, _ := r.loads.Do(key, func() (interface{}, error) {
		// Another caller may have finished the load while we waited.
		if s, ok := r.cache.Peek(key); ok {
			return s, nil
		}
		r.metrics.LoadsTotal.Inc()
		s, err := Load(path, r.loader)
		if err != nil {
			r.metrics.LoadErrorsTotal.Inc()
			return nil, err
		}
		r.cache.Add(key, s)
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Schema), nil
}

// Invalidate drops the cached schema for path; the next Get reloads it.
func (r *Registry) Invalidate(path string) {
	r.cache.Remove(cacheKey(path))
}

// Len returns the number of cached schemas.
func (r *Registry) Len() int {
	return r.cache.Len()
}

// Preload loads all paths concurrently and returns the first error.
func (r *Registry) Preload(ctx context.Context, paths ...string) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.PreloadConcurrency)

	for _, p := range paths {
		p := p
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			_, err := r.Get(p)
			return err
		})
	}
	return g.Wait()
}

// Watch keeps the cached schema for path in sync with the file. Each valid
// change replaces the cached schema; invalid changes are logged and the
// previous schema stays in place. Call Stop on the returned watcher when done.
func (r *Registry) Watch(ctx context.Context, path string) (*config.Watcher, error) {
	key := cacheKey(path)

	w, err := config.NewWatcher(config.WatcherConfig{
		FilePath:       path,
		DebounceMillis: r.cfg.DebounceMillis,
		Loader:         r.loader,
	}, func(doc *config.Document) error {
		s, err := FromDocument(doc)
		if err != nil {
			r.metrics.Reloads.WithLabelValues("error").Inc()
			return err
		}
		r.metrics.Reloads.WithLabelValues("ok").Inc()
		r.cache.Add(key, s)
		r.logger.InfoWithFields("domain schema updated",
			logging.Field("path", path),
			logging.Field("slots", len(s.slots)),
		)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := w.Start(ctx); err != nil {
		return nil, err
	}
	return w, nil
}

func cacheKey(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}
