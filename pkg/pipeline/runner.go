package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/vizpage/pkg/cache"
	"github.com/matzehuels/vizpage/pkg/manifest"
	"github.com/matzehuels/vizpage/pkg/project"
)

// Runner encapsulates pipeline execution with caching.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store pipeline results. Multiple goroutines can share a Runner as long as
// they write to different output paths.
type Runner struct {
	Cache  cache.Cache
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, logger *log.Logger) *Runner {
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Logger: logger,
	}
}

// Execute runs the complete load → render pipeline.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	result := &Result{}

	// Stage 1: Load
	loadStart := time.Now()
	report, err := r.Load(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	result.Report = report
	result.Stats.LoadTime = time.Since(loadStart)
	result.Stats.Datasets = report.Datasets.Len()
	result.Stats.Pages = 1 + len(report.Pages)

	r.Logger.Info("loaded manifest",
		"datasets", result.Stats.Datasets,
		"pages", result.Stats.Pages,
		"duration", result.Stats.LoadTime)

	// Stage 2: Render
	renderStart := time.Now()
	counter := &countingCache{inner: r.Cache, refresh: opts.Refresh}
	layout, err := render(ctx, counter, report, opts)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	result.Layout = layout
	result.Stats.RenderTime = time.Since(renderStart)
	result.Stats.Files = len(layout.Files)
	result.CacheInfo = CacheInfo{Hits: counter.hits, Misses: counter.misses}

	r.Logger.Info("rendered report",
		"path", layout.MainHTML,
		"cache_hits", counter.hits,
		"duration", result.Stats.RenderTime)

	return result, nil
}

// Load parses the manifest and loads its data.
func (r *Runner) Load(ctx context.Context, opts Options) (*manifest.Report, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForLoad(); err != nil {
		return nil, err
	}
	return load(ctx, opts)
}

// Render writes a loaded report.
func (r *Runner) Render(ctx context.Context, report *manifest.Report, opts Options) (project.Layout, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForRender(); err != nil {
		return project.Layout{}, err
	}
	return render(ctx, &countingCache{inner: r.Cache, refresh: opts.Refresh}, report, opts)
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}

// countingCache counts lookups and, when refresh is set, reports every
// lookup as a miss so payloads are re-encoded and the cache refilled.
type countingCache struct {
	inner   cache.Cache
	refresh bool
	hits    int
	misses  int
}

func (c *countingCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if c.refresh {
		c.misses++
		return nil, false, nil
	}
	data, hit, err := c.inner.Get(ctx, key)
	if hit {
		c.hits++
	} else {
		c.misses++
	}
	return data, hit, err
}

func (c *countingCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return c.inner.Set(ctx, key, data, ttl)
}

func (c *countingCache) Delete(ctx context.Context, key string) error {
	return c.inner.Delete(ctx, key)
}

// Close is a no-op; the Runner owns the inner cache.
func (c *countingCache) Close() error { return nil }
