package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/depview/pkg/cache"
	"github.com/matzehuels/depview/pkg/graph"
	"github.com/matzehuels/depview/pkg/layout"
	"github.com/matzehuels/depview/pkg/observability"
)

// Runner encapsulates pipeline execution with caching.
// Both the CLI and the server use it.
//
// The Runner is stateless except for the cache and logger; it doesn't store
// pipeline results. Multiple goroutines can safely use the same Runner with
// different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger

	// GraphTTL overrides cache.TTLGraph for fetched descriptions.
	GraphTTL time.Duration
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Cache: c, Keyer: keyer, Logger: logger}
}

// Execute runs fetch → layout → render.
func (r *Runner) Execute(ctx context.Context, src Source, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	result := &Result{}

	start := time.Now()
	d, hit, err := r.FetchWithCacheInfo(ctx, src, opts)
	if err != nil {
		return nil, err
	}
	result.Description = d
	result.GraphHash = DescriptionHash(d)
	result.Stats.FetchTime = time.Since(start)
	result.Stats.NodeCount = d.NodeCount()
	result.Stats.EdgeCount = d.EdgeCount()
	result.CacheInfo.FetchHit = hit

	r.Logger.Info("fetched graph",
		"source", src.GraphURL(),
		"nodes", d.NodeCount(),
		"edges", d.EdgeCount(),
		"cached", hit,
		"duration", result.Stats.FetchTime)

	start = time.Now()
	lr, hit, err := r.LayoutWithCacheInfo(ctx, d, opts)
	if err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}
	result.Layout = lr
	result.Stats.LayoutTime = time.Since(start)
	result.CacheInfo.LayoutHit = hit

	r.Logger.Info("computed layout",
		"policy", lr.Policy,
		"width", lr.Width,
		"height", lr.Height,
		"duration", result.Stats.LayoutTime)

	start = time.Now()
	artifacts, hit, err := r.RenderWithCacheInfo(ctx, d, lr, opts)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	result.Artifacts = artifacts
	result.Stats.RenderTime = time.Since(start)
	result.CacheInfo.RenderHit = hit

	r.Logger.Info("rendered outputs",
		"formats", opts.Formats,
		"duration", result.Stats.RenderTime)

	return result, nil
}

// FetchWithCacheInfo loads and validates the description from src, serving
// it from cache unless opts.Refresh is set.
func (r *Runner) FetchWithCacheInfo(ctx context.Context, src Source, opts Options) (*graph.Description, bool, error) {
	key := r.Keyer.GraphKey(src.GraphURL())
	hooks := observability.Pipeline()

	if !opts.Refresh {
		if d, ok := r.cachedDescription(ctx, key); ok {
			return d, true, nil
		}
	}

	hooks.OnFetchStart(ctx, src.GraphURL())
	start := time.Now()
	data, err := src.FetchGraphRaw(ctx)
	var d *graph.Description
	if err == nil {
		d, err = graph.UnmarshalDescription(data)
	}
	nodes := 0
	if d != nil {
		nodes = d.NodeCount()
	}
	hooks.OnFetchComplete(ctx, src.GraphURL(), nodes, time.Since(start), err)
	if err != nil {
		return nil, false, err
	}

	ttl := r.GraphTTL
	if ttl <= 0 {
		ttl = cache.TTLGraph
	}
	r.store(ctx, cache.KeyTypeGraph, key, data, ttl)
	return d, false, nil
}

// Fetch is FetchWithCacheInfo without the hit flag.
func (r *Runner) Fetch(ctx context.Context, src Source, opts Options) (*graph.Description, error) {
	d, _, err := r.FetchWithCacheInfo(ctx, src, opts)
	return d, err
}

func (r *Runner) cachedDescription(ctx context.Context, key string) (*graph.Description, bool) {
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil {
		r.Logger.Warn("cache read failed", "key", key, "error", err)
	}
	if err != nil || !hit {
		observability.Cache().OnCacheMiss(ctx, cache.KeyTypeGraph)
		return nil, false
	}
	d, err := graph.UnmarshalDescription(data)
	if err != nil {
		r.Logger.Debug("dropping corrupt cached graph", "key", key, "error", err)
		_ = r.Cache.Delete(ctx, key)
		observability.Cache().OnCacheMiss(ctx, cache.KeyTypeGraph)
		return nil, false
	}
	observability.Cache().OnCacheHit(ctx, cache.KeyTypeGraph)
	return d, true
}

// Invalidate drops the cached description of src. Call it after every edge
// mutation; layouts and artifacts are content-addressed and need no purge.
func (r *Runner) Invalidate(ctx context.Context, src Source) error {
	key := r.Keyer.GraphKey(src.GraphURL())
	if err := r.Cache.Delete(ctx, key); err != nil {
		return fmt.Errorf("invalidate %s: %w", key, err)
	}
	r.Logger.Debug("invalidated cached graph", "source", src.GraphURL())
	return nil
}

// LayoutWithCacheInfo computes the layout of d, using the cache when the
// same description was laid out with the same options before.
func (r *Runner) LayoutWithCacheInfo(ctx context.Context, d *graph.Description, opts Options) (*layout.Result, bool, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, false, err
	}
	key := r.Keyer.LayoutKey(DescriptionHash(d), opts.LayoutKeyOpts())

	if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
		var cached layout.Result
		if err := json.Unmarshal(data, &cached); err == nil {
			observability.Cache().OnCacheHit(ctx, cache.KeyTypeLayout)
			return &cached, true, nil
		}
	}
	observability.Cache().OnCacheMiss(ctx, cache.KeyTypeLayout)

	hooks := observability.Pipeline()
	hooks.OnLayoutStart(ctx, string(opts.Layout.Policy), d.NodeCount())
	start := time.Now()
	lr, err := layout.Compute(d, opts.Layout)
	policy := string(opts.Layout.Policy)
	if lr != nil {
		policy = string(lr.Policy)
	}
	hooks.OnLayoutComplete(ctx, policy, time.Since(start), err)
	if err != nil {
		return nil, false, err
	}

	if data, err := json.Marshal(lr); err == nil {
		r.store(ctx, cache.KeyTypeLayout, key, data, cache.TTLLayout)
	}
	return lr, false, nil
}

// Layout is LayoutWithCacheInfo without the hit flag.
func (r *Runner) Layout(ctx context.Context, d *graph.Description, opts Options) (*layout.Result, error) {
	lr, _, err := r.LayoutWithCacheInfo(ctx, d, opts)
	return lr, err
}

// RenderWithCacheInfo renders every requested format. The hit flag is set
// only when all of them came from cache.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, d *graph.Description, lr *layout.Result, opts Options) (map[string][]byte, bool, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, false, err
	}
	layoutData, err := json.Marshal(lr)
	if err != nil {
		return nil, false, fmt.Errorf("serialize layout for cache key: %w", err)
	}
	// Edges are not part of the layout, so they go into the hash too.
	layoutHash := cache.Hash(append(layoutData, DescriptionHash(d)...))

	artifacts := make(map[string][]byte, len(opts.Formats))
	for _, format := range opts.Formats {
		data, hit, err := r.Cache.Get(ctx, r.Keyer.ArtifactKey(layoutHash, opts.ArtifactKeyOpts(format)))
		if err != nil || !hit {
			break
		}
		artifacts[format] = data
	}
	if len(artifacts) == len(opts.Formats) {
		observability.Cache().OnCacheHit(ctx, cache.KeyTypeArtifact)
		return artifacts, true, nil
	}
	observability.Cache().OnCacheMiss(ctx, cache.KeyTypeArtifact)

	hooks := observability.Pipeline()
	hooks.OnRenderStart(ctx, opts.Formats)
	start := time.Now()
	rendered, err := Render(ctx, d, lr, opts)
	hooks.OnRenderComplete(ctx, opts.Formats, time.Since(start), err)
	if err != nil {
		return nil, false, err
	}

	for format, data := range rendered {
		r.store(ctx, cache.KeyTypeArtifact, r.Keyer.ArtifactKey(layoutHash, opts.ArtifactKeyOpts(format)), data, cache.TTLArtifact)
	}
	return rendered, false, nil
}

// RenderArtifacts is RenderWithCacheInfo without the hit flag.
func (r *Runner) RenderArtifacts(ctx context.Context, d *graph.Description, lr *layout.Result, opts Options) (map[string][]byte, error) {
	artifacts, _, err := r.RenderWithCacheInfo(ctx, d, lr, opts)
	return artifacts, err
}

func (r *Runner) store(ctx context.Context, keyType, key string, data []byte, ttl time.Duration) {
	if err := r.Cache.Set(ctx, key, data, ttl); err != nil {
		r.Logger.Warn("cache write failed", "key", key, "error", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, keyType, len(data))
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// DescriptionHash is the content hash of the canonical encoding of d.
func DescriptionHash(d *graph.Description) string {
	data, err := graph.MarshalDescription(d)
	if err != nil {
		return ""
	}
	return cache.Hash(data)
}
