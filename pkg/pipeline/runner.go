package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/stageflow/pkg/assemble"
	"github.com/matzehuels/stageflow/pkg/cache"
	"github.com/matzehuels/stageflow/pkg/catalog"
	"github.com/matzehuels/stageflow/pkg/errors"
	"github.com/matzehuels/stageflow/pkg/graph"
	"github.com/matzehuels/stageflow/pkg/observability"
	"github.com/matzehuels/stageflow/pkg/render"
	"github.com/matzehuels/stageflow/pkg/workflow"
)

// Cache key types reported to observability hooks.
const (
	keyTypeGraph    = "graph"
	keyTypeArtifact = "artifact"
)

// Runner encapsulates pipeline execution with caching.
// The CLI, the TUI and the API all use it to avoid duplicating caching logic.
//
// The Runner is stateless except for its dependencies - it doesn't store
// pipeline results. Multiple goroutines can safely use the same Runner with
// different options.
type Runner struct {
	Provider catalog.Provider
	Cache    cache.Cache
	Keyer    cache.Keyer
	Logger   *log.Logger
}

// NewRunner creates a runner over the given workflow provider.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(p catalog.Provider, c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Provider: p,
		Cache:    c,
		Keyer:    keyer,
		Logger:   logger,
	}
}

// Execute runs the complete load → assemble → render pipeline with caching.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	result := &Result{}

	// Stage 1: Load
	loadStart := time.Now()
	data, err := r.Load(ctx, opts.WorkflowID)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	result.Data = data
	result.Stats.LoadTime = time.Since(loadStart)

	// Stage 2: Assemble
	assembleStart := time.Now()
	g, graphHit, err := r.AssembleWithCacheInfo(ctx, data, opts)
	if err != nil {
		return nil, fmt.Errorf("assemble: %w", err)
	}
	result.Graph = g
	result.Stats.AssembleTime = time.Since(assembleStart)
	result.Stats.NodeCount = len(g.Nodes)
	result.Stats.EdgeCount = len(g.Edges)
	result.CacheInfo.GraphHit = graphHit

	if graphData, err := graph.MarshalGraph(g); err == nil {
		result.GraphHash = cache.Hash(graphData)
	}

	r.Logger.Info("assembled diagram",
		"workflow", data.Workflow.ID,
		"nodes", len(g.Nodes),
		"edges", len(g.Edges),
		"cached", graphHit,
		"duration", result.Stats.AssembleTime)

	// Stage 3: Render
	renderStart := time.Now()
	artifacts, renderHit, err := r.RenderWithCacheInfo(ctx, g, opts)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	result.Artifacts = artifacts
	result.Stats.RenderTime = time.Since(renderStart)
	result.CacheInfo.RenderHit = renderHit

	r.Logger.Info("rendered outputs",
		"formats", opts.Formats,
		"cached", renderHit,
		"duration", result.Stats.RenderTime)

	return result, nil
}

// Load fetches a workflow from the provider.
func (r *Runner) Load(ctx context.Context, id string) (*workflow.Data, error) {
	if r.Provider == nil {
		return nil, errors.New(errors.ErrCodeInternal, "runner has no workflow provider")
	}
	return r.Provider.Get(ctx, id)
}

// AssembleWithCacheInfo assembles the diagram for data with caching and
// returns cache hit info.
func (r *Runner) AssembleWithCacheInfo(ctx context.Context, data *workflow.Data, opts Options) (g graph.Graph, hit bool, err error) {
	if data == nil {
		return graph.Graph{}, false, errors.New(errors.ErrCodeInvalidInput, "no workflow data")
	}
	if err := opts.ValidateForAssemble(); err != nil {
		return graph.Graph{}, false, err
	}

	id := data.Workflow.ID
	start := time.Now()
	hooks := observability.Pipeline()
	hooks.OnAssembleStart(ctx, id)
	defer func() {
		hooks.OnAssembleComplete(ctx, id, len(g.Nodes), len(g.Edges), time.Since(start), err)
	}()

	cacheKey, err := r.graphKey(data, opts)
	if err != nil {
		return graph.Graph{}, false, errors.Wrap(errors.ErrCodeInternal, err, "graph cache key")
	}

	if !opts.Refresh {
		if cached, ok := r.cachedGraph(ctx, cacheKey); ok {
			return cached, true, nil
		}
	}

	g = assemble.Assemble(data, opts.Layout, opts.State, opts.Edges)

	if raw, err := graph.MarshalGraph(g); err == nil {
		r.store(ctx, keyTypeGraph, cacheKey, raw, cache.GraphTTL)
	}
	return g, false, nil
}

// Assemble is a convenience wrapper that calls AssembleWithCacheInfo and discards the cache hit info.
func (r *Runner) Assemble(ctx context.Context, data *workflow.Data, opts Options) (graph.Graph, error) {
	g, _, err := r.AssembleWithCacheInfo(ctx, data, opts)
	return g, err
}

func (r *Runner) graphKey(data *workflow.Data, opts Options) (string, error) {
	workflowHash, err := cache.HashJSON(data)
	if err != nil {
		return "", err
	}
	keyOpts, err := opts.GraphKeyOpts(data.Workflow.ID)
	if err != nil {
		return "", err
	}
	return r.Keyer.GraphKey(workflowHash, keyOpts), nil
}

func (r *Runner) cachedGraph(ctx context.Context, key string) (graph.Graph, bool) {
	raw, hit, err := r.Cache.Get(ctx, key)
	if err != nil {
		r.Logger.Warn("cache read failed", "key", key, "error", err)
	}
	if err != nil || !hit {
		observability.Cache().OnCacheMiss(ctx, keyTypeGraph)
		return graph.Graph{}, false
	}
	g, err := graph.ReadGraph(bytes.NewReader(raw))
	if err != nil {
		// Unreadable entries are recomputed and overwritten.
		observability.Cache().OnCacheMiss(ctx, keyTypeGraph)
		return graph.Graph{}, false
	}
	observability.Cache().OnCacheHit(ctx, keyTypeGraph)
	return g, true
}

// RenderWithCacheInfo generates artifacts with caching and returns cache hit
// info. The hit flag is true only when every format came from cache.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, g graph.Graph, opts Options) (map[string][]byte, bool, error) {
	if err := opts.ValidateForRender(); err != nil {
		return nil, false, err
	}

	graphData, err := graph.MarshalGraph(g)
	if err != nil {
		return nil, false, fmt.Errorf("serialize graph for cache key: %w", err)
	}
	graphHash := cache.Hash(graphData)

	artifacts := make(map[string][]byte, len(opts.Formats))
	allHit := true
	for _, format := range opts.Formats {
		key := r.Keyer.ArtifactKey(graphHash, opts.ArtifactKeyOpts(format))

		if !opts.Refresh {
			if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
				observability.Cache().OnCacheHit(ctx, keyTypeArtifact)
				artifacts[format] = data
				continue
			}
			observability.Cache().OnCacheMiss(ctx, keyTypeArtifact)
		}
		allHit = false

		data, err := r.renderOne(ctx, g, format, opts)
		if err != nil {
			return nil, false, fmt.Errorf("render %s: %w", format, err)
		}
		artifacts[format] = data
		r.store(ctx, keyTypeArtifact, key, data, cache.ArtifactTTL)
	}

	return artifacts, allHit, nil
}

// Render is a convenience wrapper that calls RenderWithCacheInfo and discards the cache hit info.
func (r *Runner) Render(ctx context.Context, g graph.Graph, opts Options) (map[string][]byte, error) {
	artifacts, _, err := r.RenderWithCacheInfo(ctx, g, opts)
	return artifacts, err
}

func (r *Runner) renderOne(ctx context.Context, g graph.Graph, format string, opts Options) (data []byte, err error) {
	start := time.Now()
	hooks := observability.Pipeline()
	hooks.OnRenderStart(ctx, format)
	defer func() {
		hooks.OnRenderComplete(ctx, format, len(data), time.Since(start), err)
	}()

	data, err = render.Render(ctx, g, opts.RenderOptions(format))
	if err == nil {
		r.Logger.Debug("rendered", "format", format, "bytes", len(data))
	}
	return data, err
}

// store writes to the cache. Failures are logged and otherwise ignored.
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
