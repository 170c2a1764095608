package pipeline

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"github.com/RalXYZ/cc99/pkg/cache"
	"github.com/RalXYZ/cc99/pkg/compiler"
	"github.com/RalXYZ/cc99/pkg/errors"
	"github.com/RalXYZ/cc99/pkg/observability"
	"github.com/RalXYZ/cc99/pkg/vistree"
)

// Runner runs the stages against a cache. It keeps no per-run state, so one
// Runner may serve concurrent requests with different options.
type Runner struct {
	Cache    cache.Cache
	Keyer    cache.Keyer
	Logger   *log.Logger
	Compiler compiler.Compiler // Optional; required only for source input
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
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs the complete convert → render pipeline on AST JSON with caching.
func (r *Runner) Execute(ctx context.Context, input []byte, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	result := &Result{
		Artifacts: make(map[string][]byte),
	}

	// Stage 1: Convert
	convertStart := time.Now()
	tree, convertHit, err := r.ConvertWithCacheInfo(ctx, input, opts)
	if err != nil {
		return nil, fmt.Errorf("convert: %w", err)
	}
	result.Tree = tree
	result.Stats.ConvertTime = time.Since(convertStart)
	result.Stats.NodeCount = vistree.Count(tree)
	result.Stats.Depth = vistree.Depth(tree)
	result.CacheInfo.ConvertHit = convertHit

	// Compute tree hash for cache keys and API responses
	if treeData, err := vistree.MarshalTree(tree); err == nil {
		result.TreeHash = cache.Hash(treeData)
	}

	r.Logger.Info("converted AST",
		"nodes", result.Stats.NodeCount,
		"depth", result.Stats.Depth,
		"cached", convertHit,
		"duration", result.Stats.ConvertTime)

	// Stage 2: Render
	renderStart := time.Now()
	artifacts, renderHit, err := r.RenderWithCacheInfo(ctx, tree, opts)
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

// ExecuteSource compiles C source with the runner's compiler and runs the
// complete pipeline on the resulting AST.
func (r *Runner) ExecuteSource(ctx context.Context, source string, opts Options) (*Result, error) {
	compileStart := time.Now()
	input, compileHit, err := r.CompileWithCacheInfo(ctx, source, opts)
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}
	compileTime := time.Since(compileStart)

	result, err := r.Execute(ctx, input, opts)
	if err != nil {
		return nil, err
	}
	result.Stats.CompileTime = compileTime
	result.CacheInfo.CompileHit = compileHit
	return result, nil
}

// CompileWithCacheInfo runs the compiler with caching and returns cache hit info.
// The compiler output is returned as printed, including error envelopes.
func (r *Runner) CompileWithCacheInfo(ctx context.Context, source string, opts Options) ([]byte, bool, error) {
	if r.Compiler == nil {
		return nil, false, errors.New(errors.ErrCodeUnavailable, "no compiler configured")
	}
	if err := errors.ValidateSource(source); err != nil {
		return nil, false, err
	}

	cacheKey := r.Keyer.CompileKey(cache.Hash([]byte(source)), r.Compiler.ID())

	// Try cache first (unless refresh requested)
	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			observability.Cache().OnCacheHit(ctx, "compile")
			return data, true, nil
		}
		observability.Cache().OnCacheMiss(ctx, "compile")
	}

	hooks := observability.Pipeline()
	hooks.OnCompileStart(ctx, r.Compiler.ID(), len(source))
	start := time.Now()
	out, err := r.Compiler.Compile(ctx, source)
	hooks.OnCompileComplete(ctx, r.Compiler.ID(), time.Since(start), err)
	if err != nil {
		return nil, false, err
	}

	if err := r.Cache.Set(ctx, cacheKey, out, cache.TTLCompile); err == nil {
		observability.Cache().OnCacheSet(ctx, "compile", len(out))
	}
	return out, false, nil
}

// Compile is a convenience wrapper that calls CompileWithCacheInfo and discards the cache hit info.
func (r *Runner) Compile(ctx context.Context, source string, opts Options) ([]byte, error) {
	out, _, err := r.CompileWithCacheInfo(ctx, source, opts)
	return out, err
}

// ConvertWithCacheInfo converts AST JSON with caching and returns cache hit info.
func (r *Runner) ConvertWithCacheInfo(ctx context.Context, input []byte, opts Options) (*vistree.Node, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForConvert(); err != nil {
		return nil, false, err
	}

	cacheKey := r.Keyer.TreeKey(cache.Hash(input), opts.TreeKeyOpts())

	// Try cache first (unless refresh requested)
	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			tree, err := vistree.UnmarshalTree(data)
			if err == nil {
				observability.Cache().OnCacheHit(ctx, "tree")
				return tree, true, nil // Cache hit
			}
			opts.Logger.Warn("discarding unreadable cached tree", "error", err)
		}
		observability.Cache().OnCacheMiss(ctx, "tree")
	}

	hooks := observability.Pipeline()
	hooks.OnConvertStart(ctx, len(input))
	start := time.Now()
	tree, err := Convert(input, opts)
	nodes := 0
	if tree != nil {
		nodes = vistree.Count(tree)
	}
	hooks.OnConvertComplete(ctx, nodes, time.Since(start), err)
	if err != nil {
		return nil, false, err
	}

	// Cache the result
	if data, err := vistree.MarshalTree(tree); err == nil {
		if err := r.Cache.Set(ctx, cacheKey, data, cache.TTLTree); err == nil {
			observability.Cache().OnCacheSet(ctx, "tree", len(data))
		}
	}

	return tree, false, nil // Cache miss
}

// Convert is [Runner.ConvertWithCacheInfo] without the cache flag.
func (r *Runner) Convert(ctx context.Context, input []byte, opts Options) (*vistree.Node, error) {
	tree, _, err := r.ConvertWithCacheInfo(ctx, input, opts)
	return tree, err
}

// RenderWithCacheInfo renders opts.Formats, reusing cached artifacts and
// rendering only the formats that missed. The flag is true when nothing had
// to be rendered.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, tree *vistree.Node, opts Options) (map[string][]byte, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForRender(); err != nil {
		return nil, false, err
	}

	treeData, err := vistree.MarshalTree(tree)
	if err != nil {
		return nil, false, fmt.Errorf("serialize tree for cache key: %w", err)
	}
	treeHash := cache.Hash(treeData)
	keyOf := func(format string) string {
		return r.Keyer.ArtifactKey(treeHash, opts.ArtifactKeyOpts(format))
	}

	artifacts := make(map[string][]byte, len(opts.Formats))
	var missing []string
	for _, format := range opts.Formats {
		if _, dup := artifacts[format]; dup || slices.Contains(missing, format) {
			continue
		}
		if !opts.Refresh {
			if data, hit, err := r.Cache.Get(ctx, keyOf(format)); err == nil && hit {
				observability.Cache().OnCacheHit(ctx, "artifact")
				artifacts[format] = data
				continue
			}
		}
		observability.Cache().OnCacheMiss(ctx, "artifact")
		missing = append(missing, format)
	}
	if len(missing) == 0 {
		return artifacts, true, nil
	}

	hooks := observability.Pipeline()
	hooks.OnRenderStart(ctx, missing)
	start := time.Now()
	sub := opts
	sub.Formats = missing
	rendered, err := Render(tree, sub)
	hooks.OnRenderComplete(ctx, missing, time.Since(start), err)
	if err != nil {
		return nil, false, err
	}

	for format, data := range rendered {
		artifacts[format] = data
		if err := r.Cache.Set(ctx, keyOf(format), data, cache.TTLArtifact); err == nil {
			observability.Cache().OnCacheSet(ctx, "artifact", len(data))
		}
	}
	return artifacts, false, nil
}

// Render is [Runner.RenderWithCacheInfo] without the cache flag.
func (r *Runner) Render(ctx context.Context, tree *vistree.Node, opts Options) (map[string][]byte, error) {
	artifacts, _, err := r.RenderWithCacheInfo(ctx, tree, opts)
	return artifacts, err
}

// Close closes the cache.
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
