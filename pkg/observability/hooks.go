// Package observability lets the binary observe the pipeline, the caches
// and the HTTP server without those packages knowing who is listening.
//
// Libraries emit events through the registered hooks:
//
//	observability.Pipeline().OnConvertStart(ctx, len(input))
//	// ... decode and convert ...
//	observability.Pipeline().OnConvertComplete(ctx, nodeCount, duration, err)
//
// The defaults do nothing. A binary registers real hooks once at startup,
// before serving. [Metrics] implements every hook interface with in-process
// counters:
//
//	m := observability.NewMetrics()
//	observability.Register(m)
package observability

import (
	"context"
	"sync/atomic"
	"time"
)

// PipelineHooks receives events from the conversion pipeline.
type PipelineHooks interface {
	// C source to AST JSON, through the external compiler.
	OnCompileStart(ctx context.Context, compiler string, sourceSize int)
	OnCompileComplete(ctx context.Context, compiler string, duration time.Duration, err error)

	// AST JSON to visualization tree.
	OnConvertStart(ctx context.Context, inputSize int)
	OnConvertComplete(ctx context.Context, nodeCount int, duration time.Duration, err error)

	OnRenderStart(ctx context.Context, formats []string)
	OnRenderComplete(ctx context.Context, formats []string, duration time.Duration, err error)
}

// CacheHooks receives cache events. keyType is "compile", "tree" or
// "artifact".
type CacheHooks interface {
	OnCacheHit(ctx context.Context, keyType string)
	OnCacheMiss(ctx context.Context, keyType string)
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// HTTPHooks receives events from the HTTP server. path is the route
// pattern, not the raw URL.
type HTTPHooks interface {
	OnRequest(ctx context.Context, method, path string)
	OnResponse(ctx context.Context, method, path string, statusCode int, duration time.Duration)
	// OnError reports a request that ended with an error envelope.
	OnError(ctx context.Context, method, path string, err error)
}

type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnCompileStart(context.Context, string, int)                      {}
func (NoopPipelineHooks) OnCompileComplete(context.Context, string, time.Duration, error)   {}
func (NoopPipelineHooks) OnConvertStart(context.Context, int)                              {}
func (NoopPipelineHooks) OnConvertComplete(context.Context, int, time.Duration, error)     {}
func (NoopPipelineHooks) OnRenderStart(context.Context, []string)                          {}
func (NoopPipelineHooks) OnRenderComplete(context.Context, []string, time.Duration, error) {}

type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, error)                 {}

// hookSet is swapped as a whole so readers never see a half-updated set.
type hookSet struct {
	pipeline PipelineHooks
	cache    CacheHooks
	http     HTTPHooks
}

var defaults = hookSet{NoopPipelineHooks{}, NoopCacheHooks{}, NoopHTTPHooks{}}

var current atomic.Pointer[hookSet]

func init() { Reset() }

func update(fn func(*hookSet)) {
	for {
		old := current.Load()
		next := *old
		fn(&next)
		if current.CompareAndSwap(old, &next) {
			return
		}
	}
}

// SetPipelineHooks registers pipeline hooks. nil is ignored.
func SetPipelineHooks(h PipelineHooks) {
	if h != nil {
		update(func(s *hookSet) { s.pipeline = h })
	}
}

// SetCacheHooks registers cache hooks. nil is ignored.
func SetCacheHooks(h CacheHooks) {
	if h != nil {
		update(func(s *hookSet) { s.cache = h })
	}
}

// SetHTTPHooks registers HTTP hooks. nil is ignored.
func SetHTTPHooks(h HTTPHooks) {
	if h != nil {
		update(func(s *hookSet) { s.http = h })
	}
}

// Register installs m for every hook category.
func Register(m *Metrics) {
	update(func(s *hookSet) {
		s.pipeline = m
		s.cache = m
		s.http = m
	})
}

func Pipeline() PipelineHooks { return current.Load().pipeline }
func Cache() CacheHooks       { return current.Load().cache }
func HTTP() HTTPHooks         { return current.Load().http }

// Reset restores the no-op hooks.
func Reset() {
	d := defaults
	current.Store(&d)
}
