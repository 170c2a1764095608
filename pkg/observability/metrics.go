package observability

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// Metrics counts pipeline, cache and HTTP events in process memory. It
// implements [PipelineHooks], [CacheHooks] and [HTTPHooks] and is safe for
// concurrent use.
type Metrics struct {
	mu      sync.Mutex
	started time.Time
	stages  map[string]*StageStats
	cache   map[string]*CacheStats
	status  map[string]int64
	errors  int64
}

// StageStats aggregates one pipeline stage.
type StageStats struct {
	Runs     int64         `json:"runs"`
	Failures int64         `json:"failures"`
	Total    time.Duration `json:"total_ns"`
	Nodes    int64         `json:"nodes,omitempty"`
}

// CacheStats aggregates one cache key type.
type CacheStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Sets   int64 `json:"sets"`
	Bytes  int64 `json:"bytes"`
}

// MetricsSnapshot is a point-in-time copy of [Metrics].
type MetricsSnapshot struct {
	Uptime    time.Duration         `json:"uptime_ns"`
	Stages    map[string]StageStats `json:"stages"`
	Cache     map[string]CacheStats `json:"cache"`
	Responses map[string]int64      `json:"responses"`
	Errors    int64                 `json:"errors"`
}

// NewMetrics returns an empty collector.
func NewMetrics() *Metrics {
	return &Metrics{
		started: time.Now(),
		stages:  make(map[string]*StageStats),
		cache:   make(map[string]*CacheStats),
		status:  make(map[string]int64),
	}
}

func (m *Metrics) stage(name string, d time.Duration, err error, nodes int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.stages[name]
	if s == nil {
		s = &StageStats{}
		m.stages[name] = s
	}
	s.Runs++
	s.Total += d
	s.Nodes += int64(nodes)
	if err != nil {
		s.Failures++
	}
}

func (m *Metrics) cacheStats(keyType string, fn func(*CacheStats)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.cache[keyType]
	if c == nil {
		c = &CacheStats{}
		m.cache[keyType] = c
	}
	fn(c)
}

func (m *Metrics) OnCompileStart(context.Context, string, int) {}
func (m *Metrics) OnCompileComplete(_ context.Context, _ string, d time.Duration, err error) {
	m.stage("compile", d, err, 0)
}

func (m *Metrics) OnConvertStart(context.Context, int) {}
func (m *Metrics) OnConvertComplete(_ context.Context, nodes int, d time.Duration, err error) {
	m.stage("convert", d, err, nodes)
}

func (m *Metrics) OnRenderStart(context.Context, []string) {}
func (m *Metrics) OnRenderComplete(_ context.Context, _ []string, d time.Duration, err error) {
	m.stage("render", d, err, 0)
}

func (m *Metrics) OnCacheHit(_ context.Context, keyType string) {
	m.cacheStats(keyType, func(c *CacheStats) { c.Hits++ })
}

func (m *Metrics) OnCacheMiss(_ context.Context, keyType string) {
	m.cacheStats(keyType, func(c *CacheStats) { c.Misses++ })
}

func (m *Metrics) OnCacheSet(_ context.Context, keyType string, size int) {
	m.cacheStats(keyType, func(c *CacheStats) {
		c.Sets++
		c.Bytes += int64(size)
	})
}

func (m *Metrics) OnRequest(context.Context, string, string) {}

// OnResponse counts responses by "METHOD pattern STATUS".
func (m *Metrics) OnResponse(_ context.Context, method, path string, status int, _ time.Duration) {
	m.mu.Lock()
	m.status[method+" "+path+" "+strconv.Itoa(status)]++
	m.mu.Unlock()
}

func (m *Metrics) OnError(context.Context, string, string, error) {
	m.mu.Lock()
	m.errors++
	m.mu.Unlock()
}

// Snapshot copies the current counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := MetricsSnapshot{
		Uptime:    time.Since(m.started),
		Stages:    make(map[string]StageStats, len(m.stages)),
		Cache:     make(map[string]CacheStats, len(m.cache)),
		Responses: make(map[string]int64, len(m.status)),
		Errors:    m.errors,
	}
	for k, v := range m.stages {
		snap.Stages[k] = *v
	}
	for k, v := range m.cache {
		snap.Cache[k] = *v
	}
	for k, v := range m.status {
		snap.Responses[k] = v
	}
	return snap
}

var (
	_ PipelineHooks = (*Metrics)(nil)
	_ CacheHooks    = (*Metrics)(nil)
	_ HTTPHooks     = (*Metrics)(nil)
)
