package pipeline

import (
	"bytes"
	"context"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/RalXYZ/cc99/pkg/cache"
	"github.com/RalXYZ/cc99/pkg/errors"
	"github.com/RalXYZ/cc99/pkg/observability"
	"github.com/RalXYZ/cc99/pkg/vistree"
)

func loadProgram(t *testing.T) []byte {
	t.Helper()
	data, err := os.ReadFile("testdata/program.json")
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func newFileRunner(t *testing.T) *Runner {
	t.Helper()
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return NewRunner(c, nil, nil)
}

func TestNewRunnerDefaults(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	if r.Cache == nil || r.Keyer == nil || r.Logger == nil {
		t.Errorf("NewRunner(nil, nil, nil) = %+v", r)
	}
	if err := r.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestRunnerExecute(t *testing.T) {
	r := NewRunner(nil, nil, nil)

	result, err := r.Execute(context.Background(), loadProgram(t), Options{Formats: []string{"json", "dot"}})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if result.Stats.NodeCount != 45 {
		t.Errorf("NodeCount = %d, want 45", result.Stats.NodeCount)
	}
	if result.Stats.Depth != 9 {
		t.Errorf("Depth = %d, want 9", result.Stats.Depth)
	}
	if len(result.TreeHash) != 64 {
		t.Errorf("TreeHash = %q", result.TreeHash)
	}

	tree, err := vistree.UnmarshalTree(result.Artifacts["json"])
	if err != nil {
		t.Fatalf("json artifact is not a tree: %v", err)
	}
	if vistree.Count(tree) != 45 {
		t.Errorf("json artifact has %d nodes, want 45", vistree.Count(tree))
	}
	if !bytes.Contains(result.Artifacts["dot"], []byte(`"0" -> "1";`)) {
		t.Errorf("dot artifact missing root edge:\n%s", result.Artifacts["dot"])
	}
}

func TestRunnerExecuteSVG(t *testing.T) {
	r := NewRunner(nil, nil, nil)

	result, err := r.Execute(context.Background(), loadProgram(t), Options{Formats: []string{"svg"}})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !bytes.Contains(result.Artifacts["svg"], []byte("<svg")) {
		t.Error("svg artifact missing <svg")
	}
}

func TestRunnerCaching(t *testing.T) {
	r := newFileRunner(t)
	ctx := context.Background()
	input := loadProgram(t)
	opts := Options{Formats: []string{"json", "dot"}}

	first, err := r.Execute(ctx, input, opts)
	if err != nil {
		t.Fatal(err)
	}
	if first.CacheInfo.ConvertHit || first.CacheInfo.RenderHit {
		t.Errorf("first run CacheInfo = %+v, want misses", first.CacheInfo)
	}

	second, err := r.Execute(ctx, input, opts)
	if err != nil {
		t.Fatal(err)
	}
	if !second.CacheInfo.ConvertHit || !second.CacheInfo.RenderHit {
		t.Errorf("second run CacheInfo = %+v, want hits", second.CacheInfo)
	}
	if second.TreeHash != first.TreeHash {
		t.Error("cached tree hashes differently")
	}
	if !bytes.Equal(first.Artifacts["dot"], second.Artifacts["dot"]) {
		t.Error("cached dot artifact differs")
	}

	// A different policy is a different tree
	tagged, err := r.Execute(ctx, input, Options{Unknown: "tagged", Formats: []string{"json"}})
	if err != nil {
		t.Fatal(err)
	}
	if tagged.CacheInfo.ConvertHit {
		t.Error("tagged run should not reuse the blank tree")
	}

	// Refresh bypasses the cache
	refreshed, err := r.Execute(ctx, input, Options{Formats: []string{"json", "dot"}, Refresh: true})
	if err != nil {
		t.Fatal(err)
	}
	if refreshed.CacheInfo.ConvertHit || refreshed.CacheInfo.RenderHit {
		t.Errorf("refresh CacheInfo = %+v, want misses", refreshed.CacheInfo)
	}
}

func TestRunnerRenderReusesCachedFormats(t *testing.T) {
	r := newFileRunner(t)
	ctx := context.Background()
	tree, err := r.Convert(ctx, loadProgram(t), Options{})
	if err != nil {
		t.Fatal(err)
	}

	if _, hit, err := r.RenderWithCacheInfo(ctx, tree, Options{Formats: []string{"json"}}); err != nil || hit {
		t.Fatalf("first render hit=%v err=%v", hit, err)
	}

	both := Options{Formats: []string{"json", "dot", "json"}}
	artifacts, hit, err := r.RenderWithCacheInfo(ctx, tree, both)
	if err != nil {
		t.Fatal(err)
	}
	if hit {
		t.Error("dot was never rendered, so the call cannot be a full hit")
	}
	if len(artifacts) != 2 || len(artifacts["json"]) == 0 || len(artifacts["dot"]) == 0 {
		t.Fatalf("artifacts = %v, want json and dot", keys(artifacts))
	}

	if _, hit, err := r.RenderWithCacheInfo(ctx, tree, both); err != nil || !hit {
		t.Errorf("third render hit=%v err=%v, want a full hit", hit, err)
	}
}

func keys(m map[string][]byte) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func TestRunnerConvertErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		opts  Options
		want  errors.Code
	}{
		{"not json", `{`, Options{}, errors.ErrCodeMalformedInput},
		{"missing root", `{"ast": {}}`, Options{}, errors.ErrCodeMalformedInput},
		{"compile error", `{"error": true, "message": "expected ';'"}`, Options{}, errors.ErrCodeCompileFailed},
		{"unknown variant", `{"GlobalDeclaration": [{"StaticAssert": 1}]}`, Options{Unknown: "fail"}, errors.ErrCodeUnknownVariant},
		{"bad policy", `{"GlobalDeclaration": []}`, Options{Unknown: "maybe"}, errors.ErrCodeInvalidInput},
	}
	r := NewRunner(nil, nil, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Execute(context.Background(), []byte(tt.input), tt.opts)
			if got := errors.GetCode(err); got != tt.want {
				t.Errorf("Execute() error = %v, want code %s", err, tt.want)
			}
		})
	}
}

func TestRunnerRenderErrors(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	tree, err := r.Convert(context.Background(), loadProgram(t), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Render(context.Background(), tree, Options{Formats: []string{"gif"}}); !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("Render(gif) error = %v, want INVALID_FORMAT", err)
	}
	if _, err := r.Render(context.Background(), nil, Options{}); err == nil {
		t.Error("Render(nil) should fail")
	}
}

// fakeCompiler returns a fixed envelope and counts invocations.
type fakeCompiler struct {
	mu    sync.Mutex
	calls int
	out   []byte
	err   error
}

func (f *fakeCompiler) Compile(ctx context.Context, source string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.out, f.err
}

func (f *fakeCompiler) Version(context.Context) (string, error) { return "fake 1.0", nil }
func (f *fakeCompiler) ID() string                              { return "fake" }

func TestRunnerExecuteSource(t *testing.T) {
	r := newFileRunner(t)
	fc := &fakeCompiler{out: loadProgram(t)}
	r.Compiler = fc
	ctx := context.Background()
	source := "int main() { return 0; }"

	first, err := r.ExecuteSource(ctx, source, Options{})
	if err != nil {
		t.Fatalf("ExecuteSource() error = %v", err)
	}
	if first.CacheInfo.CompileHit || first.Stats.NodeCount != 45 {
		t.Errorf("first run = %+v / %+v", first.CacheInfo, first.Stats)
	}

	second, err := r.ExecuteSource(ctx, source, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !second.CacheInfo.CompileHit {
		t.Error("second run should reuse compiler output")
	}
	if fc.calls != 1 {
		t.Errorf("compiler called %d times, want 1", fc.calls)
	}
}

func TestRunnerCompileErrors(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	ctx := context.Background()

	if _, err := r.Compile(ctx, "int x;", Options{}); !errors.Is(err, errors.ErrCodeUnavailable) {
		t.Errorf("Compile() without compiler error = %v, want UNAVAILABLE", err)
	}

	r.Compiler = &fakeCompiler{err: errors.New(errors.ErrCodeTimeout, "too slow")}
	if _, err := r.ExecuteSource(ctx, "int x;", Options{}); !errors.Is(err, errors.ErrCodeTimeout) {
		t.Errorf("ExecuteSource() error = %v, want TIMEOUT", err)
	}
	if _, err := r.Compile(ctx, "", Options{}); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("Compile(empty) error = %v, want INVALID_INPUT", err)
	}

	// Error envelopes come back from the compiler and fail at conversion
	r.Compiler = &fakeCompiler{out: []byte(`{"error": true, "message": "syntax error"}`)}
	_, err := r.ExecuteSource(ctx, "int x", Options{})
	if !errors.Is(err, errors.ErrCodeCompileFailed) || !strings.Contains(err.Error(), "syntax error") {
		t.Errorf("ExecuteSource() error = %v, want COMPILE_FAILED", err)
	}
}

type recordingHooks struct {
	observability.NoopPipelineHooks
	mu       sync.Mutex
	converts int
	renders  int
	nodes    int
}

func (h *recordingHooks) OnConvertComplete(_ context.Context, nodes int, _ time.Duration, _ error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.converts++
	h.nodes = nodes
}

func (h *recordingHooks) OnRenderComplete(context.Context, []string, time.Duration, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.renders++
}

func TestRunnerHooks(t *testing.T) {
	hooks := &recordingHooks{}
	observability.SetPipelineHooks(hooks)
	defer observability.Reset()

	r := NewRunner(nil, nil, nil)
	if _, err := r.Execute(context.Background(), loadProgram(t), Options{}); err != nil {
		t.Fatal(err)
	}
	if hooks.converts != 1 || hooks.renders != 1 {
		t.Errorf("hooks saw %d converts, %d renders; want 1 each", hooks.converts, hooks.renders)
	}
	if hooks.nodes != 45 {
		t.Errorf("OnConvertComplete nodes = %d, want 45", hooks.nodes)
	}
}
