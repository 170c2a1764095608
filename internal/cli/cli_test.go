package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/RalXYZ/cc99/pkg/cache"
	"github.com/RalXYZ/cc99/pkg/config"
	cerrors "github.com/RalXYZ/cc99/pkg/errors"
	"github.com/RalXYZ/cc99/pkg/vistree"
)

// newTestCLI returns a CLI whose cache and store live in a temp dir.
func newTestCLI(t *testing.T, extra string) *CLI {
	t.Helper()
	dir := t.TempDir()
	cfg := "[cache]\ndir = \"" + filepath.Join(dir, "cache") + "\"\n\n" +
		"[store]\nbackend = \"sqlite\"\npath = \"" + filepath.Join(dir, "snapshots.db") + "\"\n" + extra
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	c := New(io.Discard, log.InfoLevel)
	c.ConfigPath = path
	return c
}

func runCmd(t *testing.T, c *CLI, args ...string) (string, error) {
	t.Helper()
	root := c.RootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestConvertCommand(t *testing.T) {
	c := newTestCLI(t, "")
	out, err := runCmd(t, c, "convert", "testdata/program.json")
	if err != nil {
		t.Fatalf("convert error = %v", err)
	}
	tree, err := vistree.UnmarshalTree([]byte(out))
	if err != nil {
		t.Fatalf("output is not a tree: %v", err)
	}
	if vistree.Count(tree) != 45 {
		t.Errorf("Count = %d, want 45", vistree.Count(tree))
	}
}

func TestConvertCommandStdin(t *testing.T) {
	old := stdin
	stdin = strings.NewReader(`{"GlobalDeclaration": ["Break"]}`)
	t.Cleanup(func() { stdin = old })

	c := newTestCLI(t, "")
	out, err := runCmd(t, c, "convert", "-", "--no-cache")
	if err != nil {
		t.Fatalf("convert error = %v", err)
	}
	if !strings.Contains(out, `"label": "Break"`) {
		t.Errorf("output = %s", out)
	}
}

func TestConvertCommandErrors(t *testing.T) {
	c := newTestCLI(t, "")
	tests := []struct {
		name string
		args []string
	}{
		{"missing file", []string{"convert", "testdata/nope.json"}},
		{"bad policy", []string{"convert", "testdata/program.json", "--unknown", "loud"}},
		{"no args", []string{"convert"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := runCmd(t, c, tt.args...); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestConvertCommandToFile(t *testing.T) {
	c := newTestCLI(t, "")
	out := filepath.Join(t.TempDir(), "tree.json")
	if _, err := runCmd(t, c, "convert", "testdata/program.json", "-o", out); err != nil {
		t.Fatalf("convert error = %v", err)
	}
	if _, err := vistree.ImportJSON(out); err != nil {
		t.Errorf("ImportJSON(%s) error = %v", out, err)
	}
}

func TestRenderCommand(t *testing.T) {
	c := newTestCLI(t, "")
	base := filepath.Join(t.TempDir(), "out")
	if _, err := runCmd(t, c, "render", "testdata/program.json", "-f", "dot,json", "-o", base); err != nil {
		t.Fatalf("render error = %v", err)
	}
	dot, err := os.ReadFile(base + ".dot")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(dot), "digraph G {") {
		t.Errorf("dot = %.40s", dot)
	}
	if _, err := os.Stat(base + ".tree.json"); err != nil {
		t.Errorf("json artifact missing: %v", err)
	}
}

func TestRenderCommandStdout(t *testing.T) {
	c := newTestCLI(t, "")
	out, err := runCmd(t, c, "render", "testdata/program.json", "-f", "dot", "--detailed", "-o", "-")
	if err != nil {
		t.Fatalf("render error = %v", err)
	}
	if !strings.Contains(out, `#44`) {
		t.Errorf("detailed DOT should carry node ids:\n%.200s", out)
	}

	if _, err := runCmd(t, c, "render", "testdata/program.json", "-f", "dot,json", "-o", "-"); err == nil {
		t.Error("stdout output with two formats should fail")
	}
	if _, err := runCmd(t, c, "render", "testdata/program.json", "-f", "gif"); err == nil {
		t.Error("unknown format should fail")
	}
}

func TestCompileCommand(t *testing.T) {
	if _, err := exec.LookPath("cat"); err != nil {
		t.Skip("cat not available")
	}
	// cat echoes the "source", so an AST file compiles to itself.
	c := newTestCLI(t, "\n[compiler]\nbin = \"cat\"\n")

	out, err := runCmd(t, c, "compile", "testdata/program.json", "-o", "-", "--no-cache")
	if err != nil {
		t.Fatalf("compile error = %v", err)
	}
	tree, err := vistree.UnmarshalTree([]byte(out))
	if err != nil || vistree.Count(tree) != 45 {
		t.Fatalf("compile output: %v nodes, err %v", vistree.Count(tree), err)
	}

	raw, err := runCmd(t, c, "compile", "testdata/program.json", "--ast", "--no-cache")
	if err != nil {
		t.Fatalf("compile --ast error = %v", err)
	}
	want, _ := os.ReadFile("testdata/program.json")
	if raw != string(want) {
		t.Error("compile --ast should print the compiler output unchanged")
	}
}

func TestStatsCommand(t *testing.T) {
	c := newTestCLI(t, "")
	out, err := runCmd(t, c, "stats", "testdata/program.json")
	if err != nil {
		t.Fatalf("stats error = %v", err)
	}
	for _, want := range []string{"45", "Identifier", "<program-root>"} {
		if !strings.Contains(out, want) {
			t.Errorf("stats output missing %q:\n%s", want, out)
		}
	}
}

var uuidRe = regexp.MustCompile(`[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}`)

func TestSnapshotCommands(t *testing.T) {
	c := newTestCLI(t, "")
	if _, err := runCmd(t, c, "snapshot", "save", "testdata/program.json"); err != nil {
		t.Fatalf("snapshot save error = %v", err)
	}

	list, err := runCmd(t, c, "snapshot", "list")
	if err != nil {
		t.Fatalf("snapshot list error = %v", err)
	}
	id := uuidRe.FindString(list)
	if id == "" {
		t.Fatalf("snapshot list shows no id:\n%s", list)
	}

	out, err := runCmd(t, c, "snapshot", "show", id)
	if err != nil {
		t.Fatalf("snapshot show error = %v", err)
	}
	tree, err := vistree.UnmarshalTree([]byte(out))
	if err != nil || vistree.Count(tree) != 45 {
		t.Errorf("snapshot show: %v nodes, err %v", vistree.Count(tree), err)
	}

	if _, err := runCmd(t, c, "snapshot", "delete", id); err != nil {
		t.Fatalf("snapshot delete error = %v", err)
	}
	if _, err := runCmd(t, c, "snapshot", "show", id); err == nil {
		t.Error("show after delete should fail")
	}
	if _, err := runCmd(t, c, "snapshot", "show", "not-an-id"); err == nil {
		t.Error("show with an invalid id should fail")
	}
}

func TestCacheCommands(t *testing.T) {
	c := newTestCLI(t, "")
	if _, err := runCmd(t, c, "convert", "testdata/program.json"); err != nil {
		t.Fatal(err)
	}
	dir, err := runCmd(t, c, "cache", "path")
	if err != nil {
		t.Fatal(err)
	}
	dir = strings.TrimSpace(dir)
	if !strings.HasSuffix(dir, "cache") {
		t.Errorf("cache path = %q, want the configured dir", dir)
	}

	stats, err := runCmd(t, c, "cache", "stats")
	if err != nil {
		t.Fatalf("cache stats error = %v", err)
	}
	var entries string
	for _, line := range strings.Split(stats, "\n") {
		if f := strings.Fields(line); len(f) == 2 && f[0] == "entries" {
			entries = f[1]
		}
	}
	if entries == "" || entries == "0" {
		t.Errorf("cache stats after a convert = %q, want a non-empty cache", stats)
	}

	if _, err := runCmd(t, c, "cache", "clear"); err != nil {
		t.Fatalf("cache clear error = %v", err)
	}
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		t.Fatal(err)
	}
	if n, _ := fc.Clear(); n != 0 {
		t.Errorf("%d entries left after cache clear", n)
	}
}

func TestConfigCommands(t *testing.T) {
	c := newTestCLI(t, "")
	out, err := runCmd(t, c, "config", "show")
	if err != nil {
		t.Fatalf("config show error = %v", err)
	}
	cfg, err := config.Parse([]byte(out), ".toml")
	if err != nil {
		t.Fatalf("config show output does not parse: %v\n%s", err, out)
	}
	if cfg.Store.Backend != "sqlite" || cfg.Compiler.Bin != "cc99" {
		t.Errorf("config = %+v", cfg)
	}

	path, err := runCmd(t, c, "config", "path")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(path) != c.ConfigPath {
		t.Errorf("config path = %q, want %q", path, c.ConfigPath)
	}
}

func TestMCPListTools(t *testing.T) {
	c := newTestCLI(t, "")
	out, err := runCmd(t, c, "mcp", "--list")
	if err != nil {
		t.Fatalf("mcp --list error = %v", err)
	}
	for _, tool := range []string{"ast_to_vistree", "ast_to_dot", "ast_stats", "c_to_vistree"} {
		if !strings.Contains(out, tool) {
			t.Errorf("mcp --list output missing %s:\n%s", tool, out)
		}
	}
}

func TestParseFormats(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", "svg"},
		{"svg", "svg"},
		{"svg,pdf,png", "svg pdf png"},
		{" DOT , json,", "dot json"},
	}
	for _, tt := range tests {
		if got := strings.Join(parseFormats(tt.input), " "); got != tt.want {
			t.Errorf("parseFormats(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestOutputPaths(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		output  string
		formats []string
		want    map[string]string
	}{
		{"single explicit", "ast.json", "diagram.svg", []string{"svg"}, map[string]string{"svg": "diagram.svg"}},
		{"from input", "dir/ast.json", "", []string{"svg", "json"}, map[string]string{"svg": "ast.svg", "json": "ast.tree.json"}},
		{"base path", "ast.json", "out/tree.svg", []string{"svg", "dot"}, map[string]string{"svg": "out/tree.svg", "dot": "out/tree.dot"}},
		{"stdin", "-", "", []string{"png"}, map[string]string{"png": "tree.png"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := outputPaths(tt.input, tt.output, tt.formats)
			for f, want := range tt.want {
				if got[f] != want {
					t.Errorf("outputPaths()[%s] = %q, want %q", f, got[f], want)
				}
			}
		})
	}
}

func TestNewCacheBackends(t *testing.T) {
	ctx := context.Background()

	c, err := newCache(ctx, config.CacheConfig{Backend: "none"}, false)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := c.(cache.NullCache); !ok {
		t.Errorf("backend none gave %T", c)
	}

	c, err = newCache(ctx, config.CacheConfig{Backend: "file", Dir: t.TempDir()}, true)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := c.(cache.NullCache); !ok {
		t.Errorf("--no-cache gave %T", c)
	}

	c, err = newCache(ctx, config.CacheConfig{Backend: "file", Dir: t.TempDir()}, false)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := c.(*cache.FileCache); !ok {
		t.Errorf("backend file gave %T", c)
	}

	c, err = newCache(ctx, config.CacheConfig{Backend: "memory", Entries: 8}, false)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := c.(*cache.MemoryCache); !ok {
		t.Errorf("backend memory gave %T", c)
	}

	if _, err := newCache(ctx, config.CacheConfig{Backend: "redis"}, false); err == nil {
		t.Error("redis without an address should fail")
	}
}

func TestCompletionCommand(t *testing.T) {
	c := newTestCLI(t, "")
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		out, err := runCmd(t, c, "completion", shell)
		if err != nil {
			t.Fatalf("completion %s error = %v", shell, err)
		}
		if !strings.Contains(out, "cc99vis") {
			t.Errorf("completion %s output does not mention cc99vis", shell)
		}
	}
	if _, err := runCmd(t, c, "completion", "tcsh"); err == nil {
		t.Error("completion tcsh should fail")
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, ExitOK},
		{"canceled", fmt.Errorf("render: %w", context.Canceled), ExitInterrupted},
		{"bad format", cerrors.New(cerrors.ErrCodeInvalidFormat, "gif"), ExitUsage},
		{"malformed ast", fmt.Errorf("convert: %w", cerrors.New(cerrors.ErrCodeMalformedInput, "x")), ExitUsage},
		{"compile failure", cerrors.New(cerrors.ErrCodeCompileFailed, "syntax error"), ExitCompile},
		{"compiler missing", cerrors.New(cerrors.ErrCodeUnavailable, "cc99"), ExitFailure},
		{"plain", io.ErrUnexpectedEOF, ExitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestVerboseFlag(t *testing.T) {
	c := newTestCLI(t, "")
	if _, err := runCmd(t, c, "-v", "config", "path"); err != nil {
		t.Fatal(err)
	}
	if c.Logger.GetLevel() != LogDebug {
		t.Errorf("level = %v after -v, want debug", c.Logger.GetLevel())
	}
}
