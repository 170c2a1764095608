package mcp

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sort"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/RalXYZ/cc99/pkg/pipeline"
	"github.com/RalXYZ/cc99/pkg/vistree"
)

type fakeCompiler struct{ out []byte }

func (f fakeCompiler) Compile(context.Context, string) ([]byte, error) { return f.out, nil }
func (fakeCompiler) Version(context.Context) (string, error)           { return "cc99 test", nil }
func (fakeCompiler) ID() string                                        { return "fake" }

func loadProgram(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile("testdata/program.json")
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func newServer(t *testing.T, withCompiler bool) *Server {
	t.Helper()
	runner := pipeline.NewRunner(nil, nil, log.New(io.Discard))
	if withCompiler {
		runner.Compiler = fakeCompiler{out: []byte(`{"error": false, "ast": {"GlobalDeclaration": ["Break"]}}`)}
	}
	s, err := New(runner, log.New(io.Discard), Config{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s
}

func call(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) != 1 {
		t.Fatalf("result has %d content items, want 1", len(res.Content))
	}
	tc, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T, want TextContent", res.Content[0])
	}
	return tc.Text
}

func TestNewRegistersTools(t *testing.T) {
	got := newServer(t, false).ListTools()
	sort.Strings(got)
	want := []string{ToolConvert, ToolDOT, ToolStats}
	sort.Strings(want)
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("ListTools() = %v, want %v (no compile tool without a compiler)", got, want)
	}

	if n := len(newServer(t, true).ListTools()); n != len(AllTools) {
		t.Errorf("with compiler ListTools() has %d tools, want %d", n, len(AllTools))
	}
}

func TestNewUnknownTool(t *testing.T) {
	_, err := New(pipeline.NewRunner(nil, nil, nil), nil, Config{Tools: []string{"nope"}})
	if err == nil {
		t.Error("New() with an unknown tool should fail")
	}
	_, err = New(pipeline.NewRunner(nil, nil, nil), nil, Config{Tools: []string{ToolCompile}})
	if err == nil {
		t.Error("New() with the compile tool and no compiler should fail")
	}
}

func TestHandleConvert(t *testing.T) {
	s := newServer(t, false)
	res, err := s.handleConvert(context.Background(), call(map[string]any{"ast": loadProgram(t)}))
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError {
		t.Fatalf("tool error: %s", resultText(t, res))
	}
	root, err := vistree.UnmarshalTree([]byte(resultText(t, res)))
	if err != nil {
		t.Fatalf("result is not a tree: %v", err)
	}
	if vistree.Count(root) != 45 {
		t.Errorf("Count = %d, want 45", vistree.Count(root))
	}
}

func TestHandleConvertObjectArgument(t *testing.T) {
	s := newServer(t, false)
	var obj map[string]any
	if err := json.Unmarshal([]byte(`{"GlobalDeclaration": [{"Return": {"Identifier": "x"}}]}`), &obj); err != nil {
		t.Fatal(err)
	}
	res, _ := s.handleConvert(context.Background(), call(map[string]any{"ast": obj}))
	if res.IsError {
		t.Fatalf("tool error: %s", resultText(t, res))
	}
	if !strings.Contains(resultText(t, res), `"name": "x"`) {
		t.Errorf("result = %s", resultText(t, res))
	}
}

func TestHandleErrors(t *testing.T) {
	s := newServer(t, false)
	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{"missing ast", map[string]any{}, "INVALID_INPUT"},
		{"malformed", map[string]any{"ast": `{"GlobalDeclaration": 3}`}, "MALFORMED_INPUT"},
		{"bad policy", map[string]any{"ast": `{"GlobalDeclaration": []}`, "unknown": "loud"}, "INVALID_INPUT"},
		{"unknown fails", map[string]any{"ast": `{"GlobalDeclaration": ["Asm"]}`, "unknown": "fail"}, "UNKNOWN_VARIANT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := s.handleConvert(context.Background(), call(tt.args))
			if err != nil {
				t.Fatal(err)
			}
			if !res.IsError {
				t.Fatal("expected a tool error")
			}
			if text := resultText(t, res); !strings.HasPrefix(text, tt.want) {
				t.Errorf("error = %q, want prefix %q", text, tt.want)
			}
		})
	}
}

func TestHandleDOT(t *testing.T) {
	s := newServer(t, false)
	res, _ := s.handleDOT(context.Background(), call(map[string]any{"ast": loadProgram(t), "detailed": true}))
	if res.IsError {
		t.Fatalf("tool error: %s", resultText(t, res))
	}
	text := resultText(t, res)
	if !strings.HasPrefix(text, "digraph G {") || !strings.Contains(text, `#44`) {
		t.Errorf("DOT output = %.120s", text)
	}
}

func TestHandleStats(t *testing.T) {
	s := newServer(t, false)
	res, _ := s.handleStats(context.Background(), call(map[string]any{"ast": loadProgram(t)}))
	text := resultText(t, res)
	for _, want := range []string{"nodes: 45\n", "depth: 9\n", "<program-root>: 1\n"} {
		if !strings.Contains(text, want) {
			t.Errorf("stats missing %q:\n%s", want, text)
		}
	}
}

func TestHandleCompile(t *testing.T) {
	s := newServer(t, true)
	res, _ := s.handleCompile(context.Background(), call(map[string]any{"code": "int main() { for (;;) break; }"}))
	if res.IsError {
		t.Fatalf("tool error: %s", resultText(t, res))
	}
	if !strings.Contains(resultText(t, res), `"label": "Break"`) {
		t.Errorf("result = %s", resultText(t, res))
	}

	res, _ = s.handleCompile(context.Background(), call(map[string]any{}))
	if !res.IsError {
		t.Error("missing code should be a tool error")
	}
}

func TestToolSchemas(t *testing.T) {
	if len(toolSchemaRegistry) != len(AllTools) {
		t.Errorf("toolSchemaRegistry has %d tools, AllTools has %d", len(toolSchemaRegistry), len(AllTools))
	}
	for _, schema := range GetToolSchemas() {
		if schema.Description == "" {
			t.Errorf("tool %s has empty description", schema.Name)
		}
		tool := schema.Tool()
		if tool.Name != schema.Name {
			t.Errorf("Tool().Name = %q, want %q", tool.Name, schema.Name)
		}
		for _, p := range schema.Parameters {
			if _, ok := tool.InputSchema.Properties[p.Name]; !ok {
				t.Errorf("tool %s is missing property %s", schema.Name, p.Name)
			}
			if p.Required != contains(tool.InputSchema.Required, p.Name) {
				t.Errorf("tool %s property %s required = %v", schema.Name, p.Name, !p.Required)
			}
		}
	}
	if got := GetToolSchemas("nope", ToolStats); len(got) != 1 || got[0].Name != ToolStats {
		t.Errorf("GetToolSchemas(nope, stats) = %+v", got)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
