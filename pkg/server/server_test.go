package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/RalXYZ/cc99/pkg/errors"
	"github.com/RalXYZ/cc99/pkg/observability"
	"github.com/RalXYZ/cc99/pkg/pipeline"
	"github.com/RalXYZ/cc99/pkg/store"
	"github.com/RalXYZ/cc99/pkg/vistree"
)

type fakeCompiler struct {
	out []byte
	err error
}

func (f *fakeCompiler) Compile(context.Context, string) ([]byte, error) { return f.out, f.err }
func (f *fakeCompiler) Version(context.Context) (string, error)         { return "cc99 0.1.0", nil }
func (f *fakeCompiler) ID() string                                      { return "fake" }

type envelope struct {
	St   St              `json:"st"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func loadProgram(t *testing.T) []byte {
	t.Helper()
	data, err := os.ReadFile("testdata/program.json")
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func newTestServer(t *testing.T, c *fakeCompiler, st store.Store) *httptest.Server {
	t.Helper()
	runner := pipeline.NewRunner(nil, nil, log.New(io.Discard))
	if c != nil {
		runner.Compiler = c
	}
	srv := New(runner, st, log.New(io.Discard), Config{BodyLimit: 1 << 16, CORSOrigins: []string{"https://cc99.example"}})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func do(t *testing.T, method, url string, body []byte) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, data
}

func decodeEnvelope(t *testing.T, resp *http.Response, data []byte) envelope {
	t.Helper()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200 for every envelope", resp.StatusCode)
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("decode envelope %q: %v", data, err)
	}
	return env
}

func TestPing(t *testing.T) {
	ts := newTestServer(t, &fakeCompiler{}, nil)
	resp, data := do(t, http.MethodGet, ts.URL+"/api/ping", nil)
	env := decodeEnvelope(t, resp, data)
	if env.St != StOk {
		t.Fatalf("st = %d, want 0", env.St)
	}
	var ping PingResponse
	if err := json.Unmarshal(env.Data, &ping); err != nil {
		t.Fatal(err)
	}
	if ping.Compiler != "cc99 0.1.0" || ping.Version == "" {
		t.Errorf("ping = %+v", ping)
	}
	if id := resp.Header.Get(RequestIDHeader); len(id) != 36 {
		t.Errorf("%s = %q, want a uuid", RequestIDHeader, id)
	}
}

func TestRequestIDPropagates(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/ping", nil)
	const id = "8d3e4f9a-1b2c-4d5e-8f70-112233445566"
	req.Header.Set(RequestIDHeader, id)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if got := resp.Header.Get(RequestIDHeader); got != id {
		t.Errorf("%s = %q, want %q", RequestIDHeader, got, id)
	}
}

func TestTree(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	resp, data := do(t, http.MethodPost, ts.URL+"/api/tree", loadProgram(t))
	env := decodeEnvelope(t, resp, data)
	if env.St != StOk {
		t.Fatalf("st = %d (%s), want 0", env.St, env.Msg)
	}
	var tr struct {
		Tree      json.RawMessage `json:"tree"`
		NodeCount int             `json:"node_count"`
		Depth     int             `json:"depth"`
	}
	if err := json.Unmarshal(env.Data, &tr); err != nil {
		t.Fatal(err)
	}
	if tr.NodeCount != 45 || tr.Depth != 9 {
		t.Errorf("node_count/depth = %d/%d, want 45/9", tr.NodeCount, tr.Depth)
	}
	root, err := vistree.UnmarshalTree(tr.Tree)
	if err != nil {
		t.Fatalf("tree is not a valid visualization tree: %v", err)
	}
	if !root.IsRoot() {
		t.Error("tree root is not <program-root>")
	}
}

func TestTreeErrors(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	tests := []struct {
		name  string
		query string
		body  string
		want  St
	}{
		{"empty body", "", "", StParamErr},
		{"malformed", "", `{"GlobalDeclaration": [{"Return": 1}]}`, StMalformedErr},
		{"not json", "", `{`, StMalformedErr},
		{"bad policy", "?unknown=loud", `{"GlobalDeclaration": []}`, StParamErr},
		{"unknown fails", "?unknown=fail", `{"GlobalDeclaration": [{"StaticAssert": null}]}`, StMalformedErr},
		{"compile envelope", "", `{"error": true, "message": "expected ';'"}`, StCompileErr},
		{"too large", "", `{"GlobalDeclaration": [` + strings.Repeat(`"Break",`, 1<<14) + `"Break"]}`, StParamErr},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, data := do(t, http.MethodPost, ts.URL+"/api/tree"+tt.query, []byte(tt.body))
			env := decodeEnvelope(t, resp, data)
			if env.St != tt.want {
				t.Errorf("st = %d (%s), want %d", env.St, env.Msg, tt.want)
			}
			if env.Msg == "" {
				t.Error("error envelope has no message")
			}
		})
	}
}

func TestVisual(t *testing.T) {
	program, err := os.ReadFile("testdata/program.json")
	if err != nil {
		t.Fatal(err)
	}
	out := []byte(`{"error": false, "ast": ` + string(program) + `}`)
	ts := newTestServer(t, &fakeCompiler{out: out}, nil)

	body, _ := json.Marshal(VisualRequest{Code: "int main() { return 0; }"})
	resp, data := do(t, http.MethodPost, ts.URL+"/api/visual", body)
	env := decodeEnvelope(t, resp, data)
	if env.St != StOk {
		t.Fatalf("st = %d (%s), want 0", env.St, env.Msg)
	}
	var vr struct {
		Res  string          `json:"res"`
		Tree json.RawMessage `json:"tree"`
	}
	if err := json.Unmarshal(env.Data, &vr); err != nil {
		t.Fatal(err)
	}
	if vr.Res != string(out) {
		t.Error("res should be the compiler output as printed")
	}
	if root, err := vistree.UnmarshalTree(vr.Tree); err != nil || vistree.Count(root) != 45 {
		t.Errorf("tree = %v nodes, err %v; want 45", vistree.Count(root), err)
	}
}

func TestVisualErrors(t *testing.T) {
	compileFail := `{"error": true, "message": "syntax error at 1:5"}`
	tests := []struct {
		name     string
		compiler *fakeCompiler
		body     string
		want     St
		wantMsg  string
	}{
		{"no compiler", nil, `{"code": "int x;"}`, StIOErr, ""},
		{"bad body", &fakeCompiler{}, `code=1`, StParamErr, ""},
		{"empty code", &fakeCompiler{}, `{"code": "  "}`, StParamErr, ""},
		{"compiler timeout", &fakeCompiler{err: errors.New(errors.ErrCodeTimeout, "compiler timed out")}, `{"code": "int x;"}`, StIOErr, "compiler timed out"},
		{"compile error", &fakeCompiler{out: []byte(compileFail)}, `{"code": "int"}`, StCompileErr, "syntax error at 1:5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, tt.compiler, nil)
			resp, data := do(t, http.MethodPost, ts.URL+"/api/visual", []byte(tt.body))
			env := decodeEnvelope(t, resp, data)
			if env.St != tt.want {
				t.Errorf("st = %d (%s), want %d", env.St, env.Msg, tt.want)
			}
			if tt.wantMsg != "" && env.Msg != tt.wantMsg {
				t.Errorf("msg = %q, want %q", env.Msg, tt.wantMsg)
			}
		})
	}
}

func TestVisualCompileErrorKeepsRes(t *testing.T) {
	out := `{"error": true, "message": "undeclared identifier"}`
	ts := newTestServer(t, &fakeCompiler{out: []byte(out)}, nil)
	resp, data := do(t, http.MethodPost, ts.URL+"/api/visual", []byte(`{"code": "int main() { return y; }"}`))
	env := decodeEnvelope(t, resp, data)
	var vr VisualResponse
	if err := json.Unmarshal(env.Data, &vr); err != nil {
		t.Fatal(err)
	}
	if vr.Res != out || vr.Tree != nil {
		t.Errorf("data = %+v, want res only", vr)
	}
}

func TestRender(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	tests := []struct {
		query       string
		contentType string
		prefix      string
	}{
		{"?format=dot", "text/vnd.graphviz", "digraph G {"},
		{"?format=json", "application/json", "{"},
		{"", "image/svg+xml", "<svg"},
		{"?format=dot&detailed=true", "text/vnd.graphviz", "digraph G {"},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			resp, data := do(t, http.MethodPost, ts.URL+"/api/render"+tt.query, loadProgram(t))
			if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, tt.contentType) {
				t.Errorf("Content-Type = %q, want %q", ct, tt.contentType)
			}
			if !bytes.Contains(data, []byte(tt.prefix)) {
				t.Errorf("body does not contain %q: %.80s", tt.prefix, data)
			}
			if resp.Header.Get("X-Node-Count") != "45" {
				t.Errorf("X-Node-Count = %q, want 45", resp.Header.Get("X-Node-Count"))
			}
		})
	}
}

func TestRenderErrors(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	for _, q := range []string{"?format=gif", "?detailed=maybe"} {
		resp, data := do(t, http.MethodPost, ts.URL+"/api/render"+q, loadProgram(t))
		if env := decodeEnvelope(t, resp, data); env.St != StParamErr {
			t.Errorf("%s: st = %d (%s), want %d", q, env.St, env.Msg, StParamErr)
		}
	}
}

func TestSnapshots(t *testing.T) {
	ts := newTestServer(t, nil, store.NewMemoryStore())

	resp, data := do(t, http.MethodPost, ts.URL+"/api/snapshots/", loadProgram(t))
	env := decodeEnvelope(t, resp, data)
	if env.St != StOk {
		t.Fatalf("save st = %d (%s)", env.St, env.Msg)
	}
	var saved store.Snapshot
	if err := json.Unmarshal(env.Data, &saved); err != nil {
		t.Fatal(err)
	}
	if saved.ID == "" || saved.NodeCount != 45 || saved.Tree != nil {
		t.Fatalf("saved = %+v", saved)
	}

	resp, data = do(t, http.MethodGet, ts.URL+"/api/snapshots/"+saved.ID, nil)
	env = decodeEnvelope(t, resp, data)
	var got store.Snapshot
	if err := json.Unmarshal(env.Data, &got); err != nil {
		t.Fatal(err)
	}
	if got.Tree == nil || vistree.Count(got.Tree) != 45 {
		t.Errorf("get returned tree with %d nodes, want 45", vistree.Count(got.Tree))
	}

	resp, data = do(t, http.MethodGet, ts.URL+"/api/snapshots/?limit=10", nil)
	env = decodeEnvelope(t, resp, data)
	var list []store.Snapshot
	if err := json.Unmarshal(env.Data, &list); err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].ID != saved.ID {
		t.Errorf("list = %+v", list)
	}

	resp, data = do(t, http.MethodDelete, ts.URL+"/api/snapshots/"+saved.ID, nil)
	if env := decodeEnvelope(t, resp, data); env.St != StOk {
		t.Errorf("delete st = %d", env.St)
	}
	resp, data = do(t, http.MethodGet, ts.URL+"/api/snapshots/"+saved.ID, nil)
	if env := decodeEnvelope(t, resp, data); env.St != StNotFound {
		t.Errorf("get after delete st = %d, want %d", env.St, StNotFound)
	}
}

func TestSnapshotErrors(t *testing.T) {
	ts := newTestServer(t, nil, store.NewMemoryStore())
	tests := []struct {
		method, path string
		want         St
	}{
		{http.MethodGet, "/api/snapshots/not-a-uuid", StParamErr},
		{http.MethodGet, "/api/snapshots/?limit=x", StParamErr},
		{http.MethodGet, "/api/snapshots/8d3e4f9a-1b2c-4d5e-8f70-112233445566", StNotFound},
		{http.MethodGet, "/api/nothing", StNotFound},
		{http.MethodPut, "/api/tree", StParamErr},
	}
	for _, tt := range tests {
		resp, data := do(t, tt.method, ts.URL+tt.path, nil)
		if env := decodeEnvelope(t, resp, data); env.St != tt.want {
			t.Errorf("%s %s: st = %d (%s), want %d", tt.method, tt.path, env.St, env.Msg, tt.want)
		}
	}

	noStore := newTestServer(t, nil, nil)
	resp, data := do(t, http.MethodGet, noStore.URL+"/api/snapshots/", nil)
	if env := decodeEnvelope(t, resp, data); env.St != StNotFound {
		t.Errorf("without store st = %d, want %d", env.St, StNotFound)
	}
}

func TestCORS(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/api/tree", nil)
	req.Header.Set("Origin", "https://cc99.example")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "https://cc99.example" {
		t.Errorf("Allow-Origin = %q", got)
	}

	req, _ = http.NewRequest(http.MethodGet, ts.URL+"/api/ping", nil)
	req.Header.Set("Origin", "https://evil.example")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Allow-Origin for foreign origin = %q, want empty", got)
	}
}

func TestServeShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	srv := New(pipeline.NewRunner(nil, nil, nil), nil, log.New(io.Discard), Config{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	url := "http://" + ln.Addr().String() + "/api/ping"
	var resp *http.Response
	for i := 0; i < 50; i++ {
		if resp, err = http.Get(url); err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("server never answered: %v", err)
	}
	resp.Body.Close()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve() did not return after cancel")
	}
}

func TestMetrics(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	resp, data := do(t, http.MethodGet, ts.URL+"/api/metrics", nil)
	if env := decodeEnvelope(t, resp, data); env.St != StNotFound {
		t.Errorf("metrics without a collector: st = %d, want %d", env.St, StNotFound)
	}

	m := observability.NewMetrics()
	observability.Register(m)
	defer observability.Reset()

	runner := pipeline.NewRunner(nil, nil, log.New(io.Discard))
	srv := httptest.NewServer(New(runner, nil, log.New(io.Discard), Config{Metrics: m}).Handler())
	defer srv.Close()

	do(t, http.MethodPost, srv.URL+"/api/tree", loadProgram(t))
	do(t, http.MethodPost, srv.URL+"/api/tree", []byte("{"))

	resp, data = do(t, http.MethodGet, srv.URL+"/api/metrics", nil)
	env := decodeEnvelope(t, resp, data)
	if env.St != StOk {
		t.Fatalf("st = %d (%s), want 0", env.St, env.Msg)
	}
	var snap observability.MetricsSnapshot
	if err := json.Unmarshal(env.Data, &snap); err != nil {
		t.Fatal(err)
	}
	conv := snap.Stages["convert"]
	if conv.Runs != 2 || conv.Failures != 1 || conv.Nodes != 45 {
		t.Errorf("convert stats = %+v, want 2 runs, 1 failure, 45 nodes", conv)
	}
	if snap.Responses["POST /api/tree 200"] != 2 {
		t.Errorf("responses = %v", snap.Responses)
	}
	if snap.Errors != 1 {
		t.Errorf("errors = %d, want 1", snap.Errors)
	}
}
