package server

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/RalXYZ/cc99/pkg/ast"
	"github.com/RalXYZ/cc99/pkg/buildinfo"
	"github.com/RalXYZ/cc99/pkg/errors"
	"github.com/RalXYZ/cc99/pkg/observability"
	"github.com/RalXYZ/cc99/pkg/pipeline"
	"github.com/RalXYZ/cc99/pkg/store"
	"github.com/RalXYZ/cc99/pkg/vistree"
)

// VisualRequest is the body of POST /api/visual.
type VisualRequest struct {
	Code string `json:"code"`
}

// VisualResponse carries the compiler output and the converted tree.
// Res is the compiler's JSON exactly as printed.
type VisualResponse struct {
	Res  string        `json:"res"`
	Tree *vistree.Node `json:"tree,omitempty"`
}

// TreeResponse is the data of POST /api/tree.
type TreeResponse struct {
	Tree      *vistree.Node `json:"tree"`
	NodeCount int           `json:"node_count"`
	Depth     int           `json:"depth"`
}

// PingResponse is the data of GET /api/ping.
type PingResponse struct {
	Version  string `json:"version"`
	Compiler string `json:"compiler,omitempty"`
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	resp := PingResponse{Version: buildinfo.Get().Version}
	if c := s.runner.Compiler; c != nil {
		v, err := c.Version(r.Context())
		if err != nil {
			s.logger.Warn("compiler version check failed", "error", err)
		}
		resp.Compiler = v
	}
	writeData(w, resp)
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	writeData(w, s.cfg.Metrics.Snapshot())
}

func (s *Server) handleVisual(w http.ResponseWriter, r *http.Request) {
	var req VisualRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.fail(w, r, bodyError(err, "request body must be {\"code\": \"...\"}"))
		return
	}
	opts, err := s.options(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	out, err := s.runner.Compile(r.Context(), req.Code, opts)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	tree, err := s.runner.Convert(r.Context(), out, opts)
	var compileErr *ast.CompileError
	if stderrors.As(err, &compileErr) {
		// The front end shows the compiler's own message from res.
		writeEnvelope(w, Envelope{St: StCompileErr, Msg: compileErr.Message, Data: VisualResponse{Res: string(out)}})
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeData(w, VisualResponse{Res: string(out), Tree: tree})
}

func (s *Server) handleTree(w http.ResponseWriter, r *http.Request) {
	tree, _, err := s.convertBody(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeData(w, TreeResponse{Tree: tree, NodeCount: vistree.Count(tree), Depth: vistree.Depth(tree)})
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	input, err := readBody(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	opts, err := s.options(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	format := r.URL.Query().Get("format")
	if format == "" {
		format = pipeline.FormatSVG
	}
	if err := pipeline.ValidateFormat(format); err != nil {
		s.fail(w, r, err)
		return
	}
	opts.Formats = []string{format}

	result, err := s.runner.Execute(r.Context(), input, opts)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", pipeline.ContentType(format))
	w.Header().Set("X-Node-Count", strconv.Itoa(result.Stats.NodeCount))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Artifacts[format])
}

func (s *Server) handleSnapshotSave(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	tree, input, err := s.convertBody(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	snap := store.NewSnapshot(tree, input)
	if err := s.store.Save(r.Context(), snap); err != nil {
		s.fail(w, r, err)
		return
	}
	s.logger.Info("saved snapshot", "id", snap.ID, "nodes", snap.NodeCount)
	summary := *snap
	summary.Tree = nil
	writeData(w, summary)
}

func (s *Server) handleSnapshotList(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.fail(w, r, errors.New(errors.ErrCodeInvalidInput, "invalid limit %q", v))
			return
		}
		limit = n
	}
	snaps, err := s.store.List(r.Context(), limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if snaps == nil {
		snaps = []*store.Snapshot{}
	}
	writeData(w, snaps)
}

func (s *Server) handleSnapshotGet(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	id := chi.URLParam(r, "id")
	if err := errors.ValidateSnapshotID(id); err != nil {
		s.fail(w, r, err)
		return
	}
	snap, err := s.store.Get(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeData(w, snap)
}

func (s *Server) handleSnapshotDelete(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	id := chi.URLParam(r, "id")
	if err := errors.ValidateSnapshotID(id); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.store.Delete(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	writeData(w, nil)
}

// options returns the configured pipeline options with per-request
// overrides from the query string.
func (s *Server) options(r *http.Request) (pipeline.Options, error) {
	opts := s.cfg.Options
	opts.Formats = nil
	opts.Logger = s.logger

	q := r.URL.Query()
	if v := q.Get("unknown"); v != "" {
		opts.Unknown = v
	}
	if v := q.Get("detailed"); v != "" {
		d, err := strconv.ParseBool(v)
		if err != nil {
			return opts, errors.New(errors.ErrCodeInvalidInput, "invalid detailed flag %q", v)
		}
		opts.Detailed = d
	}
	if err := opts.ValidateForConvert(); err != nil {
		return opts, err
	}
	return opts, nil
}

// convertBody reads an AST JSON body and converts it.
func (s *Server) convertBody(r *http.Request) (*vistree.Node, []byte, error) {
	input, err := readBody(r)
	if err != nil {
		return nil, nil, err
	}
	opts, err := s.options(r)
	if err != nil {
		return nil, nil, err
	}
	tree, err := s.runner.Convert(r.Context(), input, opts)
	if err != nil {
		return nil, nil, err
	}
	return tree, input, nil
}

func (s *Server) requireStore(w http.ResponseWriter) bool {
	if s.store == nil {
		writeStatus(w, StNotFound, "snapshot storage is disabled")
		return false
	}
	return true
}

func readBody(r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, bodyError(err, "cannot read request body")
	}
	if len(data) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "request body is empty")
	}
	return data, nil
}

// bodyError keeps size-limit errors intact so they map to the right message.
func bodyError(err error, msg string) error {
	var tooLarge *http.MaxBytesError
	if stderrors.As(err, &tooLarge) {
		return err
	}
	return errors.Wrap(errors.ErrCodeInvalidInput, err, "%s", msg)
}

// fail reports err to the HTTP hooks and writes its envelope.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	observability.HTTP().OnError(r.Context(), r.Method, routePattern(r), err)
	if statusFor(err) == StServerErr {
		s.logger.Error("request failed", "path", r.URL.Path, "error", err, "request_id", RequestID(r.Context()))
	}
	writeError(w, err)
}
