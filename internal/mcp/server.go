// Package mcp provides an MCP (Model Context Protocol) server for cc99vis.
// Agents can convert cc99 syntax trees and inspect them through MCP tools
// instead of shelling out to the CLI.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/RalXYZ/cc99/pkg/buildinfo"
	"github.com/RalXYZ/cc99/pkg/errors"
	"github.com/RalXYZ/cc99/pkg/pipeline"
	"github.com/RalXYZ/cc99/pkg/vistree"
)

// Tool names.
const (
	ToolConvert = "ast_to_vistree"
	ToolDOT     = "ast_to_dot"
	ToolStats   = "ast_stats"
	ToolCompile = "c_to_vistree"
)

// AllTools lists every tool the server can expose.
var AllTools = []string{ToolConvert, ToolDOT, ToolStats, ToolCompile}

// Server wraps the MCP server around a pipeline runner.
type Server struct {
	mcpServer *server.MCPServer
	runner    *pipeline.Runner
	opts      pipeline.Options
	logger    *log.Logger
	tools     []string
}

// Config holds server configuration.
type Config struct {
	Tools   []string         // Which tools to expose (empty = all usable)
	Options pipeline.Options // Defaults for every tool call
}

// New creates an MCP server. The compile tool is registered only when the
// runner has a compiler.
func New(runner *pipeline.Runner, logger *log.Logger, cfg Config) (*Server, error) {
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{
		mcpServer: server.NewMCPServer("cc99vis", buildinfo.Get().Version, server.WithToolCapabilities(false)),
		runner:    runner,
		opts:      cfg.Options,
		logger:    logger,
	}

	names := cfg.Tools
	if len(names) == 0 {
		for _, name := range AllTools {
			if name == ToolCompile && runner.Compiler == nil {
				continue
			}
			names = append(names, name)
		}
	}
	for _, name := range names {
		if err := s.registerTool(name); err != nil {
			return nil, fmt.Errorf("failed to register tool %s: %w", name, err)
		}
		s.tools = append(s.tools, name)
	}
	return s, nil
}

func (s *Server) registerTool(name string) error {
	schema, ok := toolSchemaRegistry[name]
	if !ok {
		return fmt.Errorf("unknown tool: %s", name)
	}
	var handler server.ToolHandlerFunc
	switch name {
	case ToolConvert:
		handler = s.handleConvert
	case ToolDOT:
		handler = s.handleDOT
	case ToolStats:
		handler = s.handleStats
	case ToolCompile:
		if s.runner.Compiler == nil {
			return fmt.Errorf("no compiler configured")
		}
		handler = s.handleCompile
	}
	s.mcpServer.AddTool(schema.Tool(), handler)
	return nil
}

// ServeStdio serves MCP over stdin and stdout until the client disconnects.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ListTools returns the registered tool names.
func (s *Server) ListTools() []string {
	return slices.Clone(s.tools)
}

func (s *Server) handleConvert(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tree, err := s.convert(ctx, req)
	if err != nil {
		return toolError(err), nil
	}
	data, err := json.MarshalIndent(tree, "", "  ")
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) handleDOT(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tree, err := s.convert(ctx, req)
	if err != nil {
		return toolError(err), nil
	}
	opts := s.options(req)
	opts.Formats = []string{pipeline.FormatDOT}
	artifacts, err := s.runner.Render(ctx, tree, opts)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(string(artifacts[pipeline.FormatDOT])), nil
}

func (s *Server) handleStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tree, err := s.convert(ctx, req)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(formatStats(tree)), nil
}

func (s *Server) handleCompile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	code, _ := req.GetArguments()["code"].(string)
	if code == "" {
		return mcp.NewToolResultError("code parameter is required"), nil
	}
	opts := s.options(req)
	out, err := s.runner.Compile(ctx, code, opts)
	if err != nil {
		return toolError(err), nil
	}
	tree, err := s.runner.Convert(ctx, out, opts)
	if err != nil {
		return toolError(err), nil
	}
	data, err := json.MarshalIndent(tree, "", "  ")
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// convert reads the "ast" argument, which may be a JSON string or an object.
func (s *Server) convert(ctx context.Context, req mcp.CallToolRequest) (*vistree.Node, error) {
	input, err := astArgument(req.GetArguments())
	if err != nil {
		return nil, err
	}
	return s.runner.Convert(ctx, input, s.options(req))
}

func (s *Server) options(req mcp.CallToolRequest) pipeline.Options {
	opts := s.opts
	opts.Formats = nil
	args := req.GetArguments()
	if u, ok := args["unknown"].(string); ok && u != "" {
		opts.Unknown = u
	}
	if d, ok := args["detailed"].(bool); ok {
		opts.Detailed = d
	}
	return opts
}

func astArgument(args map[string]any) ([]byte, error) {
	switch v := args["ast"].(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			break
		}
		return []byte(v), nil
	case map[string]any:
		return json.Marshal(v)
	}
	return nil, errors.New(errors.ErrCodeInvalidInput, "ast parameter is required")
}

func formatStats(tree *vistree.Node) string {
	var b strings.Builder
	fmt.Fprintf(&b, "nodes: %d\n", vistree.Count(tree))
	fmt.Fprintf(&b, "depth: %d\n", vistree.Depth(tree))

	counts := vistree.LabelCounts(tree)
	labels := make([]string, 0, len(counts))
	for l := range counts {
		labels = append(labels, l)
	}
	sort.Slice(labels, func(i, j int) bool {
		if counts[labels[i]] != counts[labels[j]] {
			return counts[labels[i]] > counts[labels[j]]
		}
		return labels[i] < labels[j]
	})
	b.WriteString("labels:\n")
	for _, l := range labels {
		name := l
		if name == "" {
			name = "(blank)"
		}
		fmt.Fprintf(&b, "  %s: %d\n", name, counts[l])
	}
	return b.String()
}

func toolError(err error) *mcp.CallToolResult {
	code := errors.GetCode(err)
	if code == "" {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultError(fmt.Sprintf("%s: %s", code, errors.UserMessage(err)))
}
