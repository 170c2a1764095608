package mcp

import "github.com/mark3labs/mcp-go/mcp"

// ToolSchema describes a tool's name, description, and parameters.
type ToolSchema struct {
	Name        string            `json:"name" yaml:"name"`
	Description string            `json:"description" yaml:"description"`
	Parameters  []ParameterSchema `json:"parameters" yaml:"parameters"`
}

// ParameterSchema describes a single tool parameter.
type ParameterSchema struct {
	Name        string `json:"name" yaml:"name"`
	Type        string `json:"type" yaml:"type"`
	Description string `json:"description" yaml:"description"`
	Required    bool   `json:"required" yaml:"required"`
}

var (
	paramAST = ParameterSchema{
		Name:        "ast",
		Type:        "string",
		Description: "cc99 AST JSON as printed by `cc99 -V`, or just the {\"GlobalDeclaration\": [...]} object",
		Required:    true,
	}
	paramUnknown = ParameterSchema{
		Name:        "unknown",
		Type:        "string",
		Description: "How to render unrecognised AST variants: blank (default), tagged or fail",
	}
)

// toolSchemaRegistry holds the schema of every tool in AllTools.
var toolSchemaRegistry = map[string]ToolSchema{
	ToolConvert: {
		Name:        ToolConvert,
		Description: "Convert a cc99 AST into a visualization tree of {id, label, attrs, children} nodes.",
		Parameters:  []ParameterSchema{paramAST, paramUnknown},
	},
	ToolDOT: {
		Name:        ToolDOT,
		Description: "Convert a cc99 AST and render the visualization tree as Graphviz DOT.",
		Parameters: []ParameterSchema{paramAST, paramUnknown, {
			Name:        "detailed",
			Type:        "boolean",
			Description: "Include node ids and attributes in the labels",
		}},
	},
	ToolStats: {
		Name:        ToolStats,
		Description: "Summarise a cc99 AST: node count, depth and how often each label occurs.",
		Parameters:  []ParameterSchema{paramAST, paramUnknown},
	},
	ToolCompile: {
		Name:        ToolCompile,
		Description: "Compile C source with cc99 and return the visualization tree of its AST.",
		Parameters: []ParameterSchema{{
			Name:        "code",
			Type:        "string",
			Description: "C source code of one translation unit",
			Required:    true,
		}, paramUnknown},
	},
}

// GetToolSchemas returns the schemas of the given tools, or of all tools
// when names is empty. Unknown names are skipped.
func GetToolSchemas(names ...string) []ToolSchema {
	if len(names) == 0 {
		names = AllTools
	}
	out := make([]ToolSchema, 0, len(names))
	for _, name := range names {
		if s, ok := toolSchemaRegistry[name]; ok {
			out = append(out, s)
		}
	}
	return out
}

// Tool builds the mcp-go tool definition for the schema.
func (s ToolSchema) Tool() mcp.Tool {
	opts := []mcp.ToolOption{mcp.WithDescription(s.Description)}
	for _, p := range s.Parameters {
		popts := []mcp.PropertyOption{mcp.Description(p.Description)}
		if p.Required {
			popts = append(popts, mcp.Required())
		}
		switch p.Type {
		case "boolean":
			opts = append(opts, mcp.WithBoolean(p.Name, popts...))
		case "number":
			opts = append(opts, mcp.WithNumber(p.Name, popts...))
		default:
			opts = append(opts, mcp.WithString(p.Name, popts...))
		}
	}
	return mcp.NewTool(s.Name, opts...)
}
