// Package pkg provides the core libraries for cc99vis, the syntax tree
// visualizer of the cc99 C compiler.
//
// # Overview
//
// The cc99 compiler can dump the abstract syntax tree of a C translation unit
// as JSON. cc99vis turns that dump into a generic labelled tree (id, label,
// attributes, children) that browser front-ends and Graphviz can draw. The
// pkg directory is organized into four areas:
//
//  1. Domain logic: [ast] decodes the compiler output and [vistree] converts
//     it into a visualization tree
//  2. Rendering: [render/nodelink] lays the tree out with Graphviz
//  3. Orchestration: [pipeline] chains compile, convert and render with
//     content-addressed caching
//  4. Infrastructure: [cache], [store], [compiler], [config], [server]
//
// # Architecture
//
// The typical data flow:
//
//	C source
//	   ↓
//	[compiler] (optional: run cc99 and capture the AST envelope)
//	   ↓
//	[ast] (decode the externally tagged JSON into typed nodes)
//	   ↓
//	[vistree] (pre-order numbering, attributes, type resolution)
//	   ↓
//	[render/nodelink] (DOT, SVG, PNG, PDF) or tree JSON
//
// # Quick Start
//
// Convert an AST dump into a visualization tree:
//
//	import (
//	    "os"
//
//	    "github.com/RalXYZ/cc99/pkg/ast"
//	    "github.com/RalXYZ/cc99/pkg/vistree"
//	)
//
//	unit, err := ast.DecodeUnit(data, ast.DecodeOptions{})
//	if err != nil {
//	    return err
//	}
//	root, err := vistree.Build(unit)
//	if err != nil {
//	    return err
//	}
//	vistree.WriteJSON(root, os.Stdout)
//
// Or run the full pipeline with caching and rendering:
//
//	runner := pipeline.NewRunner(cache.NewNullCache(), nil, logger)
//	result, err := runner.Execute(ctx, data, pipeline.Options{Formats: []string{"svg"}})
//
// # Main Packages
//
// [ast] holds the typed syntax tree and its JSON decoder. Unrecognised tags
// decode to placeholder nodes instead of failing.
//
// [vistree] builds the visualization tree and reads and writes its JSON
// form. [vistree.Resolve] flattens C type descriptors into nested attribute
// maps.
//
// [render/nodelink] emits DOT and renders it through go-graphviz.
//
// [pipeline] is the shared entry point of the CLI, the HTTP server and the
// MCP server.
//
// [server] exposes the pipeline over HTTP with the cc99 web API envelope.
//
// [store] keeps named tree snapshots in memory, SQLite or MongoDB.
//
// [ast]: https://pkg.go.dev/github.com/RalXYZ/cc99/pkg/ast
// [vistree]: https://pkg.go.dev/github.com/RalXYZ/cc99/pkg/vistree
// [vistree.Resolve]: https://pkg.go.dev/github.com/RalXYZ/cc99/pkg/vistree#Resolve
// [render/nodelink]: https://pkg.go.dev/github.com/RalXYZ/cc99/pkg/render/nodelink
// [pipeline]: https://pkg.go.dev/github.com/RalXYZ/cc99/pkg/pipeline
// [cache]: https://pkg.go.dev/github.com/RalXYZ/cc99/pkg/cache
// [store]: https://pkg.go.dev/github.com/RalXYZ/cc99/pkg/store
// [compiler]: https://pkg.go.dev/github.com/RalXYZ/cc99/pkg/compiler
// [config]: https://pkg.go.dev/github.com/RalXYZ/cc99/pkg/config
// [server]: https://pkg.go.dev/github.com/RalXYZ/cc99/pkg/server
package pkg
