// Package nodelink renders visualization trees as node-link diagrams.
//
// # Overview
//
// This package produces top-down tree diagrams using Graphviz, where every
// tree node appears as a box connected to its children by arrows. It is the
// graphical counterpart of the JSON tree served to the browser front end.
//
// # Usage
//
// Convert a tree to DOT format, then render to SVG:
//
//	dot := nodelink.ToDOT(root, nodelink.Options{Detailed: false})
//	svg, err := nodelink.RenderSVG(dot)
//
// For PNG or PDF output:
//
//	png, err := nodelink.RenderPNG(dot)
//	pdf, err := nodelink.RenderPDF(dot) // needs rsvg-convert
//
// # Options
//
// The [Options] struct controls diagram generation:
//
//   - Detailed: When true, node labels include the id and all attributes,
//     with resolved C types shown in a compact form ("const signed_Char *").
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG and
// PNG rendering. PDF conversion requires librsvg (rsvg-convert).
package nodelink
