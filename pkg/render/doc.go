// Package render holds output-format helpers shared by the tree renderers.
//
// The [nodelink] subpackage lays out a visualization tree with Graphviz and
// produces DOT, SVG and PNG directly. PDF output is produced from the SVG by
// [ToPDF], which shells out to rsvg-convert (from librsvg):
//
//	svg, err := nodelink.RenderSVG(dot)
//	pdf, err := render.ToPDF(svg)
//
// [nodelink]: github.com/RalXYZ/cc99/pkg/render/nodelink
package render
