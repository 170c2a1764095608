package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/RalXYZ/cc99/pkg/render"
	"github.com/RalXYZ/cc99/pkg/vistree"
)

// Options configures node-link diagram rendering.
type Options struct {
	// Detailed includes the node id and attributes in node labels.
	// When false, only the node label is shown.
	Detailed bool
}

// ToDOT converts a visualization tree to Graphviz DOT format.
// The resulting DOT string can be rendered using [RenderSVG], [RenderPDF], or [RenderPNG].
//
// Nodes are emitted in pre-order and edges in child order, so Graphviz keeps
// siblings left to right in source order. The synthetic root and blank
// (unrecognised) nodes are drawn in grey.
func ToDOT(root *vistree.Node, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.4;\n")
	buf.WriteString("  nodesep=0.25;\n")
	buf.WriteString("\n")

	if root == nil {
		buf.WriteString("}\n")
		return buf.String()
	}

	vistree.Walk(root, func(n *vistree.Node, _ int) bool {
		label := fmtLabel(n, opts.Detailed)
		attrs := fmtAttrs(n, label)
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(attrs, ", "))
		return true
	})

	buf.WriteString("\n")
	vistree.Walk(root, func(n *vistree.Node, _ int) bool {
		for _, c := range n.Children {
			fmt.Fprintf(&buf, "  %q -> %q;\n", n.ID, c.ID)
		}
		return true
	})

	buf.WriteString("}\n")
	return buf.String()
}

func fmtLabel(n *vistree.Node, detailed bool) string {
	if !detailed {
		return n.Label
	}

	parts := []string{"#" + n.ID}
	for _, k := range slices.Sorted(maps.Keys(n.Attrs)) {
		parts = append(parts, fmt.Sprintf("%s: %s", k, describe(n.Attrs[k])))
	}

	return n.Label + "\n" + strings.Join(parts, "\n")
}

func fmtAttrs(n *vistree.Node, label string) []string {
	attrs := []string{fmt.Sprintf("label=%q", label)}
	switch {
	case n.IsRoot():
		attrs = append(attrs, "fillcolor=lightgrey", "fontcolor=black")
	case n.Label == "" || strings.HasPrefix(n.Label, "<unknown:"):
		attrs = append(attrs, "style=\"rounded,filled,dashed\"", "fillcolor=lightgrey", "fontcolor=black")
	}
	return attrs
}

// Describe renders an attribute value on one line, as used in detailed
// labels.
func Describe(v any) string { return describe(v) }

// summaryKeys are the attributes that best identify a node, most telling first.
var summaryKeys = []string{"name", "operation", "value", "type", "basic_type"}

// Summary returns a short description of a node built from its identifying
// attributes, e.g. "n signed_Int" for a declaration. Nodes without such
// attributes yield "".
func Summary(n *vistree.Node) string {
	var parts []string
	for _, k := range summaryKeys {
		if v, ok := n.Attrs[k]; ok && v != nil && len(parts) < 2 {
			parts = append(parts, describe(v))
		}
	}
	return strings.Join(parts, " ")
}

// describe renders an attribute value on one line. Resolved types are
// written in a C-like shorthand ("const signed_Char *", "signed_Int[2]").
func describe(v any) string {
	switch v := v.(type) {
	case nil:
		return "null"
	case string:
		return v
	case vistree.Attrs:
		return describeType(v)
	case []vistree.Attrs:
		names := make([]string, 0, len(v))
		for _, m := range v {
			names = append(names, fmt.Sprint(m["name"]))
		}
		return "{" + strings.Join(names, ", ") + "}"
	default:
		return fmt.Sprint(v)
	}
}

func describeType(a vistree.Attrs) string {
	t, ok := a["type"].(string)
	if !ok {
		// Declaration types carry the resolved type under basic_type;
		// parameter maps are keyed by parameter name.
		if inner, ok := a["basic_type"].(vistree.Attrs); ok {
			if sc, _ := a["storageClass"].(string); sc != "" && sc != "Auto" {
				return strings.ToLower(sc) + " " + describeType(inner)
			}
			return describeType(inner)
		}
		parts := make([]string, 0, len(a))
		for _, k := range slices.Sorted(maps.Keys(a)) {
			parts = append(parts, k+" "+describe(a[k]))
		}
		return "(" + strings.Join(parts, ", ") + ")"
	}

	inner, _ := a["basic_type"].(vistree.Attrs)
	var s string
	switch t {
	case "point":
		s = describeType(inner) + " *"
	case "array":
		s = describeType(inner) + "[" + fmt.Sprint(a["dimension"]) + "]"
	case "struct", "union":
		name, _ := a[t+"_name"].(string)
		s = strings.TrimSpace(t + " " + name)
	case "identifier":
		s = fmt.Sprint(a["name"])
	case "function":
		ret, _ := a["return_type"].(vistree.Attrs)
		s = describeType(ret) + " (*)()"
	default:
		s = t
	}
	if q, _ := a["qualifier"].(string); q != "" {
		s = strings.ToLower(q) + " " + s
	}
	return s
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
// Returns the SVG bytes ready for display or further conversion with [render.ToPDF].
func RenderSVG(dot string) ([]byte, error) {
	out, err := renderFormat(dot, graphviz.SVG)
	if err != nil {
		return nil, err
	}
	return normalizeViewBox(out), nil
}

// RenderPNG renders a DOT graph to PNG using Graphviz.
func RenderPNG(dot string) ([]byte, error) {
	return renderFormat(dot, graphviz.PNG)
}

// RenderPDF renders a DOT graph as PDF via SVG conversion.
// This is a convenience wrapper around [RenderSVG] and [render.ToPDF].
//
// Requires librsvg: brew install librsvg (macOS), apt install librsvg2-bin (Linux).
func RenderPDF(dot string) ([]byte, error) {
	svg, err := RenderSVG(dot)
	if err != nil {
		return nil, err
	}
	return render.ToPDF(svg)
}

func renderFormat(dot string, format graphviz.Format) ([]byte, error) {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, format, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}
