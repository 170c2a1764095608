package pipeline

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/RalXYZ/cc99/pkg/render/nodelink"
	"github.com/RalXYZ/cc99/pkg/vistree"
)

const (
	FormatJSON = "json"
	FormatDOT  = "dot"
	FormatSVG  = "svg"
	FormatPNG  = "png"
	FormatPDF  = "pdf"
)

// renderJob carries one tree through the formats of a render call. The DOT
// source is built at most once and shared by the Graphviz formats.
type renderJob struct {
	tree *vistree.Node
	opts nodelink.Options
	dot  func() string
}

type outputFormat struct {
	name        string
	contentType string
	render      func(*renderJob) ([]byte, error)
}

var outputFormats = []outputFormat{
	{FormatJSON, "application/json", func(j *renderJob) ([]byte, error) {
		var buf bytes.Buffer
		err := vistree.WriteJSON(j.tree, &buf)
		return buf.Bytes(), err
	}},
	{FormatDOT, "text/vnd.graphviz", func(j *renderJob) ([]byte, error) {
		return []byte(j.dot()), nil
	}},
	{FormatSVG, "image/svg+xml", func(j *renderJob) ([]byte, error) {
		return nodelink.RenderSVG(j.dot())
	}},
	{FormatPNG, "image/png", func(j *renderJob) ([]byte, error) {
		return nodelink.RenderPNG(j.dot())
	}},
	{FormatPDF, "application/pdf", func(j *renderJob) ([]byte, error) {
		return nodelink.RenderPDF(j.dot())
	}},
}

// Formats lists the output formats in display order.
var Formats = func() []string {
	names := make([]string, len(outputFormats))
	for i, f := range outputFormats {
		names[i] = f.name
	}
	return names
}()

func lookupFormat(name string) (outputFormat, bool) {
	for _, f := range outputFormats {
		if f.name == name {
			return f, true
		}
	}
	return outputFormat{}, false
}

// ContentType returns the MIME type of format, or "" if it is unknown.
func ContentType(format string) string {
	f, _ := lookupFormat(format)
	return f.contentType
}

// Render produces every requested format. It is the uncached form of
// [Runner.Render].
func Render(tree *vistree.Node, opts Options) (map[string][]byte, error) {
	if err := opts.ValidateForRender(); err != nil {
		return nil, err
	}
	if tree == nil {
		return nil, fmt.Errorf("render: nil tree")
	}

	job := &renderJob{tree: tree, opts: nodelink.Options{Detailed: opts.Detailed}}
	job.dot = sync.OnceValue(func() string { return nodelink.ToDOT(job.tree, job.opts) })

	artifacts := make(map[string][]byte, len(opts.Formats))
	for _, name := range opts.Formats {
		f, _ := lookupFormat(name)
		data, err := f.render(job)
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", name, err)
		}
		artifacts[name] = data
	}
	return artifacts, nil
}
