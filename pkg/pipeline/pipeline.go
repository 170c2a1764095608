// Package pipeline runs cc99 output through conversion and rendering. The
// CLI, the HTTP server and the MCP server all go through a [Runner], so a
// tree produced by one surface is byte-identical to the same tree produced
// by another.
//
// A run has up to three stages, each cached by content hash:
//
//	compile   C source  -> AST envelope   (needs Runner.Compiler)
//	convert   AST JSON  -> *vistree.Node
//	render    tree      -> json, dot, svg, png or pdf bytes
//
// Typical use:
//
//	runner := pipeline.NewRunner(c, nil, logger)
//	res, err := runner.Execute(ctx, astJSON, pipeline.Options{Formats: []string{"svg"}})
//	svg := res.Artifacts["svg"]
//
// With a compiler attached, [Runner.ExecuteSource] starts from C source.
// [Convert] and [Render] are the uncached single-stage forms.
package pipeline

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/RalXYZ/cc99/pkg/ast"
	"github.com/RalXYZ/cc99/pkg/cache"
	"github.com/RalXYZ/cc99/pkg/errors"
	"github.com/RalXYZ/cc99/pkg/vistree"
)

const (
	DefaultMaxDepth = ast.DefaultMaxDepth
	// DefaultUnknown renders unrecognised AST variants as blank nodes.
	DefaultUnknown = "blank"
)

// Options configures one run. The JSON form is accepted by the HTTP API.
type Options struct {
	Unknown  string `json:"unknown,omitempty"` // blank, tagged or fail
	MaxDepth int    `json:"max_depth,omitempty"`
	// Refresh skips cache reads but still writes fresh results.
	Refresh bool `json:"refresh,omitempty"`

	Formats  []string `json:"formats,omitempty"`
	Detailed bool     `json:"detailed,omitempty"` // ids and attributes in node labels

	Logger *log.Logger `json:"-"`

	validated bool
}

// Result is everything one run produced.
type Result struct {
	Tree *vistree.Node
	// TreeHash is the sha256 of the tree's JSON form. Artifact cache keys
	// derive from it.
	TreeHash  string
	Artifacts map[string][]byte // keyed by format
	Stats     Stats
	CacheInfo CacheInfo
}

type Stats struct {
	NodeCount   int
	Depth       int
	CompileTime time.Duration
	ConvertTime time.Duration
	RenderTime  time.Duration
}

// CacheInfo records which stages were served from the cache. RenderHit is
// set only when every requested artifact was cached.
type CacheInfo struct {
	CompileHit bool
	ConvertHit bool
	RenderHit  bool
}

// ValidateFormat reports INVALID_FORMAT for anything outside [Formats].
func ValidateFormat(format string) error {
	if _, ok := lookupFormat(format); !ok {
		return errors.ValidateFormat(format, Formats...)
	}
	return nil
}

func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

func ValidateUnknown(policy string) error {
	_, err := vistree.ParseUnknownPolicy(policy)
	return err
}

// ValidateAndSetDefaults prepares opts for a full run. Repeated calls are
// no-ops.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.ValidateForConvert(); err != nil {
		return err
	}
	if err := o.ValidateForRender(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// ValidateForConvert fills the conversion defaults and normalises Unknown to
// its canonical name.
func (o *Options) ValidateForConvert() error {
	o.ensureLogger()
	if o.MaxDepth == 0 {
		o.MaxDepth = DefaultMaxDepth
	}
	if o.MaxDepth < 0 || o.MaxDepth > ast.MaxDepthLimit {
		return errors.New(errors.ErrCodeInvalidInput, "max_depth must be between 1 and %d, got %d", ast.MaxDepthLimit, o.MaxDepth)
	}
	if o.Unknown == "" {
		o.Unknown = DefaultUnknown
	}
	policy, err := vistree.ParseUnknownPolicy(o.Unknown)
	if err != nil {
		return err
	}
	o.Unknown = policy.String()
	return nil
}

// ValidateForRender defaults Formats to json and checks every entry.
func (o *Options) ValidateForRender() error {
	o.ensureLogger()
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatJSON}
	}
	return ValidateFormats(o.Formats)
}

func (o *Options) ensureLogger() {
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// Builder returns the tree builder for validated options.
func (o *Options) Builder() vistree.Builder {
	policy, _ := vistree.ParseUnknownPolicy(o.Unknown)
	return vistree.Builder{Unknown: policy, MaxDepth: o.MaxDepth}
}

func (o *Options) TreeKeyOpts() cache.TreeKeyOpts {
	return cache.TreeKeyOpts{Unknown: o.Unknown, MaxDepth: o.MaxDepth}
}

func (o *Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	return cache.ArtifactKeyOpts{Format: format, Detailed: o.Detailed}
}
