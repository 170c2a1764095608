package vistree

import (
	"strings"

	"github.com/RalXYZ/cc99/pkg/ast"
	"github.com/RalXYZ/cc99/pkg/errors"
)

// UnknownPolicy selects how variants with unrecognised tags are rendered.
type UnknownPolicy int

const (
	// UnknownBlank emits a node with an empty label and no children. Unknown
	// type descriptors contribute no "type" attribute.
	UnknownBlank UnknownPolicy = iota
	// UnknownTagged emits a visible placeholder labelled "<unknown:TAG>"
	// with the tag in attrs.
	UnknownTagged
	// UnknownFail aborts the conversion with an UNKNOWN_VARIANT error.
	UnknownFail
)

var unknownPolicyNames = map[UnknownPolicy]string{
	UnknownBlank:  "blank",
	UnknownTagged: "tagged",
	UnknownFail:   "fail",
}

func (p UnknownPolicy) String() string {
	if s, ok := unknownPolicyNames[p]; ok {
		return s
	}
	return "invalid"
}

// ParseUnknownPolicy parses "blank", "tagged" or "fail". The empty string
// selects UnknownBlank.
func ParseUnknownPolicy(s string) (UnknownPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "blank":
		return UnknownBlank, nil
	case "tagged":
		return UnknownTagged, nil
	case "fail":
		return UnknownFail, nil
	}
	return UnknownBlank, errors.New(errors.ErrCodeInvalidInput, "invalid unknown-variant policy %q (must be one of: blank, tagged, fail)", s)
}

// UnknownLabel is the placeholder label used by UnknownTagged.
func UnknownLabel(tag string) string {
	return "<unknown:" + tag + ">"
}

// Builder converts translation units into visualization trees.
//
// The zero value is ready to use. A Builder holds no per-conversion state,
// so one value may serve concurrent callers.
type Builder struct {
	// Unknown controls rendering of unrecognised variant tags.
	Unknown UnknownPolicy
	// MaxDepth bounds input nesting in [Builder.BuildJSON]. Zero means
	// ast.DefaultMaxDepth; values above ast.MaxDepthLimit are capped.
	MaxDepth int
}

// Build converts u with the default options.
func Build(u *ast.Unit) (*Node, error) {
	return Builder{}.Build(u)
}

// BuildJSON decodes a compiler result and converts it with the default
// options.
func BuildJSON(data []byte) (*Node, error) {
	return Builder{}.BuildJSON(data)
}

// Build wraps the unit's top-level declarations under a synthetic root with
// id "0" and converts them in order. Identifiers are allocated from a counter
// local to this call.
func (b Builder) Build(u *ast.Unit) (*Node, error) {
	if u == nil {
		return nil, &ast.MalformedInputError{Reason: "missing GlobalDeclaration"}
	}
	t := &transformer{resolver: resolver{policy: b.Unknown}}
	root := newNode(t.next(), RootLabel)
	root.Attrs["remark"] = RootRemark
	if err := t.run(root, u.GlobalDeclaration); err != nil {
		return nil, err
	}
	return root, nil
}

// BuildJSON decodes data with [ast.DecodeUnit] and converts the result.
// Compiler failure envelopes surface as *ast.CompileError.
func (b Builder) BuildJSON(data []byte) (*Node, error) {
	u, err := ast.DecodeUnit(data, ast.DecodeOptions{MaxDepth: b.MaxDepth})
	if err != nil {
		return nil, err
	}
	return b.Build(u)
}

// Resolve renders a type descriptor under the builder's unknown policy.
func (b Builder) Resolve(bt ast.BasicType) (Attrs, error) {
	return resolver{policy: b.Unknown}.basicType(bt)
}
