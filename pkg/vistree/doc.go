// Package vistree converts cc99 syntax trees into generic labelled trees for
// graphical rendering.
//
// # Overview
//
// A visualization tree is made of [Node] values with four fields:
//
//	{"id": "3", "label": "Binary", "attrs": {"operation": "Addition"}, "children": [...]}
//
// [Build] wraps the top-level declarations of an [ast.Unit] under a synthetic
// root (id "0", label "<program-root>") and converts every non-null AST node
// into exactly one tree node. Null children are dropped without consuming an
// id. Ids count up from 0 in pre-order, so a parent always has a smaller id
// than its descendants and siblings are numbered in source order.
//
// # Attributes
//
// Each variant contributes its own display attributes: operators as
// "operation", identifiers and declarations as "name", literals as "value".
// Nodes that embed a C type (declarations, casts, sizeof) carry the type as
// a nested map produced by [Resolve], e.g.
//
//	{"type": "point", "basic_type": {"type": "signed_Char", "qualifier": "Const"}}
//
// # Unknown variants
//
// Tags the [ast] package does not recognise are rendered according to
// [Builder.Unknown]: as a blank node (the default), as a visible
// "<unknown:TAG>" placeholder, or as an UNKNOWN_VARIANT error.
//
// # Concurrency
//
// Conversion is synchronous and allocates its id counter per call, so a
// [Builder] may be shared between goroutines. The traversal uses an explicit
// stack, and input nesting is bounded during decoding by
// [ast.DecodeOptions.MaxDepth].
//
// [ast.Unit]: github.com/RalXYZ/cc99/pkg/ast.Unit
package vistree
