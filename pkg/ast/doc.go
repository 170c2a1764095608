// Package ast models the C syntax tree emitted by the cc99 compiler.
//
// The compiler serializes its tree as externally tagged JSON: a variant with
// a payload is a single-key object ({"Identifier": "x"}), a tuple payload is
// a JSON array, and a variant without payload is a bare string ("Break").
// [DecodeUnit] reads that form into the closed [Node] and [BaseType] sum
// types so that consumers dispatch with one type switch instead of probing
// for keys.
//
// Decoding is strict about the shape of known variants and lenient about
// unknown tags, which decode to [Unknown] and [UnknownType] so that callers
// decide how to present them.
package ast
