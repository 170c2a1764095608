// Package compiler runs the cc99 compiler to turn C source into an AST.
//
// The compiler is an external program. In visualization mode (-V) it reads a
// translation unit from stdin and prints a JSON envelope on stdout, either
// {"error": false, "ast": {...}} or {"error": true, "message": "..."},
// which [ast.DecodeUnit] understands.
//
//	c := compiler.NewExec("cc99")
//	out, err := c.Compile(ctx, "int main() { return 0; }")
//	unit, err := ast.DecodeUnit(out, ast.DecodeOptions{})
//
// Failures are reported with error codes from pkg/errors:
//
//   - UNAVAILABLE: the binary is not installed or could not be started
//   - TIMEOUT: the compiler did not finish within [Exec.Timeout]
//   - COMPILE_FAILED: the compiler exited non-zero without printing an envelope
//
// [ast.DecodeUnit]: github.com/RalXYZ/cc99/pkg/ast.DecodeUnit
package compiler

import "context"

// Compiler turns C source text into the compiler's JSON output.
type Compiler interface {
	// Compile returns the raw JSON envelope printed for source.
	Compile(ctx context.Context, source string) ([]byte, error)

	// Version returns the compiler's version line.
	Version(ctx context.Context) (string, error)

	// ID identifies the compiler and its arguments for cache keys.
	ID() string
}
