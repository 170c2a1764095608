package ast

import (
	"fmt"

	"github.com/RalXYZ/cc99/pkg/errors"
)

// MalformedInputError reports input that does not have the shape the
// compiler's serializer produces. Path locates the offending value, e.g.
// "GlobalDeclaration[0].FunctionDefinition[6]".
type MalformedInputError struct {
	Path   string
	Reason string
}

func (e *MalformedInputError) Error() string {
	if e.Path == "" {
		return "malformed AST: " + e.Reason
	}
	return fmt.Sprintf("malformed AST at %s: %s", e.Path, e.Reason)
}

// Code implements errors.Coder.
func (e *MalformedInputError) Code() errors.Code { return errors.ErrCodeMalformedInput }

func malformed(path, format string, args ...any) error {
	return &MalformedInputError{Path: path, Reason: fmt.Sprintf(format, args...)}
}

// CompileError carries a compiler failure envelope ({"error": true,
// "message": ...}) through to the caller. Message is the compiler's own text.
type CompileError struct {
	Message string
}

func (e *CompileError) Error() string { return "compile failed: " + e.Message }

// Code implements errors.Coder.
func (e *CompileError) Code() errors.Code { return errors.ErrCodeCompileFailed }
