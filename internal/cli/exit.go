package cli

import (
	"context"
	stderrors "errors"

	"github.com/RalXYZ/cc99/pkg/errors"
)

// Process exit codes.
const (
	ExitOK          = 0
	ExitFailure     = 1   // collaborator or internal failure
	ExitUsage       = 2   // the input or flags were rejected
	ExitCompile     = 3   // cc99 rejected the C source
	ExitInterrupted = 130 // SIGINT, shell convention
)

// ExitCode maps an error returned by a command to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	if stderrors.Is(err, context.Canceled) {
		return ExitInterrupted
	}
	switch errors.GetCode(err) {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidFormat,
		errors.ErrCodeMalformedInput, errors.ErrCodeUnknownVariant, errors.ErrCodeNotFound:
		return ExitUsage
	case errors.ErrCodeCompileFailed:
		return ExitCompile
	}
	return ExitFailure
}
