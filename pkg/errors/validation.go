package errors

import (
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MaxSourceBytes is the largest C source accepted for compilation.
const MaxSourceBytes = 1 << 20

// ValidateSource rejects C source that the compiler should never see: blank
// text, NUL bytes, invalid UTF-8 and anything over [MaxSourceBytes].
func ValidateSource(code string) error {
	switch {
	case strings.TrimSpace(code) == "":
		return New(ErrCodeInvalidInput, "source code cannot be empty")
	case len(code) > MaxSourceBytes:
		return New(ErrCodeInvalidInput, "source code is %d bytes, limit is %d", len(code), MaxSourceBytes)
	case strings.IndexByte(code, 0) >= 0:
		return New(ErrCodeInvalidInput, "source code contains a NUL byte")
	case !utf8.ValidString(code):
		return New(ErrCodeInvalidInput, "source code is not valid UTF-8")
	}
	return nil
}

// ValidateSnapshotID accepts only the canonical lowercase form produced by
// uuid.NewString, so an id taken from a URL maps to exactly one row.
func ValidateSnapshotID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidInput, "snapshot id cannot be empty")
	}
	u, err := uuid.Parse(id)
	if err != nil || u.String() != id {
		return New(ErrCodeInvalidInput, "invalid snapshot id %q", id)
	}
	return nil
}

// ValidateFormat checks format against the allowed set.
func ValidateFormat(format string, allowed ...string) error {
	if slices.Contains(allowed, format) {
		return nil
	}
	return New(ErrCodeInvalidFormat, "invalid format %q (want one of %s)", format, strings.Join(allowed, ", "))
}
