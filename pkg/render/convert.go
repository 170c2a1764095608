package render

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	cerrors "github.com/RalXYZ/cc99/pkg/errors"
)

// Rsvg is the rsvg-convert binary used for SVG conversion.
var Rsvg = "rsvg-convert"

const rsvgHint = "install librsvg (brew install librsvg, apt install librsvg2-bin)"

// ToPDF converts an SVG document to PDF.
func ToPDF(svg []byte) ([]byte, error) {
	return Convert(context.Background(), svg, "pdf")
}

// ToPNG converts an SVG document to PNG at the given zoom factor. Graphviz
// rasterizes tree diagrams on its own, so this is only needed for scaled
// output.
func ToPNG(svg []byte, scale float64) ([]byte, error) {
	if scale <= 0 {
		return nil, cerrors.New(cerrors.ErrCodeInvalidInput, "png scale must be positive, got %g", scale)
	}
	return Convert(context.Background(), svg, "png", "-z", fmt.Sprintf("%.2f", scale))
}

// Available reports whether [Rsvg] is on PATH.
func Available() bool {
	_, err := exec.LookPath(Rsvg)
	return err == nil
}

// Convert pipes svg through rsvg-convert and returns the converted bytes.
// Errors are UNAVAILABLE when the binary is missing and INTERNAL_ERROR when
// it exits non-zero.
func Convert(ctx context.Context, svg []byte, format string, extraArgs ...string) ([]byte, error) {
	if len(svg) == 0 {
		return nil, cerrors.New(cerrors.ErrCodeInvalidInput, "%s export: empty svg", format)
	}
	if _, err := exec.LookPath(Rsvg); err != nil {
		return nil, cerrors.Wrap(cerrors.ErrCodeUnavailable, err, "%s export needs %s: %s", format, Rsvg, rsvgHint)
	}

	args := append([]string{"-f", format}, extraArgs...)
	cmd := exec.CommandContext(ctx, Rsvg, args...)
	cmd.Stdin = bytes.NewReader(svg)

	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, cerrors.Wrap(cerrors.ErrCodeTimeout, ctx.Err(), "%s export", format)
		}
		return nil, cerrors.Wrap(cerrors.ErrCodeInternal, err, "%s: %s", Rsvg, strings.TrimSpace(stderr.String()))
	}
	return out.Bytes(), nil
}
