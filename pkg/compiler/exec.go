package compiler

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"

	cerrors "github.com/RalXYZ/cc99/pkg/errors"
)

// Default invocation of the cc99 binary.
const (
	DefaultBin     = "cc99"
	DefaultTimeout = 10 * time.Second
)

// DefaultArgs asks cc99 for the AST of a translation unit read from stdin.
var DefaultArgs = []string{"-V", "-"}

// Exec runs an external compiler binary.
type Exec struct {
	Bin     string
	Args    []string
	Timeout time.Duration
}

// NewExec returns an Exec for bin with the default arguments and timeout.
// An empty bin selects DefaultBin.
func NewExec(bin string) *Exec {
	if bin == "" {
		bin = DefaultBin
	}
	return &Exec{Bin: bin, Args: DefaultArgs, Timeout: DefaultTimeout}
}

// ID implements Compiler.
func (e *Exec) ID() string {
	return strings.Join(append([]string{e.Bin}, e.Args...), " ")
}

// Compile implements Compiler. The source is written to the compiler's
// stdin and its stdout is returned unchanged.
func (e *Exec) Compile(ctx context.Context, source string) ([]byte, error) {
	if err := cerrors.ValidateSource(source); err != nil {
		return nil, err
	}
	stdout, stderr, err := e.run(ctx, strings.NewReader(source), e.Args...)
	if err != nil {
		var exitErr *exec.ExitError
		// cc99 reports diagnostics inside the envelope and may still exit
		// non-zero, so only a silent failure is an error here.
		if errors.As(err, &exitErr) && len(bytes.TrimSpace(stdout)) > 0 {
			return stdout, nil
		}
		return nil, e.wrap(err, stderr)
	}
	return stdout, nil
}

// Version implements Compiler by running the binary with --version.
func (e *Exec) Version(ctx context.Context) (string, error) {
	stdout, stderr, err := e.run(ctx, nil, "--version")
	if err != nil {
		return "", e.wrap(err, stderr)
	}
	return strings.TrimSpace(string(stdout)), nil
}

func (e *Exec) run(ctx context.Context, stdin *strings.Reader, args ...string) ([]byte, []byte, error) {
	if _, err := exec.LookPath(e.Bin); err != nil {
		return nil, nil, cerrors.Wrap(cerrors.ErrCodeUnavailable, err, "compiler %q not found", e.Bin)
	}

	timeout := e.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, e.Bin, args...)
	if stdin != nil {
		cmd.Stdin = stdin
	}

	var out, errBuf bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errBuf

	err := cmd.Run()
	if err != nil && ctx.Err() == nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return nil, nil, cerrors.New(cerrors.ErrCodeTimeout, "compiler did not finish within %s", timeout)
	}
	if err != nil && ctx.Err() != nil {
		return nil, nil, ctx.Err()
	}
	return out.Bytes(), errBuf.Bytes(), err
}

func (e *Exec) wrap(err error, stderr []byte) error {
	if cerrors.GetCode(err) != "" || errors.Is(err, context.Canceled) {
		return err
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		msg := strings.TrimSpace(string(stderr))
		if msg == "" {
			msg = exitErr.Error()
		}
		return cerrors.New(cerrors.ErrCodeCompileFailed, "%s", msg)
	}
	return cerrors.Wrap(cerrors.ErrCodeUnavailable, err, "run %s", e.Bin)
}

// Ensure Exec implements Compiler.
var _ Compiler = (*Exec)(nil)
