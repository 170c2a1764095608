package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/mattn/go-isatty"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

const spinnerInterval = 80 * time.Millisecond

// spinner animates a label on a terminal line until stopped or until its
// context ends.
type spinner struct {
	w     io.Writer
	label string
	quit  chan struct{}
	done  chan struct{}
	once  sync.Once
}

func startSpinner(ctx context.Context, w io.Writer, label string) *spinner {
	s := &spinner{
		w:     w,
		label: label,
		quit:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	go s.run(ctx)
	return s
}

func (s *spinner) run(ctx context.Context) {
	defer close(s.done)
	ticker := time.NewTicker(spinnerInterval)
	defer ticker.Stop()

	for i := 0; ; i++ {
		select {
		case <-ctx.Done():
			return
		case <-s.quit:
			return
		case <-ticker.C:
			frame := spinnerFrames[i%len(spinnerFrames)]
			fmt.Fprintf(s.w, "\r%s %s", styleIconSpinner.Render(frame), StyleDim.Render(s.label))
		}
	}
}

// stop ends the animation and blanks the line. It may be called repeatedly.
func (s *spinner) stop() {
	s.once.Do(func() {
		close(s.quit)
		<-s.done
		fmt.Fprintf(s.w, "\r%s\r", strings.Repeat(" ", utf8.RuneCountInString(s.label)+2))
	})
}

// spin runs fn behind a spinner on stderr. The animation is skipped when
// stderr is not a terminal. If fn fails, failure is reported as a status
// line and fn's error is returned.
func spin(ctx context.Context, label, failure string, fn func() error) error {
	var s *spinner
	if isatty.IsTerminal(os.Stderr.Fd()) {
		s = startSpinner(ctx, os.Stderr, label)
	}
	err := fn()
	if s != nil {
		s.stop()
	}
	if err != nil && ctx.Err() == nil {
		printError("%s", failure)
	}
	return err
}
