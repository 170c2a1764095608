package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/RalXYZ/cc99/pkg/pipeline"
)

// stdin is swapped in tests.
var stdin io.Reader = os.Stdin

// readInput reads a file, or stdin when path is "-".
func readInput(path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// writeOutput writes data to path, or to w when path is empty or "-".
func writeOutput(w io.Writer, path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := w.Write(data)
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}

// outputPaths chooses a file per format. A single format with an explicit
// output is written there. Otherwise output (or the input's base name) is
// used as a prefix and the format is the extension.
func outputPaths(input, output string, formats []string) map[string]string {
	paths := make(map[string]string, len(formats))
	if len(formats) == 1 && output != "" {
		paths[formats[0]] = output
		return paths
	}

	base := output
	if base == "" {
		if input == "-" || input == "" {
			base = "tree"
		} else {
			base = strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
		}
	} else {
		base = strings.TrimSuffix(base, filepath.Ext(base))
	}
	for _, f := range formats {
		paths[f] = base + "." + extension(f)
	}
	return paths
}

// extension keeps rendered trees from overwriting an input AST.json.
func extension(format string) string {
	if format == pipeline.FormatJSON {
		return "tree.json"
	}
	return format
}
