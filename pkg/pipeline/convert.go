package pipeline

import (
	"github.com/RalXYZ/cc99/pkg/vistree"
)

// Convert decodes an AST envelope (or bare unit) and builds its tree.
// It is the uncached form of [Runner.Convert].
func Convert(input []byte, opts Options) (*vistree.Node, error) {
	if err := opts.ValidateForConvert(); err != nil {
		return nil, err
	}
	b := opts.Builder()
	return b.BuildJSON(input)
}
