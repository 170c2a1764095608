package cli

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/RalXYZ/cc99/pkg/pipeline"
)

// renderCommand creates the render command for drawing a converted AST.
func (c *CLI) renderCommand() *cobra.Command {
	var (
		flags      convertFlags
		formatsStr string
		output     string
		detailed   bool
	)

	cmd := &cobra.Command{
		Use:   "render [ast.json|-]",
		Short: "Render a cc99 AST as a diagram",
		Long: `Render a cc99 AST as a diagram.

The AST is converted into a visualization tree and drawn top-down with
Graphviz. Every node is labelled with its kind; --detailed adds the node id
and its attributes in C-like shorthand.

Formats: svg (default), png, pdf, dot, json. PDF and PNG through the
rsvg-convert route need librsvg installed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := c.options(cmd.Context(), flags)
			if err != nil {
				return err
			}
			opts.Formats = parseFormats(formatsStr)
			opts.Detailed = detailed
			if err := pipeline.ValidateFormats(opts.Formats); err != nil {
				return err
			}
			return c.runRender(cmd.Context(), cmd.OutOrStdout(), args[0], output, opts, flags.noCache)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s): svg (default), png, pdf, dot, json (comma-separated)")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "label nodes with ids and attributes")
	flags.register(cmd)

	return cmd
}

func (c *CLI) runRender(ctx context.Context, w io.Writer, input, output string, opts pipeline.Options, noCache bool) error {
	data, err := readInput(input)
	if err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	var result *pipeline.Result
	err = spin(ctx, "Rendering...", "Render failed", func() (err error) {
		result, err = runner.Execute(ctx, data, opts)
		return err
	})
	if err != nil {
		return err
	}

	return writeArtifacts(w, artifactWriteParams{
		result:  result,
		formats: opts.Formats,
		input:   input,
		output:  output,
	})
}

// artifactWriteParams describes where rendered artifacts go.
type artifactWriteParams struct {
	result  *pipeline.Result
	formats []string
	input   string
	output  string
}

// writeArtifacts writes each artifact to its file. "-o -" with a single
// format writes to w instead.
func writeArtifacts(w io.Writer, p artifactWriteParams) error {
	if p.output == "-" {
		if len(p.formats) != 1 {
			return fmt.Errorf("stdout output needs exactly one format, got %d", len(p.formats))
		}
		return writeOutput(w, "-", p.result.Artifacts[p.formats[0]])
	}

	paths := outputPaths(p.input, p.output, p.formats)
	formats := append([]string(nil), p.formats...)
	sort.Strings(formats)

	printSuccess("Rendered %d format(s)", len(formats))
	cached := p.result.CacheInfo.ConvertHit && p.result.CacheInfo.RenderHit
	printStats(p.result.Stats.NodeCount, p.result.Stats.Depth, cached)
	for _, f := range formats {
		if err := writeOutput(w, paths[f], p.result.Artifacts[f]); err != nil {
			return fmt.Errorf("write %s: %w", f, err)
		}
		printFile(paths[f])
	}
	return nil
}
