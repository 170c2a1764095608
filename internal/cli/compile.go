package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/RalXYZ/cc99/pkg/pipeline"
)

// compileCommand creates the compile command, which runs cc99 on C source.
func (c *CLI) compileCommand() *cobra.Command {
	var (
		flags      convertFlags
		formatsStr string
		output     string
		detailed   bool
		rawAST     bool
	)

	cmd := &cobra.Command{
		Use:   "compile [file.c|-]",
		Short: "Compile C source with cc99 and visualize its AST",
		Long: `Compile C source with cc99 and visualize its AST.

The configured compiler (cc99 -V - by default) reads the source on stdin and
prints its AST, which is converted and rendered like 'render' does.
Use --ast to write the compiler's JSON unchanged instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := c.options(cmd.Context(), flags)
			if err != nil {
				return err
			}
			opts.Formats = []string{pipeline.FormatJSON}
			if formatsStr != "" {
				opts.Formats = parseFormats(formatsStr)
			}
			opts.Detailed = detailed
			if err := pipeline.ValidateFormats(opts.Formats); err != nil {
				return err
			}
			return c.runCompile(cmd.Context(), cmd.OutOrStdout(), args[0], output, opts, flags.noCache, rawAST)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (single format) or base path (multiple); - for stdout")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s): json (default), svg, png, pdf, dot")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "label nodes with ids and attributes")
	cmd.Flags().BoolVar(&rawAST, "ast", false, "write the compiler's AST JSON without converting it")
	flags.register(cmd)

	return cmd
}

func (c *CLI) runCompile(ctx context.Context, w io.Writer, input, output string, opts pipeline.Options, noCache, rawAST bool) error {
	src, err := readInput(input)
	if err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	if rawAST {
		out, err := runner.Compile(ctx, string(src), opts)
		if err != nil {
			return err
		}
		if output == "" {
			output = "-"
		}
		return writeOutput(w, output, out)
	}

	var result *pipeline.Result
	err = spin(ctx, "Compiling...", "Compile failed", func() (err error) {
		result, err = runner.ExecuteSource(ctx, string(src), opts)
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
