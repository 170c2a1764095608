package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/RalXYZ/cc99/pkg/vistree"
)

// convertCommand creates the convert command for AST JSON to tree JSON.
func (c *CLI) convertCommand() *cobra.Command {
	var (
		flags  convertFlags
		output string
	)

	cmd := &cobra.Command{
		Use:   "convert [ast.json|-]",
		Short: "Convert a cc99 AST into a visualization tree",
		Long: `Convert a cc99 AST into a visualization tree.

The input is the JSON printed by 'cc99 -V', either the full envelope
{"error": false, "ast": {...}} or the bare {"GlobalDeclaration": [...]}
object. The tree is written as indented JSON.

Results are cached locally for faster subsequent runs.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runConvert(cmd.Context(), cmd.OutOrStdout(), args[0], output, flags)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	flags.register(cmd)

	return cmd
}

func (c *CLI) runConvert(ctx context.Context, w io.Writer, input, output string, flags convertFlags) error {
	logger := loggerFromContext(ctx)
	data, err := readInput(input)
	if err != nil {
		return err
	}
	opts, err := c.options(ctx, flags)
	if err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, flags.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	st := startStage(logger, "convert")
	tree, cacheHit, err := runner.ConvertWithCacheInfo(ctx, data, opts)
	if err != nil {
		st.fail(err)
		return fmt.Errorf("convert: %w", err)
	}
	st.done("converted", "nodes", vistree.Count(tree), "cached", cacheHit)

	var buf bytes.Buffer
	if err := vistree.WriteJSON(tree, &buf); err != nil {
		return err
	}
	if err := writeOutput(w, output, buf.Bytes()); err != nil {
		return err
	}
	if output != "" && output != "-" {
		printSuccess("Tree written")
		printStats(vistree.Count(tree), vistree.Depth(tree), cacheHit)
		printFile(output)
	}
	return nil
}
