package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/RalXYZ/cc99/pkg/vistree"
)

// statsCommand creates the stats command.
func (c *CLI) statsCommand() *cobra.Command {
	var (
		flags convertFlags
		top   int
	)

	cmd := &cobra.Command{
		Use:   "stats [ast.json|-]",
		Short: "Summarise the node kinds in a cc99 AST",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runStats(cmd.Context(), cmd.OutOrStdout(), args[0], top, flags)
		},
	}

	cmd.Flags().IntVar(&top, "top", 0, "show only the N most frequent labels (0 = all)")
	flags.register(cmd)

	return cmd
}

func (c *CLI) runStats(ctx context.Context, w io.Writer, input string, top int, flags convertFlags) error {
	tree, err := c.loadTree(ctx, input, flags)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, StyleTitle.Render("AST Summary"))
	fmt.Fprintf(w, "%s nodes · depth %s\n\n",
		StyleNumber.Render(strconv.Itoa(vistree.Count(tree))),
		StyleNumber.Render(strconv.Itoa(vistree.Depth(tree))))
	fmt.Fprintln(w, labelTable(vistree.LabelCounts(tree), top))
	return nil
}

// loadTree reads and converts an AST through the cached runner.
func (c *CLI) loadTree(ctx context.Context, input string, flags convertFlags) (*vistree.Node, error) {
	data, err := readInput(input)
	if err != nil {
		return nil, err
	}
	return c.convertData(ctx, data, flags)
}

func (c *CLI) convertData(ctx context.Context, data []byte, flags convertFlags) (*vistree.Node, error) {
	opts, err := c.options(ctx, flags)
	if err != nil {
		return nil, err
	}
	runner, err := c.newRunner(ctx, flags.noCache)
	if err != nil {
		return nil, fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	tree, err := runner.Convert(ctx, data, opts)
	if err != nil {
		return nil, fmt.Errorf("convert: %w", err)
	}
	return tree, nil
}

type labelCount struct {
	label string
	count int
}

// sortedLabels orders labels by descending count, then by name.
func sortedLabels(counts map[string]int) []labelCount {
	out := make([]labelCount, 0, len(counts))
	for l, n := range counts {
		out = append(out, labelCount{l, n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].label < out[j].label
	})
	return out
}

func labelTable(counts map[string]int, top int) string {
	sorted := sortedLabels(counts)
	if top > 0 && top < len(sorted) {
		sorted = sorted[:top]
	}
	total := 0
	for _, n := range counts {
		total += n
	}

	rows := make([][]string, 0, len(sorted))
	for _, lc := range sorted {
		label := lc.label
		if label == "" {
			label = "(blank)"
		}
		share := fmt.Sprintf("%.1f%%", 100*float64(lc.count)/float64(max(total, 1)))
		rows = append(rows, []string{label, strconv.Itoa(lc.count), share})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Label", "Count", "Share").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if col == 0 {
				return lipgloss.NewStyle().Foreground(colorWhite).Padding(0, 1)
			}
			return lipgloss.NewStyle().Foreground(colorTeal).Padding(0, 1).Align(lipgloss.Right)
		})
	return t.Render()
}
