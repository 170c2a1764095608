package cli

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/RalXYZ/cc99/pkg/vistree"
)

// browseCommand creates the interactive tree browser.
func (c *CLI) browseCommand() *cobra.Command {
	var (
		flags    convertFlags
		snapshot bool
	)

	cmd := &cobra.Command{
		Use:   "browse [ast.json|-|snapshot-id]",
		Short: "Browse a visualization tree interactively",
		Long: `Browse a visualization tree interactively.

Nodes can be expanded and collapsed with the arrow keys; the attributes of the
selected node are shown below the tree. With --snapshot the argument is the id
of a stored snapshot instead of an AST file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var (
				tree *vistree.Node
				err  error
			)
			if snapshot {
				tree, err = c.loadSnapshotTree(ctx, args[0])
			} else {
				tree, err = c.loadTree(ctx, args[0], flags)
			}
			if err != nil {
				return err
			}

			p := tea.NewProgram(NewTreeModel(tree), tea.WithContext(ctx))
			final, err := p.Run()
			if err != nil {
				return err
			}
			if m, ok := final.(TreeModel); ok {
				if n := m.Selected(); n != nil {
					printDetail("Last selected: #%s %s", n.ID, n.Label)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&snapshot, "snapshot", false, "treat the argument as a snapshot id")
	flags.register(cmd)

	return cmd
}
