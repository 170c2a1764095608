package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/RalXYZ/cc99/pkg/errors"
	"github.com/RalXYZ/cc99/pkg/store"
	"github.com/RalXYZ/cc99/pkg/vistree"
)

// snapshotCommand creates the snapshot management command.
func (c *CLI) snapshotCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Save and inspect converted trees",
		Long: `Save and inspect converted trees.

Snapshots live in the store selected by the config file: a SQLite database
under $XDG_DATA_HOME/cc99vis by default, MongoDB, or memory.`,
	}

	cmd.AddCommand(c.snapshotSaveCommand())
	cmd.AddCommand(c.snapshotShowCommand())
	cmd.AddCommand(c.snapshotListCommand())
	cmd.AddCommand(c.snapshotDeleteCommand())

	return cmd
}

func (c *CLI) snapshotSaveCommand() *cobra.Command {
	var flags convertFlags
	cmd := &cobra.Command{
		Use:   "save [ast.json|-]",
		Short: "Convert an AST and store the tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			data, err := readInput(args[0])
			if err != nil {
				return err
			}
			tree, err := c.convertData(ctx, data, flags)
			if err != nil {
				return err
			}
			st, err := c.newStore(ctx)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer st.Close()

			snap := store.NewSnapshot(tree, data)
			if err := st.Save(ctx, snap); err != nil {
				return err
			}
			printSuccess("Saved snapshot %s", StyleHighlight.Render(snap.ID))
			printStats(snap.NodeCount, snap.Depth, false)
			printNextStep("Browse it", "cc99vis browse --snapshot "+snap.ID)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func (c *CLI) snapshotShowCommand() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "show [id]",
		Short: "Print a stored tree as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tree, err := c.loadSnapshotTree(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			var buf bytes.Buffer
			if err := vistree.WriteJSON(tree, &buf); err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), output, buf.Bytes())
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}

func (c *CLI) snapshotListCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored snapshots, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := c.newStore(ctx)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer st.Close()

			snaps, err := st.List(ctx, limit)
			if err != nil {
				return err
			}
			return printSnapshots(cmd.OutOrStdout(), snaps)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", store.DefaultListLimit, "maximum number of snapshots")
	return cmd
}

func (c *CLI) snapshotDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a stored snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := errors.ValidateSnapshotID(args[0]); err != nil {
				return err
			}
			st, err := c.newStore(ctx)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer st.Close()

			if err := st.Delete(ctx, args[0]); err != nil {
				return err
			}
			printSuccess("Deleted snapshot %s", args[0])
			return nil
		},
	}
}

func (c *CLI) loadSnapshotTree(ctx context.Context, id string) (*vistree.Node, error) {
	if err := errors.ValidateSnapshotID(id); err != nil {
		return nil, err
	}
	st, err := c.newStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	snap, err := st.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return snap.Tree, nil
}

func printSnapshots(w io.Writer, snaps []*store.Snapshot) error {
	if len(snaps) == 0 {
		printInfo("No snapshots stored")
		return nil
	}
	rows := make([][]string, 0, len(snaps))
	for _, s := range snaps {
		rows = append(rows, []string{
			s.ID,
			s.CreatedAt.Local().Format("2006-01-02 15:04"),
			strconv.Itoa(s.NodeCount),
			strconv.Itoa(s.Depth),
			s.SourceHash[:min(12, len(s.SourceHash))],
		})
	}
	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("ID", "Created", "Nodes", "Depth", "Source").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if col == 0 {
				return lipgloss.NewStyle().Foreground(colorTeal).Padding(0, 1)
			}
			return lipgloss.NewStyle().Foreground(colorGray).Padding(0, 1)
		})
	_, err := fmt.Fprintln(w, t.Render())
	return err
}
