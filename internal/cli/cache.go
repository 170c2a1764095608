package cli

import (
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/RalXYZ/cc99/pkg/cache"
	"github.com/RalXYZ/cc99/pkg/config"
)

func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or empty the on-disk result cache",
		Long: `The file backend keeps compiler output, trees and rendered artifacts
under one directory. These commands act on that directory even when a
different backend is configured.`,
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "path",
			Short: "Print the cache directory",
			Args:  cobra.NoArgs,
			RunE: c.withFileCache(func(cmd *cobra.Command, fc *cache.FileCache) error {
				fmt.Fprintln(cmd.OutOrStdout(), fc.Dir())
				return nil
			}),
		},
		&cobra.Command{
			Use:   "stats",
			Short: "Show the number and size of cached entries",
			Args:  cobra.NoArgs,
			RunE: c.withFileCache(func(cmd *cobra.Command, fc *cache.FileCache) error {
				st, err := fc.Stats()
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				printKeyValue(w, "dir", fc.Dir())
				printKeyValue(w, "entries", strconv.Itoa(st.Entries))
				printKeyValue(w, "size", humanize.Bytes(uint64(st.Bytes)))
				return nil
			}),
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Remove every cached entry",
			Args:  cobra.NoArgs,
			RunE: c.withFileCache(func(cmd *cobra.Command, fc *cache.FileCache) error {
				n, err := fc.Clear()
				if err != nil {
					return err
				}
				if n == 0 {
					printInfo("Cache is already empty")
					return nil
				}
				printSuccess("Removed %d cached %s", n, plural(n, "entry", "entries"))
				printDetail("%s", fc.Dir())
				return nil
			}),
		},
	)
	return cmd
}

// withFileCache opens the configured cache directory, falling back to the
// XDG location, before running fn.
func (c *CLI) withFileCache(fn func(*cobra.Command, *cache.FileCache) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		cfg, err := c.loadConfig()
		if err != nil {
			return err
		}
		dir := cfg.Cache.Dir
		if dir == "" {
			if dir, err = config.CacheDir(); err != nil {
				return fmt.Errorf("resolve cache dir: %w", err)
			}
		}
		fc, err := cache.NewFileCache(dir)
		if err != nil {
			return err
		}
		defer fc.Close()
		return fn(cmd, fc)
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
