package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/RalXYZ/cc99/internal/mcp"
	"github.com/RalXYZ/cc99/pkg/pipeline"
)

// mcpCommand creates the MCP server command.
func (c *CLI) mcpCommand() *cobra.Command {
	var (
		tools     []string
		noCache   bool
		listTools bool
	)

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the conversion tools over MCP (stdio)",
		Long: `Serve the conversion tools over the Model Context Protocol on stdin/stdout.

Tools: ast_to_vistree, ast_to_dot, ast_stats, and c_to_vistree (needs the
cc99 compiler). Logs go to stderr so they do not corrupt the protocol stream.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if listTools {
				for _, s := range mcp.GetToolSchemas() {
					printKeyValue(cmd.OutOrStdout(), s.Name, s.Description)
				}
				return nil
			}

			ctx := cmd.Context()
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			c.Logger.SetOutput(os.Stderr)

			runner, err := c.newRunner(ctx, noCache)
			if err != nil {
				return fmt.Errorf("initialize runner: %w", err)
			}
			defer runner.Close()
			if _, err := runner.Compiler.Version(ctx); err != nil {
				c.Logger.Debug("compiler unavailable; c_to_vistree disabled", "error", err)
				runner.Compiler = nil
			}

			srv, err := mcp.New(runner, c.Logger, mcp.Config{
				Tools: tools,
				Options: pipeline.Options{
					Unknown:  cfg.Transform.Unknown,
					MaxDepth: cfg.Transform.MaxDepth,
				},
			})
			if err != nil {
				return err
			}
			c.Logger.Info("serving MCP on stdio", "tools", srv.ListTools())
			return srv.ServeStdio()
		},
	}

	cmd.Flags().StringSliceVar(&tools, "tools", nil, "tools to expose (default: all available)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&listTools, "list", false, "list the tools and exit")

	return cmd
}
