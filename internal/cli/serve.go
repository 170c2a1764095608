package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/RalXYZ/cc99/pkg/observability"
	"github.com/RalXYZ/cc99/pkg/pipeline"
	"github.com/RalXYZ/cc99/pkg/server"
	"github.com/RalXYZ/cc99/pkg/store"
)

// serveCommand creates the HTTP server command.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		noCache bool
		noStore bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the conversion API over HTTP",
		Long: `Serve the conversion API over HTTP.

Endpoints answer with {"st": 0, "msg": "", "data": ...} envelopes, as the
cc99 web front end expects:

  GET  /api/ping            versions of cc99vis and the compiler
  POST /api/visual          compile {"code": "..."} and return its tree
  POST /api/tree            convert an AST JSON body
  POST /api/render          render an AST JSON body (?format=svg|png|pdf|dot|json)
  POST /api/snapshots       convert and store an AST JSON body
  GET  /api/snapshots[/id]  list or fetch stored snapshots
  GET  /api/metrics         pipeline, cache and response counters`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Server.Addr
			}

			runner, err := c.newRunner(ctx, noCache)
			if err != nil {
				return fmt.Errorf("initialize runner: %w", err)
			}
			defer runner.Close()

			if v, err := runner.Compiler.Version(ctx); err != nil {
				c.Logger.Warn("compiler unavailable; /api/visual will fail", "error", err)
			} else {
				c.Logger.Info("using compiler", "version", v)
			}

			metrics := observability.NewMetrics()
			observability.Register(metrics)
			defer observability.Reset()

			srvCfg := server.Config{
				Metrics:      metrics,
				BodyLimit:    cfg.Server.BodyLimit,
				ReadTimeout:  cfg.Server.ReadTimeout,
				WriteTimeout: cfg.Server.WriteTimeout,
				CORSOrigins:  cfg.Server.CORSOrigins,
				Options: pipeline.Options{
					Unknown:  cfg.Transform.Unknown,
					MaxDepth: cfg.Transform.MaxDepth,
				},
			}

			var st store.Store
			if !noStore {
				if st, err = c.newStore(ctx); err != nil {
					return fmt.Errorf("open store: %w", err)
				}
				defer st.Close()
			}
			return server.New(runner, st, c.Logger, srvCfg).ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :5001)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&noStore, "no-store", false, "disable the snapshot endpoints")

	return cmd
}
