package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/RalXYZ/cc99/pkg/buildinfo"
	"github.com/RalXYZ/cc99/pkg/cache"
	"github.com/RalXYZ/cc99/pkg/compiler"
	"github.com/RalXYZ/cc99/pkg/config"
	"github.com/RalXYZ/cc99/pkg/pipeline"
	"github.com/RalXYZ/cc99/pkg/store"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = config.AppName

// Log levels accepted by New.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// ConfigPath overrides the default config file location.
	ConfigPath string

	verbose bool
	cfg     *config.Config
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "cc99vis turns cc99 syntax trees into diagrams",
		Long: `cc99vis converts the AST printed by the cc99 C compiler into a generic
visualization tree and renders it as JSON, Graphviz DOT, SVG, PNG or PDF.

It can also run cc99 on C source directly, serve the conversion over HTTP
for the web front end, and expose it to agents as an MCP server.`,
		Version:      buildinfo.Get().Version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if c.verbose {
				c.SetLogLevel(LogDebug)
			}
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.ConfigPath, "config", "", "config file (default $XDG_CONFIG_HOME/cc99vis/config.toml)")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable debug logging")

	// Register all subcommands
	root.AddCommand(c.convertCommand())
	root.AddCommand(c.compileCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.statsCommand())
	root.AddCommand(c.browseCommand())
	root.AddCommand(c.snapshotCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.mcpCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// loadConfig loads the configuration once per process.
func (c *CLI) loadConfig() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	cfg, err := config.Load(c.ConfigPath)
	if err != nil {
		return nil, err
	}
	c.cfg = cfg
	return cfg, nil
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*pipeline.Runner, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	cc, err := newCache(ctx, cfg.Cache, noCache)
	if err != nil {
		return nil, err
	}
	var keyer cache.Keyer
	if cfg.Cache.Prefix != "" {
		keyer = cache.NewScopedKeyer(nil, cfg.Cache.Prefix)
	}
	runner := pipeline.NewRunner(cc, keyer, c.Logger)
	runner.Compiler = newCompiler(cfg.Compiler)
	return runner, nil
}

func newCompiler(cfg config.CompilerConfig) *compiler.Exec {
	exec := compiler.NewExec(cfg.Bin)
	exec.Args = cfg.Args
	if cfg.Timeout > 0 {
		exec.Timeout = cfg.Timeout
	}
	return exec
}

func newCache(ctx context.Context, cfg config.CacheConfig, noCache bool) (cache.Cache, error) {
	if noCache || cfg.Backend == "none" {
		return cache.NewNullCache(), nil
	}
	switch cfg.Backend {
	case "redis":
		return cache.NewRedisCache(ctx, cache.RedisConfig{URL: cfg.RedisURL})
	case "memory":
		return cache.NewMemoryCache(cfg.Entries)
	}
	dir := cfg.Dir
	if dir == "" {
		d, err := config.CacheDir()
		if err != nil {
			return cache.NewNullCache(), nil
		}
		dir = d
	}
	return cache.NewFileCache(dir)
}

// newStore opens the configured snapshot store.
func (c *CLI) newStore(ctx context.Context) (store.Store, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	switch cfg.Store.Backend {
	case "memory":
		return store.NewMemoryStore(), nil
	case "mongo":
		return store.OpenMongo(ctx, store.MongoConfig{URI: cfg.Store.MongoURI, Database: cfg.Store.MongoDatabase})
	}
	path := cfg.Store.Path
	if path == "" {
		dir, err := config.DataDir()
		if err != nil {
			return nil, fmt.Errorf("get data dir: %w", err)
		}
		path = filepath.Join(dir, "snapshots.db")
	}
	return store.OpenSQLite(path)
}

// =============================================================================
// Paths
// =============================================================================

// =============================================================================
// Options Helpers
// =============================================================================

// convertFlags are the flags shared by every command that converts an AST.
type convertFlags struct {
	unknown  string
	maxDepth int
	noCache  bool
	refresh  bool
}

func (f *convertFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.unknown, "unknown", "", "unrecognised AST variants: blank (default), tagged, fail")
	cmd.Flags().IntVar(&f.maxDepth, "max-depth", 0, "deepest AST nesting accepted (default from config)")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&f.refresh, "refresh", false, "ignore cached results")
}

// options merges the flags over the configured transform defaults.
func (c *CLI) options(ctx context.Context, f convertFlags) (pipeline.Options, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return pipeline.Options{}, err
	}
	opts := pipeline.Options{
		Unknown:  cfg.Transform.Unknown,
		MaxDepth: cfg.Transform.MaxDepth,
		Refresh:  f.refresh,
		Logger:   loggerFromContext(ctx),
	}
	if f.unknown != "" {
		opts.Unknown = f.unknown
	}
	if f.maxDepth > 0 {
		opts.MaxDepth = f.maxDepth
	}
	if err := opts.ValidateForConvert(); err != nil {
		return opts, err
	}
	return opts, nil
}

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) []string {
	if s == "" {
		return []string{pipeline.FormatSVG}
	}
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, strings.ToLower(f))
		}
	}
	return out
}
