package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/vizpage/pkg/buildinfo"
	"github.com/matzehuels/vizpage/pkg/cache"
	"github.com/matzehuels/vizpage/pkg/observability"
	"github.com/matzehuels/vizpage/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "vizpage"

	// redisURLEnv names the environment variable consulted when --redis is unset.
	redisURLEnv = "VIZPAGE_REDIS_URL"
)

// Log levels exported for use in main.go.
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
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level. At debug level the build and cache
// hooks are routed to the logger as well.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
	if level <= log.DebugLevel {
		hooks := observability.NewLogHooks(c.Logger)
		observability.SetBuildHooks(hooks)
		observability.SetCacheHooks(hooks)
	}
}

// verbose reports whether debug logging is enabled.
func (c *CLI) verbose() bool {
	return c.Logger.GetLevel() <= log.DebugLevel
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "vizpage turns tables into self-contained HTML reports",
		Long: `vizpage builds interactive HTML reports from a TOML or YAML manifest.
Datasets are serialized once (embedded CSV/JSON or external CSV/JSON/Parquet)
and loaded lazily in the browser by the charts that use them.`,
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	root.AddCommand(c.renderCommand())
	root.AddCommand(c.formatsCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Runner Factory
// =============================================================================

// cacheOpts selects the payload cache backend for a run.
type cacheOpts struct {
	disabled bool   // --no-cache
	redisURL string // --redis, falls back to $VIZPAGE_REDIS_URL
}

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(ctx context.Context, opts cacheOpts) (*pipeline.Runner, error) {
	cc, err := c.newCache(ctx, opts)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(cc, c.Logger), nil
}

// newCache opens the configured backend and scopes it to the running version
// so payloads never leak across releases with different encoders.
func (c *CLI) newCache(ctx context.Context, opts cacheOpts) (cache.Cache, error) {
	if opts.disabled {
		return cache.NewNullCache(), nil
	}

	var inner cache.Cache
	url := opts.redisURL
	if url == "" {
		url = os.Getenv(redisURLEnv)
	}
	if url != "" {
		rc, err := cache.NewRedisCacheFromURL(ctx, url)
		if err != nil {
			return nil, err
		}
		c.Logger.Debug("using redis cache", "addr", rc.Addr())
		inner = rc
	} else {
		dir, err := cacheDir()
		if err != nil {
			c.Logger.Warn("cache disabled", "error", err)
			return cache.NewNullCache(), nil
		}
		fc, err := cache.NewFileCache(dir)
		if err != nil {
			c.Logger.Warn("cache disabled", "dir", dir, "error", err)
			return cache.NewNullCache(), nil
		}
		c.Logger.Debug("using file cache", "dir", dir)
		inner = fc
	}
	return cache.Scoped(inner, "v"+buildinfo.Version+":"), nil
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/vizpage/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}
