// Package cli implements the forgedeps command-line interface.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/mfriedrich/forgedeps/pkg/buildinfo"
	"github.com/mfriedrich/forgedeps/pkg/cache"
	"github.com/mfriedrich/forgedeps/pkg/config"
	apperrors "github.com/mfriedrich/forgedeps/pkg/errors"
	"github.com/mfriedrich/forgedeps/pkg/forge"
	"github.com/mfriedrich/forgedeps/pkg/resolver"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "forgedeps"

	// defaultManifest is the manifest filename looked up when no path
	// is given.
	defaultManifest = "Puppetfile"
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
	Config config.Config
}

// New creates a new CLI instance with a default logger and config.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: log.NewWithOptions(w, log.Options{
			ReportTimestamp: true,
			TimeFormat:      "15:04:05.00",
			Level:           level,
		}),
		Config: config.Default(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// LoadConfig reads the config file at path ("" for the default
// location) into the CLI state.
func (c *CLI) LoadConfig(path string) error {
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	c.Config = cfg
	return nil
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	var (
		verbose    bool
		configPath string
		forgeURL   string
	)

	root := &cobra.Command{
		Use:          "forgedeps",
		Short:        "Forgedeps resolves Puppetfile module dependencies",
		Long:         `Forgedeps parses a Puppetfile, expands every module's transitive dependencies against the Puppet Forge, and reports version conflicts with suggested fixes.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				c.SetLogLevel(log.DebugLevel)
			}
			if err := c.LoadConfig(configPath); err != nil {
				return err
			}
			if forgeURL != "" {
				c.Config.Forge.BaseURL = forgeURL
			}
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/forgedeps/config.toml)")
	root.PersistentFlags().StringVar(&forgeURL, "forge", "", "Forge API base URL (overrides config)")

	// Register all subcommands
	root.AddCommand(c.checkCommand())
	root.AddCommand(c.graphCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Resolver Factory
// =============================================================================

// newResolver creates a resolver backed by a Forge client with the
// configured cache backend.
func (c *CLI) newResolver(noCache bool) (*resolver.Resolver, cache.Cache, error) {
	if err := apperrors.ValidateURL(c.Config.Forge.BaseURL); err != nil {
		return nil, nil, err
	}
	store := c.newCache(noCache)
	client := forge.NewClient(c.Config.Forge.BaseURL, store, c.Config.CacheTTL())
	if d := c.Config.ForgeTimeout(); d > 0 {
		client.SetTimeout(d)
	}
	r := resolver.New(client, resolver.Options{
		Logger: c.Logger.Debugf,
	})
	return r, store, nil
}

// newCache builds the configured cache backend, degrading to the null
// cache when a backend cannot be reached. Caching is an optimization;
// a broken redis must not block a resolve.
func (c *CLI) newCache(noCache bool) cache.Cache {
	if noCache || c.Config.Cache.Backend == config.BackendNone {
		return cache.NewNullCache()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	switch c.Config.Cache.Backend {
	case config.BackendRedis:
		store, err := cache.NewRedisCache(ctx, c.Config.Cache.Redis, "", appName)
		if err != nil {
			c.Logger.Warn("redis cache unavailable, continuing without cache", "err", err)
			return cache.NewNullCache()
		}
		return store
	case config.BackendMongo:
		store, err := cache.NewMongoCache(ctx, c.Config.Cache.MongoDB, appName, "metadata")
		if err != nil {
			c.Logger.Warn("mongo cache unavailable, continuing without cache", "err", err)
			return cache.NewNullCache()
		}
		return store
	default:
		dir, err := cacheDir()
		if err != nil {
			return cache.NewNullCache()
		}
		store, err := cache.NewFileCache(dir)
		if err != nil {
			return cache.NewNullCache()
		}
		return store
	}
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/forgedeps/).
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

// manifestPath resolves the manifest argument: an explicit path wins,
// otherwise the default filename in the working directory.
func manifestPath(arg string) string {
	if arg != "" {
		return arg
	}
	return defaultManifest
}

// progress tracks the start time of an operation and logs completion
// with elapsed duration.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg along with the elapsed time since progress was created.
func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}
