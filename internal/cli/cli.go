package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/stageflow/pkg/buildinfo"
	"github.com/matzehuels/stageflow/pkg/cache"
	"github.com/matzehuels/stageflow/pkg/catalog"
	"github.com/matzehuels/stageflow/pkg/config"
	"github.com/matzehuels/stageflow/pkg/pipeline"
	"github.com/matzehuels/stageflow/pkg/render"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the binary name used in help text and next-step hints.
const appName = config.AppName

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

	// ConfigPath is the --config flag; empty uses the XDG default.
	ConfigPath string

	cfg *config.Config
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
		Short: "Stageflow draws workflow diagrams",
		Long: `Stageflow lays out workflows as diagrams: stages in a row, the status
each stage emits beneath it, and the entities involved in a collapsible group.
Edges between stages and statuses are inferred; custom edges can be drawn on top.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.ConfigPath, "config", "", "config file (default: $XDG_CONFIG_HOME/stageflow/config.toml)")

	root.AddCommand(c.listCommand())
	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.viewCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Config & Runner Factory
// =============================================================================

// loadConfig loads the config file once per invocation.
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

// newRunner creates a pipeline runner for CLI use. source is a workflow id
// served by the configured catalog, or the path of a workflow file; in the
// latter case the returned id is the file's workflow id.
func (c *CLI) newRunner(ctx context.Context, source string, noCache bool) (*pipeline.Runner, string, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, "", err
	}

	provider, id, err := c.openSource(cfg, source)
	if err != nil {
		return nil, "", err
	}

	var store cache.Cache = cache.NewNullCache()
	if !noCache {
		if store, err = cfg.Cache.Open(ctx); err != nil {
			c.Logger.Warn("cache unavailable, continuing without", "type", cfg.Cache.Type, "error", err)
			store = cache.NewNullCache()
		}
	}
	return pipeline.NewRunner(provider, store, cfg.Cache.Keyer(), c.Logger), id, nil
}

// openSource resolves source to a provider and workflow id.
func (c *CLI) openSource(cfg *config.Config, source string) (catalog.Provider, string, error) {
	if catalog.IsWorkflowFile(source) {
		if raw, err := os.ReadFile(source); err == nil {
			data, err := catalog.Decode(source, raw)
			if err != nil {
				return nil, "", fmt.Errorf("%s: %w", source, err)
			}
			p, err := catalog.NewStatic(data)
			if err != nil {
				return nil, "", fmt.Errorf("%s: %w", source, err)
			}
			c.Logger.Debug("loaded workflow file", "path", source, "id", data.Workflow.ID)
			return p, data.Workflow.ID, nil
		}
	}
	p, _, err := cfg.Catalog.Open()
	if err != nil {
		return nil, "", err
	}
	return p, source, nil
}

// =============================================================================
// Options Helpers
// =============================================================================

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) []string {
	if s == "" {
		return []string{render.FormatSVG}
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
