package cli

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/matzehuels/stageflow/internal/metrics"
	"github.com/matzehuels/stageflow/internal/server"
	"github.com/matzehuels/stageflow/pkg/observability"
	"github.com/matzehuels/stageflow/pkg/pipeline"
)

// serveCommand creates the serve command that runs the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr       string
		catalogDir string
		watch      bool
		noMetrics  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the HTTP API.

Settings come from the [server], [cache] and [catalog] tables of the config
file; flags override them. With --watch, a directory catalog reloads when its
workflow files change.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if catalogDir != "" {
				cfg.Catalog.Dir = catalogDir
			}
			if cmd.Flags().Changed("watch") {
				cfg.Catalog.Watch = watch
			}
			if noMetrics {
				cfg.Server.Metrics = false
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return c.runServe(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	cmd.Flags().StringVar(&catalogDir, "catalog", "", "serve workflow files from this directory")
	cmd.Flags().BoolVar(&watch, "watch", false, "reload the catalog directory on change")
	cmd.Flags().BoolVar(&noMetrics, "no-metrics", false, "disable the /metrics endpoint")

	return cmd
}

func (c *CLI) runServe(ctx context.Context) error {
	cfg := c.cfg
	logger := loggerFromContext(ctx)

	provider, dir, err := cfg.Catalog.Open()
	if err != nil {
		return err
	}
	store, err := cfg.Cache.Open(ctx)
	if err != nil {
		return err
	}

	runner := pipeline.NewRunner(provider, store, cfg.Cache.Keyer(), logger)
	defer runner.Close()

	opts := []server.Option{
		server.WithLogger(logger),
		server.WithLayout(cfg.Layout),
		server.WithSessionTTL(cfg.Server.SessionTTL),
	}

	if cfg.Server.Metrics {
		m := metrics.New(prometheus.NewRegistry())
		m.Register()
		defer observability.Reset()
		opts = append(opts, server.WithMetrics(m.Handler()))

		if list, err := provider.List(ctx); err == nil {
			m.SetWorkflows(len(list))
		}
	}

	if dir != nil && cfg.Catalog.Watch {
		go func() {
			err := dir.Watch(ctx, cfg.Catalog.Debounce, func(n int, err error) {
				observability.Catalog().OnReload(ctx, n, err)
				if err != nil {
					logger.Warn("catalog reload failed", "dir", dir.Path(), "error", err)
					return
				}
				logger.Info("catalog reloaded", "dir", dir.Path(), "workflows", n)
			})
			if err != nil {
				logger.Error("catalog watch stopped", "error", err)
			}
		}()
	}

	source := "built-in samples"
	if cfg.Catalog.Dir != "" {
		source = cfg.Catalog.Dir
	}
	logger.Info("serving workflows", "catalog", source, "cache", cfg.Cache.Type, "metrics", cfg.Server.Metrics)

	srv := server.New(runner, opts...)
	return srv.ListenAndServe(ctx, cfg.Server.Addr, cfg.Server.ReadTimeout, cfg.Server.WriteTimeout)
}
