package main

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/kbukum/artcache/app"
	"github.com/kbukum/artcache/bootstrap"
)

type globalOptions struct {
	configPath string
	debug      bool
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:   "artcache",
		Short: "Offline-first Art Institute of Chicago catalog cache",
		Long: `artcache searches the Art Institute of Chicago catalog through a local TTL
cache. Results fetched while online are kept for offline use; requests made
while offline are queued and replayed when the connection returns.`,
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}
	opts.addFlags(root.PersistentFlags())

	root.AddCommand(
		newServeCmd(opts),
		newSearchCmd(opts),
		newArtworksCmd(opts),
		newDetailsCmd(opts),
		newCacheCmd(opts),
		newVersionCmd(),
	)
	return root
}

func (o *globalOptions) addFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&o.configPath, "config", "c", "", "path to a config file (default: search ./config.yml, ./cmd/artcache/config.yml)")
	fs.BoolVar(&o.debug, "debug", false, "enable debug logging")
}

func (o *globalOptions) load() (*app.Config, error) {
	cfg, err := app.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.debug {
		cfg.Debug = true
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}

// runTask builds the runtime and runs task inside the full lifecycle.
// Logs go to stderr so stdout carries only command output. One-shot
// commands run without the HTTP server and the prober.
func (o *globalOptions) runTask(cmd *cobra.Command, task func(ctx context.Context, rt *app.Runtime) error) error {
	cfg, err := o.load()
	if err != nil {
		return err
	}
	cfg.Server.Enabled = false
	cfg.Connectivity.Enabled = false
	cfg.Logging.Output = "stderr"
	if !o.debug && cfg.Logging.Level == "" {
		cfg.Logging.Level = "warn"
	}

	rt, err := app.Build(cfg, bootstrap.WithoutSummary())
	if err != nil {
		return err
	}
	return rt.App.RunTask(commandContext(cmd), func(ctx context.Context) error {
		return task(ctx, rt)
	})
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
