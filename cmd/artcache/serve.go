package main

import (
	"github.com/spf13/cobra"

	"github.com/kbukum/artcache/app"
	"github.com/kbukum/artcache/bootstrap"
)

func newServeCmd(opts *globalOptions) *cobra.Command {
	var (
		host string
		port int
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API with the replay worker and connectivity prober",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			cfg.Server.Enabled = true
			if cmd.Flags().Changed("host") {
				cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}

			rt, err := app.Build(cfg, bootstrap.WithSummaryOutput(cmd.OutOrStdout()))
			if err != nil {
				return err
			}
			return rt.App.Run(commandContext(cmd))
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "listen host (overrides server.host)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (overrides server.port)")
	return cmd
}
