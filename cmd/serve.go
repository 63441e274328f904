package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/envtrac/chemrisk-cli/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the scored snapshot and run history over HTTP",
	Long: `Starts the API server. It serves the last exported document from
export.web, Prometheus metrics on /metrics, and run history from the
ledger. With server.refresh_cron set, the pipeline re-runs on schedule and
the served snapshot swaps in place.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		c := *cfg
		if serveAddr != "" {
			c.Server.Addr = serveAddr
		}

		env, err := initPipeline(ctx, &c)
		if err != nil {
			return err
		}
		defer env.Close()

		srv := server.New(&c, env.Store, env.Pipeline)
		return srv.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default: server.addr from config)")
	rootCmd.AddCommand(serveCmd)
}
