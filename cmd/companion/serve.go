package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aretw0/companion/internal/buildinfo"
	"github.com/aretw0/companion/internal/cli"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and metrics listener",
	Long: `Serves the session API (POST /sessions/{id}/messages and friends) on
server.addr and Prometheus metrics on server.metrics_addr until SIGINT or
SIGTERM, then drains in-flight turns.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			app.Config.Server.Addr = addr
		}
		if addr, _ := cmd.Flags().GetString("metrics-addr"); cmd.Flags().Changed("metrics-addr") {
			app.Config.Server.MetricsAddr = addr
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		app.Logger.Info("starting", "build", buildinfo.String())
		return cli.Serve(ctx, app)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Override server.addr")
	serveCmd.Flags().String("metrics-addr", "", "Override server.metrics_addr (empty disables metrics)")
	rootCmd.AddCommand(serveCmd)
}
