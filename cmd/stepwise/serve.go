package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/stepwise/internal/cli"
)

var serveCmd = &cobra.Command{
	Use:   "serve <survey>",
	Short: "Start the HTTP API",
	Long: `Serves the survey over a JSON API with server-sent events for session changes
and Prometheus metrics on /metrics.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd)
		if err != nil {
			return err
		}
		return cli.Serve(cmd.Context(), app, args[0], app.Config.Port)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on")
}
