package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aretw0/stepwise/internal/cli"
	"github.com/aretw0/stepwise/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "stepwise",
	Short: "Stepwise runs multi-step surveys",
	Long: `Stepwise loads a survey definition (YAML or JSON, local or remote) and walks
respondents through it step by step, in the terminal, over HTTP or as MCP tools.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func init() {
	// Persistent flags override the STEPWISE_* environment.
	rootCmd.PersistentFlags().String("env-file", ".env", "Dotenv file to load before reading the environment")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("store", "", "Session store (memory, file, redis, sqlite)")
	rootCmd.PersistentFlags().String("data-dir", "", "Directory for file sessions and the SQLite database")
}

// newApp builds the application from the environment and the persistent flags.
func newApp(cmd *cobra.Command) (*cli.App, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	return cli.NewApp(envFile, func(cfg *config.Config) {
		if cmd.Flags().Changed("log-level") {
			cfg.LogLevel, _ = cmd.Flags().GetString("log-level")
		}
		if cmd.Flags().Changed("store") {
			cfg.Store, _ = cmd.Flags().GetString("store")
		}
		if cmd.Flags().Changed("data-dir") {
			cfg.DataDir, _ = cmd.Flags().GetString("data-dir")
		}
		if cmd.Flags().Changed("port") {
			cfg.Port, _ = cmd.Flags().GetInt("port")
		}
	})
}
