package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/stepwise/internal/cli"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp <survey>",
	Short: "Expose the survey as MCP tools",
	Long:  `Starts a Model Context Protocol server so an agent can fill in the survey.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd)
		if err != nil {
			return err
		}
		transport, _ := cmd.Flags().GetString("transport")
		return cli.ServeMCP(cmd.Context(), app, args[0], transport, app.Config.Port)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().StringP("transport", "t", cli.TransportStdio, "Transport (stdio, sse)")
	mcpCmd.Flags().IntP("port", "p", 8080, "Port for the SSE transport")
}
