package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/stepwise/internal/cli"
)

var graphCmd = &cobra.Command{
	Use:   "graph <survey>",
	Short: "Print the survey flow as a Mermaid chart",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd)
		if err != nil {
			return err
		}
		sessionID, _ := cmd.Flags().GetString("session")
		return cli.PrintGraph(cmd.Context(), app, args[0], sessionID)
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().StringP("session", "s", "", "Highlight the path taken by this session")
}
