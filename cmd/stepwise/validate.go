package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/stepwise/internal/cli"
)

var validateCmd = &cobra.Command{
	Use:   "validate <survey>",
	Short: "Check a survey definition",
	Long:  `Parses the definition and reports every structural problem found.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd)
		if err != nil {
			return err
		}
		return cli.ValidateSurvey(cmd.Context(), app, args[0])
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
