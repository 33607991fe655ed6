package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/stepwise/internal/cli"
)

var runCmd = &cobra.Command{
	Use:   "run <survey>",
	Short: "Fill in a survey interactively",
	Long: `Runs the survey in the terminal. Progress is saved after every step, so running
the same command again resumes the session. Type :back, :reset or :quit at any prompt.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd)
		if err != nil {
			return err
		}
		sessionID, _ := cmd.Flags().GetString("session")
		plain, _ := cmd.Flags().GetBool("plain")
		fresh, _ := cmd.Flags().GetBool("fresh")

		return cli.RunSurvey(cmd.Context(), app, cli.RunOptions{
			Locator:   args[0],
			SessionID: sessionID,
			Plain:     plain,
			Fresh:     fresh,
		})
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringP("session", "s", "", "Session ID to create or resume (default: derived from the survey)")
	runCmd.Flags().Bool("plain", false, "Use line-oriented prompts even on a terminal")
	runCmd.Flags().Bool("fresh", false, "Discard any saved progress before starting")
}
