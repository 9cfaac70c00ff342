package cmd

import (
	"github.com/spf13/cobra"
)

var runProduction bool

var runCmd = &cobra.Command{
	Use:     "run <task>...",
	Aliases: []string{"r"},
	Short:   "Run tasks by name",
	Long: `Run one or more tasks in the given order, stopping at the first one
that fails. See "assetry tasks" for the names.

Examples:
  assetry run styles
  assetry run clean fonts svgToSprite
  assetry run scripts --production`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTasks,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVar(&runProduction, "production", false, "Run in production mode")
}

func runTasks(cmd *cobra.Command, args []string) error {
	return withApp(runProduction, func(a *app) error {
		return a.series(cmd.Context(), args...)
	})
}
