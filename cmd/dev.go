package cmd

import (
	"github.com/spf13/cobra"
)

var devCmd = &cobra.Command{
	Use:     "dev",
	Aliases: []string{"d", "serve"},
	Short:   "Development build, live-reload server and watcher",
	Long: `Run every task in development mode (no minification), serve the build
root with live reload and re-run the task of whatever category changes.

This is also what running assetry without a command does.

Examples:
  assetry dev                 # Serve on localhost:3000 and open a browser
  assetry dev -p 8080 --no-open`,
	Args: cobra.NoArgs,
	RunE: runDev,
}

func init() {
	rootCmd.AddCommand(devCmd)
}

func runDev(cmd *cobra.Command, args []string) error {
	return withApp(false, func(a *app) error {
		return a.serve(cmd.Context())
	})
}
