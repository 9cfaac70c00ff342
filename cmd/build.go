package cmd

import (
	"github.com/spf13/cobra"

	"github.com/conneroisu/assetry/internal/build"
)

var buildOnce bool

var buildCmd = &cobra.Command{
	Use:     "build",
	Aliases: []string{"b"},
	Short:   "Production build",
	Long: `Run every task in production mode: minified styles and scripts,
the same outputs otherwise. Like the development command it then serves the
result and keeps watching; pass --once to stop after the build.

Examples:
  assetry build               # Production build, then serve and watch
  assetry build --once        # Production build for CI or deployment`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)

	buildCmd.Flags().BoolVar(&buildOnce, "once", false, "Exit after the build instead of serving and watching")
}

func runBuild(cmd *cobra.Command, args []string) error {
	return withApp(true, func(a *app) error {
		if buildOnce {
			return a.series(cmd.Context(), build.Pipeline...)
		}
		return a.serve(cmd.Context())
	})
}
