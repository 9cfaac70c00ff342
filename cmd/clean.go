package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/assetry/internal/build"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove the build root",
	Long: `Delete the build root. Roots outside the project directory are only
removed with --force (or clean.force in the configuration).`,
	Args: cobra.NoArgs,
	RunE: runClean,
}

func init() {
	rootCmd.AddCommand(cleanCmd)

	cleanCmd.Flags().Bool("force", false, "Allow removing a build root outside the project")
}

func runClean(cmd *cobra.Command, args []string) error {
	if f := cmd.Flags().Lookup("force"); f != nil && f.Changed {
		viper.Set("clean.force", f.Value.String() == "true")
	}
	return withApp(false, func(a *app) error {
		return a.runner.Run(cmd.Context(), build.TaskClean)
	})
}
