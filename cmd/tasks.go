package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/conneroisu/assetry/internal/build"
)

var tasksCmd = &cobra.Command{
	Use:     "tasks",
	Aliases: []string{"ls"},
	Short:   "List the pipeline tasks",
	Args:    cobra.NoArgs,
	RunE:    runListTasks,
}

func init() {
	rootCmd.AddCommand(tasksCmd)
}

func runListTasks(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TASK\tDESCRIPTION")
	for _, task := range build.DefaultTasks() {
		fmt.Fprintf(w, "%s\t%s\n", task.Name(), task.Description())
	}
	fmt.Fprintln(w)
	pipeline := strings.Join(build.Pipeline, " → ")
	fmt.Fprintf(w, "dev\t%s, then serve and watch\n", pipeline)
	fmt.Fprintf(w, "build\tproduction mode, %s, then serve and watch\n", pipeline)
	return w.Flush()
}
