package cli

import "github.com/spf13/cobra"

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Saved run history",
	Long:  "Inspect and manage simulation runs saved with `runs put` or `simulate --save`.",
}

func init() {
	RootCmd.AddCommand(runsCmd)
}
