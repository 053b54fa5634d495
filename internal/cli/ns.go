package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	nsCmd := &cobra.Command{
		Use:   "ns",
		Short: "Namespace overview",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List namespaces with run and key counts",
		Run:   runNSList,
	}

	nsCmd.AddCommand(listCmd)
	runsCmd.AddCommand(nsCmd)
}

func runNSList(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	stats, err := s.Stats(cmd.Context(), cfg.DBPath)
	if err != nil {
		exitErr("list namespaces", err)
	}

	b, _ := json.MarshalIndent(stats.Namespaces, "", "  ")
	fmt.Fprintln(cmd.OutOrStdout(), string(b))
}
