package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show run history statistics",
		Run:   runStats,
	}

	runsCmd.AddCommand(cmd)
}

func runStats(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	stats, err := s.Stats(cmd.Context(), cfg.DBPath)
	if err != nil {
		exitErr("stats", err)
	}

	b, _ := json.MarshalIndent(stats, "", "  ")
	fmt.Fprintln(cmd.OutOrStdout(), string(b))
}
