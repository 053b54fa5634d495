package cli

import (
	"encoding/json"
	"fmt"

	"github.com/rcliao/seiqhcdro/internal/store"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Retrieve a saved run",
		Run:   runGet,
	}

	cmd.Flags().StringP("ns", "n", "", "Namespace (required)")
	cmd.Flags().StringP("key", "k", "", "Key (required)")
	cmd.Flags().Bool("history", false, "Return all versions (newest first)")
	cmd.Flags().IntP("version", "v", 0, "Specific version number")
	cmd.Flags().Bool("days", false, "Include the saved daily series")

	cmd.MarkFlagRequired("ns")
	cmd.MarkFlagRequired("key")

	runsCmd.AddCommand(cmd)
}

func runGet(cmd *cobra.Command, args []string) {
	ns, _ := cmd.Flags().GetString("ns")
	key, _ := cmd.Flags().GetString("key")
	history, _ := cmd.Flags().GetBool("history")
	version, _ := cmd.Flags().GetInt("version")
	days, _ := cmd.Flags().GetBool("days")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	runs, err := s.Get(cmd.Context(), store.GetParams{
		NS:       ns,
		Key:      key,
		History:  history,
		Version:  version,
		WithDays: days,
	})
	if err != nil {
		exitErr("get", err)
	}

	var b []byte
	if history || len(runs) > 1 {
		b, _ = json.MarshalIndent(runs, "", "  ")
	} else {
		b, _ = json.MarshalIndent(runs[0], "", "  ")
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(b))
}
