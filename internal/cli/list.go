package cli

import (
	"encoding/json"
	"fmt"

	"github.com/rcliao/seiqhcdro/internal/store"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved runs",
		Run:   runList,
	}

	cmd.Flags().StringP("ns", "n", "", "Filter by namespace")
	cmd.Flags().StringP("tags", "t", "", "Filter by tags (comma-separated)")
	cmd.Flags().IntP("limit", "l", 20, "Max results")
	cmd.Flags().Bool("keys-only", false, "Only output ns/key pairs")

	runsCmd.AddCommand(cmd)
}

func runList(cmd *cobra.Command, args []string) {
	ns, _ := cmd.Flags().GetString("ns")
	tagsStr, _ := cmd.Flags().GetString("tags")
	limit, _ := cmd.Flags().GetInt("limit")
	keysOnly, _ := cmd.Flags().GetBool("keys-only")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	runs, err := s.List(cmd.Context(), store.ListParams{
		NS:    ns,
		Tags:  splitTags(tagsStr),
		Limit: limit,
	})
	if err != nil {
		exitErr("list", err)
	}

	out := cmd.OutOrStdout()
	if keysOnly {
		for _, r := range runs {
			fmt.Fprintf(out, "%s/%s\n", r.NS, r.Key)
		}
		return
	}

	b, _ := json.MarshalIndent(runs, "", "  ")
	fmt.Fprintln(out, string(b))
}
