package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rcliao/seiqhcdro/internal/store"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search saved runs by keyword",
		Long:  "Search run keys, namespaces, notes and tags for matching text.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runSearch,
	}

	cmd.Flags().StringP("ns", "n", "", "Filter by namespace")
	cmd.Flags().IntP("limit", "l", 20, "Max results")

	runsCmd.AddCommand(cmd)
}

func runSearch(cmd *cobra.Command, args []string) {
	ns, _ := cmd.Flags().GetString("ns")
	limit, _ := cmd.Flags().GetInt("limit")
	query := strings.Join(args, " ")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	results, err := s.Search(cmd.Context(), store.SearchParams{
		NS:    ns,
		Query: query,
		Limit: limit,
	})
	if err != nil {
		exitErr("search", err)
	}

	out := cmd.OutOrStdout()
	if len(results) == 0 {
		fmt.Fprintln(out, "[]")
		return
	}

	b, _ := json.MarshalIndent(results, "", "  ")
	fmt.Fprintln(out, string(b))
}
