package cli

import (
	"encoding/json"
	"fmt"

	"github.com/rcliao/seiqhcdro/internal/store"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "link",
		Short: "Create or remove relations between runs",
		Run:   runLink,
	}

	cmd.Flags().String("from-ns", "", "Source namespace")
	cmd.Flags().String("from-key", "", "Source key")
	cmd.Flags().String("to-ns", "", "Target namespace")
	cmd.Flags().String("to-key", "", "Target key")
	cmd.Flags().StringP("rel", "r", "", "Relation: variant_of, compares_to, supersedes_policy")
	cmd.Flags().Bool("rm", false, "Remove the link")

	cmd.MarkFlagRequired("from-ns")
	cmd.MarkFlagRequired("from-key")
	cmd.MarkFlagRequired("to-ns")
	cmd.MarkFlagRequired("to-key")
	cmd.MarkFlagRequired("rel")

	linksCmd := &cobra.Command{
		Use:   "links",
		Short: "Show relations of the latest version of a run",
		Run:   runLinks,
	}
	linksCmd.Flags().StringP("ns", "n", "", "Namespace (required)")
	linksCmd.Flags().StringP("key", "k", "", "Key (required)")
	linksCmd.MarkFlagRequired("ns")
	linksCmd.MarkFlagRequired("key")

	runsCmd.AddCommand(cmd, linksCmd)
}

func runLink(cmd *cobra.Command, args []string) {
	fromNS, _ := cmd.Flags().GetString("from-ns")
	fromKey, _ := cmd.Flags().GetString("from-key")
	toNS, _ := cmd.Flags().GetString("to-ns")
	toKey, _ := cmd.Flags().GetString("to-key")
	rel, _ := cmd.Flags().GetString("rel")
	rm, _ := cmd.Flags().GetBool("rm")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	link, err := s.Link(cmd.Context(), store.LinkParams{
		FromNS:  fromNS,
		FromKey: fromKey,
		ToNS:    toNS,
		ToKey:   toKey,
		Rel:     rel,
		Remove:  rm,
	})
	if err != nil {
		exitErr("link", err)
	}

	b, _ := json.MarshalIndent(link, "", "  ")
	fmt.Fprintln(cmd.OutOrStdout(), string(b))
}

func runLinks(cmd *cobra.Command, args []string) {
	ns, _ := cmd.Flags().GetString("ns")
	key, _ := cmd.Flags().GetString("key")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	runs, err := s.Get(cmd.Context(), store.GetParams{NS: ns, Key: key})
	if err != nil {
		exitErr("get", err)
	}
	links, err := s.GetLinks(cmd.Context(), runs[0].ID)
	if err != nil {
		exitErr("links", err)
	}
	if links == nil {
		links = []store.Link{}
	}

	b, _ := json.MarshalIndent(links, "", "  ")
	fmt.Fprintln(cmd.OutOrStdout(), string(b))
}
