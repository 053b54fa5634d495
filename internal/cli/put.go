package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/seiqhcdro/internal/model"
	"github.com/rcliao/seiqhcdro/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "put [scenario-file]",
		Short: "Simulate a scenario and save the run",
		Long:  "Simulate a scenario file or preset and store it under ns/key. Saving an existing key creates a new version.",
		Args:  cobra.MaximumNArgs(1),
		Run:   runPut,
	}

	addScenarioFlags(cmd)
	cmd.Flags().StringP("ns", "n", "", "Namespace (required)")
	cmd.Flags().StringP("key", "k", "", "Key (required)")
	cmd.Flags().StringP("tags", "t", "", "Comma-separated tags")
	cmd.Flags().String("note", "", "Free-text note")

	cmd.MarkFlagRequired("ns")
	cmd.MarkFlagRequired("key")

	runsCmd.AddCommand(cmd)
}

func runPut(cmd *cobra.Command, args []string) {
	ns, _ := cmd.Flags().GetString("ns")
	key, _ := cmd.Flags().GetString("key")
	tags, _ := cmd.Flags().GetString("tags")
	note, _ := cmd.Flags().GetString("note")

	sc, name, err := scenarioFromArgs(cmd, args)
	if err != nil {
		exitErr("scenario", err)
	}
	sim, err := simulate(cmd.Context(), sc, name, cfg.SolverOptions())
	if err != nil {
		exitErr("simulate", err)
	}
	run, err := saveRun(cmd.Context(), sim, ns, key, splitTags(tags), note)
	if err != nil {
		exitErr("put", err)
	}

	b, _ := json.Marshal(run)
	fmt.Fprintln(cmd.OutOrStdout(), string(b))
}

// saveRun stores sim with its daily series in the configured database.
func saveRun(ctx context.Context, sim *simulation, ns, key string, tags []string, note string) (*model.Run, error) {
	s, err := openStore()
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	defer s.Close()

	return s.Put(ctx, store.PutParams{
		NS:       ns,
		Key:      key,
		Scenario: sim.Scenario,
		Days:     sim.days(),
		Tags:     tags,
		Note:     note,
	})
}
