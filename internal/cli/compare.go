package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rcliao/seiqhcdro/internal/model"
	"github.com/rcliao/seiqhcdro/internal/ode"
	"github.com/rcliao/seiqhcdro/internal/report"
)

func init() {
	cmd := &cobra.Command{
		Use:   "compare [scenario-file...]",
		Short: "Simulate several scenarios side by side",
		Long: "Simulate scenario files and presets concurrently (bounded by the configured worker count) " +
			"and print their headline statistics.",
		Run: runCompare,
	}

	cmd.Flags().StringP("presets", "p", "", "Comma-separated preset names")
	cmd.Flags().Int("horizon", 0, "Override the number of simulated days for every scenario")
	cmd.Flags().StringP("output", "o", "table", "Output: table or json")
	cmd.Flags().IntP("workers", "w", 0, "Concurrent simulations (default from config)")

	RootCmd.AddCommand(cmd)
}

type namedScenario struct {
	Name     string
	Scenario *model.Scenario
}

func runCompare(cmd *cobra.Command, args []string) {
	presets, _ := cmd.Flags().GetString("presets")
	horizon, _ := cmd.Flags().GetInt("horizon")
	output, _ := cmd.Flags().GetString("output")
	workers, _ := cmd.Flags().GetInt("workers")
	if workers <= 0 {
		workers = cfg.Workers
	}

	var scenarios []namedScenario
	for _, name := range splitTags(presets) {
		p, err := model.LoadPreset(name)
		if err != nil {
			exitErr("preset", err)
		}
		scenarios = append(scenarios, namedScenario{Name: p.Name, Scenario: p.Scenario})
	}
	for _, path := range args {
		sc, err := model.ReadFile(path)
		if err != nil {
			exitErr("scenario "+path, err)
		}
		scenarios = append(scenarios, namedScenario{Name: path, Scenario: sc})
	}
	if len(scenarios) == 0 {
		exitErr("compare", fmt.Errorf("give scenario files or --presets"))
	}
	if horizon != 0 {
		for _, ns := range scenarios {
			ns.Scenario.Horizon = horizon
		}
	}

	rows, err := compareScenarios(cmd.Context(), scenarios, cfg.SolverOptions(), workers)
	if err != nil {
		exitErr("compare", err)
	}

	out := cmd.OutOrStdout()
	switch output {
	case "table":
		if err := report.WriteComparison(out, rows); err != nil {
			exitErr("write output", err)
		}
	case "json":
		b, _ := json.MarshalIndent(rows, "", "  ")
		fmt.Fprintln(out, string(b))
	default:
		exitErr("compare", fmt.Errorf("unknown output %q (table, json)", output))
	}
}

// compareScenarios simulates every scenario with at most workers running at
// once. Rows keep the input order. The first failure cancels the rest.
func compareScenarios(ctx context.Context, scenarios []namedScenario, opts ode.Options, workers int) ([]report.Comparison, error) {
	rows := make([]report.Comparison, len(scenarios))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, ns := range scenarios {
		g.Go(func() error {
			sim, err := simulate(gctx, ns.Scenario, ns.Name, opts)
			if err != nil {
				return fmt.Errorf("%s: %w", ns.Name, err)
			}
			rows[i] = report.Comparison{Name: ns.Name, Summary: sim.summary()}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return rows, nil
}
