package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/rcliao/seiqhcdro/internal/epi"
	"github.com/rcliao/seiqhcdro/internal/model"
	"github.com/rcliao/seiqhcdro/internal/ode"
	"github.com/rcliao/seiqhcdro/internal/report"
	"github.com/rcliao/seiqhcdro/internal/series"
)

func init() {
	cmd := &cobra.Command{
		Use:   "simulate [scenario-file]",
		Short: "Run a scenario",
		Long: "Simulate a scenario file (JSON or YAML, \"-\" for stdin) or a bundled preset and print " +
			"the daily case series.",
		Args: cobra.MaximumNArgs(1),
		Run:  runSimulate,
	}

	addScenarioFlags(cmd)
	cmd.Flags().StringP("output", "o", "json", "Output: json, csv, summary, table, scenario")
	cmd.Flags().Int("every", 1, "Table output: show every n-th day")
	cmd.Flags().Bool("trajectory", false, "JSON output: include raw compartment fractions")
	cmd.Flags().String("save", "", "Save the run to history as ns/key")
	cmd.Flags().StringP("tags", "t", "", "Comma-separated tags for --save")
	cmd.Flags().String("note", "", "Note for --save")

	RootCmd.AddCommand(cmd)
}

// simulation is one finished run with its derived series.
type simulation struct {
	Name     string
	Scenario *model.Scenario
	Result   *epi.Result
	Series   *series.Series
}

func (s *simulation) summary() series.Summary {
	return s.Series.Stats(s.Scenario.HospitalCapacity, s.Scenario.QuarantineCapacity)
}

func (s *simulation) days() []model.DayStat {
	return s.Series.Days(s.Result.R)
}

// simulateOutput is the JSON form of a simulation.
type simulateOutput struct {
	Name       string            `json:"name"`
	Scenario   *model.Scenario   `json:"scenario"`
	R          []float64         `json:"r"`
	Days       []model.DayStat   `json:"days"`
	Summary    series.Summary    `json:"summary"`
	Stats      ode.Stats         `json:"stats"`
	Trajectory *model.Trajectory `json:"trajectory,omitempty"`
}

func simulate(ctx context.Context, sc *model.Scenario, name string, opts ode.Options) (*simulation, error) {
	start := time.Now()
	res, err := epi.Simulate(ctx, sc, opts)
	if err != nil {
		return nil, err
	}
	slog.Info("simulated", "scenario", name, "days", sc.Horizon, "steps", res.Stats.Steps, "elapsed", time.Since(start))
	return &simulation{
		Name:     name,
		Scenario: sc,
		Result:   res,
		Series:   series.Derive(&res.Trajectory, sc.Population),
	}, nil
}

func runSimulate(cmd *cobra.Command, args []string) {
	output, _ := cmd.Flags().GetString("output")
	every, _ := cmd.Flags().GetInt("every")
	withTraj, _ := cmd.Flags().GetBool("trajectory")
	save, _ := cmd.Flags().GetString("save")
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

	if save != "" {
		ns, key, err := parseRef(save)
		if err != nil {
			exitErr("save", err)
		}
		run, err := saveRun(cmd.Context(), sim, ns, key, splitTags(tags), note)
		if err != nil {
			exitErr("save", err)
		}
		slog.Info("saved run", "ns", run.NS, "key", run.Key, "version", run.Version, "id", run.ID)
	}

	if err := writeSimulation(cmd.OutOrStdout(), sim, output, every, withTraj); err != nil {
		exitErr("write output", err)
	}
}

func writeSimulation(w io.Writer, sim *simulation, output string, every int, withTraj bool) error {
	switch output {
	case "json":
		out := simulateOutput{
			Name:     sim.Name,
			Scenario: sim.Scenario,
			R:        sim.Result.R,
			Days:     sim.days(),
			Summary:  sim.summary(),
			Stats:    sim.Result.Stats,
		}
		if withTraj {
			out.Trajectory = &sim.Result.Trajectory
		}
		b, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(b))
		return err
	case "csv":
		return report.WriteCSV(w, sim.Scenario, sim.Series)
	case "summary":
		return report.WriteSummary(w, sim.Scenario, sim.summary())
	case "table":
		return report.WriteTable(w, sim.Scenario, sim.Series, every)
	case "scenario":
		return report.WriteScenario(w, sim.Scenario, model.FormatJSON)
	}
	return fmt.Errorf("unknown output %q (json, csv, summary, table, scenario)", output)
}
