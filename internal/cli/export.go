package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/seiqhcdro/internal/model"
	"github.com/rcliao/seiqhcdro/internal/report"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export [scenario-file]",
		Short: "Write report files for a scenario",
		Long: "Simulate a scenario and write any of the daily CSV, the text summary and the " +
			"scenario file itself. \"-\" as a path writes to stdout.",
		Args: cobra.MaximumNArgs(1),
		Run:  runExport,
	}

	addScenarioFlags(cmd)
	cmd.Flags().String("csv", "", "Daily series CSV path")
	cmd.Flags().String("summary", "", "Text summary path")
	cmd.Flags().String("scenario", "", "Scenario file path (.json, .yaml)")

	RootCmd.AddCommand(cmd)

	runsExport := &cobra.Command{
		Use:   "export",
		Short: "Export saved runs as JSON",
		Long:  "Export every version of every run, daily series included, as a JSON array. Filter by namespace with -n.",
		Run:   runRunsExport,
	}
	runsExport.Flags().StringP("ns", "n", "", "Filter by namespace")
	runsCmd.AddCommand(runsExport)
}

func runExport(cmd *cobra.Command, args []string) {
	csvPath, _ := cmd.Flags().GetString("csv")
	summaryPath, _ := cmd.Flags().GetString("summary")
	scenarioPath, _ := cmd.Flags().GetString("scenario")
	if csvPath == "" && summaryPath == "" && scenarioPath == "" {
		exitErr("export", fmt.Errorf("nothing to write: give --csv, --summary or --scenario"))
	}

	sc, name, err := scenarioFromArgs(cmd, args)
	if err != nil {
		exitErr("scenario", err)
	}
	sim, err := simulate(cmd.Context(), sc, name, cfg.SolverOptions())
	if err != nil {
		exitErr("simulate", err)
	}

	writers := []struct {
		path  string
		write func(io.Writer) error
	}{
		{csvPath, func(w io.Writer) error { return report.WriteCSV(w, sim.Scenario, sim.Series) }},
		{summaryPath, func(w io.Writer) error { return report.WriteSummary(w, sim.Scenario, sim.summary()) }},
		{scenarioPath, func(w io.Writer) error {
			return report.WriteScenario(w, sim.Scenario, model.FormatFromPath(scenarioPath))
		}},
	}
	for _, wr := range writers {
		if wr.path == "" {
			continue
		}
		if err := writeTo(cmd.OutOrStdout(), wr.path, wr.write); err != nil {
			exitErr("export", err)
		}
	}
}

// writeTo runs write against path, or against stdout when path is "-".
func writeTo(stdout io.Writer, path string, write func(io.Writer) error) error {
	if path == "-" {
		return write(stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	slog.Info("wrote report", "path", path)
	return nil
}

func runRunsExport(cmd *cobra.Command, args []string) {
	ns, _ := cmd.Flags().GetString("ns")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	runs, err := s.ExportAll(cmd.Context(), ns)
	if err != nil {
		exitErr("export", err)
	}
	if runs == nil {
		runs = []model.Run{}
	}

	b, _ := json.MarshalIndent(runs, "", "  ")
	fmt.Fprintln(cmd.OutOrStdout(), string(b))
}
