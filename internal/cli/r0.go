package cli

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/rcliao/seiqhcdro/internal/model"
	"github.com/rcliao/seiqhcdro/internal/policy"
)

func init() {
	cmd := &cobra.Command{
		Use:   "r0 [scenario-file]",
		Short: "Print the reproduction number schedule",
		Long:  "Print R for every day of the horizon under the scenario's policy stages. No simulation is run.",
		Args:  cobra.MaximumNArgs(1),
		Run:   runR0,
	}

	addScenarioFlags(cmd)
	cmd.Flags().StringP("output", "o", "json", "Output: json or text")

	RootCmd.AddCommand(cmd)
}

type rPoint struct {
	Day   int     `json:"day"`
	Date  string  `json:"date,omitempty"`
	R     float64 `json:"r"`
	Stage int     `json:"stage"`
}

func runR0(cmd *cobra.Command, args []string) {
	output, _ := cmd.Flags().GetString("output")

	sc, _, err := scenarioFromArgs(cmd, args)
	if err != nil {
		exitErr("scenario", err)
	}

	sched := policy.NewSchedule(sc.R0, sc.Stages)
	r := policy.Sample(sched, sc.Horizon)
	points := make([]rPoint, len(r))
	for d, v := range r {
		points[d] = rPoint{Day: d, R: v, Stage: sched.Stage(float64(d))}
		if !sc.Start.IsZero() {
			points[d].Date = sc.Date(d).Format(model.DateLayout)
		}
	}

	out := cmd.OutOrStdout()
	switch output {
	case "json":
		b, _ := json.MarshalIndent(points, "", "  ")
		fmt.Fprintln(out, string(b))
	case "text":
		for _, p := range points {
			fmt.Fprintf(out, "%d\t%s\t%s\n", p.Day, p.Date, strconv.FormatFloat(p.R, 'f', 4, 64))
		}
	default:
		exitErr("r0", fmt.Errorf("unknown output %q (json, text)", output))
	}
}
