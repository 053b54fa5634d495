package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rcliao/seiqhcdro/internal/model"
)

// addScenarioFlags registers the flags shared by every command that takes
// a scenario.
func addScenarioFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("preset", "p", "", "Bundled scenario name instead of a file (see the presets command)")
	cmd.Flags().Int("horizon", 0, "Override the number of simulated days (ndate)")
	cmd.Flags().String("start", "", "Override the outbreak start date (YYYY-MM-DD)")
}

// scenarioFromArgs resolves the scenario named by a file argument ("-" for
// stdin) or --preset and applies the override flags. The returned name
// identifies the scenario in logs and comparisons.
func scenarioFromArgs(cmd *cobra.Command, args []string) (*model.Scenario, string, error) {
	preset, _ := cmd.Flags().GetString("preset")
	var (
		sc   *model.Scenario
		name string
	)
	switch {
	case preset != "" && len(args) > 0:
		return nil, "", errors.New("give either a scenario file or --preset, not both")
	case preset != "":
		p, err := model.LoadPreset(preset)
		if err != nil {
			return nil, "", err
		}
		sc, name = p.Scenario, p.Name
	case len(args) == 1 && args[0] == "-":
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, "", fmt.Errorf("read stdin: %w", err)
		}
		if sc, err = model.Decode(b, model.FormatJSON); err != nil {
			return nil, "", err
		}
		name = "stdin"
	case len(args) == 1:
		var err error
		if sc, err = model.ReadFile(args[0]); err != nil {
			return nil, "", err
		}
		name = args[0]
	default:
		return nil, "", errors.New("a scenario file or --preset is required")
	}

	if err := applyOverrides(cmd, sc); err != nil {
		return nil, "", err
	}
	return sc, name, nil
}

func applyOverrides(cmd *cobra.Command, sc *model.Scenario) error {
	if h, _ := cmd.Flags().GetInt("horizon"); h != 0 {
		sc.Horizon = h
	}
	if start, _ := cmd.Flags().GetString("start"); start != "" {
		t, err := time.Parse(model.DateLayout, start)
		if err != nil {
			return fmt.Errorf("--start: %w", err)
		}
		sc.Start = t
	}
	return sc.Validate()
}

func isStdinPiped() bool {
	stat, err := os.Stdin.Stat()
	return err == nil && stat.Mode()&os.ModeCharDevice == 0
}
