package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/seiqhcdro/internal/model"
	"github.com/rcliao/seiqhcdro/internal/report"
)

func init() {
	cmd := &cobra.Command{
		Use:   "presets [name]",
		Short: "List bundled scenarios, or print one as a scenario file",
		Args:  cobra.MaximumNArgs(1),
		Run:   runPresets,
	}

	cmd.Flags().String("format", "json", "Scenario file format when printing one preset: json or yaml")

	RootCmd.AddCommand(cmd)
}

func runPresets(cmd *cobra.Command, args []string) {
	out := cmd.OutOrStdout()
	if len(args) == 1 {
		format, _ := cmd.Flags().GetString("format")
		p, err := model.LoadPreset(args[0])
		if err != nil {
			exitErr("preset", err)
		}
		if err := report.WriteScenario(out, p.Scenario, model.Format(format)); err != nil {
			exitErr("write scenario", err)
		}
		return
	}

	type entry struct {
		Name  string `json:"name"`
		Title string `json:"title"`
	}
	var list []entry
	for _, n := range model.PresetNames() {
		p, err := model.LoadPreset(n)
		if err != nil {
			exitErr("preset", err)
		}
		list = append(list, entry{Name: p.Name, Title: p.Title})
	}

	b, _ := json.MarshalIndent(list, "", "  ")
	fmt.Fprintln(out, string(b))
}
