package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/rcliao/seiqhcdro/internal/model"
	"github.com/rcliao/seiqhcdro/internal/series"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	labelStyle  = lipgloss.NewStyle().Padding(0, 1)
	numberStyle = lipgloss.NewStyle().Padding(0, 1).Align(lipgloss.Right)
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 0:
				return labelStyle
			}
			return numberStyle
		})
}

// WriteTable renders the CSV columns as a terminal table. With every > 1
// only every n-th day and the final day are shown.
func WriteTable(w io.Writer, s *model.Scenario, ser *series.Series, every int) error {
	t := newTable(CSVHeader...)
	last := ser.Len() - 1
	for d := 0; d <= last; d++ {
		if every > 1 && d%every != 0 && d != last {
			continue
		}
		t.Row(
			dayLabel(s, d),
			count(ser.Infected[d]),
			count(ser.DailyInfected[d]),
			count(ser.Hospitalized[d]),
			count(ser.DailyHospitalized[d]),
			count(ser.ActiveCritical[d]),
			count(ser.Deaths[d]),
		)
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

// Comparison is one scenario's line in WriteComparison.
type Comparison struct {
	Name    string         `json:"name"`
	Summary series.Summary `json:"summary"`
}

// WriteComparison renders the headline statistics of several runs side by
// side.
func WriteComparison(w io.Writer, rows []Comparison) error {
	t := newTable("Scenario", "Cases", "Peak Daily", "Peak Day", "Hospitalised", "Peak ICU", "Deaths", "Peak Quarantined")
	for _, r := range rows {
		sum := r.Summary
		t.Row(
			r.Name,
			count(sum.Infected.Value),
			count(sum.DailyInfected.Value),
			strconv.Itoa(sum.DailyInfected.Day),
			count(sum.Hospitalized.Value),
			count(sum.ActiveCritical.Value),
			count(sum.Deaths.Value),
			count(sum.Quarantined.Value),
		)
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}
