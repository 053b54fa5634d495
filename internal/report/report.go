// Package report renders simulation output for people and spreadsheets.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/template"

	"github.com/rcliao/seiqhcdro/internal/model"
	"github.com/rcliao/seiqhcdro/internal/series"
)

// CSVHeader is the column layout of WriteCSV.
var CSVHeader = []string{
	"Date", "Infected", "Daily Infected", "Hospitalised", "Daily Hospitalised", "Active ICU", "Deaths",
}

// WriteCSV writes one row per simulated day. Dates are calendar dates when
// the scenario has a start date and day numbers otherwise.
func WriteCSV(w io.Writer, s *model.Scenario, ser *series.Series) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for d := 0; d < ser.Len(); d++ {
		row := []string{
			dayLabel(s, d),
			count(ser.Infected[d]),
			count(ser.DailyInfected[d]),
			count(ser.Hospitalized[d]),
			count(ser.DailyHospitalized[d]),
			count(ser.ActiveCritical[d]),
			count(ser.Deaths[d]),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func dayLabel(s *model.Scenario, d int) string {
	if s.Start.IsZero() {
		return strconv.Itoa(d)
	}
	return s.Date(d).Format(model.DateLayout)
}

func count(v float64) string {
	return strconv.FormatFloat(v, 'f', 0, 64)
}

const summaryText = `Population: {{count .S.Population}} people
The outbreak is assumed to begin on {{date .S}}, with R0 = {{num .S.R0}}

The outbreak has {{len .S.Stages}} stages{{if .S.Stages}}, starting on days {{days .S.Stages}}:
_Reduction of R0 through each stage: {{rates .S.Stages}}
_Containing proportion through each stage: {{contained .S.Stages}}{{end}}

Infectious period: {{num .S.Durations.Infectious}} days
Incubated period: {{num .S.Durations.Incubation}} days
Hospitalised Duration: {{num .S.Durations.Hospital}} days
Critical Status Duration: {{num .S.Durations.Critical}} days
Intensive Care Duration: {{num .S.Durations.ICU}} days
Quarantine Duration: {{num .S.Durations.Quarantine}} days
Quarantine in Hospital Duration: {{num .S.Durations.QuarantineHospital}} days
Recovery time: {{num .S.Durations.Recovery}} days

Quarantined proportion: {{num .S.Proportions.Quarantine}}
Cross-contamination proportion: {{num .S.Proportions.CrossContamination}}
Quarantined & Hospitalised proportion: {{num .S.Proportions.QuarantineHospital}}
Media impact level: {{pct .S.Proportions.Media}}
Hospitalised rate: {{pct .S.Proportions.Hospitalized}}
Critical rate: {{pct .S.Proportions.Critical}}
Death rate: {{pct .S.Proportions.Fatality}}
{{with .Sum}}{{if .HospitalCapacity}}
Hospital capacity is {{count .HospitalCapacity}}, which is {{verdict .HospitalSufficient}} for the worst day of the outbreak, with {{count .Hospitalized.Value}} hospital patients.{{end}}{{if .QuarantineCapacity}}
Quarantine capacity is {{count .QuarantineCapacity}}, which is {{verdict .QuarantineSufficient}} for the worst day of the outbreak, with {{count .Quarantined.Value}} quarantined individuals.{{end}}

The final outcome of the outbreak is
_{{count .Infected.Value}} positive cases
_{{count .Quarantined.Value}} quarantined individuals (peak on day {{.Quarantined.Day}})
_{{count .Hospitalized.Value}} hospitalised patients
_{{count .Critical.Value}} in critical condition
_{{count .Deaths.Value}} deceased

Peak daily infections: {{count .DailyInfected.Value}} on day {{.DailyInfected.Day}}
Average daily infections: {{num .AvgDailyInfected}}
Average daily hospitalisations: {{num .AvgDailyHospitalized}}
Average daily deaths: {{num .AvgDailyDeaths}}
{{end}}`

var summaryTmpl = template.Must(template.New("summary").Funcs(template.FuncMap{
	"count": count,
	"num":   func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) },
	"pct":   func(v float64) string { return strconv.FormatFloat(v*100, 'g', 10, 64) + "%" },
	"date": func(s *model.Scenario) string {
		if s.Start.IsZero() {
			return "day 0"
		}
		return s.Start.Format(model.DateLayout)
	},
	"verdict": func(ok bool) string {
		if ok {
			return "sufficient"
		}
		return "not enough"
	},
	"days": func(st []model.Stage) string {
		return list(st, func(s model.Stage) string { return strconv.Itoa(s.StartDay) })
	},
	"rates": func(st []model.Stage) string {
		return list(st, func(s model.Stage) string { return strconv.FormatFloat(s.ReductionRate, 'f', -1, 64) })
	},
	"contained": func(st []model.Stage) string {
		return list(st, func(s model.Stage) string { return strconv.FormatFloat(s.Contained, 'f', -1, 64) })
	},
}).Parse(summaryText))

func list(st []model.Stage, f func(model.Stage) string) string {
	parts := make([]string, len(st))
	for i, s := range st {
		parts[i] = f(s)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// WriteSummary writes the human-readable echo of s followed by the peak and
// capacity statistics of one run.
func WriteSummary(w io.Writer, s *model.Scenario, sum series.Summary) error {
	if err := summaryTmpl.Execute(w, struct {
		S   *model.Scenario
		Sum series.Summary
	}{s, sum}); err != nil {
		return fmt.Errorf("render summary: %w", err)
	}
	return nil
}

// WriteScenario writes s in the scenario file layout so it can be loaded
// again.
func WriteScenario(w io.Writer, s *model.Scenario, format model.Format) error {
	return model.Encode(w, s, format)
}
