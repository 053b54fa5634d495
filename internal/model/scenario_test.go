package model

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

const validJSON = `{
	"N": 9000000, "n_r0": 1, "r0": 4.1,
	"delta_r0": [1.3], "pcont": [0.1], "day": [8],
	"date": "2021-05-01", "ndate": 70,
	"tinc": 4.5, "tinf": 3, "ticu": 11, "thsp": 14, "tcrt": 7, "trec": 14, "tqar": 14, "tqah": 2,
	"pquar": 0.8, "pcross": 0.15, "pqhsp": 0.1, "pj": 0.12, "ph": 0.8, "pc": 0.04, "pf": 0.22
}`

func fieldNames(err error) []string {
	var ve *ValidationError
	if !errors.As(err, &ve) {
		return nil
	}
	var names []string
	for _, f := range ve.Fields {
		names = append(names, f.Field)
	}
	return names
}

func hasField(err error, name string) bool {
	for _, n := range fieldNames(err) {
		if n == name {
			return true
		}
	}
	return false
}

func TestDecode_Valid(t *testing.T) {
	s, err := Decode([]byte(validJSON), FormatJSON)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if s.Population != 9000000 || s.R0 != 4.1 || s.Horizon != 70 {
		t.Errorf("unexpected scalars: %+v", s)
	}
	if len(s.Stages) != 1 {
		t.Fatalf("expected 1 stage, got %d", len(s.Stages))
	}
	want := Stage{StartDay: 8, ReductionRate: 1.3, Contained: 0.1}
	if s.Stages[0] != want {
		t.Errorf("expected %+v, got %+v", want, s.Stages[0])
	}
	if got := s.Start.Format(DateLayout); got != "2021-05-01" {
		t.Errorf("expected start 2021-05-01, got %s", got)
	}
	if s.Proportions.Media != 0.12 {
		t.Errorf("media proportion not carried: %v", s.Proportions.Media)
	}
	if got := s.Date(30).Format(DateLayout); got != "2021-05-31" {
		t.Errorf("expected day 30 = 2021-05-31, got %s", got)
	}
}

func TestDecode_MissingField(t *testing.T) {
	in := strings.Replace(validJSON, `"tinf": 3,`, "", 1)
	_, err := Decode([]byte(in), FormatJSON)
	if err == nil {
		t.Fatal("expected error for missing tinf")
	}
	if !errors.Is(err, ErrInvalidScenario) {
		t.Errorf("expected ErrInvalidScenario, got %v", err)
	}
	if !hasField(err, "tinf") {
		t.Errorf("expected tinf in %v", fieldNames(err))
	}
}

func TestDecode_StageLengthMismatch(t *testing.T) {
	in := strings.Replace(validJSON, `"pcont": [0.1]`, `"pcont": [0.1, 0.2]`, 1)
	_, err := Decode([]byte(in), FormatJSON)
	if !hasField(err, "pcont") {
		t.Fatalf("expected pcont length error, got %v", err)
	}

	in = strings.Replace(validJSON, `"n_r0": 1`, `"n_r0": 2`, 1)
	_, err = Decode([]byte(in), FormatJSON)
	if !hasField(err, "day") {
		t.Fatalf("expected n_r0 mismatch reported on day, got %v", err)
	}
}

func TestDecode_Ranges(t *testing.T) {
	cases := map[string]struct {
		from, to, field string
	}{
		"proportion above one": {`"pf": 0.22`, `"pf": 1.5`, "pf"},
		"zero duration":        {`"tqah": 2`, `"tqah": 0`, "tqah"},
		"negative r0":          {`"r0": 4.1`, `"r0": -1`, "r0"},
		"bad date":             {`"2021-05-01"`, `"05/01/2021"`, "date"},
		"zero horizon":         {`"ndate": 70`, `"ndate": 0`, "ndate"},
		"contained above one":  {`"pcont": [0.1]`, `"pcont": [1.1]`, "pcont[0]"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			in := strings.Replace(validJSON, tc.from, tc.to, 1)
			_, err := Decode([]byte(in), FormatJSON)
			if !hasField(err, tc.field) {
				t.Errorf("expected %s error, got %v", tc.field, err)
			}
		})
	}
}

func TestDecode_NonIncreasingDays(t *testing.T) {
	s, _ := Decode([]byte(validJSON), FormatJSON)
	s.Stages = append(s.Stages, Stage{StartDay: 8, ReductionRate: 1, Contained: 0.2})
	err := s.Validate()
	if !hasField(err, "day") {
		t.Fatalf("expected day ordering error, got %v", err)
	}
}

func TestDecode_HorizonDefault(t *testing.T) {
	in := strings.Replace(validJSON, `"ndate": 70,`, "", 1)
	s, err := Decode([]byte(in), FormatJSON)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if s.Horizon != DefaultHorizon {
		t.Errorf("expected default horizon %d, got %d", DefaultHorizon, s.Horizon)
	}
}

func TestEncode_JSONThenYAML(t *testing.T) {
	s, _ := Decode([]byte(validJSON), FormatJSON)

	var buf bytes.Buffer
	if err := Encode(&buf, s, FormatYAML); err != nil {
		t.Fatalf("encode yaml: %v", err)
	}
	if !strings.Contains(buf.String(), "delta_r0:") {
		t.Errorf("yaml output missing delta_r0:\n%s", buf.String())
	}
	back, err := Decode(buf.Bytes(), FormatYAML)
	if err != nil {
		t.Fatalf("decode yaml: %v", err)
	}
	if back.Stages[0] != s.Stages[0] || back.Durations != s.Durations || back.Proportions != s.Proportions {
		t.Errorf("yaml round trip changed scenario: %+v", back)
	}
}

func TestPresets(t *testing.T) {
	presets, err := Presets()
	if err != nil {
		t.Fatalf("load presets: %v", err)
	}
	if len(presets) != 5 {
		t.Fatalf("expected 5 presets, got %d", len(presets))
	}

	hcmc, err := LoadPreset("hcmc")
	if err != nil {
		t.Fatalf("load hcmc: %v", err)
	}
	if len(hcmc.Scenario.Stages) != 5 {
		t.Errorf("expected 5 stages, got %d", len(hcmc.Scenario.Stages))
	}
	if hcmc.Scenario.Horizon != DefaultHorizon {
		t.Errorf("hcmc has no ndate, expected default horizon, got %d", hcmc.Scenario.Horizon)
	}

	dn, _ := LoadPreset("dn")
	if dn.Scenario.Horizon != 100 {
		t.Errorf("expected dn horizon 100, got %d", dn.Scenario.Horizon)
	}

	if _, err := LoadPreset("nowhere"); err == nil {
		t.Error("expected error for unknown preset")
	}
}

func TestStateSum(t *testing.T) {
	var s State
	s[Susceptible] = 0.5
	s[Recovered] = 0.25
	s[OtherRecovered] = 0.25
	if s.Sum() != 1 {
		t.Errorf("expected 1, got %v", s.Sum())
	}
	if Hospitalized.String() != "hospitalized" {
		t.Errorf("unexpected name %q", Hospitalized.String())
	}
}
