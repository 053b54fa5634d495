package model

import (
	"embed"
	"fmt"
	"sort"
)

//go:embed presets/*.json
var presetFS embed.FS

// Preset is a bundled regional scenario.
type Preset struct {
	Name     string    `json:"name"`
	Title    string    `json:"title"`
	Scenario *Scenario `json:"scenario"`
}

var presetTitles = map[string]string{
	"hcmc":       "Ho Chi Minh City, Vietnam (Moderate Scenario - 5/2021)",
	"hcmc_worst": "Ho Chi Minh City, Vietnam (Worst Scenario - 5/2021)",
	"hcmc_best":  "Ho Chi Minh City, Vietnam (Best Scenario - 5/2021)",
	"hd":         "Hai Duong, Vietnam (1/2021-3/2021)",
	"dn":         "Da Nang, Vietnam (7/2020-9/2020)",
}

// PresetNames returns the bundled preset names in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(presetTitles))
	for n := range presetTitles {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// LoadPreset decodes the named preset. Each call returns a fresh Scenario.
func LoadPreset(name string) (*Preset, error) {
	title, ok := presetTitles[name]
	if !ok {
		return nil, fmt.Errorf("unknown preset %q (available: %v)", name, PresetNames())
	}
	b, err := presetFS.ReadFile("presets/" + name + ".json")
	if err != nil {
		return nil, fmt.Errorf("read preset %s: %w", name, err)
	}
	s, err := Decode(b, FormatJSON)
	if err != nil {
		return nil, fmt.Errorf("decode preset %s: %w", name, err)
	}
	return &Preset{Name: name, Title: title, Scenario: s}, nil
}

// Presets loads every bundled preset.
func Presets() ([]Preset, error) {
	var out []Preset
	for _, n := range PresetNames() {
		p, err := LoadPreset(n)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, nil
}
