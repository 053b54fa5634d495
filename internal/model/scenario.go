// Package model defines the outbreak scenario, compartment state and trajectory types.
package model

import (
	"encoding/json"
	"time"

	"gopkg.in/yaml.v3"
)

// DateLayout is the calendar format used for outbreak start dates.
const DateLayout = "2006-01-02"

// DefaultHorizon is the number of simulated days when a scenario omits ndate.
const DefaultHorizon = 150

// MaxStages bounds the number of policy regimes in a scenario.
const MaxStages = 30

// Stage is one policy regime, effective from StartDay onward.
type Stage struct {
	StartDay      int
	ReductionRate float64
	Contained     float64
}

// Durations holds the time constants of the compartment model, in days.
type Durations struct {
	Incubation         float64
	Infectious         float64
	ICU                float64
	Hospital           float64
	Critical           float64
	Recovery           float64
	Quarantine         float64
	QuarantineHospital float64
}

// Proportions holds the branching fractions of the compartment model.
//
// Media is accepted and echoed but does not enter the dynamics.
type Proportions struct {
	Hospitalized       float64
	Critical           float64
	Fatality           float64
	Media              float64
	Quarantine         float64
	QuarantineHospital float64
	CrossContamination float64
}

// Scenario is a fully formed, validated simulation request.
//
// Its wire form (JSON and YAML) is the flat scenario file layout with
// parallel stage arrays; see File.
type Scenario struct {
	Population         float64
	R0                 float64
	Stages             []Stage
	Start              time.Time
	Horizon            int
	HospitalCapacity   float64
	QuarantineCapacity float64
	Durations          Durations
	Proportions        Proportions
}

// File is the on-disk scenario layout. Pointer fields distinguish a missing
// key from a zero value.
type File struct {
	N       *float64  `json:"N" yaml:"N" validate:"required,gte=1"`
	NR0     *int      `json:"n_r0" yaml:"n_r0" validate:"required,gte=0,lte=30"`
	R0      *float64  `json:"r0" yaml:"r0" validate:"required,gte=0"`
	DeltaR0 []float64 `json:"delta_r0" yaml:"delta_r0" validate:"required"`
	PCont   []float64 `json:"pcont" yaml:"pcont" validate:"required,dive,gte=0,lte=1"`
	Day     []int     `json:"day" yaml:"day" validate:"required,dive,gt=0"`
	Date    *string   `json:"date" yaml:"date" validate:"required,datetime=2006-01-02"`
	NDate   *int      `json:"ndate,omitempty" yaml:"ndate,omitempty" validate:"omitempty,gte=1,lte=3650"`
	HCap    *float64  `json:"hcap,omitempty" yaml:"hcap,omitempty" validate:"omitempty,gte=0"`
	HQar    *float64  `json:"hqar,omitempty" yaml:"hqar,omitempty" validate:"omitempty,gte=0"`

	TInc *float64 `json:"tinc" yaml:"tinc" validate:"required,gt=0"`
	TInf *float64 `json:"tinf" yaml:"tinf" validate:"required,gt=0"`
	TICU *float64 `json:"ticu" yaml:"ticu" validate:"required,gt=0"`
	THsp *float64 `json:"thsp" yaml:"thsp" validate:"required,gt=0"`
	TCrt *float64 `json:"tcrt" yaml:"tcrt" validate:"required,gt=0"`
	TRec *float64 `json:"trec" yaml:"trec" validate:"required,gt=0"`
	TQar *float64 `json:"tqar" yaml:"tqar" validate:"required,gt=0"`
	TQah *float64 `json:"tqah" yaml:"tqah" validate:"required,gt=0"`

	PQuar  *float64 `json:"pquar" yaml:"pquar" validate:"required,gte=0,lte=1"`
	PCross *float64 `json:"pcross" yaml:"pcross" validate:"required,gte=0,lte=1"`
	PQHsp  *float64 `json:"pqhsp" yaml:"pqhsp" validate:"required,gte=0,lte=1"`
	PJ     *float64 `json:"pj" yaml:"pj" validate:"required,gte=0,lte=1"`
	PH     *float64 `json:"ph" yaml:"ph" validate:"required,gte=0,lte=1"`
	PC     *float64 `json:"pc" yaml:"pc" validate:"required,gte=0,lte=1"`
	PF     *float64 `json:"pf" yaml:"pf" validate:"required,gte=0,lte=1"`
}

// ToFile converts s to its wire layout.
func (s *Scenario) ToFile() File {
	n := len(s.Stages)
	f := File{
		N:       ptr(s.Population),
		NR0:     ptr(n),
		R0:      ptr(s.R0),
		DeltaR0: make([]float64, n),
		PCont:   make([]float64, n),
		Day:     make([]int, n),
		NDate:   ptr(s.Horizon),
		TInc:    ptr(s.Durations.Incubation),
		TInf:    ptr(s.Durations.Infectious),
		TICU:    ptr(s.Durations.ICU),
		THsp:    ptr(s.Durations.Hospital),
		TCrt:    ptr(s.Durations.Critical),
		TRec:    ptr(s.Durations.Recovery),
		TQar:    ptr(s.Durations.Quarantine),
		TQah:    ptr(s.Durations.QuarantineHospital),
		PQuar:   ptr(s.Proportions.Quarantine),
		PCross:  ptr(s.Proportions.CrossContamination),
		PQHsp:   ptr(s.Proportions.QuarantineHospital),
		PJ:      ptr(s.Proportions.Media),
		PH:      ptr(s.Proportions.Hospitalized),
		PC:      ptr(s.Proportions.Critical),
		PF:      ptr(s.Proportions.Fatality),
	}
	for i, st := range s.Stages {
		f.Day[i] = st.StartDay
		f.DeltaR0[i] = st.ReductionRate
		f.PCont[i] = st.Contained
	}
	if !s.Start.IsZero() {
		f.Date = ptr(s.Start.Format(DateLayout))
	}
	if s.HospitalCapacity > 0 {
		f.HCap = ptr(s.HospitalCapacity)
	}
	if s.QuarantineCapacity > 0 {
		f.HQar = ptr(s.QuarantineCapacity)
	}
	return f
}

// Scenario converts a validated file into a Scenario.
func (f File) Scenario() (*Scenario, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	start, _ := time.Parse(DateLayout, *f.Date)
	s := &Scenario{
		Population: *f.N,
		R0:         *f.R0,
		Start:      start,
		Horizon:    DefaultHorizon,
		Durations: Durations{
			Incubation:         *f.TInc,
			Infectious:         *f.TInf,
			ICU:                *f.TICU,
			Hospital:           *f.THsp,
			Critical:           *f.TCrt,
			Recovery:           *f.TRec,
			Quarantine:         *f.TQar,
			QuarantineHospital: *f.TQah,
		},
		Proportions: Proportions{
			Hospitalized:       *f.PH,
			Critical:           *f.PC,
			Fatality:           *f.PF,
			Media:              *f.PJ,
			Quarantine:         *f.PQuar,
			QuarantineHospital: *f.PQHsp,
			CrossContamination: *f.PCross,
		},
	}
	if f.NDate != nil {
		s.Horizon = *f.NDate
	}
	if f.HCap != nil {
		s.HospitalCapacity = *f.HCap
	}
	if f.HQar != nil {
		s.QuarantineCapacity = *f.HQar
	}
	s.Stages = make([]Stage, len(f.Day))
	for i := range f.Day {
		s.Stages[i] = Stage{StartDay: f.Day[i], ReductionRate: f.DeltaR0[i], Contained: f.PCont[i]}
	}
	return s, nil
}

// Validate checks every invariant of s. A zero Start is allowed and means
// the calendar date is not known.
func (s *Scenario) Validate() error {
	f := s.ToFile()
	if f.Date == nil {
		f.Date = ptr(time.Now().Format(DateLayout))
	}
	return f.Validate()
}

// MarshalJSON encodes s in the scenario file layout.
func (s Scenario) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.ToFile())
}

// UnmarshalJSON decodes and validates a scenario file.
func (s *Scenario) UnmarshalJSON(b []byte) error {
	var f File
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	out, err := f.Scenario()
	if err != nil {
		return err
	}
	*s = *out
	return nil
}

// MarshalYAML encodes s in the scenario file layout.
func (s Scenario) MarshalYAML() (interface{}, error) {
	return s.ToFile(), nil
}

// UnmarshalYAML decodes and validates a scenario file.
func (s *Scenario) UnmarshalYAML(value *yaml.Node) error {
	var f File
	if err := value.Decode(&f); err != nil {
		return err
	}
	out, err := f.Scenario()
	if err != nil {
		return err
	}
	*s = *out
	return nil
}

// Clone returns a deep copy of s.
func (s *Scenario) Clone() *Scenario {
	c := *s
	c.Stages = append([]Stage(nil), s.Stages...)
	return &c
}

// Date returns the calendar date of the given simulated day.
func (s *Scenario) Date(day int) time.Time {
	return s.Start.AddDate(0, 0, day)
}

func ptr[T any](v T) *T {
	return &v
}
