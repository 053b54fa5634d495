package model

import "time"

// Run is one saved simulation: the scenario that produced it plus headline
// numbers. Saving the same ns/key again creates a new version.
type Run struct {
	ID             string     `json:"id"`
	NS             string     `json:"ns"`
	Key            string     `json:"key"`
	Scenario       *Scenario  `json:"scenario"`
	Version        int        `json:"version"`
	Supersedes     string     `json:"supersedes,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	DeletedAt      *time.Time `json:"deleted_at,omitempty"`
	Tags           []string   `json:"tags,omitempty"`
	Note           string     `json:"note,omitempty"`
	AccessCount    int        `json:"access_count"`
	LastAccessedAt *time.Time `json:"last_accessed_at,omitempty"`

	Horizon          int     `json:"horizon"`
	PeakInfected     float64 `json:"peak_infected"`
	PeakHospitalized float64 `json:"peak_hospitalized"`
	Deaths           float64 `json:"deaths"`
	RFinal           float64 `json:"r_final"`

	Days []DayStat `json:"days,omitempty"`
}

// DayStat is the derived case counts of one simulated day.
type DayStat struct {
	Day               int     `json:"day"`
	Infected          float64 `json:"infected"`
	DailyInfected     float64 `json:"daily_infected"`
	Hospitalized      float64 `json:"hospitalized"`
	DailyHospitalized float64 `json:"daily_hospitalized"`
	ActiveCritical    float64 `json:"active_critical"`
	Deaths            float64 `json:"deaths"`
	Quarantined       float64 `json:"quarantined"`
	R                 float64 `json:"r"`
}
