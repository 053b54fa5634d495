package series

// Peak is the largest value of a series and the first day it occurs.
type Peak struct {
	Value float64 `json:"value"`
	Day   int     `json:"day"`
}

// Summary condenses a Series into peak and average statistics and checks
// them against care capacities.
type Summary struct {
	Infected          Peak `json:"infected"`
	DailyInfected     Peak `json:"daily_infected"`
	Hospitalized      Peak `json:"hospitalized"`
	DailyHospitalized Peak `json:"daily_hospitalized"`
	Critical          Peak `json:"critical"`
	ActiveCritical    Peak `json:"active_critical"`
	Deaths            Peak `json:"deaths"`
	Quarantined       Peak `json:"quarantined"`

	AvgDailyInfected     float64 `json:"avg_daily_infected"`
	AvgDailyHospitalized float64 `json:"avg_daily_hospitalized"`
	AvgDailyDeaths       float64 `json:"avg_daily_deaths"`

	HospitalCapacity     float64 `json:"hospital_capacity,omitempty"`
	HospitalSufficient   bool    `json:"hospital_sufficient"`
	QuarantineCapacity   float64 `json:"quarantine_capacity,omitempty"`
	QuarantineSufficient bool    `json:"quarantine_sufficient"`
}

// Stats summarises s. Hospital capacity is compared with the hospitalised
// peak and quarantine capacity with the quarantine peak; a capacity is
// sufficient when it is not below the peak.
func (s *Series) Stats(hcap, hqar float64) Summary {
	sum := Summary{
		Infected:          peak(s.Infected),
		DailyInfected:     peak(s.DailyInfected),
		Hospitalized:      peak(s.Hospitalized),
		DailyHospitalized: peak(s.DailyHospitalized),
		Critical:          peak(s.Critical),
		ActiveCritical:    peak(s.ActiveCritical),
		Deaths:            peak(s.Deaths),
		Quarantined:       peak(s.Quarantined),

		AvgDailyInfected:     dailyMean(s.DailyInfected),
		AvgDailyHospitalized: dailyMean(s.DailyHospitalized),
		AvgDailyDeaths:       dailyMean(s.DailyDeaths),

		HospitalCapacity:   hcap,
		QuarantineCapacity: hqar,
	}
	sum.HospitalSufficient = hcap >= sum.Hospitalized.Value
	sum.QuarantineSufficient = hqar >= sum.Quarantined.Value
	return sum
}

func peak(xs []float64) Peak {
	var p Peak
	for i, v := range xs {
		if i == 0 || v > p.Value {
			p = Peak{Value: v, Day: i}
		}
	}
	return p
}

// dailyMean averages a daily series over days 1..n; day 0 has no increment.
func dailyMean(daily []float64) float64 {
	if len(daily) < 2 {
		return 0
	}
	var total float64
	for _, v := range daily[1:] {
		total += v
	}
	return total / float64(len(daily)-1)
}
