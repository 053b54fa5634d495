package model

// Compartment indexes one population fraction of the SEIQHCDRO model.
type Compartment int

const (
	Susceptible Compartment = iota
	Exposed
	Infectious
	Quarantined
	Hospitalized
	Critical
	Dead
	Recovered
	OtherRecovered

	NumCompartments = 9
)

var compartmentNames = [NumCompartments]string{
	"susceptible", "exposed", "infectious", "quarantined", "hospitalized",
	"critical", "dead", "recovered", "other_recovered",
}

func (c Compartment) String() string {
	if c < 0 || int(c) >= NumCompartments {
		return "unknown"
	}
	return compartmentNames[c]
}

// Compartments lists every compartment in state-vector order.
func Compartments() []Compartment {
	out := make([]Compartment, NumCompartments)
	for i := range out {
		out[i] = Compartment(i)
	}
	return out
}

// State holds the population fractions of all compartments at one instant.
type State [NumCompartments]float64

// Sum returns the total population fraction, 1 under mass conservation.
func (s State) Sum() float64 {
	var total float64
	for _, v := range s {
		total += v
	}
	return total
}

// Trajectory is the compartment state sampled at increasing times.
type Trajectory struct {
	Times  []float64 `json:"t"`
	States []State   `json:"y"`
}

// Len returns the number of samples.
func (t *Trajectory) Len() int {
	return len(t.Times)
}

// Column returns the time series of one compartment.
func (t *Trajectory) Column(c Compartment) []float64 {
	out := make([]float64, len(t.States))
	for i, s := range t.States {
		out[i] = s[c]
	}
	return out
}

// Final returns the last sampled state.
func (t *Trajectory) Final() State {
	if len(t.States) == 0 {
		return State{}
	}
	return t.States[len(t.States)-1]
}
