package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	simulationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "seiqhcdro_simulations_total",
		Help: "Simulation requests by result (ok, invalid, failed)",
	}, []string{"result"})

	simulationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "seiqhcdro_simulation_duration_seconds",
		Help:    "Wall time of successful simulations",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	})

	solverSteps = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "seiqhcdro_solver_steps",
		Help:    "Accepted solver steps per simulation",
		Buckets: prometheus.ExponentialBuckets(10, 2, 12),
	})
)
