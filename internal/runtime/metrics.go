package runtime

import "github.com/prometheus/client_golang/prometheus"

var (
	turnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dungeond",
			Subsystem: "runtime",
			Name:      "turns_total",
			Help:      "Turns processed, by outcome",
		},
		[]string{"outcome"},
	)

	inputRejects = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dungeond",
			Subsystem: "runtime",
			Name:      "input_rejects_total",
			Help:      "External input submissions rejected, by reason",
		},
		[]string{"reason"},
	)

	proofDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "dungeond",
			Subsystem: "runtime",
			Name:      "proof_duration_seconds",
			Help:      "Time spent producing proof artifacts",
			Buckets:   prometheus.DefBuckets,
		},
	)

	busDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "dungeond",
			Subsystem: "bus",
			Name:      "dropped_events_total",
			Help:      "Events dropped on slow subscribers",
		},
	)
)

func init() {
	prometheus.MustRegister(turnsTotal, inputRejects, proofDuration, busDropped)
}
