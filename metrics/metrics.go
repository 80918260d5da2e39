package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	RoundsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "review_rounds_created_total",
			Help: "Total number of review rounds opened.",
		},
	)
	AssignmentsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "review_assignments_created_total",
			Help: "Total number of reviewer assignments created.",
		},
	)
	DecisionsRecorded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "editorial_decisions_total",
			Help: "Total number of editorial decisions recorded.",
		},
		[]string{"decision"},
	)
)

func init() {
	prometheus.MustRegister(RoundsCreated, AssignmentsCreated, DecisionsRecorded)
}
