package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	StepDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "marineprep",
		Subsystem: "prep",
		Name:      "step_duration_seconds",
		Help:      "Duration of each preparation step broken down by step and result.",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300, 900},
	}, []string{"step", "result"})

	Runs = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "marineprep",
		Subsystem: "prep",
		Name:      "runs_total",
		Help:      "Total number of cycle preparations broken down by result.",
	}, []string{"result"})

	StagedFiles = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "marineprep",
		Subsystem: "stage",
		Name:      "files_total",
		Help:      "Files copied or linked into the cycle directory broken down by kind.",
	}, []string{"kind"})

	RepairOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "marineprep",
		Subsystem: "repair",
		Name:      "ops_total",
		Help:      "Background attribute edits broken down by operation and status.",
	}, []string{"op", "status"})
)

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ObserveStep records how long a step took.
func ObserveStep(step string, elapsed time.Duration, err error) {
	StepDuration.With(prometheus.Labels{"step": step, "result": result(err)}).Observe(elapsed.Seconds())
}

// ObserveRun counts a finished preparation.
func ObserveRun(err error) {
	Runs.WithLabelValues(result(err)).Inc()
}
