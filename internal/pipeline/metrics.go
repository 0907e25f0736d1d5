package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Row dispositions for the stage counters.
const (
	dispositionIn       = "in"
	dispositionOut      = "out"
	dispositionFiltered = "filtered"
)

var (
	stageRows = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mosquemeter_stage_rows_total",
			Help: "Rows entering, leaving, and filtered out of each pipeline stage",
		},
		[]string{"stage", "disposition", "reason"},
	)

	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mosquemeter_runs_total",
			Help: "Pipeline runs by final status",
		},
		[]string{"status"},
	)

	lastRunTimestamp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "mosquemeter_last_run_timestamp_seconds",
			Help: "Unix time of the last completed pipeline run",
		},
	)
)

func init() {
	prometheus.MustRegister(stageRows, runsTotal, lastRunTimestamp)
}

func countIn(stage string, n int64) {
	stageRows.WithLabelValues(stage, dispositionIn, "").Add(float64(n))
}

func countOut(stage string, n int64) {
	stageRows.WithLabelValues(stage, dispositionOut, "").Add(float64(n))
}

func countFiltered(stage, reason string, n int64) {
	stageRows.WithLabelValues(stage, dispositionFiltered, reason).Add(float64(n))
}
