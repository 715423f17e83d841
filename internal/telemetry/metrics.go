// Package telemetry exports workbench activity as Prometheus metrics.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/YuminosukeSato/automl/workbench"
)

var (
	// stageActionsTotal counts stage actions by stage and outcome.
	stageActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "automl_stage_actions_total",
			Help: "Total number of workflow stage actions",
		},
		[]string{"stage", "outcome"},
	)

	// modelFitSeconds observes how long each model takes to fit.
	modelFitSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "automl_model_fit_seconds",
			Help:    "Model fit duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
		},
		[]string{"model", "problem_type"},
	)

	// uploadedRowsTotal counts data rows accepted by Upload.
	uploadedRowsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "automl_uploaded_rows_total",
			Help: "Total number of data rows uploaded",
		},
	)

	// activeSessions is the number of live sessions in the store.
	activeSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "automl_active_sessions",
			Help: "Number of live workbench sessions",
		},
	)
)

// Observer records workbench events. The zero value is ready to use.
type Observer struct{}

var _ workbench.Observer = Observer{}

func (Observer) StageCompleted(stage string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	stageActionsTotal.WithLabelValues(stage, outcome).Inc()
}

func (Observer) ModelFitted(name string, problem workbench.ProblemType, d time.Duration) {
	modelFitSeconds.WithLabelValues(name, string(problem)).Observe(d.Seconds())
}

func (Observer) RowsUploaded(n int) {
	uploadedRowsTotal.Add(float64(n))
}

// SetActiveSessions updates the live session gauge.
func SetActiveSessions(n int) {
	activeSessions.Set(float64(n))
}
