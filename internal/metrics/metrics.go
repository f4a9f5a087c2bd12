// =============================================================================
// Retail Star Schema Pipeline - Batch Metrics
// =============================================================================
//
// The pipeline is a batch job, so metrics are not served over HTTP. Each run
// fills its own registry and, when configured, writes it as a textfile for
// the node exporter textfile collector.
//
// METRICS:
//   retail_pipeline_rows_read_total{stage}
//   retail_pipeline_rows_written_total{stage}
//   retail_pipeline_rows_dropped_total{stage,reason}
//   retail_pipeline_issues_total{stage,severity}
//   retail_pipeline_stage_duration_seconds{stage}
//   retail_pipeline_runs_total{result}
//   retail_pipeline_last_success_timestamp_seconds
//
// =============================================================================

package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "retail_pipeline"

// Recorder collects the metrics of one pipeline process.
type Recorder struct {
	registry *prometheus.Registry

	rowsRead      *prometheus.CounterVec
	rowsWritten   *prometheus.CounterVec
	rowsDropped   *prometheus.CounterVec
	issues        *prometheus.CounterVec
	stageDuration *prometheus.GaugeVec
	runs          *prometheus.CounterVec
	lastSuccess   prometheus.Gauge
}

// StageObservation is what a stage reports when it finishes.
type StageObservation struct {
	Stage    string
	Read     int
	Written  int
	Dropped  map[string]int
	Warnings int
	Errors   int
	Duration time.Duration
}

// New creates a recorder with its own registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		rowsRead: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_read_total",
			Help:      "Input rows read by a stage.",
		}, []string{"stage"}),
		rowsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_written_total",
			Help:      "Output rows written by a stage.",
		}, []string{"stage"}),
		rowsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_dropped_total",
			Help:      "Input rows dropped by a stage, by reason.",
		}, []string{"stage", "reason"}),
		issues: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "issues_total",
			Help:      "Validation issues raised by a stage, by severity.",
		}, []string{"stage", "severity"}),
		stageDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of the last execution of a stage.",
		}, []string{"stage"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Pipeline runs, by result.",
		}, []string{"result"}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run.",
		}),
	}

	r.registry.MustRegister(
		r.rowsRead,
		r.rowsWritten,
		r.rowsDropped,
		r.issues,
		r.stageDuration,
		r.runs,
		r.lastSuccess,
	)
	return r
}

// ObserveStage records a finished stage.
func (r *Recorder) ObserveStage(o StageObservation) {
	r.rowsRead.WithLabelValues(o.Stage).Add(float64(o.Read))
	r.rowsWritten.WithLabelValues(o.Stage).Add(float64(o.Written))
	for reason, n := range o.Dropped {
		if n > 0 {
			r.rowsDropped.WithLabelValues(o.Stage, reason).Add(float64(n))
		}
	}
	r.issues.WithLabelValues(o.Stage, "warning").Add(float64(o.Warnings))
	r.issues.WithLabelValues(o.Stage, "error").Add(float64(o.Errors))
	r.stageDuration.WithLabelValues(o.Stage).Set(o.Duration.Seconds())
}

// ObserveRun records the outcome of a pipeline run.
func (r *Recorder) ObserveRun(err error, finished time.Time) {
	if err != nil {
		r.runs.WithLabelValues("failure").Inc()
		return
	}
	r.runs.WithLabelValues("success").Inc()
	r.lastSuccess.Set(float64(finished.Unix()))
}

// WriteTextfile writes the registry in the prometheus text format. The file
// is replaced atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
