package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the risk pipeline.
type Metrics struct {
	RowsIngested     prometheus.Counter
	RowsDropped      prometheus.Counter
	FacilitiesScored prometheus.Counter
	AnomaliesFlagged prometheus.Counter
	PipelineRunning  prometheus.Gauge
	LastRunUnix      prometheus.Gauge

	StageDuration *prometheus.HistogramVec // label: stage={clean,score,detect,export}
	StageFailures *prometheus.CounterVec   // label: stage
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		RowsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chemrisk",
			Name:      "rows_ingested_total",
			Help:      "Total release rows accepted by the cleaning stage.",
		}),
		RowsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chemrisk",
			Name:      "rows_dropped_total",
			Help:      "Total raw rows discarded for missing facility identifiers.",
		}),
		FacilitiesScored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chemrisk",
			Name:      "facilities_scored_total",
			Help:      "Total facilities assigned a risk score.",
		}),
		AnomaliesFlagged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chemrisk",
			Name:      "anomalies_flagged_total",
			Help:      "Total facilities flagged by the anomaly ensemble.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "chemrisk",
			Name:      "pipeline_running",
			Help:      "1 while a pipeline run is in progress, 0 otherwise.",
		}),
		LastRunUnix: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "chemrisk",
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time of the most recent completed pipeline run.",
		}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "chemrisk",
			Name:      "stage_duration_seconds",
			Help:      "Duration of each pipeline stage.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"stage"}),
		StageFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chemrisk",
			Name:      "stage_failures_total",
			Help:      "Pipeline stage failures by stage name.",
		}, []string{"stage"}),
	}

	prometheus.MustRegister(
		m.RowsIngested,
		m.RowsDropped,
		m.FacilitiesScored,
		m.AnomaliesFlagged,
		m.PipelineRunning,
		m.LastRunUnix,
		m.StageDuration,
		m.StageFailures,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, so repeated
// construction across tests cannot panic with duplicate registration.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		RowsIngested:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: "chemrisk", Name: "rows_ingested_total"}),
		RowsDropped:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: "chemrisk", Name: "rows_dropped_total"}),
		FacilitiesScored: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "chemrisk", Name: "facilities_scored_total"}),
		AnomaliesFlagged: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "chemrisk", Name: "anomalies_flagged_total"}),
		PipelineRunning:  prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "chemrisk", Name: "pipeline_running"}),
		LastRunUnix:      prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "chemrisk", Name: "last_run_timestamp_seconds"}),
		StageDuration:    prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "chemrisk", Name: "stage_duration_seconds"}, []string{"stage"}),
		StageFailures:    prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "chemrisk", Name: "stage_failures_total"}, []string{"stage"}),
	}
}
