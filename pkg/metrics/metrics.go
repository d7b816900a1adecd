// Package metrics holds the Prometheus collectors of the analysis pipeline.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var latencyBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5}

type Metrics struct {
	JobsUploaded     *prometheus.CounterVec
	Dispatches       *prometheus.CounterVec
	DispatchDuration prometheus.Histogram
	ReconnectAttempt prometheus.Counter
	ReportsGenerated prometheus.Counter
	ReportDuration   prometheus.Histogram
	ReportSkips      *prometheus.CounterVec
	TenantDenials    *prometheus.CounterVec
	JobEvents        *prometheus.CounterVec
}

// New registers every collector on reg. Tests pass a fresh registry.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		JobsUploaded: f.NewCounterVec(prometheus.CounterOpts{
			Name: "hairai_jobs_uploaded_total",
			Help: "Upload attempts by outcome (queued, degraded, rejected, failed)",
		}, []string{"outcome"}),
		Dispatches: f.NewCounterVec(prometheus.CounterOpts{
			Name: "hairai_queue_dispatch_total",
			Help: "Broker publish attempts by outcome",
		}, []string{"outcome"}),
		DispatchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "hairai_queue_dispatch_duration_seconds",
			Help:    "Time spent inside Publish, including waiting for the publish lock",
			Buckets: latencyBuckets,
		}),
		ReconnectAttempt: f.NewCounter(prometheus.CounterOpts{
			Name: "hairai_queue_reconnect_attempts_total",
			Help: "Broker reconnection attempts",
		}),
		ReportsGenerated: f.NewCounter(prometheus.CounterOpts{
			Name: "hairai_reports_generated_total",
			Help: "Final reports written",
		}),
		ReportDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "hairai_report_duration_seconds",
			Help:    "Duration of GenerateFinalReport",
			Buckets: latencyBuckets,
		}),
		ReportSkips: f.NewCounterVec(prometheus.CounterOpts{
			Name: "hairai_report_skipped_jobs_total",
			Help: "Completed jobs left out of report metrics, by reason",
		}, []string{"reason"}),
		TenantDenials: f.NewCounterVec(prometheus.CounterOpts{
			Name: "hairai_tenant_denials_total",
			Help: "Tenant gate denials by resource kind",
		}, []string{"resource"}),
		JobEvents: f.NewCounterVec(prometheus.CounterOpts{
			Name: "hairai_job_created_events_total",
			Help: "job.created events seen on the event bus, by outcome (recorded, malformed)",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) IncUpload(outcome string) {
	if m == nil {
		return
	}
	m.JobsUploaded.WithLabelValues(outcome).Inc()
}

// ObserveDispatch records one Publish call started at start.
func (m *Metrics) ObserveDispatch(start time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.Dispatches.WithLabelValues(outcome).Inc()
	m.DispatchDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncReconnect() {
	if m == nil {
		return
	}
	m.ReconnectAttempt.Inc()
}

func (m *Metrics) ObserveReport(start time.Time) {
	if m == nil {
		return
	}
	m.ReportsGenerated.Inc()
	m.ReportDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncReportSkip(reason string) {
	if m == nil {
		return
	}
	m.ReportSkips.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncTenantDenial(resource string) {
	if m == nil {
		return
	}
	m.TenantDenials.WithLabelValues(resource).Inc()
}

func (m *Metrics) IncJobEvent(outcome string) {
	if m == nil {
		return
	}
	m.JobEvents.WithLabelValues(outcome).Inc()
}
