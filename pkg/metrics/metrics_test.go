package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncUpload("queued")
		m.ObserveDispatch(time.Now(), nil)
		m.IncReconnect()
		m.ObserveReport(time.Now())
		m.IncReportSkip("oversized")
		m.IncTenantDenial("patient")
		m.IncJobEvent("recorded")
	})
}

func TestCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.IncUpload("degraded")
	m.IncUpload("degraded")
	m.ObserveDispatch(time.Now(), errors.New("closed"))
	m.IncReportSkip("malformed")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.JobsUploaded.WithLabelValues("degraded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Dispatches.WithLabelValues("error")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Dispatches.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReportSkips.WithLabelValues("malformed")))
}
