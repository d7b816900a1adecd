package observability

import (
	"context"
	"testing"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alijeyrad/hairai_backend/config"
)

func TestSetupWithoutExporter(t *testing.T) {
	cfg := &config.Config{}
	cfg.Observability.ServiceName = "hairai-test"
	cfg.Observability.Tracing.Enabled = true
	cfg.Observability.Metrics.Enabled = true

	reg := promclient.NewRegistry()
	p, err := Setup(context.Background(), cfg, reg)
	require.NoError(t, err)
	require.NotNil(t, p.Tracer)
	require.NotNil(t, p.Meter)

	_, span := Tracer().Start(context.Background(), "probe")
	assert.True(t, span.SpanContext().IsValid())
	span.End()

	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestSetupDisabledHalves(t *testing.T) {
	p, err := Setup(context.Background(), &config.Config{}, promclient.NewRegistry())
	require.NoError(t, err)
	assert.Nil(t, p.Tracer)
	assert.Nil(t, p.Meter)
	assert.NoError(t, p.Shutdown(context.Background()))

	var nilProvider *Provider
	assert.NoError(t, nilProvider.Shutdown(context.Background()))
}
