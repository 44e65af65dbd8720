package telemetry

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace/noop"

	"perfkit/internal/config"
)

func TestProtocolFor(t *testing.T) {
	cases := []struct {
		endpoint, protocol, host string
	}{
		{"http://otel-collector:4317", "grpc", "otel-collector:4317"},
		{"otel-collector:4317", "grpc", "otel-collector:4317"},
		{"http://otel-collector:4318", "http", "otel-collector:4318"},
		{"collector:4318", "http", "collector:4318"},
		{"https://traces.example.com", "http", "traces.example.com"},
		{"collector:9000", "grpc", "collector:9000"},
	}
	for _, tc := range cases {
		protocol, host := protocolFor(tc.endpoint)
		assert.Equal(t, tc.protocol, protocol, tc.endpoint)
		assert.Equal(t, tc.host, host, tc.endpoint)
	}
}

func TestSetup_Stdout(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := setup(context.Background(), config.TelemetryConfig{
		Exporter:    ExporterStdout,
		ServiceName: "load-generator",
	}, &buf)
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(context.Background(), "user_session")
	span.End()
	require.NoError(t, shutdown(context.Background()))

	assert.Contains(t, buf.String(), `"Name": "user_session"`)
	assert.Contains(t, buf.String(), "load-generator")

	assert.Contains(t, otel.GetTextMapPropagator().Fields(), "traceparent")
}

func TestSetup_None(t *testing.T) {
	shutdown, err := setup(context.Background(), config.TelemetryConfig{Exporter: "none"}, nil)
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
	assert.IsType(t, noop.TracerProvider{}, otel.GetTracerProvider())
}

func TestSetup_UnknownExporter(t *testing.T) {
	_, err := setup(context.Background(), config.TelemetryConfig{Exporter: "zipkin"}, nil)
	assert.ErrorContains(t, err, "zipkin")
}

func TestSetup_OTLPDoesNotDial(t *testing.T) {
	shutdown, err := setup(context.Background(), config.TelemetryConfig{
		Exporter: ExporterOTLP,
		Endpoint: "http://127.0.0.1:4317",
		Insecure: true,
	}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = shutdown(ctx)
}
