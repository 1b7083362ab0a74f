package tracing

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestSetup_DisabledInstallsNoop(t *testing.T) {
	shutdown, err := Setup(context.Background(), Config{Enabled: false})
	require.NoError(t, err)
	defer func() { _ = shutdown(context.Background()) }()

	_, ok := otel.GetTracerProvider().(noop.TracerProvider)
	assert.True(t, ok)
}

func TestSetup_Exporters(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "noop", cfg: Config{Enabled: true, Exporter: ExporterNoop}},
		{name: "empty", cfg: Config{Enabled: true}},
		{name: "stderr", cfg: Config{Enabled: true, Exporter: ExporterStderr}},
		{name: "file", cfg: Config{Enabled: true, Exporter: ExporterFile, Path: filepath.Join(t.TempDir(), "trace.json")}},
		{name: "file without path", cfg: Config{Enabled: true, Exporter: ExporterFile}, wantErr: true},
		{name: "unsupported", cfg: Config{Enabled: true, Exporter: "jaeger"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shutdown, err := Setup(context.Background(), tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NoError(t, shutdown(context.Background()))
		})
	}
}

func TestStartSpan_RecordsStatusAndAttributes(t *testing.T) {
	// Given: an in-memory exporter behind a synchronous provider
	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	defer otel.SetTracerProvider(prev)

	// When: two spans end with different statuses
	_, ok := StartSpan(context.Background(), "search.rank", attribute.Int("results", 3))
	SetOK(ok)
	ok.End()

	_, bad := StartSpan(context.Background(), "search.fetch")
	RecordError(bad, errors.New("boom"))
	bad.End()

	// Then: both are exported with the right status
	spans := exp.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, "search.rank", spans[0].Name)
	assert.Equal(t, codes.Ok, spans[0].Status.Code)
	assert.Contains(t, spans[0].Attributes, attribute.Int("results", 3))
	assert.Equal(t, codes.Error, spans[1].Status.Code)
	assert.Equal(t, "boom", spans[1].Status.Description)
}
