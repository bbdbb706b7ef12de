package instrumentation

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProvider_Disabled(t *testing.T) {
	p, err := NewProvider(context.Background(), Config{Enabled: false})
	require.NoError(t, err)

	assert.False(t, p.Enabled())
	assert.False(t, p.ExportsPrometheus())
	require.NotNil(t, p.Metrics())
	assert.NotPanics(t, func() {
		p.Metrics().RecordBookingFailure(context.Background(), "schedule", ReasonGateway)
	})
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestNewProvider_Prometheus(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	p, err := NewProvider(ctx, Config{
		ServiceName:       "test-service",
		ServiceVersion:    "1.0.0",
		Enabled:           true,
		MetricsExporter:   ExporterPrometheus,
		TracingExporter:   ExporterNone,
		TraceSamplingRate: 0.1,
	})
	require.NoError(t, err)
	defer func() { _ = p.Shutdown(ctx) }()

	assert.True(t, p.Enabled())
	assert.True(t, p.ExportsPrometheus())
	assert.NotNil(t, p.Tracer("test"))

	p.Metrics().RecordCalendarOperation(ctx, OperationInsert, StatusSuccess, 10*time.Millisecond)
}

func TestNewProvider_InvalidConfig(t *testing.T) {
	_, err := NewProvider(context.Background(), Config{
		Enabled:         true,
		MetricsExporter: ExporterOTLP,
	})
	assert.Error(t, err)
}

func TestNewResource(t *testing.T) {
	tests := []struct {
		name   string
		config Config
		want   map[string]string
	}{
		{
			name: "dry run agent",
			config: Config{
				ServiceName:       "immobiliare-agent",
				ServiceVersion:    "1.2.3",
				ServiceInstanceID: "agent-1",
				Locale:            "it",
				DryRun:            true,
			},
			want: map[string]string{
				"service.name":        "immobiliare-agent",
				"service.version":     "1.2.3",
				"service.instance.id": "agent-1",
				AttrAgentLocale:       "it",
				AttrCalendarDryRun:    "true",
			},
		},
		{
			name: "locale unset",
			config: Config{
				ServiceName:       "immobiliare-agent",
				ServiceVersion:    "unknown",
				ServiceInstanceID: "agent-2",
			},
			want: map[string]string{
				"service.name":        "immobiliare-agent",
				"service.version":     "unknown",
				"service.instance.id": "agent-2",
				AttrCalendarDryRun:    "false",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := newResource(context.Background(), tt.config)
			require.NoError(t, err)

			got := map[string]string{}
			for _, kv := range res.Attributes() {
				got[string(kv.Key)] = kv.Value.Emit()
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("resource attributes mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
