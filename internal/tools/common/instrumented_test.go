package common

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/Darkosxl/immobiliare-agent/internal/booking"
	"github.com/Darkosxl/immobiliare-agent/internal/calendar"
	"github.com/Darkosxl/immobiliare-agent/internal/callsession"
	"github.com/Darkosxl/immobiliare-agent/internal/instrumentation"
	"github.com/Darkosxl/immobiliare-agent/internal/locale"
	"github.com/Darkosxl/immobiliare-agent/internal/server"
)

func newServerContext(t *testing.T) *server.ServerContext {
	t.Helper()
	policy, err := locale.Lookup("it")
	require.NoError(t, err)
	coord, err := booking.NewCoordinator(calendar.NewMemoryGateway(), "test@example.com")
	require.NoError(t, err)

	sc, err := server.NewServerContext(context.Background(),
		booking.NewDesk(coord, nil, nil), callsession.NewRegistry(nil), policy)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc
}

func requestWith(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func TestSessionFromArgs(t *testing.T) {
	assert.Equal(t, "call-_+39333_x", SessionFromArgs(map[string]interface{}{"session": " call-_+39333_x "}))
	assert.Empty(t, SessionFromArgs(map[string]interface{}{}))
	assert.Empty(t, SessionFromArgs(map[string]interface{}{"session": 12}))
}

func TestCallerFromArgs(t *testing.T) {
	sc := newServerContext(t)

	caller := CallerFromArgs(sc, map[string]interface{}{"session": "call-_+393331234567_x"})
	assert.Equal(t, "+393331234567", caller.OriginatorRef)
	assert.Equal(t, "it", caller.Policy.Name)

	assert.Equal(t, booking.UnknownOriginator, CallerFromArgs(sc, nil).OriginatorRef)
}

func TestInstrumentedToolHandler_WithoutInstrumentation(t *testing.T) {
	sc := newServerContext(t)

	called := false
	wrapped := InstrumentedToolHandler("test_tool", sc, func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		called = true
		return mcp.NewToolResultText("success"), nil
	})

	result, err := wrapped(context.Background(), mcp.CallToolRequest{})
	require.NoError(t, err)
	assert.True(t, called)
	assert.NotNil(t, result)
}

func TestInstrumentedToolHandler_PropagatesErrors(t *testing.T) {
	sc := newServerContext(t)
	metrics, err := instrumentation.NewMetrics(noop.NewMeterProvider().Meter("test"), false)
	require.NoError(t, err)
	sc.SetMetrics(metrics)

	expectedErr := errors.New("test error")
	wrapped := InstrumentedToolHandler("test_tool", sc, func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return nil, expectedErr
	})

	_, err = wrapped(context.Background(), mcp.CallToolRequest{})
	assert.ErrorIs(t, err, expectedErr)

	wrapped = InstrumentedToolHandler("test_tool", sc, func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultError("error message"), nil
	})
	result, err := wrapped(context.Background(), mcp.CallToolRequest{})
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestInstrumentedToolHandler_RecordsMetricsAndAudit(t *testing.T) {
	sc := newServerContext(t)

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	metrics, err := instrumentation.NewMetrics(mp.Meter("test"), false)
	require.NoError(t, err)
	sc.SetMetrics(metrics)

	var logs bytes.Buffer
	sc.SetAuditLogger(instrumentation.NewAuditLogger(
		slog.New(slog.NewTextHandler(&logs, nil)),
		instrumentation.AuditLoggingConfig{Enabled: true},
	))

	wrapped := InstrumentedToolHandler("check_available_slots", sc, func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText("ok"), nil
	})
	_, err = wrapped(context.Background(), requestWith(map[string]any{"session": "call-_+393331234567_x"}))
	require.NoError(t, err)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "tool_invocations_total" {
				continue
			}
			sum := m.Data.(metricdata.Sum[int64])
			for _, dp := range sum.DataPoints {
				tool, _ := dp.Attributes.Value(attribute.Key("tool"))
				status, _ := dp.Attributes.Value(attribute.Key("status"))
				assert.Equal(t, "check_available_slots", tool.AsString())
				assert.Equal(t, instrumentation.StatusSuccess, status.AsString())
				total += dp.Value
			}
		}
	}
	assert.Equal(t, int64(1), total)

	out := logs.String()
	assert.Contains(t, out, "tool_executed")
	assert.Contains(t, out, "check_available_slots")
	assert.NotContains(t, out, "+393331234567")
}

func TestInstrumentedToolHandler_IsServerHandler(t *testing.T) {
	sc := newServerContext(t)
	s := mcpserver.NewMCPServer("test", "1.0.0", mcpserver.WithToolCapabilities(true))

	var handler mcpserver.ToolHandlerFunc = InstrumentedToolHandler("ping", sc, func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText("pong"), nil
	})
	s.AddTool(mcp.NewTool("ping"), handler)

	st, ok := s.ListTools()["ping"]
	require.True(t, ok)
	result, err := st.Handler(context.Background(), requestWith(nil))
	require.NoError(t, err)
	require.Len(t, result.Content, 1)
	assert.Equal(t, "pong", result.Content[0].(mcp.TextContent).Text)
}
