package calendar

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/Darkosxl/immobiliare-agent/internal/instrumentation"
)

func TestSelfCleaningGateway(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryGateway()
	gw := NewSelfCleaningGateway(mem, nil)

	created, err := gw.CreateEvent(ctx, "cal", EventInput{Summary: "Visita", Start: at(10, 0), End: at(10, 30)})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, 0, mem.Len("cal"), "event must be removed right away")
	assert.Len(t, mem.Created(), 1)
}

func TestSelfCleaningGateway_LogsFailedCleanup(t *testing.T) {
	var buf bytes.Buffer
	mem := NewMemoryGateway()
	mem.FailNext(instrumentation.OperationDelete, errors.New("delete failed"))
	gw := NewSelfCleaningGateway(mem, slog.New(slog.NewTextHandler(&buf, nil)))

	created, err := gw.CreateEvent(context.Background(), "cal", EventInput{Start: at(10, 0), End: at(10, 30)})
	require.NoError(t, err)
	assert.NotNil(t, created)
	assert.Contains(t, buf.String(), "failed to clean up created event")
	assert.Equal(t, 1, mem.Len("cal"))
}

func TestInstrumentedGateway(t *testing.T) {
	ctx := context.Background()
	metrics, err := instrumentation.NewMetrics(noop.NewMeterProvider().Meter("test"), false)
	require.NoError(t, err)

	mem := NewMemoryGateway()
	gw := NewInstrumentedGateway(mem, metrics)

	created, err := gw.CreateEvent(ctx, "cal", EventInput{Start: at(10, 0), End: at(10, 30)})
	require.NoError(t, err)

	busy, err := gw.QueryFreeBusy(ctx, "cal", at(9, 0), at(12, 0))
	require.NoError(t, err)
	assert.Len(t, busy, 1)

	events, err := gw.ListEvents(ctx, "cal", at(9, 0), at(12, 0))
	require.NoError(t, err)
	assert.Len(t, events, 1)

	require.NoError(t, gw.DeleteEvent(ctx, "cal", created.ID))
	assert.True(t, IsNotFound(gw.DeleteEvent(ctx, "cal", created.ID)))

	// nil metrics still works
	_, err = NewInstrumentedGateway(mem, nil).ListEvents(ctx, "cal", at(9, 0), at(12, 0))
	assert.NoError(t, err)
}

func TestGatewayError(t *testing.T) {
	tests := []struct {
		name          string
		err           *GatewayError
		wantTransient bool
		wantNotFound  bool
	}{
		{name: "transport", err: &GatewayError{Op: "list", Err: errors.New("connection reset")}, wantTransient: true},
		{name: "rate limited", err: &GatewayError{Op: "list", StatusCode: http.StatusTooManyRequests, Err: errors.New("x")}, wantTransient: true},
		{name: "server error", err: &GatewayError{Op: "list", StatusCode: http.StatusBadGateway, Err: errors.New("x")}, wantTransient: true},
		{name: "forbidden", err: &GatewayError{Op: "list", StatusCode: http.StatusForbidden, Err: errors.New("x")}},
		{name: "not found", err: &GatewayError{Op: "delete", StatusCode: http.StatusNotFound, Err: errors.New("x")}, wantNotFound: true},
		{name: "gone", err: &GatewayError{Op: "delete", StatusCode: http.StatusGone, Err: errors.New("x")}, wantNotFound: true},
		{name: "deadline", err: &GatewayError{Op: "list", Err: context.DeadlineExceeded}},
		{name: "bad response", err: badResponse("freebusy", errors.New("x")).(*GatewayError)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantTransient, tt.err.Transient())
			assert.Equal(t, tt.wantTransient, IsTransient(tt.err))
			assert.Equal(t, tt.wantNotFound, IsNotFound(tt.err))
		})
	}

	assert.False(t, IsTransient(errors.New("plain")))
	assert.False(t, IsNotFound(errors.New("plain")))
	assert.Contains(t, (&GatewayError{Op: "insert", StatusCode: 500, Err: errors.New("x")}).Error(), "status 500")
}

const testKey = `{"type":"service_account","client_email":"agent@project.iam.gserviceaccount.com"}`

func TestLoadCredentialsJSON(t *testing.T) {
	t.Run("raw json", func(t *testing.T) {
		data, err := LoadCredentialsJSON("  " + testKey + "\n")
		require.NoError(t, err)
		assert.JSONEq(t, testKey, string(data))
	})

	t.Run("file path", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "key.json")
		require.NoError(t, os.WriteFile(path, []byte(testKey), 0o600))

		data, err := LoadCredentialsJSON(path)
		require.NoError(t, err)
		assert.JSONEq(t, testKey, string(data))
	})

	t.Run("empty", func(t *testing.T) {
		_, err := LoadCredentialsJSON("")
		assert.ErrorIs(t, err, ErrNoCredentials)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadCredentialsJSON(filepath.Join(t.TempDir(), "nope.json"))
		assert.Error(t, err)
	})

	t.Run("not a service account", func(t *testing.T) {
		_, err := LoadCredentialsJSON(`{"type":"authorized_user"}`)
		assert.ErrorContains(t, err, "service account")
	})
}
