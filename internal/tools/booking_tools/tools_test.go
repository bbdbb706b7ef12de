package booking_tools

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Darkosxl/immobiliare-agent/internal/booking"
	"github.com/Darkosxl/immobiliare-agent/internal/calendar"
	"github.com/Darkosxl/immobiliare-agent/internal/callsession"
	"github.com/Darkosxl/immobiliare-agent/internal/locale"
	"github.com/Darkosxl/immobiliare-agent/internal/server"
)

type hangups struct {
	mu      sync.Mutex
	reasons map[string]string
	err     error
}

func (h *hangups) hangup(_ context.Context, call *callsession.Call, reason string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.reasons == nil {
		h.reasons = map[string]string{}
	}
	h.reasons[call.ID] = reason
	return h.err
}

type fixture struct {
	srv     *mcpserver.MCPServer
	sc      *server.ServerContext
	gateway *calendar.MemoryGateway
	hangups *hangups
	policy  locale.Policy
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	policy, err := locale.Lookup("it")
	require.NoError(t, err)

	gw := calendar.NewMemoryGateway()
	coord, err := booking.NewCoordinator(gw, "office@example.com")
	require.NoError(t, err)

	h := &hangups{}
	sc, err := server.NewServerContext(context.Background(),
		booking.NewDesk(coord, nil, nil), callsession.NewRegistry(h.hangup), policy)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })

	srv := mcpserver.NewMCPServer("test", "1.0.0", mcpserver.WithToolCapabilities(true))
	require.NoError(t, RegisterBookingTools(srv, sc))
	return &fixture{srv: srv, sc: sc, gateway: gw, hangups: h, policy: policy}
}

func (f *fixture) call(t *testing.T, tool string, args map[string]any) string {
	t.Helper()
	st, ok := f.srv.ListTools()[tool]
	require.True(t, ok, "tool %s not registered", tool)

	var req mcp.CallToolRequest
	req.Params.Name = tool
	req.Params.Arguments = args
	result, err := st.Handler(context.Background(), req)
	require.NoError(t, err)
	require.False(t, result.IsError)
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestRegisterBookingTools(t *testing.T) {
	f := newFixture(t)
	tools := f.srv.ListTools()

	for _, name := range []string{booking.OpCheckSlots, booking.OpSchedule, booking.OpFind, booking.OpCancel, ToolEndCall} {
		st, ok := tools[name]
		require.True(t, ok, name)
		assert.NotEmpty(t, st.Tool.Description, name)
		assert.Contains(t, st.Tool.InputSchema.Properties, "session", name)
	}
	assert.Contains(t, tools[booking.OpSchedule].Tool.InputSchema.Required, booking.ArgAddress)
	assert.Contains(t, tools[booking.OpSchedule].Tool.InputSchema.Required, booking.ArgDate)
	assert.NotContains(t, tools[ToolEndCall].Tool.InputSchema.Required, argReason)
}

func TestBookingTools_ScheduleFindCancel(t *testing.T) {
	f := newFixture(t)
	session := "call-_+393331234567_abc"

	got := f.call(t, booking.OpSchedule, map[string]any{
		booking.ArgAddress: "Via Roma 1",
		booking.ArgDate:    "2024-12-26T10:00",
		"session":          session,
	})
	assert.Equal(t, "Appuntamento confermato per Via Roma 1", got)

	created := f.gateway.Created()
	require.Len(t, created, 1)
	assert.Contains(t, created[0].Description, "+393331234567")

	got = f.call(t, booking.OpFind, map[string]any{booking.ArgDate: "2024-12-26T10:00", "session": session})
	assert.Contains(t, got, "Via Roma 1 alle 10:00")

	got = f.call(t, booking.OpCancel, map[string]any{booking.ArgDate: "2024-12-26T10:00"})
	assert.Equal(t, f.policy.Messages.Cancelled, got)
	assert.Equal(t, 0, f.gateway.Len("office@example.com"))
}

func TestBookingTools_BadInputApologises(t *testing.T) {
	f := newFixture(t)

	got := f.call(t, booking.OpCheckSlots, map[string]any{booking.ArgDate: "tomorrow"})
	assert.Equal(t, f.policy.Messages.Apology, got)
}

func TestBookingTools_CheckSlots(t *testing.T) {
	f := newFixture(t)

	got := f.call(t, booking.OpCheckSlots, map[string]any{booking.ArgDate: "2024-12-26"})
	assert.Contains(t, got, "Orari disponibili")
	assert.Contains(t, got, "10:00")
}

func TestEndCall(t *testing.T) {
	tests := []struct {
		name       string
		args       map[string]any
		hangupErr  error
		wantReason string
	}{
		{
			name:       "default reason",
			args:       map[string]any{"session": "call-_+39333_a"},
			wantReason: callsession.DefaultEndReason,
		},
		{
			name:       "explicit reason",
			args:       map[string]any{"session": "call-_+39333_a", "reason": "booking_done"},
			wantReason: "booking_done",
		},
		{
			name:       "hangup failure still confirms",
			args:       map[string]any{"session": "call-_+39333_a"},
			hangupErr:  errors.New("telephony unavailable"),
			wantReason: callsession.DefaultEndReason,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.hangups.err = tt.hangupErr

			got := f.call(t, ToolEndCall, tt.args)
			assert.Equal(t, f.policy.Messages.CallEnded, got)

			f.hangups.mu.Lock()
			defer f.hangups.mu.Unlock()
			assert.Equal(t, tt.wantReason, f.hangups.reasons["call-_+39333_a"])
		})
	}
}

func TestEndCall_WithoutSession(t *testing.T) {
	f := newFixture(t)

	got := f.call(t, ToolEndCall, map[string]any{"reason": "booking_done"})
	assert.Equal(t, f.policy.Messages.CallEnded, got)
	assert.Zero(t, f.sc.Calls().Len())

	f.hangups.mu.Lock()
	defer f.hangups.mu.Unlock()
	assert.Empty(t, f.hangups.reasons)
}
