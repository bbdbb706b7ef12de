package booking_tools

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/Darkosxl/immobiliare-agent/internal/booking"
	"github.com/Darkosxl/immobiliare-agent/internal/callsession"
	"github.com/Darkosxl/immobiliare-agent/internal/logging"
	"github.com/Darkosxl/immobiliare-agent/internal/server"
	"github.com/Darkosxl/immobiliare-agent/internal/tools/common"
)

const (
	ToolEndCall = callsession.EndCallTool

	argReason = "reason"
)

const dateHelp = "Date and time of the visit in the office's local time, e.g. '2024-12-26T10:30'. RFC 3339 timestamps are accepted too."

func sessionOption() mcp.ToolOption {
	return mcp.WithString(common.ArgSession,
		mcp.Description("Telephony session name, e.g. 'call-_+393331234567_abc'. Used to identify the caller."),
	)
}

// RegisterBookingTools registers the booking and call tools with the MCP server.
func RegisterBookingTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	checkTool := mcp.NewTool(booking.OpCheckSlots,
		mcp.WithDescription("Called when the user wants to check available slots for a given date"),
		mcp.WithString(booking.ArgDate,
			mcp.Required(),
			mcp.Description("The day to check, e.g. '2024-12-26'"),
		),
		sessionOption(),
	)
	s.AddTool(checkTool, common.InstrumentedToolHandler(booking.OpCheckSlots, sc, deskHandler(booking.OpCheckSlots, sc)))

	scheduleTool := mcp.NewTool(booking.OpSchedule,
		mcp.WithDescription("Called when the user wants to book an appointment, a visit or a tour of the apartment. Ensure the address of the apartment and the date are provided."),
		mcp.WithString(booking.ArgAddress,
			mcp.Required(),
			mcp.Description("The address of the apartment"),
		),
		mcp.WithString(booking.ArgDate,
			mcp.Required(),
			mcp.Description(dateHelp),
		),
		sessionOption(),
	)
	s.AddTool(scheduleTool, common.InstrumentedToolHandler(booking.OpSchedule, sc, deskHandler(booking.OpSchedule, sc)))

	findTool := mcp.NewTool(booking.OpFind,
		mcp.WithDescription("Called when the user wants to learn about their current bookings at a given time"),
		mcp.WithString(booking.ArgDate,
			mcp.Required(),
			mcp.Description(dateHelp),
		),
		sessionOption(),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	s.AddTool(findTool, common.InstrumentedToolHandler(booking.OpFind, sc, deskHandler(booking.OpFind, sc)))

	cancelTool := mcp.NewTool(booking.OpCancel,
		mcp.WithDescription("Called when the user wants to cancel the booking at a given time"),
		mcp.WithString(booking.ArgDate,
			mcp.Required(),
			mcp.Description(dateHelp),
		),
		sessionOption(),
		mcp.WithDestructiveHintAnnotation(true),
	)
	s.AddTool(cancelTool, common.InstrumentedToolHandler(booking.OpCancel, sc, deskHandler(booking.OpCancel, sc)))

	endCallTool := mcp.NewTool(ToolEndCall,
		mcp.WithDescription("Called when the user wants to end the call. The call is hung up once the agent has finished speaking."),
		mcp.WithString(argReason,
			mcp.Description("Why the call is ending (default: user_requested)"),
		),
		sessionOption(),
	)
	s.AddTool(endCallTool, common.InstrumentedToolHandler(ToolEndCall, sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleEndCall(ctx, request, sc)
	}))

	return nil
}

// deskHandler forwards a tool call to the booking desk. The desk always
// produces a sentence, so the result is never an MCP error.
func deskHandler(op string, sc *server.ServerContext) common.ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		caller := common.CallerFromArgs(sc, args)
		return mcp.NewToolResultText(sc.Desk().Invoke(ctx, op, args, caller)), nil
	}
}

func handleEndCall(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	session := common.SessionFromArgs(args)
	caller := common.CallerFromArgs(sc, args)

	reason, _ := args[argReason].(string)
	if reason = strings.TrimSpace(reason); reason == "" {
		reason = callsession.DefaultEndReason
	}

	if session == "" {
		sc.Logger().Warn("end_call without a session", logging.Tool(ToolEndCall))
		return mcp.NewToolResultText(caller.Policy.Messages.CallEnded), nil
	}
	if err := sc.Calls().End(ctx, session, caller, reason); err != nil {
		sc.Logger().Error("hangup failed",
			logging.Tool(ToolEndCall),
			logging.Session(session),
			logging.Err(err))
	}
	return mcp.NewToolResultText(caller.Policy.Messages.CallEnded), nil
}
