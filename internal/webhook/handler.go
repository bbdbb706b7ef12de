package webhook

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/Darkosxl/immobiliare-agent/internal/booking"
	"github.com/Darkosxl/immobiliare-agent/internal/callsession"
	"github.com/Darkosxl/immobiliare-agent/internal/instrumentation"
	"github.com/Darkosxl/immobiliare-agent/internal/logging"
	"github.com/Darkosxl/immobiliare-agent/internal/server"
)

// DefaultMaxParallelCalls bounds how many tool calls of one request run at
// once.
const DefaultMaxParallelCalls = 4

const toolParam = "tool"

var knownTools = map[string]bool{
	booking.OpCheckSlots:    true,
	booking.OpSchedule:      true,
	booking.OpFind:          true,
	booking.OpCancel:        true,
	callsession.EndCallTool: true,
}

type handler struct {
	sc          *server.ServerContext
	maxParallel int
}

// handleToolCalls answers every tool call in the envelope, in order.
func (h *handler) handleToolCalls(c *gin.Context) {
	env, ok := h.bind(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, Response{Results: h.run(c.Request.Context(), env.Message, "")})
}

// handleTool answers the calls in the envelope as the tool named in the path.
// An envelope without tool calls is treated as one call with no arguments.
func (h *handler) handleTool(c *gin.Context) {
	env, ok := h.bind(c)
	if !ok {
		return
	}
	if len(env.Message.Calls()) == 0 {
		env.Message.ToolCalls = []ToolCall{{}}
	}
	c.JSON(http.StatusOK, Response{Results: h.run(c.Request.Context(), env.Message, c.Param(toolParam))})
}

func (h *handler) bind(c *gin.Context) (Envelope, bool) {
	var env Envelope
	if err := c.ShouldBindJSON(&env); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return env, false
	}
	return env, true
}

// run executes the calls of msg concurrently and returns their results in
// request order. A non-empty override replaces every call's function name.
func (h *handler) run(ctx context.Context, msg Message, override string) []Result {
	calls := msg.Calls()
	results := make([]Result, len(calls))
	caller := booking.NewCaller(msg.CustomerNumber(), h.sc.Policy())

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.maxParallel)
	for i, tc := range calls {
		name := tc.Function.Name
		if override != "" {
			name = override
		}
		g.Go(func() error {
			results[i] = Result{
				ToolCallID: tc.ID,
				Result:     h.invoke(gctx, name, tc.Function, msg.CallID(), caller),
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (h *handler) invoke(ctx context.Context, name string, fn FunctionCall, callID string, caller booking.CallerContext) string {
	start := time.Now()
	logger := h.sc.Logger().With(logging.Tool(name), logging.Session(callID))
	label := name
	if !knownTools[label] {
		label = "unknown"
	}

	var result string
	args, err := fn.Args()
	switch {
	case err != nil:
		logger.Warn("undecodable tool arguments", logging.Err(err))
		h.sc.Metrics().RecordBookingFailure(ctx, label, instrumentation.ReasonParse)
		result = caller.Policy.Messages.Apology
	case name == callsession.EndCallTool:
		result = h.endCall(ctx, args, callID, caller, logger)
	default:
		result = h.sc.Desk().Invoke(ctx, name, args, caller)
	}

	h.sc.Metrics().RecordToolInvocation(ctx, label, instrumentation.StatusSuccess, caller.Policy.Name, time.Since(start))
	return result
}

func (h *handler) endCall(ctx context.Context, args map[string]any, callID string, caller booking.CallerContext, logger *slog.Logger) string {
	reason, _ := args["reason"].(string)
	if reason = strings.TrimSpace(reason); reason == "" {
		reason = callsession.DefaultEndReason
	}
	if callID == "" {
		logger.Warn("end_call without a call id")
		return caller.Policy.Messages.CallEnded
	}
	if err := h.sc.Calls().End(ctx, callID, caller, reason); err != nil {
		logger.Error("hangup failed", logging.Err(err))
	}
	return caller.Policy.Messages.CallEnded
}

// handleEvent applies a status message to the live call it names. Messages
// the service does not track are acknowledged and ignored.
func (h *handler) handleEvent(c *gin.Context) {
	env, ok := h.bind(c)
	if !ok {
		return
	}
	msg := env.Message
	id := msg.CallID()
	if id == "" {
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	switch msg.Type {
	case MessageSpeechUpdate:
		if msg.Role != roleAssistant {
			break
		}
		call := h.sc.Calls().Open(id, booking.NewCaller(msg.CustomerNumber(), h.sc.Policy()))
		switch msg.Status {
		case speechStarted:
			call.SpeechStarted()
		case speechStopped:
			call.SpeechStopped()
		}
	case MessageStatusUpdate:
		if msg.Status == callStatusEnded {
			h.sc.Calls().Close(id, msg.EndedReason)
		}
	case MessageEndOfCall:
		h.sc.Calls().Close(id, msg.EndedReason)
	default:
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
