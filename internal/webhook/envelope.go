package webhook

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Message types sent to /events.
const (
	MessageSpeechUpdate = "speech-update"
	MessageStatusUpdate = "status-update"
	MessageEndOfCall    = "end-of-call-report"

	speechStarted   = "started"
	speechStopped   = "stopped"
	roleAssistant   = "assistant"
	callStatusEnded = "ended"
)

// Envelope is the body of every request the platform sends.
type Envelope struct {
	Message Message `json:"message"`
}

// Message carries either tool calls or a status notification.
type Message struct {
	Type string `json:"type,omitempty"`

	ToolCalls []ToolCall `json:"toolCalls,omitempty"`
	// ToolCallList is the same list under its newer name.
	ToolCallList []ToolCall `json:"toolCallList,omitempty"`

	Call *CallInfo `json:"call,omitempty"`

	Status      string `json:"status,omitempty"`
	Role        string `json:"role,omitempty"`
	EndedReason string `json:"endedReason,omitempty"`
}

// Calls returns the tool calls of m, whichever field they came in.
func (m Message) Calls() []ToolCall {
	if len(m.ToolCalls) > 0 {
		return m.ToolCalls
	}
	return m.ToolCallList
}

// CallID returns the platform's id of the phone call, or "".
func (m Message) CallID() string {
	if m.Call == nil {
		return ""
	}
	return m.Call.ID
}

// CustomerNumber returns the caller's phone number, or "".
func (m Message) CustomerNumber() string {
	if m.Call == nil {
		return ""
	}
	return m.Call.Customer.Number
}

type CallInfo struct {
	ID       string   `json:"id,omitempty"`
	Customer Customer `json:"customer"`
}

type Customer struct {
	Number string `json:"number,omitempty"`
}

type ToolCall struct {
	ID       string       `json:"id"`
	Function FunctionCall `json:"function"`
}

type FunctionCall struct {
	Name string `json:"name"`
	// Arguments is either a JSON object or a string holding one.
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// Args decodes the call arguments. Missing or null arguments decode to an
// empty map.
func (f FunctionCall) Args() (map[string]any, error) {
	raw := bytes.TrimSpace(f.Arguments)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return map[string]any{}, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("failed to decode arguments string: %w", err)
		}
		if s == "" {
			return map[string]any{}, nil
		}
		raw = []byte(s)
	}
	args := map[string]any{}
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("failed to decode arguments: %w", err)
	}
	return args, nil
}

// Response is the reply to a tool-call request.
type Response struct {
	Results []Result `json:"results"`
}

type Result struct {
	ToolCallID string `json:"toolCallId,omitempty"`
	Result     string `json:"result"`
}
