package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/Darkosxl/immobiliare-agent/internal/locale"
	"github.com/Darkosxl/immobiliare-agent/internal/server"
)

const (
	HoursURI = "office://hours"
	CallsURI = "office://calls"

	mimeJSON = "application/json"
)

// RegisterOfficeResources registers the office resources on s.
func RegisterOfficeResources(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	hoursResource := mcp.NewResource(
		HoursURI,
		"Office Hours",
		mcp.WithResourceDescription("Bookable shifts, time zone and visit length of the office"),
		mcp.WithMIMEType(mimeJSON),
	)
	s.AddResource(hoursResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleHours(request, sc)
	})

	callsResource := mcp.NewResource(
		CallsURI,
		"Active Calls",
		mcp.WithResourceDescription("Number of calls the agent is currently handling"),
		mcp.WithMIMEType(mimeJSON),
	)
	s.AddResource(callsResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleCalls(request, sc)
	})

	return nil
}

type shiftView struct {
	Name  string `json:"name"`
	Start string `json:"start"`
	End   string `json:"end"`
}

type hoursView struct {
	Locale          string      `json:"locale"`
	TimeZone        string      `json:"timeZone"`
	Shifts          []shiftView `json:"shifts"`
	Exclusion       *shiftView  `json:"exclusion,omitempty"`
	VisitMinutes    int         `json:"visitMinutes"`
	ReminderMinutes []int64     `json:"reminderMinutes,omitempty"`
}

func newHoursView(p locale.Policy) hoursView {
	v := hoursView{
		Locale:       p.Name,
		TimeZone:     p.Location().String(),
		VisitMinutes: int(p.Duration().Minutes()),
	}
	for _, s := range p.Shifts {
		v.Shifts = append(v.Shifts, shiftView{Name: s.Name, Start: s.Start, End: s.End})
	}
	if p.Exclusion != nil {
		v.Exclusion = &shiftView{Start: p.Exclusion.Start, End: p.Exclusion.End}
	}
	for _, r := range p.Reminders {
		v.ReminderMinutes = append(v.ReminderMinutes, r.Minutes)
	}
	return v
}

func handleHours(request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	return jsonContents(request.Params.URI, newHoursView(sc.Policy()))
}

func handleCalls(request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	return jsonContents(request.Params.URI, map[string]int{"active": sc.Calls().Len()})
}

func jsonContents(uri string, data any) ([]mcp.ResourceContents, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", uri, err)
	}
	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      uri,
			MIMEType: mimeJSON,
			Text:     string(jsonData),
		},
	}, nil
}
