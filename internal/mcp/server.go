// Package mcp provides an MCP (Model Context Protocol) server that exposes
// the read-only phaseops query surface as MCP tools.
package mcp

import (
	"context"
	"fmt"
	"time"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/valter-silva-au/phaseops/internal/observability"
	"github.com/valter-silva-au/phaseops/internal/query"
	"github.com/valter-silva-au/phaseops/pkg/models"
)

// Server wraps the query service and exposes it as MCP tools.
type Server struct {
	server  *gomcp.Server
	queries *query.Service
	now     func() time.Time
}

// NewServer creates a new MCP server over queries.
func NewServer(queries *query.Service, version string) *Server {
	if version == "" {
		version = "dev"
	}

	s := &Server{
		queries: queries,
		now:     time.Now,
	}

	s.server = gomcp.NewServer(
		&gomcp.Implementation{Name: "phaseops", Version: version},
		nil,
	)

	s.registerTools()

	return s
}

// Run starts the MCP server on stdio, blocking until the client disconnects
// or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &gomcp.StdioTransport{})
}

// MCPServer returns the underlying mcp.Server for testing purposes.
func (s *Server) MCPServer() *gomcp.Server {
	return s.server
}

// --- Tool input/output types ---

type emptyInput struct{}

type alertOutput struct {
	ID        string `json:"id"`
	Level     string `json:"level"`
	Message   string `json:"message"`
	Component string `json:"component"`
	Timestamp string `json:"timestamp"`
}

type statusOutput struct {
	CurrentDay    int           `json:"current_day"`
	DaysRemaining int           `json:"days_remaining"`
	Percent       int           `json:"percent"`
	Total         int           `json:"total"`
	Completed     int           `json:"completed"`
	Failed        int           `json:"failed"`
	Blocked       int           `json:"blocked"`
	Health        string        `json:"health"`
	Alerts        []alertOutput `json:"alerts"`
	UpdatedAt     string        `json:"updated_at"`
}

type getMetricsInput struct {
	Since string `json:"since,omitempty" jsonschema:"history window from the event log (e.g. 7d, 24h). Omit for live metrics only."`
}

type historyOutput struct {
	CyclesRun              int            `json:"cycles_run"`
	TasksSettled           int            `json:"tasks_settled"`
	TasksByStatus          map[string]int `json:"tasks_by_status"`
	TasksByOwner           map[string]int `json:"tasks_by_owner"`
	AverageDurationSeconds float64        `json:"average_duration_seconds"`
	SuccessRate            string         `json:"success_rate"`
	EventCount             int            `json:"event_count"`
	OldestEvent            string         `json:"oldest_event,omitempty"`
	NewestEvent            string         `json:"newest_event,omitempty"`
}

type metricsOutput struct {
	LastReportDate     string         `json:"last_report_date,omitempty"`
	TasksToday         int            `json:"tasks_today"`
	SuccessRate        string         `json:"success_rate"`
	Efficiency         int            `json:"efficiency"`
	TotalTimeMinutes   int            `json:"total_time_minutes"`
	AverageTimeSeconds int            `json:"average_time_seconds"`
	History            *historyOutput `json:"history,omitempty"`
}

type listReportsOutput struct {
	Dates []string `json:"dates"`
	Count int      `json:"count"`
}

type getReportInput struct {
	Date string `json:"date" jsonschema:"the report date as YYYY-MM-DD"`
}

type memberOutput struct {
	Name       string   `json:"name"`
	Role       string   `json:"role,omitempty"`
	Focus      string   `json:"focus,omitempty"`
	State      string   `json:"state"`
	TasksToday []string `json:"tasks_today"`
}

type teamOutput struct {
	Members []memberOutput `json:"members"`
	Count   int            `json:"count"`
}

type healthOutput struct {
	Status    string `json:"status"`
	Day       int    `json:"day"`
	Errors    int    `json:"errors"`
	Warnings  int    `json:"warnings"`
	Timestamp string `json:"timestamp"`
}

type getDayPlanInput struct {
	Day int `json:"day,omitempty" jsonschema:"day index of the phase (1-18). Omit for today."`
}

type dayTaskOutput struct {
	ID        string   `json:"id"`
	DisplayID string   `json:"display_id"`
	Name      string   `json:"name"`
	Owner     string   `json:"owner"`
	Hours     float64  `json:"hours"`
	WeekName  string   `json:"week_name"`
	Deps      []string `json:"deps,omitempty"`
}

type dayPlanOutput struct {
	Day   int             `json:"day"`
	Week  int             `json:"week"`
	Date  string          `json:"date"`
	Tasks []dayTaskOutput `json:"tasks"`
	Count int             `json:"count"`
}

type alertsOutput struct {
	Live    []alertOutput `json:"live"`
	History []alertOutput `json:"history"`
	Count   int           `json:"count"`
}

// --- Tool registration ---

func (s *Server) registerTools() {
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_status",
		Description: "Get the live system status: phase progress, task counters, health and recent alerts.",
	}, s.handleGetStatus)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_metrics",
		Description: "Get metrics of the latest daily report, optionally with history from the event log.",
	}, s.handleGetMetrics)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "list_reports",
		Description: "List the dates of all persisted daily reports, oldest first.",
	}, s.handleListReports)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_report",
		Description: "Get the daily report for a date (YYYY-MM-DD).",
	}, s.handleGetReport)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_team",
		Description: "Get each team member with the tasks scheduled for them today.",
	}, s.handleGetTeam)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_health",
		Description: "Get the health state with counts of retained error and warning alerts.",
	}, s.handleGetHealth)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_day_plan",
		Description: "Get the tasks scheduled on a day of the phase, with week and dependency information.",
	}, s.handleGetDayPlan)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_alerts",
		Description: "Get live alerts and alerts derived from execution history (repeated failures, stuck tasks, low success rate).",
	}, s.handleGetAlerts)
}

// --- Tool handlers ---

func (s *Server) handleGetStatus(_ context.Context, _ *gomcp.CallToolRequest, _ emptyInput) (*gomcp.CallToolResult, statusOutput, error) {
	st := s.queries.Status()
	out := statusOutput{
		CurrentDay:    st.Phase.CurrentDay,
		DaysRemaining: st.Phase.DaysRemaining,
		Percent:       st.Phase.Percent,
		Total:         st.Tasks.Total,
		Completed:     st.Tasks.Completed,
		Failed:        st.Tasks.Failed,
		Blocked:       st.Tasks.Blocked,
		Health:        string(st.Health),
		Alerts:        alertsToOutput(st.Alerts),
		UpdatedAt:     st.UpdatedAt.UTC().Format(time.RFC3339),
	}
	return nil, out, nil
}

func (s *Server) handleGetMetrics(_ context.Context, _ *gomcp.CallToolRequest, input getMetricsInput) (*gomcp.CallToolResult, metricsOutput, error) {
	var since time.Time
	if input.Since != "" {
		t, err := query.ParseSince(input.Since, s.now().UTC())
		if err != nil {
			return errorResult(fmt.Sprintf("parsing since duration: %s", err)), metricsOutput{}, nil
		}
		since = t
	}

	view, err := s.queries.Metrics(since)
	if err != nil {
		return errorResult(fmt.Sprintf("calculating metrics: %s", err)), metricsOutput{}, nil
	}

	out := metricsOutput{
		LastReportDate:     view.Live.LastReportDate,
		TasksToday:         view.Live.TasksToday,
		SuccessRate:        view.Live.SuccessRate,
		Efficiency:         view.Live.Efficiency,
		TotalTimeMinutes:   view.Live.TotalTimeMinutes,
		AverageTimeSeconds: view.Live.AverageTimeSeconds,
	}
	if view.History != nil {
		out.History = historyToOutput(view.History)
	}
	return nil, out, nil
}

func (s *Server) handleListReports(_ context.Context, _ *gomcp.CallToolRequest, _ emptyInput) (*gomcp.CallToolResult, listReportsOutput, error) {
	dates, err := s.queries.Reports()
	if err != nil {
		return errorResult(fmt.Sprintf("listing reports: %s", err)), listReportsOutput{Dates: []string{}}, nil
	}
	if dates == nil {
		dates = []string{}
	}
	return nil, listReportsOutput{Dates: dates, Count: len(dates)}, nil
}

func (s *Server) handleGetReport(_ context.Context, _ *gomcp.CallToolRequest, input getReportInput) (*gomcp.CallToolResult, models.DailyReport, error) {
	if input.Date == "" {
		return errorResult("date is required"), models.DailyReport{}, nil
	}
	report, err := s.queries.Report(input.Date)
	if err != nil {
		return errorResult(fmt.Sprintf("getting report %s: %s", input.Date, err)), models.DailyReport{}, nil
	}
	return nil, *report, nil
}

func (s *Server) handleGetTeam(_ context.Context, _ *gomcp.CallToolRequest, _ emptyInput) (*gomcp.CallToolResult, teamOutput, error) {
	members := s.queries.Team()
	out := teamOutput{
		Members: make([]memberOutput, len(members)),
		Count:   len(members),
	}
	for i, m := range members {
		out.Members[i] = memberOutput{
			Name:       m.Name,
			Role:       m.Role,
			Focus:      m.Focus,
			State:      m.State,
			TasksToday: append([]string{}, m.TasksToday...),
		}
	}
	return nil, out, nil
}

func (s *Server) handleGetHealth(_ context.Context, _ *gomcp.CallToolRequest, _ emptyInput) (*gomcp.CallToolResult, healthOutput, error) {
	h := s.queries.Health()
	out := healthOutput{
		Status:    string(h.Status),
		Day:       h.Day,
		Errors:    h.Errors,
		Warnings:  h.Warnings,
		Timestamp: h.Timestamp.Format(time.RFC3339),
	}
	return nil, out, nil
}

func (s *Server) handleGetDayPlan(_ context.Context, _ *gomcp.CallToolRequest, input getDayPlanInput) (*gomcp.CallToolResult, dayPlanOutput, error) {
	plan := s.queries.DayPlan(input.Day)
	out := dayPlanOutput{
		Day:   plan.Day,
		Week:  plan.Week,
		Date:  plan.Date,
		Tasks: make([]dayTaskOutput, len(plan.Tasks)),
		Count: len(plan.Tasks),
	}
	for i, t := range plan.Tasks {
		out.Tasks[i] = dayTaskOutput{
			ID:        t.ID,
			DisplayID: t.DisplayID,
			Name:      t.Name,
			Owner:     t.Owner,
			Hours:     t.Hours,
			WeekName:  t.WeekName,
			Deps:      t.Deps,
		}
	}
	return nil, out, nil
}

func (s *Server) handleGetAlerts(_ context.Context, _ *gomcp.CallToolRequest, _ emptyInput) (*gomcp.CallToolResult, alertsOutput, error) {
	history, err := s.queries.EvaluateAlerts()
	if err != nil {
		return errorResult(fmt.Sprintf("evaluating alerts: %s", err)), alertsOutput{Live: []alertOutput{}, History: []alertOutput{}}, nil
	}
	live := s.queries.Status().Alerts
	out := alertsOutput{
		Live:    alertsToOutput(live),
		History: alertsToOutput(history),
		Count:   len(live) + len(history),
	}
	return nil, out, nil
}

// --- Helpers ---

func alertsToOutput(alerts []models.Alert) []alertOutput {
	out := make([]alertOutput, len(alerts))
	for i, a := range alerts {
		out[i] = alertOutput{
			ID:        a.ID,
			Level:     string(a.Level),
			Message:   a.Message,
			Component: a.Component,
			Timestamp: a.Timestamp.UTC().Format(time.RFC3339),
		}
	}
	return out
}

func historyToOutput(m *observability.Metrics) *historyOutput {
	out := &historyOutput{
		CyclesRun:              m.CyclesRun,
		TasksSettled:           m.TasksSettled,
		TasksByStatus:          m.TasksByStatus,
		TasksByOwner:           m.TasksByOwner,
		AverageDurationSeconds: m.AverageDurationSeconds,
		SuccessRate:            m.SuccessRate,
		EventCount:             m.EventCount,
	}
	if out.TasksByStatus == nil {
		out.TasksByStatus = make(map[string]int)
	}
	if out.TasksByOwner == nil {
		out.TasksByOwner = make(map[string]int)
	}
	if m.OldestEvent != nil {
		out.OldestEvent = m.OldestEvent.Format(time.RFC3339)
	}
	if m.NewestEvent != nil {
		out.NewestEvent = m.NewestEvent.Format(time.RFC3339)
	}
	return out
}

func errorResult(msg string) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: msg}},
		IsError: true,
	}
}
