package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/shankar379/medivoice/internal/reminder"
	"github.com/shankar379/medivoice/internal/voice"
)

const (
	serverName    = "medivoice"
	serverVersion = "1.0.0"
)

// Server is the MCP server for medicine assignments and reminders.
type Server struct {
	mcpServer *server.MCPServer
	svc       *reminder.Service
	announcer *voice.Announcer
	logger    *zap.Logger
}

// NewServer creates a new MCP server backed by the given service.
// defaultLanguage is used to compose messages for patients without a profile.
func NewServer(svc *reminder.Service, defaultLanguage string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		svc:       svc,
		announcer: voice.NewAnnouncer(svc, defaultLanguage),
		logger:    logger,
	}

	s.mcpServer = server.NewMCPServer(
		serverName,
		serverVersion,
		server.WithToolCapabilities(false),
	)

	s.registerTools()
	return s
}

// MCPServer returns the underlying MCP server for serving.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *Server) registerTools() {
	// assign_medicine
	s.mcpServer.AddTool(
		mcp.NewTool("assign_medicine",
			mcp.WithDescription("Assign a medicine to a patient and schedule reminders for the next 7 days"),
			mcp.WithString("patient_id", mcp.Required(), mcp.Description("Patient ID")),
			mcp.WithString("medicine_name", mcp.Required(), mcp.Description("Medicine name")),
			mcp.WithString("dosage", mcp.Required(), mcp.Description("Dosage, e.g. 500mg")),
			mcp.WithString("timings", mcp.Description("Comma-separated times of day in HH:MM, e.g. 08:00,20:00")),
			mcp.WithString("start_date", mcp.Description("Course start date YYYY-MM-DD (default: today)")),
			mcp.WithString("end_date", mcp.Description("Optional inclusive course end date YYYY-MM-DD")),
			mcp.WithString("assigned_by", mcp.Description("ID of the doctor or seller")),
			mcp.WithString("assigned_by_role", mcp.Description("Assigner role: doctor or seller")),
			mcp.WithString("generic_name", mcp.Description("Generic name")),
			mcp.WithString("color", mcp.Description("Pill color")),
			mcp.WithString("shape", mcp.Description("Pill shape")),
			mcp.WithString("instructions", mcp.Description("Instructions spoken with the reminder")),
			mcp.WithNumber("duration_days", mcp.Description("Course length in days")),
		),
		s.handleAssignMedicine,
	)

	// list_assignments
	s.mcpServer.AddTool(
		mcp.NewTool("list_assignments",
			mcp.WithDescription("List a patient's medicine assignments"),
			mcp.WithString("patient_id", mcp.Required(), mcp.Description("Patient ID")),
		),
		s.handleListAssignments,
	)

	// list_reminders
	s.mcpServer.AddTool(
		mcp.NewTool("list_reminders",
			mcp.WithDescription("List a patient's reminders, optionally filtered by status"),
			mcp.WithString("patient_id", mcp.Required(), mcp.Description("Patient ID")),
			mcp.WithString("status", mcp.Description("Filter by status: scheduled, taken, snoozed, missed, or empty for all")),
		),
		s.handleListReminders,
	)

	// todays_reminders
	s.mcpServer.AddTool(
		mcp.NewTool("todays_reminders",
			mcp.WithDescription("List today's pending (scheduled or snoozed) reminders for a patient"),
			mcp.WithString("patient_id", mcp.Required(), mcp.Description("Patient ID")),
		),
		s.handleTodaysReminders,
	)

	// mark_taken
	s.mcpServer.AddTool(
		mcp.NewTool("mark_taken",
			mcp.WithDescription("Mark a reminder's dose as taken"),
			mcp.WithString("id", mcp.Required(), mcp.Description("Reminder ID")),
		),
		s.handleMarkTaken,
	)

	// snooze_reminder
	s.mcpServer.AddTool(
		mcp.NewTool("snooze_reminder",
			mcp.WithDescription("Snooze a reminder"),
			mcp.WithString("id", mcp.Required(), mcp.Description("Reminder ID")),
		),
		s.handleSnoozeReminder,
	)

	// compose_message
	s.mcpServer.AddTool(
		mcp.NewTool("compose_message",
			mcp.WithDescription("Compose the spoken reminder message for an assignment"),
			mcp.WithString("assignment_id", mcp.Required(), mcp.Description("Assignment ID")),
			mcp.WithString("user_name", mcp.Description("Name used in the greeting (default: profile name)")),
			mcp.WithString("language", mcp.Description("Language code such as hi-IN (default: profile setting)")),
		),
		s.handleComposeMessage,
	)

	// re_expand_assignment
	s.mcpServer.AddTool(
		mcp.NewTool("re_expand_assignment",
			mcp.WithDescription("Schedule the reminders missing from the next 7 days of an assignment"),
			mcp.WithString("id", mcp.Required(), mcp.Description("Assignment ID")),
			mcp.WithString("as_of", mcp.Description("Window start in RFC3339 format (default: now)")),
		),
		s.handleReExpand,
	)

	// deactivate_assignment
	s.mcpServer.AddTool(
		mcp.NewTool("deactivate_assignment",
			mcp.WithDescription("Stop scheduling new reminders for an assignment"),
			mcp.WithString("id", mcp.Required(), mcp.Description("Assignment ID")),
		),
		s.handleDeactivate,
	)

	// mark_missed
	s.mcpServer.AddTool(
		mcp.NewTool("mark_missed",
			mcp.WithDescription("Mark overdue scheduled reminders as missed (only when the missed policy is enabled)"),
		),
		s.handleMarkMissed,
	)
}

func (s *Server) handleAssignMedicine(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	a := reminder.Assignment{
		PatientID:      req.GetString("patient_id", ""),
		MedicineName:   req.GetString("medicine_name", ""),
		Dosage:         req.GetString("dosage", ""),
		AssignedBy:     req.GetString("assigned_by", ""),
		AssignedByRole: reminder.AssignerRole(req.GetString("assigned_by_role", "")),
		GenericName:    req.GetString("generic_name", ""),
		Color:          req.GetString("color", ""),
		Shape:          req.GetString("shape", ""),
		Instructions:   req.GetString("instructions", ""),
		Timings:        splitTimings(req.GetString("timings", "")),
	}

	if v := req.GetString("start_date", ""); v != "" {
		d, err := reminder.ParseDate(v)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid start_date: %v (use YYYY-MM-DD)", err)), nil
		}
		a.StartDate = d
	} else {
		a.StartDate = reminder.DateOf(s.svc.Now())
	}
	if v := req.GetString("end_date", ""); v != "" {
		d, err := reminder.ParseDate(v)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid end_date: %v (use YYYY-MM-DD)", err)), nil
		}
		a.EndDate = &d
	}
	if v := req.GetFloat("duration_days", -1); v >= 0 {
		days := int(v)
		a.DurationDays = &days
	}

	created, reminders, err := s.svc.CreateAssignment(ctx, a)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to assign medicine: %v", err)), nil
	}

	return jsonResult(map[string]any{
		"assignment": created,
		"reminders":  reminders,
	})
}

func (s *Server) handleListAssignments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	patientID := req.GetString("patient_id", "")
	if patientID == "" {
		return mcp.NewToolResultError("patient_id is required"), nil
	}

	assignments, err := s.svc.ListAssignments(ctx, patientID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list assignments: %v", err)), nil
	}

	if len(assignments) == 0 {
		return mcp.NewToolResultText("No assignments found."), nil
	}
	return jsonResult(assignments)
}

func (s *Server) handleListReminders(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	patientID := req.GetString("patient_id", "")
	if patientID == "" {
		return mcp.NewToolResultError("patient_id is required"), nil
	}
	status := reminder.Status(req.GetString("status", ""))
	if status != "" && !status.Valid() {
		return mcp.NewToolResultError(fmt.Sprintf("unknown status %q", status)), nil
	}

	reminders, err := s.svc.ListReminders(ctx, patientID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list reminders: %v", err)), nil
	}

	if status != "" {
		filtered := reminders[:0]
		for _, r := range reminders {
			if r.Status == status {
				filtered = append(filtered, r)
			}
		}
		reminders = filtered
	}

	if len(reminders) == 0 {
		return mcp.NewToolResultText("No reminders found."), nil
	}
	return jsonResult(reminders)
}

func (s *Server) handleTodaysReminders(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	patientID := req.GetString("patient_id", "")
	if patientID == "" {
		return mcp.NewToolResultError("patient_id is required"), nil
	}

	reminders, err := s.svc.TodayReminders(ctx, patientID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to get today's reminders: %v", err)), nil
	}

	if len(reminders) == 0 {
		return mcp.NewToolResultText("No reminders left for today."), nil
	}
	return jsonResult(reminders)
}

func (s *Server) handleMarkTaken(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.transition(ctx, req, reminder.ActionTaken)
}

func (s *Server) handleSnoozeReminder(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.transition(ctx, req, reminder.ActionSnoozed)
}

func (s *Server) transition(ctx context.Context, req mcp.CallToolRequest, action reminder.Action) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		return mcp.NewToolResultError("id is required"), nil
	}

	r, err := s.svc.ApplyTransition(ctx, id, action)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to update reminder: %v", err)), nil
	}
	return jsonResult(r)
}

func (s *Server) handleComposeMessage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("assignment_id", "")
	if id == "" {
		return mcp.NewToolResultError("assignment_id is required"), nil
	}

	msg, err := s.announcer.ForAssignment(ctx, id, req.GetString("user_name", ""), req.GetString("language", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to compose message: %v", err)), nil
	}

	return mcp.NewToolResultText(msg.Text), nil
}

func (s *Server) handleReExpand(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		return mcp.NewToolResultError("id is required"), nil
	}

	var asOf time.Time
	if v := req.GetString("as_of", ""); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid as_of format: %v (use RFC3339, e.g. 2025-01-15T09:00:00Z)", err)), nil
		}
		asOf = t
	}

	created, err := s.svc.ReExpand(ctx, id, asOf)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to re-expand assignment: %v", err)), nil
	}

	if len(created) == 0 {
		return mcp.NewToolResultText("No new reminders needed."), nil
	}
	return jsonResult(created)
}

func (s *Server) handleDeactivate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		return mcp.NewToolResultError("id is required"), nil
	}

	if err := s.svc.DeactivateAssignment(ctx, id); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to deactivate assignment: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Assignment %s deactivated.", id)), nil
}

func (s *Server) handleMarkMissed(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	n, err := s.svc.MarkMissed(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to mark missed reminders: %v", err)), nil
	}

	s.logger.Info("missed sweep", zap.Int("marked", n))
	return mcp.NewToolResultText(fmt.Sprintf("%d reminder(s) marked as missed.", n)), nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(output)), nil
}

func splitTimings(raw string) []string {
	var timings []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			timings = append(timings, part)
		}
	}
	return timings
}
