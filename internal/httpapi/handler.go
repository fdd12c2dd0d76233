package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/shankar379/medivoice/internal/reminder"
	"github.com/shankar379/medivoice/internal/report"
	"github.com/shankar379/medivoice/internal/voice"
)

const xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Handler serves the reminder engine over HTTP.
type Handler struct {
	svc       *reminder.Service
	announcer *voice.Announcer
	gateway   voice.Gateway
	loc       *time.Location
	logger    *zap.Logger
}

// NewHandler creates a Handler. gateway may be nil, in which case the speak
// endpoint answers 503.
func NewHandler(svc *reminder.Service, announcer *voice.Announcer, gateway voice.Gateway, loc *time.Location, logger *zap.Logger) *Handler {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		svc:       svc,
		announcer: announcer,
		gateway:   gateway,
		loc:       loc,
		logger:    logger,
	}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/assignments", h.CreateAssignment)
	api.GET("/assignments/:id", h.GetAssignment)
	api.POST("/assignments/:id/deactivate", h.DeactivateAssignment)
	api.POST("/assignments/:id/re-expand", h.ReExpandAssignment)

	api.GET("/patients/:patientId/assignments", h.ListAssignments)
	api.GET("/patients/:patientId/reminders", h.ListReminders)
	api.GET("/patients/:patientId/reminders/today", h.TodayReminders)
	api.GET("/patients/:patientId/reminders/export", h.ExportReminders)
	api.GET("/patients/:patientId/adherence", h.Adherence)
	api.GET("/patients/:patientId/profile", h.GetProfile)
	api.PUT("/patients/:patientId/profile", h.SaveProfile)

	api.POST("/reminders/:id/actions", h.ApplyAction)
	api.POST("/reminders/:id/speak", h.SpeakReminder)

	api.POST("/messages/compose", h.ComposeMessage)
}

// NewServer builds an echo instance with the API mounted under /api/v1.
func NewServer(h *Handler) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler(h.logger)
	e.GET("/healthz", Health)
	h.RegisterRoutes(e.Group("/api/v1"))
	return e
}

func Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// -- Assignments --

func (h *Handler) CreateAssignment(c echo.Context) error {
	var req reminder.Assignment
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.StartDate.IsZero() {
		req.StartDate = reminder.DateOf(h.svc.Now().In(h.loc))
	}

	a, reminders, err := h.svc.CreateAssignment(c.Request().Context(), req)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"assignment": a,
		"reminders":  nonNil(reminders),
	})
}

func (h *Handler) GetAssignment(c echo.Context) error {
	a, err := h.svc.GetAssignment(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) DeactivateAssignment(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")
	if err := h.svc.DeactivateAssignment(ctx, id); err != nil {
		return mapError(err)
	}
	a, err := h.svc.GetAssignment(ctx, id)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, a)
}

type reExpandRequest struct {
	AsOf *time.Time `json:"as_of"`
}

func (h *Handler) ReExpandAssignment(c echo.Context) error {
	var req reExpandRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	var asOf time.Time
	if req.AsOf != nil {
		asOf = *req.AsOf
	}

	created, err := h.svc.ReExpand(c.Request().Context(), c.Param("id"), asOf)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"created":   len(created),
		"reminders": nonNil(created),
	})
}

func (h *Handler) ListAssignments(c echo.Context) error {
	assignments, err := h.svc.ListAssignments(c.Request().Context(), c.Param("patientId"))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, nonNil(assignments))
}

// -- Reminders --

func (h *Handler) ListReminders(c echo.Context) error {
	reminders, err := h.svc.ListReminders(c.Request().Context(), c.Param("patientId"))
	if err != nil {
		return mapError(err)
	}

	if status := c.QueryParam("status"); status != "" {
		if !reminder.Status(status).Valid() {
			return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("unknown status %q", status))
		}
		filtered := reminders[:0]
		for _, r := range reminders {
			if r.Status == reminder.Status(status) {
				filtered = append(filtered, r)
			}
		}
		reminders = filtered
	}
	return c.JSON(http.StatusOK, nonNil(reminders))
}

func (h *Handler) TodayReminders(c echo.Context) error {
	reminders, err := h.svc.TodayReminders(c.Request().Context(), c.Param("patientId"))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, nonNil(reminders))
}

func (h *Handler) ExportReminders(c echo.Context) error {
	ctx := c.Request().Context()
	patientID := c.Param("patientId")

	assignments, reminders, err := h.patientData(ctx, patientID)
	if err != nil {
		return mapError(err)
	}
	data, err := report.Workbook(assignments, reminders, h.svc.Now(), h.loc)
	if err != nil {
		return mapError(err)
	}

	filename := fmt.Sprintf("reminders-%s-%s.xlsx", patientID, h.svc.Now().In(h.loc).Format("20060102"))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Blob(http.StatusOK, xlsxMIME, data)
}

func (h *Handler) Adherence(c echo.Context) error {
	ctx := c.Request().Context()
	patientID := c.Param("patientId")

	assignments, reminders, err := h.patientData(ctx, patientID)
	if err != nil {
		return mapError(err)
	}
	now := h.svc.Now()
	return c.JSON(http.StatusOK, map[string]interface{}{
		"summary":   report.Summarize(patientID, reminders, now),
		"medicines": report.ByMedicine(assignments, reminders, now),
	})
}

func (h *Handler) patientData(ctx context.Context, patientID string) ([]reminder.Assignment, []reminder.Reminder, error) {
	assignments, err := h.svc.ListAssignments(ctx, patientID)
	if err != nil {
		return nil, nil, err
	}
	reminders, err := h.svc.ListReminders(ctx, patientID)
	if err != nil {
		return nil, nil, err
	}
	return assignments, reminders, nil
}

type actionRequest struct {
	Action string `json:"action"`
}

func (h *Handler) ApplyAction(c echo.Context) error {
	var req actionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	action, err := reminder.ParseAction(req.Action)
	if err != nil {
		return mapError(err)
	}

	r, err := h.svc.ApplyTransition(c.Request().Context(), c.Param("id"), action)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, r)
}

// SpeakReminder plays a reminder's message and waits for playback to end.
func (h *Handler) SpeakReminder(c echo.Context) error {
	if h.gateway == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "voice playback is not configured")
	}
	ctx := c.Request().Context()

	r, err := h.svc.GetReminder(ctx, c.Param("id"))
	if err != nil {
		return mapError(err)
	}
	ann, err := h.announcer.ForReminder(ctx, *r)
	if err != nil {
		return mapError(err)
	}

	done := make(chan error, 1)
	h.gateway.Speak(ann.Text, ann.Settings, func(err error) { done <- err })

	select {
	case err := <-done:
		if errors.Is(err, voice.ErrStopped) {
			return echo.NewHTTPError(http.StatusConflict, "playback was interrupted")
		}
		if err != nil {
			h.logger.Warn("playback failed", zap.String("reminder_id", r.ID), zap.Error(err))
			return echo.NewHTTPError(http.StatusBadGateway, err.Error())
		}
	case <-ctx.Done():
		h.gateway.Stop()
		return ctx.Err()
	}

	played := ann.Settings.Enabled
	if played {
		if err := h.svc.MarkVoicePlayed(ctx, r.ID); err != nil {
			return mapError(err)
		}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"reminder_id": r.ID,
		"message":     ann.Text,
		"language":    ann.Settings.Language,
		"played":      played,
	})
}

// -- Messages & profiles --

type composeRequest struct {
	AssignmentID string `json:"assignment_id"`
	UserName     string `json:"user_name"`
	Language     string `json:"language"`
}

func (h *Handler) ComposeMessage(c echo.Context) error {
	var req composeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.AssignmentID == "" {
		return mapError(&reminder.ValidationError{Field: "assignment_id", Reason: "is required"})
	}

	ann, err := h.announcer.ForAssignment(c.Request().Context(), req.AssignmentID, req.UserName, req.Language)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{
		"message":  ann.Text,
		"language": ann.Settings.Language,
	})
}

type profileRequest struct {
	Name          string          `json:"name"`
	Gender        string          `json:"gender"`
	VoiceSettings *voice.Settings `json:"voice_settings"`
}

type profileResponse struct {
	PatientID     string         `json:"patient_id"`
	Name          string         `json:"name"`
	Gender        string         `json:"gender,omitempty"`
	VoiceSettings voice.Settings `json:"voice_settings"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

func toProfileResponse(p *reminder.Profile) profileResponse {
	return profileResponse{
		PatientID:     p.PatientID,
		Name:          p.Name,
		Gender:        p.Gender,
		VoiceSettings: voice.SettingsFromProfile(p),
		UpdatedAt:     p.UpdatedAt,
	}
}

func (h *Handler) GetProfile(c echo.Context) error {
	p, err := h.svc.GetProfile(c.Request().Context(), c.Param("patientId"))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, toProfileResponse(p))
}

func (h *Handler) SaveProfile(c echo.Context) error {
	var req profileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	settings := voice.DefaultSettings()
	if req.VoiceSettings != nil {
		settings = *req.VoiceSettings
	}
	if err := settings.Validate(); err != nil {
		return mapError(err)
	}
	if settings.Language != "" && !voice.Supported(settings.Language) {
		h.logger.Warn("unsupported language, messages fall back to en-IN",
			zap.String("language", settings.Language))
	}

	p, err := h.svc.SaveProfile(c.Request().Context(), reminder.Profile{
		PatientID:     c.Param("patientId"),
		Name:          req.Name,
		Gender:        req.Gender,
		VoiceSettings: settings.Raw(),
	})
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, toProfileResponse(p))
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
