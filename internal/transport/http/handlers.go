package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"stylebook/backend/internal/domain"
	"stylebook/backend/internal/service/bookings"
	"stylebook/backend/internal/store"
)

type bookingsService interface {
	Book(ctx context.Context, in bookings.BookInput) (domain.Appointment, error)
	Reschedule(ctx context.Context, in bookings.RescheduleInput) (domain.Appointment, error)
	Transition(ctx context.Context, appointmentID uuid.UUID, to domain.AppointmentStatus) (domain.Appointment, error)
	Get(ctx context.Context, appointmentID uuid.UUID) (domain.Appointment, error)
	Delete(ctx context.Context, appointmentID uuid.UUID) error
	Schedule(ctx context.Context, stylistID uuid.UUID, referenceDate time.Time, windowDays int) ([]domain.Appointment, error)
	ListStylists(ctx context.Context) ([]domain.Stylist, error)
	ListServices(ctx context.Context) ([]domain.Service, error)
}

type BookingHandler struct {
	svc bookingsService
	log *slog.Logger
}

func NewBookingHandler(svc bookingsService, log *slog.Logger) *BookingHandler {
	if log == nil {
		log = slog.Default()
	}
	return &BookingHandler{
		svc: svc,
		log: log.With(slog.String("component", "http.bookings")),
	}
}

type bookRequest struct {
	StylistID  string    `json:"stylist_id"`
	ServiceID  string    `json:"service_id"`
	ClientName string    `json:"client_name"`
	Notes      string    `json:"notes"`
	StartTime  time.Time `json:"start_time"`
}

type rescheduleRequest struct {
	StartTime       time.Time `json:"start_time"`
	DurationMinutes int       `json:"duration_minutes"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type appointmentResponse struct {
	ID              string    `json:"id"`
	StylistID       string    `json:"stylist_id"`
	ServiceID       string    `json:"service_id"`
	ClientName      string    `json:"client_name"`
	Notes           string    `json:"notes,omitempty"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	DurationMinutes int       `json:"duration_minutes"`
	PriceCents      int64     `json:"price_cents"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type stylistResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type serviceResponse struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	DurationMinutes int    `json:"duration_minutes"`
	PriceCents      int64  `json:"price_cents"`
}

func (h *BookingHandler) Book(c echo.Context) error {
	log := h.log.With(slog.String("handler", "Book"))

	var req bookRequest
	if err := c.Bind(&req); err != nil {
		log.Warn("invalid request", slog.String("reason", "bad_body"))
		return errorJSON(c, http.StatusBadRequest, "invalid request body")
	}
	stylistID, err := uuid.Parse(req.StylistID)
	if err != nil {
		log.Warn("invalid request", slog.String("reason", "invalid_stylist_id"))
		return errorJSON(c, http.StatusBadRequest, "stylist_id must be a UUID")
	}
	serviceID, err := uuid.Parse(req.ServiceID)
	if err != nil {
		log.Warn("invalid request", slog.String("reason", "invalid_service_id"))
		return errorJSON(c, http.StatusBadRequest, "service_id must be a UUID")
	}

	appt, err := h.svc.Book(c.Request().Context(), bookings.BookInput{
		StylistID:      stylistID,
		ServiceID:      serviceID,
		ClientName:     req.ClientName,
		Notes:          req.Notes,
		StartTime:      req.StartTime,
		IdempotencyKey: idempotencyKey(c),
	})
	if err != nil {
		return h.writeError(c, log, err)
	}

	log.Info(
		"appointment booked",
		slog.String("appointment_id", appt.ID.String()),
		slog.String("stylist_id", appt.StylistID.String()),
		slog.Time("start_time", appt.StartTime),
		slog.Time("end_time", appt.EndTime()),
	)
	return c.JSON(http.StatusCreated, toAppointmentResponse(appt))
}

func (h *BookingHandler) Get(c echo.Context) error {
	log := h.log.With(slog.String("handler", "Get"))

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		log.Warn("invalid request", slog.String("reason", "invalid_uuid"))
		return errorJSON(c, http.StatusBadRequest, "appointment id must be a UUID")
	}

	appt, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return h.writeError(c, log, err)
	}
	return c.JSON(http.StatusOK, toAppointmentResponse(appt))
}

func (h *BookingHandler) Reschedule(c echo.Context) error {
	log := h.log.With(slog.String("handler", "Reschedule"))

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		log.Warn("invalid request", slog.String("reason", "invalid_uuid"))
		return errorJSON(c, http.StatusBadRequest, "appointment id must be a UUID")
	}
	var req rescheduleRequest
	if err := c.Bind(&req); err != nil {
		log.Warn("invalid request", slog.String("reason", "bad_body"), slog.String("appointment_id", id.String()))
		return errorJSON(c, http.StatusBadRequest, "invalid request body")
	}

	appt, err := h.svc.Reschedule(c.Request().Context(), bookings.RescheduleInput{
		AppointmentID:   id,
		StartTime:       req.StartTime,
		DurationMinutes: req.DurationMinutes,
	})
	if err != nil {
		return h.writeError(c, log, err)
	}

	log.Info(
		"appointment rescheduled",
		slog.String("appointment_id", appt.ID.String()),
		slog.Time("start_time", appt.StartTime),
		slog.Time("end_time", appt.EndTime()),
	)
	return c.JSON(http.StatusOK, toAppointmentResponse(appt))
}

func (h *BookingHandler) TransitionStatus(c echo.Context) error {
	log := h.log.With(slog.String("handler", "TransitionStatus"))

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		log.Warn("invalid request", slog.String("reason", "invalid_uuid"))
		return errorJSON(c, http.StatusBadRequest, "appointment id must be a UUID")
	}
	var req statusRequest
	if err := c.Bind(&req); err != nil {
		log.Warn("invalid request", slog.String("reason", "bad_body"), slog.String("appointment_id", id.String()))
		return errorJSON(c, http.StatusBadRequest, "invalid request body")
	}

	appt, err := h.svc.Transition(c.Request().Context(), id, domain.AppointmentStatus(req.Status))
	if err != nil {
		return h.writeError(c, log, err)
	}

	log.Info(
		"appointment status changed",
		slog.String("appointment_id", appt.ID.String()),
		slog.String("status", string(appt.Status)),
	)
	return c.JSON(http.StatusOK, toAppointmentResponse(appt))
}

func (h *BookingHandler) Delete(c echo.Context) error {
	log := h.log.With(slog.String("handler", "Delete"))

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		log.Warn("invalid request", slog.String("reason", "invalid_uuid"))
		return errorJSON(c, http.StatusBadRequest, "appointment id must be a UUID")
	}

	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return h.writeError(c, log, err)
	}

	log.Info("appointment deleted", slog.String("appointment_id", id.String()))
	return c.NoContent(http.StatusNoContent)
}

func (h *BookingHandler) Schedule(c echo.Context) error {
	log := h.log.With(slog.String("handler", "Schedule"))

	stylistID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		log.Warn("invalid request", slog.String("reason", "invalid_uuid"))
		return errorJSON(c, http.StatusBadRequest, "stylist id must be a UUID")
	}

	var referenceDate time.Time
	if raw := strings.TrimSpace(c.QueryParam("date")); raw != "" {
		referenceDate, err = time.Parse("2006-01-02", raw)
		if err != nil {
			log.Warn("invalid request", slog.String("reason", "invalid_date"), slog.String("stylist_id", stylistID.String()))
			return errorJSON(c, http.StatusBadRequest, "date must be formatted YYYY-MM-DD")
		}
	}

	windowDays := 0
	if raw := strings.TrimSpace(c.QueryParam("days")); raw != "" {
		windowDays, err = strconv.Atoi(raw)
		if err != nil {
			log.Warn("invalid request", slog.String("reason", "invalid_days"), slog.String("stylist_id", stylistID.String()))
			return errorJSON(c, http.StatusBadRequest, "days must be an integer")
		}
	}

	appts, err := h.svc.Schedule(c.Request().Context(), stylistID, referenceDate, windowDays)
	if err != nil {
		return h.writeError(c, log, err)
	}

	out := make([]appointmentResponse, 0, len(appts))
	for _, a := range appts {
		out = append(out, toAppointmentResponse(a))
	}

	log.Debug(
		"schedule listed",
		slog.String("stylist_id", stylistID.String()),
		slog.Int("count", len(out)),
	)
	return c.JSON(http.StatusOK, map[string]any{"appointments": out})
}

func (h *BookingHandler) ListStylists(c echo.Context) error {
	log := h.log.With(slog.String("handler", "ListStylists"))

	stylists, err := h.svc.ListStylists(c.Request().Context())
	if err != nil {
		return h.writeError(c, log, err)
	}

	out := make([]stylistResponse, 0, len(stylists))
	for _, s := range stylists {
		out = append(out, stylistResponse{ID: s.ID.String(), Name: s.Name})
	}
	return c.JSON(http.StatusOK, map[string]any{"stylists": out})
}

func (h *BookingHandler) ListServices(c echo.Context) error {
	log := h.log.With(slog.String("handler", "ListServices"))

	services, err := h.svc.ListServices(c.Request().Context())
	if err != nil {
		return h.writeError(c, log, err)
	}

	out := make([]serviceResponse, 0, len(services))
	for _, s := range services {
		out = append(out, serviceResponse{
			ID:              s.ID.String(),
			Name:            s.Name,
			DurationMinutes: s.DurationMinutes,
			PriceCents:      s.PriceCents,
		})
	}
	return c.JSON(http.StatusOK, map[string]any{"services": out})
}

// writeError maps domain and store errors onto HTTP statuses. A scheduling
// conflict surfaces the appointment it collided with so the caller can show
// it.
func (h *BookingHandler) writeError(c echo.Context, log *slog.Logger, err error) error {
	var conflictErr *domain.ConflictError
	if errors.As(err, &conflictErr) {
		log.Info(
			"scheduling conflict",
			slog.String("conflicting_id", conflictErr.Conflicting.ID.String()),
			slog.Time("conflicting_start", conflictErr.Conflicting.StartTime),
		)
		return c.JSON(http.StatusConflict, map[string]any{
			"error":       "The selected time overlaps an existing appointment. Pick a different slot.",
			"conflicting": toAppointmentResponse(conflictErr.Conflicting),
		})
	}

	var transitionErr *domain.InvalidTransitionError
	if errors.As(err, &transitionErr) {
		log.Warn(
			"invalid status transition",
			slog.String("from", string(transitionErr.From)),
			slog.String("to", string(transitionErr.To)),
		)
		return errorJSON(c, http.StatusConflict, transitionErr.Error())
	}

	switch {
	case errors.Is(err, store.ErrConflict):
		log.Info("scheduling conflict")
		return errorJSON(c, http.StatusConflict, "The selected time overlaps an existing appointment. Pick a different slot.")
	case errors.Is(err, store.ErrIdempotencyConflict):
		log.Info("idempotency conflict")
		return errorJSON(c, http.StatusConflict, "This request key was already used for a different appointment. Try again.")
	case errors.Is(err, store.ErrAppointmentNotActive):
		log.Info("appointment not active")
		return errorJSON(c, http.StatusConflict, "appointment can no longer be rescheduled")
	case errors.Is(err, store.ErrNotFound):
		log.Info("appointment not found")
		return errorJSON(c, http.StatusNotFound, "appointment not found")
	case errors.Is(err, store.ErrUnknownStylist):
		log.Info("stylist not found")
		return errorJSON(c, http.StatusNotFound, "stylist not found")
	case errors.Is(err, store.ErrUnknownService):
		log.Info("service not found")
		return errorJSON(c, http.StatusNotFound, "service not found")
	case errors.Is(err, domain.ErrInvalidInterval):
		log.Warn("invalid interval", slog.Any("err", err))
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}

	var vErr *bookings.ValidationError
	if errors.As(err, &vErr) {
		log.Warn("invalid request", slog.Any("err", err))
		return errorJSON(c, http.StatusBadRequest, vErr.Error())
	}

	log.Error("request failed", slog.Any("err", err))
	return errorJSON(c, http.StatusInternalServerError, "internal error")
}

func errorJSON(c echo.Context, code int, msg string) error {
	return c.JSON(code, map[string]any{"error": msg})
}

func idempotencyKey(c echo.Context) string {
	key := c.Request().Header.Get("Idempotency-Key")
	if key == "" {
		key = c.Request().Header.Get("X-Idempotency-Key")
	}
	return strings.TrimSpace(key)
}

func toAppointmentResponse(a domain.Appointment) appointmentResponse {
	return appointmentResponse{
		ID:              a.ID.String(),
		StylistID:       a.StylistID.String(),
		ServiceID:       a.ServiceID.String(),
		ClientName:      a.ClientName,
		Notes:           a.Notes,
		StartTime:       a.StartTime,
		EndTime:         a.EndTime(),
		DurationMinutes: a.DurationMinutes,
		PriceCents:      a.PriceCents,
		Status:          string(a.Status),
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
}
