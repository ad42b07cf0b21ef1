package bookings

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"stylebook/backend/internal/domain"
	"stylebook/backend/internal/store"
)

type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationError(msg string) error {
	return &ValidationError{msg: msg}
}

type Service struct {
	repo    store.AppointmentRepository
	catalog store.Catalog
}

func NewService(repo store.AppointmentRepository, catalog store.Catalog) *Service {
	return &Service{repo: repo, catalog: catalog}
}

type BookInput struct {
	StylistID      uuid.UUID
	ServiceID      uuid.UUID
	ClientName     string
	Notes          string
	StartTime      time.Time
	IdempotencyKey string
}

// Book validates the request, copies duration and price from the referenced
// service, and delegates the conflict-checked insert to the store. The
// appointment starts its lifecycle as pending.
func (s *Service) Book(ctx context.Context, in BookInput) (domain.Appointment, error) {
	clientName := strings.TrimSpace(in.ClientName)
	if clientName == "" {
		return domain.Appointment{}, validationError("client_name is required")
	}
	if in.StylistID == uuid.Nil {
		return domain.Appointment{}, validationError("stylist_id is required")
	}
	if in.ServiceID == uuid.Nil {
		return domain.Appointment{}, validationError("service_id is required")
	}
	if in.StartTime.IsZero() {
		return domain.Appointment{}, validationError("start_time is required")
	}

	if _, err := s.catalog.GetStylist(ctx, in.StylistID); err != nil {
		return domain.Appointment{}, err
	}
	svc, err := s.catalog.GetService(ctx, in.ServiceID)
	if err != nil {
		return domain.Appointment{}, err
	}

	candidate, err := domain.NewInterval(in.StartTime, svc.DurationMinutes)
	if err != nil {
		return domain.Appointment{}, err
	}

	appt := domain.Appointment{
		StylistID:       in.StylistID,
		ServiceID:       svc.ID,
		ClientName:      clientName,
		Notes:           in.Notes,
		StartTime:       candidate.Start,
		DurationMinutes: candidate.DurationMinutes,
		PriceCents:      svc.PriceCents,
		Status:          domain.InitialStatus,
	}

	key := strings.TrimSpace(in.IdempotencyKey)
	if key != "" {
		if len(key) > 256 {
			return domain.Appointment{}, validationError("idempotency_key too long")
		}
		appt.ID = uuid.NewSHA1(uuid.NameSpaceOID, []byte("stylebook:book_appointment:"+in.StylistID.String()+":"+key))
	}

	return s.repo.Book(ctx, appt)
}

type RescheduleInput struct {
	AppointmentID   uuid.UUID
	StartTime       time.Time
	DurationMinutes int // 0 keeps the current duration
}

func (s *Service) Reschedule(ctx context.Context, in RescheduleInput) (domain.Appointment, error) {
	if in.AppointmentID == uuid.Nil {
		return domain.Appointment{}, validationError("appointment_id is required")
	}
	if in.StartTime.IsZero() {
		return domain.Appointment{}, validationError("start_time is required")
	}
	if in.DurationMinutes < 0 {
		return domain.Appointment{}, validationError("duration_minutes must be positive")
	}
	return s.repo.Reschedule(ctx, in.AppointmentID, in.StartTime.UTC(), in.DurationMinutes)
}

func (s *Service) Transition(ctx context.Context, appointmentID uuid.UUID, to domain.AppointmentStatus) (domain.Appointment, error) {
	if appointmentID == uuid.Nil {
		return domain.Appointment{}, validationError("appointment_id is required")
	}
	if !to.Known() {
		return domain.Appointment{}, validationError("unknown status")
	}
	return s.repo.UpdateStatus(ctx, appointmentID, to)
}

// CheckConflict gives a point-in-time answer: the active appointment the
// candidate slot would collide with, or nil. It performs no writes and the
// answer can go stale as soon as another booking lands.
func (s *Service) CheckConflict(ctx context.Context, stylistID uuid.UUID, startTime time.Time, durationMinutes int, excludeID uuid.UUID) (*domain.Appointment, error) {
	if stylistID == uuid.Nil {
		return nil, validationError("stylist_id is required")
	}
	candidate, err := domain.NewInterval(startTime, durationMinutes)
	if err != nil {
		return nil, err
	}
	existing, err := s.repo.ListOverlapping(ctx, stylistID, candidate.Start, candidate.End())
	if err != nil {
		return nil, err
	}
	return domain.FindConflict(candidate, existing, excludeID), nil
}

// Schedule returns the stylist's active agenda for the window starting at
// the reference date's day. A zero referenceDate means now; a zero
// windowDays means the default week.
func (s *Service) Schedule(ctx context.Context, stylistID uuid.UUID, referenceDate time.Time, windowDays int) ([]domain.Appointment, error) {
	if stylistID == uuid.Nil {
		return nil, validationError("stylist_id is required")
	}
	if windowDays < 0 {
		return nil, validationError("window_days must be positive")
	}
	if _, err := s.catalog.GetStylist(ctx, stylistID); err != nil {
		return nil, err
	}

	ref := referenceDate
	if ref.IsZero() {
		ref = time.Now()
	}
	windowStart, windowEnd := domain.DayWindow(ref, windowDays)
	return s.repo.ListAgenda(ctx, stylistID, windowStart, windowEnd)
}

func (s *Service) Get(ctx context.Context, appointmentID uuid.UUID) (domain.Appointment, error) {
	if appointmentID == uuid.Nil {
		return domain.Appointment{}, validationError("appointment_id is required")
	}
	return s.repo.Get(ctx, appointmentID)
}

func (s *Service) Delete(ctx context.Context, appointmentID uuid.UUID) error {
	if appointmentID == uuid.Nil {
		return validationError("appointment_id is required")
	}
	return s.repo.Delete(ctx, appointmentID)
}

func (s *Service) ListStylists(ctx context.Context) ([]domain.Stylist, error) {
	return s.catalog.ListStylists(ctx)
}

func (s *Service) ListServices(ctx context.Context) ([]domain.Service, error) {
	return s.catalog.ListServices(ctx)
}
