package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"stylebook/backend/internal/domain"
)

type AppointmentRepository interface {
	// Book inserts a conflict-checked appointment; the check and the insert
	// happen under the stylist's calendar lock.
	Book(ctx context.Context, appt domain.Appointment) (domain.Appointment, error)
	// Reschedule re-runs conflict detection for the new slot, excluding the
	// appointment itself. A zero durationMinutes keeps the current duration.
	Reschedule(ctx context.Context, appointmentID uuid.UUID, startTime time.Time, durationMinutes int) (domain.Appointment, error)
	// UpdateStatus applies a lifecycle transition against the currently
	// persisted status.
	UpdateStatus(ctx context.Context, appointmentID uuid.UUID, to domain.AppointmentStatus) (domain.Appointment, error)
	Get(ctx context.Context, appointmentID uuid.UUID) (domain.Appointment, error)
	Delete(ctx context.Context, appointmentID uuid.UUID) error

	// ListOverlapping returns active appointments whose derived interval
	// overlaps [windowStart, windowEnd), ordered by start.
	ListOverlapping(ctx context.Context, stylistID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.Appointment, error)
	// ListAgenda returns active appointments starting within
	// [windowStart, windowEnd), ordered by start.
	ListAgenda(ctx context.Context, stylistID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.Appointment, error)
}

type Catalog interface {
	GetStylist(ctx context.Context, stylistID uuid.UUID) (domain.Stylist, error)
	ListStylists(ctx context.Context) ([]domain.Stylist, error)
	GetService(ctx context.Context, serviceID uuid.UUID) (domain.Service, error)
	ListServices(ctx context.Context) ([]domain.Service, error)
}
