package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"stylebook/backend/internal/domain"
)

// CalendarTx is the set of appointment operations available inside a
// stylist-locked transaction.
type CalendarTx interface {
	CreateAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error)
	GetAppointment(ctx context.Context, appointmentID uuid.UUID) (domain.Appointment, error)
	UpdateAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error)
	DeleteAppointment(ctx context.Context, appointmentID uuid.UUID) error
	ListOverlapping(ctx context.Context, stylistID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.Appointment, error)
}
