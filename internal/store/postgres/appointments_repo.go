package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"

	"stylebook/backend/internal/domain"
	"stylebook/backend/internal/store"
)

type AppointmentRepo struct {
	db *bun.DB
}

func NewAppointmentRepo(db *bun.DB) *AppointmentRepo {
	return &AppointmentRepo{db: db}
}

type calendarTx struct {
	tx bun.Tx
}

func (r *AppointmentRepo) Book(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	var out domain.Appointment
	err := r.InStylistTransaction(ctx, appt.StylistID, func(ctx context.Context, tx store.CalendarTx) error {
		// A pre-assigned ID means an idempotency key replay may find its own
		// earlier insert occupying the slot. Excluding it here lets the
		// insert reach the duplicate-key path, which returns the stored row.
		if err := ensureNoBookingConflicts(ctx, tx, appt.StylistID, appt.Interval(), appt.ID); err != nil {
			return err
		}
		a, err := tx.CreateAppointment(ctx, appt)
		if err != nil {
			return err
		}
		out = a
		return nil
	})
	if err != nil {
		return domain.Appointment{}, err
	}
	return out, nil
}

func (r *AppointmentRepo) Reschedule(ctx context.Context, appointmentID uuid.UUID, startTime time.Time, durationMinutes int) (domain.Appointment, error) {
	// Unlocked read to learn which stylist calendar to lock; the row is
	// re-read inside the transaction.
	appt, err := r.Get(ctx, appointmentID)
	if err != nil {
		return domain.Appointment{}, err
	}

	var out domain.Appointment
	err = r.InStylistTransaction(ctx, appt.StylistID, func(ctx context.Context, tx store.CalendarTx) error {
		current, err := tx.GetAppointment(ctx, appointmentID)
		if err != nil {
			return err
		}
		if !current.Status.Active() {
			return store.ErrAppointmentNotActive
		}

		duration := durationMinutes
		if duration == 0 {
			duration = current.DurationMinutes
		}
		candidate, err := domain.NewInterval(startTime, duration)
		if err != nil {
			return err
		}

		if err := ensureNoBookingConflicts(ctx, tx, current.StylistID, candidate, current.ID); err != nil {
			return err
		}

		current.StartTime = candidate.Start
		current.DurationMinutes = candidate.DurationMinutes
		updated, err := tx.UpdateAppointment(ctx, current)
		if err != nil {
			return err
		}
		out = updated
		return nil
	})
	if err != nil {
		return domain.Appointment{}, err
	}
	return out, nil
}

func (r *AppointmentRepo) UpdateStatus(ctx context.Context, appointmentID uuid.UUID, to domain.AppointmentStatus) (domain.Appointment, error) {
	appt, err := r.Get(ctx, appointmentID)
	if err != nil {
		return domain.Appointment{}, err
	}

	var out domain.Appointment
	err = r.InStylistTransaction(ctx, appt.StylistID, func(ctx context.Context, tx store.CalendarTx) error {
		current, err := tx.GetAppointment(ctx, appointmentID)
		if err != nil {
			return err
		}
		next, err := domain.TransitionStatus(current, to)
		if err != nil {
			return err
		}
		updated, err := tx.UpdateAppointment(ctx, next)
		if err != nil {
			return err
		}
		out = updated
		return nil
	})
	if err != nil {
		return domain.Appointment{}, err
	}
	return out, nil
}

func (r *AppointmentRepo) Get(ctx context.Context, appointmentID uuid.UUID) (domain.Appointment, error) {
	var appt domain.Appointment
	err := r.db.NewSelect().
		Model(&appt).
		Where("id = ?", appointmentID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Appointment{}, store.ErrNotFound
		}
		return domain.Appointment{}, err
	}
	return appt, nil
}

func (r *AppointmentRepo) Delete(ctx context.Context, appointmentID uuid.UUID) error {
	res, err := r.db.NewDelete().
		Model((*domain.Appointment)(nil)).
		Where("id = ?", appointmentID).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *AppointmentRepo) ListOverlapping(ctx context.Context, stylistID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.Appointment, error) {
	return listOverlapping(ctx, r.db, stylistID, windowStart, windowEnd)
}

func (r *AppointmentRepo) ListAgenda(ctx context.Context, stylistID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.Appointment, error) {
	var rows []domain.Appointment
	err := r.db.NewSelect().
		Model(&rows).
		Where("stylist_id = ?", stylistID).
		Where("status IN (?)", bun.In(domain.ActiveStatuses())).
		Where("start_time >= ?", windowStart).
		Where("start_time < ?", windowEnd).
		OrderExpr("start_time ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *AppointmentRepo) InStylistTransaction(ctx context.Context, stylistID uuid.UUID, fn func(ctx context.Context, tx store.CalendarTx) error) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := lockStylistCalendar(ctx, tx, stylistID); err != nil {
			return err
		}
		return fn(ctx, calendarTx{tx: tx})
	})
}

// lockStylistCalendar serializes check-then-insert per stylist so two
// concurrent bookings for overlapping slots cannot both pass the conflict
// check.
func lockStylistCalendar(ctx context.Context, tx bun.Tx, stylistID uuid.UUID) error {
	_, err := tx.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", stylistID.String()).Exec(ctx)
	return err
}

// ensureNoBookingConflicts bridges the persisted calendar to the pure
// conflict detector: it fetches the active rows that could overlap the
// candidate and lets the detector decide.
func ensureNoBookingConflicts(ctx context.Context, tx store.CalendarTx, stylistID uuid.UUID, candidate domain.Interval, excludeID uuid.UUID) error {
	existing, err := tx.ListOverlapping(ctx, stylistID, candidate.Start, candidate.End())
	if err != nil {
		return err
	}
	if hit := domain.FindConflict(candidate, existing, excludeID); hit != nil {
		return &domain.ConflictError{Conflicting: *hit}
	}
	return nil
}

func (r calendarTx) CreateAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	m := appt

	_, err := r.tx.NewInsert().Model(&m).Exec(ctx)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == "23P01" && pgErr.ConstraintName == "appointments_no_overlap" {
				return domain.Appointment{}, store.ErrConflict
			}
			if pgErr.Code == "23505" {
				var existing domain.Appointment
				selectErr := r.tx.NewSelect().
					Model(&existing).
					Where("id = ?", m.ID).
					Limit(1).
					Scan(ctx)
				if selectErr != nil {
					return domain.Appointment{}, err
				}

				if existing.StylistID != appt.StylistID ||
					existing.ServiceID != appt.ServiceID ||
					existing.ClientName != appt.ClientName ||
					existing.Notes != appt.Notes ||
					existing.DurationMinutes != appt.DurationMinutes ||
					!existing.StartTime.Equal(appt.StartTime) {
					return domain.Appointment{}, store.ErrIdempotencyConflict
				}

				return existing, nil
			}
		}
		return domain.Appointment{}, err
	}

	return m, nil
}

func (r calendarTx) GetAppointment(ctx context.Context, appointmentID uuid.UUID) (domain.Appointment, error) {
	var appt domain.Appointment
	err := r.tx.NewSelect().
		Model(&appt).
		Where("id = ?", appointmentID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Appointment{}, store.ErrNotFound
		}
		return domain.Appointment{}, err
	}
	return appt, nil
}

func (r calendarTx) UpdateAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	m := appt
	res, err := r.tx.NewUpdate().
		Model(&m).
		WherePK().
		Exec(ctx)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23P01" && pgErr.ConstraintName == "appointments_no_overlap" {
			return domain.Appointment{}, store.ErrConflict
		}
		return domain.Appointment{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Appointment{}, err
	}
	if affected == 0 {
		return domain.Appointment{}, store.ErrNotFound
	}
	return m, nil
}

func (r calendarTx) DeleteAppointment(ctx context.Context, appointmentID uuid.UUID) error {
	res, err := r.tx.NewDelete().
		Model((*domain.Appointment)(nil)).
		Where("id = ?", appointmentID).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r calendarTx) ListOverlapping(ctx context.Context, stylistID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.Appointment, error) {
	return listOverlapping(ctx, r.tx, stylistID, windowStart, windowEnd)
}

// The end instant is derived in SQL the same way Appointment.EndTime derives
// it in Go, since it is never stored.
func listOverlapping(ctx context.Context, db bun.IDB, stylistID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.Appointment, error) {
	var rows []domain.Appointment
	err := db.NewSelect().
		Model(&rows).
		Where("stylist_id = ?", stylistID).
		Where("status IN (?)", bun.In(domain.ActiveStatuses())).
		Where("start_time < ?", windowEnd).
		Where("start_time + make_interval(mins => duration_minutes) > ?", windowStart).
		OrderExpr("start_time ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
