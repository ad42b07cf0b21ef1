package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultScheduleWindowDays bounds the agenda query when the caller does not
// ask for a specific range.
const DefaultScheduleWindowDays = 7

type ConflictError struct {
	Conflicting Appointment
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("slot overlaps appointment %s from %s to %s",
		e.Conflicting.ID,
		e.Conflicting.StartTime.UTC().Format(time.RFC3339),
		e.Conflicting.EndTime().UTC().Format(time.RFC3339))
}

// FindConflict returns the first active appointment whose interval overlaps
// the candidate, or nil when the slot is free. excludeID skips the
// appointment being rescheduled. The decision is made purely over the
// supplied set; callers are responsible for serializing check-then-insert.
func FindConflict(candidate Interval, existing []Appointment, excludeID uuid.UUID) *Appointment {
	for i := range existing {
		a := &existing[i]
		if excludeID != uuid.Nil && a.ID == excludeID {
			continue
		}
		if !a.Status.Active() {
			continue
		}
		if candidate.Overlaps(a.Interval()) {
			return a
		}
	}
	return nil
}

// DayWindow returns [start of ref's UTC day, start + days). Non-positive
// days falls back to DefaultScheduleWindowDays.
func DayWindow(ref time.Time, days int) (time.Time, time.Time) {
	if days <= 0 {
		days = DefaultScheduleWindowDays
	}
	r := ref.UTC()
	start := time.Date(r.Year(), r.Month(), r.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, days)
}
