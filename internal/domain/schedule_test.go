package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestFindConflict_ReturnsFirstOverlappingActiveAppointment(t *testing.T) {
	stylistID := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	confirmed := Appointment{
		ID:              uuid.MustParse("00000000-0000-0000-0000-000000000101"),
		StylistID:       stylistID,
		StartTime:       time.Date(2024, 1, 10, 10, 0, 0, 0, time.UTC),
		DurationMinutes: 45,
		Status:          StatusConfirmed,
	}
	existing := []Appointment{confirmed}

	t.Run("overlapping request conflicts", func(t *testing.T) {
		candidate := mustInterval(t, time.Date(2024, 1, 10, 10, 20, 0, 0, time.UTC), 30)
		hit := FindConflict(candidate, existing, uuid.Nil)
		if hit == nil {
			t.Fatalf("expected conflict")
		}
		if hit.ID != confirmed.ID {
			t.Fatalf("conflicting id = %s, want %s", hit.ID, confirmed.ID)
		}
	})

	t.Run("boundary touch does not conflict", func(t *testing.T) {
		candidate := mustInterval(t, time.Date(2024, 1, 10, 10, 45, 0, 0, time.UTC), 30)
		if hit := FindConflict(candidate, existing, uuid.Nil); hit != nil {
			t.Fatalf("unexpected conflict with %s", hit.ID)
		}
	})

	t.Run("appointment already in progress at candidate start conflicts", func(t *testing.T) {
		candidate := mustInterval(t, time.Date(2024, 1, 10, 10, 40, 0, 0, time.UTC), 30)
		if FindConflict(candidate, existing, uuid.Nil) == nil {
			t.Fatalf("expected conflict")
		}
	})

	t.Run("candidate containing the existing appointment conflicts", func(t *testing.T) {
		candidate := mustInterval(t, time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC), 180)
		if FindConflict(candidate, existing, uuid.Nil) == nil {
			t.Fatalf("expected conflict")
		}
	})
}

func TestFindConflict_SkipsInactiveAppointments(t *testing.T) {
	start := time.Date(2024, 1, 10, 10, 0, 0, 0, time.UTC)
	existing := []Appointment{
		{
			ID:              uuid.MustParse("00000000-0000-0000-0000-000000000102"),
			StartTime:       start,
			DurationMinutes: 60,
			Status:          StatusCancelled,
		},
		{
			ID:              uuid.MustParse("00000000-0000-0000-0000-000000000103"),
			StartTime:       start,
			DurationMinutes: 60,
			Status:          StatusCompleted,
		},
	}

	candidate := mustInterval(t, start, 30)
	if hit := FindConflict(candidate, existing, uuid.Nil); hit != nil {
		t.Fatalf("cancelled/completed appointments must not block, got %s", hit.ID)
	}
}

func TestFindConflict_ExcludesAppointmentBeingRescheduled(t *testing.T) {
	start := time.Date(2024, 1, 10, 10, 0, 0, 0, time.UTC)
	self := Appointment{
		ID:              uuid.MustParse("00000000-0000-0000-0000-000000000104"),
		StartTime:       start,
		DurationMinutes: 60,
		Status:          StatusConfirmed,
	}

	candidate := mustInterval(t, start.Add(15*time.Minute), 30)
	if hit := FindConflict(candidate, []Appointment{self}, self.ID); hit != nil {
		t.Fatalf("excluded appointment must not conflict, got %s", hit.ID)
	}
	if FindConflict(candidate, []Appointment{self}, uuid.Nil) == nil {
		t.Fatalf("expected conflict without exclusion")
	}
}

func TestDayWindow(t *testing.T) {
	t.Run("truncates to start of UTC day", func(t *testing.T) {
		ref := time.Date(2024, 1, 10, 15, 42, 7, 0, time.UTC)
		start, end := DayWindow(ref, 3)
		if want := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC); !start.Equal(want) {
			t.Fatalf("window start = %v, want %v", start, want)
		}
		if want := time.Date(2024, 1, 13, 0, 0, 0, 0, time.UTC); !end.Equal(want) {
			t.Fatalf("window end = %v, want %v", end, want)
		}
	})

	t.Run("defaults to a week", func(t *testing.T) {
		start, end := DayWindow(time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC), 0)
		if got := end.Sub(start); got != 7*24*time.Hour {
			t.Fatalf("window length = %v, want %v", got, 7*24*time.Hour)
		}
	})
}
