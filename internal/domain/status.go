package domain

import "fmt"

type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
)

// InitialStatus is assigned when a booking is accepted.
const InitialStatus = StatusPending

// statusTransitions lists the edges the lifecycle permits. Completed and
// cancelled are terminal.
var statusTransitions = map[AppointmentStatus][]AppointmentStatus{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled},
	StatusCompleted: nil,
	StatusCancelled: nil,
}

func (s AppointmentStatus) Known() bool {
	_, ok := statusTransitions[s]
	return ok
}

// Active statuses hold their interval against new bookings.
func (s AppointmentStatus) Active() bool {
	return s == StatusPending || s == StatusConfirmed
}

func ActiveStatuses() []AppointmentStatus {
	return []AppointmentStatus{StatusPending, StatusConfirmed}
}

func (s AppointmentStatus) CanTransitionTo(to AppointmentStatus) bool {
	for _, next := range statusTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

type InvalidTransitionError struct {
	From AppointmentStatus
	To   AppointmentStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition from %q to %q", e.From, e.To)
}

// TransitionStatus returns a copy of the appointment moved to the requested
// status, or an InvalidTransitionError when the lifecycle forbids the move.
func TransitionStatus(a Appointment, to AppointmentStatus) (Appointment, error) {
	if !a.Status.CanTransitionTo(to) {
		return Appointment{}, &InvalidTransitionError{From: a.Status, To: to}
	}
	a.Status = to
	return a, nil
}
