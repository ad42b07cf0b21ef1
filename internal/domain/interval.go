package domain

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidInterval = errors.New("invalid interval")

// Interval is a half-open time span [Start, End()). The end instant is
// always derived from the duration so the two cannot drift apart.
type Interval struct {
	Start           time.Time
	DurationMinutes int
}

func NewInterval(start time.Time, durationMinutes int) (Interval, error) {
	if start.IsZero() {
		return Interval{}, fmt.Errorf("%w: start time is required", ErrInvalidInterval)
	}
	if durationMinutes <= 0 {
		return Interval{}, fmt.Errorf("%w: duration must be positive", ErrInvalidInterval)
	}
	return Interval{Start: start.UTC(), DurationMinutes: durationMinutes}, nil
}

func (iv Interval) End() time.Time {
	return iv.Start.Add(time.Duration(iv.DurationMinutes) * time.Minute)
}

// Overlaps reports whether the two spans share any instant. Spans that only
// touch at a boundary do not overlap, so back-to-back bookings are allowed.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start.Before(other.End()) && other.Start.Before(iv.End())
}
