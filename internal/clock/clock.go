// Package clock provides the wall clock used to stamp sales and to derive
// business dates.
package clock

import (
	"time"

	"github.com/roach88/kassa/internal/model"
)

// Clock reports the current instant.
// Implemented by System (production) and testutil.FixedClock (tests).
type Clock interface {
	Now() time.Time
}

// System is the real wall clock.
type System struct{}

// Now returns time.Now().
func (System) Now() time.Time {
	return time.Now()
}

// BusinessDate returns the calendar date of t in loc.
// A nil loc means time.Local.
//
// The result is computed once at commit time and stored; callers must never
// recompute it from a stored timestamp.
func BusinessDate(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(model.DateLayout)
}

// ValidDate reports whether s is a well-formed business date.
func ValidDate(s string) bool {
	_, err := time.Parse(model.DateLayout, s)
	return err == nil
}
