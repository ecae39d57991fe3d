package pipeline

import (
	"time"

	"FundRadar/internal/model"
)

// Clock supplies the current time to a run.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always returns the same instant.
type FixedClock time.Time

func (c FixedClock) Now() time.Time { return time.Time(c) }

// AsOfDate returns the calendar date of now in loc, moved back to Friday when
// it falls on a weekend.
func AsOfDate(now time.Time, loc *time.Location) time.Time {
	if loc != nil {
		now = now.In(loc)
	}
	d := model.NewDate(now).Time
	for d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
		d = d.AddDate(0, 0, -1)
	}
	return d
}
