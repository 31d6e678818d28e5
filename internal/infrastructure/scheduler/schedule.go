package scheduler

import (
	"fmt"
	"time"

	"github.com/oqu-hub/oqu-study-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// MINUTE SCHEDULE
// ══════════════════════════════════════════════════════════════════════════════

// MinuteSchedule fires at every minute boundary. This is the schedule the
// attendance monitor runs on: ticks are aligned so the tick time compares
// equal to minute-truncated assignment start times.
type MinuteSchedule struct{}

// NewMinuteSchedule creates a minute-boundary schedule.
func NewMinuteSchedule() *MinuteSchedule {
	return &MinuteSchedule{}
}

// Next returns the first minute boundary strictly after t.
func (s *MinuteSchedule) Next(t time.Time) time.Time {
	return timeutil.TruncateToMinute(t).Add(time.Minute)
}

// String returns the string representation of the schedule.
func (s *MinuteSchedule) String() string {
	return "@every minute"
}

// ══════════════════════════════════════════════════════════════════════════════
// DAILY SCHEDULE
// ══════════════════════════════════════════════════════════════════════════════

// DailySchedule fires once per day at a fixed local time.
type DailySchedule struct {
	Hour     int
	Minute   int
	Location *time.Location
}

// NewDailySchedule creates a schedule firing every day at hour:minute in loc.
func NewDailySchedule(hour, minute int, loc *time.Location) *DailySchedule {
	if loc == nil {
		loc = time.UTC
	}
	return &DailySchedule{Hour: hour, Minute: minute, Location: loc}
}

// Next returns the next hour:minute occurrence strictly after t.
func (s *DailySchedule) Next(t time.Time) time.Time {
	local := t.In(s.Location)
	next := time.Date(local.Year(), local.Month(), local.Day(), s.Hour, s.Minute, 0, 0, s.Location)
	if !next.After(local) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// String returns the string representation of the schedule.
func (s *DailySchedule) String() string {
	return fmt.Sprintf("@daily %02d:%02d %s", s.Hour, s.Minute, s.Location.String())
}

// ══════════════════════════════════════════════════════════════════════════════
// INTERVAL SCHEDULE
// ══════════════════════════════════════════════════════════════════════════════

// IntervalSchedule fires at a fixed interval without boundary alignment.
type IntervalSchedule struct {
	Interval time.Duration
}

// NewIntervalSchedule creates a new IntervalSchedule.
func NewIntervalSchedule(interval time.Duration) *IntervalSchedule {
	return &IntervalSchedule{Interval: interval}
}

// Next returns the next scheduled time.
func (s *IntervalSchedule) Next(t time.Time) time.Time {
	return t.Add(s.Interval)
}

// String returns the string representation of the schedule.
func (s *IntervalSchedule) String() string {
	return fmt.Sprintf("@every %s", s.Interval.String())
}
