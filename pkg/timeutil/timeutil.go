// Package timeutil provides timezone utilities for Almaty timezone (UTC+5).
// All students and tutors of Oqu Study Hub are located in Almaty, so schedule
// wall-clock times are interpreted in this zone.
// No external dependencies - uses only standard library.
package timeutil

import (
	"fmt"
	"time"
)

// AlmatyTZ is the Almaty timezone (UTC+5, no DST).
// Kazakhstan abolished DST in 2005, so this is constant year-round.
var AlmatyTZ = time.FixedZone("Asia/Almaty", 5*60*60)

// Now returns the current time in Almaty timezone.
func Now() time.Time {
	return time.Now().In(AlmatyTZ)
}

// ToAlmaty converts a time to Almaty timezone.
func ToAlmaty(t time.Time) time.Time {
	return t.In(AlmatyTZ)
}

// ToUTC converts a time to UTC.
func ToUTC(t time.Time) time.Time {
	return t.UTC()
}

// TruncateToMinute zeroes seconds and sub-second precision. Every
// exact-minute comparison in the scheduler must go through this one function
// rather than truncating inline, so that stored timestamps with finer
// precision and tick timestamps always land on the same grid.
func TruncateToMinute(t time.Time) time.Time {
	return t.Truncate(time.Minute)
}

// SameMinute reports whether two instants fall on the same minute.
func SameMinute(a, b time.Time) bool {
	return TruncateToMinute(a).Equal(TruncateToMinute(b))
}

// DateTime creates a time in Almaty timezone with the given date and time.
func DateTime(year, month, day, hour, min, sec int) time.Time {
	return time.Date(year, time.Month(month), day, hour, min, sec, 0, AlmatyTZ)
}

// StartOfDay returns the start of the day (00:00:00) in Almaty timezone.
func StartOfDay(t time.Time) time.Time {
	almaty := ToAlmaty(t)
	return time.Date(almaty.Year(), almaty.Month(), almaty.Day(), 0, 0, 0, 0, AlmatyTZ)
}

// DayBounds returns the half-open [start, end) range of the Almaty calendar
// day containing t.
func DayBounds(t time.Time) (time.Time, time.Time) {
	start := StartOfDay(t)
	return start, start.AddDate(0, 0, 1)
}

// FormatTime formats a time as HH:MM in Almaty timezone.
func FormatTime(t time.Time) string {
	return ToAlmaty(t).Format("15:04")
}

// FormatDate formats a date as DD.MM.YYYY in Almaty timezone.
func FormatDate(t time.Time) string {
	return ToAlmaty(t).Format("02.01.2006")
}

// FormatRange formats an interval as "HH:MM-HH:MM" in Almaty timezone.
func FormatRange(start, end time.Time) string {
	return fmt.Sprintf("%s-%s", FormatTime(start), FormatTime(end))
}
