package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTruncateToMinute(t *testing.T) {
	ts := time.Date(2026, 3, 10, 10, 0, 37, 480000000, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC), TruncateToMinute(ts))

	// Already truncated values are unchanged.
	exact := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, exact, TruncateToMinute(exact))
}

func TestSameMinute(t *testing.T) {
	a := time.Date(2026, 3, 10, 10, 0, 1, 0, time.UTC)
	b := time.Date(2026, 3, 10, 10, 0, 59, 999000000, time.UTC)
	c := time.Date(2026, 3, 10, 10, 1, 0, 0, time.UTC)

	assert.True(t, SameMinute(a, b))
	assert.False(t, SameMinute(b, c))

	// Zone representation must not matter, only the instant.
	assert.True(t, SameMinute(a, a.In(AlmatyTZ)))
}

func TestDayBounds(t *testing.T) {
	// 01:30 Almaty on March 10 is still March 9 in UTC; the bounds must
	// follow the Almaty calendar.
	ts := DateTime(2026, 3, 10, 1, 30, 0)
	start, end := DayBounds(ts)

	assert.Equal(t, DateTime(2026, 3, 10, 0, 0, 0), start)
	assert.Equal(t, DateTime(2026, 3, 11, 0, 0, 0), end)
	assert.Equal(t, 24*time.Hour, end.Sub(start))
}

func TestFormatters(t *testing.T) {
	ts := time.Date(2026, 3, 10, 5, 0, 0, 0, time.UTC) // 10:00 Almaty

	assert.Equal(t, "10:00", FormatTime(ts))
	assert.Equal(t, "10.03.2026", FormatDate(ts))
	assert.Equal(t, "10:00-12:00", FormatRange(ts, ts.Add(2*time.Hour)))
}
