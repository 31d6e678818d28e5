package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/oqu-hub/oqu-study-hub/pkg/timeutil"
)

func TestMinuteSchedule_NextIsAlwaysBoundaryAligned(t *testing.T) {
	s := NewMinuteSchedule()

	mid := time.Date(2026, 3, 10, 10, 0, 37, 500, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 10, 10, 1, 0, 0, time.UTC), s.Next(mid))

	// From an exact boundary the next tick is the following minute,
	// never the same one again.
	boundary := time.Date(2026, 3, 10, 10, 1, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 10, 10, 2, 0, 0, time.UTC), s.Next(boundary))
}

func TestDailySchedule_NextToday(t *testing.T) {
	s := NewDailySchedule(8, 0, timeutil.AlmatyTZ)

	// 06:00 Almaty, digest still ahead today.
	at := time.Date(2026, 3, 10, 6, 0, 0, 0, timeutil.AlmatyTZ)
	next := s.Next(at)
	assert.Equal(t, time.Date(2026, 3, 10, 8, 0, 0, 0, timeutil.AlmatyTZ), next)
}

func TestDailySchedule_RollsToTomorrow(t *testing.T) {
	s := NewDailySchedule(8, 0, timeutil.AlmatyTZ)

	// Exactly 08:00 rolls over; Next must be strictly after t.
	at := time.Date(2026, 3, 10, 8, 0, 0, 0, timeutil.AlmatyTZ)
	assert.Equal(t, time.Date(2026, 3, 11, 8, 0, 0, 0, timeutil.AlmatyTZ), s.Next(at))

	evening := time.Date(2026, 3, 10, 21, 30, 0, 0, timeutil.AlmatyTZ)
	assert.Equal(t, time.Date(2026, 3, 11, 8, 0, 0, 0, timeutil.AlmatyTZ), s.Next(evening))
}

func TestScheduler_RegisterRejectsDuplicates(t *testing.T) {
	s := New(DefaultConfig())

	job := &noopJob{name: "tick"}
	assert.NoError(t, s.Register(job, NewMinuteSchedule()))
	assert.ErrorIs(t, s.Register(job, NewMinuteSchedule()), ErrJobAlreadyExists)
}

func TestScheduler_RegisterRejectsNil(t *testing.T) {
	s := New(DefaultConfig())

	assert.ErrorIs(t, s.Register(nil, NewMinuteSchedule()), ErrNilJob)
	assert.ErrorIs(t, s.Register(&noopJob{name: "tick"}, nil), ErrNilSchedule)
}

type noopJob struct {
	name string
	runs int
}

func (j *noopJob) Name() string                           { return j.name }
func (j *noopJob) Description() string                    { return "does nothing" }
func (j *noopJob) Run(_ context.Context, _ time.Time) error { j.runs++; return nil }
