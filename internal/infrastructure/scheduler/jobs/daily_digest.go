package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/oqu-hub/oqu-study-hub/internal/domain/notification"
	"github.com/oqu-hub/oqu-study-hub/internal/domain/schedule"
	"github.com/oqu-hub/oqu-study-hub/internal/domain/student"
	"github.com/oqu-hub/oqu-study-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// DAILY DIGEST JOB
// ══════════════════════════════════════════════════════════════════════════════

// DailyDigestJob sends each student (and their guardians) the day's schedule
// once every morning. Students with nothing scheduled get nothing.
type DailyDigestJob struct {
	assigned  DayScheduleSource
	students  student.Repository
	guardians student.GuardianRepository
	dispatch  notification.Dispatcher
	guard     DispatchGuard
	logger    *slog.Logger
}

// DayScheduleSource loads all assignments of a day across students.
type DayScheduleSource interface {
	FindBetween(ctx context.Context, from, to time.Time) ([]*schedule.AssignedInterval, error)
}

// NewDailyDigestJob creates the daily digest job.
func NewDailyDigestJob(
	assigned DayScheduleSource,
	students student.Repository,
	guardians student.GuardianRepository,
	dispatch notification.Dispatcher,
	guard DispatchGuard,
	logger *slog.Logger,
) *DailyDigestJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &DailyDigestJob{
		assigned:  assigned,
		students:  students,
		guardians: guardians,
		dispatch:  dispatch,
		guard:     guard,
		logger:    logger,
	}
}

// Name returns the job name.
func (j *DailyDigestJob) Name() string {
	return "daily_digest"
}

// Description returns a human-readable description.
func (j *DailyDigestJob) Description() string {
	return "Sends each student their schedule for the day"
}

// Run sends the digest for the day containing the tick. The local day is
// computed in Almaty time, so a digest configured for 08:00 covers the
// local calendar day even though storage is UTC.
func (j *DailyDigestJob) Run(ctx context.Context, tick time.Time) error {
	dayStart, dayEnd := timeutil.DayBounds(tick)

	assignments, err := j.assigned.FindBetween(ctx, dayStart, dayEnd)
	if err != nil {
		return fmt.Errorf("failed to load day schedule: %w", err)
	}
	if len(assignments) == 0 {
		j.logger.Info("no assignments today, digest skipped", "date", timeutil.FormatDate(dayStart))
		return nil
	}

	// FindBetween orders by student then start time, so one linear walk
	// groups the day per student.
	byStudent := make(map[string][]*schedule.AssignedInterval)
	order := make([]string, 0)
	for _, a := range assignments {
		if _, seen := byStudent[a.StudentID]; !seen {
			order = append(order, a.StudentID)
		}
		byStudent[a.StudentID] = append(byStudent[a.StudentID], a)
	}

	sent := 0
	for _, studentID := range order {
		if err := j.sendDigest(ctx, studentID, dayStart, byStudent[studentID]); err != nil {
			j.logger.Error("failed to send digest",
				"student_id", studentID,
				"error", err,
			)
			continue
		}
		sent++
	}

	j.logger.Info("daily digest completed",
		"date", timeutil.FormatDate(dayStart),
		"students", len(order),
		"sent", sent,
	)
	return nil
}

// sendDigest builds and sends one student's digest to the student and their
// guardians.
func (j *DailyDigestJob) sendDigest(ctx context.Context, studentID string, day time.Time, assignments []*schedule.AssignedInterval) error {
	st, err := j.students.GetByID(ctx, studentID)
	if err != nil {
		return fmt.Errorf("failed to load student: %w", err)
	}

	var lines strings.Builder
	for i, a := range assignments {
		if i > 0 {
			lines.WriteString("\n")
		}
		lines.WriteString(fmt.Sprintf("• %s — %s", timeutil.FormatRange(a.StartTime, a.EndTime), a.Title))
	}

	vars := map[string]string{
		"student_name": st.FullName,
		"date":         timeutil.FormatDate(day),
		"schedule":     lines.String(),
	}

	recipients := make([]recipient, 0, 3)
	if st.CanReceiveNotifications() {
		recipients = append(recipients, recipient{id: st.ID, chatID: st.TelegramChatID})
	}
	guardians, err := j.guardians.FindByStudent(ctx, studentID)
	if err != nil {
		j.logger.Error("failed to load guardians", "student_id", studentID, "error", err)
	}
	for _, g := range guardians {
		if g.TelegramChatID.IsValid() {
			recipients = append(recipients, recipient{id: g.ID, chatID: g.TelegramChatID})
		}
	}

	// The digest has no single assignment; the date keys the restart dedup.
	dedupKey := day.Format("2006-01-02") + ":" + studentID
	for _, r := range recipients {
		if j.guard != nil {
			first, gerr := j.guard.FirstDispatch(ctx, notification.TemplateDailyDigest.String(), dedupKey, r.id)
			if gerr != nil {
				j.logger.Warn("dispatch guard unavailable, sending anyway", "recipient_id", r.id, "error", gerr)
			} else if !first {
				continue
			}
		}

		n, err := notification.New(r.id, r.chatID, notification.TemplateDailyDigest, vars)
		if err != nil {
			j.logger.Error("failed to build digest notification", "recipient_id", r.id, "error", err)
			continue
		}
		for _, res := range j.dispatch.Dispatch(ctx, n) {
			if !res.Success {
				j.logger.Error("digest delivery failed",
					"recipient_id", r.id,
					"channel", res.Channel,
					"error", res.Error,
				)
			}
		}
	}

	return nil
}
