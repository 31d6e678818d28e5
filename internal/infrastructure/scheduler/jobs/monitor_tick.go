// Package jobs contains implementations of scheduled jobs for Oqu Study Hub.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/oqu-hub/oqu-study-hub/internal/domain/notification"
	"github.com/oqu-hub/oqu-study-hub/internal/domain/presence"
	"github.com/oqu-hub/oqu-study-hub/internal/domain/schedule"
	"github.com/oqu-hub/oqu-study-hub/internal/domain/shared"
	"github.com/oqu-hub/oqu-study-hub/internal/domain/student"
	"github.com/oqu-hub/oqu-study-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// MONITOR TICK JOB
// ══════════════════════════════════════════════════════════════════════════════

// MonitorTickJob runs the per-minute attendance passes. Each tick it looks at
// three minutes of the schedule:
//
//	tick + reminder lead  -> "starting soon" reminders
//	tick                  -> session start: reconcile presence, then notify
//	tick - no-show delay  -> no-show alerts for sessions with zero presence
//
// Matching is by minute-truncated start time, so a given assignment hits each
// pass exactly once. A failure on one assignment is logged and does not stop
// the remaining assignments or passes.
type MonitorTickJob struct {
	assigned  AssignedScheduleSource
	students  student.Repository
	guardians student.GuardianRepository
	connector AssignmentConnector
	sessions  LinkedSessionFinder
	dispatch  notification.Dispatcher
	guard     DispatchGuard
	logger    *slog.Logger
	config    MonitorTickConfig
}

// AssignedScheduleSource looks up assignments by their start minute.
type AssignedScheduleSource interface {
	FindByStartMinute(ctx context.Context, minute time.Time) ([]*schedule.AssignedInterval, error)
}

// AssignmentConnector attaches a student's ongoing presence to an assignment
// the moment it starts.
type AssignmentConnector interface {
	ConnectOnAssignmentStart(ctx context.Context, assignedID string) (*presence.ActualInterval, error)
}

// LinkedSessionFinder returns the presence sessions linked to an assignment.
type LinkedSessionFinder interface {
	FindByAssignedID(ctx context.Context, assignedID string) ([]*presence.ActualInterval, error)
}

// DispatchGuard deduplicates notifications across worker restarts. The first
// caller for a (template, assignment, recipient) triple wins; later calls
// within the guard TTL are suppressed. A nil guard disables deduplication,
// which is safe because minute matching already gives at-most-once delivery
// during normal operation.
type DispatchGuard interface {
	FirstDispatch(ctx context.Context, template, assignedID, recipientID string) (bool, error)
}

// MonitorTickConfig contains configuration for the monitor tick job.
type MonitorTickConfig struct {
	// ReminderLead is how far before the start the reminder fires.
	ReminderLead time.Duration

	// NoShowDelay is how long after the start the no-show check fires.
	NoShowDelay time.Duration
}

// DefaultMonitorTickConfig returns sensible defaults.
func DefaultMonitorTickConfig() MonitorTickConfig {
	return MonitorTickConfig{
		ReminderLead: 10 * time.Minute,
		NoShowDelay:  10 * time.Minute,
	}
}

// NewMonitorTickJob creates the attendance monitor job.
func NewMonitorTickJob(
	assigned AssignedScheduleSource,
	students student.Repository,
	guardians student.GuardianRepository,
	connector AssignmentConnector,
	sessions LinkedSessionFinder,
	dispatch notification.Dispatcher,
	guard DispatchGuard,
	logger *slog.Logger,
	config MonitorTickConfig,
) *MonitorTickJob {
	if logger == nil {
		logger = slog.Default()
	}
	if config.ReminderLead <= 0 {
		config.ReminderLead = 10 * time.Minute
	}
	if config.NoShowDelay <= 0 {
		config.NoShowDelay = 10 * time.Minute
	}

	return &MonitorTickJob{
		assigned:  assigned,
		students:  students,
		guardians: guardians,
		connector: connector,
		sessions:  sessions,
		dispatch:  dispatch,
		guard:     guard,
		logger:    logger,
		config:    config,
	}
}

// Name returns the job name.
func (j *MonitorTickJob) Name() string {
	return "monitor_tick"
}

// Description returns a human-readable description.
func (j *MonitorTickJob) Description() string {
	return "Per-minute pass over the schedule: reminders, session starts, no-show alerts"
}

// Run executes the three passes for the given tick, in order. Pass errors
// are collected; the tick as a whole fails only when a pass could not even
// load its minute of the schedule.
func (j *MonitorTickJob) Run(ctx context.Context, tick time.Time) error {
	minute := timeutil.TruncateToMinute(tick.UTC())

	var firstErr error
	record := func(pass string, err error) {
		if err == nil {
			return
		}
		j.logger.Error("monitor pass failed", "pass", pass, "tick", minute, "error", err)
		if firstErr == nil {
			firstErr = fmt.Errorf("%s pass: %w", pass, err)
		}
	}

	record("reminder", j.reminderPass(ctx, minute))
	record("start", j.startPass(ctx, minute))
	record("no_show", j.noShowPass(ctx, minute))

	return firstErr
}

// ─────────────────────────────────────────────────────────────────────────────
// Pass 1: starting-soon reminders
// ─────────────────────────────────────────────────────────────────────────────

func (j *MonitorTickJob) reminderPass(ctx context.Context, tick time.Time) error {
	startMinute := tick.Add(j.config.ReminderLead)
	assignments, err := j.assigned.FindByStartMinute(ctx, startMinute)
	if err != nil {
		return fmt.Errorf("failed to load assignments starting at %s: %w", startMinute, err)
	}

	for _, a := range assignments {
		j.notifyAssignment(ctx, a, notification.TemplateStartingSoon)
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Pass 2: session start
// ─────────────────────────────────────────────────────────────────────────────

// startPass reconciles presence before notifying, so that a student already
// sitting in the room is linked to the assignment by the time the start
// message goes out.
func (j *MonitorTickJob) startPass(ctx context.Context, tick time.Time) error {
	assignments, err := j.assigned.FindByStartMinute(ctx, tick)
	if err != nil {
		return fmt.Errorf("failed to load assignments starting at %s: %w", tick, err)
	}

	for _, a := range assignments {
		if _, err := j.connector.ConnectOnAssignmentStart(ctx, a.ID); err != nil {
			// The session still started; the start notice goes out anyway.
			j.logger.Error("failed to connect presence on assignment start",
				"assigned_id", a.ID,
				"student_id", a.StudentID,
				"error", err,
			)
		}

		j.notifyAssignment(ctx, a, notification.TemplateSessionStart)
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Pass 3: no-show alerts
// ─────────────────────────────────────────────────────────────────────────────

// noShowPass alerts when an assignment that started NoShowDelay ago has no
// linked presence at all. A linked session counts even if it already ended:
// the student did show up.
func (j *MonitorTickJob) noShowPass(ctx context.Context, tick time.Time) error {
	startMinute := tick.Add(-j.config.NoShowDelay)
	assignments, err := j.assigned.FindByStartMinute(ctx, startMinute)
	if err != nil {
		return fmt.Errorf("failed to load assignments starting at %s: %w", startMinute, err)
	}

	for _, a := range assignments {
		linked, err := j.sessions.FindByAssignedID(ctx, a.ID)
		if err != nil {
			j.logger.Error("failed to load linked sessions",
				"assigned_id", a.ID,
				"error", err,
			)
			continue
		}
		if len(linked) > 0 {
			continue
		}

		j.notifyAssignment(ctx, a, notification.TemplateNoShow)
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Delivery
// ─────────────────────────────────────────────────────────────────────────────

// recipient is a delivery target: the student themselves or one of their
// guardians.
type recipient struct {
	id     string
	chatID shared.TelegramChatID
}

// notifyAssignment sends one template about one assignment to the student and
// their guardians. Per-recipient failures are logged and do not stop the rest.
func (j *MonitorTickJob) notifyAssignment(ctx context.Context, a *schedule.AssignedInterval, template notification.TemplateID) {
	st, err := j.students.GetByID(ctx, a.StudentID)
	if err != nil {
		j.logger.Error("failed to load student for notification",
			"student_id", a.StudentID,
			"assigned_id", a.ID,
			"error", err,
		)
		return
	}

	vars := map[string]string{
		"student_name": st.FullName,
		"title":        a.Title,
		"time":         timeutil.FormatTime(a.StartTime),
		"range":        timeutil.FormatRange(a.StartTime, a.EndTime),
	}

	recipients := make([]recipient, 0, 3)
	if st.CanReceiveNotifications() {
		recipients = append(recipients, recipient{id: st.ID, chatID: st.TelegramChatID})
	}

	guardians, err := j.guardians.FindByStudent(ctx, a.StudentID)
	if err != nil {
		j.logger.Error("failed to load guardians",
			"student_id", a.StudentID,
			"error", err,
		)
	}
	for _, g := range guardians {
		if g.TelegramChatID.IsValid() {
			recipients = append(recipients, recipient{id: g.ID, chatID: g.TelegramChatID})
		}
	}

	for _, r := range recipients {
		j.deliver(ctx, r, a.ID, template, vars)
	}
}

// deliver sends one notification to one recipient, going through the
// restart-dedup guard first.
func (j *MonitorTickJob) deliver(ctx context.Context, r recipient, assignedID string, template notification.TemplateID, vars map[string]string) {
	if j.guard != nil {
		first, err := j.guard.FirstDispatch(ctx, template.String(), assignedID, r.id)
		if err != nil {
			// Guard outage must not silence notifications; fail open.
			j.logger.Warn("dispatch guard unavailable, sending anyway",
				"template", template,
				"recipient_id", r.id,
				"error", err,
			)
		} else if !first {
			j.logger.Debug("notification already sent, skipping",
				"template", template,
				"assigned_id", assignedID,
				"recipient_id", r.id,
			)
			return
		}
	}

	n, err := notification.New(r.id, r.chatID, template, vars)
	if err != nil {
		j.logger.Error("failed to build notification",
			"template", template,
			"recipient_id", r.id,
			"error", err,
		)
		return
	}

	results := j.dispatch.Dispatch(ctx, n)
	for _, res := range results {
		if !res.Success {
			j.logger.Error("notification delivery failed",
				"template", template,
				"recipient_id", r.id,
				"channel", res.Channel,
				"error", res.Error,
			)
		}
	}
}
