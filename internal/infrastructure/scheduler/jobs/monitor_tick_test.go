package jobs

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/oqu-hub/oqu-study-hub/internal/domain/notification"
	"github.com/oqu-hub/oqu-study-hub/internal/domain/presence"
	"github.com/oqu-hub/oqu-study-hub/internal/domain/schedule"
	"github.com/oqu-hub/oqu-study-hub/internal/domain/shared"
	"github.com/oqu-hub/oqu-study-hub/internal/domain/student"
)

// ─────────────────────────────────────────────────────────────────────────────
// Fakes
// ─────────────────────────────────────────────────────────────────────────────

// eventLog records the order of side effects across fakes.
type eventLog struct {
	events []string
}

func (l *eventLog) add(format string, args ...interface{}) {
	l.events = append(l.events, fmt.Sprintf(format, args...))
}

type fakeAssignedSource struct {
	byMinute map[time.Time][]*schedule.AssignedInterval
}

func (f *fakeAssignedSource) FindByStartMinute(_ context.Context, minute time.Time) ([]*schedule.AssignedInterval, error) {
	return f.byMinute[minute.UTC()], nil
}

type fakeStudents struct {
	items map[string]*student.Student
}

func (f *fakeStudents) Create(_ context.Context, s *student.Student) error {
	f.items[s.ID] = s
	return nil
}

func (f *fakeStudents) GetByID(_ context.Context, id string) (*student.Student, error) {
	s, ok := f.items[id]
	if !ok {
		return nil, shared.ErrStudentNotFound
	}
	return s, nil
}

func (f *fakeStudents) Update(_ context.Context, s *student.Student) error {
	f.items[s.ID] = s
	return nil
}

func (f *fakeStudents) Exists(_ context.Context, id string) (bool, error) {
	_, ok := f.items[id]
	return ok, nil
}

func (f *fakeStudents) GetByStatus(_ context.Context, status student.Status) ([]*student.Student, error) {
	var out []*student.Student
	for _, s := range f.items {
		if s.Status == status {
			out = append(out, s)
		}
	}
	return out, nil
}

type fakeGuardians struct {
	byStudent map[string][]*student.Guardian
}

func (f *fakeGuardians) Create(_ context.Context, g *student.Guardian) error {
	f.byStudent[g.StudentID] = append(f.byStudent[g.StudentID], g)
	return nil
}

func (f *fakeGuardians) GetByID(_ context.Context, _ string) (*student.Guardian, error) {
	return nil, shared.ErrGuardianNotFound
}

func (f *fakeGuardians) FindByStudent(_ context.Context, studentID string) ([]*student.Guardian, error) {
	return f.byStudent[studentID], nil
}

type fakeConnector struct {
	log       *eventLog
	connected []string
}

func (f *fakeConnector) ConnectOnAssignmentStart(_ context.Context, assignedID string) (*presence.ActualInterval, error) {
	f.connected = append(f.connected, assignedID)
	if f.log != nil {
		f.log.add("connect:%s", assignedID)
	}
	return nil, nil
}

type fakeSessions struct {
	linked map[string][]*presence.ActualInterval
}

func (f *fakeSessions) FindByAssignedID(_ context.Context, assignedID string) ([]*presence.ActualInterval, error) {
	return f.linked[assignedID], nil
}

type fakeDispatcher struct {
	log  *eventLog
	sent []*notification.Notification
}

func (f *fakeDispatcher) Dispatch(_ context.Context, n *notification.Notification) []notification.DeliveryResult {
	f.sent = append(f.sent, n)
	if f.log != nil {
		f.log.add("dispatch:%s:%s", n.Template, n.RecipientID)
	}
	return []notification.DeliveryResult{notification.NewSuccessResult(notification.ChannelTypeTelegram, "msg-1")}
}

func (f *fakeDispatcher) templates() []notification.TemplateID {
	out := make([]notification.TemplateID, 0, len(f.sent))
	for _, n := range f.sent {
		out = append(out, n.Template)
	}
	return out
}

type fakeGuard struct {
	seen map[string]bool
}

func (f *fakeGuard) FirstDispatch(_ context.Context, template, assignedID, recipientID string) (bool, error) {
	key := template + ":" + assignedID + ":" + recipientID
	if f.seen[key] {
		return false, nil
	}
	if f.seen == nil {
		f.seen = make(map[string]bool)
	}
	f.seen[key] = true
	return true, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

func minuteAt(hour, min int) time.Time {
	return time.Date(2026, 3, 10, hour, min, 0, 0, time.UTC)
}

func testAssigned(id, studentID string, start time.Time) *schedule.AssignedInterval {
	return &schedule.AssignedInterval{
		ID:         id,
		StudentID:  studentID,
		ActivityID: "act-1",
		Title:      "Математика",
		StartTime:  start,
		EndTime:    start.Add(time.Hour),
	}
}

func testStudent(id string) *student.Student {
	return &student.Student{
		ID:             id,
		FullName:       "Айгерим Сатпаева",
		TelegramChatID: shared.TelegramChatID(100),
		Status:         student.StatusActive,
	}
}

type tickFixture struct {
	assigned   *fakeAssignedSource
	students   *fakeStudents
	guardians  *fakeGuardians
	connector  *fakeConnector
	sessions   *fakeSessions
	dispatcher *fakeDispatcher
	log        *eventLog
	job        *MonitorTickJob
}

func newTickFixture(guard DispatchGuard) *tickFixture {
	log := &eventLog{}
	f := &tickFixture{
		assigned:   &fakeAssignedSource{byMinute: make(map[time.Time][]*schedule.AssignedInterval)},
		students:   &fakeStudents{items: make(map[string]*student.Student)},
		guardians:  &fakeGuardians{byStudent: make(map[string][]*student.Guardian)},
		connector:  &fakeConnector{log: log},
		sessions:   &fakeSessions{linked: make(map[string][]*presence.ActualInterval)},
		dispatcher: &fakeDispatcher{log: log},
		log:        log,
	}
	f.job = NewMonitorTickJob(
		f.assigned,
		f.students,
		f.guardians,
		f.connector,
		f.sessions,
		f.dispatcher,
		guard,
		nil,
		DefaultMonitorTickConfig(),
	)
	return f
}

// ─────────────────────────────────────────────────────────────────────────────
// Tests
// ─────────────────────────────────────────────────────────────────────────────

func TestMonitorTick_ReminderPass(t *testing.T) {
	f := newTickFixture(nil)
	f.students.items["stu-1"] = testStudent("stu-1")

	// Session starts 10 minutes after the tick.
	start := minuteAt(10, 10)
	f.assigned.byMinute[start] = []*schedule.AssignedInterval{testAssigned("as-1", "stu-1", start)}

	err := f.job.Run(context.Background(), minuteAt(10, 0))
	assert.NoError(t, err)

	assert.Equal(t, []notification.TemplateID{notification.TemplateStartingSoon}, f.dispatcher.templates())
	assert.Empty(t, f.connector.connected)
}

func TestMonitorTick_StartPassConnectsBeforeNotifying(t *testing.T) {
	f := newTickFixture(nil)
	f.students.items["stu-1"] = testStudent("stu-1")

	start := minuteAt(10, 0)
	f.assigned.byMinute[start] = []*schedule.AssignedInterval{testAssigned("as-1", "stu-1", start)}

	err := f.job.Run(context.Background(), start)
	assert.NoError(t, err)

	assert.Equal(t, []string{"connect:as-1", "dispatch:session_start:stu-1"}, f.log.events)
}

func TestMonitorTick_NoShowFiresWithZeroLinkedSessions(t *testing.T) {
	f := newTickFixture(nil)
	f.students.items["stu-1"] = testStudent("stu-1")

	// Session started 10 minutes before the tick; nobody showed up.
	start := minuteAt(9, 50)
	f.assigned.byMinute[start] = []*schedule.AssignedInterval{testAssigned("as-1", "stu-1", start)}

	err := f.job.Run(context.Background(), minuteAt(10, 0))
	assert.NoError(t, err)

	assert.Equal(t, []notification.TemplateID{notification.TemplateNoShow}, f.dispatcher.templates())
}

func TestMonitorTick_NoShowSuppressedByAnyLinkedSession(t *testing.T) {
	f := newTickFixture(nil)
	f.students.items["stu-1"] = testStudent("stu-1")

	start := minuteAt(9, 50)
	f.assigned.byMinute[start] = []*schedule.AssignedInterval{testAssigned("as-1", "stu-1", start)}

	// A session that already ended still counts as showing up.
	ended := minuteAt(9, 55)
	session, err := presence.NewActualInterval("stu-1", "room-bot", minuteAt(9, 51))
	assert.NoError(t, err)
	session.Link("as-1")
	assert.NoError(t, session.Close(ended))
	f.sessions.linked["as-1"] = []*presence.ActualInterval{session}

	err = f.job.Run(context.Background(), minuteAt(10, 0))
	assert.NoError(t, err)

	assert.Empty(t, f.dispatcher.sent)
}

func TestMonitorTick_NotifiesGuardiansToo(t *testing.T) {
	f := newTickFixture(nil)
	f.students.items["stu-1"] = testStudent("stu-1")
	f.guardians.byStudent["stu-1"] = []*student.Guardian{
		{ID: "guard-1", StudentID: "stu-1", FullName: "Сауле Сатпаева", TelegramChatID: shared.TelegramChatID(200)},
	}

	start := minuteAt(10, 0)
	f.assigned.byMinute[start] = []*schedule.AssignedInterval{testAssigned("as-1", "stu-1", start)}

	err := f.job.Run(context.Background(), start)
	assert.NoError(t, err)

	assert.Len(t, f.dispatcher.sent, 2)
	assert.Equal(t, "stu-1", f.dispatcher.sent[0].RecipientID)
	assert.Equal(t, "guard-1", f.dispatcher.sent[1].RecipientID)
	assert.Equal(t, shared.TelegramChatID(200), f.dispatcher.sent[1].TelegramChatID)
}

func TestMonitorTick_GuardSuppressesSecondDelivery(t *testing.T) {
	guard := &fakeGuard{seen: make(map[string]bool)}
	f := newTickFixture(guard)
	f.students.items["stu-1"] = testStudent("stu-1")

	start := minuteAt(9, 50)
	f.assigned.byMinute[start] = []*schedule.AssignedInterval{testAssigned("as-1", "stu-1", start)}

	// Same tick processed twice, as after a worker restart inside the minute.
	assert.NoError(t, f.job.Run(context.Background(), minuteAt(10, 0)))
	assert.NoError(t, f.job.Run(context.Background(), minuteAt(10, 0)))

	assert.Len(t, f.dispatcher.sent, 1)
}

func TestMonitorTick_TemplateVariables(t *testing.T) {
	f := newTickFixture(nil)
	f.students.items["stu-1"] = testStudent("stu-1")

	// 05:00 UTC is 10:00 in Almaty.
	start := minuteAt(5, 0)
	f.assigned.byMinute[start] = []*schedule.AssignedInterval{testAssigned("as-1", "stu-1", start)}

	err := f.job.Run(context.Background(), start)
	assert.NoError(t, err)

	assert.Len(t, f.dispatcher.sent, 1)
	vars := f.dispatcher.sent[0].Variables
	assert.Equal(t, "Айгерим Сатпаева", vars["student_name"])
	assert.Equal(t, "Математика", vars["title"])
	assert.Equal(t, "10:00", vars["time"])
	assert.Equal(t, "10:00-11:00", vars["range"])
}

// ─────────────────────────────────────────────────────────────────────────────
// Daily digest
// ─────────────────────────────────────────────────────────────────────────────

type fakeDaySource struct {
	items []*schedule.AssignedInterval
}

func (f *fakeDaySource) FindBetween(_ context.Context, from, to time.Time) ([]*schedule.AssignedInterval, error) {
	var out []*schedule.AssignedInterval
	for _, a := range f.items {
		if !a.StartTime.Before(from) && a.StartTime.Before(to) {
			out = append(out, a)
		}
	}
	return out, nil
}

func TestDailyDigest_OneDigestPerStudent(t *testing.T) {
	students := &fakeStudents{items: map[string]*student.Student{"stu-1": testStudent("stu-1")}}
	guardians := &fakeGuardians{byStudent: make(map[string][]*student.Guardian)}
	dispatcher := &fakeDispatcher{}

	// Two sessions on the same Almaty day.
	source := &fakeDaySource{items: []*schedule.AssignedInterval{
		testAssigned("as-1", "stu-1", minuteAt(5, 0)),
		testAssigned("as-2", "stu-1", minuteAt(9, 0)),
	}}

	job := NewDailyDigestJob(source, students, guardians, dispatcher, nil, nil)
	err := job.Run(context.Background(), minuteAt(3, 0))
	assert.NoError(t, err)

	assert.Len(t, dispatcher.sent, 1)
	n := dispatcher.sent[0]
	assert.Equal(t, notification.TemplateDailyDigest, n.Template)
	assert.Equal(t, "10.03.2026", n.Variables["date"])
	assert.Contains(t, n.Variables["schedule"], "10:00-11:00")
	assert.Contains(t, n.Variables["schedule"], "14:00-15:00")
}

func TestDailyDigest_NoAssignmentsSendsNothing(t *testing.T) {
	students := &fakeStudents{items: map[string]*student.Student{"stu-1": testStudent("stu-1")}}
	guardians := &fakeGuardians{byStudent: make(map[string][]*student.Guardian)}
	dispatcher := &fakeDispatcher{}

	job := NewDailyDigestJob(&fakeDaySource{}, students, guardians, dispatcher, nil, nil)
	err := job.Run(context.Background(), minuteAt(3, 0))
	assert.NoError(t, err)
	assert.Empty(t, dispatcher.sent)
}
