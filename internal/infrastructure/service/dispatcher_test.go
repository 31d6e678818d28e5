package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/oqu-hub/oqu-study-hub/internal/domain/notification"
	"github.com/oqu-hub/oqu-study-hub/internal/domain/shared"
)

type fakeChannel struct {
	channelType notification.ChannelType
	sent        []*notification.Notification
	failWith    error
}

func (f *fakeChannel) Type() notification.ChannelType {
	return f.channelType
}

func (f *fakeChannel) Dispatch(_ context.Context, n *notification.Notification) notification.DeliveryResult {
	if f.failWith != nil {
		return notification.NewFailureResult(f.channelType, f.failWith)
	}
	f.sent = append(f.sent, n)
	return notification.NewSuccessResult(f.channelType, "msg-1")
}

type fakePrefs struct {
	disabled map[string]bool // key: userID + "/" + channel
}

func (f *fakePrefs) IsChannelEnabled(_ context.Context, userID string, _ notification.TemplateID, channel notification.ChannelType) (bool, error) {
	return !f.disabled[userID+"/"+channel.String()], nil
}

func mustNotification(t *testing.T, recipientID string) *notification.Notification {
	t.Helper()
	n, err := notification.New(recipientID, shared.TelegramChatID(123), notification.TemplateNoShow, map[string]string{
		"student_name": "Aigerim",
		"title":        "Math tutoring",
		"time":         "10:00",
	})
	assert.NoError(t, err)
	return n
}

func TestDispatch_EnabledChannelsOnly(t *testing.T) {
	tg := &fakeChannel{channelType: notification.ChannelTypeTelegram}
	email := &fakeChannel{channelType: notification.ChannelTypeEmail}
	prefs := &fakePrefs{disabled: map[string]bool{"user-1/email": true}}

	d := NewDispatcher([]notification.Channel{tg, email}, prefs, nil)

	results := d.Dispatch(context.Background(), mustNotification(t, "user-1"))

	assert.Len(t, results, 1)
	assert.True(t, results[0].Success)
	assert.Equal(t, notification.ChannelTypeTelegram, results[0].Channel)
	assert.Len(t, tg.sent, 1)
	assert.Empty(t, email.sent)
}

func TestDispatch_FailureDoesNotStopOtherChannels(t *testing.T) {
	tg := &fakeChannel{channelType: notification.ChannelTypeTelegram, failWith: errors.New("boom")}
	email := &fakeChannel{channelType: notification.ChannelTypeEmail}

	d := NewDispatcher([]notification.Channel{tg, email}, &fakePrefs{}, nil)

	results := d.Dispatch(context.Background(), mustNotification(t, "user-1"))

	assert.Len(t, results, 2)
	assert.False(t, results[0].Success)
	assert.True(t, results[1].Success)
	assert.Len(t, email.sent, 1)
}

func TestPreferenceService_DefaultsToEnabled(t *testing.T) {
	svc := NewPreferenceService(&stubPrefRepo{})

	enabled, err := svc.IsChannelEnabled(context.Background(), "user-1", notification.TemplateDailyDigest, notification.ChannelTypeTelegram)
	assert.NoError(t, err)
	assert.True(t, enabled)
}

func TestPreferenceService_StoredOptOutWins(t *testing.T) {
	repo := &stubPrefRepo{stored: &notification.Preference{
		UserID:   "user-1",
		Template: notification.TemplateDailyDigest,
		Channel:  notification.ChannelTypeTelegram,
		Enabled:  false,
	}}
	svc := NewPreferenceService(repo)

	enabled, err := svc.IsChannelEnabled(context.Background(), "user-1", notification.TemplateDailyDigest, notification.ChannelTypeTelegram)
	assert.NoError(t, err)
	assert.False(t, enabled)
}

type stubPrefRepo struct {
	stored *notification.Preference
}

func (s *stubPrefRepo) Get(_ context.Context, _ string, _ notification.TemplateID, _ notification.ChannelType) (*notification.Preference, error) {
	return s.stored, nil
}

func (s *stubPrefRepo) Upsert(_ context.Context, p *notification.Preference) error {
	s.stored = p
	return nil
}

func (s *stubPrefRepo) FindByUser(_ context.Context, _ string) ([]*notification.Preference, error) {
	if s.stored == nil {
		return nil, nil
	}
	return []*notification.Preference{s.stored}, nil
}
