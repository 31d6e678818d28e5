package telegram

import (
	"context"
	"fmt"
	"strconv"

	"github.com/oqu-hub/oqu-study-hub/internal/domain/notification"
	"github.com/oqu-hub/oqu-study-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// NOTIFICATION CHANNEL ADAPTER
// ══════════════════════════════════════════════════════════════════════════════

// Channel адаптирует Client под notification.Channel: получает шаблон и
// переменные, рендерит русский текст и отправляет его в чат получателя.
type Channel struct {
	client    *Client
	parseMode string
}

// NewChannel создаёт Telegram-канал доставки.
func NewChannel(client *Client, parseMode string) *Channel {
	if parseMode == "" {
		parseMode = "HTML"
	}
	return &Channel{client: client, parseMode: parseMode}
}

// Type возвращает тип канала.
func (c *Channel) Type() notification.ChannelType {
	return notification.ChannelTypeTelegram
}

// Dispatch отправляет уведомление. Ошибки возвращаются в DeliveryResult.
func (c *Channel) Dispatch(ctx context.Context, n *notification.Notification) notification.DeliveryResult {
	if !n.TelegramChatID.IsValid() {
		return notification.NewFailureResult(notification.ChannelTypeTelegram, shared.ErrInvalidChatID)
	}

	text, err := render(n.Template, n.Variables)
	if err != nil {
		return notification.NewFailureResult(notification.ChannelTypeTelegram, err)
	}

	msg, err := c.client.SendMessage(ctx, SendMessageParams{
		ChatID:    int64(n.TelegramChatID),
		Text:      text,
		ParseMode: c.parseMode,
	})
	if err != nil {
		return notification.NewFailureResult(notification.ChannelTypeTelegram,
			shared.WrapError("notification", "Dispatch", shared.ErrTelegramAPIFailed, "telegram dispatch failed", err))
	}

	return notification.NewSuccessResult(notification.ChannelTypeTelegram, strconv.FormatInt(msg.MessageID, 10))
}

// ─────────────────────────────────────────────────────────────────────────────
// Шаблоны сообщений
// ─────────────────────────────────────────────────────────────────────────────

// render превращает шаблон и переменные в готовый текст. Переменные:
//
//	student_name - имя студента
//	title        - название занятия
//	time         - время начала (HH:MM)
//	range        - интервал занятия (HH:MM-HH:MM)
//	date         - дата (DD.MM.YYYY)
//	schedule     - готовые строки расписания для дайджеста
func render(template notification.TemplateID, vars map[string]string) (string, error) {
	switch template {
	case notification.TemplateStartingSoon:
		return fmt.Sprintf("⏰ <b>%s</b> начнётся в %s", vars["title"], vars["time"]), nil

	case notification.TemplateSessionStart:
		return fmt.Sprintf("📚 Занятие <b>%s</b> (%s) началось", vars["title"], vars["range"]), nil

	case notification.TemplateNoShow:
		return fmt.Sprintf("⚠️ %s не подключился(ась) к занятию <b>%s</b> (начало %s)",
			vars["student_name"], vars["title"], vars["time"]), nil

	case notification.TemplateDailyDigest:
		return fmt.Sprintf("📊 Расписание на %s для %s:\n%s",
			vars["date"], vars["student_name"], vars["schedule"]), nil

	default:
		return "", shared.ErrUnknownTemplate
	}
}
