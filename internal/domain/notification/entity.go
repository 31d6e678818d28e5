// Package notification содержит доменную модель уведомлений Oqu Study Hub.
// Ядро никогда не формирует готовый текст сообщения: оно передаёт каналу
// идентификатор шаблона и карту переменных, а рендеринг — забота канала.
package notification

import (
	"time"

	"github.com/google/uuid"

	"github.com/oqu-hub/oqu-study-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// TEMPLATE ID
// ══════════════════════════════════════════════════════════════════════════════

// TemplateID определяет тип уведомления. Набор закрытый: новые шаблоны
// добавляются сюда, а не регистрируются динамически.
type TemplateID string

const (
	// TemplateStartingSoon - занятие начнётся через несколько минут.
	// "⏰ Математика начнётся в 10:00"
	TemplateStartingSoon TemplateID = "starting_soon"

	// TemplateSessionStart - занятие началось.
	// "📚 Занятие «Математика» началось"
	TemplateSessionStart TemplateID = "session_start"

	// TemplateNoShow - студент не появился через 10 минут после начала.
	// "⚠️ Айгерим не подключилась к занятию 10:00"
	TemplateNoShow TemplateID = "no_show"

	// TemplateDailyDigest - ежедневная сводка расписания.
	// "📊 Сегодня: Математика 10:00, Физика 15:00"
	TemplateDailyDigest TemplateID = "daily_digest"
)

// IsValid проверяет, что идентификатор шаблона известен системе.
func (t TemplateID) IsValid() bool {
	switch t {
	case TemplateStartingSoon, TemplateSessionStart, TemplateNoShow, TemplateDailyDigest:
		return true
	default:
		return false
	}
}

// String возвращает строковое представление идентификатора.
func (t TemplateID) String() string {
	return string(t)
}

// ══════════════════════════════════════════════════════════════════════════════
// NOTIFICATION
// ══════════════════════════════════════════════════════════════════════════════

// Notification представляет одно уведомление для одного получателя.
// Поле Variables — данные для подстановки в шаблон; ядро не знает,
// как именно канал их отрисует.
type Notification struct {
	// ID - уникальный идентификатор уведомления.
	ID string

	// RecipientID - ID получателя (студент или родитель).
	RecipientID string

	// TelegramChatID - чат получателя в Telegram (если канал telegram).
	TelegramChatID shared.TelegramChatID

	// Template - идентификатор шаблона сообщения.
	Template TemplateID

	// Variables - переменные шаблона (имя студента, время занятия и т.д.).
	Variables map[string]string

	// CreatedAt - время создания.
	CreatedAt time.Time
}

// New создаёт уведомление. Неизвестный шаблон — ошибка домена.
func New(recipientID string, chatID shared.TelegramChatID, template TemplateID, variables map[string]string) (*Notification, error) {
	if !template.IsValid() {
		return nil, shared.ErrUnknownTemplate
	}
	if variables == nil {
		variables = make(map[string]string)
	}

	return &Notification{
		ID:             uuid.New().String(),
		RecipientID:    recipientID,
		TelegramChatID: chatID,
		Template:       template,
		Variables:      variables,
		CreatedAt:      time.Now().UTC(),
	}, nil
}
