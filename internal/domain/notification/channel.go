package notification

import (
	"context"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// CHANNEL TYPE
// ══════════════════════════════════════════════════════════════════════════════

// ChannelType определяет тип канала доставки уведомлений.
type ChannelType string

const (
	// ChannelTypeTelegram - доставка через Telegram Bot API.
	ChannelTypeTelegram ChannelType = "telegram"

	// ChannelTypeEmail - доставка по email (на будущее).
	ChannelTypeEmail ChannelType = "email"
)

// IsValid проверяет корректность типа канала.
func (ct ChannelType) IsValid() bool {
	switch ct {
	case ChannelTypeTelegram, ChannelTypeEmail:
		return true
	default:
		return false
	}
}

// String возвращает строковое представление типа канала.
func (ct ChannelType) String() string {
	return string(ct)
}

// ══════════════════════════════════════════════════════════════════════════════
// DELIVERY RESULT
// ══════════════════════════════════════════════════════════════════════════════

// DeliveryResult представляет результат доставки уведомления.
type DeliveryResult struct {
	// Success - успешно ли доставлено.
	Success bool

	// MessageID - ID отправленного сообщения (для Telegram).
	MessageID string

	// Channel - канал, через который было отправлено.
	Channel ChannelType

	// DeliveredAt - время попытки доставки.
	DeliveredAt time.Time

	// Error - ошибка доставки (если Success = false).
	Error error
}

// NewSuccessResult создаёт результат успешной доставки.
func NewSuccessResult(channel ChannelType, messageID string) DeliveryResult {
	return DeliveryResult{
		Success:     true,
		MessageID:   messageID,
		Channel:     channel,
		DeliveredAt: time.Now().UTC(),
	}
}

// NewFailureResult создаёт результат неудачной доставки.
func NewFailureResult(channel ChannelType, err error) DeliveryResult {
	return DeliveryResult{
		Success:     false,
		Channel:     channel,
		DeliveredAt: time.Now().UTC(),
		Error:       err,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CHANNEL INTERFACE
// ══════════════════════════════════════════════════════════════════════════════

// Channel определяет интерфейс канала доставки. Набор каналов закрытый и
// собирается явно при старте процесса, без глобального реестра.
type Channel interface {
	// Type возвращает тип канала.
	Type() ChannelType

	// Dispatch отправляет уведомление. Ошибка доставки возвращается в
	// DeliveryResult, а не паникой и не прерыванием батча.
	Dispatch(ctx context.Context, n *Notification) DeliveryResult
}

// ══════════════════════════════════════════════════════════════════════════════
// DISPATCHER / PREFERENCES
// ══════════════════════════════════════════════════════════════════════════════

// Dispatcher отправляет уведомление всем включённым каналам получателя.
type Dispatcher interface {
	// Dispatch доставляет уведомление по всем каналам, разрешённым
	// настройками получателя. Возвращает результат каждой попытки.
	Dispatch(ctx context.Context, n *Notification) []DeliveryResult
}

// PreferenceChecker отвечает на вопрос «хочет ли получатель это уведомление
// в этом канале». Проверяется перед каждой отправкой.
type PreferenceChecker interface {
	IsChannelEnabled(ctx context.Context, userID string, template TemplateID, channel ChannelType) (bool, error)
}

// Preference представляет одну настройку получателя.
type Preference struct {
	UserID   string
	Template TemplateID
	Channel  ChannelType
	Enabled  bool
}

// PreferenceRepository определяет интерфейс хранения настроек уведомлений.
type PreferenceRepository interface {
	// Get возвращает настройку. Возвращает (nil, nil), если настройка не
	// задана: её отсутствие трактуется вызывающим кодом как значение по
	// умолчанию.
	Get(ctx context.Context, userID string, template TemplateID, channel ChannelType) (*Preference, error)

	// Upsert сохраняет настройку поверх существующей.
	Upsert(ctx context.Context, p *Preference) error

	// FindByUser возвращает все настройки получателя.
	FindByUser(ctx context.Context, userID string) ([]*Preference, error)
}
