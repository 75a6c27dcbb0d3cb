package controller

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/lesson_bot/internal/model"
	"github.com/Freeeeeet/lesson_bot/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// TelegramNotifier доставляет уведомления через telegram.
// Fire-and-forget: ошибка отправки логируется и глотается, породившая
// уведомление операция уже закоммичена и не откатывается.
type TelegramNotifier struct {
	bot    *bot.Bot
	logger *zap.Logger
}

func NewTelegramNotifier(botInstance *bot.Bot, logger *zap.Logger) *TelegramNotifier {
	return &TelegramNotifier{bot: botInstance, logger: logger}
}

func (n *TelegramNotifier) Notify(ctx context.Context, telegramID int64, event service.Notification) {
	if telegramID == 0 {
		return
	}

	text, kb := n.render(event)
	if text == "" {
		return
	}

	params := &bot.SendMessageParams{
		ChatID: telegramID,
		Text:   text,
	}
	if kb != nil {
		params.ReplyMarkup = kb
	}

	if _, err := n.bot.SendMessage(ctx, params); err != nil {
		n.logger.Error("Failed to deliver notification",
			zap.Int64("telegram_id", telegramID),
			zap.String("event", string(event.Event)),
			zap.Error(err),
		)
	}
}

func (n *TelegramNotifier) render(event service.Notification) (string, *models.InlineKeyboardMarkup) {
	teacherName := "?"
	if event.Teacher != nil {
		teacherName = event.Teacher.Name
	}

	switch event.Event {
	case service.EventLessonBooked:
		return fmt.Sprintf("📅 Вам назначен урок с %s: %s.", teacherName, event.Lesson.Slot), nil

	case service.EventLessonCancelled:
		return fmt.Sprintf("✖️ Урок с %s %s отменён.", teacherName, event.Lesson.Slot), nil

	case service.EventRescheduleRequested:
		studentName := "?"
		if event.Student != nil {
			studentName = event.Student.Name
		}
		text := fmt.Sprintf("🔁 Ученик %s просит перенести урок %s на %s.\nПричина: %s\n\nСогласны?",
			studentName, event.Lesson.Slot, event.Request.NewSlot, event.Request.Reason)
		return text, decisionKeyboard(event.Request.Token)

	case service.EventRescheduleDecided:
		if event.Accepted {
			return fmt.Sprintf("✅ Урок с %s перенесён на %s.", teacherName, event.Request.NewSlot), nil
		}
		if event.Request.Status == model.RescheduleStatusExpired {
			return fmt.Sprintf("⌛ Учитель не ответил на запрос переноса, урок остался на %s.", event.Lesson.Slot), nil
		}
		return fmt.Sprintf("❌ %s отклонил запрос на перенос, урок остался на %s.", teacherName, event.Lesson.Slot), nil
	}

	return "", nil
}
