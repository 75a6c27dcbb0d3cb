package controller

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/lesson_bot/internal/dialog"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// handleBook начинает диалог бронирования. Старая сессия пользователя,
// если была, молча выбрасывается.
func (c *BotController) handleBook(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	telegramID := update.Message.From.ID
	chatID := update.Message.Chat.ID

	teacher, err := c.users.GetTeacherByTelegramID(ctx, telegramID)
	if err != nil {
		c.logger.Error("Failed to get teacher", zap.Int64("telegram_id", telegramID), zap.Error(err))
		c.sendMessage(ctx, chatID, msgTryLater)
		return
	}
	student, err := c.users.GetStudentByTelegramID(ctx, telegramID)
	if err != nil {
		c.logger.Error("Failed to get student", zap.Int64("telegram_id", telegramID), zap.Error(err))
		c.sendMessage(ctx, chatID, msgTryLater)
		return
	}

	if teacher == nil && student == nil {
		c.sendMessage(ctx, chatID,
			"Сначала нужно зарегистрироваться: /register_teacher или /register_student")
		return
	}

	session := c.sessions.Begin(telegramID, teacher, student)
	outcome := c.machine.Begin(session)

	text, kb := c.promptMessage(outcome.Prompt)
	c.sendKeyboard(ctx, chatID, text, kb)
}

// applyDialogInput прогоняет один ввод через машину диалога и рисует
// следующий шаг поверх сообщения с клавиатурой
func (c *BotController) applyDialogInput(ctx context.Context, callback *models.CallbackQuery, in dialog.Input) {
	telegramID := callback.From.ID

	session, err := c.sessions.Get(telegramID)
	if err != nil {
		// Таймаут всплывает на первом вводе после простоя
		c.editOrNotify(ctx, callback, "⌛ Диалог устарел, начните заново: /book", nil)
		return
	}
	if session == nil {
		c.editOrNotify(ctx, callback, "Нет активного диалога. Записаться: /book", nil)
		return
	}

	outcome, err := c.machine.Apply(ctx, session, in)
	if err != nil {
		c.logger.Error("Dialog step failed", zap.Int64("telegram_id", telegramID), zap.Error(err))
		c.editOrNotify(ctx, callback, msgTryLater, nil)
		return
	}

	if session.State.IsTerminal() {
		c.sessions.End(telegramID)
	}

	text, kb := c.promptMessage(outcome.Prompt)
	c.editOrNotify(ctx, callback, text, kb)
}

// promptMessage переводит PromptSpec в текст и клавиатуру
func (c *BotController) promptMessage(prompt dialog.PromptSpec) (string, *models.InlineKeyboardMarkup) {
	notice := ""
	if prompt.Notice != "" {
		notice = "⚠️ " + prompt.Notice + "\n\n"
	}

	switch prompt.Kind {
	case dialog.PromptRole:
		if len(prompt.Roles) == 0 {
			return notice + "Вам недоступна запись на уроки.", nil
		}
		return notice + "Кто записывает урок?", rolesKeyboard(prompt.Roles)

	case dialog.PromptCounterpart:
		if len(prompt.Counterparts) == 0 {
			return notice + "Некого записывать: у вас пока нет учеников. Добавить: /add_student", nil
		}
		return notice + "С кем будет урок?", counterpartsKeyboard(prompt.Counterparts)

	case dialog.PromptDate:
		now := time.Now()
		return notice + "Выберите дату:", calendarKeyboard("dlg", now.Year(), now.Month())

	case dialog.PromptTime:
		return notice + "Выберите время:", hoursKeyboard("dlg", prompt.Hours)

	case dialog.PromptConfirm:
		return notice + fmt.Sprintf("Записать урок на %s?", prompt.Slot), confirmKeyboard()

	case dialog.PromptCommitted:
		return fmt.Sprintf("✅ Урок записан на %s.", prompt.Slot), nil

	case dialog.PromptCancelled:
		return "Запись отменена.", nil
	}

	return notice + "Продолжайте: /book", nil
}

// editOrNotify правит сообщение с клавиатурой; если не вышло -
// отправляет новое
func (c *BotController) editOrNotify(ctx context.Context, callback *models.CallbackQuery, text string, kb *models.InlineKeyboardMarkup) {
	msg := callback.Message.Message
	if msg == nil {
		return
	}

	params := &bot.EditMessageTextParams{
		ChatID:    msg.Chat.ID,
		MessageID: msg.ID,
		Text:      text,
	}
	if kb != nil {
		params.ReplyMarkup = kb
	}

	if _, err := c.bot.EditMessageText(ctx, params); err != nil {
		c.logger.Warn("Failed to edit message, sending a new one",
			zap.Int64("chat_id", msg.Chat.ID),
			zap.Error(err),
		)
		c.sendKeyboard(ctx, msg.Chat.ID, text, kb)
	}
}
