package controller

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Freeeeeet/lesson_bot/internal/dialog"
	"github.com/Freeeeeet/lesson_bot/internal/model"
	"github.com/Freeeeeet/lesson_bot/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// handleCallbackQuery маршрутизирует нажатия inline-кнопок.
// Формат данных: "prefix:action[:args]".
func (c *BotController) handleCallbackQuery(ctx context.Context, b *bot.Bot, update *models.Update) {
	callback := update.CallbackQuery
	if callback == nil {
		return
	}

	c.answerCallback(ctx, callback.ID, "")

	data := callback.Data
	if data == callbackIgnore {
		return
	}

	parts := strings.Split(data, ":")
	if len(parts) < 2 {
		c.logger.Warn("Invalid callback format", zap.String("data", data))
		return
	}

	switch parts[0] {
	case "dlg":
		c.routeDialogCallback(ctx, callback, parts[1:])
	case "rs":
		c.routeRescheduleCallback(ctx, callback, parts[1:])
	case "tcal":
		c.routeTeacherCalendar(ctx, callback, parts[1:])
	case "lsn":
		c.routeLessonCallback(ctx, callback, parts[1:])
	default:
		c.logger.Warn("Unknown callback prefix", zap.String("data", data))
	}
}

// routeDialogCallback переводит callback в типизированный ввод машины
func (c *BotController) routeDialogCallback(ctx context.Context, callback *models.CallbackQuery, parts []string) {
	switch parts[0] {
	case "role":
		if len(parts) != 2 {
			return
		}
		c.applyDialogInput(ctx, callback, dialog.RoleChosen{Role: dialog.Role(parts[1])})

	case "cp":
		id, ok := parseID(parts)
		if !ok {
			return
		}
		c.applyDialogInput(ctx, callback, dialog.CounterpartChosen{ID: id})

	case "date":
		date, ok := parseDate(parts)
		if !ok {
			return
		}
		c.applyDialogInput(ctx, callback, dialog.DateChosen{Date: date})

	case "hour":
		hour, ok := parseID(parts)
		if !ok {
			return
		}
		c.applyDialogInput(ctx, callback, dialog.TimeChosen{Hour: int(hour)})

	case "confirm":
		c.applyDialogInput(ctx, callback, dialog.Confirm{})

	case "cancel":
		c.applyDialogInput(ctx, callback, dialog.Cancel{})

	case "cal":
		c.flipCalendar(ctx, callback, "dlg", parts)
	}
}

// routeRescheduleCallback ведёт флоу переноса: выбор урока -> причина
// (текстом) -> дата -> время -> запрос учителю, и решения учителя по
// кнопкам под уведомлением
func (c *BotController) routeRescheduleCallback(ctx context.Context, callback *models.CallbackQuery, parts []string) {
	telegramID := callback.From.ID

	switch parts[0] {
	case "lesson":
		lessonID, ok := parseID(parts)
		if !ok {
			return
		}
		c.flows.setState(telegramID, flowRescheduleReason)
		c.flows.set(telegramID, "lesson_id", lessonID)
		c.editOrNotify(ctx, callback, "Опишите причину переноса:", nil)

	case "date":
		date, ok := parseDate(parts)
		if !ok {
			return
		}
		c.flows.set(telegramID, "new_date", date)
		c.editOrNotify(ctx, callback, "Выберите новое время:", hoursKeyboard("rs", c.schedule.Hours()))

	case "hour":
		hour, ok := parseID(parts)
		if !ok {
			return
		}
		c.submitReschedule(ctx, callback, int(hour))

	case "cal":
		c.flipCalendar(ctx, callback, "rs", parts)

	case "cancel":
		c.flows.clear(telegramID)
		c.editOrNotify(ctx, callback, "Перенос отменён.", nil)

	case "accept":
		if len(parts) != 2 {
			return
		}
		c.decideReschedule(ctx, callback, parts[1], true)

	case "reject":
		if len(parts) != 2 {
			return
		}
		c.decideReschedule(ctx, callback, parts[1], false)
	}
}

// acceptRescheduleReason - причина получена, дальше выбор новой даты
func (c *BotController) acceptRescheduleReason(ctx context.Context, telegramID, chatID int64, reason string) {
	c.flows.set(telegramID, "reason", reason)
	c.flows.setState(telegramID, flowRescheduleReason) // Остаёмся во флоу до отправки запроса

	now := time.Now()
	c.sendKeyboard(ctx, chatID, "Выберите новую дату:", calendarKeyboard("rs", now.Year(), now.Month()))
}

func (c *BotController) submitReschedule(ctx context.Context, callback *models.CallbackQuery, hour int) {
	telegramID := callback.From.ID

	student, err := c.users.GetStudentByTelegramID(ctx, telegramID)
	if err != nil || student == nil {
		c.editOrNotify(ctx, callback, "❌ Перенос доступен только ученикам.", nil)
		return
	}

	lessonID, ok := c.flows.get(telegramID, "lesson_id")
	if !ok {
		c.editOrNotify(ctx, callback, "Диалог переноса потерян, начните заново: /reschedule", nil)
		return
	}
	newDateRaw, ok := c.flows.get(telegramID, "new_date")
	if !ok {
		c.editOrNotify(ctx, callback, "Сначала выберите дату.", nil)
		return
	}
	reason, _ := c.flows.get(telegramID, "reason")

	newDate, _ := newDateRaw.(time.Time)
	newSlot := model.NewSlot(newDate, hour)

	_, err = c.reschedule.Request(ctx, student.ID, asInt64(lessonID), newSlot, asString(reason))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrConflictTeacher):
			c.editOrNotify(ctx, callback, "⚠️ У учителя уже есть урок в это время. Выберите другое:", hoursKeyboard("rs", c.schedule.Hours()))
			return
		case errors.Is(err, service.ErrConflictStudent):
			c.editOrNotify(ctx, callback, "⚠️ У вас уже есть урок в это время. Выберите другое:", hoursKeyboard("rs", c.schedule.Hours()))
			return
		case errors.Is(err, service.ErrValidation):
			c.editOrNotify(ctx, callback, validationText(err), nil)
			c.flows.clear(telegramID)
			return
		case errors.Is(err, service.ErrUnauthorized):
			c.editOrNotify(ctx, callback, "❌ Это не ваш урок.", nil)
			c.flows.clear(telegramID)
			return
		case errors.Is(err, service.ErrNotFound):
			c.editOrNotify(ctx, callback, "❌ Урок не найден.", nil)
			c.flows.clear(telegramID)
			return
		}

		c.logger.Error("Failed to request reschedule", zap.Int64("telegram_id", telegramID), zap.Error(err))
		c.editOrNotify(ctx, callback, msgTryLater, nil)
		return
	}

	c.flows.clear(telegramID)
	c.editOrNotify(ctx, callback, "📨 Запрос на перенос отправлен учителю.", nil)
}

// decideReschedule - решение учителя по запросу переноса
func (c *BotController) decideReschedule(ctx context.Context, callback *models.CallbackQuery, token string, accept bool) {
	telegramID := callback.From.ID

	teacher, err := c.users.GetTeacherByTelegramID(ctx, telegramID)
	if err != nil {
		c.logger.Error("Failed to get teacher", zap.Int64("telegram_id", telegramID), zap.Error(err))
		c.editOrNotify(ctx, callback, msgTryLater, nil)
		return
	}
	if teacher == nil {
		c.answerAlert(ctx, callback.ID, "❌ Решение может принять только учитель")
		return
	}

	var req *model.RescheduleRequest
	if accept {
		req, err = c.reschedule.Accept(ctx, token, teacher.ID)
	} else {
		req, err = c.reschedule.Reject(ctx, token, teacher.ID)
	}

	if err != nil {
		switch {
		case errors.Is(err, service.ErrConflictTeacher), errors.Is(err, service.ErrConflictStudent):
			// Слот успели занять: запрос остаётся открытым
			c.answerAlert(ctx, callback.ID, "⚠️ Новый слот уже занят. Запрос остался открытым, попросите ученика выбрать другое время.")
			return
		case errors.Is(err, service.ErrUnauthorized):
			c.answerAlert(ctx, callback.ID, "❌ Это запрос к другому учителю")
			return
		case errors.Is(err, service.ErrValidation):
			c.editOrNotify(ctx, callback, "Запрос уже закрыт или устарел.", nil)
			return
		case errors.Is(err, service.ErrNotFound):
			c.editOrNotify(ctx, callback, "❌ Запрос не найден.", nil)
			return
		}

		c.logger.Error("Failed to decide reschedule", zap.String("token", token), zap.Error(err))
		c.editOrNotify(ctx, callback, msgTryLater, nil)
		return
	}

	if accept {
		c.editOrNotify(ctx, callback, fmt.Sprintf("✅ Урок перенесён на %s.", req.NewSlot), nil)
	} else {
		c.editOrNotify(ctx, callback, "Запрос на перенос отклонён.", nil)
	}
}

// routeTeacherCalendar - календарь учителя: навигация и просмотр дня
func (c *BotController) routeTeacherCalendar(ctx context.Context, callback *models.CallbackQuery, parts []string) {
	switch parts[0] {
	case "cal":
		c.flipCalendar(ctx, callback, "tcal", parts)

	case "date":
		date, ok := parseDate(parts)
		if !ok {
			return
		}
		c.showDaySchedule(ctx, callback, date)
	}
}

func (c *BotController) showDaySchedule(ctx context.Context, callback *models.CallbackQuery, date time.Time) {
	telegramID := callback.From.ID

	teacher, err := c.users.GetTeacherByTelegramID(ctx, telegramID)
	if err != nil || teacher == nil {
		c.editOrNotify(ctx, callback, "❌ Календарь доступен только учителям.", nil)
		return
	}

	lessons, err := c.schedule.GetDaySchedule(ctx, teacher.ID, date)
	if err != nil {
		c.logger.Error("Failed to get day schedule", zap.Int64("teacher_id", teacher.ID), zap.Error(err))
		c.editOrNotify(ctx, callback, msgTryLater, nil)
		return
	}

	day := date.Format("02.01.2006")
	if len(lessons) == 0 {
		c.editOrNotify(ctx, callback, fmt.Sprintf("На %s уроков нет.", day), nil)
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "🗓 Расписание на %s:\n", day)
	var rows [][]models.InlineKeyboardButton
	for i, lesson := range lessons {
		student, err := c.users.GetStudent(ctx, lesson.StudentID)
		name := "?"
		if err == nil && student != nil {
			name = student.Name
		}
		fmt.Fprintf(&sb, "%d. %02d:00 - %s\n", i+1, lesson.Slot.Hour, name)
		rows = append(rows, []models.InlineKeyboardButton{
			{Text: fmt.Sprintf("✖️ Отменить урок %d", i+1), CallbackData: fmt.Sprintf("lsn:cancel:%d", lesson.ID)},
		})
	}

	c.editOrNotify(ctx, callback, sb.String(), &models.InlineKeyboardMarkup{InlineKeyboard: rows})
}

func (c *BotController) routeLessonCallback(ctx context.Context, callback *models.CallbackQuery, parts []string) {
	if parts[0] != "cancel" {
		return
	}
	lessonID, ok := parseID(parts)
	if !ok {
		return
	}

	telegramID := callback.From.ID
	teacher, err := c.users.GetTeacherByTelegramID(ctx, telegramID)
	if err != nil || teacher == nil {
		c.answerAlert(ctx, callback.ID, "❌ Отменять уроки может только учитель")
		return
	}

	if err := c.schedule.CancelLesson(ctx, lessonID, teacher.ID); err != nil {
		switch {
		case errors.Is(err, service.ErrUnauthorized):
			c.answerAlert(ctx, callback.ID, "❌ Это урок другого учителя")
		case errors.Is(err, service.ErrNotFound):
			c.editOrNotify(ctx, callback, "❌ Урок не найден.", nil)
		default:
			c.logger.Error("Failed to cancel lesson", zap.Int64("lesson_id", lessonID), zap.Error(err))
			c.editOrNotify(ctx, callback, msgTryLater, nil)
		}
		return
	}

	c.editOrNotify(ctx, callback, "Урок отменён.", nil)
}

// flipCalendar перелистывает месяц в календарной клавиатуре
func (c *BotController) flipCalendar(ctx context.Context, callback *models.CallbackQuery, prefix string, parts []string) {
	if len(parts) != 2 {
		return
	}
	ym := strings.SplitN(parts[1], "-", 2)
	if len(ym) != 2 {
		return
	}
	year, err1 := strconv.Atoi(ym[0])
	month, err2 := strconv.Atoi(ym[1])
	if err1 != nil || err2 != nil || month < 1 || month > 12 {
		return
	}

	c.editOrNotify(ctx, callback, "Выберите дату:", calendarKeyboard(prefix, year, time.Month(month)))
}

func (c *BotController) answerCallback(ctx context.Context, callbackID, text string) {
	c.bot.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
	})
}

func (c *BotController) answerAlert(ctx context.Context, callbackID, text string) {
	c.bot.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
		ShowAlert:       true,
	})
}

func parseID(parts []string) (int64, bool) {
	if len(parts) != 2 {
		return 0, false
	}
	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func parseDate(parts []string) (time.Time, bool) {
	if len(parts) != 2 {
		return time.Time{}, false
	}
	date, err := time.Parse("2006-01-02", parts[1])
	if err != nil {
		return time.Time{}, false
	}
	return date, true
}
