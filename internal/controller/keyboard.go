package controller

import (
	"fmt"
	"time"

	"github.com/Freeeeeet/lesson_bot/internal/dialog"
	"github.com/go-telegram/bot/models"
)

const callbackIgnore = "ignore"

// calendarKeyboard строит месячную сетку дат. Навигация только вперёд:
// прошедшие месяцы недоступны, прошедшие дни в текущем месяце - пустышки.
// prefix разделяет календари разных флоу (бронирование / перенос /
// расписание учителя).
func calendarKeyboard(prefix string, year int, month time.Month) *models.InlineKeyboardMarkup {
	var rows [][]models.InlineKeyboardButton

	rows = append(rows, []models.InlineKeyboardButton{
		{Text: fmt.Sprintf("%s %d", monthNames[month-1], year), CallbackData: callbackIgnore},
	})

	var weekdays []models.InlineKeyboardButton
	for _, day := range []string{"Пн", "Вт", "Ср", "Чт", "Пт", "Сб", "Вс"} {
		weekdays = append(weekdays, models.InlineKeyboardButton{Text: day, CallbackData: callbackIgnore})
	}
	rows = append(rows, weekdays)

	today := time.Now().UTC().Truncate(24 * time.Hour)
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	// Понедельник - первый день недели
	offset := (int(first.Weekday()) + 6) % 7

	var row []models.InlineKeyboardButton
	for i := 0; i < offset; i++ {
		row = append(row, models.InlineKeyboardButton{Text: " ", CallbackData: callbackIgnore})
	}

	for day := first; day.Month() == month; day = day.AddDate(0, 0, 1) {
		btn := models.InlineKeyboardButton{Text: fmt.Sprintf("%d", day.Day()), CallbackData: callbackIgnore}
		if !day.Before(today) {
			btn.CallbackData = fmt.Sprintf("%s:date:%s", prefix, day.Format("2006-01-02"))
		} else {
			btn.Text = "·"
		}
		row = append(row, btn)

		if len(row) == 7 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		for len(row) < 7 {
			row = append(row, models.InlineKeyboardButton{Text: " ", CallbackData: callbackIgnore})
		}
		rows = append(rows, row)
	}

	nav := []models.InlineKeyboardButton{}
	if month != today.Month() || year != today.Year() {
		prev := first.AddDate(0, -1, 0)
		nav = append(nav, models.InlineKeyboardButton{
			Text:         "<",
			CallbackData: fmt.Sprintf("%s:cal:%d-%d", prefix, prev.Year(), int(prev.Month())),
		})
	}
	next := first.AddDate(0, 1, 0)
	nav = append(nav, models.InlineKeyboardButton{
		Text:         ">",
		CallbackData: fmt.Sprintf("%s:cal:%d-%d", prefix, next.Year(), int(next.Month())),
	})
	rows = append(rows, nav)

	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

var monthNames = [...]string{
	"Январь", "Февраль", "Март", "Апрель", "Май", "Июнь",
	"Июль", "Август", "Сентябрь", "Октябрь", "Ноябрь", "Декабрь",
}

// hoursKeyboard строит сетку доступных часов, по четыре в ряд
func hoursKeyboard(prefix string, hours []int) *models.InlineKeyboardMarkup {
	var rows [][]models.InlineKeyboardButton
	var row []models.InlineKeyboardButton

	for _, h := range hours {
		row = append(row, models.InlineKeyboardButton{
			Text:         fmt.Sprintf("%02d:00", h),
			CallbackData: fmt.Sprintf("%s:hour:%d", prefix, h),
		})
		if len(row) == 4 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}

	rows = append(rows, []models.InlineKeyboardButton{
		{Text: "❌ Отмена", CallbackData: prefix + ":cancel"},
	})

	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// rolesKeyboard - выбор роли в начале диалога бронирования
func rolesKeyboard(roles []dialog.Role) *models.InlineKeyboardMarkup {
	var rows [][]models.InlineKeyboardButton
	for _, role := range roles {
		text := "🎓 Я учитель"
		if role == dialog.RoleStudent {
			text = "📖 Я ученик"
		}
		rows = append(rows, []models.InlineKeyboardButton{
			{Text: text, CallbackData: "dlg:role:" + string(role)},
		})
	}
	rows = append(rows, []models.InlineKeyboardButton{
		{Text: "❌ Отмена", CallbackData: "dlg:cancel"},
	})
	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// counterpartsKeyboard - выбор второй стороны урока
func counterpartsKeyboard(counterparts []dialog.Counterpart) *models.InlineKeyboardMarkup {
	var rows [][]models.InlineKeyboardButton
	for _, cp := range counterparts {
		rows = append(rows, []models.InlineKeyboardButton{
			{Text: cp.Name, CallbackData: fmt.Sprintf("dlg:cp:%d", cp.ID)},
		})
	}
	rows = append(rows, []models.InlineKeyboardButton{
		{Text: "❌ Отмена", CallbackData: "dlg:cancel"},
	})
	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// confirmKeyboard - финальное подтверждение бронирования
func confirmKeyboard() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{InlineKeyboard: [][]models.InlineKeyboardButton{
		{
			{Text: "✅ Подтвердить", CallbackData: "dlg:confirm"},
			{Text: "❌ Отмена", CallbackData: "dlg:cancel"},
		},
	}}
}

// decisionKeyboard - кнопки учителя под запросом переноса
func decisionKeyboard(token string) *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{InlineKeyboard: [][]models.InlineKeyboardButton{
		{
			{Text: "✅ Перенести", CallbackData: "rs:accept:" + token},
			{Text: "❌ Отклонить", CallbackData: "rs:reject:" + token},
		},
	}}
}
