package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/lesson_bot/internal/model"
	"github.com/Freeeeeet/lesson_bot/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

func (c *BotController) handleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	c.sendMessage(ctx, update.Message.Chat.ID,
		"👋 Привет! Я бот для записи на уроки.\n\n"+
			"🎓 Учитель: /register_teacher, затем добавляйте учеников и смотрите /calendar\n"+
			"📖 Ученик: /register_student с логином вашего учителя\n\n"+
			"📅 Записаться на урок: /book\n"+
			"🔁 Перенести урок: /reschedule\n\n"+
			"Полный список команд: /help")
}

func (c *BotController) handleHelp(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	c.sendMessage(ctx, update.Message.Chat.ID,
		"Команды:\n\n"+
			"/book - записаться на урок\n"+
			"/myschedule - мои уроки (ученик)\n"+
			"/calendar - календарь уроков (учитель)\n"+
			"/my_students - мои ученики (учитель)\n"+
			"/reschedule - перенести урок (ученик)\n"+
			"/register_teacher - регистрация учителя\n"+
			"/register_student - регистрация ученика\n"+
			"/add_student - добавить ученика вручную (учитель)\n"+
			"/cancel - прервать текущий диалог")
}

// handleCancel прерывает любой активный диалог пользователя.
// В хранилище к этому моменту ничего не записано, так что отмена
// сводится к удалению состояния.
func (c *BotController) handleCancel(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	telegramID := update.Message.From.ID
	c.sessions.End(telegramID)
	c.flows.clear(telegramID)

	c.sendMessage(ctx, update.Message.Chat.ID, "Диалог прерван.")
}

func (c *BotController) handleRegisterTeacher(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	telegramID := update.Message.From.ID

	teacher, err := c.users.GetTeacherByTelegramID(ctx, telegramID)
	if err != nil {
		c.logger.Error("Failed to get teacher", zap.Int64("telegram_id", telegramID), zap.Error(err))
		c.sendMessage(ctx, update.Message.Chat.ID, msgTryLater)
		return
	}
	if teacher != nil {
		c.sendMessage(ctx, update.Message.Chat.ID,
			fmt.Sprintf("Вы уже зарегистрированы как учитель. Ваш логин: %s", teacher.Login))
		return
	}

	c.flows.setState(telegramID, flowTeacherName)
	c.sendMessage(ctx, update.Message.Chat.ID, "📝 Регистрация учителя\n\nКак вас зовут?")
}

func (c *BotController) handleRegisterStudent(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	telegramID := update.Message.From.ID

	student, err := c.users.GetStudentByTelegramID(ctx, telegramID)
	if err != nil {
		c.logger.Error("Failed to get student", zap.Int64("telegram_id", telegramID), zap.Error(err))
		c.sendMessage(ctx, update.Message.Chat.ID, msgTryLater)
		return
	}
	if student != nil {
		c.sendMessage(ctx, update.Message.Chat.ID, "Вы уже зарегистрированы как ученик.")
		return
	}

	c.flows.setState(telegramID, flowStudentTeacherLogin)
	c.sendMessage(ctx, update.Message.Chat.ID, "📖 Регистрация ученика\n\nВведите логин вашего учителя:")
}

func (c *BotController) handleAddStudent(ctx context.Context, b *bot.Bot, update *models.Update) {
	teacher, ok := c.requireTeacher(ctx, update)
	if !ok {
		return
	}

	telegramID := update.Message.From.ID
	c.flows.setState(telegramID, flowAddStudentName)
	c.flows.set(telegramID, "teacher_id", teacher.ID)

	c.sendMessage(ctx, update.Message.Chat.ID, "Введите имя ученика:")
}

func (c *BotController) handleMySchedule(ctx context.Context, b *bot.Bot, update *models.Update) {
	student, ok := c.requireStudent(ctx, update)
	if !ok {
		return
	}

	lessons, err := c.schedule.GetUpcomingLessons(ctx, student.ID)
	if err != nil {
		c.logger.Error("Failed to get upcoming lessons", zap.Int64("student_id", student.ID), zap.Error(err))
		c.sendMessage(ctx, update.Message.Chat.ID, msgTryLater)
		return
	}

	if len(lessons) == 0 {
		c.sendMessage(ctx, update.Message.Chat.ID, "У вас нет запланированных уроков.")
		return
	}

	var sb strings.Builder
	sb.WriteString("🗓 Ваши уроки:\n")
	for _, lesson := range lessons {
		teacher, err := c.users.GetTeacher(ctx, lesson.TeacherID)
		name := "?"
		if err == nil && teacher != nil {
			name = teacher.Name
		}
		fmt.Fprintf(&sb, "%s - %s\n", lesson.Slot, name)
	}
	c.sendMessage(ctx, update.Message.Chat.ID, sb.String())
}

func (c *BotController) handleCalendar(ctx context.Context, b *bot.Bot, update *models.Update) {
	if _, ok := c.requireTeacher(ctx, update); !ok {
		return
	}

	now := time.Now()
	c.sendKeyboard(ctx, update.Message.Chat.ID, "Выберите дату:", calendarKeyboard("tcal", now.Year(), now.Month()))
}

func (c *BotController) handleMyStudents(ctx context.Context, b *bot.Bot, update *models.Update) {
	teacher, ok := c.requireTeacher(ctx, update)
	if !ok {
		return
	}

	students, err := c.users.GetStudents(ctx, teacher.ID)
	if err != nil {
		c.logger.Error("Failed to get students", zap.Int64("teacher_id", teacher.ID), zap.Error(err))
		c.sendMessage(ctx, update.Message.Chat.ID, msgTryLater)
		return
	}

	if len(students) == 0 {
		c.sendMessage(ctx, update.Message.Chat.ID, "У вас пока нет учеников. Добавить: /add_student")
		return
	}

	var sb strings.Builder
	sb.WriteString("👥 Ваши ученики:\n")
	for _, student := range students {
		contact := student.ContactInfo
		if contact == "" {
			contact = "не указаны"
		}
		fmt.Fprintf(&sb, "%s, контакты: %s\n", student.Name, contact)
	}
	c.sendMessage(ctx, update.Message.Chat.ID, sb.String())
}

// handleReschedule - ученик выбирает урок для переноса
func (c *BotController) handleReschedule(ctx context.Context, b *bot.Bot, update *models.Update) {
	student, ok := c.requireStudent(ctx, update)
	if !ok {
		return
	}

	lessons, err := c.schedule.GetUpcomingLessons(ctx, student.ID)
	if err != nil {
		c.logger.Error("Failed to get upcoming lessons", zap.Int64("student_id", student.ID), zap.Error(err))
		c.sendMessage(ctx, update.Message.Chat.ID, msgTryLater)
		return
	}

	if len(lessons) == 0 {
		c.sendMessage(ctx, update.Message.Chat.ID, "У вас нет запланированных уроков.")
		return
	}

	var rows [][]models.InlineKeyboardButton
	for _, lesson := range lessons {
		rows = append(rows, []models.InlineKeyboardButton{
			{Text: lesson.Slot.String(), CallbackData: fmt.Sprintf("rs:lesson:%d", lesson.ID)},
		})
	}
	rows = append(rows, []models.InlineKeyboardButton{
		{Text: "❌ Отмена", CallbackData: "rs:cancel"},
	})

	c.sendKeyboard(ctx, update.Message.Chat.ID, "Какой урок перенести?",
		&models.InlineKeyboardMarkup{InlineKeyboard: rows})
}

// handleTextMessage обрабатывает свободный текст по состоянию текстового флоу
func (c *BotController) handleTextMessage(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || strings.HasPrefix(update.Message.Text, "/") {
		return
	}

	telegramID := update.Message.From.ID
	chatID := update.Message.Chat.ID
	text := strings.TrimSpace(update.Message.Text)

	switch c.flows.state(telegramID) {
	case flowTeacherName:
		c.flows.set(telegramID, "name", text)
		c.flows.setState(telegramID, flowTeacherContact)
		c.sendMessage(ctx, chatID, "Введите контактную информацию:")

	case flowTeacherContact:
		c.flows.set(telegramID, "contact", text)
		c.flows.setState(telegramID, flowTeacherLogin)
		c.sendMessage(ctx, chatID, "Придумайте логин (по нему вас будут находить ученики):")

	case flowTeacherLogin:
		c.finishTeacherRegistration(ctx, telegramID, chatID, text)

	case flowStudentTeacherLogin:
		c.finishStudentRegistration(ctx, update, text)

	case flowAddStudentName:
		c.flows.set(telegramID, "student_name", text)
		c.flows.setState(telegramID, flowAddStudentContact)
		c.sendMessage(ctx, chatID, "Введите контактную информацию ученика:")

	case flowAddStudentContact:
		c.finishAddStudent(ctx, telegramID, chatID, text)

	case flowRescheduleReason:
		c.acceptRescheduleReason(ctx, telegramID, chatID, text)
	}
}

func (c *BotController) finishTeacherRegistration(ctx context.Context, telegramID, chatID int64, login string) {
	name, _ := c.flows.get(telegramID, "name")
	contact, _ := c.flows.get(telegramID, "contact")

	teacher, err := c.users.RegisterTeacher(ctx, telegramID, asString(name), asString(contact), login)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			// Невалидный ввод - остаёмся на том же шаге
			c.sendMessage(ctx, chatID, validationText(err)+"\n\nПопробуйте другой логин:")
			return
		}
		c.logger.Error("Failed to register teacher", zap.Int64("telegram_id", telegramID), zap.Error(err))
		c.sendMessage(ctx, chatID, msgTryLater)
		return
	}

	c.flows.clear(telegramID)
	c.sendMessage(ctx, chatID,
		fmt.Sprintf("✅ Вы зарегистрированы как учитель. Ваш логин: %s\n\nДобавить учеников: /add_student", teacher.Login))
}

func (c *BotController) finishStudentRegistration(ctx context.Context, update *models.Update, login string) {
	telegramID := update.Message.From.ID
	chatID := update.Message.Chat.ID

	name := update.Message.From.Username
	if name == "" {
		name = strings.TrimSpace(update.Message.From.FirstName + " " + update.Message.From.LastName)
	}

	student, err := c.users.RegisterStudent(ctx, telegramID, name, login)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			c.sendMessage(ctx, chatID, validationText(err)+"\n\nВведите логин учителя ещё раз:")
			return
		}
		c.logger.Error("Failed to register student", zap.Int64("telegram_id", telegramID), zap.Error(err))
		c.sendMessage(ctx, chatID, msgTryLater)
		return
	}

	teacher, err := c.users.GetTeacher(ctx, student.TeacherID)
	teacherName := ""
	if err == nil && teacher != nil {
		teacherName = teacher.Name
	}

	c.flows.clear(telegramID)
	c.sendMessage(ctx, chatID,
		fmt.Sprintf("✅ Вы зарегистрированы как ученик. Ваш учитель: %s\n\nЗаписаться на урок: /book", teacherName))
}

func (c *BotController) finishAddStudent(ctx context.Context, telegramID, chatID int64, contact string) {
	name, _ := c.flows.get(telegramID, "student_name")
	teacherID, _ := c.flows.get(telegramID, "teacher_id")

	student, err := c.users.AddStudent(ctx, asInt64(teacherID), asString(name), contact)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			c.flows.setState(telegramID, flowAddStudentName)
			c.sendMessage(ctx, chatID, validationText(err)+"\n\nВведите имя ученика ещё раз:")
			return
		}
		c.logger.Error("Failed to add student", zap.Int64("telegram_id", telegramID), zap.Error(err))
		c.sendMessage(ctx, chatID, msgTryLater)
		return
	}

	c.flows.clear(telegramID)
	c.sendMessage(ctx, chatID, fmt.Sprintf("✅ Ученик %s добавлен.", student.Name))
}

// requireTeacher проверяет что пользователь зарегистрирован как учитель
func (c *BotController) requireTeacher(ctx context.Context, update *models.Update) (*model.Teacher, bool) {
	if update.Message == nil {
		return nil, false
	}

	telegramID := update.Message.From.ID
	teacher, err := c.users.GetTeacherByTelegramID(ctx, telegramID)
	if err != nil {
		c.logger.Error("Failed to get teacher", zap.Int64("telegram_id", telegramID), zap.Error(err))
		c.sendMessage(ctx, update.Message.Chat.ID, msgTryLater)
		return nil, false
	}
	if teacher == nil {
		c.sendMessage(ctx, update.Message.Chat.ID, "❌ Эта команда доступна только учителям.\n\nРегистрация: /register_teacher")
		return nil, false
	}

	return teacher, true
}

// requireStudent проверяет что пользователь зарегистрирован как ученик
func (c *BotController) requireStudent(ctx context.Context, update *models.Update) (*model.Student, bool) {
	if update.Message == nil {
		return nil, false
	}

	telegramID := update.Message.From.ID
	student, err := c.users.GetStudentByTelegramID(ctx, telegramID)
	if err != nil {
		c.logger.Error("Failed to get student", zap.Int64("telegram_id", telegramID), zap.Error(err))
		c.sendMessage(ctx, update.Message.Chat.ID, msgTryLater)
		return nil, false
	}
	if student == nil {
		c.sendMessage(ctx, update.Message.Chat.ID, "❌ Эта команда доступна только ученикам.\n\nРегистрация: /register_student")
		return nil, false
	}

	return student, true
}

const msgTryLater = "❌ Произошла ошибка. Попробуйте позже."

// validationText срезает техническое "invalid input:" до человеческого текста
func validationText(err error) string {
	msg := err.Error()
	if idx := strings.Index(msg, ": "); idx >= 0 {
		msg = msg[idx+2:]
	}
	return "❌ " + msg
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asInt64(v any) int64 {
	n, _ := v.(int64)
	return n
}
