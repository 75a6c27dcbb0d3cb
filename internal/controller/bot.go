package controller

import (
	"context"

	"github.com/Freeeeeet/lesson_bot/internal/dialog"
	"github.com/Freeeeeet/lesson_bot/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

type BotController struct {
	bot        *bot.Bot
	users      *service.UserService
	schedule   *service.ScheduleService
	reschedule *service.RescheduleService
	sessions   *dialog.Manager
	machine    *dialog.Machine
	flows      *textFlows
	logger     *zap.Logger
}

func NewBotController(
	botInstance *bot.Bot,
	users *service.UserService,
	schedule *service.ScheduleService,
	reschedule *service.RescheduleService,
	sessions *dialog.Manager,
	logger *zap.Logger,
) *BotController {
	machine := dialog.NewMachine(schedule, schedule, users, logger, schedule.Hours())

	return &BotController{
		bot:        botInstance,
		users:      users,
		schedule:   schedule,
		reschedule: reschedule,
		sessions:   sessions,
		machine:    machine,
		flows:      newTextFlows(),
		logger:     logger,
	}
}

// RegisterHandlers регистрирует все обработчики команд
func (c *BotController) RegisterHandlers(ctx context.Context) error {
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypeExact, c.handleStart)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/help", bot.MatchTypeExact, c.handleHelp)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/cancel", bot.MatchTypeExact, c.handleCancel)

	// Регистрация
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/register_teacher", bot.MatchTypeExact, c.handleRegisterTeacher)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/register_student", bot.MatchTypeExact, c.handleRegisterStudent)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/add_student", bot.MatchTypeExact, c.handleAddStudent)

	// Бронирование и расписание
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/book", bot.MatchTypeExact, c.handleBook)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/myschedule", bot.MatchTypeExact, c.handleMySchedule)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/calendar", bot.MatchTypeExact, c.handleCalendar)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/my_students", bot.MatchTypeExact, c.handleMyStudents)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/reschedule", bot.MatchTypeExact, c.handleReschedule)

	// Обработчик текстовых сообщений (для диалогов с состояниями)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "", bot.MatchTypePrefix, c.handleTextMessage)

	// Обработчик нажатий на inline кнопки
	c.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "", bot.MatchTypePrefix, c.handleCallbackQuery)

	return c.setCommands(ctx)
}

// setCommands устанавливает список команд в меню бота
func (c *BotController) setCommands(ctx context.Context) error {
	commands := []models.BotCommand{
		{Command: "start", Description: "🚀 Начать работу с ботом"},
		{Command: "help", Description: "❓ Справка по командам"},
		{Command: "book", Description: "📅 Записаться на урок"},
		{Command: "myschedule", Description: "🗓 Мои уроки (ученик)"},
		{Command: "calendar", Description: "📆 Календарь уроков (учитель)"},
		{Command: "my_students", Description: "👥 Мои ученики (учитель)"},
		{Command: "reschedule", Description: "🔁 Перенести урок (ученик)"},
		{Command: "register_teacher", Description: "🎓 Регистрация учителя"},
		{Command: "register_student", Description: "📖 Регистрация ученика"},
		{Command: "add_student", Description: "➕ Добавить ученика (учитель)"},
		{Command: "cancel", Description: "❌ Прервать текущий диалог"},
	}

	_, err := c.bot.SetMyCommands(ctx, &bot.SetMyCommandsParams{
		Commands: commands,
	})

	if err != nil {
		c.logger.Error("Failed to set bot commands", zap.Error(err))
		return err
	}

	c.logger.Info("✅ Bot commands menu set")
	return nil
}

// Start запускает бота
func (c *BotController) Start(ctx context.Context) {
	c.logger.Info("Starting bot...")
	c.bot.Start(ctx)
}

// sendMessage отправляет сообщение и логирует если не удалось
func (c *BotController) sendMessage(ctx context.Context, chatID int64, text string) {
	_, err := c.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	if err != nil {
		c.logger.Error("Failed to send message",
			zap.Int64("chat_id", chatID),
			zap.Error(err),
		)
	}
}

func (c *BotController) sendKeyboard(ctx context.Context, chatID int64, text string, kb *models.InlineKeyboardMarkup) {
	_, err := c.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        text,
		ReplyMarkup: kb,
	})
	if err != nil {
		c.logger.Error("Failed to send keyboard",
			zap.Int64("chat_id", chatID),
			zap.Error(err),
		)
	}
}
