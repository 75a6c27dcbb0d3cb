package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/Freeeeeet/lesson_bot/internal/app"
	"github.com/Freeeeeet/lesson_bot/internal/config"
	"github.com/Freeeeeet/lesson_bot/internal/controller"
	"github.com/Freeeeeet/lesson_bot/internal/dialog"
	"github.com/Freeeeeet/lesson_bot/internal/repository"
	"github.com/Freeeeeet/lesson_bot/internal/service"
	"github.com/go-telegram/bot"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.GetDBDSN())
	if err != nil {
		logger.Fatal("Failed to create connection pool", zap.Error(err))
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}

	// Миграции применяются при старте
	migrator, err := app.NewMigrator(pool, "migrations", logger)
	if err != nil {
		logger.Fatal("Failed to create migrator", zap.Error(err))
	}
	if err := migrator.Run(ctx); err != nil {
		logger.Fatal("Failed to apply migrations", zap.Error(err))
	}
	migrator.Close()

	botInstance, err := bot.New(cfg.TelegramToken)
	if err != nil {
		logger.Fatal("Failed to create bot", zap.Error(err))
	}

	// Репозитории
	teacherRepo := repository.NewTeacherRepository(pool)
	studentRepo := repository.NewStudentRepository(pool)
	lessonRepo := repository.NewLessonRepository(pool)
	rescheduleRepo := repository.NewRescheduleRepository(pool)

	// Сервисы
	notifier := controller.NewTelegramNotifier(botInstance, logger)
	userService := service.NewUserService(teacherRepo, studentRepo, logger)
	scheduleService := service.NewScheduleService(
		lessonRepo, teacherRepo, studentRepo, notifier, logger,
		cfg.FirstHour, cfg.LastHour,
	)
	rescheduleService := service.NewRescheduleService(
		rescheduleRepo, lessonRepo, teacherRepo, studentRepo,
		scheduleService, notifier, logger, cfg.RescheduleTTL,
	)

	// Диалоговые сессии
	sessions := dialog.NewManager(cfg.DialogTimeout, logger)

	botController := controller.NewBotController(
		botInstance,
		userService,
		scheduleService,
		rescheduleService,
		sessions,
		logger,
	)

	if err := botController.RegisterHandlers(ctx); err != nil {
		logger.Fatal("Failed to register handlers", zap.Error(err))
	}

	// Фоновые задачи: чистка брошенных диалогов и просроченных переносов
	sweeper := app.NewSweeper(sessions, rescheduleService, logger)
	sweeper.Start(ctx)
	defer sweeper.Stop()

	logger.Sugar().Infow("Starting lesson bot",
		"environment", cfg.Environment,
		"dialog_timeout", cfg.DialogTimeout,
		"reschedule_ttl", cfg.RescheduleTTL,
	)

	botController.Start(ctx)

	logger.Info("Bot stopped")
}
