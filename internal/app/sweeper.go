package app

import (
	"context"
	"time"

	"github.com/Freeeeeet/lesson_bot/internal/dialog"
	"github.com/Freeeeeet/lesson_bot/internal/service"
	"go.uber.org/zap"
)

// Sweeper управляет фоновыми задачами: выбрасывает брошенные диалоги и
// закрывает просроченные запросы переноса
type Sweeper struct {
	sessions   *dialog.Manager
	reschedule *service.RescheduleService
	logger     *zap.Logger
	stopChan   chan struct{}
}

// NewSweeper создаёт новый sweeper
func NewSweeper(sessions *dialog.Manager, reschedule *service.RescheduleService, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		sessions:   sessions,
		reschedule: reschedule,
		logger:     logger,
		stopChan:   make(chan struct{}),
	}
}

// Start запускает фоновые задачи
func (s *Sweeper) Start(ctx context.Context) {
	s.logger.Info("Starting background sweeper")

	go s.runSessionSweep(ctx)
	go s.runRescheduleExpiry(ctx)
}

// Stop останавливает фоновые задачи
func (s *Sweeper) Stop() {
	s.logger.Info("Stopping background sweeper")
	close(s.stopChan)
}

// runSessionSweep периодически выбрасывает протухшие диалоговые сессии.
// Хранилище при этом не трогается.
func (s *Sweeper) runSessionSweep(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sessions.Sweep()
		case <-s.stopChan:
			s.logger.Info("Session sweep task stopped")
			return
		case <-ctx.Done():
			s.logger.Info("Session sweep task cancelled")
			return
		}
	}
}

// runRescheduleExpiry периодически закрывает запросы переноса, по которым
// учитель так и не ответил
func (s *Sweeper) runRescheduleExpiry(ctx context.Context) {
	// Первый запуск сразу при старте: подбираем запросы, протухшие
	// пока процесс был выключен
	s.expire(ctx)

	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.expire(ctx)
		case <-s.stopChan:
			s.logger.Info("Reschedule expiry task stopped")
			return
		case <-ctx.Done():
			s.logger.Info("Reschedule expiry task cancelled")
			return
		}
	}
}

func (s *Sweeper) expire(ctx context.Context) {
	if err := s.reschedule.ExpireStale(ctx); err != nil {
		s.logger.Error("Failed to expire reschedule requests", zap.Error(err))
	}
}
