package service

import (
	"context"

	"github.com/Freeeeeet/lesson_bot/internal/model"
)

type Event string

const (
	EventLessonBooked        Event = "lesson_booked"
	EventLessonCancelled     Event = "lesson_cancelled"
	EventRescheduleRequested Event = "reschedule_requested"
	EventRescheduleDecided   Event = "reschedule_decided"
)

// Notification - данные события для получателя
type Notification struct {
	Event    Event
	Lesson   *model.Lesson
	Teacher  *model.Teacher
	Student  *model.Student
	Request  *model.RescheduleRequest
	Accepted bool // Только для EventRescheduleDecided
}

// Notifier доставляет уведомления пользователям. Fire-and-forget:
// недоставленное уведомление логируется реализацией, но не ломает
// операцию, которая его породила.
type Notifier interface {
	Notify(ctx context.Context, telegramID int64, n Notification)
}

// NopNotifier - заглушка для тестов
type NopNotifier struct{}

func (NopNotifier) Notify(ctx context.Context, telegramID int64, n Notification) {}
