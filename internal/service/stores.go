package service

import (
	"context"
	"time"

	"github.com/Freeeeeet/lesson_bot/internal/model"
)

// Интерфейсы хранилища, которые потребляют сервисы. Реализуются
// pgx-репозиториями (internal/repository), в тестах - fake'ами.

type LessonStore interface {
	// Советующие проверки занятости слота
	FindByTeacherSlot(ctx context.Context, teacherID int64, slot model.Slot, excludeLessonID int64) (*model.Lesson, error)
	FindByStudentSlot(ctx context.Context, studentID int64, slot model.Slot, excludeLessonID int64) (*model.Lesson, error)

	GetByID(ctx context.Context, id int64) (*model.Lesson, error)

	// Book атомарен и авторитетен: уникальность слотов гарантирует само
	// хранилище, проигравший гонку получает repository.ErrTeacherSlotTaken /
	// ErrStudentSlotTaken
	Book(ctx context.Context, lesson *model.Lesson) error

	Delete(ctx context.Context, id int64) error
	GetUpcomingByStudent(ctx context.Context, studentID int64, from model.Slot) ([]*model.Lesson, error)
	GetByTeacherAndDate(ctx context.Context, teacherID int64, date model.Slot) ([]*model.Lesson, error)
}

type TeacherStore interface {
	Create(ctx context.Context, teacher *model.Teacher) error
	GetByID(ctx context.Context, id int64) (*model.Teacher, error)
	GetByLogin(ctx context.Context, login string) (*model.Teacher, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*model.Teacher, error)
}

type StudentStore interface {
	Create(ctx context.Context, student *model.Student) error
	GetByID(ctx context.Context, id int64) (*model.Student, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*model.Student, error)
	GetByTeacherID(ctx context.Context, teacherID int64) ([]*model.Student, error)
}

type RescheduleStore interface {
	Create(ctx context.Context, req *model.RescheduleRequest) error
	GetByToken(ctx context.Context, token string) (*model.RescheduleRequest, error)
	UpdateStatus(ctx context.Context, id int64, status model.RescheduleStatus) error

	// AcceptPending одной транзакцией закрывает запрос и переносит урок.
	// Решение и перенос неразделимы: конфликт слота или проигранный guard
	// по статусу откатывают всё, полурешённых запросов не остаётся.
	AcceptPending(ctx context.Context, requestID, lessonID int64, newSlot model.Slot) error
	HasPendingForLesson(ctx context.Context, lessonID int64) (bool, error)
	ExpirePending(ctx context.Context, deadline time.Time) ([]*model.RescheduleRequest, error)
}
