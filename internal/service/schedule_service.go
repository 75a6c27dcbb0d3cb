package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Freeeeeet/lesson_bot/internal/model"
	"github.com/Freeeeeet/lesson_bot/internal/repository"
	"go.uber.org/zap"
)

// SlotCheck - результат советующей проверки слота
type SlotCheck int

const (
	SlotBookable SlotCheck = iota
	SlotTeacherBusy
	SlotStudentBusy
)

type ScheduleService struct {
	lessons  LessonStore
	teachers TeacherStore
	students StudentStore
	notifier Notifier
	logger   *zap.Logger

	firstHour int
	lastHour  int
}

func NewScheduleService(
	lessons LessonStore,
	teachers TeacherStore,
	students StudentStore,
	notifier Notifier,
	logger *zap.Logger,
	firstHour, lastHour int,
) *ScheduleService {
	return &ScheduleService{
		lessons:   lessons,
		teachers:  teachers,
		students:  students,
		notifier:  notifier,
		logger:    logger,
		firstHour: firstHour,
		lastHour:  lastHour,
	}
}

// Hours возвращает доступные для записи часы
func (s *ScheduleService) Hours() []int {
	hours := make([]int, 0, s.lastHour-s.firstHour+1)
	for h := s.firstHour; h <= s.lastHour; h++ {
		hours = append(hours, h)
	}
	return hours
}

// ValidateSlot проверяет что слот не в прошлом и час поддерживается
func (s *ScheduleService) ValidateSlot(slot model.Slot) error {
	if slot.Hour < s.firstHour || slot.Hour > s.lastHour {
		return fmt.Errorf("%w: hour %d is outside %d..%d", ErrValidation, slot.Hour, s.firstHour, s.lastHour)
	}
	if slot.InPast(time.Now()) {
		return fmt.Errorf("%w: slot is in the past", ErrValidation)
	}
	return nil
}

// CheckSlot - советующая проверка занятости слота. Читает текущее
// состояние хранилища и не имеет побочных эффектов; авторитетное решение
// принимает BookLesson. Если заняты обе стороны, приоритет у конфликта
// учителя: его слот - более дефицитный ресурс.
func (s *ScheduleService) CheckSlot(ctx context.Context, teacherID, studentID int64, slot model.Slot, excludeLessonID int64) (SlotCheck, error) {
	if teacherID == 0 || studentID == 0 {
		return SlotBookable, fmt.Errorf("%w: teacher and student are required", ErrValidation)
	}
	if err := s.ValidateSlot(slot); err != nil {
		return SlotBookable, err
	}

	lesson, err := s.lessons.FindByTeacherSlot(ctx, teacherID, slot, excludeLessonID)
	if err != nil {
		return SlotBookable, fmt.Errorf("check teacher slot: %w", err)
	}
	if lesson != nil {
		return SlotTeacherBusy, nil
	}

	lesson, err = s.lessons.FindByStudentSlot(ctx, studentID, slot, excludeLessonID)
	if err != nil {
		return SlotBookable, fmt.Errorf("check student slot: %w", err)
	}
	if lesson != nil {
		return SlotStudentBusy, nil
	}

	return SlotBookable, nil
}

// BookLesson атомарно создаёт урок. Хранилище перепроверяет занятость
// внутри транзакции и навешивает констрейнты; проигравший гонку получает
// ErrConflictTeacher / ErrConflictStudent, а не ошибку БД. Любая другая
// ошибка хранилища фатальна для операции.
func (s *ScheduleService) BookLesson(ctx context.Context, teacherID, studentID int64, slot model.Slot) (*model.Lesson, error) {
	if err := s.ValidateSlot(slot); err != nil {
		return nil, err
	}

	lesson := &model.Lesson{
		Slot:      slot,
		TeacherID: teacherID,
		StudentID: studentID,
	}

	if err := s.lessons.Book(ctx, lesson); err != nil {
		return nil, mapConflict(err)
	}

	s.logger.Info("Lesson booked",
		zap.Int64("lesson_id", lesson.ID),
		zap.Int64("teacher_id", teacherID),
		zap.Int64("student_id", studentID),
		zap.String("slot", slot.String()),
	)

	s.notifyStudent(ctx, lesson, EventLessonBooked)

	return lesson, nil
}

// CancelLesson отменяет урок. Разрешено только учителю, которому он
// принадлежит; слот освобождается, ученик получает уведомление.
func (s *ScheduleService) CancelLesson(ctx context.Context, lessonID, actorTeacherID int64) error {
	lesson, err := s.lessons.GetByID(ctx, lessonID)
	if err != nil {
		return fmt.Errorf("get lesson: %w", err)
	}
	if lesson == nil {
		return ErrNotFound
	}
	if lesson.TeacherID != actorTeacherID {
		return ErrUnauthorized
	}

	if err := s.lessons.Delete(ctx, lessonID); err != nil {
		if errors.Is(err, repository.ErrLessonNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete lesson: %w", err)
	}

	s.logger.Info("Lesson cancelled",
		zap.Int64("lesson_id", lessonID),
		zap.Int64("teacher_id", actorTeacherID),
	)

	s.notifyStudent(ctx, lesson, EventLessonCancelled)

	return nil
}

// GetLesson получает урок по ID
func (s *ScheduleService) GetLesson(ctx context.Context, lessonID int64) (*model.Lesson, error) {
	lesson, err := s.lessons.GetByID(ctx, lessonID)
	if err != nil {
		return nil, fmt.Errorf("get lesson: %w", err)
	}
	if lesson == nil {
		return nil, ErrNotFound
	}
	return lesson, nil
}

// GetUpcomingLessons получает будущие уроки ученика
func (s *ScheduleService) GetUpcomingLessons(ctx context.Context, studentID int64) ([]*model.Lesson, error) {
	today := model.NewSlot(time.Now(), 0)
	return s.lessons.GetUpcomingByStudent(ctx, studentID, today)
}

// GetDaySchedule получает уроки учителя на день
func (s *ScheduleService) GetDaySchedule(ctx context.Context, teacherID int64, date time.Time) ([]*model.Lesson, error) {
	return s.lessons.GetByTeacherAndDate(ctx, teacherID, model.NewSlot(date, 0))
}

func (s *ScheduleService) notifyStudent(ctx context.Context, lesson *model.Lesson, event Event) {
	student, err := s.students.GetByID(ctx, lesson.StudentID)
	if err != nil || student == nil || student.TelegramID == 0 {
		return
	}
	teacher, err := s.teachers.GetByID(ctx, lesson.TeacherID)
	if err != nil || teacher == nil {
		return
	}

	s.notifier.Notify(ctx, student.TelegramID, Notification{
		Event:   event,
		Lesson:  lesson,
		Teacher: teacher,
		Student: student,
	})
}

// mapConflict переводит ожидаемые ошибки хранилища в доменные конфликты
func mapConflict(err error) error {
	switch {
	case errors.Is(err, repository.ErrTeacherSlotTaken):
		return ErrConflictTeacher
	case errors.Is(err, repository.ErrStudentSlotTaken):
		return ErrConflictStudent
	default:
		return err
	}
}
