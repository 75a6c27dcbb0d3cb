package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Freeeeeet/lesson_bot/internal/model"
	"github.com/Freeeeeet/lesson_bot/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RescheduleService реализует workflow переноса урока:
// Requested -> Accepted | Rejected | Expired.
// Решение принимает только учитель, которому принадлежит урок.
type RescheduleService struct {
	requests RescheduleStore
	lessons  LessonStore
	teachers TeacherStore
	students StudentStore
	schedule *ScheduleService
	notifier Notifier
	logger   *zap.Logger

	ttl time.Duration // Окно ответа учителя
}

func NewRescheduleService(
	requests RescheduleStore,
	lessons LessonStore,
	teachers TeacherStore,
	students StudentStore,
	schedule *ScheduleService,
	notifier Notifier,
	logger *zap.Logger,
	ttl time.Duration,
) *RescheduleService {
	return &RescheduleService{
		requests: requests,
		lessons:  lessons,
		teachers: teachers,
		students: students,
		schedule: schedule,
		notifier: notifier,
		logger:   logger,
		ttl:      ttl,
	}
}

// Request создаёт запрос переноса от ученика. Ученик может переносить
// только собственные уроки. Новый слот сразу проверяется советующе,
// чтобы не гонять учителя по заведомо занятому времени; собственный слот
// урока конфликтом не считается.
func (s *RescheduleService) Request(ctx context.Context, actorStudentID, lessonID int64, newSlot model.Slot, reason string) (*model.RescheduleRequest, error) {
	lesson, err := s.lessons.GetByID(ctx, lessonID)
	if err != nil {
		return nil, fmt.Errorf("get lesson: %w", err)
	}
	if lesson == nil {
		return nil, ErrNotFound
	}
	if lesson.StudentID != actorStudentID {
		return nil, ErrUnauthorized
	}
	if lesson.Slot.Equal(newSlot) {
		return nil, fmt.Errorf("%w: new slot matches the current one", ErrValidation)
	}

	check, err := s.schedule.CheckSlot(ctx, lesson.TeacherID, lesson.StudentID, newSlot, lessonID)
	if err != nil {
		return nil, err
	}
	switch check {
	case SlotTeacherBusy:
		return nil, ErrConflictTeacher
	case SlotStudentBusy:
		return nil, ErrConflictStudent
	}

	pending, err := s.requests.HasPendingForLesson(ctx, lessonID)
	if err != nil {
		return nil, fmt.Errorf("check pending requests: %w", err)
	}
	if pending {
		return nil, fmt.Errorf("%w: lesson already has a pending reschedule request", ErrValidation)
	}

	req := &model.RescheduleRequest{
		Token:     uuid.NewString(),
		LessonID:  lessonID,
		StudentID: actorStudentID,
		NewSlot:   newSlot,
		Reason:    reason,
		Status:    model.RescheduleStatusPending,
	}

	if err := s.requests.Create(ctx, req); err != nil {
		return nil, err
	}

	s.logger.Info("Reschedule requested",
		zap.Int64("request_id", req.ID),
		zap.Int64("lesson_id", lessonID),
		zap.Int64("student_id", actorStudentID),
		zap.String("new_slot", newSlot.String()),
	)

	req.Lesson = lesson
	s.notifyTeacher(ctx, lesson, req)

	return req, nil
}

// Accept - учитель согласился на перенос. Закрытие запроса и перенос
// урока - одна транзакция хранилища: конкурирующий Reject или протухание
// не могут вклиниться между ними. Если новый слот успели занять, запрос
// остаётся pending и возвращается конфликт: учитель может подождать, а
// ученик - запросить другое время.
func (s *RescheduleService) Accept(ctx context.Context, token string, actorTeacherID int64) (*model.RescheduleRequest, error) {
	req, lesson, err := s.pendingForDecision(ctx, token, actorTeacherID)
	if err != nil {
		return nil, err
	}

	if err := s.schedule.ValidateSlot(req.NewSlot); err != nil {
		return nil, err
	}

	if err := s.requests.AcceptPending(ctx, req.ID, lesson.ID, req.NewSlot); err != nil {
		if errors.Is(err, repository.ErrRequestNotPending) {
			return nil, fmt.Errorf("%w: request already resolved", ErrValidation)
		}
		if errors.Is(err, repository.ErrLessonNotFound) {
			return nil, ErrNotFound
		}
		return nil, mapConflict(err)
	}
	req.Status = model.RescheduleStatusAccepted

	s.logger.Info("Reschedule accepted",
		zap.Int64("request_id", req.ID),
		zap.Int64("lesson_id", lesson.ID),
		zap.String("new_slot", req.NewSlot.String()),
	)

	lesson.Slot = req.NewSlot
	req.Lesson = lesson
	s.notifyStudentDecision(ctx, lesson, req, true)

	return req, nil
}

// Reject - учитель отказал. Урок не трогается.
func (s *RescheduleService) Reject(ctx context.Context, token string, actorTeacherID int64) (*model.RescheduleRequest, error) {
	req, lesson, err := s.pendingForDecision(ctx, token, actorTeacherID)
	if err != nil {
		return nil, err
	}

	if err := s.requests.UpdateStatus(ctx, req.ID, model.RescheduleStatusRejected); err != nil {
		if errors.Is(err, repository.ErrRequestNotPending) {
			return nil, fmt.Errorf("%w: request already resolved", ErrValidation)
		}
		return nil, err
	}
	req.Status = model.RescheduleStatusRejected

	s.logger.Info("Reschedule rejected",
		zap.Int64("request_id", req.ID),
		zap.Int64("lesson_id", lesson.ID),
	)

	req.Lesson = lesson
	s.notifyStudentDecision(ctx, lesson, req, false)

	return req, nil
}

// ExpireStale закрывает просроченные запросы. Уроки не трогаются,
// ученикам отправляются уведомления. Вызывается фоновым sweeper'ом.
func (s *RescheduleService) ExpireStale(ctx context.Context) error {
	deadline := time.Now().Add(-s.ttl)

	expired, err := s.requests.ExpirePending(ctx, deadline)
	if err != nil {
		return err
	}

	for _, req := range expired {
		s.logger.Info("Reschedule request expired",
			zap.Int64("request_id", req.ID),
			zap.Int64("lesson_id", req.LessonID),
		)

		lesson, err := s.lessons.GetByID(ctx, req.LessonID)
		if err != nil || lesson == nil {
			continue
		}
		req.Lesson = lesson
		s.notifyStudentDecision(ctx, lesson, req, false)
	}

	return nil
}

// pendingForDecision загружает pending-запрос и проверяет что решение
// принимает именно владеющий уроком учитель
func (s *RescheduleService) pendingForDecision(ctx context.Context, token string, actorTeacherID int64) (*model.RescheduleRequest, *model.Lesson, error) {
	req, err := s.requests.GetByToken(ctx, token)
	if err != nil {
		return nil, nil, err
	}
	if req == nil {
		return nil, nil, ErrNotFound
	}
	if req.Status != model.RescheduleStatusPending {
		return nil, nil, fmt.Errorf("%w: request already resolved", ErrValidation)
	}

	lesson, err := s.lessons.GetByID(ctx, req.LessonID)
	if err != nil {
		return nil, nil, fmt.Errorf("get lesson: %w", err)
	}
	if lesson == nil {
		return nil, nil, ErrNotFound
	}
	if lesson.TeacherID != actorTeacherID {
		return nil, nil, ErrUnauthorized
	}

	return req, lesson, nil
}

func (s *RescheduleService) notifyTeacher(ctx context.Context, lesson *model.Lesson, req *model.RescheduleRequest) {
	teacher, err := s.teachers.GetByID(ctx, lesson.TeacherID)
	if err != nil || teacher == nil {
		return
	}
	student, err := s.students.GetByID(ctx, lesson.StudentID)
	if err != nil || student == nil {
		return
	}

	s.notifier.Notify(ctx, teacher.TelegramID, Notification{
		Event:   EventRescheduleRequested,
		Lesson:  lesson,
		Teacher: teacher,
		Student: student,
		Request: req,
	})
}

func (s *RescheduleService) notifyStudentDecision(ctx context.Context, lesson *model.Lesson, req *model.RescheduleRequest, accepted bool) {
	student, err := s.students.GetByID(ctx, lesson.StudentID)
	if err != nil || student == nil || student.TelegramID == 0 {
		return
	}
	teacher, err := s.teachers.GetByID(ctx, lesson.TeacherID)
	if err != nil || teacher == nil {
		return
	}

	s.notifier.Notify(ctx, student.TelegramID, Notification{
		Event:    EventRescheduleDecided,
		Lesson:   lesson,
		Teacher:  teacher,
		Student:  student,
		Request:  req,
		Accepted: accepted,
	})
}
