package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Freeeeeet/lesson_bot/internal/model"
	"github.com/Freeeeeet/lesson_bot/internal/repository"
	"go.uber.org/zap"
)

const (
	NameMinLength  = 2
	NameMaxLength  = 100
	LoginMinLength = 3
	LoginMaxLength = 100
)

// UserService отвечает за регистрацию и поиск учителей и учеников
type UserService struct {
	teachers TeacherStore
	students StudentStore
	logger   *zap.Logger
}

func NewUserService(teachers TeacherStore, students StudentStore, logger *zap.Logger) *UserService {
	return &UserService{
		teachers: teachers,
		students: students,
		logger:   logger,
	}
}

// RegisterTeacher регистрирует нового учителя. Логин уникален - по нему
// ученики находят своего учителя.
func (s *UserService) RegisterTeacher(ctx context.Context, telegramID int64, name, contact, login string) (*model.Teacher, error) {
	name = strings.TrimSpace(name)
	login = strings.TrimSpace(login)

	if len(name) < NameMinLength || len(name) > NameMaxLength {
		return nil, fmt.Errorf("%w: name must be %d..%d characters", ErrValidation, NameMinLength, NameMaxLength)
	}
	if len(login) < LoginMinLength || len(login) > LoginMaxLength {
		return nil, fmt.Errorf("%w: login must be %d..%d characters", ErrValidation, LoginMinLength, LoginMaxLength)
	}

	teacher := &model.Teacher{
		Name:        name,
		ContactInfo: strings.TrimSpace(contact),
		Login:       login,
		TelegramID:  telegramID,
	}

	if err := s.teachers.Create(ctx, teacher); err != nil {
		if errors.Is(err, repository.ErrLoginTaken) || errors.Is(err, repository.ErrAlreadyRegistered) {
			return nil, fmt.Errorf("%w: %s", ErrValidation, err)
		}
		return nil, err
	}

	s.logger.Info("Teacher registered",
		zap.Int64("teacher_id", teacher.ID),
		zap.String("login", login),
	)

	return teacher, nil
}

// RegisterStudent привязывает ученика к учителю по логину
func (s *UserService) RegisterStudent(ctx context.Context, telegramID int64, name, teacherLogin string) (*model.Student, error) {
	name = strings.TrimSpace(name)
	if len(name) < NameMinLength || len(name) > NameMaxLength {
		return nil, fmt.Errorf("%w: name must be %d..%d characters", ErrValidation, NameMinLength, NameMaxLength)
	}

	teacher, err := s.teachers.GetByLogin(ctx, strings.TrimSpace(teacherLogin))
	if err != nil {
		return nil, err
	}
	if teacher == nil {
		return nil, fmt.Errorf("%w: teacher with this login not found", ErrValidation)
	}

	student := &model.Student{
		Name:       name,
		TeacherID:  teacher.ID,
		TelegramID: telegramID,
	}

	if err := s.students.Create(ctx, student); err != nil {
		if errors.Is(err, repository.ErrAlreadyRegistered) {
			return nil, fmt.Errorf("%w: %s", ErrValidation, err)
		}
		return nil, err
	}

	s.logger.Info("Student registered",
		zap.Int64("student_id", student.ID),
		zap.Int64("teacher_id", teacher.ID),
	)

	return student, nil
}

// AddStudent - учитель заводит ученика вручную, без telegram-аккаунта
func (s *UserService) AddStudent(ctx context.Context, teacherID int64, name, contact string) (*model.Student, error) {
	name = strings.TrimSpace(name)
	if len(name) < NameMinLength || len(name) > NameMaxLength {
		return nil, fmt.Errorf("%w: name must be %d..%d characters", ErrValidation, NameMinLength, NameMaxLength)
	}

	student := &model.Student{
		Name:        name,
		ContactInfo: strings.TrimSpace(contact),
		TeacherID:   teacherID,
	}

	if err := s.students.Create(ctx, student); err != nil {
		return nil, err
	}

	s.logger.Info("Student added by teacher",
		zap.Int64("student_id", student.ID),
		zap.Int64("teacher_id", teacherID),
	)

	return student, nil
}

// GetTeacherByTelegramID получает учителя по telegram id
func (s *UserService) GetTeacherByTelegramID(ctx context.Context, telegramID int64) (*model.Teacher, error) {
	return s.teachers.GetByTelegramID(ctx, telegramID)
}

// GetStudentByTelegramID получает ученика по telegram id
func (s *UserService) GetStudentByTelegramID(ctx context.Context, telegramID int64) (*model.Student, error) {
	return s.students.GetByTelegramID(ctx, telegramID)
}

// GetStudents получает всех учеников учителя
func (s *UserService) GetStudents(ctx context.Context, teacherID int64) ([]*model.Student, error) {
	return s.students.GetByTeacherID(ctx, teacherID)
}

// GetTeacher получает учителя по ID
func (s *UserService) GetTeacher(ctx context.Context, id int64) (*model.Teacher, error) {
	return s.teachers.GetByID(ctx, id)
}

// GetStudent получает ученика по ID
func (s *UserService) GetStudent(ctx context.Context, id int64) (*model.Student, error) {
	return s.students.GetByID(ctx, id)
}
