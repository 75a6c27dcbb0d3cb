package dialog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Freeeeeet/lesson_bot/internal/model"
	"github.com/Freeeeeet/lesson_bot/internal/service"
	"go.uber.org/zap"
)

// SlotChecker - советующая проверка конфликтов (service.ScheduleService)
type SlotChecker interface {
	CheckSlot(ctx context.Context, teacherID, studentID int64, slot model.Slot, excludeLessonID int64) (service.SlotCheck, error)
}

// Booker - авторитетное бронирование
type Booker interface {
	BookLesson(ctx context.Context, teacherID, studentID int64, slot model.Slot) (*model.Lesson, error)
}

// Directory - справочник для выбора второй стороны урока
type Directory interface {
	GetStudents(ctx context.Context, teacherID int64) ([]*model.Student, error)
	GetTeacher(ctx context.Context, id int64) (*model.Teacher, error)
}

// Machine прогоняет сессию через шаги бронирования. Конфликтная проверка
// вызывается только на входе в AwaitingConfirmation; бронирует только
// Confirm. Все остальные шаги копят выбор в сессии, не трогая хранилище.
type Machine struct {
	checker   SlotChecker
	booker    Booker
	directory Directory
	logger    *zap.Logger
	hours     []int
}

func NewMachine(checker SlotChecker, booker Booker, directory Directory, logger *zap.Logger, hours []int) *Machine {
	return &Machine{
		checker:   checker,
		booker:    booker,
		directory: directory,
		logger:    logger,
		hours:     hours,
	}
}

// Outcome - результат одного шага диалога
type Outcome struct {
	Prompt PromptSpec
	// Lesson заполнен только при переходе в Committed
	Lesson *model.Lesson
}

// Begin переводит свежую сессию из Idle к выбору роли
func (m *Machine) Begin(s *Session) Outcome {
	s.State = StateSelectingRole
	return Outcome{Prompt: m.rolePrompt(s, "")}
}

// Apply обрабатывает один ввод пользователя. Невалидный для текущего
// состояния ввод возвращает тот же промпт с пометкой, не продвигая
// диалог. Ошибка возвращается только при сбое хранилища; сессия при
// этом остаётся в состоянии до попытки.
func (m *Machine) Apply(ctx context.Context, s *Session, in Input) (Outcome, error) {
	if s.State.IsTerminal() {
		return Outcome{}, fmt.Errorf("session is already in terminal state %s", s.State)
	}

	// Отмена безусловна и не имеет побочных эффектов в хранилище
	if _, ok := in.(Cancel); ok {
		s.State = StateCancelled
		return Outcome{Prompt: PromptSpec{Kind: PromptCancelled}}, nil
	}

	s.UpdatedAt = time.Now()

	switch s.State {
	case StateSelectingRole:
		return m.applyRole(ctx, s, in)
	case StateSelectingCounterpart:
		return m.applyCounterpart(ctx, s, in)
	case StateSelectingDate:
		return m.applyDate(ctx, s, in)
	case StateSelectingTime:
		return m.applyTime(ctx, s, in)
	case StateAwaitingConfirmation:
		return m.applyConfirm(ctx, s, in)
	default:
		return Outcome{}, fmt.Errorf("unexpected dialog state %s", s.State)
	}
}

func (m *Machine) applyRole(ctx context.Context, s *Session, in Input) (Outcome, error) {
	choice, ok := in.(RoleChosen)
	if !ok {
		return Outcome{Prompt: m.rolePrompt(s, noticeWrongInput)}, nil
	}

	switch choice.Role {
	case RoleTeacher:
		if s.ActorTeacher == nil {
			return Outcome{Prompt: m.rolePrompt(s, "Вы не зарегистрированы как учитель")}, nil
		}
		s.Role = RoleTeacher
		s.TeacherID = s.ActorTeacher.ID
	case RoleStudent:
		if s.ActorStudent == nil {
			return Outcome{Prompt: m.rolePrompt(s, "Вы не зарегистрированы как ученик")}, nil
		}
		s.Role = RoleStudent
		s.StudentID = s.ActorStudent.ID
	default:
		return Outcome{Prompt: m.rolePrompt(s, noticeWrongInput)}, nil
	}

	prompt, err := m.counterpartPrompt(ctx, s, "")
	if err != nil {
		return Outcome{}, err
	}

	s.State = StateSelectingCounterpart
	return Outcome{Prompt: prompt}, nil
}

func (m *Machine) applyCounterpart(ctx context.Context, s *Session, in Input) (Outcome, error) {
	choice, ok := in.(CounterpartChosen)
	if !ok {
		prompt, err := m.counterpartPrompt(ctx, s, noticeWrongInput)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Prompt: prompt}, nil
	}

	valid, err := m.acceptCounterpart(ctx, s, choice.ID)
	if err != nil {
		return Outcome{}, err
	}
	if !valid {
		prompt, err := m.counterpartPrompt(ctx, s, "Такой вариант недоступен, выберите из списка")
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Prompt: prompt}, nil
	}

	s.State = StateSelectingDate
	return Outcome{Prompt: PromptSpec{Kind: PromptDate}}, nil
}

// acceptCounterpart проверяет что выбранная сторона действительно доступна
// действующему пользователю и дозаполняет пару (teacher, student)
func (m *Machine) acceptCounterpart(ctx context.Context, s *Session, id int64) (bool, error) {
	if s.Role == RoleTeacher {
		students, err := m.directory.GetStudents(ctx, s.TeacherID)
		if err != nil {
			return false, fmt.Errorf("list students: %w", err)
		}
		for _, st := range students {
			if st.ID == id {
				s.StudentID = id
				return true, nil
			}
		}
		return false, nil
	}

	// Ученик привязан ровно к одному учителю
	if id != s.ActorStudent.TeacherID {
		return false, nil
	}
	s.TeacherID = id
	return true, nil
}

func (m *Machine) applyDate(_ context.Context, s *Session, in Input) (Outcome, error) {
	choice, ok := in.(DateChosen)
	if !ok {
		return Outcome{Prompt: PromptSpec{Kind: PromptDate, Notice: noticeWrongInput}}, nil
	}

	// Календарь листается только вперёд: прошедшие даты не предлагаются,
	// но ввод всё равно проверяем
	date := model.NewSlot(choice.Date, 0).Date
	today := model.NewSlot(time.Now(), 0).Date
	if date.Before(today) {
		return Outcome{Prompt: PromptSpec{Kind: PromptDate, Notice: "Эта дата уже прошла, выберите другую"}}, nil
	}

	s.Date = date
	s.State = StateSelectingTime
	return Outcome{Prompt: PromptSpec{Kind: PromptTime, Hours: m.hours}}, nil
}

func (m *Machine) applyTime(ctx context.Context, s *Session, in Input) (Outcome, error) {
	choice, ok := in.(TimeChosen)
	if !ok {
		return Outcome{Prompt: PromptSpec{Kind: PromptTime, Hours: m.hours, Notice: noticeWrongInput}}, nil
	}

	supported := false
	for _, h := range m.hours {
		if h == choice.Hour {
			supported = true
			break
		}
	}
	if !supported {
		return Outcome{Prompt: PromptSpec{Kind: PromptTime, Hours: m.hours, Notice: "Это время недоступно для записи"}}, nil
	}

	s.Hour = choice.Hour

	// Вход в AwaitingConfirmation - единственное место, где диалог
	// спрашивает детектор конфликтов: пользователь получает ранний отказ
	// до подтверждения, а не после
	return m.enterConfirmation(ctx, s)
}

func (m *Machine) enterConfirmation(ctx context.Context, s *Session) (Outcome, error) {
	check, err := m.checker.CheckSlot(ctx, s.TeacherID, s.StudentID, s.Slot(), 0)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			s.State = StateSelectingTime
			return Outcome{Prompt: PromptSpec{Kind: PromptTime, Hours: m.hours, Notice: "Этот слот нельзя забронировать: " + err.Error()}}, nil
		}
		return Outcome{}, err
	}

	if notice, conflict := conflictNotice(check); conflict {
		// Конфликт не блокирует диалог: возвращаемся к выбору времени,
		// накопленные дата и участники сохраняются
		s.State = StateSelectingTime
		return Outcome{Prompt: PromptSpec{Kind: PromptTime, Hours: m.hours, Notice: notice}}, nil
	}

	s.State = StateAwaitingConfirmation
	return Outcome{Prompt: PromptSpec{Kind: PromptConfirm, Slot: s.Slot()}}, nil
}

func (m *Machine) applyConfirm(ctx context.Context, s *Session, in Input) (Outcome, error) {
	if _, ok := in.(Confirm); !ok {
		return Outcome{Prompt: PromptSpec{Kind: PromptConfirm, Slot: s.Slot(), Notice: noticeWrongInput}}, nil
	}

	lesson, err := m.booker.BookLesson(ctx, s.TeacherID, s.StudentID, s.Slot())
	if err != nil {
		// Слот могли занять между проверкой и подтверждением: это не
		// сбой, возвращаемся к выбору времени
		if check, conflict := conflictFromError(err); conflict {
			notice, _ := conflictNotice(check)
			s.State = StateSelectingTime
			return Outcome{Prompt: PromptSpec{Kind: PromptTime, Hours: m.hours, Notice: notice}}, nil
		}
		if errors.Is(err, service.ErrValidation) {
			s.State = StateSelectingTime
			return Outcome{Prompt: PromptSpec{Kind: PromptTime, Hours: m.hours, Notice: "Этот слот нельзя забронировать: " + err.Error()}}, nil
		}

		// Сбой хранилища: сессия остаётся в AwaitingConfirmation,
		// пользователь может повторить
		m.logger.Error("Booking failed", zap.Int64("user_id", s.UserID), zap.Error(err))
		return Outcome{Prompt: PromptSpec{Kind: PromptConfirm, Slot: s.Slot(), Notice: "Произошла ошибка, попробуйте ещё раз"}}, nil
	}

	s.State = StateCommitted
	return Outcome{
		Prompt: PromptSpec{Kind: PromptCommitted, Slot: s.Slot(), Lesson: lesson},
		Lesson: lesson,
	}, nil
}

func (m *Machine) rolePrompt(s *Session, notice string) PromptSpec {
	var roles []Role
	if s.ActorTeacher != nil {
		roles = append(roles, RoleTeacher)
	}
	if s.ActorStudent != nil {
		roles = append(roles, RoleStudent)
	}
	return PromptSpec{Kind: PromptRole, Roles: roles, Notice: notice}
}

func (m *Machine) counterpartPrompt(ctx context.Context, s *Session, notice string) (PromptSpec, error) {
	prompt := PromptSpec{Kind: PromptCounterpart, Notice: notice}

	if s.Role == RoleTeacher {
		students, err := m.directory.GetStudents(ctx, s.TeacherID)
		if err != nil {
			return PromptSpec{}, fmt.Errorf("list students: %w", err)
		}
		for _, st := range students {
			prompt.Counterparts = append(prompt.Counterparts, Counterpart{ID: st.ID, Name: st.Name})
		}
		return prompt, nil
	}

	teacher, err := m.directory.GetTeacher(ctx, s.ActorStudent.TeacherID)
	if err != nil {
		return PromptSpec{}, fmt.Errorf("get teacher: %w", err)
	}
	if teacher != nil {
		prompt.Counterparts = append(prompt.Counterparts, Counterpart{ID: teacher.ID, Name: teacher.Name})
	}
	return prompt, nil
}

const noticeWrongInput = "Сейчас ожидается другой ввод, выберите вариант на клавиатуре"

func conflictNotice(check service.SlotCheck) (string, bool) {
	switch check {
	case service.SlotTeacherBusy:
		return "У учителя уже есть урок в это время, выберите другой слот", true
	case service.SlotStudentBusy:
		return "У ученика уже есть урок в это время, выберите другой слот", true
	}
	return "", false
}

func conflictFromError(err error) (service.SlotCheck, bool) {
	switch {
	case errors.Is(err, service.ErrConflictTeacher):
		return service.SlotTeacherBusy, true
	case errors.Is(err, service.ErrConflictStudent):
		return service.SlotStudentBusy, true
	}
	return service.SlotBookable, false
}
