package dialog

import (
	"context"
	"testing"
	"time"

	"github.com/Freeeeeet/lesson_bot/internal/model"
	"github.com/Freeeeeet/lesson_bot/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testHours = []int{9, 10, 11, 12}

type fakeBackend struct {
	checks   []service.SlotCheck // Результаты CheckSlot по порядку вызовов
	checkErr error
	bookErr  error

	checkCalls int
	bookCalls  int

	teacher  *model.Teacher
	students []*model.Student
}

func (f *fakeBackend) CheckSlot(_ context.Context, _, _ int64, _ model.Slot, _ int64) (service.SlotCheck, error) {
	i := f.checkCalls
	f.checkCalls++
	if f.checkErr != nil {
		return service.SlotBookable, f.checkErr
	}
	if i < len(f.checks) {
		return f.checks[i], nil
	}
	return service.SlotBookable, nil
}

func (f *fakeBackend) BookLesson(_ context.Context, teacherID, studentID int64, slot model.Slot) (*model.Lesson, error) {
	f.bookCalls++
	if f.bookErr != nil {
		return nil, f.bookErr
	}
	return &model.Lesson{ID: 42, Slot: slot, TeacherID: teacherID, StudentID: studentID}, nil
}

func (f *fakeBackend) GetStudents(_ context.Context, _ int64) ([]*model.Student, error) {
	return f.students, nil
}

func (f *fakeBackend) GetTeacher(_ context.Context, _ int64) (*model.Teacher, error) {
	return f.teacher, nil
}

func newFixture() (*Machine, *fakeBackend, *Session) {
	backend := &fakeBackend{
		teacher: &model.Teacher{ID: 1, Name: "Анна", TelegramID: 100},
		students: []*model.Student{
			{ID: 1, Name: "Вася", TeacherID: 1, TelegramID: 300},
			{ID: 2, Name: "Гена", TeacherID: 1, TelegramID: 400},
		},
	}
	machine := NewMachine(backend, backend, backend, zap.NewNop(), testHours)
	session := &Session{
		UserID:       100,
		State:        StateIdle,
		ActorTeacher: backend.teacher,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	return machine, backend, session
}

func tomorrow() time.Time {
	return time.Now().AddDate(0, 0, 1)
}

// advanceToConfirmation проводит учительскую сессию до AwaitingConfirmation
func advanceToConfirmation(t *testing.T, m *Machine, s *Session) {
	t.Helper()
	ctx := context.Background()

	m.Begin(s)

	out, err := m.Apply(ctx, s, RoleChosen{Role: RoleTeacher})
	require.NoError(t, err)
	require.Equal(t, StateSelectingCounterpart, s.State)
	require.Equal(t, PromptCounterpart, out.Prompt.Kind)

	out, err = m.Apply(ctx, s, CounterpartChosen{ID: 1})
	require.NoError(t, err)
	require.Equal(t, StateSelectingDate, s.State)
	require.Equal(t, PromptDate, out.Prompt.Kind)

	out, err = m.Apply(ctx, s, DateChosen{Date: tomorrow()})
	require.NoError(t, err)
	require.Equal(t, StateSelectingTime, s.State)
	require.Equal(t, PromptTime, out.Prompt.Kind)

	out, err = m.Apply(ctx, s, TimeChosen{Hour: 10})
	require.NoError(t, err)
	require.Equal(t, StateAwaitingConfirmation, s.State)
	require.Equal(t, PromptConfirm, out.Prompt.Kind)
}

func TestMachine_FullWalkToCommitted(t *testing.T) {
	machine, backend, session := newFixture()
	advanceToConfirmation(t, machine, session)

	out, err := machine.Apply(context.Background(), session, Confirm{})
	require.NoError(t, err)

	assert.Equal(t, StateCommitted, session.State)
	assert.Equal(t, PromptCommitted, out.Prompt.Kind)
	require.NotNil(t, out.Lesson)
	assert.Equal(t, int64(1), out.Lesson.TeacherID)
	assert.Equal(t, int64(1), out.Lesson.StudentID)
	assert.Equal(t, 10, out.Lesson.Slot.Hour)
	assert.Equal(t, 1, backend.checkCalls)
	assert.Equal(t, 1, backend.bookCalls)
}

func TestMachine_StudentWalk(t *testing.T) {
	machine, backend, _ := newFixture()
	session := &Session{
		UserID:       300,
		State:        StateIdle,
		ActorStudent: backend.students[0],
	}
	ctx := context.Background()

	machine.Begin(session)

	out, err := machine.Apply(ctx, session, RoleChosen{Role: RoleStudent})
	require.NoError(t, err)
	require.Len(t, out.Prompt.Counterparts, 1)
	assert.Equal(t, int64(1), out.Prompt.Counterparts[0].ID)

	// Чужой учитель отвергается
	out, err = machine.Apply(ctx, session, CounterpartChosen{ID: 99})
	require.NoError(t, err)
	assert.Equal(t, StateSelectingCounterpart, session.State)
	assert.NotEmpty(t, out.Prompt.Notice)

	_, err = machine.Apply(ctx, session, CounterpartChosen{ID: 1})
	require.NoError(t, err)
	assert.Equal(t, StateSelectingDate, session.State)
	assert.Equal(t, int64(1), session.TeacherID)
	assert.Equal(t, int64(1), session.StudentID)
}

func TestMachine_WrongInputRepeatsPrompt(t *testing.T) {
	machine, _, session := newFixture()
	ctx := context.Background()

	machine.Begin(session)

	// Подтверждение на шаге выбора роли: промпт повторяется, диалог стоит
	out, err := machine.Apply(ctx, session, Confirm{})
	require.NoError(t, err)
	assert.Equal(t, StateSelectingRole, session.State)
	assert.Equal(t, PromptRole, out.Prompt.Kind)
	assert.Equal(t, noticeWrongInput, out.Prompt.Notice)

	// Роль без регистрации тоже не проходит
	out, err = machine.Apply(ctx, session, RoleChosen{Role: RoleStudent})
	require.NoError(t, err)
	assert.Equal(t, StateSelectingRole, session.State)
	assert.NotEmpty(t, out.Prompt.Notice)
}

func TestMachine_CancelFromEveryState(t *testing.T) {
	steps := []Input{
		nil, // Отмена сразу после Begin
		RoleChosen{Role: RoleTeacher},
		CounterpartChosen{ID: 1},
		DateChosen{Date: tomorrow()},
		TimeChosen{Hour: 10},
	}

	for depth := 0; depth < len(steps); depth++ {
		machine, backend, session := newFixture()
		ctx := context.Background()

		machine.Begin(session)
		for i := 1; i <= depth; i++ {
			_, err := machine.Apply(ctx, session, steps[i])
			require.NoError(t, err)
		}

		out, err := machine.Apply(ctx, session, Cancel{})
		require.NoError(t, err)
		assert.Equal(t, StateCancelled, session.State)
		assert.Equal(t, PromptCancelled, out.Prompt.Kind)
		assert.Zero(t, backend.bookCalls)

		// Терминальная сессия больше не принимает ввод
		_, err = machine.Apply(ctx, session, Confirm{})
		assert.Error(t, err)
	}
}

func TestMachine_PastDateRejected(t *testing.T) {
	machine, _, session := newFixture()
	ctx := context.Background()

	machine.Begin(session)
	_, err := machine.Apply(ctx, session, RoleChosen{Role: RoleTeacher})
	require.NoError(t, err)
	_, err = machine.Apply(ctx, session, CounterpartChosen{ID: 1})
	require.NoError(t, err)

	out, err := machine.Apply(ctx, session, DateChosen{Date: time.Now().AddDate(0, 0, -1)})
	require.NoError(t, err)
	assert.Equal(t, StateSelectingDate, session.State)
	assert.NotEmpty(t, out.Prompt.Notice)
}

func TestMachine_UnsupportedHourRejected(t *testing.T) {
	machine, backend, session := newFixture()
	ctx := context.Background()

	machine.Begin(session)
	_, err := machine.Apply(ctx, session, RoleChosen{Role: RoleTeacher})
	require.NoError(t, err)
	_, err = machine.Apply(ctx, session, CounterpartChosen{ID: 1})
	require.NoError(t, err)
	_, err = machine.Apply(ctx, session, DateChosen{Date: tomorrow()})
	require.NoError(t, err)

	out, err := machine.Apply(ctx, session, TimeChosen{Hour: 3})
	require.NoError(t, err)
	assert.Equal(t, StateSelectingTime, session.State)
	assert.NotEmpty(t, out.Prompt.Notice)
	assert.Zero(t, backend.checkCalls)
}

func TestMachine_ConflictBeforeConfirmation(t *testing.T) {
	// Проверка на входе в подтверждение нашла конфликт: возврат к выбору
	// времени, дата и участники сохранены
	machine, backend, session := newFixture()
	backend.checks = []service.SlotCheck{service.SlotTeacherBusy}
	ctx := context.Background()

	machine.Begin(session)
	_, err := machine.Apply(ctx, session, RoleChosen{Role: RoleTeacher})
	require.NoError(t, err)
	_, err = machine.Apply(ctx, session, CounterpartChosen{ID: 1})
	require.NoError(t, err)
	_, err = machine.Apply(ctx, session, DateChosen{Date: tomorrow()})
	require.NoError(t, err)

	out, err := machine.Apply(ctx, session, TimeChosen{Hour: 10})
	require.NoError(t, err)
	assert.Equal(t, StateSelectingTime, session.State)
	assert.Equal(t, PromptTime, out.Prompt.Kind)
	assert.Contains(t, out.Prompt.Notice, "учителя")
	assert.Zero(t, backend.bookCalls)

	// Другой час уже свободен, диалог доходит до подтверждения
	out, err = machine.Apply(ctx, session, TimeChosen{Hour: 11})
	require.NoError(t, err)
	assert.Equal(t, StateAwaitingConfirmation, session.State)
	assert.Equal(t, 11, session.Hour)
	assert.Equal(t, int64(1), session.StudentID)
}

func TestMachine_ConflictAtConfirm(t *testing.T) {
	// Слот заняли между проверкой и подтверждением: бронирование вернуло
	// конфликт, диалог откатывается к выбору времени
	machine, backend, session := newFixture()
	advanceToConfirmation(t, machine, session)
	backend.bookErr = service.ErrConflictStudent

	out, err := machine.Apply(context.Background(), session, Confirm{})
	require.NoError(t, err)
	assert.Equal(t, StateSelectingTime, session.State)
	assert.Equal(t, PromptTime, out.Prompt.Kind)
	assert.Contains(t, out.Prompt.Notice, "ученика")

	// Повторная попытка с тем же часом после освобождения слота
	backend.bookErr = nil
	out, err = machine.Apply(context.Background(), session, TimeChosen{Hour: 10})
	require.NoError(t, err)
	require.Equal(t, StateAwaitingConfirmation, session.State)

	out, err = machine.Apply(context.Background(), session, Confirm{})
	require.NoError(t, err)
	assert.Equal(t, StateCommitted, session.State)
	require.NotNil(t, out.Lesson)
}

func TestMachine_StoreFailureKeepsConfirmation(t *testing.T) {
	machine, backend, session := newFixture()
	advanceToConfirmation(t, machine, session)
	backend.bookErr = context.DeadlineExceeded

	out, err := machine.Apply(context.Background(), session, Confirm{})
	require.NoError(t, err)
	assert.Equal(t, StateAwaitingConfirmation, session.State)
	assert.Equal(t, PromptConfirm, out.Prompt.Kind)
	assert.NotEmpty(t, out.Prompt.Notice)
}
