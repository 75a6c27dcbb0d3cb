package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Freeeeeet/lesson_bot/internal/model"
	"github.com/Freeeeeet/lesson_bot/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memRescheduleStore struct {
	mu       sync.Mutex
	nextID   int64
	requests map[int64]*model.RescheduleRequest
	lessons  *memLessonStore

	// beforeMove срабатывает внутри AcceptPending после захвата статуса,
	// но до переноса урока: окно для конкурирующих решений
	beforeMove func()
}

func newMemRescheduleStore(lessons *memLessonStore) *memRescheduleStore {
	return &memRescheduleStore{
		requests: make(map[int64]*model.RescheduleRequest),
		lessons:  lessons,
	}
}

func (s *memRescheduleStore) Create(_ context.Context, req *model.RescheduleRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	req.ID = s.nextID
	req.CreatedAt = time.Now()
	req.UpdatedAt = req.CreatedAt
	copied := *req
	copied.Lesson = nil
	s.requests[req.ID] = &copied
	return nil
}

func (s *memRescheduleStore) GetByToken(_ context.Context, token string) (*model.RescheduleRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, req := range s.requests {
		if req.Token == token {
			copied := *req
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *memRescheduleStore) UpdateStatus(_ context.Context, id int64, status model.RescheduleStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[id]
	if !ok || req.Status != model.RescheduleStatusPending {
		return repository.ErrRequestNotPending
	}
	req.Status = status
	req.UpdatedAt = time.Now()
	return nil
}

// AcceptPending повторяет транзакционный контракт репозитория: сначала
// захватывается pending-статус, затем двигается урок; конфликт слота
// откатывает захват и запрос остаётся pending
func (s *memRescheduleStore) AcceptPending(ctx context.Context, requestID, lessonID int64, newSlot model.Slot) error {
	s.mu.Lock()
	req, ok := s.requests[requestID]
	if !ok || req.Status != model.RescheduleStatusPending {
		s.mu.Unlock()
		return repository.ErrRequestNotPending
	}
	req.Status = model.RescheduleStatusAccepted
	s.mu.Unlock()

	if s.beforeMove != nil {
		s.beforeMove()
	}

	if err := s.lessons.UpdateSlot(ctx, lessonID, newSlot); err != nil {
		s.mu.Lock()
		req.Status = model.RescheduleStatusPending
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	req.UpdatedAt = time.Now()
	s.mu.Unlock()
	return nil
}

func (s *memRescheduleStore) HasPendingForLesson(_ context.Context, lessonID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, req := range s.requests {
		if req.LessonID == lessonID && req.Status == model.RescheduleStatusPending {
			return true, nil
		}
	}
	return false, nil
}

func (s *memRescheduleStore) ExpirePending(_ context.Context, deadline time.Time) ([]*model.RescheduleRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.RescheduleRequest
	for _, req := range s.requests {
		if req.Status == model.RescheduleStatusPending && req.CreatedAt.Before(deadline) {
			req.Status = model.RescheduleStatusExpired
			req.UpdatedAt = time.Now()
			copied := *req
			out = append(out, &copied)
		}
	}
	return out, nil
}

type rescheduleFixture struct {
	lessons  *memLessonStore
	requests *memRescheduleStore
	schedule *ScheduleService
	svc      *RescheduleService
}

func newRescheduleFixture(t *testing.T) *rescheduleFixture {
	t.Helper()

	lessons := newMemLessonStore()
	requests := newMemRescheduleStore(lessons)
	schedule := newScheduleService(lessons)

	users := newMemUserStore()
	users.teachers[1] = &model.Teacher{ID: 1, Name: "Анна", Login: "anna", TelegramID: 100}
	users.teachers[2] = &model.Teacher{ID: 2, Name: "Борис", Login: "boris", TelegramID: 200}
	students := &memStudentStore{students: map[int64]*model.Student{
		1: {ID: 1, Name: "Вася", TeacherID: 1, TelegramID: 300},
		2: {ID: 2, Name: "Гена", TeacherID: 1, TelegramID: 400},
	}}

	svc := NewRescheduleService(requests, lessons, users, students, schedule, NopNotifier{}, zap.NewNop(), 24*time.Hour)

	return &rescheduleFixture{lessons: lessons, requests: requests, schedule: schedule, svc: svc}
}

func (f *rescheduleFixture) book(t *testing.T, teacherID, studentID int64, slot model.Slot) *model.Lesson {
	t.Helper()
	lesson, err := f.schedule.BookLesson(context.Background(), teacherID, studentID, slot)
	require.NoError(t, err)
	return lesson
}

func TestRescheduleRequest(t *testing.T) {
	f := newRescheduleFixture(t)
	lesson := f.book(t, 1, 1, futureSlot(2, 10))

	req, err := f.svc.Request(context.Background(), 1, lesson.ID, futureSlot(3, 11), "болею")
	require.NoError(t, err)

	assert.NotEmpty(t, req.Token)
	assert.Equal(t, model.RescheduleStatusPending, req.Status)
	assert.Equal(t, lesson.ID, req.LessonID)

	// Урок ещё не тронут
	current, err := f.schedule.GetLesson(context.Background(), lesson.ID)
	require.NoError(t, err)
	assert.True(t, current.Slot.Equal(lesson.Slot))
}

func TestRescheduleRequest_OnlyOwnLesson(t *testing.T) {
	f := newRescheduleFixture(t)
	lesson := f.book(t, 1, 1, futureSlot(2, 10))

	_, err := f.svc.Request(context.Background(), 2, lesson.ID, futureSlot(3, 11), "")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestRescheduleRequest_SameSlotRejected(t *testing.T) {
	f := newRescheduleFixture(t)
	slot := futureSlot(2, 10)
	lesson := f.book(t, 1, 1, slot)

	_, err := f.svc.Request(context.Background(), 1, lesson.ID, slot, "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestRescheduleRequest_AdjacentHourAllowed(t *testing.T) {
	// Собственный урок не считается конфликтом при проверке нового слота
	f := newRescheduleFixture(t)
	lesson := f.book(t, 1, 1, futureSlot(2, 10))

	req, err := f.svc.Request(context.Background(), 1, lesson.ID, futureSlot(2, 11), "")
	require.NoError(t, err)
	assert.Equal(t, model.RescheduleStatusPending, req.Status)
}

func TestRescheduleRequest_BusySlotRejected(t *testing.T) {
	f := newRescheduleFixture(t)
	busy := futureSlot(2, 12)
	f.book(t, 1, 2, busy)
	lesson := f.book(t, 1, 1, futureSlot(2, 10))

	_, err := f.svc.Request(context.Background(), 1, lesson.ID, busy, "")
	assert.ErrorIs(t, err, ErrConflictTeacher)
}

func TestRescheduleRequest_SinglePending(t *testing.T) {
	f := newRescheduleFixture(t)
	lesson := f.book(t, 1, 1, futureSlot(2, 10))

	_, err := f.svc.Request(context.Background(), 1, lesson.ID, futureSlot(3, 11), "")
	require.NoError(t, err)

	_, err = f.svc.Request(context.Background(), 1, lesson.ID, futureSlot(3, 12), "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestRescheduleAccept(t *testing.T) {
	f := newRescheduleFixture(t)
	lesson := f.book(t, 1, 1, futureSlot(2, 10))
	newSlot := futureSlot(3, 11)

	req, err := f.svc.Request(context.Background(), 1, lesson.ID, newSlot, "")
	require.NoError(t, err)

	decided, err := f.svc.Accept(context.Background(), req.Token, 1)
	require.NoError(t, err)
	assert.Equal(t, model.RescheduleStatusAccepted, decided.Status)

	// Урок перенесён, идентичность сохранена
	moved, err := f.schedule.GetLesson(context.Background(), lesson.ID)
	require.NoError(t, err)
	assert.True(t, moved.Slot.Equal(newSlot))
	assert.Equal(t, lesson.TeacherID, moved.TeacherID)
	assert.Equal(t, lesson.StudentID, moved.StudentID)

	// Старый слот освободился
	check, err := f.schedule.CheckSlot(context.Background(), 1, 1, lesson.Slot, 0)
	require.NoError(t, err)
	assert.Equal(t, SlotBookable, check)
}

func TestRescheduleAccept_OnlyOwningTeacher(t *testing.T) {
	f := newRescheduleFixture(t)
	lesson := f.book(t, 1, 1, futureSlot(2, 10))

	req, err := f.svc.Request(context.Background(), 1, lesson.ID, futureSlot(3, 11), "")
	require.NoError(t, err)

	_, err = f.svc.Accept(context.Background(), req.Token, 2)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestRescheduleAccept_ConflictKeepsPending(t *testing.T) {
	// Новый слот заняли между запросом и решением: перенос не проходит,
	// запрос остаётся pending, урок не тронут
	f := newRescheduleFixture(t)
	lesson := f.book(t, 1, 1, futureSlot(2, 10))
	newSlot := futureSlot(3, 11)

	req, err := f.svc.Request(context.Background(), 1, lesson.ID, newSlot, "")
	require.NoError(t, err)

	f.book(t, 1, 2, newSlot)

	_, err = f.svc.Accept(context.Background(), req.Token, 1)
	assert.ErrorIs(t, err, ErrConflictTeacher)

	stored, err := f.requests.GetByToken(context.Background(), req.Token)
	require.NoError(t, err)
	assert.Equal(t, model.RescheduleStatusPending, stored.Status)

	current, err := f.schedule.GetLesson(context.Background(), lesson.ID)
	require.NoError(t, err)
	assert.True(t, current.Slot.Equal(lesson.Slot))
}

func TestRescheduleAccept_RejectCannotInterleave(t *testing.T) {
	// Отказ, пришедший во время принятия, не может разорвать его надвое:
	// захват статуса уже состоялся, Reject видит не-pending запрос.
	// Урок двигается только вместе со статусом accepted.
	f := newRescheduleFixture(t)
	lesson := f.book(t, 1, 1, futureSlot(2, 10))
	newSlot := futureSlot(3, 11)

	req, err := f.svc.Request(context.Background(), 1, lesson.ID, newSlot, "")
	require.NoError(t, err)

	var rejectErr error
	f.requests.beforeMove = func() {
		_, rejectErr = f.svc.Reject(context.Background(), req.Token, 1)
	}

	decided, err := f.svc.Accept(context.Background(), req.Token, 1)
	require.NoError(t, err)
	assert.Equal(t, model.RescheduleStatusAccepted, decided.Status)
	assert.ErrorIs(t, rejectErr, ErrValidation)

	// Итог согласован: статус accepted и урок в новом слоте
	stored, err := f.requests.GetByToken(context.Background(), req.Token)
	require.NoError(t, err)
	assert.Equal(t, model.RescheduleStatusAccepted, stored.Status)

	moved, err := f.schedule.GetLesson(context.Background(), lesson.ID)
	require.NoError(t, err)
	assert.True(t, moved.Slot.Equal(newSlot))
}

func TestRescheduleReject_LessonStaysPut(t *testing.T) {
	// Отклонённый запрос никогда не двигает урок, даже если Accept
	// придёт следом
	f := newRescheduleFixture(t)
	lesson := f.book(t, 1, 1, futureSlot(2, 10))

	req, err := f.svc.Request(context.Background(), 1, lesson.ID, futureSlot(3, 11), "")
	require.NoError(t, err)

	_, err = f.svc.Reject(context.Background(), req.Token, 1)
	require.NoError(t, err)

	_, err = f.svc.Accept(context.Background(), req.Token, 1)
	assert.ErrorIs(t, err, ErrValidation)

	current, err := f.schedule.GetLesson(context.Background(), lesson.ID)
	require.NoError(t, err)
	assert.True(t, current.Slot.Equal(lesson.Slot))

	stored, err := f.requests.GetByToken(context.Background(), req.Token)
	require.NoError(t, err)
	assert.Equal(t, model.RescheduleStatusRejected, stored.Status)
}

func TestRescheduleReject(t *testing.T) {
	f := newRescheduleFixture(t)
	lesson := f.book(t, 1, 1, futureSlot(2, 10))

	req, err := f.svc.Request(context.Background(), 1, lesson.ID, futureSlot(3, 11), "")
	require.NoError(t, err)

	decided, err := f.svc.Reject(context.Background(), req.Token, 1)
	require.NoError(t, err)
	assert.Equal(t, model.RescheduleStatusRejected, decided.Status)

	// Повторное решение по тому же запросу невозможно
	_, err = f.svc.Accept(context.Background(), req.Token, 1)
	assert.ErrorIs(t, err, ErrValidation)

	// Урок не тронут
	current, err := f.schedule.GetLesson(context.Background(), lesson.ID)
	require.NoError(t, err)
	assert.True(t, current.Slot.Equal(lesson.Slot))
}

func TestRescheduleExpireStale(t *testing.T) {
	f := newRescheduleFixture(t)
	lesson := f.book(t, 1, 1, futureSlot(2, 10))

	req, err := f.svc.Request(context.Background(), 1, lesson.ID, futureSlot(3, 11), "")
	require.NoError(t, err)

	// Сдвигаем запрос за пределы окна ответа
	f.requests.mu.Lock()
	f.requests.requests[req.ID].CreatedAt = time.Now().Add(-48 * time.Hour)
	f.requests.mu.Unlock()

	err = f.svc.ExpireStale(context.Background())
	require.NoError(t, err)

	stored, err := f.requests.GetByToken(context.Background(), req.Token)
	require.NoError(t, err)
	assert.Equal(t, model.RescheduleStatusExpired, stored.Status)

	// После истечения можно запросить перенос заново
	_, err = f.svc.Request(context.Background(), 1, lesson.ID, futureSlot(3, 12), "")
	assert.NoError(t, err)
}

func TestRescheduleUnknownToken(t *testing.T) {
	f := newRescheduleFixture(t)

	_, err := f.svc.Accept(context.Background(), "nonexistent", 1)
	assert.ErrorIs(t, err, ErrNotFound)
}
