package dialog

import (
	"errors"
	"sync"
	"time"

	"github.com/Freeeeeet/lesson_bot/internal/model"
	"go.uber.org/zap"
)

// ErrSessionExpired возвращается при попытке продолжить диалог, который
// уже протух по бездействию. Показывается на первом вводе после таймаута.
var ErrSessionExpired = errors.New("dialog session expired")

// Manager хранит живые сессии по telegram id. У пользователя не больше
// одной сессии; новое бронирование молча выбрасывает старую. Сессии
// живут только в памяти и чистятся фоновой подметальной задачей.
type Manager struct {
	mu       sync.Mutex
	sessions map[int64]*Session
	timeout  time.Duration
	logger   *zap.Logger
}

func NewManager(timeout time.Duration, logger *zap.Logger) *Manager {
	return &Manager{
		sessions: make(map[int64]*Session),
		timeout:  timeout,
		logger:   logger,
	}
}

// Begin создаёт свежую сессию для пользователя, заменяя существующую
func (m *Manager) Begin(userID int64, actorTeacher *model.Teacher, actorStudent *model.Student) *Session {
	now := time.Now()
	s := &Session{
		UserID:       userID,
		State:        StateIdle,
		ActorTeacher: actorTeacher,
		ActorStudent: actorStudent,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	m.mu.Lock()
	m.sessions[userID] = s
	m.mu.Unlock()

	return s
}

// Get возвращает живую сессию пользователя. Если сессия простояла дольше
// окна бездействия, она уничтожается на месте и возвращается
// ErrSessionExpired: таймаут всплывает на следующем вводе.
func (m *Manager) Get(userID int64) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[userID]
	if !ok {
		return nil, nil
	}

	if s.Expired(time.Now(), m.timeout) {
		s.State = StateTimedOut
		delete(m.sessions, userID)
		return nil, ErrSessionExpired
	}

	return s, nil
}

// End уничтожает сессию пользователя. Вызывается при входе в любое
// терминальное состояние.
func (m *Manager) End(userID int64) {
	m.mu.Lock()
	delete(m.sessions, userID)
	m.mu.Unlock()
}

// Sweep выбрасывает все просроченные сессии. Хранилище не затрагивается:
// до подтверждения в нём ещё ничего нет.
func (m *Manager) Sweep() int {
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	evicted := 0
	for userID, s := range m.sessions {
		if s.Expired(now, m.timeout) {
			s.State = StateTimedOut
			delete(m.sessions, userID)
			evicted++
		}
	}

	if evicted > 0 {
		m.logger.Info("Swept expired dialog sessions", zap.Int("count", evicted))
	}

	return evicted
}

// Len возвращает число живых сессий
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
