package dialog

import (
	"time"

	"github.com/Freeeeeet/lesson_bot/internal/model"
)

// Session - эфемерное состояние одного диалога бронирования.
// Живёт только в памяти процесса и не переживает рестарт: до финального
// коммита в хранилище не попадает ничего.
type Session struct {
	UserID int64 // telegram id владельца диалога
	State  State

	// Кем пользователь действует в этом диалоге. Резолвится транспортом
	// при создании сессии; оба поля могут быть заполнены, если аккаунт
	// зарегистрирован и там и там.
	ActorTeacher *model.Teacher
	ActorStudent *model.Student

	// Накопленный выбор
	Role      Role
	TeacherID int64
	StudentID int64
	Date      time.Time // Нулевое значение - дата ещё не выбрана
	Hour      int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Slot собирает выбранный слот
func (s *Session) Slot() model.Slot {
	return model.NewSlot(s.Date, s.Hour)
}

// Expired проверяет что сессия простаивает дольше окна бездействия
func (s *Session) Expired(now time.Time, timeout time.Duration) bool {
	return now.Sub(s.UpdatedAt) > timeout
}
