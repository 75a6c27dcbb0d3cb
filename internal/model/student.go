package model

import "time"

type Student struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	ContactInfo string    `json:"contact_info"`
	TeacherID   int64     `json:"teacher_id"`  // Ученик принадлежит ровно одному учителю
	TelegramID  int64     `json:"telegram_id"` // 0 если учитель добавил ученика вручную и тот ещё не заходил в бота
	CreatedAt   time.Time `json:"created_at"`
}
