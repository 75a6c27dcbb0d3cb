package model

import "time"

type RescheduleStatus string

const (
	RescheduleStatusPending  RescheduleStatus = "pending"  // Ожидает решения учителя
	RescheduleStatusAccepted RescheduleStatus = "accepted" // Учитель согласился, урок перенесён
	RescheduleStatusRejected RescheduleStatus = "rejected" // Учитель отказал
	RescheduleStatusExpired  RescheduleStatus = "expired"  // Учитель не ответил вовремя
)

type RescheduleRequest struct {
	ID        int64            `json:"id"`
	Token     string           `json:"token"` // Публичный uuid для callback-кнопок
	LessonID  int64            `json:"lesson_id"`
	StudentID int64            `json:"student_id"` // Кто запросил перенос
	NewSlot   Slot             `json:"new_slot"`
	Reason    string           `json:"reason"`
	Status    RescheduleStatus `json:"status"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`

	// Дополнительные поля для удобства (не из БД)
	Lesson *Lesson `json:"lesson,omitempty"`
}
