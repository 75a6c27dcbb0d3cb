package model

import "time"

type Teacher struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	ContactInfo string    `json:"contact_info"`
	Login       string    `json:"login"`       // Уникальный логин, по нему ученики находят учителя
	TelegramID  int64     `json:"telegram_id"` // Уникальный telegram id
	CreatedAt   time.Time `json:"created_at"`
}
