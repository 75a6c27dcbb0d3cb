package model

import (
	"fmt"
	"time"
)

// Slot - единица бронирования: календарный день + целый час.
// Уроки не делятся на части и занимают ровно один слот.
type Slot struct {
	Date time.Time `json:"date"` // Только дата, время обнулено (UTC)
	Hour int       `json:"hour"` // Час начала урока, например 14 для 14:00
}

// NewSlot нормализует дату (отбрасывает время суток).
func NewSlot(date time.Time, hour int) Slot {
	y, m, d := date.Date()
	return Slot{
		Date: time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
		Hour: hour,
	}
}

func (s Slot) Equal(other Slot) bool {
	return s.Hour == other.Hour && s.Date.Equal(other.Date)
}

// InPast проверяет что слот уже прошёл относительно now.
func (s Slot) InPast(now time.Time) bool {
	start := s.Date.Add(time.Duration(s.Hour) * time.Hour)
	nowUTC := time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), 0, 0, 0, time.UTC)
	return start.Before(nowUTC)
}

func (s Slot) String() string {
	return fmt.Sprintf("%s %02d:00", s.Date.Format("02.01.2006"), s.Hour)
}

type Lesson struct {
	ID        int64     `json:"id"`
	Slot      Slot      `json:"slot"`
	TeacherID int64     `json:"teacher_id"`
	StudentID int64     `json:"student_id"`
	CreatedAt time.Time `json:"created_at"`

	// Дополнительные поля для удобства (не из БД)
	Teacher *Teacher `json:"teacher,omitempty"`
	Student *Student `json:"student,omitempty"`
}
