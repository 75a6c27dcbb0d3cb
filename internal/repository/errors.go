package repository

import "errors"

// Ожидаемые ошибки хранилища. Нарушения уникальности по слотам - это
// штатный исход гонки двух бронирований, а не сбой БД, поэтому они
// отделены от прочих ошибок ещё на уровне репозитория.
var (
	ErrTeacherSlotTaken  = errors.New("teacher already has a lesson at this slot")
	ErrStudentSlotTaken  = errors.New("student already has a lesson at this slot")
	ErrLessonNotFound    = errors.New("lesson not found")
	ErrLoginTaken        = errors.New("login is already taken")
	ErrAlreadyRegistered = errors.New("telegram id is already registered")
	ErrRequestNotFound   = errors.New("reschedule request not found")
	ErrRequestNotPending = errors.New("reschedule request is not pending")
)
