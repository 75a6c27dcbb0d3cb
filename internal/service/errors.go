package service

import "errors"

// Доменные ошибки. Конфликты и валидация - штатные исходы, диалог
// показывает их пользователю и предлагает выбрать другой слот или
// повторить ввод. Всё остальное, что приходит из хранилища, означает
// сбой операции: закоммиченное состояние не меняется, пользователь
// видит общее "попробуйте позже".
var (
	ErrConflictTeacher = errors.New("teacher is busy at this slot")
	ErrConflictStudent = errors.New("student is busy at this slot")
	ErrValidation      = errors.New("invalid input")
	ErrUnauthorized    = errors.New("actor is not allowed to perform this action")
	ErrNotFound        = errors.New("entity not found")
)

// IsConflict проверяет что ошибка - конфликт слота (любой стороны)
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflictTeacher) || errors.Is(err, ErrConflictStudent)
}
