package dialog

import "github.com/Freeeeeet/lesson_bot/internal/model"

// PromptKind говорит транспорту что рендерить следующим шагом
type PromptKind string

const (
	PromptRole        PromptKind = "role"
	PromptCounterpart PromptKind = "counterpart"
	PromptDate        PromptKind = "date"
	PromptTime        PromptKind = "time"
	PromptConfirm     PromptKind = "confirm"
	PromptCommitted   PromptKind = "committed"
	PromptCancelled   PromptKind = "cancelled"
)

// Counterpart - один вариант выбора второй стороны урока
type Counterpart struct {
	ID   int64
	Name string
}

// PromptSpec описывает следующий шаг диалога. Транспорт рисует по нему
// клавиатуру, ядро не знает ничего про рендеринг.
type PromptSpec struct {
	Kind PromptKind

	// Notice - замечание к прошлому вводу: конфликт слота, невалидный
	// ввод, просьба повторить. Пустое при нормальном продвижении.
	Notice string

	// Данные для рендеринга, заполняются в зависимости от Kind
	Roles        []Role
	Counterparts []Counterpart
	Hours        []int
	Slot         model.Slot // Для PromptConfirm и PromptCommitted
	Lesson       *model.Lesson
}
