package dialog

import "time"

type Role string

const (
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

// Input - типизированный ввод пользователя. Каждое состояние диалога
// принимает ровно одну категорию ввода; всё остальное - повторный промпт
// без смены состояния.
type Input interface {
	isInput()
}

type RoleChosen struct {
	Role Role
}

// CounterpartChosen - выбор второй стороны урока: учитель выбирает
// ученика, ученик подтверждает своего учителя
type CounterpartChosen struct {
	ID int64
}

type DateChosen struct {
	Date time.Time
}

type TimeChosen struct {
	Hour int
}

type Confirm struct{}

type Cancel struct{}

func (RoleChosen) isInput()        {}
func (CounterpartChosen) isInput() {}
func (DateChosen) isInput()        {}
func (TimeChosen) isInput()        {}
func (Confirm) isInput()           {}
func (Cancel) isInput()            {}
