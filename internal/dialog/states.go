package dialog

// State - состояние диалога бронирования. Диалог движется строго линейно:
// Idle -> SelectingRole -> SelectingCounterpart -> SelectingDate ->
// SelectingTime -> AwaitingConfirmation -> терминальное состояние.
// Cancel допустим из любого нетерминального состояния.
type State string

const (
	StateIdle                 State = "idle"
	StateSelectingRole        State = "selecting_role"
	StateSelectingCounterpart State = "selecting_counterpart"
	StateSelectingDate        State = "selecting_date"
	StateSelectingTime        State = "selecting_time"
	StateAwaitingConfirmation State = "awaiting_confirmation"

	// Терминальные состояния: сессия уничтожается при входе в них
	StateCommitted State = "committed"
	StateCancelled State = "cancelled"
	StateTimedOut  State = "timed_out"
)

// IsTerminal проверяет что из состояния нет переходов
func (s State) IsTerminal() bool {
	switch s {
	case StateCommitted, StateCancelled, StateTimedOut:
		return true
	}
	return false
}
