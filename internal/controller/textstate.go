package controller

import "sync"

// flowState - шаг текстового мини-диалога (регистрация, причина переноса).
// Эти флоу проще машины бронирования: один текстовый вопрос за другим,
// поэтому им хватает плоского состояния с данными.
type flowState string

const (
	flowNone flowState = ""

	// Регистрация учителя: имя -> контакт -> логин
	flowTeacherName    flowState = "teacher_name"
	flowTeacherContact flowState = "teacher_contact"
	flowTeacherLogin   flowState = "teacher_login"

	// Регистрация ученика: логин учителя
	flowStudentTeacherLogin flowState = "student_teacher_login"

	// Учитель добавляет ученика вручную: имя -> контакт
	flowAddStudentName    flowState = "add_student_name"
	flowAddStudentContact flowState = "add_student_contact"

	// Перенос: причина текстом (после выбора урока)
	flowRescheduleReason flowState = "reschedule_reason"
)

type flowData struct {
	state flowState
	data  map[string]any
}

// textFlows хранит состояния текстовых мини-диалогов по telegram id
type textFlows struct {
	mu     sync.RWMutex
	states map[int64]*flowData
}

func newTextFlows() *textFlows {
	return &textFlows{states: make(map[int64]*flowData)}
}

func (f *textFlows) state(telegramID int64) flowState {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if fd, ok := f.states[telegramID]; ok {
		return fd.state
	}
	return flowNone
}

func (f *textFlows) setState(telegramID int64, state flowState) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if state == flowNone {
		delete(f.states, telegramID)
		return
	}

	if fd, ok := f.states[telegramID]; ok {
		fd.state = state
		return
	}
	f.states[telegramID] = &flowData{state: state, data: make(map[string]any)}
}

func (f *textFlows) get(telegramID int64, key string) (any, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if fd, ok := f.states[telegramID]; ok {
		value, ok := fd.data[key]
		return value, ok
	}
	return nil, false
}

func (f *textFlows) set(telegramID int64, key string, value any) {
	f.mu.Lock()
	defer f.mu.Unlock()

	fd, ok := f.states[telegramID]
	if !ok {
		fd = &flowData{state: flowNone, data: make(map[string]any)}
		f.states[telegramID] = fd
	}
	fd.data[key] = value
}

func (f *textFlows) clear(telegramID int64) {
	f.mu.Lock()
	delete(f.states, telegramID)
	f.mu.Unlock()
}
