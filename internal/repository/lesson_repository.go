package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/lesson_bot/internal/model"
	"github.com/Freeeeeet/lesson_bot/internal/repository/base"
	"github.com/jackc/pgx/v5/pgxpool"
)

type LessonRepository struct {
	*base.Repository
}

func NewLessonRepository(pool *pgxpool.Pool) *LessonRepository {
	return &LessonRepository{Repository: base.NewRepository(pool)}
}

const lessonColumns = "id, date, time, teacher_id, student_id, created_at"

func scanLesson(row interface{ Scan(dest ...any) error }) (*model.Lesson, error) {
	var lesson model.Lesson
	err := row.Scan(
		&lesson.ID,
		&lesson.Slot.Date,
		&lesson.Slot.Hour,
		&lesson.TeacherID,
		&lesson.StudentID,
		&lesson.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &lesson, nil
}

// FindByTeacherSlot ищет урок учителя в заданном слоте.
// Советующая проверка конфликтов читает текущее закоммиченное состояние,
// без транзакционной изоляции. excludeLessonID > 0 исключает собственный
// урок (перенос не должен конфликтовать сам с собой).
func (r *LessonRepository) FindByTeacherSlot(ctx context.Context, teacherID int64, slot model.Slot, excludeLessonID int64) (*model.Lesson, error) {
	return findLessonBySlot(ctx, r.Pool(), "teacher_id", teacherID, slot, excludeLessonID)
}

// FindByStudentSlot ищет урок ученика в заданном слоте
func (r *LessonRepository) FindByStudentSlot(ctx context.Context, studentID int64, slot model.Slot, excludeLessonID int64) (*model.Lesson, error) {
	return findLessonBySlot(ctx, r.Pool(), "student_id", studentID, slot, excludeLessonID)
}

func findLessonBySlot(ctx context.Context, q base.Querier, column string, ownerID int64, slot model.Slot, excludeLessonID int64) (*model.Lesson, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM lessons
		WHERE %s = $1 AND date = $2 AND time = $3 AND id <> $4
	`, lessonColumns, column)

	lesson, err := scanLesson(q.QueryRow(ctx, query, ownerID, slot.Date, slot.Hour, excludeLessonID))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("find lesson by %s slot: %w", column, err)
	}

	return lesson, nil
}

// GetByID получает урок по ID
func (r *LessonRepository) GetByID(ctx context.Context, id int64) (*model.Lesson, error) {
	query := `
		SELECT ` + lessonColumns + `
		FROM lessons
		WHERE id = $1
	`

	lesson, err := scanLesson(r.Pool().QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get lesson by id: %w", err)
	}

	return lesson, nil
}

// Book атомарно создаёт урок. Внутри транзакции инварианты перепроверяются,
// но последнее слово за констрейнтами lessons_teacher_slot_key и
// lessons_student_slot_key: проигравший гонку INSERT получает
// ErrTeacherSlotTaken / ErrStudentSlotTaken, а не сырую ошибку БД.
func (r *LessonRepository) Book(ctx context.Context, lesson *model.Lesson) error {
	tx, err := r.Pool().Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Перепроверяем занятость внутри транзакции
	existing, err := findLessonBySlot(ctx, tx, "teacher_id", lesson.TeacherID, lesson.Slot, 0)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrTeacherSlotTaken
	}

	existing, err = findLessonBySlot(ctx, tx, "student_id", lesson.StudentID, lesson.Slot, 0)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrStudentSlotTaken
	}

	query := `
		INSERT INTO lessons (date, time, teacher_id, student_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err = tx.QueryRow(
		ctx, query,
		lesson.Slot.Date,
		lesson.Slot.Hour,
		lesson.TeacherID,
		lesson.StudentID,
	).Scan(&lesson.ID, &lesson.CreatedAt)

	if err != nil {
		return mapSlotViolation(err, "insert lesson")
	}

	if err := tx.Commit(ctx); err != nil {
		return mapSlotViolation(err, "commit booking")
	}

	return nil
}

// Delete удаляет урок (отмена), освобождая слот
func (r *LessonRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.Pool().Exec(ctx, `DELETE FROM lessons WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete lesson: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrLessonNotFound
	}

	return nil
}

// GetUpcomingByStudent получает будущие уроки ученика
func (r *LessonRepository) GetUpcomingByStudent(ctx context.Context, studentID int64, from model.Slot) ([]*model.Lesson, error) {
	query := `
		SELECT ` + lessonColumns + `
		FROM lessons
		WHERE student_id = $1 AND date >= $2
		ORDER BY date, time
	`

	return r.list(ctx, query, studentID, from.Date)
}

// GetByTeacherAndDate получает уроки учителя на день
func (r *LessonRepository) GetByTeacherAndDate(ctx context.Context, teacherID int64, date model.Slot) ([]*model.Lesson, error) {
	query := `
		SELECT ` + lessonColumns + `
		FROM lessons
		WHERE teacher_id = $1 AND date = $2
		ORDER BY time
	`

	return r.list(ctx, query, teacherID, date.Date)
}

func (r *LessonRepository) list(ctx context.Context, query string, args ...any) ([]*model.Lesson, error) {
	rows, err := r.Pool().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list lessons: %w", err)
	}
	defer rows.Close()

	var lessons []*model.Lesson
	for rows.Next() {
		lesson, err := scanLesson(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lesson: %w", err)
		}
		lessons = append(lessons, lesson)
	}

	return lessons, rows.Err()
}

func mapSlotViolation(err error, op string) error {
	if constraint, ok := base.UniqueViolation(err); ok {
		switch constraint {
		case "lessons_teacher_slot_key":
			return ErrTeacherSlotTaken
		case "lessons_student_slot_key":
			return ErrStudentSlotTaken
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
