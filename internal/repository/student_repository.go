package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/lesson_bot/internal/model"
	"github.com/Freeeeeet/lesson_bot/internal/repository/base"
	"github.com/jackc/pgx/v5/pgxpool"
)

type StudentRepository struct {
	*base.Repository
}

func NewStudentRepository(pool *pgxpool.Pool) *StudentRepository {
	return &StudentRepository{Repository: base.NewRepository(pool)}
}

// Create создаёт нового ученика
func (r *StudentRepository) Create(ctx context.Context, student *model.Student) error {
	query := `
		INSERT INTO students (name, contact_info, teacher_id, telegram_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := r.Pool().QueryRow(
		ctx, query,
		student.Name,
		student.ContactInfo,
		student.TeacherID,
		student.TelegramID,
	).Scan(&student.ID, &student.CreatedAt)

	if err != nil {
		if constraint, ok := base.UniqueViolation(err); ok && constraint == "students_telegram_id_key" {
			return ErrAlreadyRegistered
		}
		return fmt.Errorf("create student: %w", err)
	}

	return nil
}

// GetByID получает ученика по ID
func (r *StudentRepository) GetByID(ctx context.Context, id int64) (*model.Student, error) {
	return r.getBy(ctx, "id = $1", id)
}

// GetByTelegramID получает ученика по telegram id
func (r *StudentRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*model.Student, error) {
	return r.getBy(ctx, "telegram_id = $1 AND telegram_id <> 0", telegramID)
}

func (r *StudentRepository) getBy(ctx context.Context, where string, arg any) (*model.Student, error) {
	query := `
		SELECT id, name, contact_info, teacher_id, telegram_id, created_at
		FROM students
		WHERE ` + where

	var student model.Student
	err := r.Pool().QueryRow(ctx, query, arg).Scan(
		&student.ID,
		&student.Name,
		&student.ContactInfo,
		&student.TeacherID,
		&student.TelegramID,
		&student.CreatedAt,
	)

	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get student: %w", err)
	}

	return &student, nil
}

// GetByTeacherID получает всех учеников учителя
func (r *StudentRepository) GetByTeacherID(ctx context.Context, teacherID int64) ([]*model.Student, error) {
	query := `
		SELECT id, name, contact_info, teacher_id, telegram_id, created_at
		FROM students
		WHERE teacher_id = $1
		ORDER BY name
	`

	rows, err := r.Pool().Query(ctx, query, teacherID)
	if err != nil {
		return nil, fmt.Errorf("get students by teacher: %w", err)
	}
	defer rows.Close()

	var students []*model.Student
	for rows.Next() {
		var student model.Student
		err := rows.Scan(
			&student.ID,
			&student.Name,
			&student.ContactInfo,
			&student.TeacherID,
			&student.TelegramID,
			&student.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan student: %w", err)
		}
		students = append(students, &student)
	}

	return students, rows.Err()
}
