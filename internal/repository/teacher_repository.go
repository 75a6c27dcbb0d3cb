package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/lesson_bot/internal/model"
	"github.com/Freeeeeet/lesson_bot/internal/repository/base"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TeacherRepository struct {
	*base.Repository
}

func NewTeacherRepository(pool *pgxpool.Pool) *TeacherRepository {
	return &TeacherRepository{Repository: base.NewRepository(pool)}
}

// Create создаёт нового учителя. Логин и telegram_id уникальны,
// нарушение отдаётся как ErrLoginTaken / ErrAlreadyRegistered.
func (r *TeacherRepository) Create(ctx context.Context, teacher *model.Teacher) error {
	query := `
		INSERT INTO teachers (name, contact_info, login, telegram_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := r.Pool().QueryRow(
		ctx, query,
		teacher.Name,
		teacher.ContactInfo,
		teacher.Login,
		teacher.TelegramID,
	).Scan(&teacher.ID, &teacher.CreatedAt)

	if err != nil {
		if constraint, ok := base.UniqueViolation(err); ok {
			switch constraint {
			case "teachers_login_key":
				return ErrLoginTaken
			case "teachers_telegram_id_key":
				return ErrAlreadyRegistered
			}
		}
		return fmt.Errorf("create teacher: %w", err)
	}

	return nil
}

// GetByID получает учителя по ID
func (r *TeacherRepository) GetByID(ctx context.Context, id int64) (*model.Teacher, error) {
	return r.getBy(ctx, "id = $1", id)
}

// GetByLogin получает учителя по логину
func (r *TeacherRepository) GetByLogin(ctx context.Context, login string) (*model.Teacher, error) {
	return r.getBy(ctx, "login = $1", login)
}

// GetByTelegramID получает учителя по telegram id
func (r *TeacherRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*model.Teacher, error) {
	return r.getBy(ctx, "telegram_id = $1", telegramID)
}

func (r *TeacherRepository) getBy(ctx context.Context, where string, arg any) (*model.Teacher, error) {
	query := `
		SELECT id, name, contact_info, login, telegram_id, created_at
		FROM teachers
		WHERE ` + where

	var teacher model.Teacher
	err := r.Pool().QueryRow(ctx, query, arg).Scan(
		&teacher.ID,
		&teacher.Name,
		&teacher.ContactInfo,
		&teacher.Login,
		&teacher.TelegramID,
		&teacher.CreatedAt,
	)

	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get teacher: %w", err)
	}

	return &teacher, nil
}
