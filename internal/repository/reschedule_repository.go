package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/lesson_bot/internal/model"
	"github.com/Freeeeeet/lesson_bot/internal/repository/base"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RescheduleRepository struct {
	*base.Repository
}

func NewRescheduleRepository(pool *pgxpool.Pool) *RescheduleRepository {
	return &RescheduleRepository{Repository: base.NewRepository(pool)}
}

const requestColumns = "id, token, lesson_id, student_id, new_date, new_time, reason, status, created_at, updated_at"

func scanRequest(row interface{ Scan(dest ...any) error }) (*model.RescheduleRequest, error) {
	var req model.RescheduleRequest
	err := row.Scan(
		&req.ID,
		&req.Token,
		&req.LessonID,
		&req.StudentID,
		&req.NewSlot.Date,
		&req.NewSlot.Hour,
		&req.Reason,
		&req.Status,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// Create сохраняет новый запрос переноса в статусе pending
func (r *RescheduleRepository) Create(ctx context.Context, req *model.RescheduleRequest) error {
	query := `
		INSERT INTO reschedule_requests (token, lesson_id, student_id, new_date, new_time, reason, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`

	err := r.Pool().QueryRow(
		ctx, query,
		req.Token,
		req.LessonID,
		req.StudentID,
		req.NewSlot.Date,
		req.NewSlot.Hour,
		req.Reason,
		req.Status,
	).Scan(&req.ID, &req.CreatedAt, &req.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create reschedule request: %w", err)
	}

	return nil
}

// GetByToken получает запрос по публичному токену
func (r *RescheduleRepository) GetByToken(ctx context.Context, token string) (*model.RescheduleRequest, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM reschedule_requests
		WHERE token = $1
	`

	req, err := scanRequest(r.Pool().QueryRow(ctx, query, token))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get reschedule request: %w", err)
	}

	return req, nil
}

// UpdateStatus переводит запрос из pending в терминальный статус.
// Guard по статусу гарантирует что два решения по одному запросу
// не пройдут оба.
func (r *RescheduleRepository) UpdateStatus(ctx context.Context, id int64, status model.RescheduleStatus) error {
	query := `
		UPDATE reschedule_requests
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = 'pending'
	`

	result, err := r.Pool().Exec(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("update reschedule status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrRequestNotPending
	}

	return nil
}

// AcceptPending переводит запрос в accepted и двигает урок в новый слот
// одной транзакцией. Согласие и перенос неразделимы: если guard по
// статусу не прошёл (запрос уже отклонён или протух), урок не двигается;
// если новый слот успели занять, откатывается и статус - запрос остаётся
// pending. Частично применённых решений не бывает.
func (r *RescheduleRepository) AcceptPending(ctx context.Context, requestID, lessonID int64, newSlot model.Slot) error {
	tx, err := r.Pool().Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	result, err := tx.Exec(ctx, `
		UPDATE reschedule_requests
		SET status = 'accepted', updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`, requestID)
	if err != nil {
		return fmt.Errorf("claim reschedule request: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrRequestNotPending
	}

	lesson, err := scanLesson(tx.QueryRow(ctx, `
		SELECT `+lessonColumns+`
		FROM lessons
		WHERE id = $1
		FOR UPDATE
	`, lessonID))
	if err != nil {
		if base.IsNotFound(err) {
			return ErrLessonNotFound
		}
		return fmt.Errorf("lock lesson: %w", err)
	}

	existing, err := findLessonBySlot(ctx, tx, "teacher_id", lesson.TeacherID, newSlot, lessonID)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrTeacherSlotTaken
	}

	existing, err = findLessonBySlot(ctx, tx, "student_id", lesson.StudentID, newSlot, lessonID)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrStudentSlotTaken
	}

	_, err = tx.Exec(ctx, `
		UPDATE lessons
		SET date = $1, time = $2
		WHERE id = $3
	`, newSlot.Date, newSlot.Hour, lessonID)
	if err != nil {
		return mapSlotViolation(err, "move lesson")
	}

	if err := tx.Commit(ctx); err != nil {
		return mapSlotViolation(err, "commit reschedule accept")
	}

	return nil
}

// HasPendingForLesson проверяет есть ли по уроку незакрытый запрос
func (r *RescheduleRepository) HasPendingForLesson(ctx context.Context, lessonID int64) (bool, error) {
	var exists bool
	err := r.Pool().QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM reschedule_requests
			WHERE lesson_id = $1 AND status = 'pending'
		)
	`, lessonID).Scan(&exists)

	if err != nil {
		return false, fmt.Errorf("check pending reschedule: %w", err)
	}

	return exists, nil
}

// ExpirePending помечает протухшими все pending-запросы старше deadline
// и возвращает их для уведомлений. Уроки при этом не трогаются.
func (r *RescheduleRepository) ExpirePending(ctx context.Context, deadline time.Time) ([]*model.RescheduleRequest, error) {
	query := `
		UPDATE reschedule_requests
		SET status = 'expired', updated_at = NOW()
		WHERE status = 'pending' AND created_at < $1
		RETURNING ` + requestColumns

	rows, err := r.Pool().Query(ctx, query, deadline)
	if err != nil {
		return nil, fmt.Errorf("expire reschedule requests: %w", err)
	}
	defer rows.Close()

	var expired []*model.RescheduleRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reschedule request: %w", err)
		}
		expired = append(expired, req)
	}

	return expired, rows.Err()
}
