package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/onurcolak/recurring-mailing-service/internal/domain"
)

// ScheduleRepository handles database operations for schedules, including the
// temporal state the dispatcher and send executor work against.
type ScheduleRepository struct {
	db *sqlx.DB
}

func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

const scheduleColumns = `
	id, message_id, time_of_day, period, status,
	last_run_at, next_run_at, created_at, updated_at
`

func (r *ScheduleRepository) Create(
	ctx context.Context,
	s *domain.Schedule,
	recipientIDs []int64,
) (*domain.Schedule, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	query := `
		INSERT INTO schedules (message_id, time_of_day, period, status, next_run_at)
		VALUES (?, ?, ?, ?, ?)
	`

	result, err := tx.ExecContext(ctx, query,
		s.MessageID, s.TimeOfDay, s.Period, s.Status, s.NextRunAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create schedule: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	if err := syncRecipients(ctx, tx, id, recipientIDs); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit schedule: %w", err)
	}

	return r.GetByID(ctx, id)
}

func (r *ScheduleRepository) GetByID(ctx context.Context, id int64) (*domain.Schedule, error) {
	query := "SELECT " + scheduleColumns + " FROM schedules WHERE id = ?"

	var s domain.Schedule
	if err := r.db.GetContext(ctx, &s, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrScheduleNotFound
		}
		return nil, fmt.Errorf("failed to get schedule: %w", err)
	}

	return &s, nil
}

func (r *ScheduleRepository) List(ctx context.Context, page, pageSize int) ([]domain.Schedule, int64, error) {
	offset := (page - 1) * pageSize

	var totalCount int64
	if err := r.db.GetContext(ctx, &totalCount, "SELECT COUNT(*) FROM schedules"); err != nil {
		return nil, 0, fmt.Errorf("failed to count schedules: %w", err)
	}

	query := "SELECT " + scheduleColumns + ` FROM schedules
		ORDER BY next_run_at ASC
		LIMIT ? OFFSET ?`

	var schedules []domain.Schedule
	if err := r.db.SelectContext(ctx, &schedules, query, pageSize, offset); err != nil {
		return nil, 0, fmt.Errorf("failed to list schedules: %w", err)
	}

	return schedules, totalCount, nil
}

// Update persists the editable fields and the recomputed next_run_at. When
// recipientIDs is non-nil the recipient set is replaced as part of the same
// transaction.
func (r *ScheduleRepository) Update(
	ctx context.Context,
	s *domain.Schedule,
	recipientIDs []int64,
) (*domain.Schedule, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	query := `
		UPDATE schedules
		SET message_id = ?, time_of_day = ?, period = ?, next_run_at = ?,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	result, err := tx.ExecContext(ctx, query,
		s.MessageID, s.TimeOfDay, s.Period, s.NextRunAt, s.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to update schedule: %w", err)
	}

	if _, err := result.RowsAffected(); err != nil {
		return nil, fmt.Errorf("failed to get affected rows: %w", err)
	}

	if recipientIDs != nil {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM schedule_recipients WHERE schedule_id = ?", s.ID); err != nil {
			return nil, fmt.Errorf("failed to clear schedule recipients: %w", err)
		}

		if err := syncRecipients(ctx, tx, s.ID, recipientIDs); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit schedule update: %w", err)
	}

	return r.GetByID(ctx, s.ID)
}

func syncRecipients(ctx context.Context, tx *sqlx.Tx, scheduleID int64, recipientIDs []int64) error {
	for _, recipientID := range recipientIDs {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO schedule_recipients (schedule_id, recipient_id) VALUES (?, ?)",
			scheduleID, recipientID)
		if err != nil {
			return fmt.Errorf("failed to attach recipient %d: %w", recipientID, err)
		}
	}
	return nil
}

func (r *ScheduleRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM schedules WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete schedule: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if rows == 0 {
		return ErrScheduleNotFound
	}

	return nil
}

// DueInWindow returns the ids of schedules whose next_run_at falls in
// [start, end), skipping rows that are mid-flight and rows with no recipients.
// One query regardless of candidate count: the dispatch sweep must not issue
// per-row lookups.
func (r *ScheduleRepository) DueInWindow(ctx context.Context, start, end time.Time) ([]int64, error) {
	query := `
		SELECT s.id
		FROM schedules s
		WHERE s.next_run_at >= ? AND s.next_run_at < ?
		  AND s.status <> 'running'
		  AND EXISTS (
			SELECT 1 FROM schedule_recipients sr WHERE sr.schedule_id = s.id
		  )
	`

	var ids []int64
	if err := r.db.SelectContext(ctx, &ids, query, start, end); err != nil {
		return nil, fmt.Errorf("failed to select due schedules: %w", err)
	}

	return ids, nil
}

// ClaimRunning flips status to running only if the schedule is not already
// running. The conditional update makes the claim atomic, so a concurrent or
// redelivered invocation loses the claim instead of double-sending.
func (r *ScheduleRepository) ClaimRunning(ctx context.Context, id int64) (bool, error) {
	query := `
		UPDATE schedules
		SET status = 'running', updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status <> 'running'
	`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to claim schedule %d: %w", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return rows > 0, nil
}

// SetStatus persists only the status field.
func (r *ScheduleRepository) SetStatus(ctx context.Context, id int64, status domain.ScheduleStatus) error {
	query := `
		UPDATE schedules
		SET status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	if _, err := r.db.ExecContext(ctx, query, status, id); err != nil {
		return fmt.Errorf("failed to set schedule %d status: %w", id, err)
	}

	return nil
}

// AdvanceNextRun persists the advanced next_run_at and stamps last_run_at.
func (r *ScheduleRepository) AdvanceNextRun(ctx context.Context, id int64, nextRun, lastRun time.Time) error {
	query := `
		UPDATE schedules
		SET next_run_at = ?, last_run_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	if _, err := r.db.ExecContext(ctx, query, nextRun, lastRun, id); err != nil {
		return fmt.Errorf("failed to advance schedule %d: %w", id, err)
	}

	return nil
}

// GetDelivery loads a schedule together with its message and the current
// recipient addresses, as one unit for the send executor.
func (r *ScheduleRepository) GetDelivery(ctx context.Context, id int64) (*domain.Delivery, error) {
	schedule, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var msg domain.Message
	err = r.db.GetContext(ctx, &msg,
		"SELECT id, subject, body, created_at, updated_at FROM messages WHERE id = ?",
		schedule.MessageID)
	if err != nil {
		return nil, fmt.Errorf("failed to get schedule message: %w", err)
	}

	var emails []string
	err = r.db.SelectContext(ctx, &emails, `
		SELECT r.email
		FROM recipients r
		JOIN schedule_recipients sr ON sr.recipient_id = r.id
		WHERE sr.schedule_id = ?
		ORDER BY r.email ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get schedule recipients: %w", err)
	}

	return &domain.Delivery{
		Schedule:   *schedule,
		Message:    msg,
		Recipients: emails,
	}, nil
}

// RecipientIDs returns the attached recipient ids for one schedule.
func (r *ScheduleRepository) RecipientIDs(ctx context.Context, id int64) ([]int64, error) {
	var ids []int64
	err := r.db.SelectContext(ctx, &ids,
		"SELECT recipient_id FROM schedule_recipients WHERE schedule_id = ? ORDER BY recipient_id", id)
	if err != nil {
		return nil, fmt.Errorf("failed to get schedule recipient ids: %w", err)
	}
	return ids, nil
}
