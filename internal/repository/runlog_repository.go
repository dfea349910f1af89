package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/onurcolak/recurring-mailing-service/internal/domain"
)

// RunLogRepository appends and reads delivery-attempt records. Rows are
// immutable: there is no update or delete path.
type RunLogRepository struct {
	db *sqlx.DB
}

func NewRunLogRepository(db *sqlx.DB) *RunLogRepository {
	return &RunLogRepository{db: db}
}

// Create appends one attempt record. attempted_at is set by the database and
// never touched afterwards.
func (r *RunLogRepository) Create(
	ctx context.Context,
	scheduleID int64,
	outcome domain.RunOutcome,
	response *string,
) (*domain.RunLog, error) {
	result, err := r.db.ExecContext(ctx,
		"INSERT INTO run_logs (schedule_id, outcome, response) VALUES (?, ?, ?)",
		scheduleID, outcome, response)
	if err != nil {
		return nil, fmt.Errorf("failed to create run log: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	var entry domain.RunLog
	err = r.db.GetContext(ctx, &entry,
		"SELECT id, schedule_id, attempted_at, outcome, response FROM run_logs WHERE id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("failed to get run log: %w", err)
	}

	return &entry, nil
}

// ListBySchedule returns a schedule's attempts, newest first.
func (r *RunLogRepository) ListBySchedule(
	ctx context.Context,
	scheduleID int64,
	page, pageSize int,
) ([]domain.RunLog, int64, error) {
	offset := (page - 1) * pageSize

	var totalCount int64
	err := r.db.GetContext(ctx, &totalCount,
		"SELECT COUNT(*) FROM run_logs WHERE schedule_id = ?", scheduleID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count run logs: %w", err)
	}

	query := `
		SELECT id, schedule_id, attempted_at, outcome, response
		FROM run_logs
		WHERE schedule_id = ?
		ORDER BY attempted_at DESC, id DESC
		LIMIT ? OFFSET ?
	`

	var logs []domain.RunLog
	if err := r.db.SelectContext(ctx, &logs, query, scheduleID, pageSize, offset); err != nil {
		return nil, 0, fmt.Errorf("failed to list run logs: %w", err)
	}

	return logs, totalCount, nil
}
