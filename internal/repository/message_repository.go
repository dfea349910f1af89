package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/onurcolak/recurring-mailing-service/internal/domain"
)

// MessageRepository handles database operations for mail messages.
type MessageRepository struct {
	db *sqlx.DB
}

func NewMessageRepository(db *sqlx.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Create(ctx context.Context, subject, body string) (*domain.Message, error) {
	result, err := r.db.ExecContext(ctx,
		"INSERT INTO messages (subject, body) VALUES (?, ?)", subject, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return r.GetByID(ctx, id)
}

func (r *MessageRepository) GetByID(ctx context.Context, id int64) (*domain.Message, error) {
	query := `
		SELECT id, subject, body, created_at, updated_at
		FROM messages
		WHERE id = ?
	`

	var msg domain.Message
	if err := r.db.GetContext(ctx, &msg, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMessageNotFound
		}
		return nil, fmt.Errorf("failed to get message: %w", err)
	}

	return &msg, nil
}

func (r *MessageRepository) List(ctx context.Context, page, pageSize int) ([]domain.Message, int64, error) {
	offset := (page - 1) * pageSize

	var totalCount int64
	if err := r.db.GetContext(ctx, &totalCount, "SELECT COUNT(*) FROM messages"); err != nil {
		return nil, 0, fmt.Errorf("failed to count messages: %w", err)
	}

	query := `
		SELECT id, subject, body, created_at, updated_at
		FROM messages
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`

	var messages []domain.Message
	if err := r.db.SelectContext(ctx, &messages, query, pageSize, offset); err != nil {
		return nil, 0, fmt.Errorf("failed to list messages: %w", err)
	}

	return messages, totalCount, nil
}

func (r *MessageRepository) Update(ctx context.Context, msg *domain.Message) (*domain.Message, error) {
	query := `
		UPDATE messages
		SET subject = ?, body = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	if _, err := r.db.ExecContext(ctx, query, msg.Subject, msg.Body, msg.ID); err != nil {
		return nil, fmt.Errorf("failed to update message: %w", err)
	}

	return r.GetByID(ctx, msg.ID)
}

// Delete removes a message unless a schedule references it. The FK is
// RESTRICT as well, but checking first gives the caller a clean error instead
// of a driver-specific one.
func (r *MessageRepository) Delete(ctx context.Context, id int64) error {
	var referenced int
	err := r.db.GetContext(ctx, &referenced,
		"SELECT COUNT(*) FROM schedules WHERE message_id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to check message references: %w", err)
	}

	if referenced > 0 {
		return ErrMessageInUse
	}

	result, err := r.db.ExecContext(ctx, "DELETE FROM messages WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if rows == 0 {
		return ErrMessageNotFound
	}

	return nil
}
