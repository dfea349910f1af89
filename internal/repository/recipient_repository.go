package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/onurcolak/recurring-mailing-service/internal/domain"
)

const mysqlErrDuplicateEntry = 1062

// RecipientRepository handles database operations for recipients.
type RecipientRepository struct {
	db *sqlx.DB
}

func NewRecipientRepository(db *sqlx.DB) *RecipientRepository {
	return &RecipientRepository{db: db}
}

func isDuplicateEntry(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlErrDuplicateEntry
}

func (r *RecipientRepository) Create(ctx context.Context, rec *domain.Recipient) (*domain.Recipient, error) {
	query := `
		INSERT INTO recipients (email, display_name, comment)
		VALUES (?, ?, ?)
	`

	email := strings.ToLower(rec.Email)

	result, err := r.db.ExecContext(ctx, query, email, rec.DisplayName, rec.Comment)
	if err != nil {
		if isDuplicateEntry(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create recipient: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return r.GetByID(ctx, id)
}

func (r *RecipientRepository) GetByID(ctx context.Context, id int64) (*domain.Recipient, error) {
	query := `
		SELECT id, email, display_name, comment, created_at, updated_at
		FROM recipients
		WHERE id = ?
	`

	var rec domain.Recipient
	if err := r.db.GetContext(ctx, &rec, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecipientNotFound
		}
		return nil, fmt.Errorf("failed to get recipient: %w", err)
	}

	return &rec, nil
}

func (r *RecipientRepository) List(ctx context.Context, page, pageSize int) ([]domain.Recipient, int64, error) {
	offset := (page - 1) * pageSize

	var totalCount int64
	if err := r.db.GetContext(ctx, &totalCount, "SELECT COUNT(*) FROM recipients"); err != nil {
		return nil, 0, fmt.Errorf("failed to count recipients: %w", err)
	}

	query := `
		SELECT id, email, display_name, comment, created_at, updated_at
		FROM recipients
		ORDER BY email ASC
		LIMIT ? OFFSET ?
	`

	var recipients []domain.Recipient
	if err := r.db.SelectContext(ctx, &recipients, query, pageSize, offset); err != nil {
		return nil, 0, fmt.Errorf("failed to list recipients: %w", err)
	}

	return recipients, totalCount, nil
}

func (r *RecipientRepository) Update(ctx context.Context, rec *domain.Recipient) (*domain.Recipient, error) {
	query := `
		UPDATE recipients
		SET email = ?, display_name = ?, comment = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	email := strings.ToLower(rec.Email)

	result, err := r.db.ExecContext(ctx, query, email, rec.DisplayName, rec.Comment, rec.ID)
	if err != nil {
		if isDuplicateEntry(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to update recipient: %w", err)
	}

	if _, err := result.RowsAffected(); err != nil {
		return nil, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return r.GetByID(ctx, rec.ID)
}

func (r *RecipientRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM recipients WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete recipient: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if rows == 0 {
		return ErrRecipientNotFound
	}

	return nil
}
