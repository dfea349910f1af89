package database

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/onurcolak/recurring-mailing-service/pkg/logger"
)

// SeedTestData inserts a demo newsletter with a recipient list and one daily
// schedule. A no-op when schedules already exist.
func SeedTestData(db *sqlx.DB) error {
	var count int
	if err := db.Get(&count, "SELECT COUNT(*) FROM schedules"); err != nil {
		return err
	}

	if count > 0 {
		logger.Infof("Database already has %d schedules, skipping seed", count)
		return nil
	}

	testRecipients := []struct {
		email       string
		displayName string
	}{
		{"alice@example.com", "Alice Tester"},
		{"bob@example.com", "Bob Tester"},
		{"carol@example.com", "Carol Tester"},
		{"dave@example.com", "Dave Tester"},
		{"erin@example.com", "Erin Tester"},
	}

	recipientIDs := make([]int64, 0, len(testRecipients))
	for _, rec := range testRecipients {
		result, err := db.Exec(
			"INSERT INTO recipients (email, display_name) VALUES (?, ?)",
			rec.email, rec.displayName,
		)
		if err != nil {
			return fmt.Errorf("failed to seed recipients: %w", err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return err
		}
		recipientIDs = append(recipientIDs, id)
	}

	msgResult, err := db.Exec(
		"INSERT INTO messages (subject, body) VALUES (?, ?)",
		"Daily digest", "Hello! This is the demo daily digest mailing.",
	)
	if err != nil {
		return fmt.Errorf("failed to seed message: %w", err)
	}

	messageID, err := msgResult.LastInsertId()
	if err != nil {
		return err
	}

	schedResult, err := db.Exec(
		`INSERT INTO schedules (message_id, time_of_day, period, status, next_run_at)
		 VALUES (?, '09:00:00', 'daily', 'created', DATE_ADD(CURDATE(), INTERVAL 33 HOUR))`,
		messageID,
	)
	if err != nil {
		return fmt.Errorf("failed to seed schedule: %w", err)
	}

	scheduleID, err := schedResult.LastInsertId()
	if err != nil {
		return err
	}

	for _, recipientID := range recipientIDs {
		_, err := db.Exec(
			"INSERT INTO schedule_recipients (schedule_id, recipient_id) VALUES (?, ?)",
			scheduleID, recipientID,
		)
		if err != nil {
			return fmt.Errorf("failed to seed schedule recipients: %w", err)
		}
	}

	logger.Infof("Seeded %d recipients and 1 daily schedule", len(recipientIDs))
	return nil
}
