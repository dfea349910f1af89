package database

import (
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/onurcolak/recurring-mailing-service/environments"
	"github.com/onurcolak/recurring-mailing-service/pkg/logger"
)

func NewMySQLDB(cfg environments.DatabaseConfig) (*sqlx.DB, error) {
	dsn := fmt.Sprintf(
		"%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&collation=utf8mb4_unicode_ci",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName,
	)

	db, err := sqlx.Connect("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Infof("Connected to MySQL database")
	return db, nil
}

func RunMigrations(db *sqlx.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS recipients (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			email VARCHAR(255) NOT NULL,
			display_name VARCHAR(255),
			comment TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			UNIQUE KEY uq_recipients_email (email)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`,

		`CREATE TABLE IF NOT EXISTS messages (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			subject VARCHAR(255) NOT NULL,
			body TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`,

		`CREATE TABLE IF NOT EXISTS schedules (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			message_id BIGINT NOT NULL,
			time_of_day TIME NOT NULL,
			period VARCHAR(10) NOT NULL,
			status VARCHAR(10) NOT NULL DEFAULT 'created',
			last_run_at DATETIME,
			next_run_at DATETIME,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			UNIQUE KEY uq_schedules_message (message_id),
			INDEX idx_schedules_next_run_at (next_run_at),
			CONSTRAINT fk_schedules_message FOREIGN KEY (message_id)
				REFERENCES messages (id) ON DELETE RESTRICT
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`,

		`CREATE TABLE IF NOT EXISTS schedule_recipients (
			schedule_id BIGINT NOT NULL,
			recipient_id BIGINT NOT NULL,
			PRIMARY KEY (schedule_id, recipient_id),
			CONSTRAINT fk_sr_schedule FOREIGN KEY (schedule_id)
				REFERENCES schedules (id) ON DELETE CASCADE,
			CONSTRAINT fk_sr_recipient FOREIGN KEY (recipient_id)
				REFERENCES recipients (id) ON DELETE CASCADE
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`,

		`CREATE TABLE IF NOT EXISTS run_logs (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			schedule_id BIGINT NOT NULL,
			attempted_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			outcome VARCHAR(10) NOT NULL,
			response TEXT,
			INDEX idx_run_logs_attempted_at (attempted_at),
			INDEX idx_run_logs_schedule (schedule_id),
			CONSTRAINT fk_run_logs_schedule FOREIGN KEY (schedule_id)
				REFERENCES schedules (id) ON DELETE CASCADE,
			CONSTRAINT chk_run_logs_failed_response
				CHECK (outcome <> 'failed' OR response IS NOT NULL)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	logger.Infof("Database migrations completed")

	return nil
}
