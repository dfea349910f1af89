package environments

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Mailer    MailerConfig
	Scheduler SchedulerConfig
	Auth      AuthConfig
}

type ServerConfig struct {
	Port     string
	LogLevel string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type MailerConfig struct {
	URL     string
	AuthKey string
	From    string
	Timeout time.Duration
}

type SchedulerConfig struct {
	Timezone  string
	Workers   int
	QueueSize int
}

type AuthConfig struct {
	AdminAPIKey     string
	SchedulerAPIKey string
}

func Load() *Config {
	// Local development convenience; existing env vars are not overridden and
	// a missing .env file is fine.
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port:     GetEnv("SERVER_PORT", "8080"),
			LogLevel: GetEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			Host:     GetEnv("DB_HOST", "localhost"),
			Port:     GetEnv("DB_PORT", "3306"),
			User:     GetEnv("DB_USER", "mailing"),
			Password: GetEnv("DB_PASSWORD", "mailing123"),
			DBName:   GetEnv("DB_NAME", "mailing_schedules"),
		},
		Redis: RedisConfig{
			Host:     GetEnv("REDIS_HOST", "localhost"),
			Port:     GetEnv("REDIS_PORT", "6379"),
			Password: GetEnv("REDIS_PASSWORD", ""),
			DB:       GetEnvAsInt("REDIS_DB", 0),
		},
		Mailer: MailerConfig{
			URL:     GetEnv("MAILER_URL", "https://mail-gateway.local/v1/send"),
			AuthKey: GetEnv("MAILER_AUTH_KEY", ""),
			From:    GetEnv("MAILER_FROM", "noreply@example.com"),
			Timeout: time.Duration(GetEnvAsInt("MAILER_TIMEOUT_SECONDS", 30)) * time.Second,
		},
		Scheduler: SchedulerConfig{
			Timezone:  GetEnv("SCHEDULER_TIMEZONE", "UTC"),
			Workers:   GetEnvAsInt("SCHEDULER_WORKERS", 8),
			QueueSize: GetEnvAsInt("SCHEDULER_QUEUE_SIZE", 256),
		},
		Auth: AuthConfig{
			AdminAPIKey:     GetEnv("ADMIN_API_KEY", ""),
			SchedulerAPIKey: GetEnv("SCHEDULER_API_KEY", ""),
		},
	}
}

func GetEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func GetEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func GetEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
