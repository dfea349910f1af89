package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/onurcolak/recurring-mailing-service/environments"
	"github.com/onurcolak/recurring-mailing-service/internal/domain"
	"github.com/onurcolak/recurring-mailing-service/pkg/logger"
)

// Client caches each schedule's most recent run outcome so the admin API can
// show it without hitting the run_logs table.
type Client struct {
	client valkey.Client
}

const (
	lastRunKeyPrefix = "last_run:"
	lastRunTTL       = 48 * time.Hour
)

func NewRedisClient(cfg environments.RedisConfig) (*Client, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)},
		Password:    cfg.Password,
		SelectDB:    cfg.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Valkey client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()

		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Infof("Connected to Redis (via Valkey client)")

	return &Client{client: client}, nil
}

func (c *Client) CacheLastRun(ctx context.Context, scheduleID int64, entry domain.LastRunCache) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal cache data: %w", err)
	}

	key := fmt.Sprintf("%s%d", lastRunKeyPrefix, scheduleID)

	err = c.client.Do(ctx, c.client.B().Set().Key(key).Value(string(data)).Ex(lastRunTTL).Build()).Error()
	if err != nil {
		return fmt.Errorf("failed to cache last run: %w", err)
	}

	logger.Debugf("Cached last run for schedule %d (%s)", scheduleID, entry.Outcome)

	return nil
}

func (c *Client) GetLastRun(ctx context.Context, scheduleID int64) (*domain.LastRunCache, error) {
	key := fmt.Sprintf("%s%d", lastRunKeyPrefix, scheduleID)

	result := c.client.Do(ctx, c.client.B().Get().Key(key).Build())
	if result.Error() != nil {
		if valkey.IsValkeyNil(result.Error()) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cached last run: %w", result.Error())
	}

	data, err := result.ToString()
	if err != nil {
		return nil, fmt.Errorf("failed to read cached last run: %w", err)
	}

	var entry domain.LastRunCache
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache data: %w", err)
	}

	return &entry, nil
}

func (c *Client) GetAllLastRuns(ctx context.Context) (map[int64]*domain.LastRunCache, error) {
	pattern := lastRunKeyPrefix + "*"

	var keys []string
	var cursor uint64
	for {
		result := c.client.Do(ctx, c.client.B().Scan().Cursor(cursor).Match(pattern).Count(100).Build())
		if result.Error() != nil {
			return nil, fmt.Errorf("failed to scan cache keys: %w", result.Error())
		}

		scanResult, err := result.AsScanEntry()
		if err != nil {
			return nil, fmt.Errorf("failed to parse scan result: %w", err)
		}

		keys = append(keys, scanResult.Elements...)
		cursor = scanResult.Cursor

		if cursor == 0 {
			break
		}
	}

	entries := make(map[int64]*domain.LastRunCache)

	for _, key := range keys {
		getResult := c.client.Do(ctx, c.client.B().Get().Key(key).Build())
		if getResult.Error() != nil {
			continue
		}

		data, err := getResult.ToString()
		if err != nil {
			continue
		}

		var entry domain.LastRunCache
		if err := json.Unmarshal([]byte(data), &entry); err != nil {
			continue
		}

		var scheduleID int64
		if _, err := fmt.Sscanf(key, lastRunKeyPrefix+"%d", &scheduleID); err != nil {
			logger.Warnf("failed to parse schedule id from redis key %q: %v", key, err)
			continue
		}

		entries[scheduleID] = &entry
	}

	return entries, nil
}

func (c *Client) Close() error {
	c.client.Close()
	return nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.client.Do(ctx, c.client.B().Ping().Build()).Error()
}
