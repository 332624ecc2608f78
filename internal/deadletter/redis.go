package deadletter

import (
	// Go Internal Packages
	"context"
	"encoding/json"
	"fmt"

	// Local Packages
	"bnpl-service/internal/models"

	// External Packages
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Connect connects to redis and returns the client.
func Connect(ctx context.Context, uri, password string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     uri,
		Password: password,
		DB:       0,
	})

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return rdb, nil
}

// Queue parks webhook events that could not be applied.
type Queue struct {
	client *redis.Client
	logger *zap.Logger
	prefix string
}

func NewQueue(client *redis.Client, logger *zap.Logger) *Queue {
	return &Queue{client: client, logger: logger, prefix: "webhook"}
}

func (q *Queue) key(k string) string {
	return fmt.Sprintf("%s:%s", q.prefix, k)
}

// Send stores each failed event under "webhook:{key}". A later failure of the
// same event overwrites the earlier one.
func (q *Queue) Send(ctx context.Context, records []models.FailedEvent) error {
	if len(records) == 0 {
		return nil
	}

	var lastErr error
	stored := 0
	for _, record := range records {
		data, err := json.Marshal(record)
		if err != nil {
			q.logger.Error("failed to marshal failed event", zap.String("key", record.Key), zap.Error(err))
			lastErr = err
			continue
		}

		key := q.key(record.Key)
		if err := q.client.Set(ctx, key, data, 0).Err(); err != nil {
			q.logger.Error("failed to store failed event", zap.String("key", key), zap.Error(err))
			lastErr = err
			continue
		}
		stored++
	}

	if stored > 0 {
		q.logger.Info("failed events parked", zap.Int("count", stored))
	}
	return lastErr
}

// Get loads one parked event. It returns redis.Nil when nothing is stored
// under key.
func (q *Queue) Get(ctx context.Context, key string) (*models.FailedEvent, error) {
	data, err := q.client.Get(ctx, q.key(key)).Bytes()
	if err != nil {
		return nil, err
	}
	var record models.FailedEvent
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, err
	}
	return &record, nil
}
