// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/jason-s-yu/fourcolor/internal/models"
	"github.com/redis/go-redis/v9"
)

// Rdb is the global Redis client. Connect it once at application startup.
var Rdb *redis.Client

// DefaultQueueName is the Redis list (queue) name for accepted table actions.
var DefaultQueueName = "fourcolor_actions"

// ConnectRedis initializes the global Redis client with environment variables:
//   - REDIS_ADDR (default "localhost:6379")
//   - REDIS_DB (optional, default 0)
func ConnectRedis() error {
	addr := getEnv("REDIS_ADDR", "localhost:6379")
	dbIdx := getEnvInt("REDIS_DB", 0)

	Rdb = redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   dbIdx,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := Rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return nil
}

// QueueName returns HISTORIAN_QUEUE_NAME or the default queue.
func QueueName() string {
	return getEnv("HISTORIAN_QUEUE_NAME", DefaultQueueName)
}

// Queue pushes action records onto a Redis list for the historian.
type Queue struct {
	client *redis.Client
	name   string
}

// NewQueue returns a queue on client. An empty name selects QueueName().
func NewQueue(client *redis.Client, name string) *Queue {
	if name == "" {
		name = QueueName()
	}
	return &Queue{client: client, name: name}
}

// Name is the Redis list the queue writes to.
func (q *Queue) Name() string {
	return q.name
}

// PublishAction serializes the record to JSON, then pushes it to the Redis queue.
func (q *Queue) PublishAction(ctx context.Context, rec models.ActionRecord) error {
	data, err := EncodeAction(rec)
	if err != nil {
		return err
	}
	if err := q.client.RPush(ctx, q.name, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", q.name, err)
	}
	return nil
}

// EncodeAction is the queue wire format of a record.
func EncodeAction(rec models.ActionRecord) ([]byte, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ActionRecord: %w", err)
	}
	return data, nil
}

// DecodeAction parses one queue payload.
func DecodeAction(payload string) (models.ActionRecord, error) {
	var rec models.ActionRecord
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		return models.ActionRecord{}, fmt.Errorf("invalid action record: %w", err)
	}
	return rec, nil
}

// getEnv is a helper to read an environment variable or return a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvInt is a helper to parse an environment variable as integer, else a default value.
func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
