package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/smd-syllabus-api/internal/models"
	appErrors "github.com/noah-isme/smd-syllabus-api/pkg/errors"
)

const aiTaskKeyPrefix = "ai:task:"

// AITaskRepository stores AI task state in Redis under ai:task:<id> with a TTL.
type AITaskRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewAITaskRepository constructs the repository.
func NewAITaskRepository(client *redis.Client, logger *zap.Logger) *AITaskRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AITaskRepository{client: client, logger: logger}
}

// AITaskKey returns the Redis key of a task.
func AITaskKey(taskID string) string {
	return aiTaskKeyPrefix + taskID
}

// Get loads a task. Missing or expired tasks yield appErrors.ErrCacheMiss.
func (r *AITaskRepository) Get(ctx context.Context, taskID string) (*models.AITask, error) {
	if r.client == nil {
		return nil, appErrors.ErrCacheMiss
	}

	key := AITaskKey(taskID)
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, appErrors.ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}

	var task models.AITask
	if err := json.Unmarshal(raw, &task); err != nil {
		return nil, fmt.Errorf("unmarshal ai task %s: %w", key, err)
	}
	return &task, nil
}

// Save writes the task, refreshing its TTL.
func (r *AITaskRepository) Save(ctx context.Context, task *models.AITask, ttl time.Duration) error {
	if r.client == nil {
		return errors.New("ai task store not configured")
	}

	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal ai task %s: %w", task.TaskID, err)
	}

	key := AITaskKey(task.TaskID)
	if err := r.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	r.logger.Debug("ai task stored", zap.String("task_id", task.TaskID), zap.String("status", string(task.Status)))
	return nil
}

// Close releases the underlying Redis connection if present.
func (r *AITaskRepository) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}
