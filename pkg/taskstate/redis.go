package taskstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	pendingPrefix = "genstudio:task:"
	guardPrefix   = "genstudio:guard:"
)

// RedisStore shares pending tasks and guard keys across replicas.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: DefaultPendingTTL}
}

func (s *RedisStore) Save(ctx context.Context, task PendingTask) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal pending task: %w", err)
	}
	return s.rdb.Set(ctx, pendingPrefix+task.TaskID, data, s.ttl).Err()
}

func (s *RedisStore) Get(ctx context.Context, taskID string) (PendingTask, bool, error) {
	data, err := s.rdb.Get(ctx, pendingPrefix+taskID).Bytes()
	if errors.Is(err, redis.Nil) {
		return PendingTask{}, false, nil
	}
	if err != nil {
		return PendingTask{}, false, err
	}
	var task PendingTask
	if err := json.Unmarshal(data, &task); err != nil {
		return PendingTask{}, false, fmt.Errorf("unmarshal pending task %s: %w", taskID, err)
	}
	return task, true, nil
}

func (s *RedisStore) Delete(ctx context.Context, taskID string) error {
	return s.rdb.Del(ctx, pendingPrefix+taskID).Err()
}

func (s *RedisStore) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return s.rdb.SetNX(ctx, guardPrefix+key, time.Now().UTC().Format(time.RFC3339), ttl).Result()
}

func (s *RedisStore) Release(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, guardPrefix+key).Err()
}
