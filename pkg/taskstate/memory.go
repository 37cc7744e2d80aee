package taskstate

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

// MemoryStore keeps pending tasks and guard keys in process. It is the
// fallback when Redis is unavailable and only holds for a single replica.
type MemoryStore struct {
	tasks  *cache.Cache
	guards *cache.Cache
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tasks:  cache.New(DefaultPendingTTL, 10*time.Minute),
		guards: cache.New(DefaultGuardTTL, 10*time.Minute),
	}
}

func (s *MemoryStore) Save(ctx context.Context, task PendingTask) error {
	s.tasks.Set(task.TaskID, task, cache.DefaultExpiration)
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, taskID string) (PendingTask, bool, error) {
	if x, found := s.tasks.Get(taskID); found {
		return x.(PendingTask), true, nil
	}
	return PendingTask{}, false, nil
}

func (s *MemoryStore) Delete(ctx context.Context, taskID string) error {
	s.tasks.Delete(taskID)
	return nil
}

// Acquire relies on cache.Add failing for an existing key.
func (s *MemoryStore) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if err := s.guards.Add(key, struct{}{}, ttl); err != nil {
		return false, nil
	}
	return true, nil
}

func (s *MemoryStore) Release(ctx context.Context, key string) error {
	s.guards.Delete(key)
	return nil
}
