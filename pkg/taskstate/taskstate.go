// Package taskstate tracks billed asynchronous tasks between submission and
// their terminal status, and guards side effects that must run once per task.
package taskstate

import (
	"context"
	"encoding/json"
	"time"
)

const (
	DefaultPendingTTL = 24 * time.Hour
	DefaultGuardTTL   = 24 * time.Hour
)

// PendingTask is what the proxy remembers about an accepted asynchronous submission.
type PendingTask struct {
	TaskID        string          `json:"task_id"`
	UserID        string          `json:"user_id"`
	CorrelationID string          `json:"correlation_id"`
	Cost          int             `json:"cost"`
	Billed        bool            `json:"billed"`
	Meta          json.RawMessage `json:"meta,omitempty"`
	SubmittedAt   time.Time       `json:"submitted_at"`
}

type PendingStore interface {
	Save(ctx context.Context, task PendingTask) error
	// Get reports found=false for unknown or expired tasks.
	Get(ctx context.Context, taskID string) (task PendingTask, found bool, err error)
	Delete(ctx context.Context, taskID string) error
}

// Guard grants a key to the first caller only, until it expires or is released.
type Guard interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

func ReconcileKey(taskID string) string {
	return "reconcile:" + taskID
}

func RefundKey(taskID string) string {
	return "refund:" + taskID
}
