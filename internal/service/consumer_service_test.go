package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"genstudio-be/internal/pkg/logger"
	"genstudio-be/pkg/billing"
	"genstudio-be/pkg/dispatch"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingGeneration struct {
	IGenerationService

	mu       sync.Mutex
	statuses []dispatch.TaskStatus
}

func (r *recordingGeneration) HandleTaskStatus(ctx context.Context, status dispatch.TaskStatus, callerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, status)
	return nil
}

func (r *recordingGeneration) seen() []dispatch.TaskStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]dispatch.TaskStatus(nil), r.statuses...)
}

type failingGeneration struct {
	IGenerationService

	err   error
	mu    sync.Mutex
	calls int
}

func (f *failingGeneration) HandleTaskStatus(ctx context.Context, status dispatch.TaskStatus, callerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.err
}

func (f *failingGeneration) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestTerminalStatusRoundTrip(t *testing.T) {
	const topic = "task_terminal_test"
	log := logger.NewFileLogger(filepath.Join(t.TempDir(), "app.log"))
	pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 8}, watermill.NopLogger{})
	t.Cleanup(func() { _ = pubSub.Close() })

	generation := &recordingGeneration{}
	consumer := NewConsumerService(pubSub, topic, generation, log)
	require.NoError(t, consumer.Consume(context.Background()))

	// Malformed payloads are acknowledged and dropped.
	require.NoError(t, pubSub.Publish(topic, message.NewMessage(watermill.NewUUID(), []byte("{"))))

	publisher := NewPublisherService(topic, pubSub, log)
	publisher.PublishTaskTerminal(context.Background(), dispatch.TaskStatus{
		ID:       "t-1",
		Status:   dispatch.TaskCompleted,
		Progress: 100,
		Result:   map[string]interface{}{"image_data": "abc"},
	})
	publisher.PublishTaskTerminal(context.Background(), dispatch.TaskStatus{ID: "t-2", Status: dispatch.TaskFailed, Error: "oom"})

	assert.Eventually(t, func() bool { return len(generation.seen()) == 2 }, 2*time.Second, 10*time.Millisecond)

	byID := map[string]dispatch.TaskStatus{}
	for _, s := range generation.seen() {
		byID[s.ID] = s
	}
	require.Len(t, byID, 2)
	assert.Equal(t, "abc", byID["t-1"].ResultImage())
	assert.Equal(t, "oom", byID["t-2"].Error)
}

func TestTerminalStatusFailuresAreBounded(t *testing.T) {
	cases := []struct {
		name  string
		err   error
		calls int
	}{
		{name: "transient error retried then dropped", err: errors.New("redis: connection refused"), calls: 4},
		{name: "permanent error not retried", err: fmt.Errorf("refund: %w", billing.ErrUserNotFound), calls: 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			const topic = "task_terminal_failing"
			log := logger.NewFileLogger(filepath.Join(t.TempDir(), "app.log"))
			pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 8}, watermill.NopLogger{})
			t.Cleanup(func() { _ = pubSub.Close() })

			generation := &failingGeneration{err: tc.err}
			consumer := NewConsumerService(pubSub, topic, generation, log).(*consumerService)
			consumer.retry.MaxRetries = 3
			consumer.retry.InitialInterval = time.Millisecond
			consumer.retry.MaxInterval = 5 * time.Millisecond
			require.NoError(t, consumer.Consume(context.Background()))

			publisher := NewPublisherService(topic, pubSub, log)
			publisher.PublishTaskTerminal(context.Background(), dispatch.TaskStatus{ID: "t-9", Status: dispatch.TaskFailed})

			assert.Eventually(t, func() bool { return generation.count() >= tc.calls }, 2*time.Second, 5*time.Millisecond)
			time.Sleep(200 * time.Millisecond)
			assert.Equal(t, tc.calls, generation.count())
		})
	}
}
