package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"genstudio-be/internal/dto"
	"genstudio-be/internal/pkg/logger"
	"genstudio-be/pkg/billing"
	"genstudio-be/pkg/dispatch"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
)

const (
	terminalMaxRetries      = 5
	terminalInitialInterval = 500 * time.Millisecond
	terminalMaxInterval     = 10 * time.Second
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService applies terminal task statuses found by the server side
// poller through the same handler the GET poll path uses.
type consumerService struct {
	subscriber message.Subscriber
	topicName  string
	generation IGenerationService
	logger     logger.ILogger
	retry      middleware.Retry
}

func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	generation IGenerationService,
	logger logger.ILogger,
) IConsumerService {
	return &consumerService{
		subscriber: subscriber,
		topicName:  topicName,
		generation: generation,
		logger:     logger,
		retry: middleware.Retry{
			MaxRetries:      terminalMaxRetries,
			InitialInterval: terminalInitialInterval,
			MaxInterval:     terminalMaxInterval,
			Multiplier:      2,
			ShouldRetry: func(params middleware.RetryParams) bool {
				return !isPermanent(params.Err)
			},
		},
	}
}

// isPermanent reports errors a redelivery cannot fix.
func isPermanent(err error) bool {
	return errors.Is(err, billing.ErrUserNotFound)
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	handle := cs.retry.Middleware(func(msg *message.Message) ([]*message.Message, error) {
		return nil, cs.applyStatus(ctx, msg)
	})

	go func() {
		for msg := range messages {
			cs.processMessage(msg, handle)
		}
	}()

	return nil
}

// processMessage always acks. A status still failing after the retries is
// logged and its pending record is kept, so a client poll can apply it later.
func (cs *consumerService) processMessage(msg *message.Message, handle message.HandlerFunc) {
	defer msg.Ack()

	var payload dto.TaskTerminalMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Error(logger.ModuleTasks, "Failed to unmarshal terminal status", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err.Error(),
		})
		return
	}

	if _, err := handle(msg); err != nil {
		cs.logger.Error(logger.ModuleTasks, "Dropping terminal status after retries", map[string]interface{}{
			"task_id":   payload.TaskID,
			"status":    payload.Status,
			"permanent": isPermanent(err),
			"error":     err.Error(),
		})
	}
}

func (cs *consumerService) applyStatus(ctx context.Context, msg *message.Message) error {
	var payload dto.TaskTerminalMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return err
	}
	status := dispatch.TaskStatus{
		ID:       payload.TaskID,
		Status:   payload.Status,
		Progress: payload.Progress,
		Message:  payload.Message,
		Result:   payload.Result,
		Error:    payload.Error,
	}
	return cs.generation.HandleTaskStatus(ctx, status, "")
}
