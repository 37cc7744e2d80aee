package service

import (
	"context"
	"encoding/json"

	"genstudio-be/internal/dto"
	"genstudio-be/internal/pkg/logger"
	"genstudio-be/pkg/dispatch"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

type IPublisherService interface {
	// PublishTaskTerminal matches taskpoller.OnTerminal.
	PublishTaskTerminal(ctx context.Context, status dispatch.TaskStatus)
}

type publisherService struct {
	topicName string
	publisher message.Publisher
	logger    logger.ILogger
}

func NewPublisherService(topicName string, publisher message.Publisher, logger logger.ILogger) IPublisherService {
	return &publisherService{
		topicName: topicName,
		publisher: publisher,
		logger:    logger,
	}
}

func (ps *publisherService) PublishTaskTerminal(ctx context.Context, status dispatch.TaskStatus) {
	payload, err := json.Marshal(dto.TaskTerminalMessage{
		TaskID:   status.ID,
		Status:   status.Status,
		Progress: status.Progress,
		Message:  status.Message,
		Result:   status.Result,
		Error:    status.Error,
	})
	if err != nil {
		ps.logger.Error(logger.ModuleTasks, "Failed to encode terminal status", map[string]interface{}{
			"task_id": status.ID,
			"error":   err.Error(),
		})
		return
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	if err := ps.publisher.Publish(ps.topicName, msg); err != nil {
		ps.logger.Error(logger.ModuleTasks, "Failed to publish terminal status", map[string]interface{}{
			"task_id": status.ID,
			"status":  status.Status,
			"error":   err.Error(),
		})
	}
}
