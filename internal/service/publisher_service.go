package service

import (
	"context"
	"encoding/json"
	"time"

	"madlen-ai-be/internal/dto"
	"madlen-ai-be/internal/pkg/logger"
	"madlen-ai-be/pkg/events"
	pktNats "madlen-ai-be/pkg/nats" // Renamed to avoid collision

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

const TopicUsageRecorded = "chat.usage.recorded"

// IPublisherService fans out side effects of a completed chat turn. Both
// paths are best-effort: telemetry must never fail a user-facing request.
type IPublisherService interface {
	PublishUsageRecorded(ctx context.Context, msg *dto.UsageRecordedMessage)
	PublishLifecycleEvent(eventType string, payload map[string]interface{})
}

type publisherService struct {
	pubSub        *gochannel.GoChannel
	natsPublisher *pktNats.Publisher // nil when NATS is not configured
	logger        logger.ILogger
}

func NewPublisherService(
	pubSub *gochannel.GoChannel,
	natsPublisher *pktNats.Publisher,
	log logger.ILogger,
) IPublisherService {
	return &publisherService{
		pubSub:        pubSub,
		natsPublisher: natsPublisher,
		logger:        log,
	}
}

func (p *publisherService) PublishUsageRecorded(ctx context.Context, msg *dto.UsageRecordedMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		p.logger.Error("PublisherService", "Failed to marshal usage message", map[string]interface{}{"error": err.Error()})
		return
	}

	if err := p.pubSub.Publish(TopicUsageRecorded, message.NewMessage(watermill.NewUUID(), payload)); err != nil {
		p.logger.Error("PublisherService", "Failed to publish usage message", map[string]interface{}{"error": err.Error()})
	}
}

func (p *publisherService) PublishLifecycleEvent(eventType string, payload map[string]interface{}) {
	if p.natsPublisher == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := p.natsPublisher.Publish(ctx, events.NewEvent(eventType, payload)); err != nil {
		p.logger.Warn("PublisherService", "Failed to publish lifecycle event", map[string]interface{}{
			"type":  eventType,
			"error": err.Error(),
		})
	}
}
