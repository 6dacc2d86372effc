package service

import (
	"context"
	"encoding/json"
	"log"

	"madlen-ai-be/internal/dto"
	"madlen-ai-be/internal/model"
	"madlen-ai-be/internal/repository/unitofwork"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type IUsageConsumerService interface {
	Consume(ctx context.Context) error
}

type usageConsumerService struct {
	pubSub     *gochannel.GoChannel
	topicName  string
	uowFactory unitofwork.RepositoryFactory
}

func NewUsageConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	uowFactory unitofwork.RepositoryFactory,
) IUsageConsumerService {
	return &usageConsumerService{
		pubSub:     pubSub,
		topicName:  topicName,
		uowFactory: uowFactory,
	}
}

func (cs *usageConsumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *usageConsumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.UsageRecordedMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		log.Printf("[ERROR] Failed to unmarshal usage message: %v", err)
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	details, err := json.Marshal(map[string]interface{}{
		"session_id": payload.SessionId,
		"streamed":   payload.Streamed,
	})
	if err != nil {
		log.Printf("[ERROR] Failed to marshal usage details: %v", err)
		msg.Ack()
		return
	}

	uow := cs.uowFactory.NewUnitOfWork(ctx)

	stat := model.UsageStat{
		Id:         uuid.New(),
		UserId:     payload.UserId,
		Model:      payload.Model,
		ReplyChars: payload.ReplyChars,
		Details:    datatypes.JSON(details),
	}

	if err := uow.UsageStatRepository().Create(ctx, &stat); err != nil {
		log.Printf("[ERROR] Failed to persist usage stat for user %s: %v", payload.UserId, err)
		msg.Nack() // Nack for retriable errors
		return
	}

	msg.Ack()
}
