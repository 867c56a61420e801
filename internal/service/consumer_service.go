package service

import (
	"context"
	"encoding/json"
	"log"

	"evidence-intel-be/internal/dto"
	"evidence-intel-be/internal/entity"
	"evidence-intel-be/internal/pkg/mailer"
	"evidence-intel-be/internal/websocket"
	"evidence-intel-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService drains the in-process progress topic and fans each message
// out to the live websocket hub, the NATS bus and, on successful completion,
// the owner's mailbox. Hub, bus and mailer are all optional collaborators.
type consumerService struct {
	pubSub    *gochannel.GoChannel
	topicName string
	hub       *websocket.Hub
	bus       eventBus
	mail      *mailer.EmailService
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	hub *websocket.Hub,
	bus eventBus,
	mail *mailer.EmailService,
) IConsumerService {
	return &consumerService{
		pubSub:    pubSub,
		topicName: topicName,
		hub:       hub,
		bus:       bus,
		mail:      mail,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
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

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.ResearchProgressMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		log.Printf("[ERROR] Failed to unmarshal progress message: %v", err)
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	if cs.hub != nil {
		cs.hub.Send(payload.SessionId, msg.Payload)
	}

	if payload.Terminal {
		if cs.bus != nil {
			evt := events.NewResearchCompleted(payload.SessionId.String(), payload.JobId.String(), string(payload.Status))
			if err := cs.bus.Publish(ctx, evt); err != nil {
				log.Printf("[WARN] Failed to publish research completion event: %v", err)
			}
		}
		if cs.mail != nil && payload.Status == entity.JobComplete && payload.Owner != "" {
			if err := cs.mail.SendReportReady(payload.Owner, payload.Product, payload.SessionId.String()); err != nil {
				log.Printf("[WARN] Failed to send report-ready email: %v", err)
			}
		}
	}

	msg.Ack()
}
