package kafka

import (
	"context"
	"fmt"

	"github.com/sakashimaa/go-pet-project/inventory/internal/domain"
	"github.com/sakashimaa/go-pet-project/inventory/pkg/kafka"
)

type eventMessage struct {
	Event   string       `json:"event"`
	Payload domain.Event `json:"payload"`
}

// Publisher writes domain events to a single topic in the bus envelope.
type Publisher struct {
	producer kafka.Producer
	topic    string
}

func NewPublisher(producer kafka.Producer, topic string) *Publisher {
	return &Publisher{
		producer: producer,
		topic:    topic,
	}
}

func (p *Publisher) Publish(ctx context.Context, event domain.Event) error {
	msg := eventMessage{
		Event:   event.EventName(),
		Payload: event,
	}

	if err := p.producer.ProduceMessage(ctx, p.topic, event.PartitionKey(), msg); err != nil {
		return fmt.Errorf("error publishing %s: %w", event.EventName(), err)
	}

	return nil
}
