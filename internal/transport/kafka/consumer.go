package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/sakashimaa/go-pet-project/inventory/internal/domain"
	"github.com/sakashimaa/go-pet-project/inventory/internal/service"
	"github.com/sakashimaa/go-pet-project/inventory/pkg/kafka"
	"github.com/sakashimaa/go-pet-project/inventory/pkg/mylogger"
	"go.uber.org/zap"
)

var errMalformedMessage = errors.New("malformed message")

type Envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

type ConsumerConfig struct {
	Brokers       []string
	GroupID       string
	CommandsTopic string
	CatalogTopic  string
	Retry         kafka.RetryPolicy
}

type Consumer struct {
	inventoryService service.InventoryService
	catalogService   service.CatalogService
	logger           *zap.Logger
}

func NewConsumer(inventoryService service.InventoryService, catalogService service.CatalogService, logger *zap.Logger) *Consumer {
	return &Consumer{
		inventoryService: inventoryService,
		catalogService:   catalogService,
		logger:           logger,
	}
}

// IsPermanent reports failures that are acknowledged instead of redelivered.
func IsPermanent(err error) bool {
	return errors.Is(err, errMalformedMessage) || service.IsPermanent(err)
}

func (c *Consumer) Start(ctx context.Context, cfg ConsumerConfig) error {
	retry := cfg.Retry
	retry.IsPermanent = IsPermanent

	consumerGroup := kafka.NewConsumerGroup(
		cfg.Brokers,
		cfg.GroupID,
		[]string{cfg.CommandsTopic, cfg.CatalogTopic},
		c.processMessage,
		retry,
		c.logger,
	)

	return consumerGroup.Run(ctx)
}

func decode[T any](payload json.RawMessage) (*T, error) {
	var v T
	if err := json.Unmarshal(payload, &v); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformedMessage, err)
	}
	return &v, nil
}

func (c *Consumer) processMessage(ctx context.Context, msg *sarama.ConsumerMessage) error {
	mylogger.Debug(
		ctx,
		c.logger,
		"Processing message",
		zap.String("topic", msg.Topic),
		zap.Int64("offset", msg.Offset),
	)

	var envelope Envelope
	if err := json.Unmarshal(msg.Value, &envelope); err != nil {
		mylogger.Error(ctx, c.logger, "Error unmarshalling envelope", zap.Error(err))
		return fmt.Errorf("%w: %v", errMalformedMessage, err)
	}

	err := c.dispatch(ctx, envelope)
	if err != nil {
		mylogger.Warn(
			ctx,
			c.logger,
			"Error handling message",
			zap.String("event_type", envelope.Event),
			zap.Error(err),
		)
	}

	return err
}

func (c *Consumer) dispatch(ctx context.Context, envelope Envelope) error {
	switch envelope.Event {
	case domain.EventGrantItems:
		cmd, err := decode[domain.GrantItems](envelope.Payload)
		if err != nil {
			return err
		}
		return c.inventoryService.GrantItems(ctx, cmd)
	case domain.EventSubtractItems:
		cmd, err := decode[domain.SubtractItems](envelope.Payload)
		if err != nil {
			return err
		}
		return c.inventoryService.SubtractItems(ctx, cmd)
	case domain.EventCatalogItemCreated:
		event, err := decode[domain.CatalogItemCreated](envelope.Payload)
		if err != nil {
			return err
		}
		return c.catalogService.ApplyCreated(ctx, event)
	case domain.EventCatalogItemUpdated:
		event, err := decode[domain.CatalogItemUpdated](envelope.Payload)
		if err != nil {
			return err
		}
		return c.catalogService.ApplyUpdated(ctx, event)
	case domain.EventCatalogItemDeleted:
		event, err := decode[domain.CatalogItemDeleted](envelope.Payload)
		if err != nil {
			return err
		}
		return c.catalogService.ApplyDeleted(ctx, event)
	default:
		mylogger.Warn(ctx, c.logger, "Ignored event type", zap.String("event_type", envelope.Event))
		return nil
	}
}
