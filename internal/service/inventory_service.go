package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sakashimaa/go-pet-project/inventory/internal/domain"
	"github.com/sakashimaa/go-pet-project/inventory/internal/repository"
	"github.com/sakashimaa/go-pet-project/inventory/pkg/mylogger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type InventoryService interface {
	GrantItems(ctx context.Context, cmd *domain.GrantItems) error
	SubtractItems(ctx context.Context, cmd *domain.SubtractItems) error
	AdminGrant(ctx context.Context, userID, catalogItemID uuid.UUID, quantity int64) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.InventoryItemView, error)
}

type inventoryService struct {
	inventoryRepo repository.InventoryRepository
	catalogRepo   repository.CatalogRepository
	publisher     Publisher
	policy        MutationPolicy
	validate      *validator.Validate
	logger        *zap.Logger
	tracer        trace.Tracer
	metrics       *Metrics
	now           func() time.Time
}

type Option func(*inventoryService)

// WithMetrics records command outcomes, write conflicts and published events.
func WithMetrics(m *Metrics) Option {
	return func(s *inventoryService) {
		s.metrics = m
	}
}

func NewInventoryService(
	inventoryRepo repository.InventoryRepository,
	catalogRepo repository.CatalogRepository,
	publisher Publisher,
	policy MutationPolicy,
	logger *zap.Logger,
	opts ...Option,
) InventoryService {
	s := &inventoryService{
		inventoryRepo: inventoryRepo,
		catalogRepo:   catalogRepo,
		publisher:     publisher,
		policy:        policy,
		validate:      validator.New(),
		logger:        logger,
		tracer:        otel.Tracer("inventory_service"),
		now:           time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.metrics != nil {
		s.publisher = observedPublisher{next: s.publisher, metrics: s.metrics}
	}

	return s
}

func commandAttributes(commandID, correlationID uuid.UUID, key domain.InventoryKey, quantity int64) trace.SpanStartOption {
	return trace.WithAttributes(
		attribute.String("command_id", commandID.String()),
		attribute.String("correlation_id", correlationID.String()),
		attribute.String("user_id", key.UserID.String()),
		attribute.String("catalog_item_id", key.CatalogItemID.String()),
		attribute.Int64("quantity", quantity),
	)
}

func (s *inventoryService) GrantItems(ctx context.Context, cmd *domain.GrantItems) error {
	ctx, span := s.tracer.Start(ctx, "InventoryService.GrantItems",
		commandAttributes(cmd.CommandID, cmd.CorrelationID, cmd.Key(), cmd.Quantity))
	defer span.End()

	if err := s.validate.Struct(cmd); err != nil {
		s.metrics.observeCommand(domain.EventGrantItems, "invalid")
		return fmt.Errorf("%w: %v", ErrInvalidCommand, err)
	}

	if _, err := s.catalogRepo.GetByID(ctx, cmd.CatalogItemID); err != nil {
		if errors.Is(err, repository.ErrCatalogItemNotFound) {
			mylogger.Warn(
				ctx,
				s.logger,
				"Grant for unknown catalog item",
				zap.Stringer("catalog_item_id", cmd.CatalogItemID),
				zap.Stringer("command_id", cmd.CommandID),
			)

			s.metrics.observeCommand(domain.EventGrantItems, "unknown_item")
			return fmt.Errorf("%w: %s", ErrUnknownItem, cmd.CatalogItemID)
		}

		span.RecordError(err)
		s.metrics.observeCommand(domain.EventGrantItems, "failed")
		return fmt.Errorf("failed to look up catalog item: %w", err)
	}

	result, err := s.mutate(ctx, cmd.Key(), func(current *domain.InventoryItem) (*domain.InventoryItem, outcome) {
		if current == nil {
			return &domain.InventoryItem{
				UserID:        cmd.UserID,
				CatalogItemID: cmd.CatalogItemID,
				Quantity:      cmd.Quantity,
				AcquiredDate:  s.now().UTC(),
				MessageIDs:    domain.NewCommandSet(cmd.CommandID),
			}, outcomeCreated
		}

		if current.HasProcessed(cmd.CommandID) {
			return current, outcomeDuplicate
		}

		current.Quantity += cmd.Quantity
		current.MarkProcessed(cmd.CommandID)
		return current, outcomeUpdated
	})
	if err != nil {
		mylogger.Error(
			ctx,
			s.logger,
			"Failed to grant items",
			zap.Stringer("command_id", cmd.CommandID),
			zap.Error(err),
		)

		s.metrics.observeCommand(domain.EventGrantItems, "failed")
		return fmt.Errorf("failed to grant items: %w", err)
	}

	s.metrics.observeCommand(domain.EventGrantItems, result.outcome.String())

	granted := domain.InventoryItemsGranted{CorrelationID: cmd.CorrelationID}

	if !result.outcome.mutated() {
		mylogger.Info(
			ctx,
			s.logger,
			"Duplicate grant, replaying acknowledgement",
			zap.Stringer("command_id", cmd.CommandID),
			zap.Stringer("correlation_id", cmd.CorrelationID),
		)

		return s.publish(ctx, granted)
	}

	mylogger.Info(
		ctx,
		s.logger,
		"Items granted",
		zap.Stringer("command_id", cmd.CommandID),
		zap.Stringer("key", cmd.Key()),
		zap.Int64("quantity", result.item.Quantity),
		zap.String("outcome", result.outcome.String()),
	)

	return s.publish(ctx, granted, domain.InventoryItemUpdated{
		UserID:        result.item.UserID,
		CatalogItemID: result.item.CatalogItemID,
		NewQuantity:   result.item.Quantity,
	})
}

func (s *inventoryService) SubtractItems(ctx context.Context, cmd *domain.SubtractItems) error {
	ctx, span := s.tracer.Start(ctx, "InventoryService.SubtractItems",
		commandAttributes(cmd.CommandID, cmd.CorrelationID, cmd.Key(), cmd.Quantity))
	defer span.End()

	if err := s.validate.Struct(cmd); err != nil {
		s.metrics.observeCommand(domain.EventSubtractItems, "invalid")
		return fmt.Errorf("%w: %v", ErrInvalidCommand, err)
	}

	result, err := s.mutate(ctx, cmd.Key(), func(current *domain.InventoryItem) (*domain.InventoryItem, outcome) {
		if current == nil {
			return nil, outcomeAbsent
		}

		if current.HasProcessed(cmd.CommandID) {
			return current, outcomeDuplicate
		}

		// No lower bound: over-subtraction leaves a negative quantity.
		current.Quantity -= cmd.Quantity
		current.MarkProcessed(cmd.CommandID)
		return current, outcomeUpdated
	})
	if err != nil {
		mylogger.Error(
			ctx,
			s.logger,
			"Failed to subtract items",
			zap.Stringer("command_id", cmd.CommandID),
			zap.Error(err),
		)

		s.metrics.observeCommand(domain.EventSubtractItems, "failed")
		return fmt.Errorf("failed to subtract items: %w", err)
	}

	s.metrics.observeCommand(domain.EventSubtractItems, result.outcome.String())

	subtracted := domain.InventoryItemsSubtracted{CorrelationID: cmd.CorrelationID}

	if !result.outcome.mutated() {
		mylogger.Info(
			ctx,
			s.logger,
			"Subtract without effect, acknowledging",
			zap.Stringer("command_id", cmd.CommandID),
			zap.String("outcome", result.outcome.String()),
		)

		return s.publish(ctx, subtracted)
	}

	if result.item.Quantity < 0 {
		mylogger.Warn(
			ctx,
			s.logger,
			"Inventory quantity went negative",
			zap.Stringer("key", cmd.Key()),
			zap.Int64("quantity", result.item.Quantity),
		)
	}

	return s.publish(ctx, domain.InventoryItemUpdated{
		UserID:        result.item.UserID,
		CatalogItemID: result.item.CatalogItemID,
		NewQuantity:   result.item.Quantity,
	}, subtracted)
}

// AdminGrant grants items on behalf of an administrator. It goes through the
// same handler as bus commands, with a fresh command id.
func (s *inventoryService) AdminGrant(ctx context.Context, userID, catalogItemID uuid.UUID, quantity int64) error {
	return s.GrantItems(ctx, &domain.GrantItems{
		CommandID:     uuid.New(),
		CorrelationID: uuid.New(),
		UserID:        userID,
		CatalogItemID: catalogItemID,
		Quantity:      quantity,
	})
}

func (s *inventoryService) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.InventoryItemView, error) {
	ctx, span := s.tracer.Start(ctx, "InventoryService.ListByUser")
	defer span.End()

	items, err := s.inventoryRepo.GetAllByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error listing inventory: %w", err)
	}

	if len(items) == 0 {
		return []domain.InventoryItemView{}, nil
	}

	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.CatalogItemID)
	}

	catalogItems, err := s.catalogRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("error loading catalog items: %w", err)
	}

	byID := make(map[uuid.UUID]domain.CatalogItem, len(catalogItems))
	for _, c := range catalogItems {
		byID[c.ID] = c
	}

	views := make([]domain.InventoryItemView, 0, len(items))
	for _, item := range items {
		catalogItem, ok := byID[item.CatalogItemID]
		if !ok {
			mylogger.Warn(
				ctx,
				s.logger,
				"Inventory item references missing catalog item",
				zap.Stringer("user_id", userID),
				zap.Stringer("catalog_item_id", item.CatalogItemID),
			)
			continue
		}

		views = append(views, domain.InventoryItemView{
			CatalogItemID: item.CatalogItemID,
			Name:          catalogItem.Name,
			Description:   catalogItem.Description,
			Quantity:      item.Quantity,
			AcquiredDate:  item.AcquiredDate,
		})
	}

	return views, nil
}

func (s *inventoryService) publish(ctx context.Context, events ...domain.Event) error {
	if err := publishAll(ctx, s.publisher, events...); err != nil {
		mylogger.Error(
			ctx,
			s.logger,
			"Failed to publish inventory events",
			zap.Int("event_count", len(events)),
			zap.Error(err),
		)

		return fmt.Errorf("failed to publish events: %w", err)
	}

	return nil
}
