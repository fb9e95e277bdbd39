package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/sakashimaa/go-pet-project/inventory/internal/domain"
	"github.com/sakashimaa/go-pet-project/inventory/internal/repository"
	"github.com/sakashimaa/go-pet-project/inventory/pkg/mylogger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// CatalogService keeps the local catalog replica in sync with the
// catalog owner's events.
type CatalogService interface {
	ApplyCreated(ctx context.Context, event *domain.CatalogItemCreated) error
	ApplyUpdated(ctx context.Context, event *domain.CatalogItemUpdated) error
	ApplyDeleted(ctx context.Context, event *domain.CatalogItemDeleted) error
}

type catalogService struct {
	catalogRepo repository.CatalogRepository
	validate    *validator.Validate
	logger      *zap.Logger
	tracer      trace.Tracer
}

func NewCatalogService(catalogRepo repository.CatalogRepository, logger *zap.Logger) CatalogService {
	return &catalogService{
		catalogRepo: catalogRepo,
		validate:    validator.New(),
		logger:      logger,
		tracer:      otel.Tracer("catalog_service"),
	}
}

func (s *catalogService) ApplyCreated(ctx context.Context, event *domain.CatalogItemCreated) error {
	ctx, span := s.tracer.Start(ctx, "CatalogService.ApplyCreated")
	defer span.End()

	span.SetAttributes(attribute.String("item_id", event.ItemID.String()))

	if err := s.validate.Struct(event); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCommand, err)
	}

	return s.upsert(ctx, &domain.CatalogItem{
		ID:          event.ItemID,
		Name:        event.Name,
		Description: event.Description,
	})
}

func (s *catalogService) ApplyUpdated(ctx context.Context, event *domain.CatalogItemUpdated) error {
	ctx, span := s.tracer.Start(ctx, "CatalogService.ApplyUpdated")
	defer span.End()

	span.SetAttributes(attribute.String("item_id", event.ItemID.String()))

	if err := s.validate.Struct(event); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCommand, err)
	}

	// An update for an item we never saw is applied as a create.
	return s.upsert(ctx, &domain.CatalogItem{
		ID:          event.ItemID,
		Name:        event.Name,
		Description: event.Description,
	})
}

func (s *catalogService) ApplyDeleted(ctx context.Context, event *domain.CatalogItemDeleted) error {
	ctx, span := s.tracer.Start(ctx, "CatalogService.ApplyDeleted")
	defer span.End()

	span.SetAttributes(attribute.String("item_id", event.ItemID.String()))

	if err := s.validate.Struct(event); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCommand, err)
	}

	if err := s.catalogRepo.Delete(ctx, event.ItemID); err != nil {
		if errors.Is(err, repository.ErrCatalogItemNotFound) {
			mylogger.Warn(
				ctx,
				s.logger,
				"Catalog item already absent",
				zap.Stringer("item_id", event.ItemID),
			)
			return nil
		}

		span.RecordError(err)
		return fmt.Errorf("failed to delete catalog item: %w", err)
	}

	mylogger.Info(ctx, s.logger, "Catalog item deleted", zap.Stringer("item_id", event.ItemID))
	return nil
}

func (s *catalogService) upsert(ctx context.Context, item *domain.CatalogItem) error {
	if err := s.catalogRepo.Upsert(ctx, item); err != nil {
		return fmt.Errorf("failed to store catalog item: %w", err)
	}

	mylogger.Info(
		ctx,
		s.logger,
		"Catalog item stored",
		zap.Stringer("item_id", item.ID),
		zap.String("name", item.Name),
	)

	return nil
}
