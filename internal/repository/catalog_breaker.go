package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sakashimaa/go-pet-project/inventory/internal/domain"
	"github.com/sakashimaa/go-pet-project/inventory/pkg/utils"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// breakerCatalogRepo fails catalog reads fast while the catalog store is
// unhealthy. Writes from the replica consumer bypass the breaker.
type breakerCatalogRepo struct {
	next CatalogRepository
	cb   *gobreaker.CircuitBreaker
}

func NewBreakerCatalogRepository(next CatalogRepository, settings utils.BreakerSettings, logger *zap.Logger) CatalogRepository {
	settings.IsSuccessful = func(err error) bool {
		return err == nil || errors.Is(err, ErrCatalogItemNotFound) || errors.Is(err, context.Canceled)
	}

	return &breakerCatalogRepo{
		next: next,
		cb:   utils.NewBreaker(settings, logger),
	}
}

func (r *breakerCatalogRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.CatalogItem, error) {
	return utils.ExecuteWithBreaker(r.cb, func() (*domain.CatalogItem, error) {
		return r.next.GetByID(ctx, id)
	})
}

func (r *breakerCatalogRepo) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.CatalogItem, error) {
	return utils.ExecuteWithBreaker(r.cb, func() ([]domain.CatalogItem, error) {
		return r.next.GetByIDs(ctx, ids)
	})
}

func (r *breakerCatalogRepo) Upsert(ctx context.Context, item *domain.CatalogItem) error {
	return r.next.Upsert(ctx, item)
}

func (r *breakerCatalogRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.next.Delete(ctx, id)
}
