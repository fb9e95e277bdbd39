package repository_test

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sakashimaa/go-pet-project/inventory/internal/domain"
	"github.com/sakashimaa/go-pet-project/inventory/internal/repository"
	"github.com/sakashimaa/go-pet-project/inventory/internal/service"
	"go.uber.org/zap"
)

type countingPublisher struct {
	mu     sync.Mutex
	counts map[string]int
}

func (p *countingPublisher) Publish(_ context.Context, event domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.counts == nil {
		p.counts = make(map[string]int)
	}
	p.counts[event.EventName()]++
	return nil
}

func (s *RepositorySuite) newInventoryService(pub service.Publisher) service.InventoryService {
	return service.NewInventoryService(
		s.InventoryRepo,
		s.CatalogRepo,
		pub,
		service.MutationPolicy{MaxAttempts: 200, InitialBackoff: time.Millisecond, MaxBackoff: 20 * time.Millisecond},
		zap.NewNop(),
	)
}

func (s *RepositorySuite) TestFlow_GrantRedeliverSubtract() {
	catalogItem := &domain.CatalogItem{ID: uuid.New(), Name: "Potion"}
	s.Require().NoError(s.CatalogRepo.Upsert(s.Ctx, catalogItem))

	pub := &countingPublisher{}
	svc := s.newInventoryService(pub)
	userID := uuid.New()
	key := domain.InventoryKey{UserID: userID, CatalogItemID: catalogItem.ID}

	grant := func(q int64) *domain.GrantItems {
		return &domain.GrantItems{CommandID: uuid.New(), CorrelationID: uuid.New(), UserID: userID, CatalogItemID: catalogItem.ID, Quantity: q}
	}

	s.Require().NoError(svc.GrantItems(s.Ctx, grant(10)))
	second := grant(5)
	s.Require().NoError(svc.GrantItems(s.Ctx, second))
	s.Require().NoError(svc.GrantItems(s.Ctx, second))

	s.Require().NoError(svc.SubtractItems(s.Ctx, &domain.SubtractItems{
		CommandID: uuid.New(), CorrelationID: uuid.New(), UserID: userID, CatalogItemID: catalogItem.ID, Quantity: 20,
	}))

	stored, err := s.InventoryRepo.Get(s.Ctx, key)
	s.Require().NoError(err)
	s.Require().Equal(int64(-5), stored.Quantity)
	s.Require().Len(stored.MessageIDs, 3)

	s.Require().Equal(3, pub.counts[domain.EventItemsGranted])
	s.Require().Equal(3, pub.counts[domain.EventItemUpdated])
	s.Require().Equal(1, pub.counts[domain.EventItemsSubtracted])
}

func (s *RepositorySuite) TestFlow_ConcurrentGrants() {
	catalogItem := &domain.CatalogItem{ID: uuid.New(), Name: "Arrow"}
	s.Require().NoError(s.CatalogRepo.Upsert(s.Ctx, catalogItem))

	svc := s.newInventoryService(&countingPublisher{})
	userID := uuid.New()

	const workers = 16
	duplicate := &domain.GrantItems{CommandID: uuid.New(), CorrelationID: uuid.New(), UserID: userID, CatalogItemID: catalogItem.ID, Quantity: 2}

	var wg sync.WaitGroup
	errs := make(chan error, workers*2)
	for i := 0; i < workers; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			errs <- svc.GrantItems(s.Ctx, &domain.GrantItems{
				CommandID: uuid.New(), CorrelationID: uuid.New(), UserID: userID, CatalogItemID: catalogItem.ID, Quantity: 1,
			})
		}()
		go func() {
			defer wg.Done()
			errs <- svc.GrantItems(s.Ctx, duplicate)
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		s.Require().NoError(err)
	}

	stored, err := s.InventoryRepo.Get(s.Ctx, domain.InventoryKey{UserID: userID, CatalogItemID: catalogItem.ID})
	s.Require().NoError(err)
	s.Require().Equal(int64(workers+2), stored.Quantity)
	s.Require().Len(stored.MessageIDs, workers+1)
}

func (s *RepositorySuite) TestFlow_SubtractOnNeverGrantedKey() {
	pub := &countingPublisher{}
	svc := s.newInventoryService(pub)
	key := domain.InventoryKey{UserID: uuid.New(), CatalogItemID: uuid.New()}

	s.Require().NoError(svc.SubtractItems(s.Ctx, &domain.SubtractItems{
		CommandID: uuid.New(), CorrelationID: uuid.New(), UserID: key.UserID, CatalogItemID: key.CatalogItemID, Quantity: 1,
	}))

	_, err := s.InventoryRepo.Get(s.Ctx, key)
	s.Require().ErrorIs(err, repository.ErrInventoryItemNotFound)

	s.Require().Equal(1, pub.counts[domain.EventItemsSubtracted])
	s.Require().Zero(pub.counts[domain.EventItemUpdated])
}

func (s *RepositorySuite) TestFlow_ConcurrentGrantsAndSubtracts() {
	catalogItem := &domain.CatalogItem{ID: uuid.New(), Name: "Arrow"}
	s.Require().NoError(s.CatalogRepo.Upsert(s.Ctx, catalogItem))

	svc := s.newInventoryService(&countingPublisher{})
	userID := uuid.New()
	key := domain.InventoryKey{UserID: userID, CatalogItemID: catalogItem.ID}

	s.Require().NoError(svc.GrantItems(s.Ctx, &domain.GrantItems{
		CommandID: uuid.New(), CorrelationID: uuid.New(), UserID: userID, CatalogItemID: catalogItem.ID, Quantity: 100,
	}))

	const workers = 12
	var wg sync.WaitGroup
	errs := make(chan error, workers*2)
	for i := 0; i < workers; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			errs <- svc.GrantItems(s.Ctx, &domain.GrantItems{
				CommandID: uuid.New(), CorrelationID: uuid.New(), UserID: userID, CatalogItemID: catalogItem.ID, Quantity: 3,
			})
		}()
		go func() {
			defer wg.Done()
			errs <- svc.SubtractItems(s.Ctx, &domain.SubtractItems{
				CommandID: uuid.New(), CorrelationID: uuid.New(), UserID: userID, CatalogItemID: catalogItem.ID, Quantity: 2,
			})
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		s.Require().NoError(err)
	}

	stored, err := s.InventoryRepo.Get(s.Ctx, key)
	s.Require().NoError(err)
	s.Require().Equal(int64(100+workers*3-workers*2), stored.Quantity)
	s.Require().Len(stored.MessageIDs, 1+workers*2)
}
