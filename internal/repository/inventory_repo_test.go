package repository_test

import (
	"time"

	"github.com/google/uuid"
	"github.com/sakashimaa/go-pet-project/inventory/internal/domain"
	"github.com/sakashimaa/go-pet-project/inventory/internal/repository"
)

func (s *RepositorySuite) newItem(quantity int64, commandIDs ...uuid.UUID) *domain.InventoryItem {
	return &domain.InventoryItem{
		UserID:        uuid.New(),
		CatalogItemID: uuid.New(),
		Quantity:      quantity,
		AcquiredDate:  time.Now().UTC(),
		MessageIDs:    domain.NewCommandSet(commandIDs...),
	}
}

func (s *RepositorySuite) TestCreateAndGet() {
	commandID := uuid.New()
	item := s.newItem(10, commandID)

	s.Require().NoError(s.InventoryRepo.Create(s.Ctx, item))
	s.Require().Equal(int64(1), item.Version)

	got, err := s.InventoryRepo.Get(s.Ctx, item.Key())
	s.Require().NoError(err)
	s.Require().Equal(item.UserID, got.UserID)
	s.Require().Equal(item.CatalogItemID, got.CatalogItemID)
	s.Require().Equal(int64(10), got.Quantity)
	s.Require().Equal(int64(1), got.Version)
	s.Require().WithinDuration(item.AcquiredDate, got.AcquiredDate, time.Millisecond)
	s.Require().Equal(time.UTC, got.AcquiredDate.Location())
	s.Require().True(got.HasProcessed(commandID))
	s.Require().Len(got.MessageIDs, 1)
}

func (s *RepositorySuite) TestGet_NotFound() {
	_, err := s.InventoryRepo.Get(s.Ctx, domain.InventoryKey{UserID: uuid.New(), CatalogItemID: uuid.New()})
	s.Require().ErrorIs(err, repository.ErrInventoryItemNotFound)
}

func (s *RepositorySuite) TestCreate_DuplicateKey() {
	item := s.newItem(1, uuid.New())
	s.Require().NoError(s.InventoryRepo.Create(s.Ctx, item))

	again := item.Clone()
	again.MessageIDs = domain.NewCommandSet(uuid.New())
	err := s.InventoryRepo.Create(s.Ctx, again)
	s.Require().ErrorIs(err, repository.ErrDuplicateKey)

	got, err := s.InventoryRepo.Get(s.Ctx, item.Key())
	s.Require().NoError(err)
	s.Require().Equal(int64(1), got.Quantity)
}

func (s *RepositorySuite) TestUpdate_ConditionalOnVersion() {
	item := s.newItem(10, uuid.New())
	s.Require().NoError(s.InventoryRepo.Create(s.Ctx, item))

	first, err := s.InventoryRepo.Get(s.Ctx, item.Key())
	s.Require().NoError(err)
	second, err := s.InventoryRepo.Get(s.Ctx, item.Key())
	s.Require().NoError(err)

	winner := uuid.New()
	first.Quantity += 5
	first.MarkProcessed(winner)
	s.Require().NoError(s.InventoryRepo.Update(s.Ctx, first, 1))
	s.Require().Equal(int64(2), first.Version)

	second.Quantity += 3
	second.MarkProcessed(uuid.New())
	err = s.InventoryRepo.Update(s.Ctx, second, 1)
	s.Require().ErrorIs(err, repository.ErrVersionConflict)

	got, err := s.InventoryRepo.Get(s.Ctx, item.Key())
	s.Require().NoError(err)
	s.Require().Equal(int64(15), got.Quantity)
	s.Require().Equal(int64(2), got.Version)
	s.Require().True(got.HasProcessed(winner))
	s.Require().Len(got.MessageIDs, 2)
}

func (s *RepositorySuite) TestUpdate_MissingRecordConflicts() {
	item := s.newItem(1, uuid.New())
	err := s.InventoryRepo.Update(s.Ctx, item, 1)
	s.Require().ErrorIs(err, repository.ErrVersionConflict)
}

func (s *RepositorySuite) TestUpdate_AllowsNegativeQuantity() {
	item := s.newItem(2, uuid.New())
	s.Require().NoError(s.InventoryRepo.Create(s.Ctx, item))

	item.Quantity = -3
	s.Require().NoError(s.InventoryRepo.Update(s.Ctx, item, 1))

	got, err := s.InventoryRepo.Get(s.Ctx, item.Key())
	s.Require().NoError(err)
	s.Require().Equal(int64(-3), got.Quantity)
}

func (s *RepositorySuite) TestGetAllByUser() {
	userID := uuid.New()
	base := time.Now().UTC().Add(-time.Hour)

	for i := 0; i < 3; i++ {
		item := s.newItem(int64(i+1), uuid.New())
		item.UserID = userID
		item.AcquiredDate = base.Add(time.Duration(i) * time.Minute)
		s.Require().NoError(s.InventoryRepo.Create(s.Ctx, item))
	}
	s.Require().NoError(s.InventoryRepo.Create(s.Ctx, s.newItem(99, uuid.New())))

	items, err := s.InventoryRepo.GetAllByUser(s.Ctx, userID)
	s.Require().NoError(err)
	s.Require().Len(items, 3)

	for i, item := range items {
		s.Require().Equal(userID, item.UserID)
		s.Require().Equal(int64(i+1), item.Quantity)
	}

	none, err := s.InventoryRepo.GetAllByUser(s.Ctx, uuid.New())
	s.Require().NoError(err)
	s.Require().Empty(none)
}
