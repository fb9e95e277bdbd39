package repository_test

import (
	"github.com/google/uuid"
	"github.com/sakashimaa/go-pet-project/inventory/internal/domain"
	"github.com/sakashimaa/go-pet-project/inventory/internal/repository"
)

func (s *RepositorySuite) TestCatalog_UpsertAndGet() {
	item := &domain.CatalogItem{ID: uuid.New(), Name: "Potion", Description: "Restores HP"}
	s.Require().NoError(s.CatalogRepo.Upsert(s.Ctx, item))

	got, err := s.CatalogRepo.GetByID(s.Ctx, item.ID)
	s.Require().NoError(err)
	s.Require().Equal(*item, *got)

	item.Name = "Hi-Potion"
	s.Require().NoError(s.CatalogRepo.Upsert(s.Ctx, item))

	got, err = s.CatalogRepo.GetByID(s.Ctx, item.ID)
	s.Require().NoError(err)
	s.Require().Equal("Hi-Potion", got.Name)
}

func (s *RepositorySuite) TestCatalog_GetByIDNotFound() {
	_, err := s.CatalogRepo.GetByID(s.Ctx, uuid.New())
	s.Require().ErrorIs(err, repository.ErrCatalogItemNotFound)
}

func (s *RepositorySuite) TestCatalog_GetByIDs() {
	a := &domain.CatalogItem{ID: uuid.New(), Name: "Sword"}
	b := &domain.CatalogItem{ID: uuid.New(), Name: "Shield"}
	s.Require().NoError(s.CatalogRepo.Upsert(s.Ctx, a))
	s.Require().NoError(s.CatalogRepo.Upsert(s.Ctx, b))

	items, err := s.CatalogRepo.GetByIDs(s.Ctx, []uuid.UUID{a.ID, b.ID, uuid.New()})
	s.Require().NoError(err)
	s.Require().ElementsMatch([]domain.CatalogItem{*a, *b}, items)

	items, err = s.CatalogRepo.GetByIDs(s.Ctx, nil)
	s.Require().NoError(err)
	s.Require().Empty(items)
}

func (s *RepositorySuite) TestCatalog_Delete() {
	item := &domain.CatalogItem{ID: uuid.New(), Name: "Bow"}
	s.Require().NoError(s.CatalogRepo.Upsert(s.Ctx, item))

	s.Require().NoError(s.CatalogRepo.Delete(s.Ctx, item.ID))
	s.Require().ErrorIs(s.CatalogRepo.Delete(s.Ctx, item.ID), repository.ErrCatalogItemNotFound)
}
