package service

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/sakashimaa/go-pet-project/inventory/internal/domain"
	"github.com/sakashimaa/go-pet-project/inventory/internal/repository"
)

// fakeInventoryRepo keeps records in memory and enforces the same
// conditional-write contract as the Postgres repository.
type fakeInventoryRepo struct {
	mu    sync.Mutex
	items map[domain.InventoryKey]*domain.InventoryItem

	getErr error
	// beforeWrite runs once per Create/Update call, outside the lock, so a
	// test can slip a competing write in between read and write.
	beforeWrite func(r *fakeInventoryRepo, call int)
	writeCalls  int
	// alwaysConflict makes every Update fail as if another writer won.
	alwaysConflict bool
}

func newFakeInventoryRepo() *fakeInventoryRepo {
	return &fakeInventoryRepo{items: make(map[domain.InventoryKey]*domain.InventoryItem)}
}

func (r *fakeInventoryRepo) Get(_ context.Context, key domain.InventoryKey) (*domain.InventoryItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.getErr != nil {
		return nil, r.getErr
	}

	item, ok := r.items[key]
	if !ok {
		return nil, repository.ErrInventoryItemNotFound
	}
	return item.Clone(), nil
}

func (r *fakeInventoryRepo) GetAllByUser(_ context.Context, userID uuid.UUID) ([]domain.InventoryItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []domain.InventoryItem
	for key, item := range r.items {
		if key.UserID == userID {
			out = append(out, *item.Clone())
		}
	}
	return out, nil
}

func (r *fakeInventoryRepo) hook() {
	r.mu.Lock()
	r.writeCalls++
	call := r.writeCalls
	hook := r.beforeWrite
	r.mu.Unlock()

	if hook != nil {
		hook(r, call)
	}
}

func (r *fakeInventoryRepo) Create(_ context.Context, item *domain.InventoryItem) error {
	r.hook()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[item.Key()]; ok {
		return repository.ErrDuplicateKey
	}

	item.Version = 1
	r.items[item.Key()] = item.Clone()
	return nil
}

func (r *fakeInventoryRepo) Update(_ context.Context, item *domain.InventoryItem, expectedVersion int64) error {
	r.hook()

	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.items[item.Key()]
	if r.alwaysConflict || !ok || stored.Version != expectedVersion {
		return repository.ErrVersionConflict
	}

	item.Version = expectedVersion + 1
	r.items[item.Key()] = item.Clone()
	return nil
}

// put stores a record directly, bumping the version like a committed write.
func (r *fakeInventoryRepo) put(item *domain.InventoryItem) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := item.Clone()
	if stored, ok := r.items[item.Key()]; ok {
		c.Version = stored.Version + 1
	} else {
		c.Version = 1
	}
	r.items[item.Key()] = c
}

func (r *fakeInventoryRepo) snapshot(key domain.InventoryKey) *domain.InventoryItem {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[key]
	if !ok {
		return nil
	}
	return item.Clone()
}

type fakeCatalogRepo struct {
	mu     sync.Mutex
	items  map[uuid.UUID]domain.CatalogItem
	getErr error
}

func newFakeCatalogRepo(items ...domain.CatalogItem) *fakeCatalogRepo {
	r := &fakeCatalogRepo{items: make(map[uuid.UUID]domain.CatalogItem)}
	for _, item := range items {
		r.items[item.ID] = item
	}
	return r
}

func (r *fakeCatalogRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.CatalogItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.getErr != nil {
		return nil, r.getErr
	}

	item, ok := r.items[id]
	if !ok {
		return nil, repository.ErrCatalogItemNotFound
	}
	return &item, nil
}

func (r *fakeCatalogRepo) GetByIDs(_ context.Context, ids []uuid.UUID) ([]domain.CatalogItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []domain.CatalogItem
	for _, id := range ids {
		if item, ok := r.items[id]; ok {
			out = append(out, item)
		}
	}
	return out, nil
}

func (r *fakeCatalogRepo) Upsert(_ context.Context, item *domain.CatalogItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[item.ID] = *item
	return nil
}

func (r *fakeCatalogRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return repository.ErrCatalogItemNotFound
	}
	delete(r.items, id)
	return nil
}

var errPublishFailed = errors.New("broker unavailable")

type fakePublisher struct {
	mu     sync.Mutex
	events []domain.Event
	// failOn names an event type whose publication fails.
	failOn string
}

func (p *fakePublisher) Publish(_ context.Context, event domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.failOn != "" && event.EventName() == p.failOn {
		return errPublishFailed
	}

	p.events = append(p.events, event)
	return nil
}

func (p *fakePublisher) published() []domain.Event {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]domain.Event, len(p.events))
	copy(out, p.events)
	return out
}

func (p *fakePublisher) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.events = nil
}
