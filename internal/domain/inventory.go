package domain

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

type InventoryKey struct {
	UserID        uuid.UUID
	CatalogItemID uuid.UUID
}

func (k InventoryKey) String() string {
	return fmt.Sprintf("%s:%s", k.UserID, k.CatalogItemID)
}

// InventoryItem is the quantity of one catalog item owned by one user.
// MessageIDs holds every command already applied to the record and shares
// the record's write boundary; it is never pruned.
type InventoryItem struct {
	UserID        uuid.UUID  `db:"user_id"`
	CatalogItemID uuid.UUID  `db:"catalog_item_id"`
	Quantity      int64      `db:"quantity"`
	AcquiredDate  time.Time  `db:"acquired_date"`
	MessageIDs    CommandSet `db:"message_ids"`
	Version       int64      `db:"version"`
}

func (i *InventoryItem) Key() InventoryKey {
	return InventoryKey{UserID: i.UserID, CatalogItemID: i.CatalogItemID}
}

func (i *InventoryItem) HasProcessed(commandID uuid.UUID) bool {
	return i.MessageIDs.Contains(commandID)
}

func (i *InventoryItem) MarkProcessed(commandID uuid.UUID) {
	if i.MessageIDs == nil {
		i.MessageIDs = make(CommandSet)
	}
	i.MessageIDs.Add(commandID)
}

func (i *InventoryItem) Clone() *InventoryItem {
	c := *i
	c.MessageIDs = i.MessageIDs.Clone()
	return &c
}

type CommandSet map[uuid.UUID]struct{}

func NewCommandSet(ids ...uuid.UUID) CommandSet {
	s := make(CommandSet, len(ids))
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

func (s CommandSet) Contains(id uuid.UUID) bool {
	_, ok := s[id]
	return ok
}

func (s CommandSet) Add(id uuid.UUID) {
	s[id] = struct{}{}
}

func (s CommandSet) Clone() CommandSet {
	c := make(CommandSet, len(s))
	for id := range s {
		c[id] = struct{}{}
	}
	return c
}

// Strings returns the ids sorted, so persisted arrays are stable.
func (s CommandSet) Strings() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id.String())
	}
	sort.Strings(out)
	return out
}

func ParseCommandSet(raw []string) (CommandSet, error) {
	s := make(CommandSet, len(raw))
	for _, r := range raw {
		id, err := uuid.Parse(r)
		if err != nil {
			return nil, fmt.Errorf("invalid command id %q: %w", r, err)
		}
		s.Add(id)
	}
	return s, nil
}

type InventoryItemView struct {
	CatalogItemID uuid.UUID `json:"catalogItemId"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Quantity      int64     `json:"quantity"`
	AcquiredDate  time.Time `json:"acquiredDate"`
}
