package domain

import "github.com/google/uuid"

const (
	EventGrantItems         = "GrantItems"
	EventSubtractItems      = "SubtractItems"
	EventItemsGranted       = "InventoryItemsGranted"
	EventItemsSubtracted    = "InventoryItemsSubtracted"
	EventItemUpdated        = "InventoryItemUpdated"
	EventCatalogItemCreated = "CatalogItemCreated"
	EventCatalogItemUpdated = "CatalogItemUpdated"
	EventCatalogItemDeleted = "CatalogItemDeleted"
)

// Commands

type GrantItems struct {
	CommandID     uuid.UUID `json:"command_id" validate:"required"`
	CorrelationID uuid.UUID `json:"correlation_id" validate:"required"`
	UserID        uuid.UUID `json:"user_id" validate:"required"`
	CatalogItemID uuid.UUID `json:"catalog_item_id" validate:"required"`
	Quantity      int64     `json:"quantity" validate:"gt=0"`
}

type SubtractItems struct {
	CommandID     uuid.UUID `json:"command_id" validate:"required"`
	CorrelationID uuid.UUID `json:"correlation_id" validate:"required"`
	UserID        uuid.UUID `json:"user_id" validate:"required"`
	CatalogItemID uuid.UUID `json:"catalog_item_id" validate:"required"`
	Quantity      int64     `json:"quantity" validate:"gt=0"`
}

func (c *GrantItems) Key() InventoryKey {
	return InventoryKey{UserID: c.UserID, CatalogItemID: c.CatalogItemID}
}

func (c *SubtractItems) Key() InventoryKey {
	return InventoryKey{UserID: c.UserID, CatalogItemID: c.CatalogItemID}
}

// Published events

type Event interface {
	EventName() string
	PartitionKey() string
}

type InventoryItemsGranted struct {
	CorrelationID uuid.UUID `json:"correlation_id"`
}

type InventoryItemsSubtracted struct {
	CorrelationID uuid.UUID `json:"correlation_id"`
}

type InventoryItemUpdated struct {
	UserID        uuid.UUID `json:"user_id"`
	CatalogItemID uuid.UUID `json:"catalog_item_id"`
	NewQuantity   int64     `json:"new_quantity"`
}

func (InventoryItemsGranted) EventName() string    { return EventItemsGranted }
func (InventoryItemsSubtracted) EventName() string { return EventItemsSubtracted }
func (InventoryItemUpdated) EventName() string     { return EventItemUpdated }

func (e InventoryItemsGranted) PartitionKey() string    { return e.CorrelationID.String() }
func (e InventoryItemsSubtracted) PartitionKey() string { return e.CorrelationID.String() }
func (e InventoryItemUpdated) PartitionKey() string {
	return InventoryKey{UserID: e.UserID, CatalogItemID: e.CatalogItemID}.String()
}

// Catalog replica events

type CatalogItemCreated struct {
	ItemID      uuid.UUID `json:"item_id" validate:"required"`
	Name        string    `json:"name" validate:"required"`
	Description string    `json:"description"`
}

type CatalogItemUpdated struct {
	ItemID      uuid.UUID `json:"item_id" validate:"required"`
	Name        string    `json:"name" validate:"required"`
	Description string    `json:"description"`
}

type CatalogItemDeleted struct {
	ItemID uuid.UUID `json:"item_id" validate:"required"`
}
